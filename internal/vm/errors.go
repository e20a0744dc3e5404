package vm

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/tinyvm/tinyvm/internal/bytecode"
)

// VMError is the single fatal-error type vm.Run panics with and recovers
// into a returned error (spec.md §7: "report a diagnostic ... and
// terminate the process"). Grounded on the VMError{Message, IP} shape in
// other_examples' rgehrsitz-rex_claude runtime.go, extended with the
// failing Opcode and a wrapped Cause since this VM's fatal conditions
// (stack underflow, unknown opcode, bad CALL_FUNC target) are richer than
// a single message string.
type VMError struct {
	Message string
	IP      int
	Opcode  bytecode.Opcode
	Cause   error
}

func (e *VMError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("vm error at ip %d (%s): %s: %v", e.IP, e.Opcode, e.Message, e.Cause)
	}
	return fmt.Sprintf("vm error at ip %d (%s): %s", e.IP, e.Opcode, e.Message)
}

func (e *VMError) Unwrap() error { return e.Cause }

// Sentinel causes, grounded on the ExecError table in
// _examples/vertexdlt-vertexvm/vm/error.go.
var (
	ErrUnknownOpcode     = errors.New("unknown opcode")
	ErrNotAFunction      = errors.New("resolved value is not a Function")
	ErrBadAddressingMode = errors.New("unknown CALL_FUNC addressing mode")
	ErrReservedOpcode    = errors.New("opcode is reserved and unimplemented")
)
