package stack

import "github.com/pkg/errors"

// Sentinel errors panicked on the two stacks' fatal conditions
// (spec.md §7: pop-on-empty and allocation failure are fatal, "not
// recoverable errors"). Grounded on the ExecError table in
// _examples/vertexdlt-vertexvm/vm/error.go.
var (
	ErrStackUnderflow = errors.New("operand stack underflow")
	ErrFrameUnderflow = errors.New("frame stack underflow")
	ErrFrameOverflow  = errors.New("frame stack overflow")
)
