// Package builtin implements the VM's host-function registry (spec.md
// §4.6): a table keyed by integer func_id, called by CALL_C_FUNC with a
// uniform (argc, argv) -> Value signature.
//
// Grounded on _examples/vertexdlt-vertexvm/vm's function-table shape
// (functions resolved by integer index against vm.Module) and
// original_source/vm/builtin.h's builtin_print, generalized from a single
// hardcoded dispatch into a registry so hosts can register their own
// func_ids.
package builtin

import (
	"io"

	"github.com/pkg/errors"

	"github.com/tinyvm/tinyvm/internal/value"
)

// Func is the uniform signature every built-in must implement.
type Func func(argc int, argv []value.Value) value.Value

// PrintFuncID is the only func_id spec.md §4.6 defines.
const PrintFuncID = 0

// ErrUnknownFunc is returned by Registry.Call when func_id has no entry.
var ErrUnknownFunc = errors.New("unknown built-in func_id")

// Registry is a table of Funcs keyed by func_id.
type Registry struct {
	funcs map[int32]Func
}

// NewRegistry returns a Registry with BF_PRINT bound to w, mirroring the
// "standard output sink" spec.md §6 describes as host-provided.
func NewRegistry(w io.Writer) *Registry {
	r := &Registry{funcs: make(map[int32]Func)}
	r.Register(PrintFuncID, Print(w))
	return r
}

// Register adds or replaces the entry for funcID.
func (r *Registry) Register(funcID int32, fn Func) {
	r.funcs[funcID] = fn
}

// Call dispatches to the registered Func for funcID.
func (r *Registry) Call(funcID int32, argc int, argv []value.Value) (value.Value, error) {
	fn, ok := r.funcs[funcID]
	if !ok {
		return value.NoneValue, errors.Wrapf(ErrUnknownFunc, "func_id %d", funcID)
	}
	return fn(argc, argv), nil
}
