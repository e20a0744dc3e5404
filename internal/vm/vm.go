// Package vm implements the interpreter loop (spec.md §4.7): the single
// hot loop that decodes one opcode at a time, dispatches it, and mutates
// the operand stack, frame stack, and instruction pointer. This is the
// heart of the system (spec.md §2: "≈55% — the heart").
//
// Grounded on the dispatch-loop shape of
// _examples/vertexdlt-vertexvm/vm/vm.go's interpret() (a single for loop
// reading the current frame, decoding an opcode byte, and switching on
// it) and original_source/vm/vm.c's computed-goto dispatch table, which
// this package reproduces as a dense switch per spec.md §4.7's stated
// fallback ("a dense switch on the opcode byte is an acceptable
// fallback").
package vm

import (
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tinyvm/tinyvm/internal/builtin"
	"github.com/tinyvm/tinyvm/internal/bytecode"
	"github.com/tinyvm/tinyvm/internal/stack"
	"github.com/tinyvm/tinyvm/internal/value"
)

// VM owns one operand stack, one frame stack, and a builtin registry.
// Nothing is shared between VM instances (spec.md §5): a host that wants
// concurrent execution constructs one VM per goroutine (see
// internal/server).
type VM struct {
	ID                  uuid.UUID
	stack               *stack.OperandStack
	frames              *stack.FrameStack
	Builtins            *builtin.Registry
	log                 zerolog.Logger
	initialStackCapacity int
}

// New constructs a VM whose BF_PRINT output goes to out and whose operand
// stack starts with the given capacity (spec.md §4.2's MIN_CAPACITY
// floor is enforced by stack.NewOperandStack). The logger defaults to
// Warn level writing to stderr, matching §7's "diagnostic to a
// stderr-like sink"; callers that want per-opcode tracing call
// SetLogger with a Debug-level logger (see cmd's --trace flag).
func New(out io.Writer, initialStackCapacity int) *VM {
	id := uuid.New()
	logger := zerolog.New(os.Stderr).
		Level(zerolog.WarnLevel).
		With().
		Timestamp().
		Str("vm_id", id.String()).
		Logger()
	return &VM{
		ID:                   id,
		stack:                stack.NewOperandStack(initialStackCapacity, nil),
		frames:               stack.NewFrameStack(),
		Builtins:             builtin.NewRegistry(out),
		log:                  logger,
		initialStackCapacity: initialStackCapacity,
	}
}

// SetLogger overrides the VM's logger, e.g. to raise it to Debug for
// per-opcode tracing (SPEC_FULL.md §10).
func (v *VM) SetLogger(l zerolog.Logger) { v.log = l }

// Run executes block as the top-level invocation (spec.md §6:
// vm_run(vm, block)). It returns a non-nil *VMError on any fatal
// condition from spec.md §7 instead of the reference implementation's
// immediate process exit, so embedders can recover(); the CLI boundary
// (cmd/run.go) is what turns a non-nil error back into "print diagnostic,
// exit nonzero".
func (v *VM) Run(entry *bytecode.Block) (err error) {
	defer func() {
		if r := recover(); r == nil {
			return
		} else if ve, ok := r.(*VMError); ok {
			err = ve
		} else if e, ok := r.(error); ok {
			err = &VMError{Message: e.Error(), IP: -1, Cause: e}
		} else {
			panic(r)
		}
	}()

	v.log.Info().Msg("vm run starting")

	// Run re-initializes both stacks on every call so a VM can be reused
	// for repeated or idempotent executions (spec.md §8) without earlier
	// invocations' frames or operands leaking into the next one.
	v.stack = stack.NewOperandStack(v.initialStackCapacity, nil)
	v.frames = stack.NewFrameStack()

	// Design Note (spec.md §9, third bullet): stack_base for the top
	// frame must be explicitly initialized to 0, not left as whatever
	// garbage the reference implementation's uninitialized variant would
	// carry.
	v.frames.Push(stack.Frame{
		BlockRef:    entry,
		LocalsBase:  0,
		LocalsCount: entry.LocalCount,
		IP:          0,
		StackBase:   0,
	})
	v.stack.PushN(entry.LocalCount)

	for {
		frame := v.frames.Top()
		block := frame.BlockRef.(*bytecode.Block)

		if frame.IP >= block.InstructionSize() {
			v.log.Info().Msg("vm run ended: ip reached instruction_size")
			return nil
		}

		opByte, ip := bytecode.ReadU8(block.Instructions, frame.IP)
		op := bytecode.Opcode(opByte)

		v.log.Debug().
			Int("ip", frame.IP).
			Str("op", op.String()).
			Int("stack_size", v.stack.Size()).
			Int("frame_depth", v.frames.Size()).
			Msg("dispatch")

		switch op {
		case bytecode.Halt:
			v.log.Info().Msg("vm run ended: HALT")
			return nil

		case bytecode.PushConst:
			idx, next := bytecode.ReadI32(block.Instructions, ip)
			frame.IP = next
			v.stack.Push(block.Constants[idx])

		case bytecode.PushLocal:
			idx, next := bytecode.ReadI32(block.Instructions, ip)
			frame.IP = next
			v.stack.Push(v.stack.At(frame.LocalsBase + int(idx)))

		case bytecode.StoreLocal:
			idx, next := bytecode.ReadI32(block.Instructions, ip)
			frame.IP = next
			val := v.stack.Pop()
			v.stack.Set(frame.LocalsBase+int(idx), val)

		case bytecode.Push:
			frameIdx, n1 := bytecode.ReadI32(block.Instructions, ip)
			localIdx, n2 := bytecode.ReadI32(block.Instructions, n1)
			frame.IP = n2
			target := v.frames.At(int(frameIdx))
			v.stack.Push(v.stack.At(target.LocalsBase + int(localIdx)))

		case bytecode.Store:
			frameIdx, n1 := bytecode.ReadI32(block.Instructions, ip)
			localIdx, n2 := bytecode.ReadI32(block.Instructions, n1)
			frame.IP = n2
			target := v.frames.At(int(frameIdx))
			val := v.stack.Pop()
			v.stack.Set(target.LocalsBase+int(localIdx), val)

		case bytecode.Pop:
			frame.IP = ip
			v.stack.Pop()

		case bytecode.CallOp:
			opByte2, next := bytecode.ReadU8(block.Instructions, ip)
			frame.IP = next
			v.execCallOp(value.Op(opByte2))

		case bytecode.Jump:
			target, _ := bytecode.ReadI32(block.Instructions, ip)
			frame.IP = int(target)

		case bytecode.JumpFalse:
			target, next := bytecode.ReadI32(block.Instructions, ip)
			top := v.stack.Pop()
			if !top.AsBool() {
				frame.IP = int(target)
			} else {
				frame.IP = next
			}

		case bytecode.CallCFunc:
			funcID, n1 := bytecode.ReadI32(block.Instructions, ip)
			argc, n2 := bytecode.ReadI32(block.Instructions, n1)
			frame.IP = n2
			v.execCallCFunc(op, frame.IP, funcID, int(argc))

		case bytecode.CallFunc:
			v.execCallFunc(frame, block, ip, op)

		case bytecode.Return:
			v.execReturn()

		case bytecode.IncLocal:
			idx, next := bytecode.ReadI32(block.Instructions, ip)
			frame.IP = next
			i := frame.LocalsBase + int(idx)
			v.stack.Set(i, v.stack.At(i).Inc())

		case bytecode.DecLocal:
			idx, next := bytecode.ReadI32(block.Instructions, ip)
			frame.IP = next
			i := frame.LocalsBase + int(idx)
			v.stack.Set(i, v.stack.At(i).Dec())

		case bytecode.StartWorker:
			panic(&VMError{Message: ErrReservedOpcode.Error(), IP: frame.IP, Opcode: op, Cause: ErrReservedOpcode})

		default:
			panic(&VMError{Message: ErrUnknownOpcode.Error(), IP: frame.IP, Opcode: op, Cause: ErrUnknownOpcode})
		}
	}
}

// execCallOp dispatches a binary or unary operator (spec.md §4.1),
// distinguishing arity by comparison against value.OpUnary — the
// "Op tag partition by ordinal" Design Note (spec.md §9).
func (v *VM) execCallOp(op value.Op) {
	if op.IsUnary() {
		right := v.stack.Pop()
		v.stack.Push(value.Unary(op, right))
		return
	}
	right := v.stack.Pop()
	left := v.stack.Pop()
	v.stack.Push(value.Binary(op, left, right))
}

func (v *VM) execCallCFunc(op bytecode.Opcode, ip int, funcID int32, argc int) {
	base := v.stack.Size() - argc
	argv := make([]value.Value, argc)
	for i := 0; i < argc; i++ {
		argv[i] = v.stack.At(base + i)
	}
	v.stack.PopN(argc)
	result, err := v.Builtins.Call(funcID, argc, argv)
	if err != nil {
		panic(&VMError{Message: "CALL_C_FUNC failed", IP: ip, Opcode: op, Cause: err})
	}
	v.stack.Push(result)
}

// execCallFunc implements the call sequence of spec.md §4.5, reproduced
// exactly: resolve the addressing mode, save the caller's resume IP,
// extend the operand stack so the callee's locals occupy contiguous
// slots above the caller's (now-repurposed) stack_base, and push the
// callee frame.
func (v *VM) execCallFunc(frame *stack.Frame, block *bytecode.Block, ip int, op bytecode.Opcode) {
	modeByte, ip2 := bytecode.ReadU8(block.Instructions, ip)
	mode := bytecode.CallAddressingMode(modeByte)

	switch mode {
	case bytecode.CFConstant:
		idx, n := bytecode.ReadI32(block.Instructions, ip2)
		argc, nextIP := bytecode.ReadI32(block.Instructions, n)
		v.finishCallFunc(frame, block.Constants[idx], int(argc), nextIP, op)
	case bytecode.CFLocal:
		idx, n := bytecode.ReadI32(block.Instructions, ip2)
		argc, nextIP := bytecode.ReadI32(block.Instructions, n)
		fn := v.stack.At(frame.LocalsBase + int(idx))
		v.finishCallFunc(frame, fn, int(argc), nextIP, op)
	case bytecode.CFGlobal:
		frameIdx, n := bytecode.ReadI32(block.Instructions, ip2)
		localIdx, n2 := bytecode.ReadI32(block.Instructions, n)
		argc, nextIP := bytecode.ReadI32(block.Instructions, n2)
		target := v.frames.At(int(frameIdx))
		fn := v.stack.At(target.LocalsBase + int(localIdx))
		v.finishCallFunc(frame, fn, int(argc), nextIP, op)
	default:
		panic(&VMError{Message: ErrBadAddressingMode.Error(), IP: ip, Opcode: op, Cause: ErrBadAddressingMode})
	}
}

func (v *VM) finishCallFunc(caller *stack.Frame, fn value.Value, argc int, nextIP int, op bytecode.Opcode) {
	if fn.Tag != value.Function {
		panic(&VMError{Message: ErrNotAFunction.Error(), IP: nextIP, Opcode: op, Cause: ErrNotAFunction})
	}
	callee, ok := fn.Fn.(*bytecode.Block)
	if !ok {
		panic(&VMError{Message: ErrNotAFunction.Error(), IP: nextIP, Opcode: op, Cause: ErrNotAFunction})
	}

	// Step 1: save caller's resume point. caller.StackBase is repurposed
	// here to remember where this specific call's argument window began,
	// so RETURN knows where to truncate back to (spec.md §4.5) — this
	// must be written before any FrameStack.Push, which may reallocate
	// the backing array and invalidate the caller pointer.
	caller.IP = nextIP
	newBase := v.stack.Size() - argc
	caller.StackBase = newBase

	// Step 2: extend the operand stack so the callee has local_count
	// contiguous slots at and above newBase.
	v.stack.PushN(callee.LocalCount - argc)

	// Step 3 & 4: construct and push the callee frame.
	v.frames.Push(stack.Frame{
		BlockRef:    callee,
		LocalsBase:  newBase,
		LocalsCount: callee.LocalCount,
		IP:          0,
		StackBase:   newBase,
	})

	v.log.Debug().
		Str("callee", callee.BlockName()).
		Int("argc", argc).
		Int("locals_base", newBase).
		Msg("call_func")
}

// execReturn implements the return sequence of spec.md §4.5. Returning
// from the bottom frame is deliberately left to panic with
// ErrFrameUnderflow — spec.md §4.7 calls this "undefined in the current
// design (no explicit guard)".
func (v *VM) execReturn() {
	v.frames.Pop()
	retVal := v.stack.Pop()
	caller := v.frames.Top()
	v.stack.Truncate(caller.StackBase)
	v.stack.Push(retVal)

	v.log.Debug().Int("stack_size", v.stack.Size()).Msg("return")
}
