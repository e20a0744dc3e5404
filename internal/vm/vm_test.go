package vm

import (
	"bytes"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/tinyvm/tinyvm/internal/bytecode"
	"github.com/tinyvm/tinyvm/internal/stack"
	"github.com/tinyvm/tinyvm/internal/value"
)

// patchJump finishes a forward jump: opOffset is the offset Here()
// returned right before the JUMP/JUMP_FALSE opcode byte was emitted;
// the i32 operand immediately follows the one-byte opcode.
func patchJump(b *bytecode.Builder, opOffset int32, target int32) {
	b.PatchI32(opOffset+1, target)
}

func run(t *testing.T, entry *bytecode.Block) (string, error) {
	t.Helper()
	var out bytes.Buffer
	v := New(&out, stack.MinCapacity)
	err := v.Run(entry)
	return out.String(), err
}

// Scenario 1 (spec.md §8): power of constants.
func TestPowOfConstants(t *testing.T) {
	b := bytecode.NewBuilder()
	cPi := b.Const(value.NumberValue(math.Pi))
	cE := b.Const(value.NumberValue(math.E))
	cLabel := b.Const(value.StringValue("e^pi="))

	b.PushConst(cPi)
	b.PushConst(cE)
	b.StoreLocal(0)
	b.StoreLocal(1)
	b.PushLocal(0)
	b.PushLocal(1)
	b.CallOp(value.OpPow)
	b.StoreLocal(0)
	b.PushConst(cLabel)
	b.PushLocal(0)
	b.CallCFunc(0, 2)
	b.Halt()

	entry := b.Block(2)
	out, err := run(t, entry)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := fmt.Sprintf("e^pi=%f\n", math.Pow(math.E, math.Pi))
	if out != want {
		t.Fatalf("got %q, want %q", out, want)
	}
}

// Scenario 2 (spec.md §8): Fibonacci via a self-referential function block.
func buildFib(t *testing.T) *bytecode.Block {
	t.Helper()
	fb := bytecode.NewBuilder()
	cOne := fb.Const(value.NumberValue(1))
	cTwo := fb.Const(value.NumberValue(2))
	cSelf := fb.Const(value.NoneValue) // placeholder, patched below

	fb.PushLocal(0)
	fb.PushConst(cOne)
	fb.CallOp(value.OpLe)
	jfOffset := fb.Here()
	fb.JumpFalse(0) // patched to elseLabel

	fb.PushLocal(0)
	fb.Return()

	elseLabel := fb.Here()
	fb.PushLocal(0)
	fb.PushConst(cOne)
	fb.CallOp(value.OpSub)
	fb.CallFuncConstant(cSelf, 1)
	fb.PushLocal(0)
	fb.PushConst(cTwo)
	fb.CallOp(value.OpSub)
	fb.CallFuncConstant(cSelf, 1)
	fb.CallOp(value.OpAdd)
	fb.Return()

	patchJump(fb, jfOffset, elseLabel)

	fib := fb.Block(1)
	fib.Constants[cSelf] = value.FunctionValue(fib)
	return fib
}

func callFib(t *testing.T, fib *bytecode.Block, n float64) (string, error) {
	t.Helper()
	mb := bytecode.NewBuilder()
	cArg := mb.Const(value.NumberValue(n))
	cFn := mb.Const(value.FunctionValue(fib))
	mb.PushConst(cArg)
	mb.CallFuncConstant(cFn, 1)
	mb.CallCFunc(0, 1)
	mb.Halt()
	return run(t, mb.Block(0))
}

func TestFibonacciRecursion(t *testing.T) {
	fib := buildFib(t)
	cases := []struct {
		n    float64
		want float64
	}{
		{0, 0},
		{1, 1},
		{5, 5},
		{10, 55},
	}
	for _, tc := range cases {
		out, err := callFib(t, fib, tc.n)
		if err != nil {
			t.Fatalf("fib(%v): Run: %v", tc.n, err)
		}
		want := fmt.Sprintf("%f\n", tc.want)
		if out != want {
			t.Fatalf("fib(%v) = %q, want %q", tc.n, out, want)
		}
	}
}

// Scenario 3 (spec.md §8): loop with INC_LOCAL printing the first ten
// Fibonacci numbers.
func TestLoopWithIncLocal(t *testing.T) {
	fib := buildFib(t)

	mb := bytecode.NewBuilder()
	cZero := mb.Const(value.NumberValue(0))
	cTen := mb.Const(value.NumberValue(10))
	cFn := mb.Const(value.FunctionValue(fib))

	mb.PushConst(cZero)
	mb.StoreLocal(0)

	loopStart := mb.Here()
	mb.PushLocal(0)
	mb.PushConst(cTen)
	mb.CallOp(value.OpLt)
	jfOffset := mb.Here()
	mb.JumpFalse(0) // patched to loopEnd

	mb.PushLocal(0)
	mb.CallFuncConstant(cFn, 1)
	mb.CallCFunc(0, 1)
	mb.IncLocal(0)
	mb.Jump(loopStart)

	loopEnd := mb.Here()
	mb.Halt()
	patchJump(mb, jfOffset, loopEnd)

	out, err := run(t, mb.Block(1))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	a, b := 0, 1
	var wantLines []string
	for i := 0; i < 10; i++ {
		wantLines = append(wantLines, fmt.Sprintf("%f", float64(a)))
		a, b = b, a+b
	}
	want := strings.Join(wantLines, "\n") + "\n"
	if out != want {
		t.Fatalf("got %q, want %q", out, want)
	}
}

// Scenario 4 (spec.md §8): JUMP_FALSE must not branch when the popped
// Bool is true.
func TestJumpFalseOnTrueFallsThrough(t *testing.T) {
	b := bytecode.NewBuilder()
	cAnswer := b.Const(value.NumberValue(42))

	b.PushConst(b.Const(value.BoolValue(true)))
	jfOffset := b.Here()
	b.JumpFalse(0) // target: the HALT below, never taken
	b.PushConst(cAnswer)
	b.CallCFunc(0, 1)
	haltHere := b.Here()
	b.Halt()
	patchJump(b, jfOffset, haltHere)

	out, err := run(t, b.Block(0))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := "42.000000\n"; out != want {
		t.Fatalf("got %q, want %q", out, want)
	}
}

// Scenario 5 (spec.md §8): a function that writes its argument back to
// local 0 through the stack-window and returns it.
func TestStackWindowReentrance(t *testing.T) {
	fb := bytecode.NewBuilder()
	fb.PushLocal(0)
	fb.StoreLocal(0)
	fb.PushLocal(0)
	fb.Return()
	identity := fb.Block(1)

	mb := bytecode.NewBuilder()
	cArg := mb.Const(value.NumberValue(7))
	cFn := mb.Const(value.FunctionValue(identity))
	mb.PushConst(cArg)
	mb.CallFuncConstant(cFn, 1)
	mb.CallCFunc(0, 1)
	mb.Halt()

	out, err := run(t, mb.Block(0))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := "7.000000\n"; out != want {
		t.Fatalf("got %q, want %q", out, want)
	}
}

// Scenario 6 (spec.md §8): a bare POP underflows and must terminate with
// a diagnostic, producing no prior output.
func TestPopUnderflowIsFatalWithNoPriorOutput(t *testing.T) {
	b := bytecode.NewBuilder()
	b.Pop()
	b.Halt()

	out, err := run(t, b.Block(0))
	if err == nil {
		t.Fatal("expected a fatal error from popping an empty stack")
	}
	if out != "" {
		t.Fatalf("expected no output before the fatal error, got %q", out)
	}
	if _, ok := err.(*VMError); !ok {
		t.Fatalf("expected *VMError, got %T", err)
	}
}

// Round-trip property (spec.md §8): ADD then SUB b restores a.
func TestAddSubRoundTrip(t *testing.T) {
	b := bytecode.NewBuilder()
	cA := b.Const(value.NumberValue(3.5))
	cB := b.Const(value.NumberValue(11.25))

	b.PushConst(cA)
	b.PushConst(cB)
	b.CallOp(value.OpAdd)
	b.PushConst(cB)
	b.CallOp(value.OpSub)
	b.StoreLocal(0)
	b.PushLocal(0)
	b.CallCFunc(0, 1)
	b.Halt()

	out, err := run(t, b.Block(1))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := "3.500000\n"; out != want {
		t.Fatalf("got %q, want %q", out, want)
	}
}

// Idempotence property (spec.md §8): a program that only pushes and pops
// a constant produces no output and no error, run after run.
func TestPushPopIdempotence(t *testing.T) {
	b := bytecode.NewBuilder()
	cK := b.Const(value.NumberValue(123))
	b.PushConst(cK)
	b.Pop()
	b.Halt()
	block := b.Block(0)

	var out bytes.Buffer
	v := New(&out, stack.MinCapacity)
	for i := 0; i < 5; i++ {
		if err := v.Run(block); err != nil {
			t.Fatalf("iteration %d: Run: %v", i, err)
		}
	}
	if out.Len() != 0 {
		t.Fatalf("expected no output, got %q", out.String())
	}
}

// MOD's tagged-Number-but-integer-payload behavior (spec.md §4.1, §9)
// must survive the full interpreter, not just the value package.
func TestModPreservesTagPayloadMismatchThroughInterpreter(t *testing.T) {
	b := bytecode.NewBuilder()
	cA := b.Const(value.NumberValue(7))
	cB := b.Const(value.NumberValue(3))
	b.PushConst(cA)
	b.PushConst(cB)
	b.CallOp(value.OpMod)
	b.StoreLocal(0)
	b.PushLocal(0)
	b.CallCFunc(0, 1)
	b.Halt()

	out, err := run(t, b.Block(1))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// MOD reads both Number constants through the integer channel, so it
	// takes the remainder of their float64 bit patterns
	// (0x401C000000000000 % 0x4008000000000000 == 0x0014000000000000),
	// not 7 % 3. Format() dispatches on Tag, which is Number here, so that
	// integer payload is read back through the float channel as a
	// near-zero float (about 2.8e-308) and prints as 0.000000 at %f's
	// default precision — exactly the tag/payload mismatch spec.md §9 says
	// must be preserved, not "fixed".
	if want := "0.000000\n"; out != want {
		t.Fatalf("got %q, want %q", out, want)
	}
}
