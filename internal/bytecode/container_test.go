package bytecode

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tinyvm/tinyvm/internal/value"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	b := NewBuilder()
	c0 := b.Const(value.NumberValue(1.5))
	c1 := b.Const(value.StringValue("hello"))
	b.PushConst(c0)
	b.PushConst(c1)
	b.Halt()
	blk := b.Block(0)

	prog := &Program{Blocks: []*Block{blk}, Entry: 0}
	data, err := Encode(prog)
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)
	require.Len(t, got.Blocks, 1)

	gotBlk := got.Blocks[0]
	require.Len(t, gotBlk.Instructions, len(blk.Instructions))
	require.Equal(t, 1.5, gotBlk.Constants[0].AsFloat())
	require.Equal(t, "hello", gotBlk.Constants[1].Str)
}

func TestEncodeDecodeSelfReferentialFunction(t *testing.T) {
	// Models spec.md §8 scenario 2: a function whose constant pool
	// contains itself, enabling recursion.
	fb := NewBuilder()
	fb.PushLocal(0)
	fb.Return()
	fnBlock := fb.Block(1)
	fnBlock.Constants = append(fnBlock.Constants, value.NoneValue) // placeholder

	mainBuilder := NewBuilder()
	mainBuilder.Halt()
	mainBlock := mainBuilder.Block(0)

	prog := &Program{Blocks: []*Block{fnBlock, mainBlock}, Entry: 1}
	fnBlock.Constants[0] = value.FunctionValue(fnBlock) // self-reference

	data, err := Encode(prog)
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)

	decodedFn := got.Blocks[0]
	selfRef, ok := decodedFn.Constants[0].Fn.(*Block)
	require.True(t, ok, "expected constant 0 to be a Function referencing a *Block")
	require.Same(t, decodedFn, selfRef, "expected self-reference to survive round trip")
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	_, err := Decode([]byte{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0})
	require.Error(t, err)
}
