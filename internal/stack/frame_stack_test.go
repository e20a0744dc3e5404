package stack

import "testing"

func TestFrameStackPushPopRoundTrip(t *testing.T) {
	fs := NewFrameStack()
	fs.Push(Frame{IP: 0, StackBase: 0, LocalsBase: 0, LocalsCount: 2})
	fs.Push(Frame{IP: 5, StackBase: 2, LocalsBase: 2, LocalsCount: 1})
	if fs.Size() != 2 {
		t.Fatalf("expected size 2, got %d", fs.Size())
	}
	top := fs.Pop()
	if top.IP != 5 || top.StackBase != 2 {
		t.Fatalf("unexpected top frame: %+v", top)
	}
	if fs.Size() != 1 {
		t.Fatalf("expected size 1 after pop, got %d", fs.Size())
	}
	bottom := fs.Pop()
	if bottom.IP != 0 {
		t.Fatalf("unexpected bottom frame: %+v", bottom)
	}
}

func TestFrameStackPopUnderflowPanics(t *testing.T) {
	defer func() {
		if r := recover(); r != ErrFrameUnderflow {
			t.Fatalf("expected ErrFrameUnderflow panic, got %v", r)
		}
	}()
	fs := NewFrameStack()
	fs.Pop()
}

func TestFrameStackTopDoesNotPop(t *testing.T) {
	fs := NewFrameStack()
	fs.Push(Frame{IP: 42})
	top := fs.Top()
	if top.IP != 42 {
		t.Fatalf("expected IP 42, got %d", top.IP)
	}
	if fs.Size() != 1 {
		t.Fatalf("Top must not pop, size = %d", fs.Size())
	}
}

func TestFrameStackAtIndexesAbsolute(t *testing.T) {
	fs := NewFrameStack()
	fs.Push(Frame{StackBase: 0})
	fs.Push(Frame{StackBase: 10})
	fs.Push(Frame{StackBase: 20})
	if fs.At(1).StackBase != 10 {
		t.Fatalf("expected frame 1 stack_base 10, got %d", fs.At(1).StackBase)
	}
}

func TestFrameStackAtOutOfRangePanics(t *testing.T) {
	defer func() {
		if r := recover(); r != ErrFrameUnderflow {
			t.Fatalf("expected ErrFrameUnderflow panic, got %v", r)
		}
	}()
	fs := NewFrameStack()
	fs.Push(Frame{})
	fs.At(5)
}

func TestFrameStackGrowsPastInitialCapacity(t *testing.T) {
	fs := NewFrameStack()
	for i := 0; i < MinCapacity*3; i++ {
		fs.Push(Frame{IP: i})
	}
	if fs.Size() != MinCapacity*3 {
		t.Fatalf("expected size %d, got %d", MinCapacity*3, fs.Size())
	}
	for i := fs.Size() - 1; i >= 0; i-- {
		fr := fs.Pop()
		if fr.IP != i {
			t.Fatalf("expected IP %d, got %d", i, fr.IP)
		}
	}
}
