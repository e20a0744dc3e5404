// Package value implements the VM's tagged-union Value type and its
// operator dispatch (spec.md §3, §4.1).
//
// Grounded on _examples/original_source/vm/type.h (the type_t tagged
// union) and vm/builtin.h (the Op enum and operation()/operation_unary()
// dispatch functions). The source's type_u is a real union: int_u, float_u
// and bool_u all alias the same storage. Go has no union types, but the
// aliasing is load-bearing — spec.md §4.1 calls out that MOD tags its
// result Number while writing the integer channel, and §9 says this must
// be preserved rather than "fixed". raw reproduces that aliasing: it is
// the single 8-byte word every numeric accessor reads and writes,
// regardless of Tag.
package value

import "math"

// Tag identifies which variant of Value is meaningful.
type Tag uint8

const (
	Number Tag = iota
	Integer
	Bool
	StringLiteral
	Function
	None
)

func (t Tag) String() string {
	switch t {
	case Number:
		return "Number"
	case Integer:
		return "Integer"
	case Bool:
		return "Bool"
	case StringLiteral:
		return "StringLiteral"
	case Function:
		return "Function"
	case None:
		return "None"
	default:
		return "Tag(?)"
	}
}

// Block is the subset of *bytecode.Block that a Function value needs to
// reference. Defined here (rather than importing internal/bytecode) to
// avoid a dependency cycle: internal/bytecode's constant pool holds
// value.Value, and a Function value holds a Block reference.
type Block interface {
	// BlockName only exists to keep the interface non-empty for readable
	// disassembly; callers that need the real block type assert it to
	// *bytecode.Block.
	BlockName() string
}

// Value is a copy-by-value tagged union. Numeric operators read/write raw
// regardless of Tag — an intentional, spec-mandated permissiveness (see
// the package doc and spec.md §4.1, §7).
type Value struct {
	Tag Tag
	raw uint64 // Number (float64 bits), Integer (int64 bits), Bool (0/1)
	Str string
	Fn  Block
}

// NoneValue is the canonical empty value.
var NoneValue = Value{Tag: None}

// NumberValue constructs a Number-tagged Value.
func NumberValue(f float64) Value {
	return Value{Tag: Number, raw: math.Float64bits(f)}
}

// IntegerValue constructs an Integer-tagged Value.
func IntegerValue(i int64) Value {
	return Value{Tag: Integer, raw: uint64(i)}
}

// BoolValue constructs a Bool-tagged Value.
func BoolValue(b bool) Value {
	if b {
		return Value{Tag: Bool, raw: 1}
	}
	return Value{Tag: Bool, raw: 0}
}

// StringValue constructs a StringLiteral-tagged Value borrowing s.
func StringValue(s string) Value {
	return Value{Tag: StringLiteral, Str: s}
}

// FunctionValue constructs a Function-tagged Value referencing blk.
func FunctionValue(blk Block) Value {
	return Value{Tag: Function, Fn: blk}
}

// AsFloat reads the raw payload as a float64, independent of Tag.
func (v Value) AsFloat() float64 {
	return math.Float64frombits(v.raw)
}

// AsInt reads the raw payload as an int64, independent of Tag.
func (v Value) AsInt() int64 {
	return int64(v.raw)
}

// AsBool reads the raw payload as a bool, independent of Tag.
func (v Value) AsBool() bool {
	return v.raw != 0
}

// Raw exposes the shared numeric payload bit pattern, used by the block
// container codec (internal/bytecode) to serialize Number/Integer/Bool
// constants without caring which accessor is semantically "correct".
func (v Value) Raw() uint64 { return v.raw }

// RawValue reconstructs a Value from a Tag and a raw payload bit pattern,
// the inverse of Raw. Used only by the block container decoder.
func RawValue(tag Tag, raw uint64) Value {
	return Value{Tag: tag, raw: raw}
}

// withFloat returns v with its raw payload replaced by f, Tag unchanged.
// Used by INC_LOCAL/DEC_LOCAL, which mutate the float channel in place
// "without re-tagging" (spec.md §4.4).
func (v Value) withFloat(f float64) Value {
	v.raw = math.Float64bits(f)
	return v
}

// Inc implements INC_LOCAL's in-place float increment.
func (v Value) Inc() Value { return v.withFloat(v.AsFloat() + 1) }

// Dec implements DEC_LOCAL's in-place float decrement.
func (v Value) Dec() Value { return v.withFloat(v.AsFloat() - 1) }

// Format renders v the way BF_PRINT does (spec.md §4.6): Number as %f,
// Integer as %d, Bool as true/false, StringLiteral as its bytes, None as
// "none".
func (v Value) Format() string {
	switch v.Tag {
	case Number:
		return formatFloat(v.AsFloat())
	case Integer:
		return formatInt(v.AsInt())
	case Bool:
		if v.AsBool() {
			return "true"
		}
		return "false"
	case StringLiteral:
		return v.Str
	case Function:
		return "<function>"
	case None:
		return "none"
	default:
		return "<invalid>"
	}
}
