// Package leb128 reads and writes LEB128 variable-length integers.
//
// The bytecode block container format (internal/bytecode) uses this
// encoding to length-prefix StringLiteral constants; the VM's instruction
// stream itself never uses LEB128 — spec.md §4.4 mandates fixed 4-byte
// little-endian operands there, and internal/bytecode/decode.go honors
// that separately.
package leb128

import (
	"github.com/pkg/errors"

	"github.com/tinyvm/tinyvm/util"
)

// ErrOverflow is returned when a varint would need more bits than requested.
var ErrOverflow = errors.New("leb128: value overflows requested width")

// Read reads an integer of at most n bits from br.
func Read(br *util.ByteReader, n uint32, hasSign bool) (int64, error) {
	if n > 64 {
		return 0, errors.New("leb128: n must <= 64")
	}
	var (
		shift   uint32
		bytecnt uint32
		cur     int64
		result  int64
		sign    int64 = -1
	)
	for {
		b, err := br.ReadOne()
		if err != nil {
			return result, err
		}
		cur = int64(b)
		result |= (cur & 0x7f) << shift
		shift += 7
		sign <<= 7
		bytecnt++
		if cur&0x80 == 0 {
			break
		}
		if bytecnt > (n+7-1)/7 {
			return result, ErrOverflow
		}
	}
	if hasSign && ((sign >> 1) & result) != 0 {
		result |= sign
	}
	return result, nil
}

// ReadUint32 reads an unsigned LEB128 32-bit integer.
func ReadUint32(br *util.ByteReader) (uint32, error) {
	result, err := Read(br, 32, false)
	return uint32(result), err
}

// ReadUint64 reads an unsigned LEB128 64-bit integer.
func ReadUint64(br *util.ByteReader) (uint64, error) {
	result, err := Read(br, 64, false)
	return uint64(result), err
}
