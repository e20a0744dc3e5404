package bytecode

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/tinyvm/tinyvm/internal/value"
	"github.com/tinyvm/tinyvm/leb128"
	"github.com/tinyvm/tinyvm/util"
)

// Magic identifies the block container format on disk, adapted from the
// Magic/Version header pattern in _examples/vertexdlt-vertexvm/wasm/
// module.go — a section-free format of our own, not WASM's. It exists
// purely to move assembled Programs between the assembler and the CLI
// (SPEC_FULL.md §11); it has nothing to do with spec.md §4.4's
// instruction wire format, which is fixed independently of this.
const Magic uint32 = 0x4b56544d // bytes "MTVK" on disk (little-endian)

// Version is the container format version.
const Version uint32 = 1

// ErrBadEntry is returned by callers (not Decode itself, which doesn't
// know which block a caller intends to run) when a decoded Program's
// Entry index is out of range of its Blocks table.
var ErrBadEntry = errors.New("bytecode: entry index out of range")

// Program is a flat table of Blocks plus an entry point. The table
// indirection lets a Function constant reference its own enclosing block
// by table index, which is how self-referential (recursive) functions are
// represented in the container format — see the Design Note on
// self-referential constants in spec.md §9.
type Program struct {
	Blocks []*Block
	Entry  int
}

// Encode serializes p into the container format.
func Encode(p *Program) ([]byte, error) {
	var out []byte
	var hdr [16]byte
	binary.LittleEndian.PutUint32(hdr[0:4], Magic)
	binary.LittleEndian.PutUint32(hdr[4:8], Version)
	binary.LittleEndian.PutUint32(hdr[8:12], uint32(len(p.Blocks)))
	binary.LittleEndian.PutUint32(hdr[12:16], uint32(p.Entry))
	out = append(out, hdr[:]...)

	blockIndex := make(map[*Block]int, len(p.Blocks))
	for i, b := range p.Blocks {
		blockIndex[b] = i
	}

	for _, blk := range p.Blocks {
		out = appendU32(out, uint32(blk.LocalCount))
		out = appendU32(out, uint32(len(blk.Instructions)))
		out = append(out, blk.Instructions...)
		out = appendU32(out, uint32(len(blk.Constants)))
		for _, c := range blk.Constants {
			var encErr error
			out, encErr = encodeConstant(out, c, blockIndex)
			if encErr != nil {
				return nil, encErr
			}
		}
	}
	return out, nil
}

func encodeConstant(out []byte, c value.Value, blockIndex map[*Block]int) ([]byte, error) {
	out = append(out, byte(c.Tag))
	switch c.Tag {
	case value.Number, value.Integer, value.Bool:
		out = appendU64(out, c.Raw())
	case value.StringLiteral:
		out = leb128.AppendUint64(out, uint64(len(c.Str)))
		out = append(out, c.Str...)
	case value.Function:
		blk, ok := c.Fn.(*Block)
		if !ok {
			return nil, errors.New("Function constant does not reference a *bytecode.Block")
		}
		idx, ok := blockIndex[blk]
		if !ok {
			return nil, errors.New("Function constant references a block outside the program's table")
		}
		out = appendU32(out, uint32(idx))
	case value.None:
		// no payload
	default:
		return nil, errors.Errorf("unknown constant tag %d", c.Tag)
	}
	return out, nil
}

// Decode parses the container format produced by Encode.
func Decode(data []byte) (*Program, error) {
	if len(data) < 16 {
		return nil, errors.New("bytecode: container too short")
	}
	magic := binary.LittleEndian.Uint32(data[0:4])
	if magic != Magic {
		return nil, errors.Errorf("bytecode: bad magic %#x", magic)
	}
	version := binary.LittleEndian.Uint32(data[4:8])
	if version != Version {
		return nil, errors.Errorf("bytecode: unsupported version %d", version)
	}
	blockCount := binary.LittleEndian.Uint32(data[8:12])
	entry := int(binary.LittleEndian.Uint32(data[12:16]))

	br := util.NewByteReader(data[16:])
	blocks := make([]*Block, blockCount)
	// patches records (block, constantIndex, tableIndex) to resolve
	// once every block exists, since a function may reference a block
	// later in the table (or itself).
	type patch struct {
		blk   *Block
		slot  int
		table uint32
	}
	var patches []patch

	for bi := uint32(0); bi < blockCount; bi++ {
		localCount, err := readU32(br)
		if err != nil {
			return nil, errors.Wrap(err, "bytecode: reading local_count")
		}
		instrSize, err := readU32(br)
		if err != nil {
			return nil, errors.Wrap(err, "bytecode: reading instruction_size")
		}
		instrBytes, err := br.Read(instrSize)
		if err != nil {
			return nil, errors.Wrap(err, "bytecode: reading instructions")
		}
		instructions := append([]byte(nil), instrBytes...)

		constCount, err := readU32(br)
		if err != nil {
			return nil, errors.Wrap(err, "bytecode: reading constant_count")
		}
		constants := make([]value.Value, constCount)
		blk := &Block{Instructions: instructions, LocalCount: int(localCount)}

		for ci := uint32(0); ci < constCount; ci++ {
			tagByte, err := br.ReadOne()
			if err != nil {
				return nil, errors.Wrap(err, "bytecode: reading constant tag")
			}
			tag := value.Tag(tagByte)
			switch tag {
			case value.Number, value.Integer, value.Bool:
				raw, err := readU64(br)
				if err != nil {
					return nil, errors.Wrap(err, "bytecode: reading numeric constant")
				}
				constants[ci] = value.RawValue(tag, raw)
			case value.StringLiteral:
				strLen, err := leb128.ReadUint64(br)
				if err != nil {
					return nil, errors.Wrap(err, "bytecode: reading string length")
				}
				strBytes, err := br.Read(uint32(strLen))
				if err != nil {
					return nil, errors.Wrap(err, "bytecode: reading string bytes")
				}
				constants[ci] = value.StringValue(string(strBytes))
			case value.Function:
				table, err := readU32(br)
				if err != nil {
					return nil, errors.Wrap(err, "bytecode: reading function table index")
				}
				patches = append(patches, patch{blk: blk, slot: int(ci), table: table})
			case value.None:
				constants[ci] = value.NoneValue
			default:
				return nil, errors.Errorf("bytecode: unknown constant tag %d", tagByte)
			}
		}
		blk.Constants = constants
		blocks[bi] = blk
	}

	for _, p := range patches {
		if int(p.table) >= len(blocks) {
			return nil, errors.Errorf("bytecode: function constant references out-of-range block %d", p.table)
		}
		p.blk.Constants[p.slot] = value.FunctionValue(blocks[p.table])
	}

	return &Program{Blocks: blocks, Entry: entry}, nil
}

func appendU32(dst []byte, v uint32) []byte {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	return append(dst, buf[:]...)
}

func appendU64(dst []byte, v uint64) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	return append(dst, buf[:]...)
}

func readU32(br *util.ByteReader) (uint32, error) {
	b, err := br.Read(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func readU64(br *util.ByteReader) (uint64, error) {
	b, err := br.Read(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}
