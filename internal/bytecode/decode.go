package bytecode

// ReadU8 reads one byte from code at ip and returns it with the advanced
// ip, mirroring original_source/vm/vm.c's read_u8.
func ReadU8(code []byte, ip int) (byte, int) {
	return code[ip], ip + 1
}

// ReadI32 reads a little-endian, two's-complement 4-byte signed integer
// from code at ip (spec.md §4.4, §6), mirroring original_source/vm/vm.c's
// read_i32 (BYTES4_TO_INT). This is distinct from the leb128 package:
// the instruction stream's operand width is fixed by spec.md, never
// variable-length.
func ReadI32(code []byte, ip int) (int32, int) {
	v := int32(uint32(code[ip]) |
		uint32(code[ip+1])<<8 |
		uint32(code[ip+2])<<16 |
		uint32(code[ip+3])<<24)
	return v, ip + 4
}

// PutI32 writes v as a little-endian 4-byte signed integer into dst at
// offset (inverse of ReadI32), used by the assembler.
func PutI32(dst []byte, offset int, v int32) {
	u := uint32(v)
	dst[offset] = byte(u)
	dst[offset+1] = byte(u >> 8)
	dst[offset+2] = byte(u >> 16)
	dst[offset+3] = byte(u >> 24)
}
