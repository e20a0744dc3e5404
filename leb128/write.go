package leb128

// AppendUint32 appends the unsigned LEB128 encoding of v to dst and returns
// the extended slice.
func AppendUint32(dst []byte, v uint32) []byte {
	return appendUint64(dst, uint64(v))
}

// AppendUint64 appends the unsigned LEB128 encoding of v to dst and returns
// the extended slice.
func AppendUint64(dst []byte, v uint64) []byte {
	return appendUint64(dst, v)
}

func appendUint64(dst []byte, v uint64) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			dst = append(dst, b|0x80)
		} else {
			dst = append(dst, b)
			return dst
		}
	}
}
