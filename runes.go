package engine

import "fmt"

// encodeUTF8 writes c to buf and returns the number of bytes used. Surrogate
// values are encoded like any other three-byte codepoint.
func encodeUTF8(buf []byte, c uint32) int {
	if c < 0x80 {
		buf[0] = byte(c)
		return 1
	}

	if c < 0x800 {
		buf[0] = byte(0xC0 | c>>6)
		buf[1] = byte(0x80 | c&0x3F)
		return 2
	}

	if c < 0x10000 {
		buf[0] = byte(0xE0 | c>>12)
		buf[1] = byte(0x80 | (c>>6)&0x3F)
		buf[2] = byte(0x80 | c&0x3F)
		return 3
	}

	buf[0] = byte(0xF0 | c>>18)
	buf[1] = byte(0x80 | (c>>12)&0x3F)
	buf[2] = byte(0x80 | (c>>6)&0x3F)
	buf[3] = byte(0x80 | c&0x3F)
	return 4
}

// encodeUTF16 writes c as little-endian units and returns the bytes used.
func encodeUTF16(buf []byte, c uint32) int {
	if c < 0x10000 {
		buf[0], buf[1] = byte(c), byte(c>>8)
		return 2
	}
	c -= 0x10000
	hi, lo := 0xD800|c>>10, 0xDC00|c&0x3FF
	buf[0], buf[1] = byte(hi), byte(hi>>8)
	buf[2], buf[3] = byte(lo), byte(lo>>8)
	return 4
}

func encodeUTF32(buf []byte, c uint32) int {
	buf[0], buf[1], buf[2], buf[3] = byte(c), byte(c>>8), byte(c>>16), byte(c>>24)
	return 4
}

// decodeValidUTF8 decodes a sequence known to be well-formed.
func decodeValidUTF8(s []byte) (int32, int) {
	b0 := s[0]
	if b0 < 0x80 {
		return int32(b0), 1
	}

	if b0 < 0xE0 { // 2-byte sequence
		return int32(b0&0x1F)<<6 | int32(s[1]&0x3F), 2
	}

	if b0 < 0xF0 { // 3-byte sequence
		return int32(b0&0x0F)<<12 | int32(s[1]&0x3F)<<6 | int32(s[2]&0x3F), 3
	}

	// 4-byte sequence
	return int32(b0&0x07)<<18 | int32(s[1]&0x3F)<<12 | int32(s[2]&0x3F)<<6 | int32(s[3]&0x3F), 4
}

// AppendCodepoint appends the encoding of c to dst. UTF-16 and UTF-32 are
// written at their full stride (1 and 2).
func AppendCodepoint(dst []byte, c uint32, enc Encoding) ([]byte, error) {
	if enc == External {
		return dst, fmt.Errorf("%w: encoding into %s", ErrUnsupportedEncoding, enc)
	}
	if c > enc.MaxCodepoint() {
		return dst, fmt.Errorf("%w: %#x in %s", ErrOutOfDomain, c, enc)
	}
	var buf [4]byte
	var n int
	switch enc {
	case UTF8:
		n = encodeUTF8(buf[:], c)
	case UTF16:
		n = encodeUTF16(buf[:], c)
	case UTF32:
		n = encodeUTF32(buf[:], c)
	default:
		buf[0], n = byte(c), 1
	}
	return append(dst, buf[:n]...), nil
}

// Encode returns a buffer holding only c.
func Encode(c uint32, enc Encoding) (Buffer, error) {
	data, err := AppendCodepoint(nil, c, enc)
	if err != nil {
		return Buffer{}, err
	}
	return Buffer{Data: data, Stride: encodingMaxStride[enc]}, nil
}

// EncodedLength returns the number of units c occupies in enc at full stride.
func EncodedLength(c uint32, enc Encoding) int {
	switch enc {
	case UTF8:
		switch {
		case c < 0x80:
			return 1
		case c < 0x800:
			return 2
		case c < 0x10000:
			return 3
		default:
			return 4
		}
	case UTF16:
		if c < 0x10000 {
			return 1
		}
		return 2
	default:
		return 1
	}
}
