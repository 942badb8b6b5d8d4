package engine

import "fmt"

// Encoding identifies how the code units of a buffer map to codepoints.
type Encoding uint8

// Supported encodings. External is the escape hatch for codecs supplied by
// the host, see ExternalCodec.
const (
	ASCII Encoding = iota
	Latin1
	Bytes
	UTF8
	UTF16
	UTF32
	External
)

var encodingNames = [...]string{"US-ASCII", "ISO-8859-1", "BYTES", "UTF-8", "UTF-16", "UTF-32", "EXTERNAL"}

// Largest codepoint each encoding can represent.
var encodingMaxCodepoint = [...]uint32{0x7F, 0xFF, 0xFF, 0x10FFFF, 0x10FFFF, 0x10FFFF, 0xFF}

// Largest stride each encoding may be stored with.
var encodingMaxStride = [...]int{0, 0, 0, 0, 1, 2, 0}

func (e Encoding) String() string {
	if int(e) < len(encodingNames) {
		return encodingNames[e]
	}
	return fmt.Sprintf("Encoding(%d)", uint8(e))
}

// MaxCodepoint returns the upper end of the codepoint domain of e.
func (e Encoding) MaxCodepoint() uint32 {
	return encodingMaxCodepoint[e]
}

// IsUnicode reports whether decoded values of e are Unicode codepoints.
func (e Encoding) IsUnicode() bool { return e != External }

// isVariableWidth reports whether a codepoint may span several code units.
func (e Encoding) isVariableWidth() bool { return e == UTF8 || e == UTF16 }

func (e Encoding) valid() bool { return int(e) < len(encodingNames) }

// CheckStride reports whether a buffer of encoding e may be stored with the
// given stride.
func (e Encoding) CheckStride(stride int) error {
	if !e.valid() {
		return fmt.Errorf("%w: %s", ErrUnsupportedEncoding, e)
	}
	if stride < 0 || stride > encodingMaxStride[e] {
		return fmt.Errorf("%w: %d for %s", ErrInvalidStride, stride, e)
	}
	return nil
}

// replacement returns the best-effort substitute for undecodable input.
func (e Encoding) replacement() int32 {
	if e.IsUnicode() {
		return 0xFFFD
	}
	return '?'
}

// StrideFor returns the smallest stride that holds every codepoint of content
// classified as cr without loss. UTF-16 content is compacted to one byte per
// unit up to EightBit, UTF-32 content to one or two bytes up to EightBit and
// SixteenBit. Every other encoding is byte-oriented.
func StrideFor(e Encoding, cr CodeRange) int {
	o := cr.Ordinal()
	switch e {
	case UTF16:
		if o <= EightBit {
			return 0
		}
		return 1
	case UTF32:
		switch {
		case o <= EightBit:
			return 0
		case o <= SixteenBit:
			return 1
		default:
			return 2
		}
	default:
		return 0
	}
}

// Buffer is a flat, read-only run of code units, each 1 << Stride bytes wide
// and stored little-endian.
type Buffer struct {
	Data   []byte
	Stride int
}

// NewBuffer wraps data without copying.
func NewBuffer(data []byte, stride int) Buffer {
	return Buffer{Data: data, Stride: stride}
}

// StringBuffer wraps the bytes of s without copying. The buffer must not be
// written to.
func StringBuffer(s string, stride int) Buffer {
	return Buffer{Data: unsafeStringToBytes(s), Stride: stride}
}

// Len returns the number of code units in b.
func (b Buffer) Len() int { return len(b.Data) >> b.Stride }

// At returns the code unit at raw index i.
func (b Buffer) At(i int) uint32 {
	switch b.Stride {
	case 0:
		return uint32(b.Data[i])
	case 1:
		j := i << 1
		return uint32(b.Data[j]) | uint32(b.Data[j+1])<<8
	default:
		j := i << 2
		return uint32(b.Data[j]) | uint32(b.Data[j+1])<<8 | uint32(b.Data[j+2])<<16 | uint32(b.Data[j+3])<<24
	}
}

// Slice returns the code units [from, to) of b.
func (b Buffer) Slice(from, to int) Buffer {
	return Buffer{Data: b.Data[from<<b.Stride : to<<b.Stride], Stride: b.Stride}
}
