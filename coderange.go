package engine

import "fmt"

// CodeRange classifies how wide and how valid the content of a buffer is.
//
// The value is bit-packed:
//   - bits 0-2: ordinal (SevenBit .. Broken), ordered by restrictiveness
//   - bit 3:    multi-byte flag, the encoding uses variable-width code units
//   - bit 4:    imprecise flag, the ordinal is an upper bound only
type CodeRange uint8

// Ordinals of the lattice, most restrictive first.
const (
	SevenBit   CodeRange = 0 // every codepoint <= 0x7F
	EightBit   CodeRange = 1 // every codepoint <= 0xFF
	SixteenBit CodeRange = 2 // every codepoint <= 0xFFFF, no surrogates
	Valid      CodeRange = 3 // well-formed content of the encoding
	Broken     CodeRange = 4 // could not verify, assume the worst
)

const (
	maskOrdinal       CodeRange = 0x7
	flagMultiByte     CodeRange = 1 << 3
	flagImprecise     CodeRange = 1 << 4
	numOrdinals                 = 5
	maskKnownCodeBits CodeRange = maskOrdinal | flagMultiByte | flagImprecise
)

// Variable-width flavours of the two top ordinals.
const (
	ValidMultiByte  = Valid | flagMultiByte
	BrokenMultiByte = Broken | flagMultiByte
)

var maxCodepointByOrdinal = [8]uint32{
	0x7F, 0xFF, 0xFFFF, 0x10FFFF, 0x10FFFF,
	// never reached for well-formed values
	0x10FFFF, 0x10FFFF, 0x10FFFF,
}

var ordinalNames = [8]string{"7bit", "8bit", "16bit", "valid", "broken", "?5", "?6", "?7"}

// Ordinal returns the position of cr in the lattice with the flag bits
// stripped, in the range SevenBit..Broken.
func (cr CodeRange) Ordinal() CodeRange {
	assertCodeRange(cr)
	return cr & maskOrdinal
}

// IsMultiByte reports whether cr was produced for a variable-width encoding.
func (cr CodeRange) IsMultiByte() bool { return cr&flagMultiByte != 0 }

// IsImprecise reports whether cr is only an upper bound.
func (cr CodeRange) IsImprecise() bool { return cr&flagImprecise != 0 }

// MarkImprecise returns cr flagged as an upper bound.
func (cr CodeRange) MarkImprecise() CodeRange { return cr | flagImprecise }

// IsMoreGeneral reports whether cr admits strictly more content than other.
func (cr CodeRange) IsMoreGeneral(other CodeRange) bool {
	return cr.Ordinal() > other.Ordinal()
}

// IsMoreRestrictive reports whether cr admits strictly less content than other.
func (cr CodeRange) IsMoreRestrictive(other CodeRange) bool {
	return cr.Ordinal() < other.Ordinal()
}

// IsFixedWidth reports whether every codepoint of content classified as cr
// occupies exactly one code unit.
func (cr CodeRange) IsFixedWidth() bool {
	return cr.Ordinal() <= SixteenBit || !cr.IsMultiByte()
}

// MaxCodepoint returns the largest codepoint content classified as cr may hold.
func (cr CodeRange) MaxCodepoint() uint32 {
	return maxCodepointByOrdinal[cr.Ordinal()]
}

// CommonCodeRange returns the classification of the concatenation of two
// buffers classified as a and b: the more general ordinal, with the flag bits
// of both operands merged. It is associative and commutative.
func CommonCodeRange(a, b CodeRange) CodeRange {
	return max(a.Ordinal(), b.Ordinal()) | (a|b)&(flagMultiByte|flagImprecise)
}

func (cr CodeRange) String() string {
	s := ordinalNames[cr&maskOrdinal]
	if cr.IsMultiByte() {
		s += "/multibyte"
	}
	if cr.IsImprecise() {
		s += "/imprecise"
	}
	return s
}

func assertCodeRange(cr CodeRange) {
	if cr&^maskKnownCodeBits != 0 || cr&maskOrdinal > Broken {
		panic(fmt.Sprintf("engine: malformed code range %#x", uint8(cr)))
	}
}
