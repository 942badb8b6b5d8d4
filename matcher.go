package engine

import "fmt"

// MatcherKind enumerates the closed set of matcher variants, cheapest first.
type MatcherKind uint8

const (
	MatchNone         MatcherKind = iota // empty set
	MatchAny                             // every codepoint of the content matches
	MatchValues                          // up to four exact values
	MatchRanges                          // up to two ranges
	MatchNibbleTable                     // 16x16 nibble lookup table, bytes only
	MatchBitSet                          // 256-bit bitmap, bytes only
	MatchBinarySearch                    // binary search over sorted ranges
	MatchLiteral                         // single multi-unit codepoint compared as encoded units
)

var matcherKindNames = [...]string{
	"NoMatch", "AnyMatch", "UpToFourValues", "UpToTwoRanges",
	"NibbleLookupTable", "BitSet256", "BinarySearchRanges", "LiteralStringNeedle",
}

func (k MatcherKind) String() string {
	if int(k) < len(matcherKindNames) {
		return matcherKindNames[k]
	}
	return fmt.Sprintf("MatcherKind(%d)", uint8(k))
}

// Matcher tests codepoints against one compiled variant. It is valid for
// content classified at most as CodeRange().
type Matcher struct {
	kind MatcherKind
	cr   CodeRange
	// decode is set when matching codepoints may span several units, so the
	// scan has to decode (or at least step over) whole codepoints.
	decode bool

	// MatchValues: the values, padded with values[0].
	// MatchRanges: lo0, hi0, lo1, hi1, padded with the first range.
	// MatchLiteral: values[0] is the codepoint.
	values [4]uint32
	table  NibbleTable
	bits   BitSet256
	ranges []int32

	needle      []byte // encoded at the stride of content this matcher serves
	needleUnits int
	broken      bool // needle encodes a surrogate, it only occurs in broken content
}

// Kind returns the variant of m.
func (m *Matcher) Kind() MatcherKind { return m.kind }

// CodeRange returns the most general code range m is valid for.
func (m *Matcher) CodeRange() CodeRange { return m.cr }

// Decodes reports whether scanning with m decodes multi-unit codepoints.
func (m *Matcher) Decodes() bool { return m.decode }

// Table returns the nibble table of a MatchNibbleTable matcher.
func (m *Matcher) Table() (NibbleTable, bool) {
	return m.table, m.kind == MatchNibbleTable
}

// Needle returns the encoded units of a MatchLiteral matcher and whether the
// needle can only occur in broken content.
func (m *Matcher) Needle() (needle []byte, broken bool) {
	return m.needle, m.broken
}

// Contains reports whether the codepoint (or raw unit) c matches.
func (m *Matcher) Contains(c uint32) bool {
	switch m.kind {
	case MatchNone:
		return false
	case MatchAny:
		return true
	case MatchValues:
		v := &m.values
		return c == v[0] || c == v[1] || c == v[2] || c == v[3]
	case MatchRanges:
		v := &m.values
		return c-v[0] <= v[1]-v[0] || c-v[2] <= v[3]-v[2]
	case MatchNibbleTable:
		return m.table.Contains(c)
	case MatchBitSet:
		return m.bits.Contains(c)
	case MatchBinarySearch:
		return c <= MaxCodepoint && rangesContain(m.ranges, int32(c))
	case MatchLiteral:
		return c == m.values[0]
	default:
		panic(fmt.Sprintf("engine: unknown matcher kind %d", m.kind))
	}
}

func (m *Matcher) String() string {
	return fmt.Sprintf("%s(%s)", m.kind, m.cr)
}

// MatcherSet holds one matcher per code range ordinal of an encoding. It is
// immutable and safe for concurrent use.
type MatcherSet struct {
	enc      Encoding
	set      RangeSet
	matchers [numOrdinals]*Matcher
}

// Encoding returns the encoding the set was compiled for.
func (ms *MatcherSet) Encoding() Encoding { return ms.enc }

// RangeSet returns the compiled codepoint set.
func (ms *MatcherSet) RangeSet() RangeSet { return ms.set }

// For returns the matcher registered for content classified as cr. Ordinals
// the encoding never produces map to the next more general matcher.
func (ms *MatcherSet) For(cr CodeRange) *Matcher {
	return ms.matchers[cr.Ordinal()]
}
