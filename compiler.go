package engine

import (
	"fmt"

	"golang.org/x/exp/slices"
)

// subDomain is the slice of the codepoint domain that content of one code
// range ordinal can hold, together with how such content is scanned.
type subDomain struct {
	cr     CodeRange
	bounds []int32
	// multi: codepoints of this content may span several units.
	multi bool
	// noAny: the content may hold units that are not codepoints of the
	// domain, so covering the domain does not mean everything matches.
	noAny bool
}

var (
	domain7Bit   = []int32{0, 0x7F}
	domain8Bit   = []int32{0, 0xFF}
	domainBMP    = []int32{0, 0xD7FF, 0xE000, 0xFFFF}
	domainScalar = []int32{0, 0xD7FF, 0xE000, MaxCodepoint}
	domainAll    = []int32{0, MaxCodepoint}
)

// subDomains lists, per encoding, the ordinals it produces in increasing
// order of generality.
var subDomains = [...][]subDomain{
	ASCII: {
		{cr: SevenBit, bounds: domain7Bit},
		{cr: Broken, bounds: domain8Bit, noAny: true},
	},
	Latin1: {
		{cr: SevenBit, bounds: domain7Bit},
		{cr: EightBit, bounds: domain8Bit},
	},
	Bytes: {
		{cr: SevenBit, bounds: domain7Bit},
		{cr: Valid, bounds: domain8Bit},
	},
	UTF8: {
		{cr: SevenBit, bounds: domain7Bit},
		{cr: ValidMultiByte, bounds: domainScalar, multi: true},
		{cr: BrokenMultiByte, bounds: domainAll, multi: true, noAny: true},
	},
	UTF16: {
		{cr: SevenBit, bounds: domain7Bit},
		{cr: EightBit, bounds: domain8Bit},
		{cr: SixteenBit, bounds: domainBMP},
		{cr: ValidMultiByte, bounds: domainScalar, multi: true},
		{cr: BrokenMultiByte, bounds: domainAll, multi: true},
	},
	UTF32: {
		{cr: SevenBit, bounds: domain7Bit},
		{cr: EightBit, bounds: domain8Bit},
		{cr: SixteenBit, bounds: domainBMP},
		{cr: Valid, bounds: domainScalar},
		{cr: Broken, bounds: domainAll, noAny: true},
	},
}

// Compile builds the matchers for set in every code range ordinal enc can
// produce. Values above the encoding's largest codepoint are rejected.
func Compile(set RangeSet, enc Encoding) (*MatcherSet, error) {
	if enc == External || !enc.valid() {
		return nil, fmt.Errorf("%w: cannot compile matchers for %s", ErrUnsupportedEncoding, enc)
	}
	if limit := int32(enc.MaxCodepoint()); !set.IsEmpty() && set.Max() > limit {
		for i := 0; i < set.Len(); i++ {
			if lo, hi := set.Range(i); hi > limit {
				return nil, fmt.Errorf("%w: range [%#x, %#x] exceeds %#x for %s", ErrOutOfDomain, lo, hi, limit, enc)
			}
		}
	}

	ctx := compileContextPool.Get().(*compileContext)
	defer compileContextPool.Put(ctx)

	ms := &MatcherSet{enc: enc, set: set}
	domains := subDomains[enc]
	compiled := make([]*Matcher, len(domains))
	for k, sd := range domains {
		ctx.reset()
		for i := 0; i < len(sd.bounds); i += 2 {
			ctx.intersection = set.appendIntersection(ctx.intersection, sd.bounds[i], sd.bounds[i+1])
		}
		compiled[k] = buildMatcher(ctx, enc, sd, ctx.intersection)
	}

	// Ordinals without a sub-domain of their own fall through to the next
	// more general one; past the most general they take the last.
	for o := range ms.matchers {
		k := slices.IndexFunc(domains, func(sd subDomain) bool {
			return sd.cr.Ordinal() >= CodeRange(o)
		})
		if k < 0 {
			k = len(domains) - 1
		}
		ms.matchers[o] = compiled[k]
	}
	return ms, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(set RangeSet, enc Encoding) *MatcherSet {
	ms, err := Compile(set, enc)
	if err != nil {
		panic(err)
	}
	return ms
}

// buildMatcher picks the cheapest variant for the intersection r of the set
// with sd. r is scratch memory and must be copied if retained.
func buildMatcher(ctx *compileContext, enc Encoding, sd subDomain, r []int32) *Matcher {
	m := &Matcher{cr: sd.cr, decode: sd.multi && !rawTestable(enc, r)}
	switch {
	case len(r) == 0:
		m.kind, m.decode = MatchNone, false
	case !sd.noAny && slices.Equal(r, sd.bounds):
		m.kind, m.decode = MatchAny, false
	// A one-unit value, such as a lone UTF-16 surrogate, stays a value test.
	case m.decode && len(r) == 2 && r[0] == r[1] && EncodedLength(uint32(r[0]), enc) > 1:
		m.kind = MatchLiteral
		m.values[0] = uint32(r[0])
		m.needle, _ = AppendCodepoint(nil, uint32(r[0]), enc)
		m.needleUnits = EncodedLength(uint32(r[0]), enc)
		m.broken = isSurrogate(uint32(r[0]))
	case rangesSize(r) <= len(m.values):
		m.kind = MatchValues
		k := 0
		for i := 0; i < len(r); i += 2 {
			for c := r[i]; c <= r[i+1]; c++ {
				m.values[k] = uint32(c)
				k++
			}
		}
		for ; k < 4; k++ {
			m.values[k] = m.values[0]
		}
	case len(r) <= 4:
		m.kind = MatchRanges
		copy(m.values[:], []uint32{uint32(r[0]), uint32(r[1]), uint32(r[0]), uint32(r[1])})
		if len(r) == 4 {
			m.values[2], m.values[3] = uint32(r[2]), uint32(r[3])
		}
	case r[len(r)-1] <= 0xFF:
		if t, ok := synthesizeNibbleTable(ctx, r); ok {
			m.kind, m.table = MatchNibbleTable, t
		} else {
			m.kind, m.bits = MatchBitSet, newBitSet256(r)
		}
	default:
		m.kind, m.ranges = MatchBinarySearch, slices.Clone(r)
	}
	return m
}

// rawTestable reports whether every codepoint of r is encoded as one unit
// that cannot also occur inside a longer sequence, so multi-unit content can
// be tested unit by unit.
func rawTestable(enc Encoding, r []int32) bool {
	if len(r) == 0 {
		return true
	}
	switch enc {
	case UTF8:
		return r[len(r)-1] <= 0x7F
	case UTF16:
		return r[len(r)-1] <= 0xFFFF && !rangesOverlap(r, 0xD800, 0xDFFF)
	default:
		return true
	}
}

func rangesOverlap(r []int32, lo, hi int32) bool {
	for i := 0; i < len(r); i += 2 {
		if r[i] <= hi && r[i+1] >= lo {
			return true
		}
	}
	return false
}

func rangesSize(r []int32) int {
	n := 0
	for i := 0; i < len(r); i += 2 {
		n += int(r[i+1]-r[i]) + 1
	}
	return n
}
