package engine

import (
	"fmt"
	"sort"
	"unicode"

	"github.com/xdg-go/stringprep"
	"golang.org/x/exp/slices"
	"golang.org/x/text/unicode/rangetable"
)

// MaxCodepoint is the largest Unicode codepoint.
const MaxCodepoint = 0x10FFFF

// RangeSet is an immutable set of codepoints stored as sorted, disjoint,
// non-adjacent, inclusive ranges flattened to [lo0, hi0, lo1, hi1, ...].
type RangeSet struct {
	r []int32
}

// NewRangeSet validates the flattened bounds and builds a set from them.
// Adjacent ranges must already be merged by the caller.
func NewRangeSet(bounds ...int32) (RangeSet, error) {
	if len(bounds)%2 != 0 {
		return RangeSet{}, fmt.Errorf("%w: odd number of bounds (%d)", ErrMalformedRanges, len(bounds))
	}
	for i := 0; i < len(bounds); i += 2 {
		lo, hi := bounds[i], bounds[i+1]
		if lo > hi {
			return RangeSet{}, fmt.Errorf("%w: range [%#x, %#x] has lower bound above upper bound", ErrMalformedRanges, lo, hi)
		}
		if lo < 0 || hi > MaxCodepoint {
			return RangeSet{}, fmt.Errorf("%w: range [%#x, %#x] outside [0x0, %#x]", ErrOutOfDomain, lo, hi, MaxCodepoint)
		}
		if i == 0 {
			continue
		}
		prevLo, prevHi := bounds[i-2], bounds[i-1]
		switch {
		case lo <= prevHi:
			return RangeSet{}, fmt.Errorf("%w: range [%#x, %#x] overlaps or precedes [%#x, %#x]", ErrMalformedRanges, lo, hi, prevLo, prevHi)
		case lo == prevHi+1:
			return RangeSet{}, fmt.Errorf("%w: range [%#x, %#x] is adjacent to [%#x, %#x]", ErrMalformedRanges, lo, hi, prevLo, prevHi)
		}
	}
	return RangeSet{r: slices.Clone(bounds)}, nil
}

// MustRangeSet is like NewRangeSet but panics on malformed input.
func MustRangeSet(bounds ...int32) RangeSet {
	s, err := NewRangeSet(bounds...)
	if err != nil {
		panic(err)
	}
	return s
}

// RangeSetFromTables builds the union of Unicode range tables.
func RangeSetFromTables(tables ...*unicode.RangeTable) (RangeSet, error) {
	merged := rangetable.Merge(tables...)
	var pairs [][2]int32
	for _, r := range merged.R16 {
		pairs = appendStrided(pairs, uint32(r.Lo), uint32(r.Hi), uint32(r.Stride))
	}
	for _, r := range merged.R32 {
		pairs = appendStrided(pairs, r.Lo, r.Hi, r.Stride)
	}
	return NewRangeSet(normalizeRanges(pairs)...)
}

// RangeSetFromStringprep builds a set from an RFC 3454 table such as
// stringprep.TableC1_2.
func RangeSetFromStringprep(set stringprep.Set) (RangeSet, error) {
	pairs := make([][2]int32, 0, len(set))
	for _, rr := range set {
		pairs = append(pairs, [2]int32{rr[0], rr[1]})
	}
	return NewRangeSet(normalizeRanges(pairs)...)
}

func appendStrided(pairs [][2]int32, lo, hi, stride uint32) [][2]int32 {
	if stride <= 1 {
		return append(pairs, [2]int32{int32(lo), int32(hi)})
	}
	for v := lo; v <= hi; v += stride {
		pairs = append(pairs, [2]int32{int32(v), int32(v)})
	}
	return pairs
}

// normalizeRanges sorts the pairs and merges overlapping and adjacent ones.
func normalizeRanges(pairs [][2]int32) []int32 {
	slices.SortFunc(pairs, func(a, b [2]int32) int {
		switch {
		case a[0] < b[0]:
			return -1
		case a[0] > b[0]:
			return 1
		}
		return 0
	})
	out := make([]int32, 0, 2*len(pairs))
	for _, p := range pairs {
		if n := len(out); n > 0 && p[0] <= out[n-1]+1 {
			out[n-1] = max(out[n-1], p[1])
			continue
		}
		out = append(out, p[0], p[1])
	}
	return out
}

// Len returns the number of ranges.
func (s RangeSet) Len() int { return len(s.r) / 2 }

// IsEmpty reports whether s holds no codepoint.
func (s RangeSet) IsEmpty() bool { return len(s.r) == 0 }

// Range returns the bounds of the i-th range.
func (s RangeSet) Range(i int) (lo, hi int32) { return s.r[2*i], s.r[2*i+1] }

// Bounds returns a copy of the flattened bounds.
func (s RangeSet) Bounds() []int32 { return slices.Clone(s.r) }

// Min returns the smallest codepoint of a non-empty set.
func (s RangeSet) Min() int32 { return s.r[0] }

// Max returns the largest codepoint of a non-empty set.
func (s RangeSet) Max() int32 { return s.r[len(s.r)-1] }

// Size returns the number of codepoints in s.
func (s RangeSet) Size() int { return rangesSize(s.r) }

// Contains reports whether c is in s.
func (s RangeSet) Contains(c int32) bool {
	return rangesContain(s.r, c)
}

// rangesContain is the interval binary search over flattened bounds: narrow
// left when c < lo[mid], right when c > hi[mid].
func rangesContain(r []int32, c int32) bool {
	lo, hi := 0, len(r)/2-1
	for lo <= hi {
		mid := int(uint(lo+hi) >> 1)
		switch {
		case c < r[2*mid]:
			hi = mid - 1
		case c > r[2*mid+1]:
			lo = mid + 1
		default:
			return true
		}
	}
	return false
}

// Intersect returns s restricted to [lo, hi].
func (s RangeSet) Intersect(lo, hi int32) RangeSet {
	return RangeSet{r: s.appendIntersection(nil, lo, hi)}
}

// appendIntersection appends the ranges of s clipped to [lo, hi] to dst. Two
// binary searches locate the first range ending at or after lo and the last
// range starting at or before hi, so the cost is O(log n + k).
func (s RangeSet) appendIntersection(dst []int32, lo, hi int32) []int32 {
	n := s.Len()
	first := sort.Search(n, func(i int) bool { return s.r[2*i+1] >= lo })
	last := sort.Search(n, func(i int) bool { return s.r[2*i] > hi }) - 1
	for i := first; i <= last; i++ {
		dst = append(dst, max(s.r[2*i], lo), min(s.r[2*i+1], hi))
	}
	return dst
}

func (s RangeSet) String() string {
	b := make([]byte, 0, 8*len(s.r))
	b = append(b, '[')
	for i := 0; i < len(s.r); i += 2 {
		if i > 0 {
			b = append(b, ' ')
		}
		b = fmt.Appendf(b, "[%#x, %#x]", s.r[i], s.r[i+1])
	}
	return string(append(b, ']'))
}
