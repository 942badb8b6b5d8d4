package engine

import (
	"math/bits"

	"golang.org/x/exp/slices"
)

// NibbleTable answers membership of a byte value with two table lookups and
// an AND: b is in the set iff Hi[b>>4] & Lo[b&0xF] != 0.
type NibbleTable struct {
	Hi [16]uint8
	Lo [16]uint8
}

// Contains reports whether c is in the table. Values above 0xFF never are.
func (t *NibbleTable) Contains(c uint32) bool {
	return c <= 0xFF && t.Hi[c>>4]&t.Lo[c&0xF] != 0
}

// BitSet256 is a plain bitmap over the byte values.
type BitSet256 [4]uint64

// Contains reports whether c is in the set. Values above 0xFF never are.
func (b *BitSet256) Contains(c uint32) bool {
	return c <= 0xFF && b[c>>6]&(1<<(c&63)) != 0
}

func (b *BitSet256) setRange(lo, hi uint32) {
	for c := lo; c <= hi; c++ {
		b[c>>6] |= 1 << (c & 63)
	}
}

func newBitSet256(r []int32) BitSet256 {
	var b BitSet256
	for i := 0; i < len(r); i += 2 {
		b.setRange(uint32(r[i]), uint32(r[i+1]))
	}
	return b
}

// synthesizeNibbleTable builds a NibbleTable for ranges whose maximum is at
// most 0xFF.
//
// upper[i] holds the lower nibbles present under upper nibble i. Each distinct
// non-zero pattern needs a bit of its own, and there are only eight. When
// there are more, patterns that are the union of other (smaller) patterns are
// dropped from the bit assignment: their row mask becomes the OR of their
// components' masks. If more than eight irreducible patterns remain the
// synthesis fails.
func synthesizeNibbleTable(ctx *compileContext, r []int32) (NibbleTable, bool) {
	var t NibbleTable
	ctx.upper = [16]uint16{}
	for i := 0; i < len(r); i += 2 {
		for c := r[i]; c <= r[i+1]; c++ {
			ctx.upper[c>>4] |= 1 << (c & 0xF)
		}
	}

	distinct := ctx.distinct[:0]
	for _, u := range ctx.upper {
		if u != 0 && !slices.Contains(distinct, u) {
			distinct = append(distinct, u)
		}
	}
	// smaller patterns first, so components resolve before their unions
	slices.SortStableFunc(distinct, func(a, b uint16) int {
		return bits.OnesCount16(a) - bits.OnesCount16(b)
	})

	masks := ctx.masks[:len(distinct)]
	atoms := 0
	if len(distinct) <= 8 {
		for k := range distinct {
			masks[k] = 1 << k
			ctx.atom[k] = true
		}
		atoms = len(distinct)
	} else {
		for k, v := range distinct {
			var union uint16
			for _, u := range distinct[:k] {
				if u&^v == 0 {
					union |= u
				}
			}
			ctx.atom[k] = union != v
			if !ctx.atom[k] {
				continue
			}
			if atoms == 8 {
				return t, false
			}
			masks[k] = 1 << atoms
			atoms++
		}
		for k, v := range distinct {
			if ctx.atom[k] {
				continue
			}
			masks[k] = 0
			for j, u := range distinct[:k] {
				if u&^v == 0 {
					masks[k] |= masks[j]
				}
			}
		}
	}

	for i, u := range ctx.upper {
		if u != 0 {
			t.Hi[i] = masks[slices.Index(distinct, u)]
		}
	}
	for k, v := range distinct {
		if !ctx.atom[k] {
			continue
		}
		for j := 0; j < 16; j++ {
			if v&(1<<j) != 0 {
				t.Lo[j] |= masks[k]
			}
		}
	}
	return t, true
}
