package engine

// Scan returns the raw index of the first codepoint in [from, to) of buf that
// is in the compiled set, and whether there is one. cr must be the
// classification of buf (or a more general one) and from a codepoint
// boundary. A codepoint that starts inside the window but ends past to never
// matches, whichever matcher variant was compiled.
func Scan(ms *MatcherSet, buf Buffer, cr CodeRange, from, to int) (int, bool) {
	if from >= to {
		return -1, false
	}
	m := ms.For(cr)
	switch m.kind {
	case MatchNone:
		return -1, false
	case MatchAny:
		return from, true
	}
	if !m.decode {
		return scanUnits(m, buf, from, to)
	}
	verified := cr.Ordinal() <= Valid && !cr.IsImprecise()
	if m.kind == MatchLiteral {
		if m.broken && verified {
			return -1, false
		}
		return scanNeedle(m, buf, ms.enc, verified, from, to)
	}
	return scanCodepoints(m, buf, ms.enc, verified, from, to)
}

// scanUnits tests every unit on its own. Byte-wide content gets loops
// specialized per variant; the table lookups are the hot ones.
func scanUnits(m *Matcher, buf Buffer, from, to int) (int, bool) {
	if buf.Stride == 0 {
		data := buf.Data[from:to]
		switch m.kind {
		case MatchNibbleTable:
			t := &m.table
			for i, c := range data {
				if t.Hi[c>>4]&t.Lo[c&0xF] != 0 {
					return from + i, true
				}
			}
			return -1, false
		case MatchBitSet:
			b := &m.bits
			for i, c := range data {
				if b[c>>6]&(1<<(c&63)) != 0 {
					return from + i, true
				}
			}
			return -1, false
		default:
			for i, c := range data {
				if m.Contains(uint32(c)) {
					return from + i, true
				}
			}
			return -1, false
		}
	}
	for i := from; i < to; i++ {
		if m.Contains(buf.At(i)) {
			return i, true
		}
	}
	return -1, false
}

// scanCodepoints decodes content unit sequence by unit sequence. Verified
// content takes the decoder's fast path; anything else is decoded with
// surrogates allowed, and undecodable sequences never match.
func scanCodepoints(m *Matcher, buf Buffer, enc Encoding, verified bool, from, to int) (int, bool) {
	broken := ErrorPolicy{Handling: ReturnNegative, AllowSurrogates: true}
	for i := from; i < to; {
		var cp int32
		var n int
		if verified {
			cp, n = DecodeValidAt(buf, enc, i)
		} else {
			cp, n = decodeAt(buf, enc, i, broken, nil)
		}
		if i+n > to {
			break
		}
		if cp >= 0 && m.Contains(uint32(cp)) {
			return i, true
		}
		i += n
	}
	return -1, false
}

// scanNeedle steps over whole codepoints and compares the encoded needle at
// each boundary, so it never matches inside a longer sequence.
func scanNeedle(m *Matcher, buf Buffer, enc Encoding, verified bool, from, to int) (int, bool) {
	broken := ErrorPolicy{AllowSurrogates: true}
	for i := from; i < to; {
		var n int
		if verified {
			n = validLengthAt(buf, enc, i)
		} else {
			n = codepointLengthAt(buf, enc, i, broken, nil).Length
		}
		if n == m.needleUnits && i+n <= to && memEqualAt(buf.Data, i<<buf.Stride, m.needle) {
			return i, true
		}
		i += n
	}
	return -1, false
}

// validLengthAt reads the length of a codepoint of well-formed content off
// its first unit.
func validLengthAt(buf Buffer, enc Encoding, i int) int {
	switch enc {
	case UTF8:
		return utf8LeadLength(buf.Data[i])
	case UTF16:
		if buf.Stride == 1 && isHighSurrogate(buf.At(i)) {
			return 2
		}
		return 1
	default:
		return 1
	}
}
