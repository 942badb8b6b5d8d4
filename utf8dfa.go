package engine

// UTF-8 decoding is driven by Bjoern Hoehrmann's DFA
// (http://bjoern.hoehrmann.de/utf-8/decoder/dfa/, MIT licence).
//
// utf8Classes maps every byte to one of 12 character classes, utf8Transitions
// maps state+class to the next state. States are pre-multiplied by 12.
const (
	utf8Accept   = 0
	utf8Reject   = 12
	utf8NClasses = 12
)

var utf8Classes = [256]uint8{
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9,
	7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7,
	8, 8, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2,
	10, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 4, 3, 3, 11, 6, 6, 6, 5, 8, 8, 8, 8, 8, 8, 8, 8, 8, 8, 8,
}

// utf8ClassesSurrogates is utf8Classes with 0xED moved to the generic
// three-byte lead class, so that encoded surrogates ED A0 80..ED BF BF pass.
var utf8ClassesSurrogates = func() [256]uint8 {
	t := utf8Classes
	t[0xED] = 3
	return t
}()

var utf8Transitions = [9 * utf8NClasses]uint8{
	0, 12, 24, 36, 60, 96, 84, 12, 12, 12, 48, 72, 12, 12, 12, 12, 12, 12, 12, 12, 12, 12, 12, 12,
	12, 0, 12, 12, 12, 12, 12, 0, 12, 0, 12, 12, 12, 24, 12, 12, 12, 12, 12, 24, 12, 24, 12, 12,
	12, 12, 12, 12, 12, 12, 12, 24, 12, 12, 12, 12, 12, 24, 12, 12, 12, 12, 12, 12, 12, 24, 12, 12,
	12, 12, 12, 12, 12, 12, 12, 36, 12, 36, 12, 12, 12, 36, 12, 12, 12, 12, 12, 36, 12, 36, 12, 12,
	12, 36, 12, 12, 12, 12, 12, 12, 12, 12, 12, 12,
}

func utf8ClassTable(surrogates bool) *[256]uint8 {
	if surrogates {
		return &utf8ClassesSurrogates
	}
	return &utf8Classes
}

func isUTF8Continuation(c byte) bool { return c&0xC0 == 0x80 }

// utf8LeadLength returns the sequence length announced by a lead byte, 0 for
// bytes that can never start a sequence.
func utf8LeadLength(c byte) int {
	switch {
	case c < 0x80:
		return 1
	case c < 0xC2:
		return 0
	case c < 0xE0:
		return 2
	case c < 0xF0:
		return 3
	case c < 0xF5:
		return 4
	default:
		return 0
	}
}

// utf8SecondFits reports whether the continuation byte c may follow lead.
func utf8SecondFits(lead, c byte, surrogates bool) bool {
	switch lead {
	case 0xE0:
		return c >= 0xA0
	case 0xED:
		return surrogates || c <= 0x9F
	case 0xF0:
		return c >= 0x90
	case 0xF4:
		return c <= 0x8F
	default:
		return true
	}
}

// utf8Step decodes the sequence starting at b[i], i < len(b).
//
// A rejected sequence spans its maximal valid prefix (at least one byte); a
// sequence cut off by the end of b spans every remaining byte and reports how
// many bytes are missing.
func utf8Step(b []byte, i int, classes *[256]uint8) (cp int32, n int, st LengthStatus, missing int) {
	state := uint8(utf8Accept)
	var v uint32
	for j := i; j < len(b); j++ {
		c := b[j]
		t := classes[c]
		if state != utf8Accept {
			v = uint32(c&0x3F) | v<<6
		} else {
			v = uint32(0xFF>>t) & uint32(c)
		}
		state = utf8Transitions[state+t]
		switch state {
		case utf8Accept:
			return int32(v), j - i + 1, LengthValid, 0
		case utf8Reject:
			return -1, max(j-i, 1), LengthInvalid, 0
		}
	}
	n = len(b) - i
	return -1, n, LengthIncomplete, utf8LeadLength(b[i]) - n
}

// Terminal states of the reverse machine.
const (
	revAccept     = iota // a well-formed sequence ends at end
	revReject            // the last byte stands alone, consume exactly one
	revIncomplete        // a truncated prefix, consume every byte examined
)

// utf8StepBack finds the sequence ending right before end, which must be a
// sequence boundary. It segments invalid input exactly like utf8Step does
// going forward: the machine walks back over at most three continuation bytes
// and then judges the lead it lands on.
func utf8StepBack(b []byte, end int, surrogates bool) (n int, st LengthStatus, missing int) {
	conts := 0
	for j := end - 1; j >= 0 && conts < 4; j-- {
		c := b[j]
		if isUTF8Continuation(c) {
			conts++
			continue
		}
		want := utf8LeadLength(c)
		state := revReject
		switch {
		case want == 0 || conts+1 > want:
		case conts > 0 && !utf8SecondFits(c, b[j+1], surrogates):
		case conts+1 == want:
			state = revAccept
		default:
			state = revIncomplete
		}
		switch state {
		case revAccept:
			return want, LengthValid, 0
		case revIncomplete:
			if end == len(b) {
				return conts + 1, LengthIncomplete, want - conts - 1
			}
			return conts + 1, LengthInvalid, 0
		}
		return 1, LengthInvalid, 0
	}
	return 1, LengthInvalid, 0
}

// utf8Classify scans b and returns its codepoint count and code range. The
// count of broken content follows the segmentation of utf8Step.
func utf8Classify(b []byte, classes *[256]uint8) (int, CodeRange) {
	i := 0
	for i < len(b) && b[i] < 0x80 {
		i++
	}
	if i == len(b) {
		return len(b), SevenBit
	}
	count := i
	state := uint8(utf8Accept)
	start := i
	for ; i < len(b); i++ {
		c := b[i]
		if !isUTF8Continuation(c) {
			count++
		}
		state = utf8Transitions[state+classes[c]]
		if state == utf8Reject {
			break
		}
	}
	if i == len(b) && state == utf8Accept {
		return count, ValidMultiByte
	}
	count = start
	for i = start; i < len(b); {
		_, n, _, _ := utf8Step(b, i, classes)
		i += n
		count++
	}
	return count, BrokenMultiByte
}
