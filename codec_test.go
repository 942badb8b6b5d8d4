package engine

import (
	"math/rand"
	"testing"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/unicode"
)

func utf16Buffer(units ...uint16) Buffer {
	data := make([]byte, 0, 2*len(units))
	for _, u := range units {
		data = append(data, byte(u), byte(u>>8))
	}
	return NewBuffer(data, 1)
}

func utf32Buffer(units ...uint32) Buffer {
	data := make([]byte, 0, 4*len(units))
	for _, u := range units {
		data = append(data, byte(u), byte(u>>8), byte(u>>16), byte(u>>24))
	}
	return NewBuffer(data, 2)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		buf   Buffer
		enc   Encoding
		count int
		cr    CodeRange
	}{
		{"ASCII empty", StringBuffer("", 0), ASCII, 0, SevenBit},
		{"ASCII", StringBuffer("hello", 0), ASCII, 5, SevenBit},
		{"ASCII high byte", StringBuffer("h\x80", 0), ASCII, 2, Broken},
		{"Latin-1", StringBuffer("caf\xe9", 0), Latin1, 4, EightBit},
		{"Bytes", StringBuffer("\xff\x00", 0), Bytes, 2, Valid},
		{"UTF-8 ASCII", StringBuffer("hello", 0), UTF8, 5, SevenBit},
		{"UTF-8 multibyte", StringBuffer("héllo 😀", 0), UTF8, 7, ValidMultiByte},
		{"UTF-8 overlong", StringBuffer("\xC0\x80", 0), UTF8, 2, BrokenMultiByte},
		{"UTF-8 truncated", StringBuffer("a\xE2\x82", 0), UTF8, 2, BrokenMultiByte},
		{"UTF-8 truncated mid-buffer", StringBuffer("\xE2\x82a", 0), UTF8, 2, BrokenMultiByte},
		{"UTF-8 encoded surrogate", StringBuffer("\xED\xA0\x80", 0), UTF8, 3, BrokenMultiByte},
		{"UTF-8 stray continuations", StringBuffer("\x80\x80", 0), UTF8, 2, BrokenMultiByte},
		{"UTF-16 compact 7bit", StringBuffer("abc", 0), UTF16, 3, SevenBit},
		{"UTF-16 compact 8bit", StringBuffer("caf\xe9", 0), UTF16, 4, EightBit},
		{"UTF-16 BMP", utf16Buffer('a', 0x263A), UTF16, 2, SixteenBit},
		{"UTF-16 pair", utf16Buffer('a', 0xD83D, 0xDE00), UTF16, 2, ValidMultiByte},
		{"UTF-16 lone high", utf16Buffer(0xD800, 'a'), UTF16, 2, BrokenMultiByte},
		{"UTF-16 lone low", utf16Buffer(0xDE00), UTF16, 1, BrokenMultiByte},
		{"UTF-16 reversed pair", utf16Buffer(0xDE00, 0xD83D), UTF16, 2, BrokenMultiByte},
		{"UTF-32 16bit", utf32Buffer('a', 0x263A), UTF32, 2, SixteenBit},
		{"UTF-32 astral", utf32Buffer(0x1F600), UTF32, 1, Valid},
		{"UTF-32 above Unicode", utf32Buffer(0x110000), UTF32, 1, Broken},
		{"UTF-32 surrogate", utf32Buffer('a', 0xD800), UTF32, 2, Broken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			count, cr := Classify(tt.buf, tt.enc)
			assert.Equal(t, tt.count, count)
			assert.Equal(t, tt.cr, cr, "got %s, want %s", cr, tt.cr)
		})
	}
}

func TestClassifyBadStride(t *testing.T) {
	assert.Panics(t, func() { Classify(NewBuffer([]byte{0, 0}, 1), UTF8) })
	assert.Panics(t, func() { Classify(NewBuffer(nil, 0), External) })
}

// TestClassifyUTF8AgainstStdlib checks validity and counts on random bytes
// drawn from an alphabet rich in lead and continuation bytes.
func TestClassifyUTF8AgainstStdlib(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 20000; i++ {
		b := randomUTF8ish(rng, rng.Intn(12))
		count, cr := Classify(NewBuffer(b, 0), UTF8)
		if utf8.Valid(b) {
			assert.NotEqual(t, Broken, cr.Ordinal(), "% x", b)
			assert.Equal(t, utf8.RuneCount(b), count, "% x", b)
		} else {
			assert.Equal(t, BrokenMultiByte, cr, "% x", b)
		}
	}
}

func TestClassifyUTF16AgainstOracle(t *testing.T) {
	enc := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder()
	for _, s := range []string{"plain", "naïve", "日本語", "emoji 😀 and 🎉", "\U0010FFFF"} {
		data, err := enc.Bytes([]byte(s))
		require.NoError(t, err)
		count, cr := Classify(NewBuffer(data, 1), UTF16)
		assert.Equal(t, utf8.RuneCountInString(s), count, s)
		assert.NotEqual(t, Broken, cr.Ordinal(), s)
	}
}

func TestDecodeAtMalformedUTF8(t *testing.T) {
	buf := StringBuffer("\xC0\x80", 0)

	_, cr := Classify(buf, UTF8)
	assert.Equal(t, Broken, cr.Ordinal())

	cp, n := DecodeAt(buf, UTF8, 0, ErrorPolicy{Handling: BestEffort})
	assert.Equal(t, int32(0xFFFD), cp)
	assert.Equal(t, 1, n)

	cp, n = DecodeAt(buf, UTF8, 0, ErrorPolicy{Handling: ReturnNegative})
	assert.Equal(t, int32(-1), cp)
	assert.Equal(t, 1, n)
}

func TestDecodeAt(t *testing.T) {
	strict := ErrorPolicy{}
	lenient := ErrorPolicy{AllowSurrogates: true}

	tests := []struct {
		name   string
		buf    Buffer
		enc    Encoding
		i      int
		policy ErrorPolicy
		cp     int32
		n      int
	}{
		{"ASCII", StringBuffer("a", 0), ASCII, 0, strict, 'a', 1},
		{"ASCII high byte", StringBuffer("\x80", 0), ASCII, 0, strict, 0xFFFD, 1},
		{"Latin-1", StringBuffer("\xe9", 0), Latin1, 0, strict, 0xE9, 1},
		{"UTF-8 two bytes", StringBuffer("aé", 0), UTF8, 1, strict, 'é', 2},
		{"UTF-8 four bytes", StringBuffer("😀", 0), UTF8, 0, strict, 0x1F600, 4},
		{"UTF-8 maximal subpart", StringBuffer("\xF0\x9F\x98a", 0), UTF8, 0, strict, 0xFFFD, 3},
		{"UTF-8 surrogate strict", StringBuffer("\xED\xA0\x80", 0), UTF8, 0, strict, 0xFFFD, 1},
		{"UTF-8 surrogate lenient", StringBuffer("\xED\xA0\x80", 0), UTF8, 0, lenient, 0xD800, 3},
		{"UTF-16 compact", StringBuffer("\xe9", 0), UTF16, 0, strict, 0xE9, 1},
		{"UTF-16 pair", utf16Buffer(0xD83D, 0xDE00), UTF16, 0, strict, 0x1F600, 2},
		{"UTF-16 low half", utf16Buffer(0xD83D, 0xDE00), UTF16, 1, strict, 0xFFFD, 1},
		{"UTF-16 lone high strict", utf16Buffer(0xD800), UTF16, 0, strict, 0xFFFD, 1},
		{"UTF-16 lone high lenient", utf16Buffer(0xD800), UTF16, 0, lenient, 0xD800, 1},
		{"UTF-32", utf32Buffer(0x1F600), UTF32, 0, strict, 0x1F600, 1},
		{"UTF-32 above Unicode", utf32Buffer(0x110000), UTF32, 0, lenient, 0xFFFD, 1},
		{"UTF-32 surrogate lenient", utf32Buffer(0xDFFF), UTF32, 0, lenient, 0xDFFF, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cp, n := DecodeAt(tt.buf, tt.enc, tt.i, tt.policy)
			assert.Equal(t, tt.cp, cp)
			assert.Equal(t, tt.n, n)
		})
	}
}

func TestDecodeAtHandler(t *testing.T) {
	buf := StringBuffer("a\xF0\x9F\x98b", 0)

	var gotIndex, gotLength int
	policy := ErrorPolicy{Handler: func(_ Buffer, enc Encoding, index, length int) (int32, int) {
		gotIndex, gotLength = index, length
		return '?', length
	}}
	cp, n := DecodeAt(buf, UTF8, 1, policy)
	assert.Equal(t, int32('?'), cp)
	assert.Equal(t, 3, n)
	assert.Equal(t, 1, gotIndex)
	assert.Equal(t, 3, gotLength)

	// a handler may consume more than the error, up to the end
	policy.Handler = func(b Buffer, _ Encoding, index, _ int) (int32, int) {
		return 0, b.Len() - index
	}
	_, n = DecodeAt(buf, UTF8, 1, policy)
	assert.Equal(t, 4, n)

	policy.Handler = func(Buffer, Encoding, int, int) (int32, int) { return 0, 0 }
	assert.Panics(t, func() { DecodeAt(buf, UTF8, 1, policy) })

	policy.Handler = func(Buffer, Encoding, int, int) (int32, int) { return 0, 10 }
	assert.Panics(t, func() { DecodeAt(buf, UTF8, 1, policy) })
}

func TestDecodeRoundTrip(t *testing.T) {
	for _, enc := range []Encoding{UTF8, UTF16, UTF32} {
		t.Run(enc.String(), func(t *testing.T) {
			for c := uint32(0); c <= MaxCodepoint; c++ {
				if isSurrogate(c) {
					continue
				}
				buf, err := Encode(c, enc)
				require.NoError(t, err)
				cp, n := DecodeAt(buf, enc, 0, ErrorPolicy{Handling: ReturnNegative})
				if cp != int32(c) || n != EncodedLength(c, enc) {
					t.Fatalf("%s: decoded %#x as (%#x, %d)", enc, c, cp, n)
				}
				if cp, n := DecodeValidAt(buf, enc, 0); cp != int32(c) || n != EncodedLength(c, enc) {
					t.Fatalf("%s: fast path decoded %#x as (%#x, %d)", enc, c, cp, n)
				}
			}
		})
	}
}

func TestCodepointLengthAt(t *testing.T) {
	tests := []struct {
		name     string
		buf      Buffer
		enc      Encoding
		i        int
		expected LengthResult
	}{
		{"UTF-8 valid", StringBuffer("😀", 0), UTF8, 0, LengthResult{Length: 4}},
		{"UTF-8 truncated at end", StringBuffer("\xE2\x82", 0), UTF8, 0, LengthResult{Length: 2, Status: LengthIncomplete, Missing: 1}},
		{"UTF-8 lone lead at end", StringBuffer("\xF0", 0), UTF8, 0, LengthResult{Length: 1, Status: LengthIncomplete, Missing: 3}},
		{"UTF-8 truncated mid-buffer", StringBuffer("\xE2\x82a", 0), UTF8, 0, LengthResult{Length: 2, Status: LengthInvalid}},
		{"UTF-8 overlong", StringBuffer("\xC0\x80", 0), UTF8, 0, LengthResult{Length: 1, Status: LengthInvalid}},
		{"UTF-8 invalid lead at end", StringBuffer("\xFF", 0), UTF8, 0, LengthResult{Length: 1, Status: LengthInvalid}},
		{"UTF-16 pair", utf16Buffer(0xD83D, 0xDE00), UTF16, 0, LengthResult{Length: 2}},
		{"UTF-16 high at end", utf16Buffer(0xD83D), UTF16, 0, LengthResult{Length: 1, Status: LengthIncomplete, Missing: 1}},
		{"UTF-16 unpaired high", utf16Buffer(0xD83D, 'a'), UTF16, 0, LengthResult{Length: 1, Status: LengthInvalid}},
		{"UTF-32 above Unicode", utf32Buffer(0x110000), UTF32, 0, LengthResult{Length: 1, Status: LengthInvalid}},
		{"ASCII high byte", StringBuffer("\x80", 0), ASCII, 0, LengthResult{Length: 1, Status: LengthInvalid}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, h := range []ErrorHandling{BestEffort, ReturnNegative} {
				got := CodepointLengthAt(tt.buf, tt.enc, tt.i, ErrorPolicy{Handling: h})
				if diff := cmp.Diff(tt.expected, got); diff != "" {
					t.Errorf("handling %d: mismatch (-want +got):\n%s", h, diff)
				}
			}
		})
	}
}

// segments walks buf forwards and backwards and returns both segmentations,
// the backward one reversed.
func segments(buf Buffer, enc Encoding, policy ErrorPolicy) (fwd, bwd []LengthResult) {
	n := buf.Len()
	for i := 0; i < n; {
		r := CodepointLengthAt(buf, enc, i, policy)
		fwd = append(fwd, r)
		i += r.Length
	}
	for end := n; end > 0; {
		r := CodepointLengthBefore(buf, enc, end, policy)
		bwd = append([]LengthResult{r}, bwd...)
		end -= r.Length
	}
	return fwd, bwd
}

func TestForwardBackwardSymmetry(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for _, surrogates := range []bool{false, true} {
		policy := ErrorPolicy{AllowSurrogates: surrogates}
		for i := 0; i < 20000; i++ {
			b := randomUTF8ish(rng, rng.Intn(10))
			fwd, bwd := segments(NewBuffer(b, 0), UTF8, policy)
			if diff := cmp.Diff(fwd, bwd); diff != "" {
				t.Fatalf("UTF-8 % x (surrogates %v): (-forward +backward):\n%s", b, surrogates, diff)
			}
			count, _ := Classify(NewBuffer(b, 0), UTF8)
			if !surrogates {
				assert.Len(t, fwd, count, "% x", b)
			}
		}
		for i := 0; i < 5000; i++ {
			units := make([]uint16, rng.Intn(8))
			for k := range units {
				units[k] = []uint16{'a', 0x263A, 0xD83D, 0xDE00, 0xDBFF, 0xDC00}[rng.Intn(6)]
			}
			buf := utf16Buffer(units...)
			fwd, bwd := segments(buf, UTF16, policy)
			if diff := cmp.Diff(fwd, bwd); diff != "" {
				t.Fatalf("UTF-16 %x (surrogates %v): (-forward +backward):\n%s", units, surrogates, diff)
			}
			count, _ := Classify(buf, UTF16)
			assert.Len(t, fwd, count, "%x", units)
		}
	}
}

func TestCodepointLengthBeforeIgnoresHandler(t *testing.T) {
	buf := StringBuffer("a\xF0\x9F\x98", 0)
	called := false
	policy := ErrorPolicy{Handler: func(b Buffer, _ Encoding, index, _ int) (int32, int) {
		called = true
		return 0, b.Len() - index
	}}

	r := CodepointLengthBefore(buf, UTF8, 4, policy)
	assert.False(t, called)
	assert.Equal(t, LengthResult{Length: 3, Status: LengthIncomplete, Missing: 1}, r)
	assert.Equal(t, CodepointLengthAt(buf, UTF8, 1, ErrorPolicy{}), r)
}

func TestDecodeAtRejectsWrongStride(t *testing.T) {
	tests := []struct {
		enc    Encoding
		stride int
	}{
		{ASCII, 1},
		{Latin1, 1},
		{Bytes, 2},
		{UTF8, 1},
	}

	for _, tt := range tests {
		t.Run(tt.enc.String(), func(t *testing.T) {
			buf := NewBuffer([]byte{'a', 0, 0, 0}, tt.stride)
			assert.Panics(t, func() { DecodeAt(buf, tt.enc, 0, ErrorPolicy{}) })
			assert.Panics(t, func() { CodepointLengthAt(buf, tt.enc, 0, ErrorPolicy{}) })
			assert.Panics(t, func() { CodepointLengthBefore(buf, tt.enc, 1, ErrorPolicy{}) })
		})
	}
}

func TestExternalCodecWithoutEngine(t *testing.T) {
	assert.Panics(t, func() { DecodeAt(StringBuffer("a", 0), External, 0, ErrorPolicy{}) })
	assert.Panics(t, func() { CodepointLengthBefore(StringBuffer("a", 0), External, 1, ErrorPolicy{}) })
}

// randomUTF8ish returns n bytes mixing ASCII, every kind of lead byte and
// continuation bytes around the boundaries the decoder distinguishes.
func randomUTF8ish(rng *rand.Rand, n int) []byte {
	alphabet := []byte{
		'a', 0x7F,
		0x80, 0x8F, 0x90, 0x9F, 0xA0, 0xBF,
		0xC0, 0xC1, 0xC2, 0xDF,
		0xE0, 0xE1, 0xED, 0xEF,
		0xF0, 0xF1, 0xF4, 0xF5, 0xFF,
	}
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[rng.Intn(len(alphabet))]
	}
	return b
}
