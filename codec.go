package engine

import "fmt"

// ErrorHandling selects how undecodable input is represented.
type ErrorHandling uint8

const (
	// BestEffort substitutes U+FFFD ('?' for non-Unicode codecs) and always
	// advances by at least one unit.
	BestEffort ErrorHandling = iota
	// ReturnNegative yields -1 and leaves the advance to the caller.
	ReturnNegative
)

// ErrorHandler replaces an undecodable sequence of length units starting at
// index with an explicit codepoint and consumed length. The consumed length
// must be positive and stay inside buf; anything else is a programming error
// and panics.
type ErrorHandler func(buf Buffer, enc Encoding, index, length int) (codepoint int32, consumed int)

// ErrorPolicy bundles the error handling knobs of the decoder.
type ErrorPolicy struct {
	Handling ErrorHandling
	// AllowSurrogates accepts encoded surrogates in UTF-8 and lone surrogate
	// values in UTF-16 and UTF-32 as codepoints of their own.
	AllowSurrogates bool
	// Handler, if set, overrides Handling.
	Handler ErrorHandler
}

// LengthStatus tells how a codepoint length probe ended.
type LengthStatus uint8

const (
	LengthValid LengthStatus = iota
	// LengthInvalid: the units do not form a codepoint.
	LengthInvalid
	// LengthIncomplete: a valid prefix was cut off by the end of the buffer.
	LengthIncomplete
)

func (s LengthStatus) String() string {
	switch s {
	case LengthValid:
		return "valid"
	case LengthInvalid:
		return "invalid"
	case LengthIncomplete:
		return "incomplete"
	default:
		return fmt.Sprintf("LengthStatus(%d)", uint8(s))
	}
}

// LengthResult is the outcome of a length probe. Length is the number of
// units to step over and is always at least one. Missing counts the units a
// LengthIncomplete sequence lacks.
type LengthResult struct {
	Length  int
	Status  LengthStatus
	Missing int
}

// ExternalCodec decodes encodings the engine does not know. Decode returns a
// negative codepoint for undecodable input.
type ExternalCodec interface {
	Classify(buf Buffer) (codepoints int, cr CodeRange)
	DecodeAt(buf Buffer, index int) (codepoint int32, length int)
}

func isSurrogate(u uint32) bool     { return u>>11 == 0x1B }
func isHighSurrogate(u uint32) bool { return u>>10 == 0x36 }
func isLowSurrogate(u uint32) bool  { return u>>10 == 0x37 }

func combineSurrogates(hi, lo uint32) int32 {
	return int32((hi-0xD800)<<10 + (lo - 0xDC00) + 0x10000)
}

func mustStride(buf Buffer, enc Encoding) {
	if err := enc.CheckStride(buf.Stride); err != nil {
		panic("engine: " + err.Error())
	}
}

func mustExternal(ext ExternalCodec) ExternalCodec {
	if ext == nil {
		panic(fmt.Errorf("engine: %w: no external codec registered", ErrUnsupportedEncoding))
	}
	return ext
}

// Classify scans buf and returns its codepoint count together with the most
// restrictive code range that accurately describes it.
func Classify(buf Buffer, enc Encoding) (int, CodeRange) {
	return classify(buf, enc, nil)
}

func classify(buf Buffer, enc Encoding, ext ExternalCodec) (int, CodeRange) {
	if enc == External {
		return mustExternal(ext).Classify(buf)
	}
	mustStride(buf, enc)
	switch enc {
	case ASCII:
		if maxByte(buf.Data) > 0x7F {
			return len(buf.Data), Broken
		}
		return len(buf.Data), SevenBit
	case Latin1:
		if maxByte(buf.Data) > 0x7F {
			return len(buf.Data), EightBit
		}
		return len(buf.Data), SevenBit
	case Bytes:
		if maxByte(buf.Data) > 0x7F {
			return len(buf.Data), Valid
		}
		return len(buf.Data), SevenBit
	case UTF8:
		return utf8Classify(buf.Data, &utf8Classes)
	case UTF16:
		return classifyUTF16(buf)
	default:
		return buf.Len(), classifyUTF32(buf)
	}
}

func maxByte(b []byte) byte {
	var m byte
	for _, c := range b {
		m |= c
	}
	return m
}

// classifyUnits runs the fixed-width stages and returns the index of the
// first unit above SixteenBit, or the final range if there is none.
func classifyUnits(buf Buffer) (int, CodeRange) {
	n := buf.Len()
	if buf.Stride == 0 {
		if maxByte(buf.Data) > 0x7F {
			return n, EightBit
		}
		return n, SevenBit
	}
	i := 0
	for ; i < n && buf.At(i) <= 0x7F; i++ {
	}
	if i == n {
		return n, SevenBit
	}
	for ; i < n && buf.At(i) <= 0xFF; i++ {
	}
	if i == n {
		return n, EightBit
	}
	for ; i < n; i++ {
		if u := buf.At(i); u > 0xFFFF || isSurrogate(u) {
			return i, Valid
		}
	}
	return n, SixteenBit
}

func classifyUTF16(buf Buffer) (int, CodeRange) {
	n := buf.Len()
	i, cr := classifyUnits(buf)
	if i == n {
		return n, cr
	}
	count := n
	cr = ValidMultiByte
	for ; i < n; i++ {
		u := buf.At(i)
		if !isSurrogate(u) {
			continue
		}
		if isHighSurrogate(u) && i+1 < n && isLowSurrogate(buf.At(i+1)) {
			i++
			count--
			continue
		}
		cr = BrokenMultiByte
	}
	return count, cr
}

func classifyUTF32(buf Buffer) CodeRange {
	n := buf.Len()
	i, cr := classifyUnits(buf)
	if i == n {
		return cr
	}
	for ; i < n; i++ {
		if u := buf.At(i); u > 0x10FFFF || isSurrogate(u) {
			return Broken
		}
	}
	return Valid
}

// DecodeAt decodes the codepoint starting at raw index i and returns it with
// the number of units it spans. Undecodable input is resolved by policy.
func DecodeAt(buf Buffer, enc Encoding, i int, policy ErrorPolicy) (int32, int) {
	return decodeAt(buf, enc, i, policy, nil)
}

func decodeAt(buf Buffer, enc Encoding, i int, policy ErrorPolicy, ext ExternalCodec) (int32, int) {
	if enc != External {
		mustStride(buf, enc)
	}
	switch enc {
	case ASCII:
		if u := buf.Data[i]; u < 0x80 {
			return int32(u), 1
		}
		return policy.invalid(buf, enc, i, 1)
	case Latin1, Bytes:
		return int32(buf.Data[i]), 1
	case UTF8:
		cp, n, st, _ := utf8Step(buf.Data, i, utf8ClassTable(policy.AllowSurrogates))
		if st == LengthValid {
			return cp, n
		}
		return policy.invalid(buf, enc, i, n)
	case UTF16:
		u := buf.At(i)
		if buf.Stride == 0 || !isSurrogate(u) {
			return int32(u), 1
		}
		if isHighSurrogate(u) && i+1 < buf.Len() {
			if lo := buf.At(i + 1); isLowSurrogate(lo) {
				return combineSurrogates(u, lo), 2
			}
		}
		if policy.AllowSurrogates {
			return int32(u), 1
		}
		return policy.invalid(buf, enc, i, 1)
	case UTF32:
		u := buf.At(i)
		if u > 0x10FFFF || isSurrogate(u) && !policy.AllowSurrogates {
			return policy.invalid(buf, enc, i, 1)
		}
		return int32(u), 1
	case External:
		cp, n := mustExternal(ext).DecodeAt(buf, i)
		if cp < 0 {
			return policy.invalid(buf, enc, i, max(n, 1))
		}
		return cp, n
	default:
		panic(fmt.Errorf("engine: %w: %s", ErrUnsupportedEncoding, enc))
	}
}

// DecodeValidAt is the fast path of DecodeAt for content classified as
// valid: continuation bytes and low surrogates are assumed to be present.
func DecodeValidAt(buf Buffer, enc Encoding, i int) (int32, int) {
	switch enc {
	case UTF8:
		return decodeValidUTF8(buf.Data[i:])
	case UTF16:
		u := buf.At(i)
		if buf.Stride == 1 && isHighSurrogate(u) {
			return combineSurrogates(u, buf.At(i+1)), 2
		}
		return int32(u), 1
	default:
		return int32(buf.At(i)), 1
	}
}

func (p ErrorPolicy) invalid(buf Buffer, enc Encoding, i, n int) (int32, int) {
	if p.Handler != nil {
		cp, consumed := p.Handler(buf, enc, i, n)
		checkConsumed(buf, i, consumed)
		return cp, consumed
	}
	if p.Handling == ReturnNegative {
		return -1, n
	}
	return enc.replacement(), n
}

func checkConsumed(buf Buffer, i, consumed int) {
	if consumed <= 0 || i+consumed > buf.Len() {
		panic(fmt.Sprintf("engine: decode error handler consumed %d units at index %d of %d", consumed, i, buf.Len()))
	}
}

// CodepointLengthAt probes the length of the codepoint starting at raw index
// i without materializing it.
func CodepointLengthAt(buf Buffer, enc Encoding, i int, policy ErrorPolicy) LengthResult {
	return codepointLengthAt(buf, enc, i, policy, nil)
}

func codepointLengthAt(buf Buffer, enc Encoding, i int, policy ErrorPolicy, ext ExternalCodec) LengthResult {
	if enc != External {
		mustStride(buf, enc)
	}
	var r LengthResult
	switch enc {
	case UTF8:
		_, n, st, missing := utf8Step(buf.Data, i, utf8ClassTable(policy.AllowSurrogates))
		r = LengthResult{Length: n, Status: st, Missing: missing}
	case UTF16:
		r = LengthResult{Length: 1}
		u := buf.At(i)
		if buf.Stride == 0 || !isSurrogate(u) {
			break
		}
		switch {
		case isHighSurrogate(u) && i+1 < buf.Len() && isLowSurrogate(buf.At(i+1)):
			r.Length = 2
		case policy.AllowSurrogates:
		case isHighSurrogate(u) && i+1 == buf.Len():
			r.Status, r.Missing = LengthIncomplete, 1
		default:
			r.Status = LengthInvalid
		}
	case External:
		cp, n := mustExternal(ext).DecodeAt(buf, i)
		r = LengthResult{Length: max(n, 1)}
		if cp < 0 {
			r.Status = LengthInvalid
		}
	default:
		r = LengthResult{Length: 1}
		probe := ErrorPolicy{Handling: ReturnNegative, AllowSurrogates: policy.AllowSurrogates}
		if cp, _ := decodeAt(buf, enc, i, probe, ext); cp < 0 {
			r.Status = LengthInvalid
		}
	}
	if r.Status != LengthValid && policy.Handler != nil {
		_, consumed := policy.Handler(buf, enc, i, r.Length)
		checkConsumed(buf, i, consumed)
		r.Length = consumed
	}
	return r
}

// CodepointLengthBefore probes the length of the codepoint that ends right
// before raw index end, which must be a codepoint boundary. Under the
// built-in error handling, iterating backwards visits exactly the segments
// CodepointLengthAt visits forwards. policy.Handler is not consulted: a
// handler resolves errors from their start, so its segments are only
// defined when walking forwards.
func CodepointLengthBefore(buf Buffer, enc Encoding, end int, policy ErrorPolicy) LengthResult {
	if enc != External {
		mustStride(buf, enc)
	}
	switch enc {
	case UTF8:
		n, st, missing := utf8StepBack(buf.Data, end, policy.AllowSurrogates)
		return LengthResult{Length: n, Status: st, Missing: missing}
	case UTF16:
		u := buf.At(end - 1)
		if buf.Stride == 0 || !isSurrogate(u) {
			return LengthResult{Length: 1}
		}
		if isLowSurrogate(u) && end >= 2 && isHighSurrogate(buf.At(end-2)) {
			return LengthResult{Length: 2}
		}
		if policy.AllowSurrogates {
			return LengthResult{Length: 1}
		}
		if isHighSurrogate(u) && end == buf.Len() {
			return LengthResult{Length: 1, Status: LengthIncomplete, Missing: 1}
		}
		return LengthResult{Length: 1, Status: LengthInvalid}
	case External:
		panic(fmt.Errorf("engine: %w: backward iteration over %s", ErrUnsupportedEncoding, enc))
	default:
		return codepointLengthAt(buf, enc, end-1, ErrorPolicy{AllowSurrogates: policy.AllowSurrogates}, nil)
	}
}
