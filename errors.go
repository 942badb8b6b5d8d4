package engine

import "errors"

// Construction errors. All of them are returned wrapped with the offending
// values, test with errors.Is.
var (
	// ErrMalformedRanges: the flattened [lo, hi] list is odd-length, unsorted,
	// overlapping, adjacent-unmerged or has lo > hi.
	ErrMalformedRanges = errors.New("malformed codepoint ranges")
	// ErrOutOfDomain: a range reaches outside the codepoints the target
	// encoding can represent.
	ErrOutOfDomain = errors.New("codepoint out of encoding domain")
	// ErrUnsupportedEncoding: the operation is not available for the encoding.
	ErrUnsupportedEncoding = errors.New("unsupported encoding")
	// ErrInvalidStride: stride is not 0, 1 or 2, or not allowed for the encoding.
	ErrInvalidStride = errors.New("invalid stride")
	// ErrInvalidOptions: configuration failed validation.
	ErrInvalidOptions = errors.New("invalid options")
)
