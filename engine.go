package engine

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// Engine bundles configuration shared by many operations: the external codec,
// a cache of compiled matcher sets, the cancellation poll interval and a
// logger. An Engine is safe for concurrent use.
type Engine struct {
	opts   Options
	cache  *matcherCache
	logger *slog.Logger
}

// NewEngine validates opts and creates an engine.
func NewEngine(opts Options) (*Engine, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	level, _ := parseLevel(opts.LogLevel)
	w := opts.LogWriter
	if w == nil {
		w = os.Stderr
	}
	return &Engine{
		opts:   opts,
		cache:  newMatcherCache(opts.CacheLimit),
		logger: slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})),
	}, nil
}

// Options returns the options the engine was created with.
func (e *Engine) Options() Options { return e.opts }

// Compile is like the package-level Compile, memoized by encoding and ranges.
func (e *Engine) Compile(set RangeSet, enc Encoding) (*MatcherSet, error) {
	key := appendCacheKey(make([]byte, 0, 1+4*len(set.r)), set, enc)
	if ms, ok := e.cache.get(key); ok {
		return ms, nil
	}

	ms, err := Compile(set, enc)
	if err != nil {
		e.logger.Debug("compile failed", "encoding", enc, "ranges", set.Len(), "error", err)
		return nil, err
	}
	if e.logger.Enabled(context.Background(), slog.LevelDebug) {
		e.logger.Debug("compiled matcher set", "encoding", enc, "ranges", set.Len(), "matchers", describeMatchers(ms))
	}
	if e.cache.put(key, ms) {
		e.logger.Debug("matcher cache full, dropped", "limit", e.opts.CacheLimit)
	}
	return ms, nil
}

// describeMatchers lists the distinct matchers of ms, most restrictive first.
func describeMatchers(ms *MatcherSet) string {
	var b strings.Builder
	var prev *Matcher
	for _, m := range ms.matchers {
		if m == prev {
			continue
		}
		if prev != nil {
			b.WriteByte(' ')
		}
		b.WriteString(m.String())
		prev = m
	}
	return b.String()
}

// Classify is like the package-level Classify but also handles External.
func (e *Engine) Classify(buf Buffer, enc Encoding) (int, CodeRange) {
	return classify(buf, enc, e.opts.External)
}

// DecodeAt is like the package-level DecodeAt but also handles External.
func (e *Engine) DecodeAt(buf Buffer, enc Encoding, i int, policy ErrorPolicy) (int32, int) {
	return decodeAt(buf, enc, i, policy, e.opts.External)
}

// CodepointLengthAt is like the package-level CodepointLengthAt but also
// handles External.
func (e *Engine) CodepointLengthAt(buf Buffer, enc Encoding, i int, policy ErrorPolicy) LengthResult {
	return codepointLengthAt(buf, enc, i, policy, e.opts.External)
}

// ClassifyContext classifies buf in chunks of about PollInterval units and
// checks ctx between chunks. Chunks end on codepoint boundaries, so the
// merged result equals Classify's.
func (e *Engine) ClassifyContext(ctx context.Context, buf Buffer, enc Encoding) (int, CodeRange, error) {
	if enc == External {
		n, cr := e.Classify(buf, enc)
		return n, cr, ctx.Err()
	}
	mustStride(buf, enc)

	total, cr := 0, SevenBit
	n := buf.Len()
	for from := 0; ; {
		if err := ctx.Err(); err != nil {
			return 0, 0, err
		}
		to := chunkEnd(buf, enc, from, e.opts.PollInterval)
		count, chunk := classify(buf.Slice(from, to), enc, nil)
		total += count
		cr = CommonCodeRange(cr, chunk)
		if to == n {
			return total, cr, nil
		}
		from = to
	}
}

// Scan is like the package-level Scan.
func (e *Engine) Scan(ms *MatcherSet, buf Buffer, cr CodeRange, from, to int) (int, bool) {
	return Scan(ms, buf, cr, from, to)
}

// ScanContext is Scan in chunks of about PollInterval units, checking ctx
// between chunks.
func (e *Engine) ScanContext(ctx context.Context, ms *MatcherSet, buf Buffer, cr CodeRange, from, to int) (int, bool, error) {
	for from < to {
		if err := ctx.Err(); err != nil {
			return -1, false, err
		}
		end := min(chunkEnd(buf, ms.enc, from, e.opts.PollInterval), to)
		if i, ok := Scan(ms, buf, cr, from, end); ok {
			return i, true, nil
		}
		from = end
	}
	return -1, false, ctx.Err()
}

// chunkEnd returns the first codepoint boundary at or after from+size. In
// UTF-8 a segment never extends over a byte that is not a continuation byte,
// and UTF-16 pairs are kept together.
func chunkEnd(buf Buffer, enc Encoding, from, size int) int {
	n := buf.Len()
	to := from + size
	if to >= n {
		return n
	}
	if !enc.isVariableWidth() {
		return to
	}
	switch enc {
	case UTF8:
		for to < n && isUTF8Continuation(buf.Data[to]) {
			to++
		}
	case UTF16:
		if buf.Stride == 1 && isHighSurrogate(buf.At(to-1)) && isLowSurrogate(buf.At(to)) {
			to++
		}
	}
	return to
}
