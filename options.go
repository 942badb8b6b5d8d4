package engine

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Options configures an Engine. The JSON form only carries the scalar
// settings; collaborators are set in code.
type Options struct {
	// PollInterval is the number of units processed between two checks of
	// the context in ClassifyContext and ScanContext.
	PollInterval int `json:"poll_interval"`
	// CacheLimit bounds the number of compiled matcher sets kept by the
	// engine. Zero disables the cache.
	CacheLimit int `json:"cache_limit"`
	// LogLevel is one of debug, info, warn, error. Empty means info.
	LogLevel string `json:"log_level"`

	External  ExternalCodec `json:"-"`
	LogWriter io.Writer     `json:"-"` // defaults to os.Stderr
}

// DefaultOptions returns the options NewEngine uses for zero values.
func DefaultOptions() Options {
	return Options{
		PollInterval: 64 << 10,
		CacheLimit:   256,
		LogLevel:     "info",
	}
}

// LoadOptions parses options from raw JSON, or from the file at path when raw
// is empty. Unknown fields are rejected. Fields absent from the input keep
// their defaults.
func LoadOptions(path string, raw []byte) (Options, error) {
	opts := DefaultOptions()
	var r io.Reader
	switch {
	case len(raw) > 0:
		r = bytes.NewReader(raw)
	case path != "":
		f, err := os.Open(path)
		if err != nil {
			return opts, err
		}
		defer f.Close()
		r = f
	default:
		return opts, errors.New("engine: no options source provided")
	}
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&opts); err != nil {
		return opts, fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	return opts, opts.Validate()
}

// Validate checks the option bounds.
func (o Options) Validate() error {
	if o.PollInterval < 1 {
		return fmt.Errorf("%w: poll_interval must be >= 1, got %d", ErrInvalidOptions, o.PollInterval)
	}
	if o.CacheLimit < 0 {
		return fmt.Errorf("%w: cache_limit must be >= 0, got %d", ErrInvalidOptions, o.CacheLimit)
	}
	if _, ok := parseLevel(o.LogLevel); !ok {
		return fmt.Errorf("%w: unknown log_level %q", ErrInvalidOptions, o.LogLevel)
	}
	return nil
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, true
	case "", "info":
		return slog.LevelInfo, true
	case "warn":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}
