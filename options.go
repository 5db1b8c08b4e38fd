package xlpatch

import (
	"log/slog"
	"maps"
)

// Options holds configuration for the Editor.
type Options struct {
	logger      *slog.Logger
	host        HostBridge
	tempDir     string
	palette     map[string]string
	placeholder string
	repair      bool
}

func defaultOptions() *Options {
	return &Options{
		palette:     maps.Clone(DefaultPalette),
		placeholder: placeholderColumnName,
		repair:      true,
	}
}

// Option configures the Editor.
type Option func(*Options)

// WithLogger sets the diagnostic logger. Strategies, steps and skipped
// refinements are reported there; by default nothing is logged.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) { o.logger = logger }
}

// WithHostBridge injects the host spreadsheet application capability.
func WithHostBridge(bridge HostBridge) Option {
	return func(o *Options) { o.host = bridge }
}

// WithTempDir sets the parent directory for per-request scratch space
// (default: os.TempDir()).
func WithTempDir(dir string) Option {
	return func(o *Options) { o.tempDir = dir }
}

// WithHighlightPalette adds or overrides named highlight colors ("RRGGBB").
func WithHighlightPalette(palette map[string]string) Option {
	return func(o *Options) { maps.Copy(o.palette, palette) }
}

// WithPlaceholderColumnName sets the fmt pattern used to name table columns
// without a header (default: "Column%d").
func WithPlaceholderColumnName(pattern string) Option {
	return func(o *Options) { o.placeholder = pattern }
}

// WithRepair controls the post-write repair pass (default: true).
func WithRepair(enabled bool) Option {
	return func(o *Options) { o.repair = enabled }
}
