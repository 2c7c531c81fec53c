// Package config holds pyedit's configuration types, defaults and
// validation. Values are loaded by viper in cmd/root.go and decoded into
// Config through mapstructure tags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/multierr"

	"github.com/zjrosen/pyedit/internal/highlight"
	"github.com/zjrosen/pyedit/internal/log"
)

// Config holds all configuration options for pyedit.
type Config struct {
	Theme     ThemeConfig     `mapstructure:"theme"`
	Highlight HighlightConfig `mapstructure:"highlight"`
	UI        UIConfig        `mapstructure:"ui"`
	Watch     WatchConfig     `mapstructure:"watch"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	Flags     map[string]bool `mapstructure:"flags"`
}

// ThemeConfig selects a style preset and overrides category colors.
type ThemeConfig struct {
	// Preset is the base style set: "classic" (default) or "dark".
	Preset string `mapstructure:"preset"`

	// Colors maps a category name ("keyword", "string", ...) to a
	// "#RRGGBB" foreground that replaces the preset's.
	Colors map[string]string `mapstructure:"colors"`
}

// HighlightConfig tunes the rule table and the span cache.
type HighlightConfig struct {
	// ToolkitPattern replaces the pattern for host-API identifiers.
	// Empty disables the toolkit rule.
	ToolkitPattern string `mapstructure:"toolkit_pattern"`

	// MatchTimeout bounds a single regex evaluation. 0 disables it.
	MatchTimeout time.Duration `mapstructure:"match_timeout"`

	// CacheTTL is how long an unused block result stays cached when the
	// span-cache flag is on.
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// UIConfig holds viewer options.
type UIConfig struct {
	LineNumbers bool   `mapstructure:"line_numbers"`
	AboutStyle  string `mapstructure:"about_style"` // glamour style: "dark" (default), "light", "notty"
}

// WatchConfig controls live reload of the open file.
type WatchConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Debounce time.Duration `mapstructure:"debounce"`
}

// TracingConfig holds OpenTelemetry tracing options.
type TracingConfig struct {
	// Enabled controls whether tracing is active. Default: false
	Enabled bool `mapstructure:"enabled"`

	// Exporter selects the backend: "none", "file", "stdout", "otlp".
	Exporter string `mapstructure:"exporter"`

	// FilePath is the output file for the "file" exporter.
	FilePath string `mapstructure:"file_path"`

	// OTLPEndpoint is the collector endpoint for the "otlp" exporter.
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`

	// SampleRate is the fraction of passes traced, 0.0 to 1.0.
	SampleRate float64 `mapstructure:"sample_rate"`
}

// DefaultTracesFilePath returns ~/.config/pyedit/traces/traces.jsonl, or
// "" when the home directory is unknown.
func DefaultTracesFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "pyedit", "traces", "traces.jsonl")
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		Theme: ThemeConfig{
			Preset: highlight.PresetClassic,
		},
		Highlight: HighlightConfig{
			ToolkitPattern: highlight.DefaultToolkitPattern,
			MatchTimeout:   highlight.DefaultMatchTimeout,
			CacheTTL:       10 * time.Minute,
		},
		UI: UIConfig{
			LineNumbers: true,
			AboutStyle:  "dark",
		},
		Watch: WatchConfig{
			Enabled:  true,
			Debounce: 100 * time.Millisecond,
		},
		Tracing: TracingConfig{
			Enabled:      false,
			Exporter:     "file",
			FilePath:     "",
			OTLPEndpoint: "localhost:4317",
			SampleRate:   1.0,
		},
	}
}

// StyleOverrides converts Theme.Colors into highlight style overrides on
// top of the preset.
func (c Config) StyleOverrides() (map[highlight.Category]highlight.StyleDescriptor, error) {
	base, err := highlight.PresetStyles(c.preset())
	if err != nil {
		return nil, err
	}
	out := make(map[highlight.Category]highlight.StyleDescriptor, len(c.Theme.Colors))
	for name, color := range c.Theme.Colors {
		cat, err := highlight.ParseCategory(strings.ToLower(name))
		if err != nil {
			return nil, fmt.Errorf("theme.colors: %w", err)
		}
		if !highlight.ValidColor(color) {
			return nil, fmt.Errorf("theme.colors.%s: invalid color %q (want #RRGGBB)", name, color)
		}
		s := base[cat]
		s.Foreground = color
		out[cat] = s
	}
	return out, nil
}

func (c Config) preset() string {
	if c.Theme.Preset == "" {
		return highlight.PresetClassic
	}
	return c.Theme.Preset
}

// RuleOptions translates the theme and highlight sections into options
// for highlight.BuildRules.
func (c Config) RuleOptions() ([]highlight.Option, error) {
	styles, err := c.StyleOverrides()
	if err != nil {
		return nil, err
	}
	return []highlight.Option{
		highlight.WithPreset(c.preset()),
		highlight.WithStyles(styles),
		highlight.WithToolkitPattern(c.Highlight.ToolkitPattern),
		highlight.WithMatchTimeout(c.Highlight.MatchTimeout),
	}, nil
}

// Validate checks every section and reports all problems at once.
func Validate(c Config) error {
	return multierr.Combine(
		ValidateTheme(c.Theme),
		ValidateHighlight(c.Highlight),
		ValidateUI(c.UI),
		ValidateWatch(c.Watch),
		ValidateTracing(c.Tracing),
	)
}

// ValidateTheme checks the preset name and every color override.
func ValidateTheme(theme ThemeConfig) error {
	var err error
	if theme.Preset != "" {
		if _, perr := highlight.PresetStyles(theme.Preset); perr != nil {
			err = multierr.Append(err, fmt.Errorf("theme.preset must be one of %s, got %q",
				strings.Join(highlight.Presets(), ", "), theme.Preset))
		}
	}

	names := make([]string, 0, len(theme.Colors))
	for name := range theme.Colors {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, cerr := highlight.ParseCategory(strings.ToLower(name)); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("theme.colors: %w", cerr))
			continue
		}
		if color := theme.Colors[name]; !highlight.ValidColor(color) {
			err = multierr.Append(err, fmt.Errorf("theme.colors.%s: invalid color %q (want #RRGGBB)", name, color))
		}
	}
	return err
}

// ValidateHighlight compiles the toolkit pattern so a bad pattern fails at
// load time. The returned error wraps *highlight.PatternError.
func ValidateHighlight(h HighlightConfig) error {
	var err error
	if h.MatchTimeout < 0 {
		err = multierr.Append(err, fmt.Errorf("highlight.match_timeout must not be negative, got %s", h.MatchTimeout))
	}
	if h.CacheTTL < 0 {
		err = multierr.Append(err, fmt.Errorf("highlight.cache_ttl must not be negative, got %s", h.CacheTTL))
	}
	if _, berr := highlight.BuildRules(highlight.WithToolkitPattern(h.ToolkitPattern)); berr != nil {
		err = multierr.Append(err, fmt.Errorf("highlight.toolkit_pattern: %w", berr))
	}
	return err
}

// ValidateUI checks the about box style.
func ValidateUI(ui UIConfig) error {
	switch ui.AboutStyle {
	case "", "dark", "light", "notty":
		return nil
	default:
		return fmt.Errorf("ui.about_style must be \"dark\", \"light\", or \"notty\", got %q", ui.AboutStyle)
	}
}

// ValidateWatch checks the reload debounce.
func ValidateWatch(w WatchConfig) error {
	if w.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative, got %s", w.Debounce)
	}
	return nil
}

// ValidateTracing checks tracing configuration for errors.
// Returns nil if the configuration is valid (empty values use defaults).
func ValidateTracing(tracing TracingConfig) error {
	var err error
	if tracing.SampleRate < 0.0 || tracing.SampleRate > 1.0 {
		err = multierr.Append(err, fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", tracing.SampleRate))
	}

	switch tracing.Exporter {
	case "", "none", "file", "stdout", "otlp":
	default:
		err = multierr.Append(err, fmt.Errorf("tracing.exporter must be \"none\", \"file\", \"stdout\", or \"otlp\", got %q", tracing.Exporter))
	}

	if tracing.Enabled && tracing.Exporter == "otlp" && tracing.OTLPEndpoint == "" {
		err = multierr.Append(err, fmt.Errorf("tracing.otlp_endpoint is required when exporter is \"otlp\""))
	}
	return err
}

// DefaultConfigTemplate returns the default config as a YAML string with comments.
func DefaultConfigTemplate() string {
	return `# pyedit configuration

# Highlight styles
theme:
  # Base style set: classic (default) or dark
  preset: classic
  #
  # Override the foreground of individual categories:
  # colors:
  #   keyword: "#000080"
  #   string: "#808000"
  #   comment: "#007F00"
  #
  # Categories: normal, keyword, builtin, constant, decorator, comment,
  #             string, number, error, toolkit

highlight:
  # Pattern for host toolkit identifiers (painted as "toolkit").
  # Empty disables the rule.
  toolkit_pattern: '\bPyQt4\b|\bQt?[A-Z][a-z]\w+\b'
  match_timeout: 250ms   # Per-pattern evaluation limit
  cache_ttl: 10m         # Span cache lifetime (flags.span-cache)

# Viewer settings
ui:
  line_numbers: true
  about_style: dark      # dark, light, or notty

# Reload the open file when it changes on disk
watch:
  enabled: true
  debounce: 100ms

# OpenTelemetry tracing of re-highlight passes
# tracing:
#   enabled: false
#   exporter: file                 # none, file, stdout, otlp
#   file_path: ~/.config/pyedit/traces/traces.jsonl
#   otlp_endpoint: localhost:4317
#   sample_rate: 1.0

# Feature flags
# flags:
#   full-rehighlight: false  # Repaint the whole document on every edit
#   span-cache: false        # Memoize block results across reloads
`
}

// WriteDefaultConfig creates a config file at the given path with default settings and comments.
// Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}
