package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/zjrosen/pyedit/internal/highlight"
)

func TestDefaults_Valid(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, Validate(cfg))
	require.Equal(t, highlight.PresetClassic, cfg.Theme.Preset)
	require.Equal(t, highlight.DefaultToolkitPattern, cfg.Highlight.ToolkitPattern)
	require.Equal(t, highlight.DefaultMatchTimeout, cfg.Highlight.MatchTimeout)
	require.True(t, cfg.Watch.Enabled)
	require.False(t, cfg.Tracing.Enabled)
}

func TestValidateHighlight_BadToolkitPattern(t *testing.T) {
	h := Defaults().Highlight
	h.ToolkitPattern = `(Q`

	err := ValidateHighlight(h)
	require.Error(t, err)
	require.Contains(t, err.Error(), "highlight.toolkit_pattern")

	var perr *highlight.PatternError
	require.True(t, errors.As(err, &perr))
	require.Equal(t, highlight.CategoryToolkit, perr.Category)
}

func TestValidateHighlight_EmptyToolkitPatternAllowed(t *testing.T) {
	h := Defaults().Highlight
	h.ToolkitPattern = ""
	require.NoError(t, ValidateHighlight(h))
}

func TestValidateHighlight_NegativeDurations(t *testing.T) {
	h := Defaults().Highlight
	h.MatchTimeout = -time.Second
	h.CacheTTL = -time.Minute

	err := ValidateHighlight(h)
	require.Len(t, multierr.Errors(err), 2)
}

func TestValidateUI(t *testing.T) {
	for _, style := range []string{"", "dark", "light", "notty"} {
		require.NoError(t, ValidateUI(UIConfig{AboutStyle: style}), style)
	}
	err := ValidateUI(UIConfig{AboutStyle: "neon"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "ui.about_style")
}

func TestValidateWatch(t *testing.T) {
	require.NoError(t, ValidateWatch(WatchConfig{Debounce: 0}))
	require.Error(t, ValidateWatch(WatchConfig{Debounce: -time.Millisecond}))
}

func TestValidateTracing(t *testing.T) {
	tests := []struct {
		name    string
		tracing TracingConfig
		wantErr string
	}{
		{"defaults", Defaults().Tracing, ""},
		{"empty", TracingConfig{}, ""},
		{"stdout", TracingConfig{Enabled: true, Exporter: "stdout", SampleRate: 0.5}, ""},
		{"bad exporter", TracingConfig{Exporter: "zipkin"}, "tracing.exporter"},
		{"sample rate high", TracingConfig{SampleRate: 1.5}, "tracing.sample_rate"},
		{"sample rate negative", TracingConfig{SampleRate: -0.1}, "tracing.sample_rate"},
		{"otlp without endpoint", TracingConfig{Enabled: true, Exporter: "otlp"}, "tracing.otlp_endpoint"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTracing(tt.tracing)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Theme.Preset = "solarized"
	cfg.Highlight.ToolkitPattern = `[`
	cfg.Watch.Debounce = -1
	cfg.Tracing.Exporter = "zipkin"

	err := Validate(cfg)
	require.Len(t, multierr.Errors(err), 4)
	require.Contains(t, err.Error(), "theme.preset")
	require.Contains(t, err.Error(), "watch.debounce")
}

func TestRuleOptions(t *testing.T) {
	cfg := Defaults()
	cfg.Theme.Colors = map[string]string{"Keyword": "#123456"}
	cfg.Highlight.ToolkitPattern = `\bGtk\w+`

	opts, err := cfg.RuleOptions()
	require.NoError(t, err)
	table, err := highlight.BuildRules(opts...)
	require.NoError(t, err)

	kw := table.Style(highlight.CategoryKeyword)
	require.Equal(t, "#123456", kw.Foreground)
	require.True(t, kw.Bold, "overrides keep the preset's attributes")

	spans, _ := highlight.HighlightBlock(table, "GtkButton", highlight.StateNone)
	require.Equal(t, highlight.CategoryToolkit, highlight.CategoryAt(spans, 0))
}

func TestRuleOptions_InvalidColor(t *testing.T) {
	cfg := Defaults()
	cfg.Theme.Colors = map[string]string{"string": "yellow"}
	_, err := cfg.RuleOptions()
	require.Error(t, err)
	require.Contains(t, err.Error(), "theme.colors.string")
}

func TestDefaultConfigTemplate_Loads(t *testing.T) {
	cfg := loadConfigFromYAML(t, DefaultConfigTemplate())

	require.NoError(t, Validate(cfg))
	require.Equal(t, highlight.PresetClassic, cfg.Theme.Preset)
	require.Equal(t, highlight.DefaultToolkitPattern, cfg.Highlight.ToolkitPattern)
	require.Equal(t, 250*time.Millisecond, cfg.Highlight.MatchTimeout)
	require.Equal(t, 10*time.Minute, cfg.Highlight.CacheTTL)
	require.Equal(t, 100*time.Millisecond, cfg.Watch.Debounce)
	require.True(t, cfg.UI.LineNumbers)
}

func TestWriteDefaultConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "nested", "dir", "config.yaml")

	require.NoError(t, WriteDefaultConfig(configPath))

	data, err := os.ReadFile(configPath)
	require.NoError(t, err)
	require.Equal(t, DefaultConfigTemplate(), string(data))

	info, err := os.Stat(configPath)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestDefaultTracesFilePath(t *testing.T) {
	t.Setenv("HOME", "/home/someone")
	require.Equal(t, "/home/someone/.config/pyedit/traces/traces.jsonl", DefaultTracesFilePath())
}
