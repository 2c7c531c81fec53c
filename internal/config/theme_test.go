package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/pyedit/internal/highlight"
)

// TestThemeConfig_WithPreset tests loading a config file with a preset.
func TestThemeConfig_WithPreset(t *testing.T) {
	cfg := loadConfigFromYAML(t, `
theme:
  preset: dark
`)
	require.Equal(t, highlight.PresetDark, cfg.Theme.Preset)

	opts, err := cfg.RuleOptions()
	require.NoError(t, err)
	table, err := highlight.BuildRules(opts...)
	require.NoError(t, err)

	dark, err := highlight.PresetStyles(highlight.PresetDark)
	require.NoError(t, err)
	require.Equal(t, dark[highlight.CategoryString], table.Style(highlight.CategoryString))
}

func TestThemeConfig_WithColorOverridesFromYAML(t *testing.T) {
	cfg := loadConfigFromYAML(t, `
theme:
  colors:
    comment: "#AABBCC"
    number: "#010203"
`)
	require.Equal(t, "#AABBCC", cfg.Theme.Colors["comment"])

	overrides, err := cfg.StyleOverrides()
	require.NoError(t, err)
	require.Len(t, overrides, 2)
	require.Equal(t, "#010203", overrides[highlight.CategoryNumber].Foreground)
	require.True(t, overrides[highlight.CategoryComment].Italic)
}

func TestThemeConfig_InvalidPreset(t *testing.T) {
	err := ValidateTheme(ThemeConfig{Preset: "monokai"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "classic")
	require.Contains(t, err.Error(), `"monokai"`)
}

func TestThemeConfig_InvalidCategory(t *testing.T) {
	err := ValidateTheme(ThemeConfig{Colors: map[string]string{"pyqt": "#000000"}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "pyqt")
}

func TestThemeConfig_InvalidHexColor(t *testing.T) {
	err := ValidateTheme(ThemeConfig{Colors: map[string]string{"keyword": "#12"}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "theme.colors.keyword")
}

func TestThemeConfig_EmptyConfig(t *testing.T) {
	cfg := loadConfigFromYAML(t, "")
	require.NoError(t, ValidateTheme(cfg.Theme))

	opts, err := cfg.RuleOptions()
	require.NoError(t, err)
	table, err := highlight.BuildRules(opts...)
	require.NoError(t, err)
	require.Equal(t, highlight.Default().Styles(), table.Styles())
}

// loadConfigFromYAML is a helper to load config from YAML string.
func loadConfigFromYAML(t *testing.T, yaml string) Config {
	t.Helper()

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(yaml), 0644))

	v := viper.New()
	v.SetConfigFile(configPath)
	require.NoError(t, v.ReadInConfig())

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))
	return cfg
}
