package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/zjrosen/pyedit/internal/config"
	"github.com/zjrosen/pyedit/internal/highlight"
)

var themeCmd = &cobra.Command{
	Use:   "theme",
	Short: "List or select highlight style presets",
}

var themeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List style presets (* marks the active one)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return listPresets(cmd.OutOrStdout(), cfg.Theme.Preset)
	},
}

var themeSetCmd = &cobra.Command{
	Use:   "set <preset>",
	Short: "Save a style preset to the config file",
	Long: `Save a style preset to the config file.

Color overrides under theme.colors are kept. Comments and other settings in
the file are preserved.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath()
		theme := config.ThemeConfig{Preset: args[0], Colors: cfg.Theme.Colors}
		if err := config.SaveTheme(path, theme); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "theme.preset = %s (%s)\n", args[0], path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(themeCmd)
	themeCmd.AddCommand(themeListCmd, themeSetCmd)
}

func listPresets(w io.Writer, active string) error {
	if active == "" {
		active = highlight.PresetClassic
	}
	for _, name := range highlight.Presets() {
		marker := " "
		if name == active {
			marker = "*"
		}
		if _, err := fmt.Fprintf(w, "%s %s\n", marker, name); err != nil {
			return err
		}
	}
	return nil
}
