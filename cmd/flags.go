package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/zjrosen/pyedit/internal/config"
	"github.com/zjrosen/pyedit/internal/flags"
)

var flagsCmd = &cobra.Command{
	Use:   "flags",
	Short: "Show or change feature flags",
}

var flagsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List feature flags and their state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return listFlags(cmd.OutOrStdout(), flags.New(cfg.Flags))
	},
}

var flagsSetCmd = &cobra.Command{
	Use:   "set <flag> <true|false>",
	Short: "Save a feature flag to the config file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !flags.IsKnown(args[0]) {
			return fmt.Errorf("unknown flag %q (known: %v)", args[0], flags.Known())
		}
		on, err := strconv.ParseBool(args[1])
		if err != nil {
			return fmt.Errorf("flag value: %w", err)
		}
		path := configPath()
		if err := config.SaveFlag(path, args[0], on); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "flags.%s = %t (%s)\n", args[0], on, path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(flagsCmd)
	flagsCmd.AddCommand(flagsListCmd, flagsSetCmd)
}

func listFlags(w io.Writer, r *flags.Registry) error {
	for _, name := range flags.Known() {
		if _, err := fmt.Fprintf(w, "%-18s %t\n", name, r.Enabled(name)); err != nil {
			return err
		}
	}
	return nil
}
