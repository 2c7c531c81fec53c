package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/pyedit/internal/app"
	"github.com/zjrosen/pyedit/internal/config"
	"github.com/zjrosen/pyedit/internal/flags"
	"github.com/zjrosen/pyedit/internal/log"
	"github.com/zjrosen/pyedit/internal/session"
	"github.com/zjrosen/pyedit/internal/tracing"
)

func init() {
	// Query the terminal background before any Bubble Tea program starts so
	// the OSC 11 response cannot race with the input loop.
	// See: https://github.com/charmbracelet/bubbletea/issues/1036
	_ = lipgloss.HasDarkBackground()
}

var (
	version   = "dev"
	cfgFile   string
	cfg       config.Config
	debugFlag bool
	forceFlag bool
	noWatch   bool

	logCleanup func()
)

var rootCmd = &cobra.Command{
	Use:   "pyedit [file]",
	Short: "A terminal viewer with incremental Python syntax highlighting",
	Long: `Open a Python source file in a read-only terminal viewer.

Lines are highlighted with regular-expression rules (keywords, builtins,
constants, numbers, decorators, comments, strings and toolkit identifiers).
When the file changes on disk the difference is applied as edits and only
the affected lines, plus any lines whose triple-quoted string state
changed, are highlighted again.

Example:
  pyedit main.py
  pyedit --no-watch scripts/setup.pyw
  pyedit highlight 'src/**/*.py'`,
	Version:           version,
	Args:              cobra.MaximumNArgs(1),
	PersistentPreRunE: setup,
	PersistentPostRun: func(*cobra.Command, []string) {
		if logCleanup != nil {
			logCleanup()
		}
	},
	RunE: runApp,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ~/.config/pyedit/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&debugFlag, "debug", "d", false,
		"write a debug log (path from PYEDIT_LOG, default debug.log)")
	rootCmd.PersistentFlags().BoolVar(&forceFlag, "force", false,
		"open files without a .py or .pyw extension")
	rootCmd.Flags().BoolVar(&noWatch, "no-watch", false,
		"do not reload the file when it changes on disk")
}

// setDefaults registers config.Defaults with v so partial config files
// keep the remaining defaults.
func setDefaults(v *viper.Viper) {
	d := config.Defaults()
	v.SetDefault("theme.preset", d.Theme.Preset)
	v.SetDefault("highlight.toolkit_pattern", d.Highlight.ToolkitPattern)
	v.SetDefault("highlight.match_timeout", d.Highlight.MatchTimeout)
	v.SetDefault("highlight.cache_ttl", d.Highlight.CacheTTL)
	v.SetDefault("ui.line_numbers", d.UI.LineNumbers)
	v.SetDefault("ui.about_style", d.UI.AboutStyle)
	v.SetDefault("watch.enabled", d.Watch.Enabled)
	v.SetDefault("watch.debounce", d.Watch.Debounce)
	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.exporter", d.Tracing.Exporter)
	v.SetDefault("tracing.otlp_endpoint", d.Tracing.OTLPEndpoint)
	v.SetDefault("tracing.sample_rate", d.Tracing.SampleRate)
}

func userConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "pyedit", "config.yaml")
}

func initConfig() {
	setDefaults(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .pyedit/config.yaml (current directory)
		// 2. ~/.config/pyedit/config.yaml (user config)
		if _, err := os.Stat(".pyedit/config.yaml"); err == nil {
			viper.SetConfigFile(".pyedit/config.yaml")
		} else if p := userConfigPath(); p != "" {
			viper.AddConfigPath(filepath.Dir(p))
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			// First run: write the commented template to the user config.
			if p := userConfigPath(); p != "" {
				if writeErr := config.WriteDefaultConfig(p); writeErr == nil {
					viper.SetConfigFile(p)
					_ = viper.ReadInConfig()
				}
			}
		}
	}

	_ = viper.Unmarshal(&cfg)
}

// configPath is where theme and flag changes are saved.
func configPath() string {
	if p := viper.ConfigFileUsed(); p != "" {
		return p
	}
	return userConfigPath()
}

func setup(*cobra.Command, []string) error {
	if os.Getenv("PYEDIT_DEBUG") != "" || debugFlag {
		logPath := os.Getenv("PYEDIT_LOG")
		if logPath == "" {
			logPath = "debug.log"
		}
		cleanup, err := log.InitWithTeaLog(logPath, "pyedit")
		if err != nil {
			return fmt.Errorf("initializing logging: %w", err)
		}
		logCleanup = cleanup
		log.Info(log.CatConfig, "pyedit starting", "version", version, "config", viper.ConfigFileUsed())
	}

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// openSession opens path with the loaded configuration. The returned
// cleanup shuts down tracing.
func openSession(ctx context.Context, path string, c config.Config) (*session.Session, func(), error) {
	provider, err := tracing.NewProvider(c.Tracing)
	if err != nil {
		return nil, nil, fmt.Errorf("tracing: %w", err)
	}
	shutdown := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			log.ErrorErr(log.CatTrace, "Tracing shutdown failed", err)
		}
	}

	s, err := session.Open(ctx, path, session.Options{
		Config: c,
		Flags:  flags.New(c.Flags),
		Tracer: provider.Tracer(),
		Force:  forceFlag,
	})
	if err != nil {
		shutdown()
		return nil, nil, err
	}
	return s, shutdown, nil
}

func runApp(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return cmd.Help()
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s, shutdown, err := openSession(ctx, args[0], cfg)
	if err != nil {
		return err
	}
	defer shutdown()
	defer s.Close()

	if cfg.Watch.Enabled && !noWatch {
		if err := s.Watch(ctx); err != nil {
			// The viewer still works without live reload.
			log.Warn(log.CatWatcher, "Live reload unavailable", "path", args[0], "error", err)
		}
	}

	model := app.New(s, cfg)
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running program: %w", err)
	}
	return nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
