package cmd

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/zjrosen/pyedit/internal/config"
	"github.com/zjrosen/pyedit/internal/document"
	"github.com/zjrosen/pyedit/internal/flags"
	"github.com/zjrosen/pyedit/internal/render"
	"github.com/zjrosen/pyedit/internal/session"
)

var (
	hlLineNumbers bool
	hlSpans       bool
	hlPreset      string
	hlWidth       int
)

var highlightCmd = &cobra.Command{
	Use:   "highlight [paths/globs...]",
	Short: "Print files with syntax highlighting",
	Long: `Highlight Python files and print them to stdout.

Arguments are file paths or doublestar globs. Each match is printed in
order, preceded by a "==> path <==" header when more than one file
matches. Colors are only written when stdout is a terminal.

Examples:
  pyedit highlight main.py
  pyedit highlight 'src/**/*.py' --line-numbers
  pyedit highlight main.py --spans          # dump spans instead of text
  pyedit highlight main.py --preset dark`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := cfg
		if hlPreset != "" {
			c.Theme.Preset = hlPreset
			if err := config.ValidateTheme(c.Theme); err != nil {
				return err
			}
		}

		fs := afero.NewOsFs()
		paths, err := expandPaths(fs, args)
		if err != nil {
			return err
		}
		return highlightFiles(cmd.Context(), cmd.OutOrStdout(), fs, paths, c, highlightOptions{
			lineNumbers: hlLineNumbers,
			spans:       hlSpans,
			width:       hlWidth,
			force:       forceFlag,
		})
	},
}

func init() {
	rootCmd.AddCommand(highlightCmd)

	highlightCmd.Flags().BoolVarP(&hlLineNumbers, "line-numbers", "n", false, "prefix lines with their number")
	highlightCmd.Flags().BoolVar(&hlSpans, "spans", false, "print the highlight spans of each line instead of the text")
	highlightCmd.Flags().StringVar(&hlPreset, "preset", "", "style preset (overrides theme.preset)")
	highlightCmd.Flags().IntVarP(&hlWidth, "width", "w", 0, "truncate lines to this many columns")
}

// expandPaths resolves each argument as a doublestar pattern against fs.
// A pattern that matches no file is an error. Results keep argument order,
// sorted within each argument, without duplicates.
func expandPaths(fs afero.Fs, args []string) ([]string, error) {
	var out []string
	seen := make(map[string]bool)
	for _, arg := range args {
		if !doublestar.ValidatePattern(filepath.ToSlash(arg)) {
			return nil, fmt.Errorf("invalid pattern %q", arg)
		}
		base, pattern := doublestar.SplitPattern(filepath.ToSlash(arg))
		root, err := filepath.Abs(filepath.FromSlash(base))
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", base, err)
		}

		matches, err := doublestar.Glob(afero.NewIOFS(afero.NewBasePathFs(fs, root)), pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("expanding %q: %w", arg, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no files match %q", arg)
		}
		sort.Strings(matches)

		for _, m := range matches {
			p := filepath.Join(filepath.FromSlash(base), filepath.FromSlash(m))
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	return out, nil
}

type highlightOptions struct {
	lineNumbers bool
	spans       bool
	width       int
	force       bool
}

func highlightFiles(ctx context.Context, w io.Writer, fs afero.Fs, paths []string, c config.Config, opts highlightOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	r := render.New(w, render.WithLineNumbers(opts.lineNumbers), render.WithWidth(opts.width))

	for i, path := range paths {
		if len(paths) > 1 {
			if i > 0 {
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "==> %s <==\n", path)
		}

		s, err := session.Open(ctx, path, session.Options{
			Config: c,
			Flags:  flags.New(c.Flags),
			Fs:     fs,
			Force:  opts.force,
		})
		if err != nil {
			return err
		}

		err = s.View(func(d *document.Document) error {
			if opts.spans {
				return render.WriteSpans(w, d)
			}
			out, err := r.Document(d)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(w, out)
			return err
		})
		s.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	return nil
}
