package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/pyedit/internal/config"
)

func newProjectFs(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	files := map[string]string{
		"/proj/main.py":          "import os\nx = 1",
		"/proj/pkg/util.py":      "def f():\n    return None",
		"/proj/pkg/deep/mod.pyw": "# comment",
		"/proj/README.md":        "# readme",
	}
	for path, content := range files {
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
	}
	return fs
}

func TestExpandPaths(t *testing.T) {
	fs := newProjectFs(t)

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"literal", []string{"/proj/main.py"}, []string{"/proj/main.py"}},
		{"single level", []string{"/proj/*.py"}, []string{"/proj/main.py"}},
		{"recursive", []string{"/proj/**/*.py"}, []string{"/proj/main.py", "/proj/pkg/util.py"}},
		{"alternatives", []string{"/proj/**/*.{py,pyw}"}, []string{"/proj/main.py", "/proj/pkg/deep/mod.pyw", "/proj/pkg/util.py"}},
		{"dedupes across args", []string{"/proj/main.py", "/proj/*.py"}, []string{"/proj/main.py"}},
		{"keeps argument order", []string{"/proj/pkg/*.py", "/proj/main.py"}, []string{"/proj/pkg/util.py", "/proj/main.py"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := expandPaths(fs, tt.args)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestExpandPaths_Errors(t *testing.T) {
	fs := newProjectFs(t)

	_, err := expandPaths(fs, []string{"/proj/missing.py"})
	require.ErrorContains(t, err, "no files match")

	_, err = expandPaths(fs, []string{"/proj/*.go"})
	require.ErrorContains(t, err, "no files match")

	_, err = expandPaths(fs, []string{"/proj/[.py"})
	require.ErrorContains(t, err, "invalid pattern")
}

func TestHighlightFiles_SingleFile(t *testing.T) {
	fs := newProjectFs(t)
	var buf bytes.Buffer

	err := highlightFiles(context.Background(), &buf, fs, []string{"/proj/main.py"}, config.Defaults(), highlightOptions{})
	require.NoError(t, err)
	require.Equal(t, "import os\nx = 1\n", buf.String())
}

func TestHighlightFiles_LineNumbersAndHeaders(t *testing.T) {
	fs := newProjectFs(t)
	var buf bytes.Buffer

	paths := []string{"/proj/main.py", "/proj/pkg/util.py"}
	err := highlightFiles(context.Background(), &buf, fs, paths, config.Defaults(), highlightOptions{lineNumbers: true})
	require.NoError(t, err)
	require.Equal(t,
		"==> /proj/main.py <==\n"+
			"1 │ import os\n"+
			"2 │ x = 1\n"+
			"\n"+
			"==> /proj/pkg/util.py <==\n"+
			"1 │ def f():\n"+
			"2 │     return None\n",
		buf.String())
}

func TestHighlightFiles_Spans(t *testing.T) {
	fs := newProjectFs(t)
	var buf bytes.Buffer

	err := highlightFiles(context.Background(), &buf, fs, []string{"/proj/main.py"}, config.Defaults(), highlightOptions{spans: true})
	require.NoError(t, err)
	require.Equal(t, "1:0-6 keyword\n2:4-5 number\n", buf.String())
}

func TestHighlightFiles_RejectsNonPython(t *testing.T) {
	fs := newProjectFs(t)
	var buf bytes.Buffer

	err := highlightFiles(context.Background(), &buf, fs, []string{"/proj/README.md"}, config.Defaults(), highlightOptions{})
	require.Error(t, err)

	buf.Reset()
	err = highlightFiles(context.Background(), &buf, fs, []string{"/proj/README.md"}, config.Defaults(), highlightOptions{force: true})
	require.NoError(t, err)
	require.Equal(t, "# readme\n", buf.String())
}
