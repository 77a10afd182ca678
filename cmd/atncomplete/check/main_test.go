package check

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"
	"go.uber.org/multierr"
)

func setupTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func TestCheck(t *testing.T) {
	dir := setupTree(t, map[string]string{
		"good.blk":        "var a = 1;\n",
		"nested/bad.blk":  "var a = 1\nvar b = 2;\n",
		"nested/refs.blk": "var a = missing;\n",
		"readme.md":       "# not checked\n",
	})

	var out bytes.Buffer
	me := &Handler{dir: dir, patterns: []string{"**/*.blk"}, format: "text", fs: afero.NewOsFs(), out: &out}
	err := me.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrProblems))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], filepath.Join(dir, "nested", "bad.blk")+":2:1: error: "), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], filepath.Join(dir, "nested", "refs.blk")+":1:9: "), lines[1])
	assert.Contains(t, lines[1], "missing")
}

func TestCheckAllValid(t *testing.T) {
	dir := setupTree(t, map[string]string{
		"a.blk": "var a = 1;\n",
		"b.blk": "func f(x) { var y = x; }\n",
	})

	var out bytes.Buffer
	me := &Handler{dir: dir, patterns: []string{"*.blk", "a.blk"}, format: "json", fs: afero.NewOsFs(), out: &out}
	require.NoError(t, me.Run(context.Background()))

	var statuses []string
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		var got struct {
			Path        string `json:"path"`
			Status      string `json:"status"`
			Diagnostics []any  `json:"diagnostics"`
		}
		require.NoError(t, json.Unmarshal([]byte(line), &got))
		assert.Empty(t, got.Diagnostics)
		statuses = append(statuses, got.Status)
	}
	assert.Equal(t, []string{"valid", "valid"}, statuses)
}

func TestCheckReportsEveryFileError(t *testing.T) {
	dir := setupTree(t, map[string]string{
		"a.txt": "hello",
		"b.txt": "world",
	})

	me := &Handler{dir: dir, patterns: []string{"*.txt"}, fs: afero.NewOsFs(), out: &bytes.Buffer{}}
	err := me.Run(context.Background())
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)
}

func TestCheckArguments(t *testing.T) {
	dir := setupTree(t, map[string]string{"a.blk": "var a = 1;\n"})

	tests := []struct {
		name    string
		handler *Handler
	}{
		{name: "no matches", handler: &Handler{patterns: []string{"*.nothing"}}},
		{name: "invalid pattern", handler: &Handler{patterns: []string{"[unclosed"}}},
		{name: "unknown format", handler: &Handler{patterns: []string{"*.blk"}, format: "xml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.handler.dir = dir
			tt.handler.fs = afero.NewOsFs()
			tt.handler.out = &bytes.Buffer{}
			require.Error(t, tt.handler.Run(context.Background()))
		})
	}
}
