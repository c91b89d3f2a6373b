package workspace_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/vbasync/pkg/vbasync/filesystem"
	"github.com/arthur-debert/vbasync/pkg/vbasync/workspace"
)

func TestWorkspace(t *testing.T) {
	dir := t.TempDir()
	impls := map[string]filesystem.FileSystem{
		"os":     filesystem.NewOSFileSystem(dir),
		"memory": filesystem.NewTestFileSystem(),
	}
	for name, fsys := range impls {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, fsys.MkdirAll("docs", 0755))
			require.NoError(t, fsys.WriteFile("docs/Book1.xlsm", []byte("old"), 0644))

			ws, err := workspace.New(fsys, "docs/Book1.xlsm", zerolog.Nop())
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(ws.Dir(), "docs/"+workspace.Prefix))

			p, err := ws.WriteFile("out.bin", []byte("new"))
			require.NoError(t, err)
			assert.Equal(t, ws.Dir()+"/out.bin", p)

			require.NoError(t, ws.Commit("out.bin", "docs/Book1.xlsm"))
			data, err := filesystem.ReadFile(fsys, "docs/Book1.xlsm")
			require.NoError(t, err)
			assert.Equal(t, "new", string(data))
			assert.False(t, filesystem.Exists(fsys, p))

			_, err = ws.WriteFile("left.txt", []byte("x"))
			require.NoError(t, err)
			require.NoError(t, ws.Close())
			assert.False(t, filesystem.Exists(fsys, ws.Dir()))
			assert.NoError(t, ws.Close())
		})
	}
}

func TestOSPath(t *testing.T) {
	dir := t.TempDir()
	ws, err := workspace.New(filesystem.NewOSFileSystem(dir), "Book1.xlsm", zerolog.Nop())
	require.NoError(t, err)
	defer ws.Close()

	_, err = ws.WriteFile("a.bas", []byte("a"))
	require.NoError(t, err)
	p, ok := ws.OSPath("a.bas")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, filepath.FromSlash(ws.Dir()), "a.bas"), p)
	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "a", string(data))

	mem, err := workspace.New(filesystem.NewTestFileSystem(), "Book1.xlsm", zerolog.Nop())
	require.NoError(t, err)
	_, ok = mem.OSPath("a.bas")
	assert.False(t, ok)
}

func TestCommitMissingFile(t *testing.T) {
	ws, err := workspace.New(filesystem.NewTestFileSystem(), "Book1.xlsm", zerolog.Nop())
	require.NoError(t, err)
	assert.Error(t, ws.Commit("absent", "Book1.xlsm"))
}
