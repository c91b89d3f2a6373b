// Package workspace manages the scratch directory one run owns next to the
// document it works on.
package workspace

import (
	"fmt"
	"path"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/arthur-debert/vbasync/pkg/vbasync/filesystem"
)

// Prefix starts the name of every workspace directory.
const Prefix = ".vbasync-"

// Workspace is a temporary directory removed on Close. It lives beside the
// document so a finished file can be renamed into place.
type Workspace struct {
	fsys   filesystem.FileSystem
	dir    string
	logger zerolog.Logger
	closed bool
}

// New creates a workspace in the directory holding near.
func New(fsys filesystem.FileSystem, near string, logger zerolog.Logger) (*Workspace, error) {
	dir := path.Join(path.Dir(near), Prefix+uuid.NewString())
	if err := fsys.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("creating workspace: %w", err)
	}
	logger.Debug().Str("workspace", dir).Msg("created workspace")
	return &Workspace{fsys: fsys, dir: dir, logger: logger}, nil
}

// Dir returns the workspace directory.
func (w *Workspace) Dir() string {
	return w.dir
}

// Path returns the name of a file inside the workspace.
func (w *Workspace) Path(name string) string {
	return path.Join(w.dir, name)
}

// OSPath returns the operating system path of a workspace file, for
// handing to external programs. ok is false when the workspace is not on
// a real file system.
func (w *Workspace) OSPath(name string) (p string, ok bool) {
	native, ok := w.fsys.(interface{ Path(string) string })
	if !ok {
		return "", false
	}
	return native.Path(w.Path(name)), true
}

// WriteFile stores data in the workspace and returns its name.
func (w *Workspace) WriteFile(name string, data []byte) (string, error) {
	p := w.Path(name)
	if err := w.fsys.MkdirAll(path.Dir(p), 0700); err != nil {
		return "", err
	}
	if err := w.fsys.WriteFile(p, data, 0600); err != nil {
		return "", err
	}
	return p, nil
}

// Commit moves a workspace file over target.
func (w *Workspace) Commit(name, target string) error {
	if err := w.fsys.Rename(w.Path(name), target); err != nil {
		return fmt.Errorf("replacing %s: %w", target, err)
	}
	w.logger.Debug().Str("file", name).Str("target", target).Msg("committed workspace file")
	return nil
}

// Close removes the workspace and everything in it. Closing twice is a
// no-op.
func (w *Workspace) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	w.logger.Debug().Str("workspace", w.dir).Msg("removing workspace")
	return w.fsys.RemoveAll(w.dir)
}
