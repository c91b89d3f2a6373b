package filesystem

import (
	"io/fs"
	"strings"
	"testing/fstest"
)

// TestFileSystem is an in-memory FileSystem over fstest.MapFS. Parent
// directories are implied by the files below them.
type TestFileSystem struct {
	fstest.MapFS
}

// NewTestFileSystem creates an empty in-memory file system.
func NewTestFileSystem() *TestFileSystem {
	return &TestFileSystem{MapFS: fstest.MapFS{}}
}

// NewTestFileSystemFromMap wraps files.
func NewTestFileSystemFromMap(files fstest.MapFS) *TestFileSystem {
	return &TestFileSystem{MapFS: files}
}

func checkPath(op, name string) error {
	if !fs.ValidPath(name) {
		return &fs.PathError{Op: op, Path: name, Err: fs.ErrInvalid}
	}
	return nil
}

// within reports whether name is dir or lies below it.
func within(dir, name string) bool {
	return dir == "." || name == dir || strings.HasPrefix(name, dir+"/")
}

func (tfs *TestFileSystem) WriteFile(name string, data []byte, perm fs.FileMode) error {
	if err := checkPath("writefile", name); err != nil {
		return err
	}
	tfs.MapFS[name] = &fstest.MapFile{Data: append([]byte(nil), data...), Mode: perm}
	return nil
}

func (tfs *TestFileSystem) MkdirAll(dir string, perm fs.FileMode) error {
	if err := checkPath("mkdirall", dir); err != nil || dir == "." {
		return err
	}
	if _, ok := tfs.MapFS[dir]; !ok {
		tfs.MapFS[dir] = &fstest.MapFile{Mode: perm | fs.ModeDir}
	}
	return nil
}

func (tfs *TestFileSystem) Remove(name string) error {
	if err := checkPath("remove", name); err != nil {
		return err
	}
	if _, ok := tfs.MapFS[name]; !ok {
		return &fs.PathError{Op: "remove", Path: name, Err: fs.ErrNotExist}
	}
	delete(tfs.MapFS, name)
	return nil
}

func (tfs *TestFileSystem) RemoveAll(name string) error {
	if err := checkPath("removeall", name); err != nil {
		return err
	}
	for p := range tfs.MapFS {
		if within(name, p) {
			delete(tfs.MapFS, p)
		}
	}
	return nil
}

// Rename moves a single file, replacing newpath.
func (tfs *TestFileSystem) Rename(oldpath, newpath string) error {
	if err := checkPath("rename", oldpath); err != nil {
		return err
	}
	if err := checkPath("rename", newpath); err != nil {
		return err
	}
	f, ok := tfs.MapFS[oldpath]
	if !ok {
		return &fs.PathError{Op: "rename", Path: oldpath, Err: fs.ErrNotExist}
	}
	delete(tfs.MapFS, oldpath)
	tfs.MapFS[newpath] = f
	return nil
}
