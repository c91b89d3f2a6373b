package filesystem

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// OSFileSystem is a FileSystem on a directory of the operating system.
// Names are slash-separated and relative to the root.
type OSFileSystem struct {
	root string
}

// NewOSFileSystem roots a file system at root.
func NewOSFileSystem(root string) *OSFileSystem {
	return &OSFileSystem{root: root}
}

// Root returns the directory the file system is rooted at.
func (osfs *OSFileSystem) Root() string {
	return osfs.root
}

// Path returns the OS path of name.
func (osfs *OSFileSystem) Path(name string) string {
	return filepath.Join(osfs.root, filepath.FromSlash(name))
}

// native validates name and returns its OS path.
func (osfs *OSFileSystem) native(op, name string) (string, error) {
	if err := checkPath(op, name); err != nil {
		return "", err
	}
	return osfs.Path(name), nil
}

func (osfs *OSFileSystem) Open(name string) (fs.File, error) {
	p, err := osfs.native("open", name)
	if err != nil {
		return nil, err
	}
	return os.Open(p)
}

func (osfs *OSFileSystem) Stat(name string) (fs.FileInfo, error) {
	p, err := osfs.native("stat", name)
	if err != nil {
		return nil, err
	}
	return os.Stat(p)
}

func (osfs *OSFileSystem) ReadDir(name string) ([]fs.DirEntry, error) {
	p, err := osfs.native("readdir", name)
	if err != nil {
		return nil, err
	}
	return os.ReadDir(p)
}

func (osfs *OSFileSystem) WriteFile(name string, data []byte, perm fs.FileMode) error {
	p, err := osfs.native("writefile", name)
	if err != nil {
		return err
	}
	return os.WriteFile(p, data, perm)
}

func (osfs *OSFileSystem) MkdirAll(name string, perm fs.FileMode) error {
	p, err := osfs.native("mkdirall", name)
	if err != nil {
		return err
	}
	return os.MkdirAll(p, perm)
}

func (osfs *OSFileSystem) Remove(name string) error {
	p, err := osfs.native("remove", name)
	if err != nil {
		return err
	}
	return os.Remove(p)
}

func (osfs *OSFileSystem) RemoveAll(name string) error {
	p, err := osfs.native("removeall", name)
	if err != nil {
		return err
	}
	return os.RemoveAll(p)
}

// Rename moves oldpath over newpath. On one volume the move is atomic.
func (osfs *OSFileSystem) Rename(oldpath, newpath string) error {
	from, err := osfs.native("rename", oldpath)
	if err != nil {
		return err
	}
	to, err := osfs.native("rename", newpath)
	if err != nil {
		return err
	}
	return os.Rename(from, to)
}

func errorsIsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
