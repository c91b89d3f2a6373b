package filesystem

import (
	"io/fs"
)

// ReadFS is an alias for fs.FS, representing a read-only file system.
type ReadFS = fs.FS

// WriteFS defines the write operations a sync run needs.
type WriteFS interface {
	WriteFile(name string, data []byte, perm fs.FileMode) error
	MkdirAll(path string, perm fs.FileMode) error
	Remove(name string) error
	RemoveAll(name string) error
	Rename(oldpath, newpath string) error
}

// FileSystem combines read and write operations.
type FileSystem interface {
	ReadFS
	WriteFS
}

// ReadFile reads a whole file from fsys.
func ReadFile(fsys ReadFS, name string) ([]byte, error) {
	return fs.ReadFile(fsys, name)
}

// ListFiles returns the names of the regular files directly inside dir,
// sorted. A missing directory yields no names.
func ListFiles(fsys ReadFS, dir string) ([]string, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		if errorsIsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// Exists reports whether name exists in fsys.
func Exists(fsys ReadFS, name string) bool {
	_, err := fs.Stat(fsys, name)
	return err == nil
}
