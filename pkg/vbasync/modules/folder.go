package modules

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/arthur-debert/vbasync/pkg/vbasync/filesystem"
)

// FormBinaryExtension is the extension of a form's binary companion file.
const FormBinaryExtension = ".frx"

// NormalizeNewlines converts LF and lone CR line ends to CRLF.
func NormalizeNewlines(s string) string {
	if !strings.ContainsAny(s, "\r\n") {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.ReplaceAll(s, "\n", "\r\n")
}

// IsDocumentClass reports whether class source carries the VB_Base
// attribute that binds it to a host document object.
func IsDocumentClass(text string) bool {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if len(line) >= len("Attribute VB_Base") &&
			strings.EqualFold(line[:len("Attribute VB_Base")], "Attribute VB_Base") {
			return true
		}
	}
	return false
}

// typeForFile maps a folder file name to a module type. ok is false for
// files that are not modules on their own.
func typeForFile(name string) (modName string, t Type, ok bool) {
	ext := path.Ext(name)
	base := strings.TrimSuffix(name, ext)
	switch strings.ToLower(ext) {
	case ".bas":
		return base, Standard, true
	case ".cls":
		return base, Class, true
	case ".frm":
		return base, Form, true
	case ".ini":
		if strings.EqualFold(base, DescriptorName) {
			return DescriptorName, ProjectDescriptor, true
		}
	case ".bin":
		if strings.EqualFold(base, LicenseName) {
			return LicenseName, LicenseBlob, true
		}
	}
	return "", 0, false
}

// LoadFolder reads every module file directly inside dir. Text files are
// decoded with codec and their line ends normalized to CRLF.
func LoadFolder(fsys filesystem.ReadFS, dir string, codec *filesystem.Codec) (*Set, error) {
	names, err := filesystem.ListFiles(fsys, dir)
	if err != nil {
		return nil, err
	}
	set := NewSet()
	for _, file := range names {
		name, t, ok := typeForFile(file)
		if !ok {
			continue
		}
		data, err := filesystem.ReadFile(fsys, path.Join(dir, file))
		if err != nil {
			return nil, err
		}
		m := &Module{Name: name, Type: t}
		if t == LicenseBlob {
			m.Binary = data
			set.Put(m)
			continue
		}
		text, err := codec.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
		m.Text = NormalizeNewlines(text)
		if t == Class && IsDocumentClass(m.Text) {
			m.Type = StaticClass
		}
		if t == Form {
			frx, err := filesystem.ReadFile(fsys, path.Join(dir, name+FormBinaryExtension))
			switch {
			case err == nil:
				m.Binary = frx
			case !errors.Is(err, fs.ErrNotExist):
				return nil, err
			}
		}
		set.Put(m)
	}
	return set, nil
}

// WriteModule writes m's files into dir.
func WriteModule(fsys filesystem.WriteFS, dir string, m *Module, codec *filesystem.Codec) error {
	if m.Type == LicenseBlob {
		return fsys.WriteFile(path.Join(dir, m.FileName()), m.Binary, 0644)
	}
	data, err := codec.Encode(m.Text)
	if err != nil {
		return fmt.Errorf("%s: %w", m.FileName(), err)
	}
	if err := fsys.WriteFile(path.Join(dir, m.FileName()), data, 0644); err != nil {
		return err
	}
	if m.Type == Form && m.Binary != nil {
		return fsys.WriteFile(path.Join(dir, m.Name+FormBinaryExtension), m.Binary, 0644)
	}
	return nil
}

// RemoveModule deletes every file m may occupy in dir under any type.
// Missing files are not an error.
func RemoveModule(fsys filesystem.FileSystem, dir string, name string) error {
	for _, ext := range []string{".bas", ".cls", ".frm", FormBinaryExtension} {
		if err := removeIfExists(fsys, path.Join(dir, name+ext)); err != nil {
			return err
		}
	}
	switch {
	case strings.EqualFold(name, DescriptorName):
		return removeIfExists(fsys, path.Join(dir, DescriptorName+ProjectDescriptor.Extension()))
	case strings.EqualFold(name, LicenseName):
		return removeIfExists(fsys, path.Join(dir, LicenseName+LicenseBlob.Extension()))
	}
	return nil
}

// WriteFormBinary writes a form's .frx file alone.
func WriteFormBinary(fsys filesystem.WriteFS, dir string, m *Module) error {
	return fsys.WriteFile(path.Join(dir, m.Name+FormBinaryExtension), m.Binary, 0644)
}

// RemoveFormBinary deletes a form's .frx file, if present.
func RemoveFormBinary(fsys filesystem.FileSystem, dir string, name string) error {
	return removeIfExists(fsys, path.Join(dir, name+FormBinaryExtension))
}

func removeIfExists(fsys filesystem.FileSystem, name string) error {
	if !filesystem.Exists(fsys, name) {
		return nil
	}
	return fsys.Remove(name)
}

// WriteFolder writes every module of set into dir, creating it.
func WriteFolder(fsys filesystem.WriteFS, dir string, set *Set, codec *filesystem.Codec) error {
	if err := fsys.MkdirAll(dir, 0755); err != nil {
		return err
	}
	for _, m := range set.Modules() {
		if err := WriteModule(fsys, dir, m, codec); err != nil {
			return err
		}
	}
	return nil
}
