// Package document reads and writes the office files that carry a VBA
// project: bare compound files such as vbaProject.bin or legacy .xls/.doc
// documents, and Office Open XML packages holding a vbaProject.bin part.
package document

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/rs/zerolog"

	"github.com/arthur-debert/vbasync/pkg/vbasync/core"
	"github.com/arthur-debert/vbasync/pkg/vbasync/filesystem"
	"github.com/arthur-debert/vbasync/pkg/vbasync/storage"
	"github.com/arthur-debert/vbasync/pkg/vbasync/storage/cfb"
)

// Format is the container layout of a document.
type Format int

const (
	// CompoundFile is a bare compound file.
	CompoundFile Format = iota
	// Package is a zip package with the project in its vbaProject.bin part.
	Package
)

func (f Format) String() string {
	switch f {
	case CompoundFile:
		return "compound file"
	case Package:
		return "package"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// PartName is the base name of the project part inside a package.
const PartName = "vbaProject.bin"

// Storages that hold the project inside legacy Excel and Word documents.
var projectStorages = []string{"_VBA_PROJECT_CUR", "Macros"}

var zipMagic = []byte("PK\x03\x04")

// Document is an opened office file.
type Document struct {
	Format Format
	// Root is the whole compound file.
	Root *storage.Memory
	// Part is the name of the project part of a package.
	Part string

	project storage.Storage
	pkg     []byte
	logger  zerolog.Logger
}

// Open reads and decodes the document stored at name.
func Open(fsys filesystem.ReadFS, name string, logger zerolog.Logger) (*Document, error) {
	data, err := filesystem.ReadFile(fsys, name)
	if err != nil {
		return nil, err
	}
	d, err := Decode(data, logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return d, nil
}

// Decode decodes a document from its bytes.
func Decode(data []byte, logger zerolog.Logger) (*Document, error) {
	d := &Document{Format: CompoundFile, logger: logger}
	bin := data
	if bytes.HasPrefix(data, zipMagic) {
		part, content, err := readPart(data)
		if err != nil {
			return nil, err
		}
		d.Format, d.Part, d.pkg, bin = Package, part, data, content
	}

	root, err := cfb.Read(bin)
	if err != nil {
		return nil, err
	}
	d.Root = root
	d.project = locate(root)
	if d.project == nil {
		return nil, core.MissingSection("PROJECT")
	}
	logger.Debug().
		Stringer("format", d.Format).
		Str("part", d.Part).
		Int("size", len(data)).
		Msg("opened document")
	return d, nil
}

// Project returns the storage holding the VBA project.
func (d *Document) Project() storage.Storage {
	return d.project
}

// Encode serializes the document with its current project storage. Other
// package entries are copied unchanged.
func (d *Document) Encode() ([]byte, error) {
	bin, err := cfb.Write(d.Root)
	if err != nil {
		return nil, err
	}
	if d.Format == CompoundFile {
		return bin, nil
	}
	return replacePart(d.pkg, d.Part, bin)
}

func locate(root *storage.Memory) storage.Storage {
	if _, ok := root.Stream("PROJECT"); ok {
		return root
	}
	for _, name := range projectStorages {
		if s, ok := root.Storage(name); ok {
			if _, ok := s.Stream("PROJECT"); ok {
				return s
			}
		}
	}
	return nil
}

func isPart(name string) bool {
	return strings.EqualFold(path.Base(name), PartName)
}

func readPart(data []byte) (string, []byte, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", nil, err
	}
	for _, f := range r.File {
		if !isPart(f.Name) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", nil, err
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", nil, fmt.Errorf("%s: %w", f.Name, err)
		}
		return f.Name, content, nil
	}
	return "", nil, core.MissingSection(PartName)
}

func replacePart(pkg []byte, part string, content []byte) ([]byte, error) {
	r, err := zip.NewReader(bytes.NewReader(pkg), int64(len(pkg)))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, f := range r.File {
		if f.Name != part {
			if err := w.Copy(f); err != nil {
				return nil, fmt.Errorf("%s: %w", f.Name, err)
			}
			continue
		}
		out, err := w.CreateHeader(&zip.FileHeader{
			Name:     f.Name,
			Method:   f.Method,
			Modified: f.Modified,
		})
		if err != nil {
			return nil, err
		}
		if _, err := out.Write(content); err != nil {
			return nil, err
		}
	}
	if err := w.SetComment(r.Comment); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
