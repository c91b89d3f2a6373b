package project

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/arthur-debert/vbasync/pkg/vbasync/core"
	"github.com/arthur-debert/vbasync/pkg/vbasync/filesystem"
	"github.com/arthur-debert/vbasync/pkg/vbasync/frx"
	"github.com/arthur-debert/vbasync/pkg/vbasync/modules"
	"github.com/arthur-debert/vbasync/pkg/vbasync/ovba"
	"github.com/arthur-debert/vbasync/pkg/vbasync/storage"
)

// Entry names inside a project storage.
const (
	StorageVBA     = "VBA"
	StreamDir      = "dir"
	StreamProject  = "PROJECT"
	StreamNameMap  = "PROJECTwm"
	StreamLicense  = "PROJECTlk"
	StreamVBACache = "_VBA_PROJECT"
	StreamVBFrame  = "\x03VBFrame"
)

// ClassHeader is the header VBA exports in front of class module source.
const ClassHeader = "VERSION 1.0 CLASS\r\nBEGIN\r\n  MultiUse = -1  'True\r\nEND\r\n"

// emptyCache is a _VBA_PROJECT stream with no compiled state. VBA
// recompiles from source when it opens a project carrying it.
var emptyCache = []byte{0xCC, 0x61, 0xFF, 0xFF, 0x00, 0x00, 0x00}

const cachePrefix = "__SRP_"

// Project is an opened VBA project storage.
type Project struct {
	Meta   *Metadata
	Stream *Stream

	root   storage.Storage
	codec  *filesystem.Codec
	logger zerolog.Logger
}

// Open decodes the project metadata held in root.
func Open(root storage.Storage, logger zerolog.Logger) (*Project, error) {
	vba, ok := root.Storage(StorageVBA)
	if !ok {
		return nil, core.MissingSection(StorageVBA)
	}
	compressed, ok := vba.Stream(StreamDir)
	if !ok {
		return nil, core.MissingSection(StorageVBA, StreamDir)
	}
	raw, err := ovba.Decompress(compressed)
	if err != nil {
		return nil, &core.SectionError{Path: []string{StorageVBA, StreamDir}, Err: err}
	}
	meta, err := DecodeDir(raw)
	if err != nil {
		return nil, err
	}
	codec, err := filesystem.CodecFor(meta.CodePage)
	if err != nil {
		return nil, err
	}

	text, ok := root.Stream(StreamProject)
	if !ok {
		return nil, core.MissingSection(StreamProject)
	}
	decoded, err := codec.Decode(text)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", StreamProject, err)
	}
	stream, err := ParseStream(decoded)
	if err != nil {
		return nil, err
	}

	logger.Debug().
		Str("project", meta.Name).
		Uint16("code_page", meta.CodePage).
		Int("modules", len(meta.Modules)).
		Int("references", len(meta.References)).
		Msg("opened project")

	return &Project{Meta: meta, Stream: stream, root: root, codec: codec, logger: logger}, nil
}

// Codec returns the text codec of the project's code page.
func (p *Project) Codec() *filesystem.Codec {
	return p.codec
}

func (p *Project) vba() storage.Storage {
	vba, _ := p.root.Storage(StorageVBA)
	return vba
}

// Modules reconstructs the source of every module as VBA exports it,
// together with the descriptor and, when present, the license blob.
func (p *Project) Modules() (*modules.Set, error) {
	set := modules.NewSet()
	types := p.Stream.ModuleTypes()
	vba := p.vba()

	for _, rec := range p.Meta.Modules {
		src, err := p.source(vba, rec)
		if err != nil {
			return nil, err
		}
		t, ok := types[strings.ToUpper(rec.Name)]
		if !ok {
			t = modules.Standard
			if rec.NonProcedural {
				t = modules.Class
			}
		}
		m := &modules.Module{Name: rec.Name, Type: t}
		switch t {
		case modules.Class, modules.StaticClass:
			m.Text = ClassHeader + src
		case modules.Form:
			header, binary, err := p.designer(rec)
			if err != nil {
				return nil, err
			}
			m.Text = header + src
			m.Binary = binary
		default:
			m.Text = src
		}
		p.logger.Trace().Str("module", m.Name).Stringer("type", m.Type).Int("chars", len(m.Text)).Msg("read module")
		set.Put(m)
	}

	set.Put(&modules.Module{
		Name: modules.DescriptorName,
		Type: modules.ProjectDescriptor,
		Text: NewDescriptor(p.Meta, p.Stream).String(),
	})
	if lk, ok := p.root.Stream(StreamLicense); ok {
		set.Put(&modules.Module{Name: modules.LicenseName, Type: modules.LicenseBlob, Binary: lk})
	}
	return set, nil
}

func (p *Project) source(vba storage.Storage, rec *ModuleRecord) (string, error) {
	data, ok := vba.Stream(rec.StreamName)
	if !ok {
		return "", core.MissingSection(StorageVBA, rec.StreamName)
	}
	if int(rec.Offset) > len(data) {
		return "", &core.SizeMismatchError{
			Stream:   StorageVBA + "/" + rec.StreamName,
			Path:     "MODULEOFFSET",
			Declared: int(rec.Offset),
			Consumed: len(data),
		}
	}
	raw, err := ovba.Decompress(data[rec.Offset:])
	if err != nil {
		return "", &core.SectionError{Path: []string{StorageVBA, rec.StreamName}, Err: err}
	}
	text, err := p.codec.Decode(raw)
	if err != nil {
		return "", fmt.Errorf("%s/%s: %w", StorageVBA, rec.StreamName, err)
	}
	return text, nil
}

// designer returns a form's exported header and its .frx file: the
// designer storage without the VBFrame stream.
func (p *Project) designer(rec *ModuleRecord) (string, []byte, error) {
	s, ok := p.root.Storage(rec.StreamName)
	if !ok {
		return "", nil, core.MissingSection(rec.StreamName)
	}
	frame, ok := s.Stream(StreamVBFrame)
	if !ok {
		return "", nil, core.MissingSection(rec.StreamName, StreamVBFrame)
	}
	header, err := p.codec.Decode(frame)
	if err != nil {
		return "", nil, fmt.Errorf("%s/VBFrame: %w", rec.StreamName, err)
	}
	mem := storage.NewMemory()
	storage.Copy(mem, s)
	mem.Delete(StreamVBFrame)
	if len(mem.Entries()) == 0 {
		// The form has no designer data and so no .frx.
		return modules.NormalizeNewlines(header), nil, nil
	}
	binary, err := frx.WriteFile(mem)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", rec.StreamName, err)
	}
	return modules.NormalizeNewlines(header), binary, nil
}

// SplitSource separates an exported header from module code. The header
// is everything before the first Attribute line of text that starts with
// a VERSION line; other text has no header.
func SplitSource(text string) (header, code string) {
	if !hasPrefixFold(text, "VERSION ") {
		return "", text
	}
	pos := 0
	for pos < len(text) {
		if hasPrefixFold(text[pos:], "Attribute ") {
			return text[:pos], text[pos:]
		}
		i := strings.IndexByte(text[pos:], '\n')
		if i < 0 {
			break
		}
		pos += i + 1
	}
	return text, ""
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

// Apply replaces the project's modules and settings with set and saves
// the result into the storage. Sources are written uncompiled; the
// compiled cache is dropped.
func (p *Project) Apply(set *modules.Set) error {
	var desc *Descriptor
	if m, ok := set.Get(modules.DescriptorName); ok && m.Type == modules.ProjectDescriptor {
		d, err := ParseDescriptor(m.Text)
		if err != nil {
			return err
		}
		desc = d
	}
	codec := p.codec
	if desc != nil && desc.CodePage != p.Meta.CodePage {
		c, err := filesystem.CodecFor(desc.CodePage)
		if err != nil {
			return err
		}
		codec = c
	}

	vba := p.vba()
	code := set.Code()
	records := make([]*ModuleRecord, 0, len(code))
	for _, m := range code {
		rec := p.Meta.Module(m.Name)
		if rec == nil {
			rec = &ModuleRecord{
				Name:              m.Name,
				NameUnicode:       m.Name,
				StreamName:        m.Name,
				StreamNameUnicode: m.Name,
				Cookie:            0xFFFF,
			}
			p.logger.Debug().Str("module", m.Name).Msg("adding module record")
		}
		rec.NonProcedural = m.Type != modules.Standard
		rec.Offset = 0

		header, src := SplitSource(m.Text)
		raw, err := codec.Encode(src)
		if err != nil {
			return fmt.Errorf("%s: %w", m.Name, err)
		}
		vba.SetStream(rec.StreamName, ovba.Compress(raw))
		if m.Type == modules.Form {
			if err := p.writeDesigner(rec, header, m.Binary, codec); err != nil {
				return err
			}
		}
		records = append(records, rec)
	}

	for _, rec := range p.Meta.Modules {
		if m, ok := set.Get(rec.Name); ok && m.Type.IsCode() {
			if m.Type != modules.Form && p.isForm(rec) {
				p.root.Delete(rec.StreamName)
			}
			continue
		}
		p.logger.Debug().Str("module", rec.Name).Msg("removing module")
		vba.Delete(rec.StreamName)
		if p.isForm(rec) {
			p.root.Delete(rec.StreamName)
		}
	}

	docTLib := map[string]string{}
	for _, v := range p.Stream.DocTLibVersions() {
		docTLib[strings.ToUpper(v.Key)] = v.Value
	}
	p.Meta.Modules = records
	if desc != nil {
		desc.Apply(p.Meta, p.Stream)
		for k, v := range desc.DocTLibMap() {
			docTLib[k] = v
		}
	}
	p.codec = codec
	p.Stream.SetModules(code, docTLib)
	p.Stream.DropWorkspace(func(name string) bool {
		m, ok := set.Get(name)
		return ok && m.Type.IsCode()
	})

	if m, ok := set.Get(modules.LicenseName); ok && m.Type == modules.LicenseBlob {
		p.root.SetStream(StreamLicense, m.Binary)
	} else {
		p.root.Delete(StreamLicense)
	}

	for _, e := range vba.Entries() {
		if !e.IsStorage && hasPrefixFold(e.Name, cachePrefix) {
			vba.Delete(e.Name)
		}
	}
	vba.SetStream(StreamVBACache, append([]byte(nil), emptyCache...))

	return p.Save()
}

func (p *Project) isForm(rec *ModuleRecord) bool {
	s, ok := p.root.Storage(rec.StreamName)
	if !ok {
		return false
	}
	_, ok = s.Stream(StreamVBFrame)
	return ok
}

func (p *Project) writeDesigner(rec *ModuleRecord, header string, binary []byte, codec *filesystem.Codec) error {
	frame, err := codec.Encode(header)
	if err != nil {
		return fmt.Errorf("%s: %w", rec.Name, err)
	}
	// Nothing of the previous designer survives: a form without a binary
	// keeps only its VBFrame stream.
	dst := p.root.AddStorage(rec.StreamName)
	if len(binary) > 0 {
		mem, err := frx.ReadFile(binary)
		if err != nil {
			return fmt.Errorf("%s%s: %w", rec.Name, modules.FormBinaryExtension, err)
		}
		storage.Copy(dst, mem)
	} else {
		for _, e := range dst.Entries() {
			dst.Delete(e.Name)
		}
	}
	dst.SetStream(StreamVBFrame, frame)
	return nil
}

// Save encodes the metadata into the dir, PROJECT and PROJECTwm streams.
func (p *Project) Save() error {
	dir, err := EncodeDir(p.Meta)
	if err != nil {
		return err
	}
	p.vba().SetStream(StreamDir, ovba.Compress(dir))

	text, err := p.codec.Encode(p.Stream.String())
	if err != nil {
		return fmt.Errorf("%s: %w", StreamProject, err)
	}
	p.root.SetStream(StreamProject, text)

	entries := make([]NameMapEntry, 0, len(p.Meta.Modules))
	for _, rec := range p.Meta.Modules {
		unicode := rec.NameUnicode
		if unicode == "" {
			unicode = rec.Name
		}
		entries = append(entries, NameMapEntry{Name: rec.Name, Unicode: unicode})
	}
	wm, err := EncodeNameMap(entries, p.codec)
	if err != nil {
		return err
	}
	p.root.SetStream(StreamNameMap, wm)

	p.logger.Debug().Str("project", p.Meta.Name).Int("modules", len(p.Meta.Modules)).Msg("saved project")
	return nil
}
