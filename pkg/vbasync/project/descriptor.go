package project

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/arthur-debert/vbasync/pkg/vbasync/binrec"
)

// Descriptor sections.
const (
	sectionGeneral   = "General"
	sectionConstants = "Constants"
	sectionReference = "Reference "
	sectionDocTLib   = "DocTLibVersions"
	sectionModule    = "Module "
)

// Constant is one conditional compilation constant.
type Constant struct {
	Name  string
	Value string
}

// ModuleFlags holds the per-module settings that only live in the dir
// stream.
type ModuleFlags struct {
	Name          string
	Description   string
	HelpContextID uint32
	ReadOnly      bool
	Private       bool
}

func (f ModuleFlags) isDefault() bool {
	return f.Description == "" && f.HelpContextID == 0 && !f.ReadOnly && !f.Private
}

// Descriptor is the content of Project.ini: the project settings a source
// folder carries besides the modules themselves.
type Descriptor struct {
	ID                  string
	Name                string
	Description         string
	HelpFile            string
	HelpContextID       uint32
	SysKind             uint32
	LCID                uint32
	LCIDInvoke          uint32
	CodePage            uint16
	VersionMajor        uint32
	VersionMinor        uint16
	CompatVersion       *uint32
	LibFlags            uint32
	VersionCompatible32 string
	Constants           []Constant
	References          []*Reference
	DocTLibVersions     []Property
	HostExtenders       []Property
	Modules             []ModuleFlags
}

func preferUnicode(unicode, mbcs string) string {
	if unicode != "" {
		return unicode
	}
	return mbcs
}

// NewDescriptor derives the descriptor from decoded project metadata.
func NewDescriptor(meta *Metadata, stream *Stream) *Descriptor {
	d := &Descriptor{
		ID:                  stream.Quoted("ID"),
		Name:                meta.Name,
		Description:         preferUnicode(meta.DocStringUnicode, meta.DocString),
		HelpFile:            meta.HelpFile1,
		HelpContextID:       meta.HelpContext,
		SysKind:             meta.SysKind,
		LCID:                meta.LCID,
		LCIDInvoke:          meta.LCIDInvoke,
		CodePage:            meta.CodePage,
		VersionMajor:        meta.VersionMajor,
		VersionMinor:        meta.VersionMinor,
		CompatVersion:       meta.CompatVersion,
		LibFlags:            meta.LibFlags,
		VersionCompatible32: stream.Quoted("VersionCompatible32"),
		Constants:           parseConstants(preferUnicode(meta.ConstantsUnicode, meta.Constants)),
		References:          meta.References,
		HostExtenders:       stream.HostExtenders,
	}
	for _, v := range stream.DocTLibVersions() {
		if v.Value != DefaultDocTLibVersion {
			d.DocTLibVersions = append(d.DocTLibVersions, v)
		}
	}
	for _, m := range meta.Modules {
		f := ModuleFlags{
			Name:          m.Name,
			Description:   preferUnicode(m.DocStringUnicode, m.DocString),
			HelpContextID: m.HelpContext,
			ReadOnly:      m.ReadOnly,
			Private:       m.Private,
		}
		if !f.isDefault() {
			d.Modules = append(d.Modules, f)
		}
	}
	return d
}

func parseConstants(s string) []Constant {
	var out []Constant
	for _, part := range strings.Split(s, ":") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, v, _ := strings.Cut(part, "=")
		out = append(out, Constant{Name: strings.TrimSpace(k), Value: strings.TrimSpace(v)})
	}
	return out
}

func formatConstants(cs []Constant) string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = c.Name + " = " + c.Value
	}
	return strings.Join(parts, " : ")
}

type iniWriter struct {
	b strings.Builder
}

func (w *iniWriter) section(name string) {
	if w.b.Len() > 0 {
		w.b.WriteString("\r\n")
	}
	w.b.WriteString("[" + name + "]\r\n")
}

func (w *iniWriter) kv(key, value string) {
	w.b.WriteString(key + "=" + value + "\r\n")
}

// String renders the descriptor as Project.ini text. Optional settings are
// written only when they differ from their defaults.
func (d *Descriptor) String() string {
	w := &iniWriter{}
	w.section(sectionGeneral)
	if d.ID != "" {
		w.kv("ID", d.ID)
	}
	w.kv("Name", d.Name)
	if d.Description != "" {
		w.kv("Description", d.Description)
	}
	if d.HelpFile != "" {
		w.kv("HelpFile", d.HelpFile)
	}
	if d.HelpContextID != 0 {
		w.kv("HelpContextID", strconv.FormatUint(uint64(d.HelpContextID), 10))
	}
	w.kv("SysKind", strconv.FormatUint(uint64(d.SysKind), 10))
	w.kv("LCID", strconv.FormatUint(uint64(d.LCID), 10))
	w.kv("LCIDInvoke", strconv.FormatUint(uint64(d.LCIDInvoke), 10))
	w.kv("CodePage", strconv.FormatUint(uint64(d.CodePage), 10))
	w.kv("Version", fmt.Sprintf("%d.%d", d.VersionMajor, d.VersionMinor))
	if d.CompatVersion != nil {
		w.kv("CompatVersion", strconv.FormatUint(uint64(*d.CompatVersion), 10))
	}
	if d.LibFlags != 0 {
		w.kv("LibFlags", strconv.FormatUint(uint64(d.LibFlags), 10))
	}
	if d.VersionCompatible32 != "" {
		w.kv("VersionCompatible32", d.VersionCompatible32)
	}

	if len(d.Constants) > 0 {
		w.section(sectionConstants)
		for _, c := range d.Constants {
			w.kv(c.Name, c.Value)
		}
	}

	for _, r := range d.References {
		w.section(sectionReference + r.Name)
		w.kv("Type", r.Kind())
		if r.NameUnicode != "" && r.NameUnicode != r.Name {
			w.kv("NameUnicode", r.NameUnicode)
		}
		switch {
		case r.Control != nil:
			c := r.Control
			if c.Original != nil {
				w.kv("Original", c.Original.Libid)
			}
			w.kv("Twiddled", c.Twiddled)
			if c.ExtendedName != nil {
				w.kv("ExtendedName", c.ExtendedName.Name)
				if c.ExtendedName.Unicode != c.ExtendedName.Name {
					w.kv("ExtendedNameUnicode", c.ExtendedName.Unicode)
				}
			}
			w.kv("Extended", c.Extended)
			w.kv("TypeLib", binrec.FormatGUID(c.TypeLib))
			w.kv("Cookie", strconv.FormatUint(uint64(c.Cookie), 10))
		case r.Project != nil:
			w.kv("Absolute", r.Project.Absolute)
			w.kv("Relative", r.Project.Relative)
			w.kv("Version", fmt.Sprintf("%d.%d", r.Project.MajorVersion, r.Project.MinorVersion))
		case r.Registered != nil:
			w.kv("Libid", r.Registered.Libid)
		}
	}

	if len(d.DocTLibVersions) > 0 {
		w.section(sectionDocTLib)
		for _, v := range d.DocTLibVersions {
			w.kv(v.Key, v.Value)
		}
	}

	w.section(sectionHostExtenders)
	for _, h := range d.HostExtenders {
		w.kv(h.Key, h.Value)
	}

	for _, m := range d.Modules {
		w.section(sectionModule + m.Name)
		if m.Description != "" {
			w.kv("Description", m.Description)
		}
		if m.HelpContextID != 0 {
			w.kv("HelpContextID", strconv.FormatUint(uint64(m.HelpContextID), 10))
		}
		if m.ReadOnly {
			w.kv("ReadOnly", "True")
		}
		if m.Private {
			w.kv("Private", "True")
		}
	}
	return w.b.String()
}

// DescriptorError reports a malformed Project.ini line.
type DescriptorError struct {
	Line   int
	Reason string
}

func (e *DescriptorError) Error() string {
	return fmt.Sprintf("Project.ini line %d: %s", e.Line, e.Reason)
}

type descriptorParser struct {
	d       *Descriptor
	line    int
	section string
	ref     *Reference
	mod     *ModuleFlags
}

func (p *descriptorParser) errorf(format string, args ...any) error {
	return &DescriptorError{Line: p.line, Reason: fmt.Sprintf(format, args...)}
}

func (p *descriptorParser) uint(v string, bits int) (uint64, error) {
	n, err := strconv.ParseUint(v, 10, bits)
	if err != nil {
		return 0, p.errorf("invalid number %q", v)
	}
	return n, nil
}

func (p *descriptorParser) version(v string) (uint32, uint16, error) {
	major, minor, ok := strings.Cut(v, ".")
	if !ok {
		return 0, 0, p.errorf("invalid version %q", v)
	}
	a, err := p.uint(major, 32)
	if err != nil {
		return 0, 0, err
	}
	b, err := p.uint(minor, 16)
	if err != nil {
		return 0, 0, err
	}
	return uint32(a), uint16(b), nil
}

// ParseDescriptor parses Project.ini text.
func ParseDescriptor(text string) (*Descriptor, error) {
	p := &descriptorParser{d: &Descriptor{}}
	for i, line := range strings.Split(text, "\n") {
		p.line = i + 1
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			if err := p.startSection(line[1 : len(line)-1]); err != nil {
				return nil, err
			}
			continue
		}
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			return nil, p.errorf("missing '=' in %q", line)
		}
		if err := p.value(k, v); err != nil {
			return nil, err
		}
	}
	for _, r := range p.d.References {
		if r.Kind() == "" {
			return nil, &DescriptorError{Reason: "reference " + r.Name + " has no Type"}
		}
		if r.NameUnicode == "" {
			r.NameUnicode = r.Name
		}
	}
	return p.d, nil
}

func (p *descriptorParser) startSection(name string) error {
	p.section, p.ref, p.mod = name, nil, nil
	switch {
	case name == sectionGeneral, name == sectionConstants, name == sectionDocTLib,
		name == sectionHostExtenders:
	case strings.HasPrefix(name, sectionReference):
		p.ref = &Reference{Name: strings.TrimPrefix(name, sectionReference)}
		p.d.References = append(p.d.References, p.ref)
	case strings.HasPrefix(name, sectionModule):
		p.d.Modules = append(p.d.Modules, ModuleFlags{Name: strings.TrimPrefix(name, sectionModule)})
		p.mod = &p.d.Modules[len(p.d.Modules)-1]
	default:
		return p.errorf("unknown section [%s]", name)
	}
	return nil
}

func (p *descriptorParser) value(k, v string) error {
	switch {
	case p.ref != nil:
		return p.referenceValue(k, v)
	case p.mod != nil:
		return p.moduleValue(k, v)
	}
	d := p.d
	switch p.section {
	case sectionConstants:
		d.Constants = append(d.Constants, Constant{Name: k, Value: v})
		return nil
	case sectionDocTLib:
		d.DocTLibVersions = append(d.DocTLibVersions, Property{Key: k, Value: v})
		return nil
	case sectionHostExtenders:
		d.HostExtenders = append(d.HostExtenders, Property{Key: k, Value: v})
		return nil
	case sectionGeneral:
	default:
		return p.errorf("value outside a section")
	}

	var n uint64
	var err error
	switch k {
	case "ID":
		d.ID = v
	case "Name":
		d.Name = v
	case "Description":
		d.Description = v
	case "HelpFile":
		d.HelpFile = v
	case "VersionCompatible32":
		d.VersionCompatible32 = v
	case "HelpContextID":
		n, err = p.uint(v, 32)
		d.HelpContextID = uint32(n)
	case "SysKind":
		n, err = p.uint(v, 32)
		d.SysKind = uint32(n)
	case "LCID":
		n, err = p.uint(v, 32)
		d.LCID = uint32(n)
	case "LCIDInvoke":
		n, err = p.uint(v, 32)
		d.LCIDInvoke = uint32(n)
	case "CodePage":
		n, err = p.uint(v, 16)
		d.CodePage = uint16(n)
	case "LibFlags":
		n, err = p.uint(v, 32)
		d.LibFlags = uint32(n)
	case "CompatVersion":
		n, err = p.uint(v, 32)
		c := uint32(n)
		d.CompatVersion = &c
	case "Version":
		d.VersionMajor, d.VersionMinor, err = p.version(v)
	default:
		return p.errorf("unknown key %q in [General]", k)
	}
	return err
}

func (p *descriptorParser) control() *ControlReference {
	if p.ref.Control == nil {
		p.ref.Control = &ControlReference{}
	}
	return p.ref.Control
}

func (p *descriptorParser) referenceValue(k, v string) error {
	r := p.ref
	switch k {
	case "Type":
		switch v {
		case "Control":
			p.control()
		case "Project":
			r.Project = &ProjectReference{}
		case "Registered":
			r.Registered = &RegisteredReference{}
		default:
			return p.errorf("unknown reference type %q", v)
		}
		return nil
	case "NameUnicode":
		r.NameUnicode = v
		return nil
	}

	switch {
	case r.Control != nil:
		c := r.Control
		switch k {
		case "Original":
			c.Original = &Original{Libid: v}
		case "Twiddled":
			c.Twiddled = v
		case "ExtendedName":
			c.ExtendedName = &ReferenceName{Name: v, Unicode: v}
		case "ExtendedNameUnicode":
			if c.ExtendedName == nil {
				return p.errorf("ExtendedNameUnicode before ExtendedName")
			}
			c.ExtendedName.Unicode = v
		case "Extended":
			c.Extended = v
		case "TypeLib":
			g, err := uuid.Parse(strings.Trim(v, "{}"))
			if err != nil {
				return p.errorf("invalid TypeLib %q", v)
			}
			c.TypeLib = g
		case "Cookie":
			n, err := p.uint(v, 32)
			c.Cookie = uint32(n)
			return err
		default:
			return p.errorf("unknown key %q for a control reference", k)
		}
	case r.Project != nil:
		switch k {
		case "Absolute":
			r.Project.Absolute = v
		case "Relative":
			r.Project.Relative = v
		case "Version":
			var err error
			r.Project.MajorVersion, r.Project.MinorVersion, err = p.version(v)
			return err
		default:
			return p.errorf("unknown key %q for a project reference", k)
		}
	case r.Registered != nil:
		if k != "Libid" {
			return p.errorf("unknown key %q for a registered reference", k)
		}
		r.Registered.Libid = v
	default:
		return p.errorf("reference key %q before Type", k)
	}
	return nil
}

func (p *descriptorParser) moduleValue(k, v string) error {
	m := p.mod
	switch k {
	case "Description":
		m.Description = v
	case "HelpContextID":
		n, err := p.uint(v, 32)
		m.HelpContextID = uint32(n)
		return err
	case "ReadOnly":
		m.ReadOnly = strings.EqualFold(v, "True")
	case "Private":
		m.Private = strings.EqualFold(v, "True")
	default:
		return p.errorf("unknown key %q in [Module %s]", k, m.Name)
	}
	return nil
}

// Apply writes the descriptor's settings into meta and stream. Module
// flags apply to the module records already present in meta.
func (d *Descriptor) Apply(meta *Metadata, stream *Stream) {
	meta.Name = d.Name
	meta.DocString, meta.DocStringUnicode = d.Description, d.Description
	meta.HelpFile1, meta.HelpFile2 = d.HelpFile, d.HelpFile
	meta.HelpContext = d.HelpContextID
	meta.SysKind = d.SysKind
	meta.LCID = d.LCID
	meta.LCIDInvoke = d.LCIDInvoke
	meta.CodePage = d.CodePage
	meta.VersionMajor, meta.VersionMinor = d.VersionMajor, d.VersionMinor
	meta.CompatVersion = d.CompatVersion
	meta.LibFlags = d.LibFlags
	constants := formatConstants(d.Constants)
	meta.Constants, meta.ConstantsUnicode = constants, constants
	meta.References = d.References

	for _, m := range meta.Modules {
		f := ModuleFlags{Name: m.Name}
		for _, g := range d.Modules {
			if equalFold(g.Name, m.Name) {
				f = g
				break
			}
		}
		m.DocString, m.DocStringUnicode = f.Description, f.Description
		m.HelpContext = f.HelpContextID
		m.ReadOnly = f.ReadOnly
		m.Private = f.Private
	}

	if d.ID != "" {
		stream.Set("ID", `"`+d.ID+`"`)
	}
	stream.Set("Name", `"`+d.Name+`"`)
	if d.HelpFile != "" {
		stream.Set("HelpFile", `"`+d.HelpFile+`"`)
	}
	stream.Set("HelpContextID", `"`+strconv.FormatUint(uint64(d.HelpContextID), 10)+`"`)
	if d.Description != "" {
		stream.Set("Description", `"`+d.Description+`"`)
	} else {
		stream.Unset("Description")
	}
	if d.VersionCompatible32 != "" {
		stream.Set("VersionCompatible32", `"`+d.VersionCompatible32+`"`)
	}
	stream.HostExtenders = d.HostExtenders
}

// DocTLibMap returns the DocTLib versions keyed by upper-case module name.
func (d *Descriptor) DocTLibMap() map[string]string {
	out := map[string]string{}
	for _, v := range d.DocTLibVersions {
		out[strings.ToUpper(v.Key)] = v.Value
	}
	return out
}
