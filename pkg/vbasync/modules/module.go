// Package modules holds the in-memory form of a VBA project's source: one
// Module per code module plus the project descriptor and license blob, and
// their mapping to files in a source folder.
package modules

import (
	"fmt"
	"sort"
	"strings"
)

// Type classifies a module.
type Type int

const (
	Standard Type = iota
	Class
	// StaticClass is a document module bound to a host object such as a
	// worksheet. The host owns its lifetime.
	StaticClass
	Form
	ProjectDescriptor
	LicenseBlob
)

func (t Type) String() string {
	switch t {
	case Standard:
		return "Standard"
	case Class:
		return "Class"
	case StaticClass:
		return "StaticClass"
	case Form:
		return "Form"
	case ProjectDescriptor:
		return "ProjectDescriptor"
	case LicenseBlob:
		return "LicenseBlob"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// Extension returns the file extension a module of this type is stored
// under, including the dot.
func (t Type) Extension() string {
	switch t {
	case Standard:
		return ".bas"
	case Class, StaticClass:
		return ".cls"
	case Form:
		return ".frm"
	case ProjectDescriptor:
		return ".ini"
	case LicenseBlob:
		return ".bin"
	default:
		return ""
	}
}

// IsCode reports whether the type is a VBA code module.
func (t Type) IsCode() bool {
	return t <= Form
}

// Reserved names of the two non-code modules.
const (
	DescriptorName = "Project"
	LicenseName    = "LicenseKeys"
)

// Module is one unit of the project as the sync engine sees it.
type Module struct {
	Name string
	Type Type
	// Text is the source, CRLF-terminated. Empty for LicenseBlob.
	Text string
	// Binary is the .frx file for forms and the raw stream for the
	// license blob.
	Binary []byte
}

// FileName returns the module's file name in a source folder.
func (m *Module) FileName() string {
	return m.Name + m.Type.Extension()
}

// Clone returns a deep copy.
func (m *Module) Clone() *Module {
	c := *m
	if m.Binary != nil {
		c.Binary = append([]byte(nil), m.Binary...)
	}
	return &c
}

// Set is an ordered collection of modules keyed by case-insensitive name.
// The case of the first insertion is kept.
type Set struct {
	order []string
	byKey map[string]*Module
}

// NewSet creates a set holding mods in order.
func NewSet(mods ...*Module) *Set {
	s := &Set{byKey: map[string]*Module{}}
	for _, m := range mods {
		s.Put(m)
	}
	return s
}

func key(name string) string {
	return strings.ToUpper(name)
}

// Put adds m or replaces the module of the same name in place.
func (s *Set) Put(m *Module) {
	k := key(m.Name)
	if _, ok := s.byKey[k]; !ok {
		s.order = append(s.order, k)
	}
	s.byKey[k] = m
}

// Get returns the module named name.
func (s *Set) Get(name string) (*Module, bool) {
	m, ok := s.byKey[key(name)]
	return m, ok
}

// Remove deletes the module named name, if present.
func (s *Set) Remove(name string) {
	k := key(name)
	if _, ok := s.byKey[k]; !ok {
		return
	}
	delete(s.byKey, k)
	for i, o := range s.order {
		if o == k {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Len returns the number of modules.
func (s *Set) Len() int {
	return len(s.order)
}

// Modules returns the modules in insertion order.
func (s *Set) Modules() []*Module {
	out := make([]*Module, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, s.byKey[k])
	}
	return out
}

// Names returns the module names in insertion order.
func (s *Set) Names() []string {
	out := make([]string, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, s.byKey[k].Name)
	}
	return out
}

// SortedNames returns the module names ordered case-insensitively.
func (s *Set) SortedNames() []string {
	names := s.Names()
	sort.Slice(names, func(i, j int) bool { return key(names[i]) < key(names[j]) })
	return names
}

// Code returns the code modules in insertion order.
func (s *Set) Code() []*Module {
	var out []*Module
	for _, m := range s.Modules() {
		if m.Type.IsCode() {
			out = append(out, m)
		}
	}
	return out
}

// Clone returns a deep copy.
func (s *Set) Clone() *Set {
	c := NewSet()
	for _, m := range s.Modules() {
		c.Put(m.Clone())
	}
	return c
}
