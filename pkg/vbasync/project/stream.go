package project

import (
	"fmt"
	"strings"

	"github.com/arthur-debert/vbasync/pkg/vbasync/modules"
)

// Property is one key=value line.
type Property struct {
	Key   string
	Value string
}

// Section names of the PROJECT stream.
const (
	sectionHostExtenders = "Host Extender Info"
	sectionWorkspace     = "Workspace"
)

// Module declaration keys of the PROJECT stream.
const (
	keyDocument  = "Document"
	keyModule    = "Module"
	keyClass     = "Class"
	keyBaseClass = "BaseClass"
	keyPackage   = "Package"
)

// FormsPackage is the Package line VBA writes for projects with forms.
const FormsPackage = "{AC9F2F90-E877-11CE-9F68-00AA00574A4F}"

// DefaultDocTLibVersion is the version suffix of a Document line.
const DefaultDocTLibVersion = "&H00000000"

// Stream is the textual PROJECT stream. Lines keep their order so that an
// unmodified stream encodes to the same bytes.
type Stream struct {
	Properties    []Property
	HostExtenders []Property
	Workspace     []Property
}

// ParseStream parses PROJECT stream text.
func ParseStream(text string) (*Stream, error) {
	s := &Stream{}
	target := &s.Properties
	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			switch line[1 : len(line)-1] {
			case sectionHostExtenders:
				target = &s.HostExtenders
			case sectionWorkspace:
				target = &s.Workspace
			default:
				return nil, fmt.Errorf("PROJECT line %d: unknown section %s", i+1, line)
			}
			continue
		}
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("PROJECT line %d: missing '=' in %q", i+1, line)
		}
		*target = append(*target, Property{Key: k, Value: v})
	}
	return s, nil
}

// String renders the stream with CRLF line ends.
func (s *Stream) String() string {
	var b strings.Builder
	for _, p := range s.Properties {
		b.WriteString(p.Key + "=" + p.Value + "\r\n")
	}
	b.WriteString("\r\n[" + sectionHostExtenders + "]\r\n")
	for _, p := range s.HostExtenders {
		b.WriteString(p.Key + "=" + p.Value + "\r\n")
	}
	if len(s.Workspace) > 0 {
		b.WriteString("\r\n[" + sectionWorkspace + "]\r\n")
		for _, p := range s.Workspace {
			b.WriteString(p.Key + "=" + p.Value + "\r\n")
		}
	}
	return b.String()
}

// Get returns the value of the first property named key.
func (s *Stream) Get(key string) (string, bool) {
	for _, p := range s.Properties {
		if equalFold(p.Key, key) {
			return p.Value, true
		}
	}
	return "", false
}

// Set replaces the first property named key or appends it.
func (s *Stream) Set(key, value string) {
	for i, p := range s.Properties {
		if equalFold(p.Key, key) {
			s.Properties[i].Value = value
			return
		}
	}
	s.Properties = append(s.Properties, Property{Key: key, Value: value})
}

// Unset removes every property named key.
func (s *Stream) Unset(key string) {
	out := s.Properties[:0]
	for _, p := range s.Properties {
		if !equalFold(p.Key, key) {
			out = append(out, p)
		}
	}
	s.Properties = out
}

// Quoted returns the value of key without surrounding quotes.
func (s *Stream) Quoted(key string) string {
	v, _ := s.Get(key)
	return strings.Trim(v, `"`)
}

// ModuleTypes maps each declared module name to its type.
func (s *Stream) ModuleTypes() map[string]modules.Type {
	out := map[string]modules.Type{}
	for _, p := range s.Properties {
		switch {
		case equalFold(p.Key, keyDocument):
			name, _, _ := strings.Cut(p.Value, "/")
			out[strings.ToUpper(name)] = modules.StaticClass
		case equalFold(p.Key, keyModule):
			out[strings.ToUpper(p.Value)] = modules.Standard
		case equalFold(p.Key, keyClass):
			out[strings.ToUpper(p.Value)] = modules.Class
		case equalFold(p.Key, keyBaseClass):
			out[strings.ToUpper(p.Value)] = modules.Form
		}
	}
	return out
}

// DocTLibVersions returns the version suffix of each Document line.
func (s *Stream) DocTLibVersions() []Property {
	var out []Property
	for _, p := range s.Properties {
		if equalFold(p.Key, keyDocument) {
			name, ver, _ := strings.Cut(p.Value, "/")
			out = append(out, Property{Key: name, Value: ver})
		}
	}
	return out
}

func isModuleKey(key string) bool {
	for _, k := range []string{keyDocument, keyModule, keyClass, keyBaseClass} {
		if equalFold(key, k) {
			return true
		}
	}
	return false
}

// SetModules replaces the module declaration lines with one line per code
// module, in order, at the position of the first old declaration. Document
// lines take their version from docTLib, defaulting to
// DefaultDocTLibVersion. A Package line is added when forms are present.
func (s *Stream) SetModules(mods []*modules.Module, docTLib map[string]string) {
	var decl []Property
	hasForm := false
	for _, m := range mods {
		switch m.Type {
		case modules.StaticClass:
			ver, ok := docTLib[strings.ToUpper(m.Name)]
			if !ok {
				ver = DefaultDocTLibVersion
			}
			decl = append(decl, Property{Key: keyDocument, Value: m.Name + "/" + ver})
		case modules.Standard:
			decl = append(decl, Property{Key: keyModule, Value: m.Name})
		case modules.Class:
			decl = append(decl, Property{Key: keyClass, Value: m.Name})
		case modules.Form:
			decl = append(decl, Property{Key: keyBaseClass, Value: m.Name})
			hasForm = true
		}
	}

	at := -1
	var rest []Property
	for _, p := range s.Properties {
		if isModuleKey(p.Key) {
			if at < 0 {
				at = len(rest)
			}
			continue
		}
		rest = append(rest, p)
	}
	if at < 0 {
		at = 0
		if len(rest) > 0 && equalFold(rest[0].Key, "ID") {
			at = 1
		}
	}
	props := append([]Property(nil), rest[:at]...)
	props = append(props, decl...)
	props = append(props, rest[at:]...)
	s.Properties = props

	if _, ok := s.Get(keyPackage); hasForm && !ok {
		s.insertAfterModules(Property{Key: keyPackage, Value: FormsPackage})
	}
}

func (s *Stream) insertAfterModules(p Property) {
	at := 0
	for i, q := range s.Properties {
		if isModuleKey(q.Key) || equalFold(q.Key, "ID") {
			at = i + 1
		}
	}
	s.Properties = append(s.Properties[:at], append([]Property{p}, s.Properties[at:]...)...)
}

// DropWorkspace removes workspace entries of modules not in keep.
func (s *Stream) DropWorkspace(keep func(name string) bool) {
	out := s.Workspace[:0]
	for _, p := range s.Workspace {
		if keep(p.Key) {
			out = append(out, p)
		}
	}
	s.Workspace = out
}
