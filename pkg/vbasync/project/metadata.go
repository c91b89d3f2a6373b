// Package project reads and writes the metadata of a VBA project: the
// compressed "dir" record stream, the textual PROJECT stream, the
// PROJECTwm name map, and the Project.ini descriptor derived from them.
package project

import "github.com/google/uuid"

// Metadata is the decoded dir stream.
type Metadata struct {
	SysKind          uint32
	CompatVersion    *uint32
	LCID             uint32
	LCIDInvoke       uint32
	CodePage         uint16
	Name             string
	DocString        string
	DocStringUnicode string
	HelpFile1        string
	HelpFile2        string
	HelpContext      uint32
	LibFlags         uint32
	VersionMajor     uint32
	VersionMinor     uint16
	Constants        string
	ConstantsUnicode string
	References       []*Reference
	Cookie           uint16
	Modules          []*ModuleRecord
}

// Module returns the record of the module named name, matched without
// regard to case.
func (m *Metadata) Module(name string) *ModuleRecord {
	for _, r := range m.Modules {
		if equalFold(r.Name, name) {
			return r
		}
	}
	return nil
}

// SysKind values.
const (
	SysKindWin16 = 0
	SysKindWin32 = 1
	SysKindMac   = 2
	SysKindWin64 = 3
)

// ModuleRecord is the per-module part of the dir stream.
type ModuleRecord struct {
	Name              string
	NameUnicode       string
	StreamName        string
	StreamNameUnicode string
	DocString         string
	DocStringUnicode  string
	Offset            uint32
	HelpContext       uint32
	Cookie            uint16
	// NonProcedural marks class, document and form modules.
	NonProcedural bool
	ReadOnly      bool
	Private       bool
}

// Reference is one entry of the project's reference list. Exactly one of
// Control, Project and Registered is set.
type Reference struct {
	Name        string
	NameUnicode string
	Control     *ControlReference
	Project     *ProjectReference
	Registered  *RegisteredReference
}

// Kind names the reference variant.
func (r *Reference) Kind() string {
	switch {
	case r.Control != nil:
		return "Control"
	case r.Project != nil:
		return "Project"
	case r.Registered != nil:
		return "Registered"
	default:
		return ""
	}
}

// Original is the optional original-libid record that precedes a control
// reference.
type Original struct {
	Libid string
}

// ReferenceName is a name record with its Unicode companion.
type ReferenceName struct {
	Name    string
	Unicode string
}

// ControlReference refers to an ActiveX control type library.
type ControlReference struct {
	Original     *Original
	Twiddled     string
	ExtendedName *ReferenceName
	Extended     string
	TypeLib      uuid.UUID
	Cookie       uint32
}

// ProjectReference refers to another VBA project.
type ProjectReference struct {
	Absolute     string
	Relative     string
	MajorVersion uint32
	MinorVersion uint16
}

// RegisteredReference refers to a registered type library.
type RegisteredReference struct {
	Libid string
}
