package project

import (
	"fmt"

	"github.com/arthur-debert/vbasync/pkg/vbasync/binrec"
	"github.com/arthur-debert/vbasync/pkg/vbasync/core"
	"github.com/arthur-debert/vbasync/pkg/vbasync/filesystem"
)

// dir stream record ids.
const (
	idSysKind           = 0x0001
	idLCID              = 0x0002
	idCodePage          = 0x0003
	idName              = 0x0004
	idDocString         = 0x0005
	idHelpFile1         = 0x0006
	idHelpContext       = 0x0007
	idLibFlags          = 0x0008
	idVersion           = 0x0009
	idConstants         = 0x000C
	idRegistered        = 0x000D
	idProject           = 0x000E
	idModuleCount       = 0x000F
	idTerminator        = 0x0010
	idProjectCookie     = 0x0013
	idLCIDInvoke        = 0x0014
	idReferenceName     = 0x0016
	idModuleName        = 0x0019
	idStreamName        = 0x001A
	idModuleDocString   = 0x001C
	idModuleHelpContext = 0x001E
	idProcedural        = 0x0021
	idNonProcedural     = 0x0022
	idReadOnly          = 0x0025
	idPrivate           = 0x0028
	idModuleEnd         = 0x002B
	idModuleCookie      = 0x002C
	idControl           = 0x002F
	idExtended          = 0x0030
	idModuleOffset      = 0x0031
	idStreamNameUnicode = 0x0032
	idOriginal          = 0x0033
	idConstantsUnicode  = 0x003C
	idHelpFile2         = 0x003D
	idNameUnicode       = 0x003E
	idDocStringUnicode  = 0x0040
	idModuleNameUnicode = 0x0047
	idModuleDocUnicode  = 0x0048
	idCompatVersion     = 0x004A
)

// versionPayload is the byte length of PROJECTVERSION's payload, which
// declares a size of 4.
const versionPayload = 6

type refState int

const (
	refNone refState = iota
	refNamed
	refOriginal
	refTwiddled
	refExtendedName
	refDone
)

type dirDecoder struct {
	r     *binrec.Reader
	meta  *Metadata
	codec *filesystem.Codec

	ref         *Reference
	state       refState
	unicodeName *string

	mod         *ModuleRecord
	moduleCount int
	sawCount    bool
}

// DecodeDir decodes a decompressed dir stream.
func DecodeDir(buf []byte) (*Metadata, error) {
	d := &dirDecoder{
		r:     binrec.NewReader("dir", buf),
		meta:  &Metadata{},
		codec: filesystem.MustCodec(filesystem.DefaultCodePage),
	}
	if err := d.run(); err != nil {
		return nil, err
	}
	return d.meta, nil
}

func (d *dirDecoder) fail(id uint16, offset int, reason string, err error) error {
	return &core.RecordError{Stream: "dir", ID: id, Offset: offset, Reason: reason, Err: err}
}

func (d *dirDecoder) run() error {
	for {
		if d.r.Remaining() == 0 {
			return fmt.Errorf("dir: stream ends at offset %d without a terminator: %w", d.r.Pos(), core.ErrSizeMismatch)
		}
		offset := d.r.Pos()
		id := d.r.RawU16()
		size := int(d.r.RawU32())
		if err := d.r.Err(); err != nil {
			return err
		}

		if id == idVersion {
			d.meta.VersionMajor = d.r.RawU32()
			d.meta.VersionMinor = d.r.RawU16()
			if err := d.r.Err(); err != nil {
				return err
			}
			continue
		}
		if id == idTerminator {
			break
		}

		p := d.r.Sub(size, fmt.Sprintf("record 0x%04X", id))
		if err := d.r.Err(); err != nil {
			return err
		}
		if err := d.record(id, p, offset); err != nil {
			return err
		}
		if err := p.Err(); err != nil {
			return err
		}
		if err := p.AssertConsumed(size, 0, fmt.Sprintf("record 0x%04X", id)); err != nil {
			return err
		}
	}

	if d.r.Remaining() != 0 {
		return d.r.AssertConsumed(d.r.Len(), 0, "terminator")
	}
	if d.mod != nil {
		return d.fail(idTerminator, d.r.Pos(), "module "+d.mod.Name+" is not terminated", core.ErrRecordOrder)
	}
	if err := d.closeReference(idTerminator, d.r.Pos()); err != nil {
		return err
	}
	if d.sawCount && d.moduleCount != len(d.meta.Modules) {
		return &core.SizeMismatchError{
			Stream:   "dir",
			Path:     "PROJECTMODULES",
			Declared: d.moduleCount,
			Consumed: len(d.meta.Modules),
		}
	}
	return nil
}

func (d *dirDecoder) mbcs(p *binrec.Reader) string {
	s, err := d.codec.Decode(p.Rest())
	if err != nil {
		p.Fail(err)
	}
	return s
}

func (d *dirDecoder) utf16(p *binrec.Reader) string {
	s, err := decodeUTF16(p.Rest())
	if err != nil {
		p.Fail(err)
	}
	return s
}

func (d *dirDecoder) libid(p *binrec.Reader) string {
	n := int(p.RawU32())
	s, err := d.codec.Decode(p.Bytes(n))
	if err != nil {
		p.Fail(err)
	}
	return s
}

// closeReference checks that the reference being assembled is complete.
func (d *dirDecoder) closeReference(id uint16, offset int) error {
	switch d.state {
	case refNamed, refOriginal:
		return d.fail(id, offset, "reference "+d.ref.Name+" has no body", core.ErrMalformedReference)
	case refExtendedName:
		return d.fail(id, offset, "reference "+d.ref.Name+" has no extended record", core.ErrMalformedReference)
	}
	d.ref, d.state, d.unicodeName = nil, refNone, nil
	return nil
}

func (d *dirDecoder) record(id uint16, p *binrec.Reader, offset int) error {
	m := d.meta
	switch id {
	case idSysKind:
		m.SysKind = p.RawU32()
	case idCompatVersion:
		v := p.RawU32()
		m.CompatVersion = &v
	case idLCID:
		m.LCID = p.RawU32()
	case idLCIDInvoke:
		m.LCIDInvoke = p.RawU32()
	case idCodePage:
		m.CodePage = p.RawU16()
		codec, err := filesystem.CodecFor(m.CodePage)
		if err != nil {
			return d.fail(id, offset, err.Error(), core.ErrUnrecognizedRecord)
		}
		d.codec = codec
	case idName:
		m.Name = d.mbcs(p)
	case idDocString:
		m.DocString = d.mbcs(p)
	case idDocStringUnicode:
		m.DocStringUnicode = d.utf16(p)
	case idHelpFile1:
		m.HelpFile1 = d.mbcs(p)
	case idHelpFile2:
		m.HelpFile2 = d.mbcs(p)
	case idHelpContext:
		m.HelpContext = p.RawU32()
	case idLibFlags:
		m.LibFlags = p.RawU32()
	case idConstants:
		m.Constants = d.mbcs(p)
	case idConstantsUnicode:
		m.ConstantsUnicode = d.utf16(p)

	case idReferenceName, idNameUnicode, idOriginal, idControl, idExtended, idRegistered, idProject:
		return d.reference(id, p, offset)

	case idModuleCount:
		if err := d.closeReference(id, offset); err != nil {
			return err
		}
		d.moduleCount = int(p.RawU16())
		d.sawCount = true
	case idProjectCookie:
		m.Cookie = p.RawU16()
	case idModuleName:
		if d.mod != nil {
			return d.fail(id, offset, "module "+d.mod.Name+" is not terminated", core.ErrRecordOrder)
		}
		d.mod = &ModuleRecord{Name: d.mbcs(p)}
	default:
		return d.moduleRecord(id, p, offset)
	}
	return nil
}

func (d *dirDecoder) reference(id uint16, p *binrec.Reader, offset int) error {
	switch id {
	case idReferenceName:
		name := d.mbcs(p)
		if d.state == refTwiddled {
			d.ref.Control.ExtendedName = &ReferenceName{Name: name}
			d.unicodeName = &d.ref.Control.ExtendedName.Unicode
			d.state = refExtendedName
			return nil
		}
		if err := d.closeReference(id, offset); err != nil {
			return err
		}
		d.ref = &Reference{Name: name}
		d.meta.References = append(d.meta.References, d.ref)
		d.unicodeName = &d.ref.NameUnicode
		d.state = refNamed
	case idNameUnicode:
		if d.unicodeName == nil {
			return d.fail(id, offset, "unicode name without a name record", core.ErrMalformedReference)
		}
		*d.unicodeName = d.utf16(p)
		d.unicodeName = nil
	case idOriginal:
		if d.state != refNamed {
			return d.fail(id, offset, "original record without a name record", core.ErrMalformedReference)
		}
		d.ref.Control = &ControlReference{Original: &Original{Libid: d.mbcs(p)}}
		d.state = refOriginal
	case idControl:
		if d.state != refNamed && d.state != refOriginal {
			return d.fail(id, offset, "control record without a name record", core.ErrMalformedReference)
		}
		if d.ref.Control == nil {
			d.ref.Control = &ControlReference{}
		}
		d.ref.Control.Twiddled = d.libid(p)
		p.RawU32()
		p.RawU16()
		d.state = refTwiddled
	case idExtended:
		if d.state != refTwiddled && d.state != refExtendedName {
			return d.fail(id, offset, "extended record without a control record", core.ErrMalformedReference)
		}
		c := d.ref.Control
		c.Extended = d.libid(p)
		p.RawU32()
		p.RawU16()
		c.TypeLib = p.GUID()
		c.Cookie = p.RawU32()
		d.state = refDone
	case idRegistered:
		if d.state != refNamed {
			return d.fail(id, offset, "registered record without a name record", core.ErrMalformedReference)
		}
		d.ref.Registered = &RegisteredReference{Libid: d.libid(p)}
		p.RawU32()
		p.RawU16()
		d.state = refDone
	case idProject:
		if d.state != refNamed {
			return d.fail(id, offset, "project record without a name record", core.ErrMalformedReference)
		}
		pr := &ProjectReference{}
		pr.Absolute = d.libid(p)
		pr.Relative = d.libid(p)
		pr.MajorVersion = p.RawU32()
		pr.MinorVersion = p.RawU16()
		d.ref.Project = pr
		d.state = refDone
	}
	return nil
}

func (d *dirDecoder) moduleRecord(id uint16, p *binrec.Reader, offset int) error {
	switch id {
	case idModuleNameUnicode, idStreamName, idStreamNameUnicode, idModuleDocString,
		idModuleDocUnicode, idModuleOffset, idModuleHelpContext, idModuleCookie,
		idProcedural, idNonProcedural, idReadOnly, idPrivate, idModuleEnd:
	default:
		return d.fail(id, offset, "unknown record", core.ErrUnrecognizedRecord)
	}
	mod := d.mod
	if mod == nil {
		return d.fail(id, offset, "module record outside a module", core.ErrRecordOrder)
	}
	switch id {
	case idModuleNameUnicode:
		mod.NameUnicode = d.utf16(p)
	case idStreamName:
		mod.StreamName = d.mbcs(p)
	case idStreamNameUnicode:
		mod.StreamNameUnicode = d.utf16(p)
	case idModuleDocString:
		mod.DocString = d.mbcs(p)
	case idModuleDocUnicode:
		mod.DocStringUnicode = d.utf16(p)
	case idModuleOffset:
		mod.Offset = p.RawU32()
	case idModuleHelpContext:
		mod.HelpContext = p.RawU32()
	case idModuleCookie:
		mod.Cookie = p.RawU16()
	case idProcedural:
		mod.NonProcedural = false
	case idNonProcedural:
		mod.NonProcedural = true
	case idReadOnly:
		mod.ReadOnly = true
	case idPrivate:
		mod.Private = true
	case idModuleEnd:
		d.meta.Modules = append(d.meta.Modules, mod)
		d.mod = nil
	}
	return nil
}

type dirEncoder struct {
	w     *binrec.Writer
	codec *filesystem.Codec
	err   error
}

func (e *dirEncoder) record(id uint16, payload []byte) {
	e.w.RawU16(id)
	e.w.RawU32(uint32(len(payload)))
	e.w.Write(payload)
}

func (e *dirEncoder) bytes(s string) []byte {
	b, err := e.codec.Encode(s)
	if err != nil && e.err == nil {
		e.err = err
	}
	return b
}

func (e *dirEncoder) u16(id uint16, v uint16) {
	w := binrec.NewWriter()
	w.RawU16(v)
	e.record(id, w.Bytes())
}

func (e *dirEncoder) u32(id uint16, v uint32) {
	w := binrec.NewWriter()
	w.RawU32(v)
	e.record(id, w.Bytes())
}

func (e *dirEncoder) mbcs(id uint16, s string) {
	e.record(id, e.bytes(s))
}

func (e *dirEncoder) utf16(id uint16, s string) {
	e.record(id, encodeUTF16(s))
}

func (e *dirEncoder) libid(w *binrec.Writer, s string) {
	b := e.bytes(s)
	w.RawU32(uint32(len(b)))
	w.Write(b)
}

func (e *dirEncoder) name(name, unicode string) {
	e.mbcs(idReferenceName, name)
	e.utf16(idNameUnicode, unicode)
}

// EncodeDir encodes m as an uncompressed dir stream. Decoding a stream and
// encoding the result reproduces it byte for byte.
func EncodeDir(m *Metadata) ([]byte, error) {
	codec, err := filesystem.CodecFor(m.CodePage)
	if err != nil {
		return nil, err
	}
	e := &dirEncoder{w: binrec.NewWriter(), codec: codec}

	e.u32(idSysKind, m.SysKind)
	if m.CompatVersion != nil {
		e.u32(idCompatVersion, *m.CompatVersion)
	}
	e.u32(idLCID, m.LCID)
	e.u32(idLCIDInvoke, m.LCIDInvoke)
	e.u16(idCodePage, m.CodePage)
	e.mbcs(idName, m.Name)
	e.mbcs(idDocString, m.DocString)
	e.utf16(idDocStringUnicode, m.DocStringUnicode)
	e.mbcs(idHelpFile1, m.HelpFile1)
	e.mbcs(idHelpFile2, m.HelpFile2)
	e.u32(idHelpContext, m.HelpContext)
	e.u32(idLibFlags, m.LibFlags)
	e.w.RawU16(idVersion)
	e.w.RawU32(4)
	e.w.RawU32(m.VersionMajor)
	e.w.RawU16(m.VersionMinor)
	e.mbcs(idConstants, m.Constants)
	e.utf16(idConstantsUnicode, m.ConstantsUnicode)

	for _, r := range m.References {
		if err := e.reference(r); err != nil {
			return nil, err
		}
	}

	e.u16(idModuleCount, uint16(len(m.Modules)))
	e.u16(idProjectCookie, m.Cookie)
	for _, mod := range m.Modules {
		e.mbcs(idModuleName, mod.Name)
		e.utf16(idModuleNameUnicode, mod.NameUnicode)
		e.mbcs(idStreamName, mod.StreamName)
		e.utf16(idStreamNameUnicode, mod.StreamNameUnicode)
		e.mbcs(idModuleDocString, mod.DocString)
		e.utf16(idModuleDocUnicode, mod.DocStringUnicode)
		e.u32(idModuleOffset, mod.Offset)
		e.u32(idModuleHelpContext, mod.HelpContext)
		e.u16(idModuleCookie, mod.Cookie)
		if mod.NonProcedural {
			e.record(idNonProcedural, nil)
		} else {
			e.record(idProcedural, nil)
		}
		if mod.ReadOnly {
			e.record(idReadOnly, nil)
		}
		if mod.Private {
			e.record(idPrivate, nil)
		}
		e.record(idModuleEnd, nil)
	}
	e.record(idTerminator, nil)

	if e.err != nil {
		return nil, e.err
	}
	return e.w.Bytes(), nil
}

func (e *dirEncoder) reference(r *Reference) error {
	e.name(r.Name, r.NameUnicode)
	switch {
	case r.Control != nil:
		c := r.Control
		if c.Original != nil {
			e.mbcs(idOriginal, c.Original.Libid)
		}
		w := binrec.NewWriter()
		e.libid(w, c.Twiddled)
		w.RawU32(0)
		w.RawU16(0)
		e.record(idControl, w.Bytes())
		if c.ExtendedName != nil {
			e.name(c.ExtendedName.Name, c.ExtendedName.Unicode)
		}
		w = binrec.NewWriter()
		e.libid(w, c.Extended)
		w.RawU32(0)
		w.RawU16(0)
		w.GUID(c.TypeLib)
		w.RawU32(c.Cookie)
		e.record(idExtended, w.Bytes())
	case r.Registered != nil:
		w := binrec.NewWriter()
		e.libid(w, r.Registered.Libid)
		w.RawU32(0)
		w.RawU16(0)
		e.record(idRegistered, w.Bytes())
	case r.Project != nil:
		w := binrec.NewWriter()
		e.libid(w, r.Project.Absolute)
		e.libid(w, r.Project.Relative)
		w.RawU32(r.Project.MajorVersion)
		w.RawU16(r.Project.MinorVersion)
		e.record(idProject, w.Bytes())
	default:
		return fmt.Errorf("reference %s: no reference body: %w", r.Name, core.ErrMalformedReference)
	}
	return nil
}
