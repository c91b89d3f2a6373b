package project

import (
	"encoding/binary"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/vbasync/pkg/vbasync/core"
	"github.com/arthur-debert/vbasync/pkg/vbasync/filesystem"
	"github.com/arthur-debert/vbasync/pkg/vbasync/frx"
	"github.com/arthur-debert/vbasync/pkg/vbasync/modules"
	"github.com/arthur-debert/vbasync/pkg/vbasync/ovba"
	"github.com/arthur-debert/vbasync/pkg/vbasync/storage"
	"github.com/arthur-debert/vbasync/pkg/vbasync/storage/cfb"
)

func moduleRecord(name string, nonProcedural bool) *ModuleRecord {
	return &ModuleRecord{
		Name:              name,
		NameUnicode:       name,
		StreamName:        name,
		StreamNameUnicode: name,
		Cookie:            0xFFFF,
		NonProcedural:     nonProcedural,
	}
}

func sampleMeta() *Metadata {
	compat := uint32(0x0000005E)
	return &Metadata{
		SysKind:          SysKindWin64,
		CompatVersion:    &compat,
		LCID:             0x0409,
		LCIDInvoke:       0x0409,
		CodePage:         1252,
		Name:             "VBAProject",
		DocString:        "Sample",
		DocStringUnicode: "Sample",
		HelpFile1:        "",
		HelpFile2:        "",
		HelpContext:      0,
		LibFlags:         0,
		VersionMajor:     1427018365,
		VersionMinor:     5,
		Constants:        "DEBUG = 1 : TRACE = 0",
		ConstantsUnicode: "DEBUG = 1 : TRACE = 0",
		References: []*Reference{
			{
				Name:        "stdole",
				NameUnicode: "stdole",
				Registered: &RegisteredReference{
					Libid: `*\G{00020430-0000-0000-C000-000000000046}#2.0#0#C:\Windows\System32\stdole2.tlb#OLE Automation`,
				},
			},
			{
				Name:        "MSForms",
				NameUnicode: "MSForms",
				Control: &ControlReference{
					Original:     &Original{Libid: `*\G{0D452EE1-E08F-101A-852E-02608C4D0BB4}#2.0#0#FM20.DLL#Microsoft Forms 2.0 Object Library`},
					Twiddled:     `*\G{00000000-0000-0000-0000-000000000000}#0.0#0##`,
					ExtendedName: &ReferenceName{Name: "MSForms", Unicode: "MSForms"},
					Extended:     `*\G{7C0F7D2A-0000-0000-0000-000000000000}#2.0#0#C:\Temp\MSForms.exd#Microsoft Forms 2.0 Object Library`,
					TypeLib:      uuid.MustParse("0d452ee1-e08f-101a-852e-02608c4d0bb4"),
					Cookie:       42,
				},
			},
			{
				Name:        "Shared",
				NameUnicode: "Shared",
				Project: &ProjectReference{
					Absolute:     `*\CC:\Shared\Shared.xlam`,
					Relative:     `*\CShared.xlam`,
					MajorVersion: 1,
					MinorVersion: 2,
				},
			},
		},
		Cookie: 0xFFFF,
		Modules: []*ModuleRecord{
			moduleRecord("Sheet1", true),
			moduleRecord("Module1", false),
			moduleRecord("Class1", true),
			moduleRecord("UserForm1", true),
		},
	}
}

const sampleStream = "ID=\"{11111111-2222-3333-4444-555555555555}\"\r\n" +
	"Document=Sheet1/&H00000000\r\n" +
	"Module=Module1\r\n" +
	"Class=Class1\r\n" +
	"BaseClass=UserForm1\r\n" +
	"Package={AC9F2F90-E877-11CE-9F68-00AA00574A4F}\r\n" +
	"Name=\"VBAProject\"\r\n" +
	"HelpContextID=\"0\"\r\n" +
	"Description=\"Sample\"\r\n" +
	"VersionCompatible32=\"393222000\"\r\n" +
	"CMG=\"0A08A4C2A8C2A8C2A8C2A8\"\r\n" +
	"\r\n[Host Extender Info]\r\n" +
	"&H00000001={3832D640-CF90-11CF-8E43-00A0C911005A};VBE;&H00000000\r\n" +
	"\r\n[Workspace]\r\n" +
	"Sheet1=0, 0, 0, 0, C\r\n" +
	"Module1=26, 26, 1000, 500, Z\r\n" +
	"Class1=52, 52, 1000, 500, C\r\n"

var sampleSources = map[string]string{
	"Sheet1": "Attribute VB_Name = \"Sheet1\"\r\nAttribute VB_Base = \"0{00020820-0000-0000-C000-000000000046}\"\r\n" +
		"Private Sub Worksheet_Activate()\r\nEnd Sub\r\n",
	"Module1":   "Attribute VB_Name = \"Module1\"\r\nPublic Sub Main()\r\n    MsgBox \"hi\"\r\nEnd Sub\r\n",
	"Class1":    "Attribute VB_Name = \"Class1\"\r\nPublic Value As Long\r\n",
	"UserForm1": "Attribute VB_Name = \"UserForm1\"\r\nPrivate Sub UserForm_Click()\r\nEnd Sub\r\n",
}

const sampleFrame = "VERSION 5.00\r\nBegin {C62A69F0-16DC-11CE-9E98-00AA00574A4F} UserForm1\r\n" +
	"   Caption         =   \"UserForm1\"\r\nEnd\r\n"

func newSampleStorage(t *testing.T) *storage.Memory {
	t.Helper()
	root := storage.NewMemory()
	vba := root.AddStorage(StorageVBA)
	dir, err := EncodeDir(sampleMeta())
	require.NoError(t, err)
	vba.SetStream(StreamDir, ovba.Compress(dir))
	vba.SetStream(StreamVBACache, []byte{0xCC, 0x61, 0xB5, 0x00, 0x00, 0x01, 0x00, 0xFF})
	vba.SetStream("__SRP_0", []byte{1, 2, 3})
	for name, src := range sampleSources {
		vba.SetStream(name, ovba.Compress([]byte(src)))
	}
	root.SetStream(StreamProject, []byte(sampleStream))
	root.SetStream(StreamLicense, []byte{0x01, 0x02})

	form := root.AddStorage("UserForm1")
	form.SetStream(StreamVBFrame, []byte(sampleFrame))
	form.SetStream("f", []byte{0x00, 0x04, 0x18, 0x00})
	form.SetStream("o", []byte{})
	return root
}

func mustOpen(t *testing.T, root storage.Storage) *Project {
	t.Helper()
	p, err := Open(root, zerolog.Nop())
	require.NoError(t, err)
	return p
}

func TestDirRoundTrip(t *testing.T) {
	meta := sampleMeta()
	encoded, err := EncodeDir(meta)
	require.NoError(t, err)

	decoded, err := DecodeDir(encoded)
	require.NoError(t, err)
	assert.Equal(t, meta, decoded)

	again, err := EncodeDir(decoded)
	require.NoError(t, err)
	assert.Equal(t, encoded, again)
}

func TestDirVersionRecord(t *testing.T) {
	encoded, err := EncodeDir(sampleMeta())
	require.NoError(t, err)

	offset := recordOffset(t, encoded, idVersion)
	assert.Equal(t, uint32(4), binary.LittleEndian.Uint32(encoded[offset+2:]))
	assert.Equal(t, uint32(1427018365), binary.LittleEndian.Uint32(encoded[offset+6:]))
	assert.Equal(t, uint16(5), binary.LittleEndian.Uint16(encoded[offset+10:]))
}

// recordOffset walks the record framing and returns the offset of the
// first record with the given id.
func recordOffset(t *testing.T, buf []byte, id uint16) int {
	t.Helper()
	pos := 0
	for pos+6 <= len(buf) {
		rid := binary.LittleEndian.Uint16(buf[pos:])
		size := int(binary.LittleEndian.Uint32(buf[pos+2:]))
		if rid == id {
			return pos
		}
		if rid == idVersion {
			size = versionPayload
		}
		pos += 6 + size
	}
	t.Fatalf("record 0x%04X not found", id)
	return 0
}

func record(id uint16, payload []byte) []byte {
	out := make([]byte, 6, 6+len(payload))
	binary.LittleEndian.PutUint16(out, id)
	binary.LittleEndian.PutUint32(out[2:], uint32(len(payload)))
	return append(out, payload...)
}

func join(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func TestDirErrors(t *testing.T) {
	codePage := record(idCodePage, []byte{0xE4, 0x04})

	t.Run("unknown record", func(t *testing.T) {
		encoded, err := EncodeDir(sampleMeta())
		require.NoError(t, err)
		binary.LittleEndian.PutUint16(encoded[recordOffset(t, encoded, idLCIDInvoke):], 0x0099)

		_, err = DecodeDir(encoded)
		require.Error(t, err)
		assert.True(t, errors.Is(err, core.ErrUnrecognizedRecord))
		var rec *core.RecordError
		require.True(t, errors.As(err, &rec))
		assert.Equal(t, uint16(0x0099), rec.ID)
	})

	t.Run("module record outside a module", func(t *testing.T) {
		buf := join(codePage, record(idStreamName, []byte("Module1")), record(idTerminator, nil))
		_, err := DecodeDir(buf)
		assert.True(t, errors.Is(err, core.ErrRecordOrder))
	})

	t.Run("extended record without a name", func(t *testing.T) {
		payload := make([]byte, 4+2+4+16+4)
		buf := join(codePage, record(idExtended, payload), record(idTerminator, nil))
		_, err := DecodeDir(buf)
		assert.True(t, errors.Is(err, core.ErrMalformedReference))
	})

	t.Run("reference without a body", func(t *testing.T) {
		buf := join(codePage,
			record(idReferenceName, []byte("stdole")),
			record(idModuleCount, []byte{0, 0}),
			record(idTerminator, nil))
		_, err := DecodeDir(buf)
		assert.True(t, errors.Is(err, core.ErrMalformedReference))
	})

	t.Run("missing terminator", func(t *testing.T) {
		_, err := DecodeDir(codePage)
		assert.True(t, errors.Is(err, core.ErrSizeMismatch))
	})

	t.Run("module count mismatch", func(t *testing.T) {
		buf := join(codePage, record(idModuleCount, []byte{2, 0}), record(idTerminator, nil))
		_, err := DecodeDir(buf)
		var mismatch *core.SizeMismatchError
		require.True(t, errors.As(err, &mismatch))
		assert.Equal(t, 2, mismatch.Declared)
		assert.Equal(t, 0, mismatch.Consumed)
	})
}

func TestStreamRoundTrip(t *testing.T) {
	s, err := ParseStream(sampleStream)
	require.NoError(t, err)
	assert.Equal(t, sampleStream, s.String())

	types := s.ModuleTypes()
	assert.Equal(t, modules.StaticClass, types["SHEET1"])
	assert.Equal(t, modules.Standard, types["MODULE1"])
	assert.Equal(t, modules.Class, types["CLASS1"])
	assert.Equal(t, modules.Form, types["USERFORM1"])
	assert.Equal(t, "VBAProject", s.Quoted("Name"))

	t.Run("set modules keeps position", func(t *testing.T) {
		s, err := ParseStream(sampleStream)
		require.NoError(t, err)
		s.SetModules([]*modules.Module{
			{Name: "Sheet1", Type: modules.StaticClass},
			{Name: "Module2", Type: modules.Standard},
		}, map[string]string{"SHEET1": "&H00000001"})

		var keys []string
		for _, p := range s.Properties[:4] {
			keys = append(keys, p.Key+"="+p.Value)
		}
		assert.Equal(t, []string{
			`ID="{11111111-2222-3333-4444-555555555555}"`,
			"Document=Sheet1/&H00000001",
			"Module=Module2",
			"Package=" + FormsPackage,
		}, keys)
	})

	t.Run("unknown section", func(t *testing.T) {
		_, err := ParseStream("Name=\"x\"\r\n[Other]\r\n")
		assert.Error(t, err)
	})
}

func TestNameMap(t *testing.T) {
	codec := filesystem.MustCodec(1252)
	entries := []NameMapEntry{
		{Name: "Module1", Unicode: "Module1"},
		{Name: "Feuil1", Unicode: "Feuil1"},
	}
	encoded, err := EncodeNameMap(entries, codec)
	require.NoError(t, err)
	assert.Equal(t, []byte{'M', 'o', 'd', 'u', 'l', 'e', '1', 0}, encoded[:8])
	assert.Equal(t, []byte{0, 0}, encoded[len(encoded)-2:])

	decoded, err := DecodeNameMap(encoded, codec)
	require.NoError(t, err)
	assert.Equal(t, entries, decoded)

	empty, err := EncodeNameMap(nil, codec)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0}, empty)
}

func TestDescriptor(t *testing.T) {
	meta := sampleMeta()
	meta.Modules[1].ReadOnly = true
	meta.Modules[2].DocString, meta.Modules[2].DocStringUnicode = "A class", "A class"
	stream, err := ParseStream(sampleStream)
	require.NoError(t, err)

	d := NewDescriptor(meta, stream)
	text := d.String()
	assert.True(t, strings.HasPrefix(text, "[General]\r\nID={11111111-2222-3333-4444-555555555555}\r\nName=VBAProject\r\n"))
	assert.Contains(t, text, "[Constants]\r\nDEBUG=1\r\nTRACE=0\r\n")
	assert.Contains(t, text, "[Reference MSForms]\r\nType=Control\r\n")
	assert.Contains(t, text, "[Module Module1]\r\nReadOnly=True\r\n")
	assert.NotContains(t, text, "[Module Sheet1]")
	assert.NotContains(t, text, "[DocTLibVersions]")

	parsed, err := ParseDescriptor(text)
	require.NoError(t, err)
	assert.Equal(t, text, parsed.String())

	t.Run("apply", func(t *testing.T) {
		target := sampleMeta()
		targetStream, err := ParseStream(sampleStream)
		require.NoError(t, err)
		parsed.Apply(target, targetStream)
		assert.Equal(t, meta, target)
		assert.Equal(t, sampleStream, targetStream.String())
	})

	t.Run("errors", func(t *testing.T) {
		for _, text := range []string{
			"[General]\r\nVersion=abc\r\n",
			"[Nowhere]\r\n",
			"Name=x\r\n",
			"[Reference x]\r\nLibid=y\r\n",
			"[General]\r\nBogus=1\r\n",
		} {
			_, err := ParseDescriptor(text)
			var de *DescriptorError
			assert.True(t, errors.As(err, &de), text)
		}
	})
}

func TestOpen(t *testing.T) {
	t.Run("missing sections", func(t *testing.T) {
		root := newSampleStorage(t)
		root.Delete(StreamProject)
		_, err := Open(root, zerolog.Nop())
		assert.True(t, errors.Is(err, core.ErrMissingSection))

		_, err = Open(storage.NewMemory(), zerolog.Nop())
		assert.True(t, errors.Is(err, core.ErrMissingSection))
	})

	t.Run("bad dir compression", func(t *testing.T) {
		root := newSampleStorage(t)
		vba, _ := root.Storage(StorageVBA)
		vba.SetStream(StreamDir, []byte{0x00, 0x01})
		_, err := Open(root, zerolog.Nop())
		assert.True(t, errors.Is(err, core.ErrDecompression))
	})

	t.Run("missing module stream", func(t *testing.T) {
		root := newSampleStorage(t)
		vba, _ := root.Storage(StorageVBA)
		vba.Delete("Module1")
		p := mustOpen(t, root)
		_, err := p.Modules()
		assert.True(t, errors.Is(err, core.ErrMissingSection))
	})
}

func TestModules(t *testing.T) {
	p := mustOpen(t, newSampleStorage(t))
	set, err := p.Modules()
	require.NoError(t, err)

	assert.Equal(t, []string{"Sheet1", "Module1", "Class1", "UserForm1", modules.DescriptorName, modules.LicenseName}, set.Names())

	sheet, _ := set.Get("Sheet1")
	assert.Equal(t, modules.StaticClass, sheet.Type)
	assert.Equal(t, ClassHeader+sampleSources["Sheet1"], sheet.Text)

	mod, _ := set.Get("Module1")
	assert.Equal(t, modules.Standard, mod.Type)
	assert.Equal(t, sampleSources["Module1"], mod.Text)

	form, _ := set.Get("UserForm1")
	assert.Equal(t, modules.Form, form.Type)
	assert.Equal(t, sampleFrame+sampleSources["UserForm1"], form.Text)
	designer, err := frx.ReadFile(form.Binary)
	require.NoError(t, err)
	_, ok := designer.Stream(StreamVBFrame)
	assert.False(t, ok)
	f, ok := designer.Stream("f")
	require.True(t, ok)
	assert.Equal(t, []byte{0x00, 0x04, 0x18, 0x00}, f)

	lk, _ := set.Get(modules.LicenseName)
	assert.Equal(t, []byte{0x01, 0x02}, lk.Binary)
}

func TestSplitSource(t *testing.T) {
	header, code := SplitSource(ClassHeader + "Attribute VB_Name = \"C\"\r\n")
	assert.Equal(t, ClassHeader, header)
	assert.Equal(t, "Attribute VB_Name = \"C\"\r\n", code)

	header, code = SplitSource("Attribute VB_Name = \"M\"\r\n")
	assert.Equal(t, "", header)
	assert.Equal(t, "Attribute VB_Name = \"M\"\r\n", code)

	header, code = SplitSource("VERSION 1.0 CLASS\r\n")
	assert.Equal(t, "VERSION 1.0 CLASS\r\n", header)
	assert.Equal(t, "", code)
}

func TestApply(t *testing.T) {
	root := newSampleStorage(t)
	p := mustOpen(t, root)
	set, err := p.Modules()
	require.NoError(t, err)

	set.Remove("Class1")
	set.Remove(modules.LicenseName)
	set.Put(&modules.Module{Name: "Module2", Type: modules.Standard, Text: "Attribute VB_Name = \"Module2\"\r\n"})
	require.NoError(t, p.Apply(set))

	vba, _ := root.Storage(StorageVBA)
	_, ok := vba.Stream("Class1")
	assert.False(t, ok)
	_, ok = vba.Stream("__SRP_0")
	assert.False(t, ok)
	_, ok = root.Stream(StreamLicense)
	assert.False(t, ok)
	cache, _ := vba.Stream(StreamVBACache)
	assert.Equal(t, []byte{0xCC, 0x61, 0xFF, 0xFF, 0x00, 0x00, 0x00}, cache)

	reopened := mustOpen(t, root)
	names := make([]string, 0, len(reopened.Meta.Modules))
	for _, rec := range reopened.Meta.Modules {
		names = append(names, rec.Name)
		assert.Zero(t, rec.Offset)
	}
	assert.Equal(t, []string{"Sheet1", "Module1", "UserForm1", "Module2"}, names)
	assert.NotContains(t, reopened.Stream.String(), "Class1")
	assert.Contains(t, reopened.Stream.String(), "Module=Module2\r\n")

	wm, ok := root.Stream(StreamNameMap)
	require.True(t, ok)
	entries, err := DecodeNameMap(wm, reopened.Codec())
	require.NoError(t, err)
	assert.Len(t, entries, 4)

	got, err := reopened.Modules()
	require.NoError(t, err)
	for _, m := range set.Modules() {
		g, ok := got.Get(m.Name)
		require.True(t, ok, m.Name)
		assert.Equal(t, m.Type, g.Type, m.Name)
		assert.Equal(t, m.Text, g.Text, m.Name)
	}
}

func TestApplyFormWithoutBinary(t *testing.T) {
	root := newSampleStorage(t)
	designer, _ := root.Storage("UserForm1")
	designer.AddStorage("i01").SetStream("f", []byte{0x00, 0x04})

	p := mustOpen(t, root)
	set, err := p.Modules()
	require.NoError(t, err)
	form, _ := set.Get("UserForm1")
	require.NotNil(t, form.Binary)
	form.Binary = nil
	require.NoError(t, p.Apply(set))

	designer, ok := root.Storage("UserForm1")
	require.True(t, ok)
	assert.Equal(t, []storage.Entry{{Name: StreamVBFrame}}, designer.Entries())

	got, err := mustOpen(t, root).Modules()
	require.NoError(t, err)
	reloaded, _ := got.Get("UserForm1")
	assert.Nil(t, reloaded.Binary)
	assert.Equal(t, form.Text, reloaded.Text)
}

func TestPublishIsIdempotent(t *testing.T) {
	source, err := mustOpen(t, newSampleStorage(t)).Modules()
	require.NoError(t, err)

	publish := func(root *storage.Memory) []byte {
		p := mustOpen(t, root)
		require.NoError(t, p.Apply(source))
		out, err := cfb.Write(root)
		require.NoError(t, err)
		return out
	}

	first := newSampleStorage(t)
	a := publish(first)
	b := publish(newSampleStorage(t))
	assert.Equal(t, a, b)

	c := publish(first)
	assert.Equal(t, a, c)
}
