package vbasync_test

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os/exec"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/vbasync/pkg/vbasync"
	"github.com/arthur-debert/vbasync/pkg/vbasync/binrec"
	"github.com/arthur-debert/vbasync/pkg/vbasync/core"
	"github.com/arthur-debert/vbasync/pkg/vbasync/filesystem"
	"github.com/arthur-debert/vbasync/pkg/vbasync/frx"
	"github.com/arthur-debert/vbasync/pkg/vbasync/ovba"
	"github.com/arthur-debert/vbasync/pkg/vbasync/patch"
	"github.com/arthur-debert/vbasync/pkg/vbasync/project"
	"github.com/arthur-debert/vbasync/pkg/vbasync/storage"
	"github.com/arthur-debert/vbasync/pkg/vbasync/storage/cfb"
)

const (
	documentPath = "docs/Book1.xlsm"
	folderPath   = "docs/Book1.src"
)

var fixtureSources = []struct {
	name          string
	nonProcedural bool
	text          string
}{
	{"Sheet1", true, "Attribute VB_Name = \"Sheet1\"\r\n" +
		"Attribute VB_Base = \"0{00020820-0000-0000-C000-000000000046}\"\r\n" +
		"Private Sub Worksheet_Activate()\r\nEnd Sub\r\n"},
	{"Module1", false, "Attribute VB_Name = \"Module1\"\r\nPublic Sub Main()\r\n    MsgBox \"hi\"\r\nEnd Sub\r\n"},
	{"Class1", true, "Attribute VB_Name = \"Class1\"\r\nPublic Value As Long\r\n"},
	{"UserForm1", true, "Attribute VB_Name = \"UserForm1\"\r\nPrivate Sub UserForm_Click()\r\nEnd Sub\r\n"},
}

const fixtureStream = "ID=\"{11111111-2222-3333-4444-555555555555}\"\r\n" +
	"Document=Sheet1/&H00000000\r\n" +
	"Module=Module1\r\n" +
	"Class=Class1\r\n" +
	"BaseClass=UserForm1\r\n" +
	"Package={AC9F2F90-E877-11CE-9F68-00AA00574A4F}\r\n" +
	"Name=\"VBAProject\"\r\n" +
	"HelpContextID=\"0\"\r\n" +
	"VersionCompatible32=\"393222000\"\r\n" +
	"\r\n[Host Extender Info]\r\n" +
	"&H00000001={3832D640-CF90-11CF-8E43-00A0C911005A};VBE;&H00000000\r\n"

const fixtureFrame = "VERSION 5.00\r\nBegin {C62A69F0-16DC-11CE-9E98-00AA00574A4F} UserForm1\r\n" +
	"   Caption         =   \"UserForm1\"\r\nEnd\r\n"

func fixtureProject(t *testing.T) []byte {
	t.Helper()
	compat := uint32(0x5E)
	meta := &project.Metadata{
		SysKind:       project.SysKindWin64,
		CompatVersion: &compat,
		LCID:          0x0409,
		LCIDInvoke:    0x0409,
		CodePage:      1252,
		Name:          "VBAProject",
		VersionMajor:  1427018365,
		VersionMinor:  5,
		Cookie:        0xFFFF,
	}
	root := storage.NewMemory()
	vba := root.AddStorage(project.StorageVBA)
	for _, src := range fixtureSources {
		meta.Modules = append(meta.Modules, &project.ModuleRecord{
			Name:              src.name,
			NameUnicode:       src.name,
			StreamName:        src.name,
			StreamNameUnicode: src.name,
			Cookie:            0xFFFF,
			NonProcedural:     src.nonProcedural,
		})
		vba.SetStream(src.name, ovba.Compress([]byte(src.text)))
	}
	dir, err := project.EncodeDir(meta)
	require.NoError(t, err)
	vba.SetStream(project.StreamDir, ovba.Compress(dir))
	vba.SetStream(project.StreamVBACache, []byte{0xCC, 0x61, 0xB5, 0x00, 0x00, 0x01, 0x00, 0xFF})
	vba.SetStream("__SRP_0", []byte{1, 2, 3})
	root.SetStream(project.StreamProject, []byte(fixtureStream))
	root.SetStream(project.StreamLicense, []byte{0x01, 0x02})

	form := &frx.FormTree{
		Form: &frx.FormControl{
			MajorVersion:  4,
			Mask:          binrec.Mask32(0).With(frx.FormCaption, true).With(frx.FormDisplayedSize, true),
			Caption:       "UserForm1",
			DisplayedSize: binrec.Size{Width: 4000, Height: 3000},
		},
		Children: map[string]*frx.FormTree{},
		Streams:  map[string][]byte{},
	}
	designer := root.AddStorage("UserForm1")
	require.NoError(t, form.EncodeStorage(designer))
	designer.SetStream(project.StreamVBFrame, []byte(fixtureFrame))

	bin, err := cfb.Write(root)
	require.NoError(t, err)
	return bin
}

func fixtureDocument(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, e := range []struct {
		name string
		data []byte
	}{
		{"[Content_Types].xml", []byte("<Types/>")},
		{"xl/workbook.xml", []byte("<workbook/>")},
		{"xl/vbaProject.bin", fixtureProject(t)},
	} {
		f, err := w.Create(e.name)
		require.NoError(t, err)
		_, err = f.Write(e.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func newFixtureFS(t *testing.T) *filesystem.TestFileSystem {
	t.Helper()
	fsys := filesystem.NewTestFileSystem()
	require.NoError(t, fsys.WriteFile(documentPath, fixtureDocument(t), 0644))
	return fsys
}

func ids(patches []*patch.Patch) []string {
	out := make([]string, len(patches))
	for i, p := range patches {
		out[i] = p.ID()
	}
	return out
}

func open(t *testing.T, fsys filesystem.FileSystem, action string) *vbasync.Run {
	t.Helper()
	r, err := vbasync.Open(fsys, vbasync.Config{Action: action, Document: documentPath}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

// sync runs action to completion and returns the applied patch ids.
func sync(t *testing.T, fsys filesystem.FileSystem, action string) []string {
	t.Helper()
	r := open(t, fsys, action)
	res, err := r.Commit()
	require.NoError(t, err)
	require.NoError(t, r.Close())
	return ids(res.Applied)
}

func workspaces(t *testing.T, fsys filesystem.FileSystem) []string {
	t.Helper()
	entries, err := fs.ReadDir(fsys, "docs")
	require.NoError(t, err)
	var out []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".vbasync-") {
			out = append(out, e.Name())
		}
	}
	return out
}

func TestExtract(t *testing.T) {
	fsys := newFixtureFS(t)

	applied := sync(t, fsys, "extract")
	assert.Equal(t, []string{
		"AddFile:CLASS1",
		"AddFile:LICENSEKEYS",
		"AddFile:MODULE1",
		"AddFile:PROJECT",
		"AddFile:SHEET1",
		"AddFile:USERFORM1",
	}, applied)
	assert.Empty(t, workspaces(t, fsys))

	files, err := filesystem.ListFiles(fsys, folderPath)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Class1.cls", "LicenseKeys.bin", "Module1.bas", "Project.ini",
		"Sheet1.cls", "UserForm1.frm", "UserForm1.frx",
	}, files)

	cls, err := filesystem.ReadFile(fsys, folderPath+"/Class1.cls")
	require.NoError(t, err)
	assert.Equal(t, project.ClassHeader+fixtureSources[2].text, string(cls))
	frm, err := filesystem.ReadFile(fsys, folderPath+"/UserForm1.frm")
	require.NoError(t, err)
	assert.Equal(t, fixtureFrame+fixtureSources[3].text, string(frm))

	assert.Empty(t, sync(t, fsys, "extract"), "second extract finds no changes")
}

func TestExtractReconcilesCase(t *testing.T) {
	fsys := newFixtureFS(t)
	sync(t, fsys, "extract")

	edited := "Attribute VB_Name = \"Module1\"\r\npublic sub main()\r\n    MSGBOX \"hi\"\r\nend sub\r\n"
	require.NoError(t, fsys.WriteFile(folderPath+"/Module1.bas", []byte(edited), 0644))

	assert.Empty(t, open(t, fsys, "extract").Patches())
	assert.Empty(t, open(t, fsys, "publish").Patches())
}

func TestExtractSelection(t *testing.T) {
	fsys := newFixtureFS(t)
	r := open(t, fsys, "extract")
	require.NoError(t, r.Selection().Only("module1", "Project"))

	res, err := r.Commit()
	require.NoError(t, err)
	assert.Equal(t, []string{"AddFile:MODULE1", "AddFile:PROJECT"}, ids(res.Applied))
	assert.Equal(t, folderPath, res.Target)

	files, err := filesystem.ListFiles(fsys, folderPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"Module1.bas", "Project.ini"}, files)
}

func TestPublish(t *testing.T) {
	fsys := newFixtureFS(t)
	sync(t, fsys, "extract")

	edited := "Attribute VB_Name = \"Module1\"\r\nPublic Sub Main()\r\n    MsgBox \"hello\"\r\nEnd Sub\r\n"
	require.NoError(t, fsys.WriteFile(folderPath+"/Module1.bas", []byte(edited), 0644))
	require.NoError(t, fsys.WriteFile(folderPath+"/Module2.bas", []byte("Attribute VB_Name = \"Module2\"\r\n"), 0644))
	require.NoError(t, fsys.Remove(folderPath+"/Class1.cls"))

	r := open(t, fsys, "publish")
	var buf bytes.Buffer
	require.NoError(t, r.Preview(context.Background(), &buf, "Module1"))
	assert.Contains(t, buf.String(), "-    MsgBox \"hi\"\n+    MsgBox \"hello\"\n")

	res, err := r.Commit()
	require.NoError(t, err)
	assert.Equal(t, []string{"DeleteFile:CLASS1", "AddFile:MODULE2", "WholeFileChanged:MODULE1"}, ids(res.Applied))
	assert.Equal(t, documentPath, res.Target)
	require.NoError(t, r.Close())
	assert.Empty(t, workspaces(t, fsys))

	assert.Empty(t, open(t, fsys, "publish").Patches(), "folder and document agree")

	// The other package entries survive the rewrite.
	data, err := filesystem.ReadFile(fsys, documentPath)
	require.NoError(t, err)
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"[Content_Types].xml", "xl/workbook.xml", "xl/vbaProject.bin"}, names)

	// A fresh extract reproduces the published folder.
	require.NoError(t, fsys.RemoveAll(folderPath))
	sync(t, fsys, "extract")
	got, err := filesystem.ReadFile(fsys, folderPath+"/Module1.bas")
	require.NoError(t, err)
	assert.Equal(t, edited, string(got))
	assert.False(t, filesystem.Exists(fsys, folderPath+"/Class1.cls"))
	assert.True(t, filesystem.Exists(fsys, folderPath+"/Module2.bas"))
}

func TestPublishDeletedFormBinary(t *testing.T) {
	fsys := newFixtureFS(t)
	sync(t, fsys, "extract")
	require.NoError(t, fsys.Remove(folderPath+"/UserForm1.frx"))

	assert.Equal(t, []string{"FormBinaryDeleted:USERFORM1"}, sync(t, fsys, "publish"))
	assert.Empty(t, sync(t, fsys, "publish"), "the deletion reached the document")
}

func TestPublishIsIdempotent(t *testing.T) {
	publish := func() []byte {
		fsys := newFixtureFS(t)
		sync(t, fsys, "extract")
		require.NoError(t, fsys.WriteFile(folderPath+"/Module1.bas",
			[]byte("Attribute VB_Name = \"Module1\"\r\nSub Main()\r\nEnd Sub\r\n"), 0644))

		sync(t, fsys, "publish")
		first, err := filesystem.ReadFile(fsys, documentPath)
		require.NoError(t, err)

		assert.Empty(t, sync(t, fsys, "publish"))
		second, err := filesystem.ReadFile(fsys, documentPath)
		require.NoError(t, err)
		assert.Equal(t, first, second)
		return first
	}
	assert.Equal(t, publish(), publish(), "publishing the same folder into the same document is deterministic")
}

func TestNewDocumentModulePolicy(t *testing.T) {
	fsys := newFixtureFS(t)
	sync(t, fsys, "extract")
	sheet := project.ClassHeader + "Attribute VB_Name = \"Sheet2\"\r\n" +
		"Attribute VB_Base = \"0{00020820-0000-0000-C000-000000000046}\"\r\n"
	require.NoError(t, fsys.WriteFile(folderPath+"/Sheet2.cls", []byte(sheet), 0644))

	assert.Empty(t, open(t, fsys, "publish").Patches())

	r, err := vbasync.Open(fsys, vbasync.Config{
		Action:                  "publish",
		Document:                documentPath,
		AllowNewDocumentModules: true,
	}, zerolog.Nop())
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, []string{"AddFile:SHEET2"}, ids(r.Patches()))
}

func TestPreviewWithDiffTool(t *testing.T) {
	fsys := newFixtureFS(t)
	r, err := vbasync.Open(fsys, vbasync.Config{Action: "extract", Document: documentPath, DiffTool: "diff"}, zerolog.Nop())
	require.NoError(t, err)
	defer r.Close()

	err = r.Preview(context.Background(), &bytes.Buffer{}, "Module1")
	assert.ErrorContains(t, err, "needs files on disk")
	assert.Error(t, r.Preview(context.Background(), &bytes.Buffer{}, "Nothing"))
}

func TestPreviewRunsDiffTool(t *testing.T) {
	if _, err := exec.LookPath("diff"); err != nil {
		t.Skip("diff not installed")
	}
	fsys := filesystem.NewOSFileSystem(t.TempDir())
	require.NoError(t, fsys.MkdirAll("docs", 0755))
	require.NoError(t, fsys.WriteFile(documentPath, fixtureDocument(t), 0644))

	r, err := vbasync.Open(fsys, vbasync.Config{Action: "extract", Document: documentPath, DiffTool: "diff"}, zerolog.Nop())
	require.NoError(t, err)
	defer r.Close()

	var out bytes.Buffer
	require.NoError(t, r.Preview(context.Background(), &out, "Module1"))
	assert.Contains(t, out.String(), "> Public Sub Main()")
}

func TestOpenErrors(t *testing.T) {
	t.Run("invalid config", func(t *testing.T) {
		_, err := vbasync.Open(filesystem.NewTestFileSystem(), vbasync.Config{Action: "extract"}, zerolog.Nop())
		var ce *vbasync.ConfigError
		assert.True(t, errors.As(err, &ce))
	})

	t.Run("missing project", func(t *testing.T) {
		fsys := filesystem.NewTestFileSystem()
		root := storage.NewMemory()
		root.SetStream("Workbook", []byte("cells"))
		bin, err := cfb.Write(root)
		require.NoError(t, err)
		require.NoError(t, fsys.WriteFile(documentPath, bin, 0644))

		_, err = vbasync.Open(fsys, vbasync.Config{Action: "extract", Document: documentPath}, zerolog.Nop())
		assert.True(t, errors.Is(err, core.ErrMissingSection))
	})

	t.Run("bad module stream", func(t *testing.T) {
		fsys := newFixtureFS(t)
		sync(t, fsys, "extract")
		require.NoError(t, fsys.WriteFile(folderPath+"/UserForm1.frx", []byte("garbage"), 0644))
		_, err := vbasync.Open(fsys, vbasync.Config{Action: "publish", Document: documentPath}, zerolog.Nop())
		assert.Error(t, err)
		assert.Empty(t, workspaces(t, fsys), "workspace is removed when opening fails")
	})
}
