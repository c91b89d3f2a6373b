package patch

import (
	"path"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/vbasync/pkg/vbasync/binrec"
	"github.com/arthur-debert/vbasync/pkg/vbasync/core"
	"github.com/arthur-debert/vbasync/pkg/vbasync/filesystem"
	"github.com/arthur-debert/vbasync/pkg/vbasync/frx"
	"github.com/arthur-debert/vbasync/pkg/vbasync/modules"
)

func std(name, text string) *modules.Module {
	return &modules.Module{Name: name, Type: modules.Standard, Text: text}
}

func formBinary(t *testing.T, caption string) []byte {
	t.Helper()
	tree := &frx.FormTree{
		Form: &frx.FormControl{
			MajorVersion:  4,
			Mask:          binrec.Mask32(0).With(frx.FormCaption, true).With(frx.FormDisplayedSize, true),
			Caption:       caption,
			DisplayedSize: binrec.Size{Width: 4000, Height: 3000},
		},
		Children: map[string]*frx.FormTree{},
		Streams:  map[string][]byte{},
	}
	data, err := frx.EncodeFile(tree)
	require.NoError(t, err)
	return data
}

func kinds(patches []*Patch) []string {
	out := make([]string, len(patches))
	for i, p := range patches {
		out[i] = p.ID()
	}
	return out
}

func compute(t *testing.T, old, new *modules.Set, opts Options) []*Patch {
	t.Helper()
	opts.Logger = zerolog.Nop()
	patches, err := Compute(old, new, opts)
	require.NoError(t, err)
	return patches
}

func TestPatchCompleteness(t *testing.T) {
	old := modules.NewSet(
		std("Alpha", "Sub A()\r\nEnd Sub\r\n"),
		std("Beta", "Sub B()\r\nEnd Sub\r\n"),
		std("Gamma", "Sub C()\r\nEnd Sub\r\n"),
	)
	new := modules.NewSet(
		std("Alpha", "Sub A()\r\nEnd Sub\r\n"),
		&modules.Module{Name: "Gamma", Type: modules.Class, Text: "Sub C()\r\nEnd Sub\r\n"},
		std("Delta", "Sub D()\r\nEnd Sub\r\n"),
	)

	patches := compute(t, old, new, Options{Direction: core.Extract})
	assert.Equal(t, []string{"DeleteFile:BETA", "AddFile:DELTA", "FileTypeChanged:GAMMA"}, kinds(patches))
	assert.Equal(t, "Gamma: Standard -> Class", patches[2].Describe())
	assert.NotNil(t, patches[0].Old)
	assert.Nil(t, patches[0].New)
}

func TestWholeFileChanged(t *testing.T) {
	old := modules.NewSet(std("Module1", "Sub Main()\r\n  x = 1\r\nEnd Sub\r\n"))

	t.Run("case only", func(t *testing.T) {
		new := modules.NewSet(std("module1", "SUB MAIN()\r\n  X = 1\r\nEND SUB\r\n"))
		assert.Empty(t, compute(t, old, new, Options{}))
	})

	t.Run("reconciled text", func(t *testing.T) {
		new := modules.NewSet(std("Module1", "SUB MAIN()\r\n  X = 2\r\nEND SUB\r\n"))
		patches := compute(t, old, new, Options{})
		require.Len(t, patches, 1)
		assert.Equal(t, WholeFileChanged, patches[0].Kind)
		assert.Equal(t, "Sub Main()\r\n  X = 2\r\nEnd Sub\r\n", patches[0].New.Text)

		preview, err := patches[0].Preview()
		require.NoError(t, err)
		assert.Contains(t, preview, "-  x = 1\n+  X = 2\n")
	})
}

func TestDocumentModulePolicy(t *testing.T) {
	sheet := &modules.Module{Name: "Sheet2", Type: modules.StaticClass, Text: "Attribute VB_Base = \"0{x}\"\r\n"}
	old := modules.NewSet()
	new := modules.NewSet(sheet)

	assert.Empty(t, compute(t, old, new, Options{Direction: core.Publish}))
	assert.Len(t, compute(t, old, new, Options{Direction: core.Publish, AllowNewDocumentModules: true}), 1)
	assert.Len(t, compute(t, old, new, Options{Direction: core.Extract}), 1)
}

func TestFormPatches(t *testing.T) {
	text := "VERSION 5.00\r\nAttribute VB_Name = \"UserForm1\"\r\n"
	form := func(binary []byte) *modules.Module {
		return &modules.Module{Name: "UserForm1", Type: modules.Form, Text: text, Binary: binary}
	}
	a, b := formBinary(t, "First"), formBinary(t, "Second")

	tests := []struct {
		name     string
		old, new []byte
		want     []string
	}{
		{"same controls", a, formBinary(t, "First"), nil},
		{"caption changed", a, b, []string{"FormControlsChanged:USERFORM1"}},
		{"binary added", nil, a, []string{"FormBinaryAdded:USERFORM1"}},
		{"binary deleted", a, nil, []string{"FormBinaryDeleted:USERFORM1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			patches := compute(t, modules.NewSet(form(tt.old)), modules.NewSet(form(tt.new)), Options{})
			if tt.want == nil {
				assert.Empty(t, patches)
				return
			}
			assert.Equal(t, tt.want, kinds(patches))
		})
	}

	t.Run("explanation", func(t *testing.T) {
		patches := compute(t, modules.NewSet(form(a)), modules.NewSet(form(b)), Options{})
		require.Len(t, patches, 1)
		assert.Contains(t, patches[0].Explanation, "Caption")
	})

	t.Run("undecodable binary", func(t *testing.T) {
		_, err := Compute(modules.NewSet(form(a)), modules.NewSet(form([]byte{1, 2, 3})), Options{Logger: zerolog.Nop()})
		assert.Error(t, err)
	})
}

func TestOrdering(t *testing.T) {
	old := modules.NewSet(
		std("Zeta", "z\r\n"),
		std("Beta", "b\r\n"),
		std("Mid", "m\r\n"),
		&modules.Module{Name: modules.DescriptorName, Type: modules.ProjectDescriptor, Text: "[General]\r\nName=A\r\n"},
		&modules.Module{Name: modules.LicenseName, Type: modules.LicenseBlob, Binary: []byte{1}},
	)
	new := modules.NewSet(
		&modules.Module{Name: modules.LicenseName, Type: modules.LicenseBlob, Binary: []byte{2}},
		&modules.Module{Name: modules.DescriptorName, Type: modules.ProjectDescriptor, Text: "[General]\r\nName=B\r\n"},
		std("Mid", "m2\r\n"),
		std("Yankee", "y\r\n"),
		std("Able", "a\r\n"),
	)
	patches := compute(t, old, new, Options{})
	assert.Equal(t, []string{
		"DeleteFile:BETA",
		"DeleteFile:ZETA",
		"AddFile:ABLE",
		"AddFile:YANKEE",
		"WholeFileChanged:MID",
		"ProjectDescriptorChanged:PROJECT",
		"LicenseBlobChanged:LICENSEKEYS",
	}, kinds(patches))
}

func TestSelection(t *testing.T) {
	patches := []*Patch{
		{Kind: AddFile, Name: "A", New: std("A", "")},
		{Kind: DeleteFile, Name: "B", Old: std("B", "")},
	}
	bus := core.NewMemoryEventBus(zerolog.Nop())
	var events []CommitToggled
	bus.Subscribe(EventCommitToggled, core.EventHandlerFunc(func(e core.Event) error {
		events = append(events, e.Data().(CommitToggled))
		return nil
	}))

	s := NewSelection(patches, bus)
	assert.True(t, s.Committed(patches[0]))
	assert.Equal(t, patches, s.CommittedPatches())

	require.NoError(t, s.Toggle(patches[0]))
	assert.False(t, s.Committed(patches[0]))
	assert.Equal(t, []*Patch{patches[1]}, s.CommittedPatches())
	require.Len(t, events, 1)
	assert.Equal(t, CommitToggled{Patch: patches[0], Committed: false}, events[0])

	require.NoError(t, s.Set(patches[0], false))
	assert.Len(t, events, 1, "unchanged flag publishes nothing")

	require.NoError(t, s.Only("a"))
	assert.Equal(t, []*Patch{patches[0]}, s.CommittedPatches())
	assert.Len(t, events, 3)

	require.NoError(t, s.SetAll(true))
	assert.Len(t, s.CommittedPatches(), 2)

	unobserved := NewSelection(patches, nil)
	assert.NoError(t, unobserved.Toggle(patches[1]))
}

func TestPlanOrder(t *testing.T) {
	patches := []*Patch{
		{Kind: ProjectDescriptorChanged, Name: modules.DescriptorName},
		{Kind: FormControlsChanged, Name: "UserForm1"},
		{Kind: AddFile, Name: "New1"},
		{Kind: WholeFileChanged, Name: "UserForm1"},
		{Kind: DeleteFile, Name: "Old1"},
	}
	plan, err := NewPlan(patches, zerolog.Nop())
	require.NoError(t, err)

	var ids []string
	for _, s := range plan.Steps {
		ids = append(ids, s.Patch.ID())
	}
	assert.Equal(t, []string{
		"WholeFileChanged:USERFORM1",
		"DeleteFile:OLD1",
		"FormControlsChanged:USERFORM1",
		"AddFile:NEW1",
		"ProjectDescriptorChanged:PROJECT",
	}, ids)

	_, err = NewPlan([]*Patch{patches[2], patches[2]}, zerolog.Nop())
	assert.Error(t, err)
}

func TestApplyToSet(t *testing.T) {
	target := modules.NewSet(
		std("Module1", "Sub Main()\r\nEnd Sub\r\n"),
		std("Old", "x\r\n"),
		&modules.Module{Name: "UserForm1", Type: modules.Form, Text: "form\r\n", Binary: []byte{1}},
	)
	source := modules.NewSet(
		std("Module1", "Sub Main()\r\n  Beep\r\nEnd Sub\r\n"),
		std("Added", "y\r\n"),
		&modules.Module{Name: "UserForm1", Type: modules.Form, Text: "form 2\r\n"},
	)
	patches := compute(t, target, source, Options{Direction: core.Publish})
	assert.Equal(t, []string{
		"DeleteFile:OLD",
		"AddFile:ADDED",
		"WholeFileChanged:MODULE1",
		"WholeFileChanged:USERFORM1",
		"FormBinaryDeleted:USERFORM1",
	}, kinds(patches))

	s := NewSelection(patches, nil)
	require.NoError(t, s.Set(patches[3], false))
	plan, err := NewPlan(s.CommittedPatches(), zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, plan.ApplyToSet(target))

	assert.Equal(t, []string{"Module1", "UserForm1", "Added"}, target.Names())
	m, _ := target.Get("Module1")
	assert.Equal(t, "Sub Main()\r\n  Beep\r\nEnd Sub\r\n", m.Text)
	form, _ := target.Get("UserForm1")
	assert.Equal(t, "form\r\n", form.Text)
	assert.Nil(t, form.Binary)
}

func TestApplyToFolder(t *testing.T) {
	fsys := filesystem.NewTestFileSystem()
	codec := filesystem.MustCodec(filesystem.DefaultCodePage)
	dir := "src"

	folder := modules.NewSet(
		std("Module1", "Sub Main()\r\nEnd Sub\r\n"),
		std("Gone", "x\r\n"),
		&modules.Module{Name: "Class1", Type: modules.Standard, Text: "Attribute VB_Name = \"Class1\"\r\n"},
	)
	require.NoError(t, modules.WriteFolder(fsys, dir, folder, codec))

	binary := modules.NewSet(
		std("Module1", "Sub Main()\r\n  Beep\r\nEnd Sub\r\n"),
		&modules.Module{Name: "Class1", Type: modules.Class, Text: "Attribute VB_Name = \"Class1\"\r\n"},
		&modules.Module{Name: "UserForm1", Type: modules.Form, Text: "form\r\n", Binary: formBinary(t, "Hi")},
		&modules.Module{Name: modules.DescriptorName, Type: modules.ProjectDescriptor, Text: "[General]\r\n"},
	)
	patches := compute(t, folder, binary, Options{Direction: core.Extract})
	plan, err := NewPlan(patches, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, plan.ApplyToFolder(fsys, dir, codec))

	files, err := filesystem.ListFiles(fsys, dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"Class1.cls", "Module1.bas", "Project.ini", "UserForm1.frm", "UserForm1.frx"}, files)

	data, err := filesystem.ReadFile(fsys, path.Join(dir, "Module1.bas"))
	require.NoError(t, err)
	assert.Equal(t, "Sub Main()\r\n  Beep\r\nEnd Sub\r\n", string(data))

	reloaded, err := modules.LoadFolder(fsys, dir, codec)
	require.NoError(t, err)
	again := compute(t, reloaded, binary, Options{Direction: core.Extract})
	assert.Empty(t, again)
}
