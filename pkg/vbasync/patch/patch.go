// Package patch detects the differences between two module sets and turns
// the ones a user commits into changes of the target side.
package patch

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/arthur-debert/vbasync/pkg/vbasync/core"
	"github.com/arthur-debert/vbasync/pkg/vbasync/diff"
	"github.com/arthur-debert/vbasync/pkg/vbasync/frx"
	"github.com/arthur-debert/vbasync/pkg/vbasync/modules"
)

// Kind classifies a patch.
type Kind int

const (
	DeleteFile Kind = iota
	AddFile
	FileTypeChanged
	WholeFileChanged
	FormControlsChanged
	FormBinaryAdded
	FormBinaryDeleted
	ProjectDescriptorChanged
	LicenseBlobChanged
)

func (k Kind) String() string {
	switch k {
	case DeleteFile:
		return "DeleteFile"
	case AddFile:
		return "AddFile"
	case FileTypeChanged:
		return "FileTypeChanged"
	case WholeFileChanged:
		return "WholeFileChanged"
	case FormControlsChanged:
		return "FormControlsChanged"
	case FormBinaryAdded:
		return "FormBinaryAdded"
	case FormBinaryDeleted:
		return "FormBinaryDeleted"
	case ProjectDescriptorChanged:
		return "ProjectDescriptorChanged"
	case LicenseBlobChanged:
		return "LicenseBlobChanged"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Patch is one detected difference. Old is the module on the target side
// and New the module on the source side; either is nil when the module
// exists on one side only.
type Patch struct {
	Kind Kind
	Name string
	Old  *modules.Module
	New  *modules.Module
	// Explanation describes the first differences of a FormControlsChanged
	// patch.
	Explanation string
}

// ID identifies the patch within one run.
func (p *Patch) ID() string {
	return p.Kind.String() + ":" + strings.ToUpper(p.Name)
}

// Describe returns a one-line summary.
func (p *Patch) Describe() string {
	switch p.Kind {
	case FileTypeChanged:
		return fmt.Sprintf("%s: %s -> %s", p.Name, p.Old.Type, p.New.Type)
	case FormControlsChanged:
		return fmt.Sprintf("%s: form controls changed", p.Name)
	default:
		return fmt.Sprintf("%s: %s", p.Name, p.Kind)
	}
}

// Preview renders the text change of the patch as a unified diff. Binary
// patches render their explanation.
func (p *Patch) Preview() (string, error) {
	switch p.Kind {
	case FormControlsChanged:
		return p.Explanation, nil
	case FormBinaryAdded, FormBinaryDeleted, LicenseBlobChanged:
		return p.Describe() + "\n", nil
	}
	var oldText, newText string
	oldName, newName := "/dev/null", "/dev/null"
	if p.Old != nil {
		oldText, oldName = p.Old.Text, "a/"+p.Old.FileName()
	}
	if p.New != nil {
		newText, newName = p.New.Text, "b/"+p.New.FileName()
	}
	return diff.Unified(oldName, newName, oldText, newText)
}

// Options configure change detection.
type Options struct {
	Direction core.Direction
	// AllowNewDocumentModules lets a publish add document modules. The
	// host document owns them, so by default they are not created.
	AllowNewDocumentModules bool
	Logger                  zerolog.Logger
}

// Compute returns the patches that turn old into new. Deletions come
// first, then additions, then changes, each ordered by module name; the
// descriptor and license patches come last.
func Compute(old, new *modules.Set, opts Options) ([]*Patch, error) {
	log := opts.Logger
	var deleted, added, changed, project []*Patch

	for _, name := range old.SortedNames() {
		if _, ok := new.Get(name); ok {
			continue
		}
		m, _ := old.Get(name)
		deleted = append(deleted, &Patch{Kind: DeleteFile, Name: m.Name, Old: m})
	}

	for _, name := range new.SortedNames() {
		n, _ := new.Get(name)
		o, ok := old.Get(name)
		if !ok {
			if n.Type == modules.StaticClass && opts.Direction == core.Publish && !opts.AllowNewDocumentModules {
				log.Info().Str("module", n.Name).Msg("skipping new document module")
				continue
			}
			added = append(added, &Patch{Kind: AddFile, Name: n.Name, New: n})
			continue
		}

		switch {
		case o.Type != n.Type:
			changed = append(changed, &Patch{Kind: FileTypeChanged, Name: n.Name, Old: o, New: n})
			continue
		case n.Type == modules.ProjectDescriptor:
			if o.Text != n.Text {
				project = append(project, &Patch{Kind: ProjectDescriptorChanged, Name: n.Name, Old: o, New: n})
			}
			continue
		case n.Type == modules.LicenseBlob:
			if !bytes.Equal(o.Binary, n.Binary) {
				project = append(project, &Patch{Kind: LicenseBlobChanged, Name: n.Name, Old: o, New: n})
			}
			continue
		}

		fixed := diff.FixCase(o.Text, n.Text)
		if fixed != o.Text {
			reconciled := n.Clone()
			reconciled.Text = fixed
			changed = append(changed, &Patch{Kind: WholeFileChanged, Name: n.Name, Old: o, New: reconciled})
		}

		if n.Type == modules.Form {
			p, err := compareForms(o, n)
			if err != nil {
				return nil, err
			}
			if p != nil {
				changed = append(changed, p)
			}
		}
	}

	out := make([]*Patch, 0, len(deleted)+len(added)+len(changed)+len(project))
	out = append(out, deleted...)
	out = append(out, added...)
	out = append(out, changed...)
	sort.SliceStable(project, func(i, j int) bool { return project[i].Kind < project[j].Kind })
	out = append(out, project...)

	log.Debug().
		Stringer("direction", opts.Direction).
		Int("deleted", len(deleted)).
		Int("added", len(added)).
		Int("changed", len(changed)).
		Int("project", len(project)).
		Msg("computed patches")
	return out, nil
}

func compareForms(o, n *modules.Module) (*Patch, error) {
	switch {
	case o.Binary == nil && n.Binary == nil:
		return nil, nil
	case o.Binary == nil:
		return &Patch{Kind: FormBinaryAdded, Name: n.Name, Old: o, New: n}, nil
	case n.Binary == nil:
		return &Patch{Kind: FormBinaryDeleted, Name: n.Name, Old: o, New: n}, nil
	}
	equal, explanation, err := frx.CompareFiles(o.Binary, n.Binary)
	if err != nil {
		return nil, fmt.Errorf("%s%s: %w", n.Name, modules.FormBinaryExtension, err)
	}
	if equal {
		return nil, nil
	}
	return &Patch{Kind: FormControlsChanged, Name: n.Name, Old: o, New: n, Explanation: explanation}, nil
}
