// Package vbasync round-trips the VBA project of an office document
// between the document and a folder of source files.
package vbasync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/rs/zerolog"

	"github.com/arthur-debert/vbasync/pkg/vbasync/core"
	"github.com/arthur-debert/vbasync/pkg/vbasync/document"
	"github.com/arthur-debert/vbasync/pkg/vbasync/filesystem"
	"github.com/arthur-debert/vbasync/pkg/vbasync/modules"
	"github.com/arthur-debert/vbasync/pkg/vbasync/patch"
	"github.com/arthur-debert/vbasync/pkg/vbasync/project"
	"github.com/arthur-debert/vbasync/pkg/vbasync/workspace"
)

// Workspace entries of a run.
const (
	extractedDir = "extracted"
	previewDir   = "preview"
	documentFile = "document"
)

// Run is one extract or publish between a document and a folder. It owns a
// workspace until Close.
type Run struct {
	Config    Config
	Direction core.Direction

	fsys    filesystem.FileSystem
	logger  zerolog.Logger
	doc     *document.Document
	project *project.Project
	ws      *workspace.Workspace
	binary  *modules.Set
	sel     *patch.Selection
}

// Result describes what Commit changed.
type Result struct {
	Applied []*patch.Patch
	// Target is the document or folder written; empty when nothing was
	// committed.
	Target string
}

// Open decodes the document, snapshots both sides and computes the patches
// of the configured direction. Every patch starts committed.
func Open(fsys filesystem.FileSystem, cfg Config, logger zerolog.Logger) (*Run, error) {
	cfg, err := cfg.Validate()
	if err != nil {
		return nil, err
	}
	direction, _ := cfg.Direction()

	doc, err := document.Open(fsys, cfg.Document, logger)
	if err != nil {
		return nil, err
	}
	proj, err := project.Open(doc.Project(), logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.Document, err)
	}
	binary, err := proj.Modules()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.Document, err)
	}

	ws, err := workspace.New(fsys, cfg.Document, logger)
	if err != nil {
		return nil, err
	}
	r := &Run{
		Config:    cfg,
		Direction: direction,
		fsys:      fsys,
		logger:    logger,
		doc:       doc,
		project:   proj,
		ws:        ws,
		binary:    binary,
	}
	if err := r.compute(); err != nil {
		return nil, errors.Join(err, ws.Close())
	}
	return r, nil
}

func (r *Run) compute() error {
	codec := r.project.Codec()
	extracted := r.ws.Path(extractedDir)
	if err := modules.WriteFolder(r.fsys, extracted, r.binary, codec); err != nil {
		return fmt.Errorf("writing extracted modules: %w", err)
	}
	binary, err := modules.LoadFolder(r.fsys, extracted, codec)
	if err != nil {
		return err
	}
	folder, err := modules.LoadFolder(r.fsys, r.Config.Folder, codec)
	if err != nil {
		return err
	}

	old, new := folder, binary
	if r.Direction == core.Publish {
		old, new = binary, folder
	}
	patches, err := patch.Compute(old, new, patch.Options{
		Direction:               r.Direction,
		AllowNewDocumentModules: r.Config.AllowNewDocumentModules,
		Logger:                  r.logger,
	})
	if err != nil {
		return err
	}

	bus := core.NewMemoryEventBus(r.logger)
	bus.Subscribe(patch.EventCommitToggled, core.EventHandlerFunc(func(e core.Event) error {
		t, ok := e.Data().(patch.CommitToggled)
		if !ok {
			return fmt.Errorf("unexpected event data %T", e.Data())
		}
		r.logger.Debug().Str("patch", t.Patch.ID()).Bool("committed", t.Committed).Msg("commit flag changed")
		return nil
	}))
	r.sel = patch.NewSelection(patches, bus)

	r.logger.Info().
		Stringer("direction", r.Direction).
		Str("document", r.Config.Document).
		Str("folder", r.Config.Folder).
		Int("patches", len(patches)).
		Msg("computed changes")
	return nil
}

// Patches returns every detected patch in order.
func (r *Run) Patches() []*patch.Patch {
	return r.sel.Patches()
}

// Selection holds the commit flags of the patches.
func (r *Run) Selection() *patch.Selection {
	return r.sel
}

// Find returns the patches of the named module.
func (r *Run) Find(name string) []*patch.Patch {
	var out []*patch.Patch
	for _, p := range r.sel.Patches() {
		if strings.EqualFold(p.Name, name) {
			out = append(out, p)
		}
	}
	return out
}

// Preview writes a preview of every patch of the named module to w. With
// a diff tool configured, text changes are shown by running the tool on
// the two versions instead.
func (r *Run) Preview(ctx context.Context, w io.Writer, name string) error {
	patches := r.Find(name)
	if len(patches) == 0 {
		return fmt.Errorf("no changes to module %s", name)
	}
	for _, p := range patches {
		if r.Config.DiffTool != "" && hasText(p) {
			if err := r.externalDiff(ctx, w, p); err != nil {
				return err
			}
			continue
		}
		text, err := p.Preview()
		if err != nil {
			return err
		}
		if _, err := io.WriteString(w, text); err != nil {
			return err
		}
	}
	return nil
}

func hasText(p *patch.Patch) bool {
	switch p.Kind {
	case patch.AddFile, patch.DeleteFile, patch.FileTypeChanged, patch.WholeFileChanged, patch.ProjectDescriptorChanged:
		return true
	}
	return false
}

func (r *Run) externalDiff(ctx context.Context, w io.Writer, p *patch.Patch) error {
	codec := r.project.Codec()
	var args []string
	for _, side := range []struct {
		dir string
		m   *modules.Module
	}{{"a", p.Old}, {"b", p.New}} {
		name := path.Join(previewDir, side.dir, p.Name+".txt")
		var data []byte
		if side.m != nil {
			name = path.Join(previewDir, side.dir, side.m.FileName())
			var err error
			if data, err = codec.Encode(side.m.Text); err != nil {
				return err
			}
		}
		if _, err := r.ws.WriteFile(name, data); err != nil {
			return err
		}
		native, ok := r.ws.OSPath(name)
		if !ok {
			return fmt.Errorf("diff tool %s needs files on disk", r.Config.DiffTool)
		}
		args = append(args, native)
	}

	res, err := filesystem.RunProcess(ctx, r.Config.DiffTool, args, filesystem.WithCaptureOutput())
	if err != nil {
		return err
	}
	r.logger.Debug().Str("tool", r.Config.DiffTool).Int("exit_code", res.ExitCode).Msg("diff tool finished")
	if res.Stderr != "" {
		r.logger.Warn().Str("tool", r.Config.DiffTool).Msg(strings.TrimSpace(res.Stderr))
	}
	_, err = io.WriteString(w, res.Stdout)
	return err
}

// Commit applies the committed patches to the target side: the folder on
// extract, the document on publish. The document is replaced by renaming
// a finished copy over it.
func (r *Run) Commit() (*Result, error) {
	committed := r.sel.CommittedPatches()
	if len(committed) == 0 {
		r.logger.Info().Msg("nothing to commit")
		return &Result{}, nil
	}
	plan, err := patch.NewPlan(committed, r.logger)
	if err != nil {
		return nil, err
	}

	if r.Direction == core.Extract {
		if err := plan.ApplyToFolder(r.fsys, r.Config.Folder, r.project.Codec()); err != nil {
			return nil, err
		}
		r.logger.Info().Int("patches", len(committed)).Str("folder", r.Config.Folder).Msg("extracted")
		return &Result{Applied: committed, Target: r.Config.Folder}, nil
	}

	target := r.binary.Clone()
	if err := plan.ApplyToSet(target); err != nil {
		return nil, err
	}
	if err := r.project.Apply(target); err != nil {
		return nil, err
	}
	data, err := r.doc.Encode()
	if err != nil {
		return nil, err
	}
	if _, err := r.ws.WriteFile(documentFile, data); err != nil {
		return nil, err
	}
	if err := r.ws.Commit(documentFile, r.Config.Document); err != nil {
		return nil, err
	}
	r.logger.Info().Int("patches", len(committed)).Str("document", r.Config.Document).Msg("published")
	return &Result{Applied: committed, Target: r.Config.Document}, nil
}

// Close removes the run's workspace.
func (r *Run) Close() error {
	return r.ws.Close()
}
