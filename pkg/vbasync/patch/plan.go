package patch

import (
	"fmt"
	"sort"

	"github.com/gammazero/toposort"
	"github.com/rs/zerolog"

	"github.com/arthur-debert/vbasync/pkg/vbasync/filesystem"
	"github.com/arthur-debert/vbasync/pkg/vbasync/modules"
)

// Step is one patch of a plan with the ids of the steps that must run
// before it.
type Step struct {
	Patch        *Patch
	Dependencies []string
}

// Plan is an ordered list of steps.
type Plan struct {
	Steps  []*Step
	logger zerolog.Logger
}

// NewPlan orders patches so that every step runs after its dependencies:
// additions after deletions, form binaries after the form's text, and the
// descriptor after every module. Independent steps keep their input order.
func NewPlan(patches []*Patch, logger zerolog.Logger) (*Plan, error) {
	byID := make(map[string]*Step, len(patches))
	steps := make([]*Step, 0, len(patches))
	for _, p := range patches {
		if _, dup := byID[p.ID()]; dup {
			return nil, fmt.Errorf("patch %s appears twice", p.ID())
		}
		s := &Step{Patch: p}
		byID[p.ID()] = s
		steps = append(steps, s)
	}

	for _, s := range steps {
		p := s.Patch
		switch p.Kind {
		case AddFile:
			for _, q := range patches {
				if q.Kind == DeleteFile {
					s.Dependencies = append(s.Dependencies, q.ID())
				}
			}
		case FormControlsChanged, FormBinaryAdded, FormBinaryDeleted:
			text := (&Patch{Kind: WholeFileChanged, Name: p.Name}).ID()
			if _, ok := byID[text]; ok {
				s.Dependencies = append(s.Dependencies, text)
			}
		case ProjectDescriptorChanged:
			for _, q := range patches {
				if q.Kind != ProjectDescriptorChanged && q.Kind != LicenseBlobChanged {
					s.Dependencies = append(s.Dependencies, q.ID())
				}
			}
		}
	}

	edges := make([]toposort.Edge, 0)
	for _, s := range steps {
		for _, dep := range s.Dependencies {
			edges = append(edges, toposort.Edge{dep, s.Patch.ID()})
		}
	}
	sorted, err := toposort.Toposort(edges)
	if err != nil {
		return nil, fmt.Errorf("circular dependency between patches: %w", err)
	}

	// Rank each step by its longest dependency chain so the order does not
	// depend on how the sort broke ties.
	depth := make(map[string]int, len(steps))
	for _, v := range sorted {
		id, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected type in topological sort result: %T", v)
		}
		for _, dep := range byID[id].Dependencies {
			if depth[dep]+1 > depth[id] {
				depth[id] = depth[dep] + 1
			}
		}
	}
	sort.SliceStable(steps, func(i, j int) bool {
		return depth[steps[i].Patch.ID()] < depth[steps[j].Patch.ID()]
	})

	logger.Debug().
		Int("steps", len(steps)).
		Int("dependency_edges", len(edges)).
		Msg("resolved patch plan")
	return &Plan{Steps: steps, logger: logger}, nil
}

// ApplyToFolder carries the plan out on a source folder.
func (pl *Plan) ApplyToFolder(fsys filesystem.FileSystem, dir string, codec *filesystem.Codec) error {
	if err := fsys.MkdirAll(dir, 0755); err != nil {
		return err
	}
	for _, s := range pl.Steps {
		p := s.Patch
		pl.logger.Info().Str("patch", p.ID()).Str("folder", dir).Msg("applying patch")

		var err error
		switch p.Kind {
		case DeleteFile:
			err = modules.RemoveModule(fsys, dir, p.Name)
		case AddFile, ProjectDescriptorChanged, LicenseBlobChanged:
			err = modules.WriteModule(fsys, dir, p.New, codec)
		case FileTypeChanged:
			if err = modules.RemoveModule(fsys, dir, p.Old.Name); err == nil {
				err = modules.WriteModule(fsys, dir, p.New, codec)
			}
		case WholeFileChanged:
			text := p.New.Clone()
			text.Binary = nil
			err = modules.WriteModule(fsys, dir, text, codec)
		case FormControlsChanged, FormBinaryAdded:
			err = modules.WriteFormBinary(fsys, dir, p.New)
		case FormBinaryDeleted:
			err = modules.RemoveFormBinary(fsys, dir, p.Name)
		default:
			err = fmt.Errorf("unknown patch kind %s", p.Kind)
		}
		if err != nil {
			return fmt.Errorf("%s: %w", p.ID(), err)
		}
	}
	return nil
}

// ApplyToSet carries the plan out on a module set.
func (pl *Plan) ApplyToSet(set *modules.Set) error {
	for _, s := range pl.Steps {
		p := s.Patch
		pl.logger.Info().Str("patch", p.ID()).Msg("applying patch")

		switch p.Kind {
		case DeleteFile:
			set.Remove(p.Name)
		case AddFile, FileTypeChanged, ProjectDescriptorChanged, LicenseBlobChanged:
			set.Put(p.New.Clone())
		case WholeFileChanged, FormControlsChanged, FormBinaryAdded, FormBinaryDeleted:
			current, ok := set.Get(p.Name)
			if !ok {
				return fmt.Errorf("%s: module %s is not in the target", p.ID(), p.Name)
			}
			m := current.Clone()
			switch p.Kind {
			case WholeFileChanged:
				m.Text = p.New.Text
			case FormBinaryDeleted:
				m.Binary = nil
			default:
				m.Binary = append([]byte(nil), p.New.Binary...)
			}
			set.Put(m)
		default:
			return fmt.Errorf("unknown patch kind %s", p.Kind)
		}
	}
	return nil
}
