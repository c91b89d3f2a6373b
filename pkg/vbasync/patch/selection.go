package patch

import (
	"strings"

	"github.com/arthur-debert/vbasync/pkg/vbasync/core"
)

// EventCommitToggled is published when a patch's commit flag changes.
const EventCommitToggled = "patch.commit.toggled"

// CommitToggled is the payload of EventCommitToggled.
type CommitToggled struct {
	Patch     *Patch
	Committed bool
}

// Selection records which patches of a run will be applied. Every patch
// starts committed.
type Selection struct {
	patches   []*Patch
	committed map[*Patch]bool
	bus       core.EventBus
}

// NewSelection creates a selection over patches. bus may be nil.
func NewSelection(patches []*Patch, bus core.EventBus) *Selection {
	s := &Selection{patches: patches, committed: make(map[*Patch]bool, len(patches)), bus: bus}
	for _, p := range patches {
		s.committed[p] = true
	}
	return s
}

// Patches returns every patch in order.
func (s *Selection) Patches() []*Patch {
	return s.patches
}

// Committed reports whether p will be applied.
func (s *Selection) Committed(p *Patch) bool {
	return s.committed[p]
}

// Set changes the commit flag of p, notifying subscribers when it changes.
func (s *Selection) Set(p *Patch, committed bool) error {
	current, ok := s.committed[p]
	if !ok || current == committed {
		return nil
	}
	s.committed[p] = committed
	if s.bus == nil {
		return nil
	}
	return s.bus.Publish(core.NewEvent(EventCommitToggled, CommitToggled{Patch: p, Committed: committed}))
}

// Toggle flips the commit flag of p.
func (s *Selection) Toggle(p *Patch) error {
	return s.Set(p, !s.committed[p])
}

// SetAll sets the commit flag of every patch.
func (s *Selection) SetAll(committed bool) error {
	for _, p := range s.patches {
		if err := s.Set(p, committed); err != nil {
			return err
		}
	}
	return nil
}

// Only commits the patches of the named modules and nothing else. Names
// match without regard to case.
func (s *Selection) Only(names ...string) error {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[strings.ToUpper(n)] = true
	}
	for _, p := range s.patches {
		if err := s.Set(p, want[strings.ToUpper(p.Name)]); err != nil {
			return err
		}
	}
	return nil
}

// CommittedPatches returns the committed patches in order.
func (s *Selection) CommittedPatches() []*Patch {
	var out []*Patch
	for _, p := range s.patches {
		if s.committed[p] {
			out = append(out, p)
		}
	}
	return out
}
