package meta

import (
	"encoding/json"
	"fmt"

	"github.com/aviator-co/pstack/internal/patchname"
	"github.com/aviator-co/pstack/internal/utils/errutils"
	"golang.org/x/exp/slices"
)

// Status says which of the three stack collections a patch belongs to.
type Status int

const (
	StatusApplied Status = iota
	StatusUnapplied
	StatusHidden
)

func (s Status) String() string {
	switch s {
	case StatusApplied:
		return "applied"
	case StatusUnapplied:
		return "unapplied"
	case StatusHidden:
		return "hidden"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Patch is the descriptor of a single patch.
type Patch struct {
	// The commit that holds the patch's changes.
	Commit string
	Status Status
}

// ErrCorruptState is returned when persisted stack state violates one of the
// stack invariants.
type ErrCorruptState struct {
	Reason string
}

func (e ErrCorruptState) Error() string {
	return "corrupt stack state: " + e.Reason
}

// State is the persisted state of a stack.
// A State is immutable once built. Every patch has exactly one status so the
// applied, unapplied and hidden collections can never overlap.
type State struct {
	// The branch head at the time the state was written. If no patch is
	// applied, this is the base of the stack.
	Head string

	patches map[patchname.Name]Patch
	// applied ++ unapplied ++ hidden
	order []patchname.Name
}

// NewState builds a State. The three collections must be disjoint and every
// name must have a commit.
func NewState(
	head string,
	applied, unapplied, hidden []patchname.Name,
	commits map[patchname.Name]string,
) (*State, error) {
	s := &State{
		Head:    head,
		patches: make(map[patchname.Name]Patch, len(commits)),
		order:   make([]patchname.Name, 0, len(applied)+len(unapplied)+len(hidden)),
	}
	add := func(names []patchname.Name, status Status) error {
		for _, n := range names {
			if prev, ok := s.patches[n]; ok {
				return ErrCorruptState{fmt.Sprintf("patch %q is both %s and %s", n, prev.Status, status)}
			}
			commit, ok := commits[n]
			if !ok || commit == "" {
				return ErrCorruptState{fmt.Sprintf("patch %q has no commit", n)}
			}
			s.patches[n] = Patch{Commit: commit, Status: status}
			s.order = append(s.order, n)
		}
		return nil
	}
	if err := add(applied, StatusApplied); err != nil {
		return nil, err
	}
	if err := add(unapplied, StatusUnapplied); err != nil {
		return nil, err
	}
	if err := add(hidden, StatusHidden); err != nil {
		return nil, err
	}
	if len(s.patches) != len(commits) {
		for n := range commits {
			if _, ok := s.patches[n]; !ok {
				return nil, ErrCorruptState{fmt.Sprintf("patch %q is not in any collection", n)}
			}
		}
	}
	return s, nil
}

// EmptyState returns the state of a stack without patches based on head.
func EmptyState(head string) *State {
	return &State{Head: head, patches: map[patchname.Name]Patch{}}
}

func (s *State) filter(status Status) []patchname.Name {
	var names []patchname.Name
	for _, n := range s.order {
		if s.patches[n].Status == status {
			names = append(names, n)
		}
	}
	return names
}

// Applied returns the applied patches from bottom to top.
func (s *State) Applied() []patchname.Name {
	return s.filter(StatusApplied)
}

// Unapplied returns the unapplied patches in push order.
func (s *State) Unapplied() []patchname.Name {
	return s.filter(StatusUnapplied)
}

func (s *State) Hidden() []patchname.Name {
	return s.filter(StatusHidden)
}

// Names returns every known patch in stack order (applied, unapplied, hidden).
func (s *State) Names() []patchname.Name {
	return slices.Clone(s.order)
}

// Patch returns the descriptor of the named patch.
func (s *State) Patch(name patchname.Name) (Patch, bool) {
	p, ok := s.patches[name]
	return p, ok
}

// Top returns the top-most applied patch, if any.
func (s *State) Top() (patchname.Name, bool) {
	applied := s.Applied()
	if len(applied) == 0 {
		return "", false
	}
	return applied[len(applied)-1], true
}

func (s *State) Commits() map[patchname.Name]string {
	commits := make(map[patchname.Name]string, len(s.patches))
	for n, p := range s.patches {
		commits[n] = p.Commit
	}
	return commits
}

// TopCommit returns the commit the branch head is expected to point to: the
// top applied patch's commit, or Head if nothing is applied.
func (s *State) TopCommit() string {
	if top, ok := s.Top(); ok {
		return s.patches[top].Commit
	}
	return s.Head
}

const stateVersion = 1

type stateJSON struct {
	Version   int                          `json:"version"`
	Head      string                       `json:"head"`
	Applied   []patchname.Name             `json:"applied"`
	Unapplied []patchname.Name             `json:"unapplied"`
	Hidden    []patchname.Name             `json:"hidden"`
	Patches   map[patchname.Name]patchJSON `json:"patches"`
}

type patchJSON struct {
	Commit string `json:"commit"`
}

func (s *State) MarshalJSON() ([]byte, error) {
	d := stateJSON{
		Version:   stateVersion,
		Head:      s.Head,
		Applied:   nonNil(s.Applied()),
		Unapplied: nonNil(s.Unapplied()),
		Hidden:    nonNil(s.Hidden()),
		Patches:   make(map[patchname.Name]patchJSON, len(s.patches)),
	}
	for n, p := range s.patches {
		d.Patches[n] = patchJSON{p.Commit}
	}
	return json.Marshal(d)
}

func (s *State) UnmarshalJSON(data []byte) error {
	var d stateJSON
	if err := json.Unmarshal(data, &d); err != nil {
		return ErrCorruptState{err.Error()}
	}
	if d.Version != stateVersion {
		return ErrCorruptState{fmt.Sprintf("unsupported version %d", d.Version)}
	}
	if d.Head == "" {
		return ErrCorruptState{"missing head"}
	}
	commits := make(map[patchname.Name]string, len(d.Patches))
	for n, p := range d.Patches {
		if _, err := patchname.Parse(string(n)); err != nil {
			return ErrCorruptState{err.Error()}
		}
		commits[n] = p.Commit
	}
	parsed, err := NewState(d.Head, d.Applied, d.Unapplied, d.Hidden, commits)
	if err != nil {
		return err
	}
	*s = *parsed
	return nil
}

// Encode serializes the state in its canonical persisted form.
func (s *State) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// Decode parses a state previously written by Encode.
func Decode(data []byte) (*State, error) {
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		if _, ok := errutils.As[ErrCorruptState](err); ok {
			return nil, err
		}
		return nil, ErrCorruptState{err.Error()}
	}
	return &s, nil
}

func nonNil(names []patchname.Name) []patchname.Name {
	if names == nil {
		return []patchname.Name{}
	}
	return names
}
