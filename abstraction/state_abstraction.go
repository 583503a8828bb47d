package abstraction

import (
	"fmt"
	"io"
	"sort"

	"github.com/zeu5/rl-abstraction/types"
)

// StateAbstraction aggregates ground states into abstract states.
// Phi must be pure and total over the reachable ground states.
type StateAbstraction interface {
	Phi(types.State) types.State
}

// AbstractState is the state produced by the built-in abstractions
type AbstractState string

var _ types.State = AbstractState("")

func (a AbstractState) Hash() string {
	return string(a)
}

type identityAbstraction struct{}

func (identityAbstraction) Phi(s types.State) types.State {
	return s
}

// IdentityAbstraction returns the abstraction with phi(s) = s
func IdentityAbstraction() StateAbstraction {
	return identityAbstraction{}
}

// FuncAbstraction adapts a StateAbstractor function
type FuncAbstraction types.StateAbstractor

var _ StateAbstraction = FuncAbstraction(nil)

func (f FuncAbstraction) Phi(s types.State) types.State {
	return f(s)
}

// MappedAbstraction is a table from ground state hashes to abstract states.
// Ground states absent from the table map to themselves.
type MappedAbstraction struct {
	phi map[string]types.State
}

var _ StateAbstraction = &MappedAbstraction{}

func NewMappedAbstraction() *MappedAbstraction {
	return &MappedAbstraction{
		phi: make(map[string]types.State),
	}
}

// Set maps the ground state to the abstract state. Not safe to call once
// the abstraction is in use.
func (m *MappedAbstraction) Set(ground, abstract types.State) *MappedAbstraction {
	m.phi[ground.Hash()] = abstract
	return m
}

func (m *MappedAbstraction) Phi(s types.State) types.State {
	if a, ok := m.phi[s.Hash()]; ok {
		return a
	}
	return s
}

// AbstractStates returns the distinct abstract state hashes, sorted
func (m *MappedAbstraction) AbstractStates() []string {
	seen := make(map[string]bool)
	for _, a := range m.phi {
		seen[a.Hash()] = true
	}
	out := make([]string, 0, len(seen))
	for h := range seen {
		out = append(out, h)
	}
	sort.Strings(out)
	return out
}

// Sizes returns the number of ground states mapped and abstract states
func (m *MappedAbstraction) Sizes() (int, int) {
	return len(m.phi), len(m.AbstractStates())
}

func (m *MappedAbstraction) PrintStateSpaceSizes(w io.Writer) {
	ground, abstract := m.Sizes()
	fmt.Fprintf(w, "Ground states: %d, Abstract states: %d\n", ground, abstract)
}

// StateAbstractionStack holds increasingly coarse abstractions.
// Level 0 is the identity, level i applies the first i abstractions in order.
type StateAbstractionStack struct {
	levels []StateAbstraction
}

func NewStateAbstractionStack(levels ...StateAbstraction) *StateAbstractionStack {
	return &StateAbstractionStack{levels: levels}
}

func (s *StateAbstractionStack) Add(sa StateAbstraction) {
	s.levels = append(s.levels, sa)
}

// NumLevels counts the identity level 0
func (s *StateAbstractionStack) NumLevels() int {
	return len(s.levels) + 1
}

// UpTo composes the abstractions up to the given level
func (s *StateAbstractionStack) UpTo(level int) (StateAbstraction, error) {
	if level < 0 || level >= s.NumLevels() {
		return nil, fmt.Errorf("%w: %d of %d", ErrInvalidLevel, level, s.NumLevels())
	}
	if level == 0 {
		return IdentityAbstraction(), nil
	}
	chain := s.levels[:level]
	return FuncAbstraction(func(st types.State) types.State {
		for _, sa := range chain {
			st = sa.Phi(st)
		}
		return st
	}), nil
}

// PrintStateSpaceSizes reports the number of distinct states at every
// level for the given ground states
func (s *StateAbstractionStack) PrintStateSpaceSizes(w io.Writer, ground []types.State) {
	fmt.Fprintf(w, "State space sizes:\n")
	for level := 0; level < s.NumLevels(); level++ {
		sa, _ := s.UpTo(level)
		distinct := make(map[string]bool)
		for _, g := range ground {
			distinct[sa.Phi(g).Hash()] = true
		}
		fmt.Fprintf(w, "\tL%d: %d\n", level, len(distinct))
	}
}
