package types

// MDP is the ground decision process the abstractions are built over.
// Transition and Reward must be deterministic functions of their arguments
// for the induced abstract MDP to be well defined.
type MDP interface {
	// Actions available in the MDP, in a fixed order
	Actions() []Action
	// InitState the episodes start from
	InitState() State
	Transition(State, Action) State
	Reward(State, Action) float64
}

// TerminalMDP is implemented by MDPs with absorbing states
type TerminalMDP interface {
	MDP
	IsTerminal(State) bool
}

// MDPDistribution samples tasks that share an action set
type MDPDistribution interface {
	Sample() MDP
	Actions() []Action
}

// State of the system that agents observe
type State interface {
	// Indexed by the Hash
	// Should be deterministic
	Hash() string
}

// And Action that an agent can take
type Action interface {
	// Index of the action
	// Should be deterministic
	Hash() string
}

// StateAbstractor maps a ground state to its abstract counterpart
type StateAbstractor func(State) State

// IsTerminal returns true if the mdp has absorbing states and s is one of them
func IsTerminal(mdp MDP, s State) bool {
	t, ok := mdp.(TerminalMDP)
	return ok && t.IsTerminal(s)
}

// ContainsAction checks if the action hash is part of the list
func ContainsAction(actions []Action, a Action) bool {
	for _, other := range actions {
		if other.Hash() == a.Hash() {
			return true
		}
	}
	return false
}
