package abstraction

import (
	"fmt"

	"github.com/zeu5/rl-abstraction/types"
)

type induceConfig struct {
	gamma    float64
	maxSteps int
}

// InduceOption configures Induce
type InduceOption func(*induceConfig)

// WithGamma discounts the ground rewards accumulated during a rollout.
// The default of 1 sums them undiscounted.
func WithGamma(gamma float64) InduceOption {
	return func(c *induceConfig) {
		c.gamma = gamma
	}
}

// WithMaxOptionSteps bounds the number of ground steps of a rollout
func WithMaxOptionSteps(n int) InduceOption {
	return func(c *induceConfig) {
		c.maxSteps = n
	}
}

// InducedState is a state of the abstract MDP. It is indexed by the abstract
// state and carries the ground state rollouts start from.
type InducedState struct {
	Abstract types.State
	Ground   types.State
}

var _ types.State = &InducedState{}

func (s *InducedState) Hash() string {
	return s.Abstract.Hash()
}

// StepResult is the outcome of executing one abstract action
type StepResult struct {
	Next   *InducedState
	Reward float64
	// Steps is the number of ground steps the abstract action took
	Steps int
}

// AbstractMDP is the semi-Markov MDP induced by a state abstraction and an
// action abstraction over a ground MDP. Its transition executes an abstract
// action until the option terminates and its reward is the ground reward
// accumulated meanwhile. Not safe for concurrent use.
type AbstractMDP struct {
	ground      types.MDP
	stateAbstr  StateAbstraction
	actionAbstr *ActionAbstraction
	actions     []types.Action
	init        *InducedState
	gamma       float64
	maxSteps    int
}

// Induce builds the abstract MDP. The ground MDP and the action abstraction
// passed in are not modified, rollouts run on a copy of the action abstraction.
func Induce(mdp types.MDP, stateAbstr StateAbstraction, actionAbstr *ActionAbstraction, opts ...InduceOption) (*AbstractMDP, error) {
	cfg := &induceConfig{gamma: 1.0}
	for _, o := range opts {
		o(cfg)
	}
	if cfg.gamma <= 0 || cfg.gamma > 1 {
		return nil, fmt.Errorf("gamma must be in (0, 1], got %f", cfg.gamma)
	}
	if stateAbstr == nil {
		stateAbstr = IdentityAbstraction()
	}
	if actionAbstr == nil {
		actionAbstr = NewActionAbstraction(mdp.Actions())
	}
	aa := actionAbstr.Clone()
	groundInit := mdp.InitState()
	return &AbstractMDP{
		ground:      mdp,
		stateAbstr:  stateAbstr,
		actionAbstr: aa,
		actions:     aa.Actions(),
		init:        &InducedState{Abstract: stateAbstr.Phi(groundInit), Ground: groundInit},
		gamma:       cfg.gamma,
		maxSteps:    cfg.maxSteps,
	}, nil
}

func (m *AbstractMDP) Actions() []types.Action {
	return m.actions
}

func (m *AbstractMDP) InitState() *InducedState {
	return m.init
}

func (m *AbstractMDP) Gamma() float64 {
	return m.gamma
}

// Lift returns the induced state of a ground state
func (m *AbstractMDP) Lift(s types.State) *InducedState {
	if is, ok := s.(*InducedState); ok {
		return is
	}
	return &InducedState{Abstract: m.stateAbstr.Phi(s), Ground: s}
}

func (m *AbstractMDP) Transition(s types.State, a types.Action) (types.State, error) {
	res, err := m.Step(s, a)
	if err != nil {
		return nil, err
	}
	return res.Next, nil
}

func (m *AbstractMDP) Reward(s types.State, a types.Action) (float64, error) {
	res, err := m.Step(s, a)
	if err != nil {
		return 0, err
	}
	return res.Reward, nil
}

// Step executes the abstract action from s to completion. s is either an
// InducedState or a ground state.
func (m *AbstractMDP) Step(s types.State, a types.Action) (StepResult, error) {
	g := m.Lift(s).Ground
	executor := &committedAgent{action: a}

	m.actionAbstr.Reset()
	defer m.actionAbstr.Reset()

	total := 0.0
	discount := 1.0
	steps := 0
	for {
		action, err := m.actionAbstr.Act(executor, m.stateAbstr.Phi(g), g, 0)
		if err != nil {
			return StepResult{}, err
		}
		total += discount * m.ground.Reward(g, action)
		discount *= m.gamma
		g = m.ground.Transition(g, action)
		steps += 1

		if types.IsTerminal(m.ground, g) || !m.actionAbstr.IsNextStepContinuingOption(g) {
			break
		}
		if m.maxSteps > 0 && steps >= m.maxSteps {
			return StepResult{}, fmt.Errorf("%w: %s after %d steps", ErrOptionDidNotTerminate, a.Hash(), steps)
		}
	}
	return StepResult{
		Next:   m.Lift(g),
		Reward: total,
		Steps:  steps,
	}, nil
}

// committedAgent always selects the abstract action being rolled out
type committedAgent struct {
	action types.Action
}

func (c *committedAgent) Name() string {
	return "induce-executor"
}

func (c *committedAgent) Act(_ types.State, _ float64) (types.Action, error) {
	return c.action, nil
}

func (c *committedAgent) Reset() {}

func (c *committedAgent) EndOfEpisode() {}
