package abstraction

import (
	"fmt"

	"github.com/zeu5/rl-abstraction/types"
)

// AbstractionWrapper lets a ground agent act in the abstract space. Callers
// interact with it using ground states and receive primitive actions, the
// inner agent only ever observes abstract states and abstract actions.
type AbstractionWrapper struct {
	name        string
	agent       types.Agent
	stateAbstr  StateAbstraction
	actionAbstr *ActionAbstraction

	// capabilities of the inner agent, resolved at construction
	rewardResetter types.RewardResetter
	saCounter      types.KnownSACounter
	snapshotter    types.Snapshotter
}

var _ types.Agent = &AbstractionWrapper{}
var _ types.TaskResetter = &AbstractionWrapper{}

type wrapperConfig struct {
	stateAbstr  StateAbstraction
	actionAbstr *ActionAbstraction
	nameExt     string
}

// WrapperOption configures NewAbstractionWrapper
type WrapperOption func(*wrapperConfig)

func WithStateAbstraction(sa StateAbstraction) WrapperOption {
	return func(c *wrapperConfig) {
		c.stateAbstr = sa
	}
}

// WithActionAbstraction sets the action abstraction, the wrapper takes ownership of it
func WithActionAbstraction(aa *ActionAbstraction) WrapperOption {
	return func(c *wrapperConfig) {
		c.actionAbstr = aa
	}
}

func WithNameExt(ext string) WrapperOption {
	return func(c *wrapperConfig) {
		c.nameExt = ext
	}
}

// NewAbstractionWrapper instantiates the inner agent with the factory over
// the abstract action set. Missing abstractions default to the identity
// state abstraction and a pass-through action abstraction over actions.
func NewAbstractionWrapper(factory types.AgentFactory, actions []types.Action, opts ...WrapperOption) *AbstractionWrapper {
	cfg := &wrapperConfig{nameExt: "abstr"}
	for _, o := range opts {
		o(cfg)
	}
	if cfg.stateAbstr == nil {
		cfg.stateAbstr = IdentityAbstraction()
	}
	if cfg.actionAbstr == nil {
		cfg.actionAbstr = NewActionAbstraction(actions)
	}

	agent := factory(cfg.actionAbstr.Actions())
	w := &AbstractionWrapper{
		name:        agent.Name() + "-" + cfg.nameExt,
		agent:       agent,
		stateAbstr:  cfg.stateAbstr,
		actionAbstr: cfg.actionAbstr,
	}
	if r, ok := agent.(types.RewardResetter); ok {
		w.rewardResetter = r
	}
	if c, ok := agent.(types.KnownSACounter); ok {
		w.saCounter = c
	}
	if s, ok := agent.(types.Snapshotter); ok {
		w.snapshotter = s
	}
	return w
}

// NewHierarchyAgent wraps an agent with the abstractions of the given level of the stacks
func NewHierarchyAgent(factory types.AgentFactory, saStack *StateAbstractionStack, aaStack *ActionAbstractionStack, level int, opts ...WrapperOption) (*AbstractionWrapper, error) {
	sa, err := saStack.UpTo(level)
	if err != nil {
		return nil, err
	}
	aa, err := aaStack.Level(level)
	if err != nil {
		return nil, err
	}
	opts = append([]WrapperOption{WithNameExt(fmt.Sprintf("l%d", level))}, opts...)
	opts = append(opts, WithStateAbstraction(sa), WithActionAbstraction(aa))
	return NewAbstractionWrapper(factory, aaStack.primActions, opts...), nil
}

func (w *AbstractionWrapper) Name() string {
	return w.name
}

// Actions is the abstract action set the inner agent chooses from
func (w *AbstractionWrapper) Actions() []types.Action {
	return w.actionAbstr.Actions()
}

func (w *AbstractionWrapper) StateAbstraction() StateAbstraction {
	return w.stateAbstr
}

func (w *AbstractionWrapper) ActionAbstraction() *ActionAbstraction {
	return w.actionAbstr
}

// Act returns the primitive action to execute at the ground state
func (w *AbstractionWrapper) Act(groundState types.State, reward float64) (types.Action, error) {
	abstractState := w.stateAbstr.Phi(groundState)
	return w.actionAbstr.Act(w.agent, abstractState, groundState, reward)
}

func (w *AbstractionWrapper) Reset() {
	w.agent.Reset()
	w.actionAbstr.Reset()
}

// NewTask discards the reward model of the inner agent, if it has one
func (w *AbstractionWrapper) NewTask() {
	if w.rewardResetter != nil {
		w.rewardResetter.ResetReward()
	}
}

func (w *AbstractionWrapper) EndOfEpisode() {
	w.agent.EndOfEpisode()
	w.actionAbstr.EndOfEpisode()
}

// NumKnownSA forwards to model based inner agents
func (w *AbstractionWrapper) NumKnownSA() (int, error) {
	if w.saCounter == nil {
		return 0, fmt.Errorf("%w: %s does not count known state-action pairs", ErrUnsupportedAgentCapability, w.agent.Name())
	}
	return w.saCounter.NumKnownSA(), nil
}

// Snapshot saves what the inner agent learnt over the abstract space
func (w *AbstractionWrapper) Snapshot(path string) error {
	if w.snapshotter == nil {
		return fmt.Errorf("%w: %s cannot be saved", ErrUnsupportedAgentCapability, w.agent.Name())
	}
	return w.snapshotter.Snapshot(path)
}

// MakeAbstractMDP induces the abstract MDP of mdp under the wrapper abstractions
func (w *AbstractionWrapper) MakeAbstractMDP(mdp types.MDP, opts ...InduceOption) (*AbstractMDP, error) {
	return Induce(mdp, w.stateAbstr, w.actionAbstr, opts...)
}
