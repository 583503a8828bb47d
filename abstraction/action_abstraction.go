package abstraction

import (
	"fmt"
	"log/slog"

	"github.com/zeu5/rl-abstraction/types"
)

type terminationCheck struct {
	state      string
	terminated bool
}

// ActionAbstraction exposes options as macro actions to the agent above it
// and translates the agent choices to primitive actions, one ground step at a time.
//
// The abstraction is either idle or running an option. When idle the agent
// is queried; when running, the option policy acts until its termination
// condition fires. Execution state is per instance, use Clone to obtain an
// independent copy for every concurrent trial.
type ActionAbstraction struct {
	options     []*Option
	primActions []types.Action
	withPrims   bool
	exposed     map[string]types.Action
	logger      *slog.Logger

	currentOption   *Option
	stepsSinceStart int
	// termination draw made by IsNextStepContinuingOption, reused by Act
	pending *terminationCheck
}

// NewActionAbstraction creates an abstraction over the primitive actions.
// Without options the abstraction passes primitive actions through.
func NewActionAbstraction(primActions []types.Action, options ...*Option) *ActionAbstraction {
	a := &ActionAbstraction{
		options:     options,
		primActions: primActions,
		logger:      slog.Default(),
	}
	a.index()
	return a
}

func (a *ActionAbstraction) index() {
	a.exposed = make(map[string]types.Action)
	for _, act := range a.Actions() {
		a.exposed[act.Hash()] = act
	}
}

// IncludePrimitives exposes the primitive actions alongside the options
func (a *ActionAbstraction) IncludePrimitives() *ActionAbstraction {
	a.withPrims = true
	a.index()
	return a
}

func (a *ActionAbstraction) SetLogger(l *slog.Logger) *ActionAbstraction {
	a.logger = l
	return a
}

// Actions is the action set exposed to the agent above this abstraction
func (a *ActionAbstraction) Actions() []types.Action {
	if len(a.options) == 0 {
		out := make([]types.Action, len(a.primActions))
		copy(out, a.primActions)
		return out
	}
	out := make([]types.Action, 0, len(a.options)+len(a.primActions))
	for _, o := range a.options {
		out = append(out, o)
	}
	if a.withPrims {
		out = append(out, a.primActions...)
	}
	return out
}

// CurrentOption returns the running option, nil when idle
func (a *ActionAbstraction) CurrentOption() *Option {
	return a.currentOption
}

func (a *ActionAbstraction) StepsSinceStart() int {
	return a.stepsSinceStart
}

// Act returns the primitive action to execute at groundState. The agent is
// only queried when no option is running or the running option terminated
// at groundState.
func (a *ActionAbstraction) Act(agent types.Agent, abstractState, groundState types.State, reward float64) (types.Action, error) {
	if a.currentOption != nil {
		if !a.terminatedAt(groundState) {
			a.stepsSinceStart += 1
			return a.optionAction(groundState)
		}
		a.logger.Debug("option terminated",
			"option", a.currentOption.Hash(),
			"steps", a.stepsSinceStart,
			"state", groundState.Hash())
		a.currentOption = nil
		a.stepsSinceStart = 0
	}
	a.pending = nil

	action, err := agent.Act(abstractState, reward)
	if err != nil {
		return nil, err
	}
	if action == nil {
		return nil, fmt.Errorf("%w: agent %s returned no action", ErrUnknownAction, agent.Name())
	}
	exposed, ok := a.exposed[action.Hash()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAction, action.Hash())
	}
	option, ok := exposed.(*Option)
	if !ok {
		return exposed, nil
	}
	if !option.IsInitiable(groundState) {
		return nil, invalidSelection(option, groundState)
	}
	option.start(groundState)
	a.currentOption = option
	a.stepsSinceStart = 0
	a.logger.Debug("option started", "option", option.Hash(), "state", groundState.Hash())
	return a.optionAction(groundState)
}

func (a *ActionAbstraction) optionAction(groundState types.State) (types.Action, error) {
	action := a.currentOption.Policy(groundState)
	if action == nil {
		return nil, fmt.Errorf("%w: option %s has no action at %s", ErrUnknownAction, a.currentOption.Hash(), groundState.Hash())
	}
	return action, nil
}

func (a *ActionAbstraction) terminatedAt(groundState types.State) bool {
	if p := a.pending; p != nil {
		a.pending = nil
		if p.state == groundState.Hash() {
			return p.terminated
		}
	}
	return a.currentOption.IsTerminated(groundState)
}

// IsNextStepContinuingOption is true iff an option is running and does not terminate at groundState
func (a *ActionAbstraction) IsNextStepContinuingOption(groundState types.State) bool {
	if a.currentOption == nil {
		return false
	}
	terminated := a.currentOption.IsTerminated(groundState)
	a.pending = &terminationCheck{state: groundState.Hash(), terminated: terminated}
	return !terminated
}

// Reset drops the running option, the option set is kept
func (a *ActionAbstraction) Reset() {
	a.currentOption = nil
	a.stepsSinceStart = 0
	a.pending = nil
}

func (a *ActionAbstraction) EndOfEpisode() {
	a.Reset()
}

// Clone returns an idle abstraction with copies of the same options
func (a *ActionAbstraction) Clone() *ActionAbstraction {
	options := make([]*Option, len(a.options))
	for i, o := range a.options {
		options[i] = o.Clone()
	}
	c := &ActionAbstraction{
		options:     options,
		primActions: a.primActions,
		withPrims:   a.withPrims,
		logger:      a.logger,
	}
	c.index()
	return c
}

// ActionAbstractionStack holds action abstractions of increasing coarseness.
// Level 0 passes primitive actions through.
type ActionAbstractionStack struct {
	primActions []types.Action
	levels      []*ActionAbstraction
}

func NewActionAbstractionStack(primActions []types.Action, levels ...*ActionAbstraction) *ActionAbstractionStack {
	return &ActionAbstractionStack{
		primActions: primActions,
		levels:      levels,
	}
}

func (s *ActionAbstractionStack) Add(aa *ActionAbstraction) {
	s.levels = append(s.levels, aa)
}

func (s *ActionAbstractionStack) NumLevels() int {
	return len(s.levels) + 1
}

// Levels returns the abstractions above level 0
func (s *ActionAbstractionStack) Levels() []*ActionAbstraction {
	return s.levels
}

// Level returns an independent copy of the abstraction at the given level
func (s *ActionAbstractionStack) Level(level int) (*ActionAbstraction, error) {
	if level < 0 || level >= s.NumLevels() {
		return nil, fmt.Errorf("%w: %d of %d", ErrInvalidLevel, level, s.NumLevels())
	}
	if level == 0 {
		return NewActionAbstraction(s.primActions), nil
	}
	return s.levels[level-1].Clone(), nil
}
