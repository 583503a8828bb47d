package abstraction

import (
	"strconv"

	"github.com/zeu5/rl-abstraction/types"
)

type pos int

func (p pos) Hash() string {
	return strconv.Itoa(int(p))
}

type move string

func (m move) Hash() string {
	return string(m)
}

var (
	moveLeft  = move("left")
	moveRight = move("right")
	moves     = []types.Action{moveLeft, moveRight}
)

// chain of states 0..length, -1 reward per step
type chainMDP struct {
	length   int
	terminal map[int]bool
}

var _ types.TerminalMDP = &chainMDP{}

func (c *chainMDP) Actions() []types.Action {
	return moves
}

func (c *chainMDP) InitState() types.State {
	return pos(0)
}

func (c *chainMDP) Transition(s types.State, a types.Action) types.State {
	p := int(s.(pos))
	if c.terminal[p] {
		return s
	}
	switch a {
	case moveRight:
		if p < c.length {
			p += 1
		}
	case moveLeft:
		if p > 0 {
			p -= 1
		}
	}
	return pos(p)
}

func (c *chainMDP) Reward(_ types.State, _ types.Action) float64 {
	return -1
}

func (c *chainMDP) IsTerminal(s types.State) bool {
	return c.terminal[int(s.(pos))]
}

// scriptedAgent returns the actions of its script in a loop and
// records every query it receives
type scriptedAgent struct {
	name    string
	actions []types.Action
	script  []types.Action
	next    int

	queries []types.State
	rewards []float64
	resets  int
	ends    int
}

var _ types.Agent = &scriptedAgent{}

func (s *scriptedAgent) Name() string {
	return s.name
}

func (s *scriptedAgent) Act(state types.State, reward float64) (types.Action, error) {
	s.queries = append(s.queries, state)
	s.rewards = append(s.rewards, reward)
	a := s.script[s.next%len(s.script)]
	s.next += 1
	return a, nil
}

func (s *scriptedAgent) Reset() {
	s.resets += 1
}

func (s *scriptedAgent) EndOfEpisode() {
	s.ends += 1
}

// scriptedFactory creates the agent and keeps a handle on it for the test
func scriptedFactory(target **scriptedAgent, script ...types.Action) types.AgentFactory {
	return func(actions []types.Action) types.Agent {
		a := &scriptedAgent{name: "scripted", actions: actions, script: script}
		*target = a
		return a
	}
}

// modelAgent exposes the optional capabilities
type modelAgent struct {
	scriptedAgent
	rewardResets int
	known        int
	snapshots    []string
}

func (m *modelAgent) ResetReward() {
	m.rewardResets += 1
}

func (m *modelAgent) NumKnownSA() int {
	return m.known
}

func (m *modelAgent) Snapshot(path string) error {
	m.snapshots = append(m.snapshots, path)
	return nil
}

func always(types.State) bool { return true }

func goRight(types.State) types.Action { return moveRight }

// every third cell, so a rollout started on one takes exactly three steps
func everyThird(s types.State) bool {
	return int(s.(pos))%3 == 0
}

func newThreeStepOption() *Option {
	return NewOption("three-right", everyThird, goRight, everyThird)
}

func reachedAtLeast(n int) TerminationFunc {
	return func(s types.State) bool {
		return int(s.(pos)) >= n
	}
}
