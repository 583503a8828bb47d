package policies

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeu5/rl-abstraction/types"
)

type label string

func (l label) Hash() string {
	return string(l)
}

var (
	actA    = label("a")
	actB    = label("b")
	actions = []types.Action{actA, actB}
)

func TestQTable(t *testing.T) {
	q := NewQTable()
	assert.Equal(t, 2.0, q.Get("s", "a", 2))
	assert.False(t, q.HasState("s"))

	q.Set("s", "a", 1)
	q.Set("s", "a", 3)
	assert.Equal(t, 3.0, q.Get("s", "a", 0))
	assert.True(t, q.HasState("s"))

	best, val := q.MaxAmong("s", []string{"a", "b"}, 0)
	assert.Equal(t, "a", best)
	assert.Equal(t, 3.0, val)

	// ties go to the first action
	best, _ = q.MaxAmong("other", []string{"b", "a"}, 0)
	assert.Equal(t, "b", best)

	best, val = q.MaxAmong("s", nil, -1)
	assert.Equal(t, "", best)
	assert.Equal(t, -1.0, val)
}

func TestQLearningUpdate(t *testing.T) {
	agent := NewQLearningAgent(actions, QLearningConfig{Alpha: 1, Gamma: 0, Epsilon: 0, Seed: 1})

	a, err := agent.Act(label("s0"), 0)
	require.NoError(t, err)
	assert.Equal(t, actA, a)

	_, err = agent.Act(label("s1"), -1)
	require.NoError(t, err)
	assert.Equal(t, -1.0, agent.QTable().Get("s0", "a", 0))
	agent.EndOfEpisode()

	// a looks worse now, the greedy choice moves to b
	a, err = agent.Act(label("s0"), 0)
	require.NoError(t, err)
	assert.Equal(t, actB, a)

	agent.Reset()
	assert.Equal(t, 0, agent.QTable().NumStates())
}

func TestQLearningSnapshot(t *testing.T) {
	agent := NewQLearningAgent(actions, DefaultQLearningConfig())
	agent.QTable().Set("s", "a", 1.5)
	p := filepath.Join(t.TempDir(), "run", "qlearning.json")
	require.NoError(t, agent.Snapshot(p))

	bs, err := os.ReadFile(p)
	require.NoError(t, err)
	var table map[string]map[string]float64
	require.NoError(t, json.Unmarshal(bs, &table))
	assert.Equal(t, map[string]map[string]float64{"s": {"a": 1.5}}, table)
}

func TestQLearningSoftmax(t *testing.T) {
	agent := NewQLearningAgent(actions, QLearningConfig{Alpha: 0.5, Gamma: 0.9, Temperature: 0.1, Seed: 3})
	assert.Equal(t, "Q-softmax", agent.Name())
	agent.QTable().Set("s", "a", 10)
	agent.QTable().Set("s", "b", -10)
	for i := 0; i < 20; i++ {
		a, err := agent.Act(label("s"), 0)
		require.NoError(t, err)
		assert.True(t, types.ContainsAction(actions, a))
		agent.EndOfEpisode()
	}
}

func TestRMaxExploresUnknownPairs(t *testing.T) {
	agent := NewRMaxAgent(actions, RMaxConfig{M: 1, Gamma: 0.5, RMax: 1, Epsilon: 0.001, MaxIterations: 100})

	a, err := agent.Act(label("s"), 0)
	require.NoError(t, err)
	assert.Equal(t, actA, a)

	// (s, a) becomes known with a negative reward, b is still optimistic
	a, err = agent.Act(label("s"), -1)
	require.NoError(t, err)
	assert.Equal(t, actB, a)
	assert.Equal(t, 1, agent.NumKnownSA())
}

func TestRMaxResetReward(t *testing.T) {
	agent := NewRMaxAgent(actions, RMaxConfig{M: 1, Gamma: 0.5, RMax: 1, Epsilon: 0.001, MaxIterations: 100})
	for i := 0; i < 4; i++ {
		_, err := agent.Act(label("s"), -1)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, agent.NumKnownSA())

	agent.ResetReward()
	assert.Equal(t, 0, agent.NumKnownSA())
	// transitions survive the reward reset
	assert.Len(t, agent.transCounts["s"], 2)

	agent.Reset()
	assert.Empty(t, agent.transCounts)
}

func TestRandomAgent(t *testing.T) {
	agent := NewRandomAgent(actions)
	for i := 0; i < 10; i++ {
		a, err := agent.Act(label("s"), 0)
		require.NoError(t, err)
		assert.True(t, types.ContainsAction(actions, a))
	}
}

func TestBonusAgent(t *testing.T) {
	agent := NewBonusAgent(actions, BonusConfig{Alpha: 1, Gamma: 0, Epsilon: 0, Bonus: 1})
	a, err := agent.Act(label("s0"), 0)
	require.NoError(t, err)
	assert.Equal(t, actA, a)

	_, err = agent.Act(label("s1"), -1)
	require.NoError(t, err)
	agent.EndOfEpisode()
	assert.Equal(t, 1, agent.Visits("s0", "a"))

	// the bonus of the first visit offsets the penalty, b is still optimistic
	a, err = agent.Act(label("s0"), 0)
	require.NoError(t, err)
	assert.Equal(t, actB, a)

	agent.Reset()
	assert.Equal(t, 0, agent.Visits("s0", "a"))
}
