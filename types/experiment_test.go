package types

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter int

func (c counter) Hash() string {
	return strconv.Itoa(int(c))
}

type inc struct{}

func (inc) Hash() string {
	return "inc"
}

// line of cells 0..3, reaching 3 ends the episode
type lineMDP struct{}

func (lineMDP) Actions() []Action {
	return []Action{inc{}}
}

func (lineMDP) InitState() State {
	return counter(0)
}

func (lineMDP) Transition(s State, _ Action) State {
	c := s.(counter)
	if c < 3 {
		c += 1
	}
	return c
}

func (lineMDP) Reward(_ State, _ Action) float64 {
	return -1
}

func (lineMDP) IsTerminal(s State) bool {
	return s.(counter) == 3
}

type lineDistribution struct{}

func (lineDistribution) Sample() MDP {
	return lineMDP{}
}

func (lineDistribution) Actions() []Action {
	return []Action{inc{}}
}

type countingAgent struct {
	acts     int
	ends     int
	newTasks int
	failAt   int

	snapshots []string
}

func (a *countingAgent) Name() string {
	return "counting"
}

func (a *countingAgent) Act(_ State, _ float64) (Action, error) {
	a.acts += 1
	if a.failAt > 0 && a.acts >= a.failAt {
		return nil, errTest
	}
	return inc{}, nil
}

func (a *countingAgent) Reset() {}

func (a *countingAgent) EndOfEpisode() {
	a.ends += 1
}

func (a *countingAgent) NewTask() {
	a.newTasks += 1
}

func (a *countingAgent) Snapshot(path string) error {
	a.snapshots = append(a.snapshots, path)
	return nil
}

var errTest = errors.New("agent failure")

type memoryRecorder struct {
	mu      sync.Mutex
	records map[string][]any
}

func (m *memoryRecorder) Record(_ context.Context, key string, v any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[key] = append(m.records[key], v)
	return nil
}

func newTestComparison(config ExperimentConfig, agent *countingAgent) (*Comparison, *[]DataSet) {
	c := NewComparison(lineDistribution{}, config)
	c.SetOutput(io.Discard)
	c.AddExperiment(NewExperiment("line", func() (Agent, error) {
		return agent, nil
	}))
	collected := make([]DataSet, 0)
	c.AddAnalysis("rewards", EpisodeRewardAnalyzer(), func(_ int, names []string, ds []DataSet) {
		collected = append(collected, ds...)
	})
	return c, &collected
}

func TestComparisonRun(t *testing.T) {
	agent := &countingAgent{}
	c, collected := newTestComparison(ExperimentConfig{Runs: 1, Episodes: 2, Steps: 10, TaskSamples: 3}, agent)
	recorder := &memoryRecorder{records: make(map[string][]any)}
	c.SetRecorder(recorder)

	require.NoError(t, c.Run(context.Background()))
	require.Len(t, *collected, 1)
	rewards := (*collected)[0].(*EpisodeRewards)
	assert.Equal(t, [][]float64{{-3, -3}, {-3, -3}, {-3, -3}}, rewards.Rewards)

	// three steps and the final reward per episode
	assert.Equal(t, 6*4, agent.acts)
	assert.Equal(t, 6, agent.ends)
	assert.Equal(t, 3, agent.newTasks)

	require.Len(t, recorder.records["line"], 6)
	record := recorder.records["line"][0].(EpisodeRecord)
	assert.Equal(t, c.RunID, record.RunID)
	assert.Equal(t, 3, record.Steps)
	assert.Equal(t, "3", record.FinalState)
	// no snapshot directory set
	assert.Empty(t, agent.snapshots)

	status, ok := c.Statuses()["line"]
	require.True(t, ok)
	assert.False(t, status.Running)
}

func TestComparisonSnapshots(t *testing.T) {
	agent := &countingAgent{}
	c, _ := newTestComparison(ExperimentConfig{Runs: 2, Episodes: 1, Steps: 10, TaskSamples: 1}, agent)
	dir := t.TempDir()
	c.SetSnapshotDir(dir)
	c.SetLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

	require.NoError(t, c.Run(context.Background()))
	assert.Equal(t, []string{
		filepath.Join(dir, "0", "line.json"),
		filepath.Join(dir, "1", "line.json"),
	}, agent.snapshots)
}

func TestComparisonResetAtTerminal(t *testing.T) {
	agent := &countingAgent{}
	c, collected := newTestComparison(ExperimentConfig{Runs: 1, Episodes: 1, Steps: 7, TaskSamples: 1, ResetAtTerminal: true}, agent)

	require.NoError(t, c.Run(context.Background()))
	rewards := (*collected)[0].(*EpisodeRewards)
	assert.Equal(t, [][]float64{{-7}}, rewards.Rewards)
	// two terminal resets and the end of the episode
	assert.Equal(t, 3, agent.ends)
}

func TestComparisonAbortsOnAgentError(t *testing.T) {
	agent := &countingAgent{failAt: 5}
	c, collected := newTestComparison(ExperimentConfig{Runs: 2, Episodes: 2, Steps: 10, TaskSamples: 1}, agent)

	err := c.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errTest)
	assert.Empty(t, *collected)
}

func TestComparisonInvalidConfig(t *testing.T) {
	c, _ := newTestComparison(ExperimentConfig{}, &countingAgent{})
	assert.Error(t, c.Run(context.Background()))
}

func TestExperimentConfigMerge(t *testing.T) {
	merged := DefaultExperimentConfig().Merge(ExperimentConfig{Steps: 10, ResetAtTerminal: true})
	assert.Equal(t, ExperimentConfig{Runs: 1, Episodes: 1, Steps: 10, TaskSamples: 50, ResetAtTerminal: true}, merged)
}

func TestEpisodeRewards(t *testing.T) {
	rewards := &EpisodeRewards{Rewards: [][]float64{{1, 2}, {3, 4}}}
	assert.Equal(t, []float64{1, 2, 3, 4}, rewards.Flatten())
	assert.Equal(t, []float64{2, 3}, rewards.PerEpisodeMean())
	assert.Equal(t, 2.5, rewards.Mean())
	assert.Equal(t, 0.0, (&EpisodeRewards{}).Mean())
}

func TestParallelOutput(t *testing.T) {
	o := NewParallelOutput()
	assert.True(t, o.TrySet("running"))
	assert.Equal(t, "running", o.Get())
	o.SetRunning(true)
	assert.True(t, o.Running())
}
