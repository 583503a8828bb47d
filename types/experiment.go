package types

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ExperimentConfig contains the parameters of a comparison
type ExperimentConfig struct {
	Runs        int `yaml:"runs"`
	Episodes    int `yaml:"episodes"` // episodes per task
	Steps       int `yaml:"steps"`    // steps per episode
	TaskSamples int `yaml:"tasks"`    // tasks sampled from the distribution
	// ResetAtTerminal restarts from the initial state when a terminal state is
	// reached, the episode then continues until Steps is reached
	ResetAtTerminal bool `yaml:"reset_at_terminal"`
}

func DefaultExperimentConfig() ExperimentConfig {
	return ExperimentConfig{
		Runs:        1,
		Episodes:    1,
		Steps:       3000,
		TaskSamples: 50,
	}
}

// Merge overrides the fields of c with the non zero fields of other
func (c ExperimentConfig) Merge(other ExperimentConfig) ExperimentConfig {
	if other.Runs > 0 {
		c.Runs = other.Runs
	}
	if other.Episodes > 0 {
		c.Episodes = other.Episodes
	}
	if other.Steps > 0 {
		c.Steps = other.Steps
	}
	if other.TaskSamples > 0 {
		c.TaskSamples = other.TaskSamples
	}
	if other.ResetAtTerminal {
		c.ResetAtTerminal = true
	}
	return c
}

func (c ExperimentConfig) Validate() error {
	if c.Runs <= 0 || c.Episodes <= 0 || c.Steps <= 0 || c.TaskSamples <= 0 {
		return fmt.Errorf("runs, episodes, steps and tasks must be positive: %+v", c)
	}
	return nil
}

// Experiment creates a fresh agent for every run
type Experiment struct {
	Name    string
	Factory func() (Agent, error)
}

func NewExperiment(name string, factory func() (Agent, error)) *Experiment {
	return &Experiment{
		Name:    name,
		Factory: factory,
	}
}

// EpisodeRecord is the outcome of a single episode
type EpisodeRecord struct {
	RunID      string  `json:"run_id"`
	Run        int     `json:"run"`
	Experiment string  `json:"experiment"`
	Task       int     `json:"task"`
	Episode    int     `json:"episode"`
	Steps      int     `json:"steps"`
	Reward     float64 `json:"reward"`
	FinalState string  `json:"final_state"`
}

// Recorder persists episode records
type Recorder interface {
	Record(ctx context.Context, key string, v any) error
}

// Generic Dataset that contains information after processing the traces
type DataSet interface{}

// Analyzer compresses the traces of one experiment to a DataSet
type Analyzer interface {
	// task, episode, trace of the episode
	Analyze(int, int, *Trace)
	// Resulting dataset
	DataSet() DataSet
}

// AnalyzerFactory creates the analyzer of one experiment run,
// every experiment runs in its own goroutine with its own analyzer
type AnalyzerFactory func() Analyzer

// Comparator differentiates between different datasets with associated names
// run, experiment names, datasets
type Comparator func(int, []string, []DataSet)

// Comparison runs the experiments on tasks sampled from the distribution.
// The traces obtained from the experiments are analyzed
// and the analyzed datasets are then compared.
type Comparison struct {
	RunID       string
	Experiments []*Experiment

	distribution MDPDistribution
	config       ExperimentConfig
	analyzers    map[string]AnalyzerFactory
	comparators  map[string]Comparator
	recorder     Recorder
	snapshotDir  string
	logger       *slog.Logger
	out          io.Writer

	mu      sync.Mutex
	outputs map[string]*ParallelOutput
}

// NewComparison creates a comparison instance
func NewComparison(distribution MDPDistribution, config ExperimentConfig) *Comparison {
	return &Comparison{
		RunID:        uuid.NewString(),
		Experiments:  make([]*Experiment, 0),
		distribution: distribution,
		config:       config,
		analyzers:    make(map[string]AnalyzerFactory),
		comparators:  make(map[string]Comparator),
		logger:       slog.Default(),
		out:          os.Stdout,
		outputs:      make(map[string]*ParallelOutput),
	}
}

func (c *Comparison) SetLogger(l *slog.Logger) {
	c.logger = l
}

// SetOutput redirects the live status lines, stdout by default
func (c *Comparison) SetOutput(w io.Writer) {
	c.out = w
}

// SetRecorder records every episode under the experiment name
func (c *Comparison) SetRecorder(r Recorder) {
	c.recorder = r
}

// SetSnapshotDir saves the agents that support it at the end of every
// run, under dir/<run>/<experiment>.json
func (c *Comparison) SetSnapshotDir(dir string) {
	c.snapshotDir = dir
}

// AddAnalysis adds an analyzer and comparator to the comparison
func (c *Comparison) AddAnalysis(name string, analyzer AnalyzerFactory, comparator Comparator) {
	c.analyzers[name] = analyzer
	c.comparators[name] = comparator
}

// Add experiments to compare
func (c *Comparison) AddExperiment(e *Experiment) {
	c.Experiments = append(c.Experiments, e)
	c.mu.Lock()
	c.outputs[e.Name] = NewParallelOutput()
	c.mu.Unlock()
}

// ExperimentStatus is the live status of an experiment
type ExperimentStatus struct {
	Status  string `json:"status"`
	Running bool   `json:"running"`
}

// Statuses returns the last status line of every experiment
func (c *Comparison) Statuses() map[string]ExperimentStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]ExperimentStatus, len(c.outputs))
	for name, o := range c.outputs {
		out[name] = ExperimentStatus{Status: o.Get(), Running: o.Running()}
	}
	return out
}

func (c *Comparison) parallelOutputs() []*ParallelOutput {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*ParallelOutput, len(c.Experiments))
	for i, e := range c.Experiments {
		out[i] = c.outputs[e.Name]
	}
	return out
}

// Run the comparison. Experiments of a run execute in parallel, each with
// its own agent; the task sequence of a run is shared by all experiments.
// The first error aborts the run.
func (c *Comparison) Run(ctx context.Context) error {
	if err := c.config.Validate(); err != nil {
		return err
	}
	outputs := c.parallelOutputs()
	printer := NewTerminalPrinter(ctx, outputs, time.Second)
	printer.SetOutput(c.out)
	printer.Start()
	defer printer.Stop()

	names := make([]string, len(c.Experiments))
	for i, e := range c.Experiments {
		names[i] = e.Name
	}
	c.logger.Info("starting comparison", "run_id", c.RunID, "experiments", names, "runs", c.config.Runs)

	for run := 0; run < c.config.Runs; run++ {
		tasks := make([]MDP, c.config.TaskSamples)
		for i := range tasks {
			tasks[i] = c.distribution.Sample()
		}

		datasets := make(map[string][]DataSet)
		for name := range c.analyzers {
			datasets[name] = make([]DataSet, len(c.Experiments))
		}
		var dsMu sync.Mutex

		g, gCtx := errgroup.WithContext(ctx)
		for i, e := range c.Experiments {
			i, e := i, e
			g.Go(func() error {
				analyzers := make(map[string]Analyzer, len(c.analyzers))
				for name, f := range c.analyzers {
					analyzers[name] = f()
				}
				if err := c.runExperiment(gCtx, run, e, tasks, analyzers, outputs[i]); err != nil {
					return fmt.Errorf("experiment %s: %w", e.Name, err)
				}
				dsMu.Lock()
				for name, a := range analyzers {
					datasets[name][i] = a.DataSet()
				}
				dsMu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			c.logger.Error("run aborted", "run", run, "error", err)
			return err
		}

		comparators := make([]string, 0, len(c.comparators))
		for name := range c.comparators {
			comparators = append(comparators, name)
		}
		sort.Strings(comparators)
		for _, name := range comparators {
			c.comparators[name](run, names, datasets[name])
		}
		c.logger.Info("run completed", "run", run)
	}
	return nil
}

func (c *Comparison) runExperiment(ctx context.Context, run int, e *Experiment, tasks []MDP, analyzers map[string]Analyzer, output *ParallelOutput) error {
	agent, err := e.Factory()
	if err != nil {
		return err
	}
	output.SetRunning(true)
	defer output.SetRunning(false)

	totalEpisodes := len(tasks) * c.config.Episodes
	for t, task := range tasks {
		for ep := 0; ep < c.config.Episodes; ep++ {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			trace, err := c.runEpisode(agent, task)
			if err != nil {
				return fmt.Errorf("task %d episode %d: %w", t, ep, err)
			}
			for _, a := range analyzers {
				a.Analyze(t, ep, trace)
			}
			if c.recorder != nil {
				record := EpisodeRecord{
					RunID:      c.RunID,
					Run:        run,
					Experiment: e.Name,
					Task:       t,
					Episode:    ep,
					Steps:      trace.Len(),
					Reward:     trace.TotalReward(),
				}
				if _, _, _, final, ok := trace.Last(); ok {
					record.FinalState = final.Hash()
				}
				if err := c.recorder.Record(ctx, e.Name, record); err != nil {
					return fmt.Errorf("recording episode: %w", err)
				}
			}
			output.TrySet(fmt.Sprintf("Run:%d Exp:%s, Task:%d/%d, Episodes:%d/%d, Reward:%.3f",
				run, e.Name, t+1, len(tasks), t*c.config.Episodes+ep+1, totalEpisodes, trace.TotalReward()))
		}
		// agents are fresh every run, between tasks only reward models are discarded
		switch r := agent.(type) {
		case TaskResetter:
			r.NewTask()
		case RewardResetter:
			r.ResetReward()
		}
	}
	if s, ok := agent.(Snapshotter); ok && c.snapshotDir != "" {
		p := path.Join(c.snapshotDir, strconv.Itoa(run), e.Name+".json")
		if err := s.Snapshot(p); err != nil {
			c.logger.Warn("agent snapshot failed", "experiment", e.Name, "run", run, "error", err)
		}
	}
	c.logger.Debug("experiment completed", "experiment", e.Name, "run", run)
	return nil
}

// runEpisode executes one episode. The reward of the last step is handed
// to the agent before the episode ends.
func (c *Comparison) runEpisode(agent Agent, mdp MDP) (*Trace, error) {
	trace := NewTrace()
	state := mdp.InitState()
	reward := 0.0
	for step := 0; step < c.config.Steps; step++ {
		action, err := agent.Act(state, reward)
		if err != nil {
			return trace, err
		}
		reward = mdp.Reward(state, action)
		next := mdp.Transition(state, action)
		trace.Append(state, action, reward, next)
		state = next

		if IsTerminal(mdp, state) {
			if !c.config.ResetAtTerminal {
				break
			}
			if _, err := agent.Act(state, reward); err != nil {
				return trace, err
			}
			agent.EndOfEpisode()
			state = mdp.InitState()
			reward = 0
		}
	}
	if _, err := agent.Act(state, reward); err != nil {
		return trace, err
	}
	agent.EndOfEpisode()
	return trace, nil
}
