package benchmarks

import (
	"fmt"
	"os"

	"github.com/zeu5/rl-abstraction/policies"
	"github.com/zeu5/rl-abstraction/types"
	"gopkg.in/yaml.v3"
)

// GridConfig describes the four room tasks
type GridConfig struct {
	Dim      int     `yaml:"dim"`
	StepCost float64 `yaml:"step_cost"`
	Levels   int     `yaml:"levels"`
}

// Config is the content of the --config file, fields left out keep the
// values of the command line flags or the defaults
type Config struct {
	Experiment types.ExperimentConfig   `yaml:"experiment"`
	Agent      string                   `yaml:"agent"`
	Grid       GridConfig               `yaml:"grid"`
	RMax       policies.RMaxConfig      `yaml:"rmax"`
	QLearning  policies.QLearningConfig `yaml:"qlearning"`
	Bonus      policies.BonusConfig     `yaml:"bonus"`
}

func DefaultConfig() *Config {
	return &Config{
		Experiment: types.DefaultExperimentConfig(),
		Agent:      "rmax",
		Grid: GridConfig{
			Dim:      9,
			StepCost: 0.01,
			Levels:   3,
		},
		RMax:      policies.DefaultRMaxConfig(),
		QLearning: policies.DefaultQLearningConfig(),
		Bonus:     policies.DefaultBonusConfig(),
	}
}

// LoadConfig reads the YAML file at path on top of cfg
func LoadConfig(path string, cfg *Config) (*Config, error) {
	bs, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	file := &Config{}
	if err := yaml.Unmarshal(bs, file); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	// reset_at_terminal can also switch the flag off, so its presence matters
	var explicit struct {
		Experiment struct {
			ResetAtTerminal *bool `yaml:"reset_at_terminal"`
		} `yaml:"experiment"`
	}
	if err := yaml.Unmarshal(bs, &explicit); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	out := *cfg
	out.Experiment = cfg.Experiment.Merge(file.Experiment)
	if r := explicit.Experiment.ResetAtTerminal; r != nil {
		out.Experiment.ResetAtTerminal = *r
	}
	if file.Agent != "" {
		out.Agent = file.Agent
	}
	if file.Grid.Dim > 0 {
		out.Grid.Dim = file.Grid.Dim
	}
	if file.Grid.StepCost > 0 {
		out.Grid.StepCost = file.Grid.StepCost
	}
	if file.Grid.Levels > 0 {
		out.Grid.Levels = file.Grid.Levels
	}
	if file.RMax != (policies.RMaxConfig{}) {
		out.RMax = file.RMax
	}
	if file.QLearning != (policies.QLearningConfig{}) {
		out.QLearning = file.QLearning
	}
	if file.Bonus != (policies.BonusConfig{}) {
		out.Bonus = file.Bonus
	}
	return &out, nil
}

// resolveConfig combines the defaults, the command line flags and the config file
func resolveConfig() (*Config, error) {
	cfg := DefaultConfig()
	cfg.Experiment = cfg.Experiment.Merge(types.ExperimentConfig{
		Runs:        runs,
		Episodes:    episodes,
		Steps:       steps,
		TaskSamples: tasks,
	})
	cfg.Experiment.ResetAtTerminal = resetAtTerminal
	if configFile == "" {
		return cfg, nil
	}
	return LoadConfig(configFile, cfg)
}

// AgentFactory returns the factory of the ground agent named in the config
func (c *Config) AgentFactory() (types.AgentFactory, error) {
	switch c.Agent {
	case "rmax":
		return policies.RMaxFactory(c.RMax), nil
	case "qlearning":
		return policies.QLearningFactory(c.QLearning), nil
	case "bonus":
		return policies.BonusFactory(c.Bonus), nil
	case "random":
		return policies.RandomFactory(), nil
	}
	return nil, fmt.Errorf("unknown agent %q, expected rmax, qlearning, bonus or random", c.Agent)
}
