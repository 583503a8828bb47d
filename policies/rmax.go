package policies

import (
	"math"

	"github.com/zeu5/rl-abstraction/types"
)

type RMaxConfig struct {
	// M is the number of visits after which a state-action pair is known
	M     int     `yaml:"m"`
	Gamma float64 `yaml:"gamma"`
	// RMax is the optimistic reward of unknown pairs
	RMax float64 `yaml:"rmax"`
	// Value iteration stops when updates are smaller than Epsilon
	Epsilon       float64 `yaml:"epsilon"`
	MaxIterations int     `yaml:"max_iterations"`
}

func DefaultRMaxConfig() RMaxConfig {
	return RMaxConfig{
		M:             5,
		Gamma:         0.95,
		RMax:          1.0,
		Epsilon:       0.01,
		MaxIterations: 200,
	}
}

// RMaxAgent is a model based learner that is optimistic about
// state-action pairs it has visited fewer than M times
type RMaxAgent struct {
	actions []types.Action
	hashes  []string
	config  RMaxConfig
	vmax    float64

	rewardSum    map[string]map[string]float64
	rewardCounts map[string]map[string]int
	transCounts  map[string]map[string]int
	nextCounts   map[string]map[string]map[string]int

	qTable     *QTable
	prevState  types.State
	prevAction types.Action
}

var _ types.Agent = &RMaxAgent{}
var _ types.RewardResetter = &RMaxAgent{}
var _ types.KnownSACounter = &RMaxAgent{}

func NewRMaxAgent(actions []types.Action, config RMaxConfig) *RMaxAgent {
	hashes := make([]string, len(actions))
	for i, a := range actions {
		hashes[i] = a.Hash()
	}
	vmax := config.RMax
	if config.Gamma < 1 {
		vmax = config.RMax / (1 - config.Gamma)
	}
	r := &RMaxAgent{
		actions: actions,
		hashes:  hashes,
		config:  config,
		vmax:    vmax,
	}
	r.Reset()
	return r
}

func RMaxFactory(config RMaxConfig) types.AgentFactory {
	return func(actions []types.Action) types.Agent {
		return NewRMaxAgent(actions, config)
	}
}

func (r *RMaxAgent) Name() string {
	return "RMax"
}

func (r *RMaxAgent) Act(state types.State, reward float64) (types.Action, error) {
	if r.prevState != nil {
		if r.observe(r.prevState.Hash(), r.prevAction.Hash(), reward, state.Hash()) {
			r.plan()
		}
	}
	best, _ := r.qTable.MaxAmong(state.Hash(), r.hashes, r.vmax)
	action := r.actions[0]
	for i, h := range r.hashes {
		if h == best {
			action = r.actions[i]
			break
		}
	}
	r.prevState = state
	r.prevAction = action
	return action, nil
}

// observe records the transition and returns true if the pair just became known
func (r *RMaxAgent) observe(s, a string, reward float64, ns string) bool {
	wasKnown := r.isKnown(s, a)

	incr(r.rewardCounts, s, a)
	if _, ok := r.rewardSum[s]; !ok {
		r.rewardSum[s] = make(map[string]float64)
	}
	r.rewardSum[s][a] += reward

	incr(r.transCounts, s, a)
	if _, ok := r.nextCounts[s]; !ok {
		r.nextCounts[s] = make(map[string]map[string]int)
	}
	if _, ok := r.nextCounts[s][a]; !ok {
		r.nextCounts[s][a] = make(map[string]int)
	}
	r.nextCounts[s][a][ns] += 1

	return !wasKnown && r.isKnown(s, a)
}

func incr(counts map[string]map[string]int, s, a string) {
	if _, ok := counts[s]; !ok {
		counts[s] = make(map[string]int)
	}
	counts[s][a] += 1
}

func (r *RMaxAgent) isKnown(s, a string) bool {
	return r.rewardCounts[s][a] >= r.config.M && r.transCounts[s][a] >= r.config.M
}

func (r *RMaxAgent) qValue(s, a string, values map[string]float64) float64 {
	if !r.isKnown(s, a) {
		return r.vmax
	}
	reward := r.rewardSum[s][a] / float64(r.rewardCounts[s][a])
	total := float64(r.transCounts[s][a])
	expected := 0.0
	for ns, count := range r.nextCounts[s][a] {
		v, ok := values[ns]
		if !ok {
			v = r.vmax
		}
		expected += float64(count) / total * v
	}
	return reward + r.config.Gamma*expected
}

// plan runs value iteration over the learnt model
func (r *RMaxAgent) plan() {
	values := make(map[string]float64)
	for i := 0; i < r.config.MaxIterations; i++ {
		delta := 0.0
		for s := range r.transCounts {
			best := math.Inf(-1)
			for _, a := range r.hashes {
				best = math.Max(best, r.qValue(s, a, values))
			}
			old, ok := values[s]
			if !ok {
				old = r.vmax
			}
			delta = math.Max(delta, math.Abs(best-old))
			values[s] = best
		}
		if delta < r.config.Epsilon {
			break
		}
	}
	r.qTable = NewQTable()
	for s := range r.transCounts {
		for _, a := range r.hashes {
			r.qTable.Set(s, a, r.qValue(s, a, values))
		}
	}
}

// NumKnownSA counts the state-action pairs visited at least M times
func (r *RMaxAgent) NumKnownSA() int {
	known := 0
	for s, actions := range r.transCounts {
		for a := range actions {
			if r.isKnown(s, a) {
				known += 1
			}
		}
	}
	return known
}

// ResetReward forgets the reward model and keeps the transition model
func (r *RMaxAgent) ResetReward() {
	r.rewardSum = make(map[string]map[string]float64)
	r.rewardCounts = make(map[string]map[string]int)
	r.qTable = NewQTable()
	r.prevState = nil
	r.prevAction = nil
}

// Snapshot saves the values planned over the known model
func (r *RMaxAgent) Snapshot(path string) error {
	return r.qTable.Record(path)
}

func (r *RMaxAgent) EndOfEpisode() {
	r.prevState = nil
	r.prevAction = nil
}

func (r *RMaxAgent) Reset() {
	r.rewardSum = make(map[string]map[string]float64)
	r.rewardCounts = make(map[string]map[string]int)
	r.transCounts = make(map[string]map[string]int)
	r.nextCounts = make(map[string]map[string]map[string]int)
	r.qTable = NewQTable()
	r.prevState = nil
	r.prevAction = nil
}
