package policies

import (
	"math"
	"time"

	"github.com/zeu5/rl-abstraction/types"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/sampleuv"
)

type QLearningConfig struct {
	Alpha   float64 `yaml:"alpha"`
	Gamma   float64 `yaml:"gamma"`
	Epsilon float64 `yaml:"epsilon"`
	// Temperature > 0 switches from epsilon greedy to softmax exploration
	Temperature float64 `yaml:"temperature"`
	// Initial value of unseen pairs
	Default float64 `yaml:"default"`
	Seed    uint64  `yaml:"seed"`
}

func DefaultQLearningConfig() QLearningConfig {
	return QLearningConfig{
		Alpha:   0.1,
		Gamma:   0.99,
		Epsilon: 0.1,
	}
}

// QLearningAgent is a tabular Q-learner
type QLearningAgent struct {
	name    string
	actions []types.Action
	hashes  []string
	config  QLearningConfig
	qTable  *QTable
	src     rand.Source
	rand    *rand.Rand

	prevState  types.State
	prevAction types.Action
}

var _ types.Agent = &QLearningAgent{}

func NewQLearningAgent(actions []types.Action, config QLearningConfig) *QLearningAgent {
	seed := config.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	src := rand.NewSource(seed)
	hashes := make([]string, len(actions))
	for i, a := range actions {
		hashes[i] = a.Hash()
	}
	name := "Q-learning"
	if config.Temperature > 0 {
		name = "Q-softmax"
	}
	return &QLearningAgent{
		name:    name,
		actions: actions,
		hashes:  hashes,
		config:  config,
		qTable:  NewQTable(),
		src:     src,
		rand:    rand.New(src),
	}
}

func QLearningFactory(config QLearningConfig) types.AgentFactory {
	return func(actions []types.Action) types.Agent {
		return NewQLearningAgent(actions, config)
	}
}

func (q *QLearningAgent) Name() string {
	return q.name
}

func (q *QLearningAgent) QTable() *QTable {
	return q.qTable
}

func (q *QLearningAgent) Act(state types.State, reward float64) (types.Action, error) {
	if q.prevState != nil {
		q.update(q.prevState, q.prevAction, reward, state)
	}
	action := q.nextAction(state)
	q.prevState = state
	q.prevAction = action
	return action, nil
}

func (q *QLearningAgent) update(state types.State, action types.Action, reward float64, nextState types.State) {
	stateHash := state.Hash()
	actionHash := action.Hash()
	_, nextVal := q.qTable.MaxAmong(nextState.Hash(), q.hashes, q.config.Default)
	curVal := q.qTable.Get(stateHash, actionHash, q.config.Default)
	newVal := (1-q.config.Alpha)*curVal + q.config.Alpha*(reward+q.config.Gamma*nextVal)
	q.qTable.Set(stateHash, actionHash, newVal)
}

func (q *QLearningAgent) nextAction(state types.State) types.Action {
	if q.config.Temperature > 0 {
		return q.softmax(state)
	}
	if q.rand.Float64() < q.config.Epsilon {
		return q.actions[q.rand.Intn(len(q.actions))]
	}
	best, _ := q.qTable.MaxAmong(state.Hash(), q.hashes, q.config.Default)
	for i, h := range q.hashes {
		if h == best {
			return q.actions[i]
		}
	}
	return q.actions[0]
}

func (q *QLearningAgent) softmax(state types.State) types.Action {
	stateHash := state.Hash()
	vals := make([]float64, len(q.actions))
	maxVal := math.Inf(-1)
	for i, h := range q.hashes {
		vals[i] = q.qTable.Get(stateHash, h, q.config.Default) / q.config.Temperature
		maxVal = math.Max(maxVal, vals[i])
	}
	sum := 0.0
	for i, v := range vals {
		vals[i] = math.Exp(v - maxVal)
		sum += vals[i]
	}
	for i := range vals {
		vals[i] /= sum
	}
	i, ok := sampleuv.NewWeighted(vals, q.src).Take()
	if !ok {
		return q.actions[0]
	}
	return q.actions[i]
}

// Snapshot saves the Q table
func (q *QLearningAgent) Snapshot(path string) error {
	return q.qTable.Record(path)
}

func (q *QLearningAgent) EndOfEpisode() {
	q.prevState = nil
	q.prevAction = nil
}

func (q *QLearningAgent) Reset() {
	q.qTable = NewQTable()
	q.EndOfEpisode()
}
