package policies

import (
	"math"
	"time"

	"github.com/zeu5/rl-abstraction/types"
	"golang.org/x/exp/rand"
)

type BonusConfig struct {
	Alpha   float64 `yaml:"alpha"`
	Gamma   float64 `yaml:"gamma"`
	Epsilon float64 `yaml:"epsilon"`
	// Bonus added to the reward of a pair visited t times is Bonus/t
	Bonus float64 `yaml:"bonus"`
	// Max takes the larger of the bonus and the discounted next value
	// instead of their sum
	Max bool `yaml:"max"`
}

func DefaultBonusConfig() BonusConfig {
	return BonusConfig{
		Alpha:   0.1,
		Gamma:   0.99,
		Epsilon: 0.02,
		Bonus:   1,
	}
}

// BonusAgent is a Q-learner whose targets include a visit count bonus,
// unvisited pairs start optimistic
type BonusAgent struct {
	actions []types.Action
	hashes  []string
	config  BonusConfig
	qTable  *QTable
	visits  *QTable
	rand    *rand.Rand

	prevState  types.State
	prevAction types.Action
}

var _ types.Agent = &BonusAgent{}

func NewBonusAgent(actions []types.Action, config BonusConfig) *BonusAgent {
	hashes := make([]string, len(actions))
	for i, a := range actions {
		hashes[i] = a.Hash()
	}
	return &BonusAgent{
		actions: actions,
		hashes:  hashes,
		config:  config,
		qTable:  NewQTable(),
		visits:  NewQTable(),
		rand:    rand.New(rand.NewSource(uint64(time.Now().UnixNano()))),
	}
}

func BonusFactory(config BonusConfig) types.AgentFactory {
	return func(actions []types.Action) types.Agent {
		return NewBonusAgent(actions, config)
	}
}

func (b *BonusAgent) Name() string {
	return "Bonus"
}

func (b *BonusAgent) optimistic() float64 {
	return b.config.Bonus
}

func (b *BonusAgent) Act(state types.State, reward float64) (types.Action, error) {
	if b.prevState != nil {
		b.update(b.prevState.Hash(), b.prevAction.Hash(), reward, state.Hash())
	}
	var action types.Action
	if b.rand.Float64() < b.config.Epsilon {
		action = b.actions[b.rand.Intn(len(b.actions))]
	} else {
		best, _ := b.qTable.MaxAmong(state.Hash(), b.hashes, b.optimistic())
		action = b.actions[0]
		for i, h := range b.hashes {
			if h == best {
				action = b.actions[i]
				break
			}
		}
	}
	b.prevState = state
	b.prevAction = action
	return action, nil
}

func (b *BonusAgent) update(s, a string, reward float64, ns string) {
	t := b.visits.Get(s, a, 0) + 1
	b.visits.Set(s, a, t)

	_, nextVal := b.qTable.MaxAmong(ns, b.hashes, b.optimistic())
	curVal := b.qTable.Get(s, a, b.optimistic())
	bonus := b.config.Bonus / t

	var target float64
	if b.config.Max {
		target = reward + math.Max(bonus, b.config.Gamma*nextVal)
	} else {
		target = reward + bonus + b.config.Gamma*nextVal
	}
	b.qTable.Set(s, a, (1-b.config.Alpha)*curVal+b.config.Alpha*target)
}

// Visits returns the number of times the pair was taken
func (b *BonusAgent) Visits(s, a string) int {
	return int(b.visits.Get(s, a, 0))
}

func (b *BonusAgent) Snapshot(path string) error {
	return b.qTable.Record(path)
}

func (b *BonusAgent) EndOfEpisode() {
	b.prevState = nil
	b.prevAction = nil
}

func (b *BonusAgent) Reset() {
	b.qTable = NewQTable()
	b.visits = NewQTable()
	b.EndOfEpisode()
}
