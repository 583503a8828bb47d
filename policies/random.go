package policies

import (
	"time"

	"github.com/zeu5/rl-abstraction/types"
	"golang.org/x/exp/rand"
)

type RandomAgent struct {
	actions []types.Action
	rand    *rand.Rand
}

var _ types.Agent = &RandomAgent{}

func NewRandomAgent(actions []types.Action) *RandomAgent {
	return &RandomAgent{
		actions: actions,
		rand:    rand.New(rand.NewSource(uint64(time.Now().UnixNano()))),
	}
}

func RandomFactory() types.AgentFactory {
	return func(actions []types.Action) types.Agent {
		return NewRandomAgent(actions)
	}
}

func (r *RandomAgent) Name() string {
	return "Random"
}

func (r *RandomAgent) Act(_ types.State, _ float64) (types.Action, error) {
	return r.actions[r.rand.Intn(len(r.actions))], nil
}

func (r *RandomAgent) Reset() {}

func (r *RandomAgent) EndOfEpisode() {}
