package types

// Agent picks actions from the states it observes and the reward obtained
// by its previous action.
type Agent interface {
	Name() string
	// Act is called once per step with the current state and the reward of the last step
	Act(State, float64) (Action, error)
	// Reset forgets everything learnt so far
	Reset()
	// EndOfEpisode is called at episode boundaries
	EndOfEpisode()
}

// AgentFactory instantiates an agent over the given action set
type AgentFactory func(actions []Action) Agent

// RewardResetter is implemented by agents that keep a reward model
// which should be discarded when the task changes.
type RewardResetter interface {
	ResetReward()
}

// KnownSACounter is implemented by model based agents that track which
// state-action pairs are known.
type KnownSACounter interface {
	NumKnownSA() int
}

// Snapshotter is implemented by agents that can save what they learnt
type Snapshotter interface {
	Snapshot(path string) error
}

// TaskResetter is implemented by agents that need to be told when
// a new task is sampled.
type TaskResetter interface {
	NewTask()
}
