package abstraction

import (
	"sync/atomic"

	"github.com/zeu5/rl-abstraction/types"
	"golang.org/x/exp/rand"
)

// InitiationFunc decides if an option can start at a ground state
type InitiationFunc func(types.State) bool

// PolicyFunc maps ground states to the action to take
type PolicyFunc func(types.State) types.Action

// TerminationFunc decides if an option stops at a ground state
type TerminationFunc func(types.State) bool

// BetaFunc is the probability of terminating at a ground state
type BetaFunc func(types.State) float64

// Option is a temporally extended action. It can be started in the states
// where the initiation predicate holds, acts with its policy while running
// and stops when the termination condition fires.
type Option struct {
	name        string
	initiation  InitiationFunc
	policy      PolicyFunc
	termination TerminationFunc
	beta        BetaFunc
	rand        *rand.Rand
	// clone n of a stochastic option seeds its source from seed and n
	seed   uint64
	clones *atomic.Uint64

	// set for options that keep execution state (composites)
	build   func() (PolicyFunc, func())
	onStart func()
	// set for options bound to the state they start from
	anchor func(types.State) (PolicyFunc, TerminationFunc)
}

var _ types.Action = &Option{}

// NewOption creates an option with a deterministic termination condition.
// A nil initiation means the option can start anywhere.
func NewOption(name string, initiation InitiationFunc, policy PolicyFunc, termination TerminationFunc) *Option {
	return &Option{
		name:        name,
		initiation:  initiation,
		policy:      policy,
		termination: termination,
	}
}

// NewStochasticOption creates an option that terminates at state s with probability beta(s)
func NewStochasticOption(name string, initiation InitiationFunc, policy PolicyFunc, beta BetaFunc, src rand.Source) *Option {
	r := rand.New(src)
	return &Option{
		name:       name,
		initiation: initiation,
		policy:     policy,
		beta:       beta,
		rand:       r,
		seed:       r.Uint64(),
		clones:     new(atomic.Uint64),
	}
}

// NewCompositeOption builds an option out of finer options. The running
// sub-option keeps control until it terminates, then selectSub picks the next
// one at the current ground state. Sub-options that are not initiable are ignored.
// Every copy of the composite runs its own clones of the sub-options.
func NewCompositeOption(name string, initiation InitiationFunc, termination TerminationFunc, selectSub func(types.State) *Option) *Option {
	o := &Option{
		name:        name,
		initiation:  initiation,
		termination: termination,
	}
	o.build = func() (PolicyFunc, func()) {
		var running *Option
		subs := make(map[string]*Option)
		policy := func(s types.State) types.Action {
			if running == nil || running.IsTerminated(s) {
				running = nil
				next := selectSub(s)
				if next == nil || !next.IsInitiable(s) {
					return nil
				}
				sub, ok := subs[next.Hash()]
				if !ok {
					sub = next.Clone()
					subs[next.Hash()] = sub
				}
				running = sub
				running.start(s)
			}
			return running.Policy(s)
		}
		return policy, func() { running = nil }
	}
	o.policy, o.onStart = o.build()
	return o
}

func (o *Option) Hash() string {
	return o.name
}

func (o *Option) String() string {
	return "Option(" + o.name + ")"
}

func (o *Option) IsInitiable(s types.State) bool {
	if o.initiation == nil {
		return true
	}
	return o.initiation(s)
}

// NewAnchoredOption creates an option whose policy and termination condition
// depend on the ground state it was started from, anchor is called on every start.
func NewAnchoredOption(name string, initiation InitiationFunc, anchor func(start types.State) (PolicyFunc, TerminationFunc)) *Option {
	return &Option{
		name:       name,
		initiation: initiation,
		anchor:     anchor,
	}
}

// Policy returns the action of the option at s, only meaningful while the option runs
func (o *Option) Policy(s types.State) types.Action {
	if o.policy == nil {
		return nil
	}
	return o.policy(s)
}

func (o *Option) IsTerminated(s types.State) bool {
	if o.beta != nil {
		b := o.beta(s)
		switch {
		case b >= 1:
			return true
		case b <= 0:
			return false
		}
		return o.rand.Float64() < b
	}
	if o.termination == nil {
		return false
	}
	return o.termination(s)
}

// start clears any execution state left from a previous run
func (o *Option) start(s types.State) {
	if o.onStart != nil {
		o.onStart()
	}
	if o.anchor != nil {
		o.policy, o.termination = o.anchor(s)
	}
}

// Clone returns a copy that does not share execution state or the random source.
// Clone is safe to call concurrently on the same option.
func (o *Option) Clone() *Option {
	c := *o
	if o.clones != nil {
		c.seed = o.seed + o.clones.Add(1)*0x9e3779b97f4a7c15
		c.rand = rand.New(rand.NewSource(c.seed))
		c.clones = new(atomic.Uint64)
	}
	if o.build != nil {
		c.policy, c.onStart = o.build()
	}
	if o.anchor != nil {
		c.policy, c.termination = nil, nil
	}
	return &c
}
