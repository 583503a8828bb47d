package abstraction

import (
	"errors"
	"fmt"

	"github.com/zeu5/rl-abstraction/types"
)

var (
	// ErrInvalidOptionSelection is returned when the agent picks an option
	// that cannot be initiated at the current ground state.
	ErrInvalidOptionSelection = errors.New("option not initiable at ground state")
	// ErrOptionDidNotTerminate is returned when a rollout exceeds the step bound.
	ErrOptionDidNotTerminate = errors.New("option did not terminate")
	// ErrUnsupportedAgentCapability is returned when the inner agent lacks
	// an optional capability the caller asked for.
	ErrUnsupportedAgentCapability = errors.New("unsupported agent capability")
	// ErrUnknownAction is returned when the agent picks an action that is
	// neither an option nor a primitive action of the abstraction.
	ErrUnknownAction = errors.New("unknown abstract action")
	// ErrInvalidLevel is returned for out of range abstraction stack levels.
	ErrInvalidLevel = errors.New("invalid abstraction level")
)

// InvalidOptionSelectionError carries the offending option and state
type InvalidOptionSelectionError struct {
	Option string
	State  string
}

func (e *InvalidOptionSelectionError) Error() string {
	return fmt.Sprintf("%s: option %s, state %s", ErrInvalidOptionSelection, e.Option, e.State)
}

func (e *InvalidOptionSelectionError) Unwrap() error {
	return ErrInvalidOptionSelection
}

func invalidSelection(o *Option, s types.State) error {
	return &InvalidOptionSelectionError{Option: o.Hash(), State: s.Hash()}
}
