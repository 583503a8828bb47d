package grid

import (
	"fmt"
	"time"

	"github.com/zeu5/rl-abstraction/types"
	"golang.org/x/exp/rand"
)

// FourRoomMDP is a square gridworld split in four rooms by a vertical and a
// horizontal wall, each wall has one doorway per half.
//
// Rooms are numbered 0 (bottom left), 1 (bottom right), 2 (top left) and
// 3 (top right). Row I grows upwards.
type FourRoomMDP struct {
	Dim      int
	StepCost float64
	Goal     Position
	Init     Position

	walls map[Position]bool
	rooms map[Position]int
}

var _ types.TerminalMDP = &FourRoomMDP{}

// NewFourRoomMDP creates a dim x dim four room grid, dim must be at least 5
func NewFourRoomMDP(dim int, stepCost float64, goal Position) (*FourRoomMDP, error) {
	if dim < 5 {
		return nil, fmt.Errorf("four room grid needs dim >= 5, got %d", dim)
	}
	m := &FourRoomMDP{
		Dim:      dim,
		StepCost: stepCost,
		Goal:     goal,
		Init:     Position{0, 0},
		walls:    make(map[Position]bool),
		rooms:    make(map[Position]int),
	}
	mid := dim / 2
	// the doorways sit in the middle of each half wall
	lowDoor := mid / 2
	highDoor := mid + 1 + (dim-mid-1)/2
	for k := 0; k < dim; k++ {
		if k != lowDoor && k != highDoor {
			m.walls[Position{I: k, J: mid}] = true
			m.walls[Position{I: mid, J: k}] = true
		}
	}
	m.walls[Position{I: mid, J: mid}] = true

	for i := 0; i < dim; i++ {
		for j := 0; j < dim; j++ {
			p := Position{I: i, J: j}
			if !m.walls[p] {
				m.rooms[p] = m.roomOf(p)
			}
		}
	}
	if !m.IsPassable(goal) {
		return nil, fmt.Errorf("goal %s is not a free cell", goal.Hash())
	}
	return m, nil
}

// roomOf assigns doorway cells to the lower numbered room they connect
func (m *FourRoomMDP) roomOf(p Position) int {
	mid := m.Dim / 2
	top := p.I > mid
	right := p.J > mid
	if p.J == mid {
		// doorway in the vertical wall
		right = false
	}
	if p.I == mid {
		// doorway in the horizontal wall
		top = false
	}
	room := 0
	if right {
		room += 1
	}
	if top {
		room += 2
	}
	return room
}

func (m *FourRoomMDP) Actions() []types.Action {
	return AllMovements
}

func (m *FourRoomMDP) InitState() types.State {
	return m.Init
}

func (m *FourRoomMDP) IsTerminal(s types.State) bool {
	p, ok := s.(Position)
	return ok && p == m.Goal
}

func (m *FourRoomMDP) IsPassable(p Position) bool {
	if p.I < 0 || p.J < 0 || p.I >= m.Dim || p.J >= m.Dim {
		return false
	}
	return !m.walls[p]
}

// Room returns the room of a free cell, -1 for walls
func (m *FourRoomMDP) Room(p Position) int {
	r, ok := m.rooms[p]
	if !ok {
		return -1
	}
	return r
}

// States lists every free cell
func (m *FourRoomMDP) States() []types.State {
	out := make([]types.State, 0, len(m.rooms))
	for i := 0; i < m.Dim; i++ {
		for j := 0; j < m.Dim; j++ {
			p := Position{I: i, J: j}
			if m.IsPassable(p) {
				out = append(out, p)
			}
		}
	}
	return out
}

func (m *FourRoomMDP) move(p Position, movement *Movement) Position {
	next := p
	switch movement.Direction {
	case "Up":
		next.I += 1
	case "Down":
		next.I -= 1
	case "Left":
		next.J -= 1
	case "Right":
		next.J += 1
	}
	if !m.IsPassable(next) {
		return p
	}
	return next
}

func (m *FourRoomMDP) Transition(s types.State, a types.Action) types.State {
	p := s.(Position)
	if m.IsTerminal(p) {
		return p
	}
	return m.move(p, a.(*Movement))
}

func (m *FourRoomMDP) Reward(s types.State, a types.Action) float64 {
	if m.IsTerminal(s) {
		return 0
	}
	if m.IsTerminal(m.Transition(s, a)) {
		return 1 - m.StepCost
	}
	return -m.StepCost
}

// FourRoomDistribution samples four room tasks that differ in the goal cell
type FourRoomDistribution struct {
	tasks []*FourRoomMDP
	rand  *rand.Rand
}

var _ types.MDPDistribution = &FourRoomDistribution{}

// NewFourRoomDistribution creates a task per goal, with no goals the
// corners other than the start are used
func NewFourRoomDistribution(dim int, stepCost float64, goals ...Position) (*FourRoomDistribution, error) {
	if len(goals) == 0 {
		goals = []Position{{I: dim - 1, J: dim - 1}, {I: dim - 1, J: 0}, {I: 0, J: dim - 1}}
	}
	d := &FourRoomDistribution{
		tasks: make([]*FourRoomMDP, len(goals)),
		rand:  rand.New(rand.NewSource(uint64(time.Now().UnixNano()))),
	}
	for i, g := range goals {
		m, err := NewFourRoomMDP(dim, stepCost, g)
		if err != nil {
			return nil, err
		}
		d.tasks[i] = m
	}
	return d, nil
}

func (d *FourRoomDistribution) Tasks() []*FourRoomMDP {
	return d.tasks
}

func (d *FourRoomDistribution) Sample() types.MDP {
	return d.tasks[d.rand.Intn(len(d.tasks))]
}

func (d *FourRoomDistribution) Actions() []types.Action {
	return AllMovements
}

type Position struct {
	I int
	J int
}

var _ types.State = Position{}

func (p Position) Hash() string {
	return fmt.Sprintf("(%d, %d)", p.I, p.J)
}

type Movement struct {
	Direction string
}

var _ types.Action = &Movement{}

func (m *Movement) Hash() string {
	return m.Direction
}

var (
	MovementUp                   = &Movement{"Up"}
	MovementDown                 = &Movement{"Down"}
	MovementLeft                 = &Movement{"Left"}
	MovementRight                = &Movement{"Right"}
	AllMovements  []types.Action = []types.Action{
		MovementUp,
		MovementDown,
		MovementLeft,
		MovementRight,
	}
)
