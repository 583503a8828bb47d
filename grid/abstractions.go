package grid

import (
	"fmt"

	"github.com/zeu5/rl-abstraction/abstraction"
	"github.com/zeu5/rl-abstraction/types"
)

const (
	WingBottom = abstraction.AbstractState("wing-bottom")
	WingTop    = abstraction.AbstractState("wing-top")
)

// RoomState is the abstract state of room k
func RoomState(k int) abstraction.AbstractState {
	return abstraction.AbstractState(fmt.Sprintf("room-%d", k))
}

// RoomAbstraction maps every free cell to the room containing it
func RoomAbstraction(m *FourRoomMDP) *abstraction.MappedAbstraction {
	phi := abstraction.NewMappedAbstraction()
	for _, s := range m.States() {
		phi.Set(s, RoomState(m.Room(s.(Position))))
	}
	return phi
}

// WingAbstraction maps rooms to the bottom and top halves of the grid
func WingAbstraction() *abstraction.MappedAbstraction {
	return abstraction.NewMappedAbstraction().
		Set(RoomState(0), WingBottom).
		Set(RoomState(1), WingBottom).
		Set(RoomState(2), WingTop).
		Set(RoomState(3), WingTop)
}

func wingOf(room int) abstraction.AbstractState {
	if room >= 2 {
		return WingTop
	}
	return WingBottom
}

// neighbouring rooms share a doorway
var roomPairs = [][2]int{{0, 1}, {0, 2}, {1, 3}, {2, 3}}

// HallwayOption returns the option that walks from room `from` to the
// neighbouring room `to` along a shortest path. Options only depend on the
// layout, so a hierarchy built on one task serves every goal of the grid.
func HallwayOption(m *FourRoomMDP, from, to int) *abstraction.Option {
	next := shortestPathPolicy(m, from, to)
	name := fmt.Sprintf("hallway-%d-%d", from, to)
	return abstraction.NewOption(
		name,
		func(s types.State) bool {
			p, ok := s.(Position)
			return ok && m.Room(p) == from
		},
		func(s types.State) types.Action {
			p, ok := s.(Position)
			if !ok {
				return nil
			}
			if mv, ok := next[p]; ok {
				return mv
			}
			return nil
		},
		func(s types.State) bool {
			p, ok := s.(Position)
			return !ok || m.Room(p) != from
		},
	)
}

// shortestPathPolicy runs a breadth first search from the cells of room `to`
// over the two rooms and points every cell of `from` one step closer
func shortestPathPolicy(m *FourRoomMDP, from, to int) map[Position]*Movement {
	dist := make(map[Position]int)
	queue := make([]Position, 0)
	for _, s := range m.States() {
		p := s.(Position)
		if m.Room(p) == to {
			dist[p] = 0
			queue = append(queue, p)
		}
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, mv := range AllMovements {
			p := m.move(cur, mv.(*Movement))
			if p == cur || m.Room(p) != from {
				continue
			}
			if _, seen := dist[p]; seen {
				continue
			}
			dist[p] = dist[cur] + 1
			queue = append(queue, p)
		}
	}

	policy := make(map[Position]*Movement)
	for p, d := range dist {
		if d == 0 {
			continue
		}
		for _, mv := range AllMovements {
			n := m.move(p, mv.(*Movement))
			if nd, ok := dist[n]; ok && nd == d-1 {
				policy[p] = mv.(*Movement)
				break
			}
		}
	}
	return policy
}

func freeCell(m *FourRoomMDP) abstraction.InitiationFunc {
	return func(s types.State) bool {
		p, ok := s.(Position)
		return ok && m.Room(p) >= 0
	}
}

// hallways indexes the hallway options by source and destination room
func hallways(m *FourRoomMDP) map[[2]int]*abstraction.Option {
	out := make(map[[2]int]*abstraction.Option)
	for _, pair := range roomPairs {
		out[pair] = HallwayOption(m, pair[0], pair[1])
		out[[2]int{pair[1], pair[0]}] = HallwayOption(m, pair[1], pair[0])
	}
	return out
}

func idle(types.State) types.Action { return nil }

func stopped(types.State) bool { return true }

// crossingOption moves to the room given by neighbour(room) through the
// hallway between them, it can start from any free cell
func crossingOption(m *FourRoomMDP, name string, byPair map[[2]int]*abstraction.Option, neighbour func(int) int) *abstraction.Option {
	return abstraction.NewAnchoredOption(name, freeCell(m), func(start types.State) (abstraction.PolicyFunc, abstraction.TerminationFunc) {
		p, ok := start.(Position)
		if !ok || m.Room(p) < 0 {
			return idle, stopped
		}
		from := m.Room(p)
		h := byPair[[2]int{from, neighbour(from)}]
		return h.Policy, h.IsTerminated
	})
}

// CrossingOptions returns the options of the room level: crossing to the
// room on the other side of the vertical wall and of the horizontal wall
func CrossingOptions(m *FourRoomMDP) []*abstraction.Option {
	byPair := hallways(m)
	return []*abstraction.Option{
		crossingOption(m, "cross-horizontal", byPair, func(r int) int { return r ^ 1 }),
		crossingOption(m, "cross-vertical", byPair, func(r int) int { return r ^ 2 }),
	}
}

// WingOptions returns the options of the wing level. Crossing to the other
// wing is a composite over the vertical hallway of the current room.
func WingOptions(m *FourRoomMDP) []*abstraction.Option {
	byPair := hallways(m)
	crossWing := abstraction.NewAnchoredOption("cross-wing", freeCell(m), func(start types.State) (abstraction.PolicyFunc, abstraction.TerminationFunc) {
		p, ok := start.(Position)
		if !ok || m.Room(p) < 0 {
			return idle, stopped
		}
		fromWing := wingOf(m.Room(p))
		composite := abstraction.NewCompositeOption(
			fmt.Sprintf("%s-out", fromWing),
			nil,
			func(s types.State) bool {
				q, ok := s.(Position)
				return !ok || m.Room(q) < 0 || wingOf(m.Room(q)) != fromWing
			},
			func(s types.State) *abstraction.Option {
				q, ok := s.(Position)
				if !ok || m.Room(q) < 0 {
					return nil
				}
				room := m.Room(q)
				return byPair[[2]int{room, room ^ 2}]
			},
		)
		return composite.Policy, composite.IsTerminated
	})
	return []*abstraction.Option{
		crossWing,
		crossingOption(m, "cross-horizontal", byPair, func(r int) int { return r ^ 1 }),
	}
}

// MakeHierarchy builds the abstraction stacks of the four room grid.
// Level 1 abstracts cells to rooms with crossing options, level 2 abstracts
// rooms to wings with wing options. Primitive moves stay available at every
// level so the goal cell can be reached.
func MakeHierarchy(m *FourRoomMDP, numLevels int) (*abstraction.StateAbstractionStack, *abstraction.ActionAbstractionStack, error) {
	if numLevels < 1 || numLevels > 3 {
		return nil, nil, fmt.Errorf("%w: four room hierarchy has at most 3 levels, got %d", abstraction.ErrInvalidLevel, numLevels)
	}
	saStack := abstraction.NewStateAbstractionStack()
	aaStack := abstraction.NewActionAbstractionStack(m.Actions())
	if numLevels >= 2 {
		saStack.Add(RoomAbstraction(m))
		aaStack.Add(abstraction.NewActionAbstraction(m.Actions(), CrossingOptions(m)...).IncludePrimitives())
	}
	if numLevels >= 3 {
		saStack.Add(WingAbstraction())
		aaStack.Add(abstraction.NewActionAbstraction(m.Actions(), WingOptions(m)...).IncludePrimitives())
	}
	return saStack, aaStack, nil
}
