package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeu5/rl-abstraction/abstraction"
	"github.com/zeu5/rl-abstraction/types"
)

func newGrid(t *testing.T) *FourRoomMDP {
	m, err := NewFourRoomMDP(11, 0.01, Position{I: 10, J: 10})
	require.NoError(t, err)
	return m
}

func findAction(t *testing.T, actions []types.Action, name string) types.Action {
	for _, a := range actions {
		if a.Hash() == name {
			return a
		}
	}
	require.FailNow(t, "missing action", name)
	return nil
}

func TestFourRoomLayout(t *testing.T) {
	m := newGrid(t)
	assert.Len(t, m.States(), 104)

	assert.False(t, m.IsPassable(Position{I: 0, J: 5}))
	assert.True(t, m.IsPassable(Position{I: 2, J: 5}))
	assert.False(t, m.IsPassable(Position{I: 5, J: 5}))

	tests := []struct {
		pos  Position
		room int
	}{
		{Position{0, 0}, 0},
		{Position{0, 10}, 1},
		{Position{10, 0}, 2},
		{Position{10, 10}, 3},
		// doorways belong to the lower numbered room
		{Position{2, 5}, 0},
		{Position{5, 2}, 0},
		{Position{5, 8}, 1},
		{Position{8, 5}, 2},
		{Position{0, 5}, -1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.room, m.Room(tt.pos), tt.pos.Hash())
	}

	_, err := NewFourRoomMDP(3, 0.01, Position{0, 0})
	assert.Error(t, err)
	_, err = NewFourRoomMDP(11, 0.01, Position{0, 5})
	assert.Error(t, err)
}

func TestFourRoomDynamics(t *testing.T) {
	m := newGrid(t)
	assert.Equal(t, Position{1, 0}, m.Transition(Position{0, 0}, MovementUp))
	// walls and borders keep the agent in place
	assert.Equal(t, Position{0, 0}, m.Transition(Position{0, 0}, MovementDown))
	assert.Equal(t, Position{0, 4}, m.Transition(Position{0, 4}, MovementRight))

	assert.InDelta(t, -0.01, m.Reward(Position{0, 0}, MovementUp), 1e-9)
	assert.InDelta(t, 0.99, m.Reward(Position{9, 10}, MovementUp), 1e-9)
	assert.True(t, m.IsTerminal(Position{10, 10}))
	assert.Equal(t, 0.0, m.Reward(Position{10, 10}, MovementDown))
	assert.Equal(t, Position{10, 10}, m.Transition(Position{10, 10}, MovementDown))
}

func TestFourRoomDistribution(t *testing.T) {
	d, err := NewFourRoomDistribution(9, 0.01)
	require.NoError(t, err)
	assert.Len(t, d.Tasks(), 3)
	assert.Equal(t, AllMovements, d.Actions())
	for i := 0; i < 10; i++ {
		task := d.Sample()
		assert.Contains(t, d.Tasks(), task)
	}
}

func TestRoomAndWingAbstractions(t *testing.T) {
	m := newGrid(t)
	rooms := RoomAbstraction(m)
	ground, abstract := rooms.Sizes()
	assert.Equal(t, 104, ground)
	assert.Equal(t, 4, abstract)
	assert.Equal(t, RoomState(2), rooms.Phi(Position{8, 5}))

	saStack, _, err := MakeHierarchy(m, 3)
	require.NoError(t, err)
	wings, err := saStack.UpTo(2)
	require.NoError(t, err)
	assert.Equal(t, WingBottom, wings.Phi(Position{5, 8}))
	assert.Equal(t, WingTop, wings.Phi(Position{10, 0}))
}

func TestHallwayOption(t *testing.T) {
	m := newGrid(t)
	o := HallwayOption(m, 0, 1)
	assert.True(t, o.IsInitiable(Position{0, 0}))
	assert.False(t, o.IsInitiable(Position{0, 10}))

	s := types.State(Position{0, 0})
	steps := 0
	for !o.IsTerminated(s) {
		a := o.Policy(s)
		require.NotNil(t, a)
		s = m.Transition(s, a)
		steps += 1
	}
	assert.Equal(t, 1, m.Room(s.(Position)))
	assert.Equal(t, 8, steps)
}

func TestMakeHierarchyLevels(t *testing.T) {
	m := newGrid(t)
	saStack, aaStack, err := MakeHierarchy(m, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, saStack.NumLevels())
	assert.Equal(t, 3, aaStack.NumLevels())

	_, _, err = MakeHierarchy(m, 4)
	assert.ErrorIs(t, err, abstraction.ErrInvalidLevel)
}

func TestInducedRoomLevel(t *testing.T) {
	m := newGrid(t)
	saStack, aaStack, err := MakeHierarchy(m, 2)
	require.NoError(t, err)
	sa, err := saStack.UpTo(1)
	require.NoError(t, err)
	aa, err := aaStack.Level(1)
	require.NoError(t, err)
	induced, err := abstraction.Induce(m, sa, aa)
	require.NoError(t, err)
	assert.Equal(t, RoomState(0), induced.InitState().Abstract)

	tests := []struct {
		action string
		room   int
	}{
		{"cross-horizontal", 1},
		{"cross-vertical", 2},
	}
	for _, tt := range tests {
		res, err := induced.Step(induced.InitState(), findAction(t, induced.Actions(), tt.action))
		require.NoError(t, err, tt.action)
		assert.Equal(t, RoomState(tt.room), res.Next.Abstract, tt.action)
		assert.Equal(t, 8, res.Steps, tt.action)
		assert.InDelta(t, -0.08, res.Reward, 1e-9, tt.action)
	}

	// crossing back from the room reached
	res, err := induced.Step(Position{6, 2}, findAction(t, induced.Actions(), "cross-vertical"))
	require.NoError(t, err)
	assert.Equal(t, RoomState(0), res.Next.Abstract)
}

func TestInducedWingLevel(t *testing.T) {
	m := newGrid(t)
	saStack, aaStack, err := MakeHierarchy(m, 3)
	require.NoError(t, err)
	sa, err := saStack.UpTo(2)
	require.NoError(t, err)
	aa, err := aaStack.Level(2)
	require.NoError(t, err)
	induced, err := abstraction.Induce(m, sa, aa)
	require.NoError(t, err)

	res, err := induced.Step(induced.InitState(), findAction(t, induced.Actions(), "cross-wing"))
	require.NoError(t, err)
	assert.Equal(t, WingTop, res.Next.Abstract)
	assert.Equal(t, Position{6, 2}, res.Next.Ground)
	assert.Equal(t, 8, res.Steps)

	// from the right half the composite takes the right vertical hallway
	res, err = induced.Step(Position{0, 10}, findAction(t, induced.Actions(), "cross-wing"))
	require.NoError(t, err)
	assert.Equal(t, WingTop, res.Next.Abstract)
	assert.Equal(t, 3, m.Room(res.Next.Ground.(Position)))
}
