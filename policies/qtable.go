package policies

import (
	"encoding/json"
	"math"

	"github.com/zeu5/rl-abstraction/util"
)

// QTable maps (state, action) hashes to values
type QTable struct {
	table map[string]map[string]float64
}

func NewQTable() *QTable {
	return &QTable{
		table: make(map[string]map[string]float64),
	}
}

// Get returns the stored value or def when the pair was never set
func (q *QTable) Get(state, action string, def float64) float64 {
	if vals, ok := q.table[state]; ok {
		if val, ok := vals[action]; ok {
			return val
		}
	}
	return def
}

func (q *QTable) Set(state, action string, val float64) {
	if _, ok := q.table[state]; !ok {
		q.table[state] = make(map[string]float64)
	}
	q.table[state][action] = val
}

func (q *QTable) HasState(state string) bool {
	_, ok := q.table[state]
	return ok
}

// MaxAmong returns the best action among the given ones, ties go to
// the earliest action in the list
func (q *QTable) MaxAmong(state string, actions []string, def float64) (string, float64) {
	maxAction := ""
	maxVal := math.Inf(-1)
	for _, a := range actions {
		val := q.Get(state, a, def)
		if val > maxVal {
			maxAction = a
			maxVal = val
		}
	}
	if maxAction == "" {
		return "", def
	}
	return maxAction, maxVal
}

func (q *QTable) NumStates() int {
	return len(q.table)
}

// Record dumps the table as json to the path
func (q *QTable) Record(path string) error {
	bs, err := json.Marshal(q.table)
	if err != nil {
		return err
	}
	return util.WriteToFile(path, string(bs))
}
