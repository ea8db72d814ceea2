package qlearn

import (
	"fmt"
	"math/rand"
	"strconv"
)

// QTable holds one value per (state, action) for states 1..21.
// It has a single owner; concurrent writers are not supported.
type QTable struct {
	q [MaxState + 1][len(Actions)]float64
}

func NewQTable() *QTable {
	return &QTable{}
}

func checkState(state int) {
	if state < MinState || state > MaxState {
		panic(&LookupError{Table: "q-table", Key: "state " + strconv.Itoa(state)})
	}
}

func (t *QTable) Get(state int, a Action) float64 {
	checkState(state)
	return t.q[state][a.index()]
}

func (t *QTable) Set(state int, a Action, v float64) {
	checkState(state)
	t.q[state][a.index()] = v
}

// Best returns the action with the strictly larger value. Equal values pick
// hit or stand uniformly through rng. A bust state has no entries and yields
// (Stand, 0).
func (t *QTable) Best(state int, rng *rand.Rand) (Action, float64) {
	if state > MaxState {
		return Stand, 0
	}
	checkState(state)
	hit, stand := t.q[state][Hit.index()], t.q[state][Stand.index()]
	switch {
	case hit > stand:
		return Hit, hit
	case stand > hit:
		return Stand, stand
	}
	if rng.Intn(2) == 0 {
		return Hit, hit
	}
	return Stand, stand
}

func (t *QTable) Clone() *QTable {
	cp := *t
	return &cp
}

// Equal compares every entry bit for bit.
func (t *QTable) Equal(o *QTable) bool {
	if t == nil || o == nil {
		return t == o
	}
	return t.q == o.q
}

// Row is one state's pair of values, the shape used for storage and reports.
type Row struct {
	State int     `json:"state"`
	Hit   float64 `json:"hit"`
	Stand float64 `json:"stand"`
}

func (t *QTable) Rows() []Row {
	rows := make([]Row, 0, MaxState)
	for s := MinState; s <= MaxState; s++ {
		rows = append(rows, Row{State: s, Hit: t.q[s][Hit.index()], Stand: t.q[s][Stand.index()]})
	}
	return rows
}

// QTableFromRows rebuilds a table. Missing states stay at 0.
func QTableFromRows(rows []Row) (*QTable, error) {
	t := NewQTable()
	for _, r := range rows {
		if r.State < MinState || r.State > MaxState {
			return nil, fmt.Errorf("row state %d out of range", r.State)
		}
		t.q[r.State][Hit.index()] = r.Hit
		t.q[r.State][Stand.index()] = r.Stand
	}
	return t, nil
}

// HitPreference returns Q(hit)-Q(stand) for every state, indexed by state.
func HitPreference(t *QTable) []float64 {
	out := make([]float64, MaxState+1)
	for s := MinState; s <= MaxState; s++ {
		out[s] = t.q[s][Hit.index()] - t.q[s][Stand.index()]
	}
	return out
}
