package qlearn

import (
	"encoding/json"
	"fmt"
	"math/rand"

	"blackjack-ql/blackjack"
	"blackjack-ql/card"
)

// Policy maps every state 1..21 to an action. It never changes after extraction.
type Policy struct {
	actions [MaxState + 1]Action
}

// Extract picks, per state, the action with the strictly greater value.
// Exact ties are broken uniformly through rng.
func Extract(q *QTable, rng *rand.Rand) Policy {
	var p Policy
	for s := MinState; s <= MaxState; s++ {
		hit, stand := q.Get(s, Hit), q.Get(s, Stand)
		switch {
		case hit > stand:
			p.actions[s] = Hit
		case stand > hit:
			p.actions[s] = Stand
		case rng.Intn(2) == 0:
			p.actions[s] = Hit
		default:
			p.actions[s] = Stand
		}
	}
	return p
}

// PolicyFromMap requires an action for every state.
func PolicyFromMap(m map[int]Action) (Policy, error) {
	var p Policy
	for s := MinState; s <= MaxState; s++ {
		a, ok := m[s]
		if !ok {
			return Policy{}, fmt.Errorf("policy missing state %d", s)
		}
		if !a.Valid() {
			return Policy{}, fmt.Errorf("policy state %d: invalid action %d", s, int(a))
		}
		p.actions[s] = a
	}
	for s := range m {
		if s < MinState || s > MaxState {
			return Policy{}, fmt.Errorf("policy state %d out of range", s)
		}
	}
	return p, nil
}

// Complete is false only for the zero Policy.
func (p Policy) Complete() bool {
	for s := MinState; s <= MaxState; s++ {
		if !p.actions[s].Valid() {
			return false
		}
	}
	return true
}

func (p Policy) Action(state int) Action {
	checkState(state)
	return p.actions[state]
}

// Hit reports whether the policy hits at state. Bust states stand.
func (p Policy) Hit(state int) bool {
	if state > MaxState {
		return false
	}
	return p.Action(state) == Hit
}

func (p Policy) Map() map[int]Action {
	m := make(map[int]Action, MaxState)
	for s := MinState; s <= MaxState; s++ {
		m[s] = p.actions[s]
	}
	return m
}

func (p Policy) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Map())
}

func (p *Policy) UnmarshalJSON(b []byte) error {
	var m map[int]Action
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	v, err := PolicyFromMap(m)
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// PolicyDecider plays a fixed extracted policy.
type PolicyDecider struct {
	Policy Policy
}

var _ blackjack.Decider = PolicyDecider{}

func (d PolicyDecider) ShouldHit(hand card.Hand) bool {
	return d.Policy.Hit(hand.Total())
}

func (PolicyDecider) Name() string { return "q-policy" }

// QTableDecider plays greedily on a live table, exploring with probability Epsilon.
type QTableDecider struct {
	Table   *QTable
	Epsilon float64
	Rand    *rand.Rand
}

var _ blackjack.Decider = (*QTableDecider)(nil)

func (d *QTableDecider) ShouldHit(hand card.Hand) bool {
	total := hand.Total()
	if total > MaxState {
		return false
	}
	return chooseAction(d.Table, total, d.Epsilon, d.Rand) == Hit
}

func (d *QTableDecider) Name() string {
	return fmt.Sprintf("q-table(eps=%.2f)", d.Epsilon)
}

// chooseAction is epsilon-greedy: a uniform random action with probability
// eps, otherwise the table's best action.
func chooseAction(q *QTable, state int, eps float64, rng *rand.Rand) Action {
	if eps > 0 && rng.Float64() < eps {
		return Actions[rng.Intn(len(Actions))]
	}
	a, _ := q.Best(state, rng)
	return a
}
