package qlearn

import (
	"encoding/json"
	"fmt"
)

// Action is the learner's move. The zero value is invalid.
type Action int

const (
	Hit Action = iota + 1
	Stand
)

// Actions in table order.
var Actions = [...]Action{Hit, Stand}

const (
	WinReward  = 1000.0
	LossReward = -1000.0

	// States are hand totals 1..21; anything above is bust.
	MinState = 1
	MaxState = 21
	// DealerBust is the clamped dealer total used by the dealer-aware rewards.
	DealerBust = 22
)

func (a Action) String() string {
	switch a {
	case Hit:
		return "hit"
	case Stand:
		return "stand"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

func (a Action) Valid() bool { return a == Hit || a == Stand }

func (a Action) index() int {
	if !a.Valid() {
		panic(&LookupError{Table: "q-table", Key: a.String()})
	}
	return int(a) - 1
}

func ParseAction(s string) (Action, error) {
	switch s {
	case "hit", "HIT", "h":
		return Hit, nil
	case "stand", "STAND", "s":
		return Stand, nil
	default:
		return 0, fmt.Errorf("unknown action %q", s)
	}
}

func (a Action) MarshalText() ([]byte, error) {
	if !a.Valid() {
		return nil, fmt.Errorf("invalid action %d", int(a))
	}
	return []byte(a.String()), nil
}

func (a *Action) UnmarshalText(b []byte) error {
	v, err := ParseAction(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// Transition is one learner step. Dealer is the dealer's final total
// (DealerBust when bust) and is only read by dealer-aware rewards.
type Transition struct {
	Current int
	Action  Action
	Next    int
	Dealer  int
}

func (tr Transition) String() string {
	b, _ := json.Marshal(struct {
		Current int    `json:"current"`
		Action  string `json:"action"`
		Next    int    `json:"next"`
		Dealer  int    `json:"dealer,omitempty"`
	}{tr.Current, tr.Action.String(), tr.Next, tr.Dealer})
	return string(b)
}
