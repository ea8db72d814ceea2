package replay

// HandSpec describes one fully scripted hand.
//
// Deck is drawn in order: two player cards, two dealer cards, then every
// later hit. Actions drive the player; when empty the player follows Policy
// if given, else the fixed-threshold gambler.
type HandSpec struct {
	HandID          string            `json:"hand_id,omitempty"`
	Deck            []string          `json:"deck"`
	Actions         []string          `json:"actions,omitempty"`
	Policy          map[string]string `json:"policy,omitempty"`
	HitThreshold    int               `json:"hit_threshold,omitempty"`
	DealerThreshold int               `json:"dealer_threshold,omitempty"`
}

type ReplayTape struct {
	TapeVersion int           `json:"tape_version"`
	HandID      string        `json:"hand_id"`
	Decider     string        `json:"decider"`
	Events      []ReplayEvent `json:"events"`
}

type ReplayEvent struct {
	Type        string         `json:"type"`
	Seq         uint64         `json:"seq"`
	Value       map[string]any `json:"value,omitempty"`
	EnvelopeB64 string         `json:"envelope_b64,omitempty"`
}

const (
	EventDeal        = "deal"
	EventHit         = "hit"
	EventStand       = "stand"
	EventDealerHit   = "dealer_hit"
	EventDealerStand = "dealer_stand"
	EventResult      = "result"
)
