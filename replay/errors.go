package replay

import "fmt"

type ReplayError struct {
	StepIndex int32          `json:"step_index"`
	Reason    string         `json:"reason"`
	Message   string         `json:"message"`
	Expected  *ExpectedState `json:"expected,omitempty"`
}

// ExpectedState is the player's situation at the failing step.
type ExpectedState struct {
	PlayerTotal  int      `json:"player_total"`
	LegalActions []string `json:"legal_actions,omitempty"`
	CardsLeft    int      `json:"cards_left"`
}

func (e *ReplayError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("replay error(step=%d reason=%s): %s", e.StepIndex, e.Reason, e.Message)
}

const (
	ReasonInvalidCard   = "invalid_card"
	ReasonInvalidAction = "invalid_action"
	ReasonInvalidPolicy = "invalid_policy"
	ReasonInvalidConfig = "invalid_config"
	ReasonDeckExhausted = "deck_exhausted"
	ReasonIllegalAction = "illegal_action"
	ReasonHandOver      = "hand_over"
)
