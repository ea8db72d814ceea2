package table

import (
	"blackjack-ql/blackjack"
	"blackjack-ql/card"
)

const (
	MessageState  = "state"
	MessageResult = "result"
	MessageError  = "error"
)

// Message is the JSON frame sent to the seated player.
type Message struct {
	Type     string             `json:"type"`
	Seq      uint64             `json:"seq,omitempty"`
	Hand     int                `json:"hand,omitempty"`
	TimedOut bool               `json:"timed_out,omitempty"`
	State    *State             `json:"state,omitempty"`
	Outcome  *blackjack.Outcome `json:"outcome,omitempty"`
	Error    *ErrorBody         `json:"error,omitempty"`
}

// State is what the player may see mid-hand: their cards and the dealer's up card.
type State struct {
	PlayerCards card.Hand `json:"player_cards"`
	PlayerTotal int       `json:"player_total"`
	Soft        bool      `json:"soft"`
	DealerUp    card.Rank `json:"dealer_up"`
	Advice      string    `json:"advice,omitempty"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
