package blackjack

import (
	"encoding/json"
	"fmt"

	"blackjack-ql/card"
)

type Winner int

const (
	WinnerDealer Winner = iota
	WinnerPlayer
)

func (w Winner) String() string {
	switch w {
	case WinnerPlayer:
		return "player"
	case WinnerDealer:
		return "dealer"
	default:
		return fmt.Sprintf("Winner(%d)", int(w))
	}
}

func (w Winner) MarshalJSON() ([]byte, error) {
	return json.Marshal(w.String())
}

func (w *Winner) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	switch s {
	case "player":
		*w = WinnerPlayer
	case "dealer":
		*w = WinnerDealer
	default:
		return fmt.Errorf("unknown winner %q", s)
	}
	return nil
}

// Outcome is the record of one resolved hand.
type Outcome struct {
	Winner      Winner    `json:"winner"`
	PlayerScore int       `json:"player_score"`
	DealerScore int       `json:"dealer_score"`
	PlayerCards card.Hand `json:"player_cards"`
	DealerCards card.Hand `json:"dealer_cards"`
}

func (o Outcome) PlayerBusted() bool { return o.PlayerScore > card.Blackjack }
func (o Outcome) DealerBusted() bool { return o.DealerScore > card.Blackjack }

// Resolve decides a hand from final totals. A busted player always loses,
// then a busted dealer loses, then the higher total wins. Equal totals go to
// the dealer; there is no push.
func Resolve(playerScore, dealerScore int) Winner {
	switch {
	case playerScore > card.Blackjack:
		return WinnerDealer
	case dealerScore > card.Blackjack:
		return WinnerPlayer
	case playerScore > dealerScore:
		return WinnerPlayer
	default:
		return WinnerDealer
	}
}
