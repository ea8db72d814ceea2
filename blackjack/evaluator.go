package blackjack

// Summary aggregates a batch of hands played by one decider.
type Summary struct {
	Decider     string `json:"decider"`
	Hands       int    `json:"hands"`
	PlayerWins  int    `json:"player_wins"`
	DealerWins  int    `json:"dealer_wins"`
	PlayerBusts int    `json:"player_busts"`
	DealerBusts int    `json:"dealer_busts"`
}

func (s Summary) WinRate() float64 {
	if s.Hands == 0 {
		return 0
	}
	return float64(s.PlayerWins) / float64(s.Hands)
}

func (s *Summary) Add(o Outcome) {
	s.Hands++
	if o.Winner == WinnerPlayer {
		s.PlayerWins++
	} else {
		s.DealerWins++
	}
	if o.PlayerBusted() {
		s.PlayerBusts++
	}
	if o.DealerBusted() {
		s.DealerBusts++
	}
}

// Evaluate plays hands consecutive hands with d (nil => fixed-threshold gambler).
func Evaluate(g *Game, d Decider, hands int) Summary {
	if d == nil {
		d = g.Gambler()
	}
	s := Summary{Decider: d.Name()}
	for i := 0; i < hands; i++ {
		s.Add(g.PlayHand(d))
	}
	return s
}
