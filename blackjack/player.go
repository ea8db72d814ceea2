package blackjack

import (
	"fmt"

	"blackjack-ql/card"
)

// Decider is the hit/stand contract every gambler satisfies.
type Decider interface {
	ShouldHit(hand card.Hand) bool
	Name() string
}

// ThresholdDecider hits while the hand total is at or below Threshold.
// The dealer and the baseline gambler both use it.
type ThresholdDecider struct {
	Threshold int
}

func (d ThresholdDecider) ShouldHit(hand card.Hand) bool {
	return hand.Total() <= d.Threshold
}

func (d ThresholdDecider) Name() string {
	return fmt.Sprintf("threshold-%d", d.Threshold)
}

// Seat is one side of the table: a hand and whoever decides for it.
type Seat struct {
	Hand    card.Hand
	Decider Decider
}

func NewSeat(src card.Source, d Decider) *Seat {
	s := &Seat{Decider: d}
	s.Hand.Add(src.Draw(), src.Draw())
	return s
}

func (s *Seat) Hit(src card.Source) card.Rank {
	r := src.Draw()
	s.Hand.Add(r)
	return r
}

func (s *Seat) Total() int {
	return s.Hand.Total()
}

// PlayOut keeps hitting while the seat is not bust and its decider asks for a card.
// Returns the ranks drawn.
func (s *Seat) PlayOut(src card.Source) []card.Rank {
	var drawn []card.Rank
	for s.Total() <= card.Blackjack && s.Decider.ShouldHit(s.Hand) {
		drawn = append(drawn, s.Hit(src))
	}
	return drawn
}
