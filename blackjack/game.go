package blackjack

import (
	"math/rand"
	"sync"
	"time"

	"blackjack-ql/card"
)

// Game deals hands from one shared source. Consecutive hands keep drawing
// from it, including its pending look-ahead card.
type Game struct {
	cfg Config
	src card.Source

	mu sync.Mutex
}

type Option func(*Game)

// WithSource replaces the seeded random source, e.g. with a scripted one.
func WithSource(src card.Source) Option {
	return func(g *Game) { g.src = src }
}

func NewGame(cfg Config, opts ...Option) (*Game, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	g := &Game{cfg: cfg}
	for _, opt := range opts {
		opt(g)
	}
	if g.src == nil {
		seed := cfg.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		g.src = card.NewSource(rand.New(rand.NewSource(seed)))
	}
	return g, nil
}

func (g *Game) Config() Config { return g.cfg }

// Gambler returns the fixed-threshold decider configured for the player seat.
func (g *Game) Gambler() Decider {
	return ThresholdDecider{Threshold: g.cfg.HitThreshold}
}

func (g *Game) dealerDecider() Decider {
	return ThresholdDecider{Threshold: g.cfg.DealerThreshold}
}

// NewRound opens an interactive round against the configured dealer.
// The round shares the game's source, so it must not overlap with PlayHand.
func (g *Game) NewRound() *Round {
	return &Round{src: g.src, dealer: g.dealerDecider()}
}

// PlayHand plays one complete hand. A nil decider means the fixed-threshold
// gambler. The player acts first; the dealer plays out afterwards even when
// the player has busted.
func (g *Game) PlayHand(d Decider) Outcome {
	g.mu.Lock()
	defer g.mu.Unlock()

	if d == nil {
		d = g.Gambler()
	}
	r := g.NewRound()
	r.deal(d)
	r.player.PlayOut(r.src)
	out, _ := r.Finish()
	return out
}

// Round is one hand played step by step, used by interactive play.
type Round struct {
	src    card.Source
	dealer Decider

	player *Seat
	house  *Seat

	outcome *Outcome
}

// Deal gives the player two cards, then the dealer two cards.
func (r *Round) Deal() error {
	if r.player != nil {
		return ErrInvalidState("round already dealt")
	}
	r.deal(nil)
	return nil
}

func (r *Round) deal(d Decider) {
	r.player = NewSeat(r.src, d)
	r.house = NewSeat(r.src, r.dealer)
}

func (r *Round) Dealt() bool { return r.player != nil }

func (r *Round) Finished() bool { return r.outcome != nil }

// PlayerHit draws one card for the player.
func (r *Round) PlayerHit() (card.Rank, error) {
	switch {
	case r.player == nil:
		return card.RankInvalid, ErrRoundNotDealt
	case r.outcome != nil:
		return card.RankInvalid, ErrRoundFinished
	case r.player.Total() > card.Blackjack:
		return card.RankInvalid, ErrPlayerBusted
	}
	return r.player.Hit(r.src), nil
}

func (r *Round) PlayerHand() card.Hand {
	if r.player == nil {
		return nil
	}
	return r.player.Hand.Clone()
}

func (r *Round) PlayerTotal() int {
	if r.player == nil {
		return 0
	}
	return r.player.Total()
}

// DealerUpCard is the dealer's first card, the only one shown before Finish.
func (r *Round) DealerUpCard() card.Rank {
	if r.house == nil {
		return card.RankInvalid
	}
	return r.house.Hand[0]
}

// Finish plays the dealer out and resolves the hand.
func (r *Round) Finish() (Outcome, error) {
	if r.player == nil {
		return Outcome{}, ErrRoundNotDealt
	}
	if r.outcome != nil {
		return *r.outcome, ErrRoundFinished
	}
	r.house.PlayOut(r.src)

	ps, ds := r.player.Total(), r.house.Total()
	out := Outcome{
		Winner:      Resolve(ps, ds),
		PlayerScore: ps,
		DealerScore: ds,
		PlayerCards: r.player.Hand.Clone(),
		DealerCards: r.house.Hand.Clone(),
	}
	r.outcome = &out
	return out, nil
}
