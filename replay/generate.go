package replay

import (
	"fmt"

	"blackjack-ql/blackjack"
	"blackjack-ql/card"
	"blackjack-ql/qlearn"
)

// GenerateReplayTape plays spec and returns its event tape. Equal specs give
// equal tapes.
func GenerateReplayTape(spec HandSpec) (*ReplayTape, error) {
	ns, err := normalizeSpec(spec)
	if err != nil {
		return nil, err
	}

	src := card.NewScriptedSource(ns.deck...)
	if src.Remaining() < 4 {
		return nil, &ReplayError{
			StepIndex: -1,
			Reason:    ReasonDeckExhausted,
			Message:   fmt.Sprintf("dealing needs 4 cards, deck has %d", src.Remaining()),
		}
	}
	player := blackjack.NewSeat(src, ns.decider)
	dealer := blackjack.NewSeat(src, ns.dealer)

	builder := newTapeBuilder(ns.handID)
	builder.add(EventDeal, map[string]any{
		"player_cards": rankList(player.Hand),
		"player_total": player.Total(),
		"dealer_up":    dealer.Hand[0].String(),
	})

	if len(ns.actions) > 0 {
		err = playScripted(ns.actions, player, src, builder)
	} else {
		err = playDecider(player, src, builder)
	}
	if err != nil {
		return nil, err
	}

	for dealer.Total() <= card.Blackjack && dealer.Decider.ShouldHit(dealer.Hand) {
		if src.Remaining() == 0 {
			return nil, &ReplayError{
				StepIndex: int32(len(ns.actions)),
				Reason:    ReasonDeckExhausted,
				Message:   fmt.Sprintf("dealer on %d needs another card", dealer.Total()),
			}
		}
		r := dealer.Hit(src)
		builder.add(EventDealerHit, map[string]any{"card": r.String(), "dealer_total": dealer.Total()})
	}
	if dealer.Total() <= card.Blackjack {
		builder.add(EventDealerStand, map[string]any{"dealer_total": dealer.Total()})
	}

	ps, ds := player.Total(), dealer.Total()
	builder.add(EventResult, map[string]any{
		"winner":       blackjack.Resolve(ps, ds).String(),
		"player_score": ps,
		"dealer_score": ds,
		"player_cards": rankList(player.Hand),
		"dealer_cards": rankList(dealer.Hand),
	})
	if builder.err != nil {
		return nil, &ReplayError{StepIndex: -1, Reason: "encode_failed", Message: builder.err.Error()}
	}

	return &ReplayTape{
		TapeVersion: 1,
		HandID:      builder.handID,
		Decider:     ns.decider.Name(),
		Events:      builder.events,
	}, nil
}

func playScripted(actions []qlearn.Action, player *blackjack.Seat, src *card.ScriptedSource, b *tapeBuilder) error {
	stood := false
	for i, a := range actions {
		total := player.Total()
		switch {
		case stood:
			return &ReplayError{
				StepIndex: int32(i),
				Reason:    ReasonHandOver,
				Message:   fmt.Sprintf("player already stood on %d", total),
				Expected:  expectedState(total, src),
			}
		case total > card.Blackjack:
			return &ReplayError{
				StepIndex: int32(i),
				Reason:    ReasonIllegalAction,
				Message:   fmt.Sprintf("player busted on %d; %s is not legal", total, a),
				Expected:  expectedState(total, src),
			}
		}

		if a == qlearn.Stand {
			b.add(EventStand, map[string]any{"player_total": total})
			stood = true
			continue
		}
		if src.Remaining() == 0 {
			return &ReplayError{
				StepIndex: int32(i),
				Reason:    ReasonDeckExhausted,
				Message:   "no card left for hit",
				Expected:  expectedState(total, src),
			}
		}
		r := player.Hit(src)
		b.add(EventHit, map[string]any{"card": r.String(), "player_total": player.Total()})
	}
	if !stood && player.Total() <= card.Blackjack {
		b.add(EventStand, map[string]any{"player_total": player.Total(), "implicit": true})
	}
	return nil
}

func playDecider(player *blackjack.Seat, src *card.ScriptedSource, b *tapeBuilder) error {
	step := 0
	for player.Total() <= card.Blackjack && player.Decider.ShouldHit(player.Hand) {
		if src.Remaining() == 0 {
			return &ReplayError{
				StepIndex: int32(step),
				Reason:    ReasonDeckExhausted,
				Message:   fmt.Sprintf("%s wants a card on %d, deck is empty", player.Decider.Name(), player.Total()),
				Expected:  expectedState(player.Total(), src),
			}
		}
		r := player.Hit(src)
		b.add(EventHit, map[string]any{"card": r.String(), "player_total": player.Total()})
		step++
	}
	if player.Total() <= card.Blackjack {
		b.add(EventStand, map[string]any{"player_total": player.Total()})
	}
	return nil
}

func expectedState(total int, src *card.ScriptedSource) *ExpectedState {
	es := &ExpectedState{PlayerTotal: total, CardsLeft: src.Remaining()}
	if total <= card.Blackjack {
		es.LegalActions = []string{qlearn.Hit.String(), qlearn.Stand.String()}
	}
	return es
}

// rankList is a structpb-friendly list of rank names.
func rankList(h card.Hand) []any {
	names := card.Ranks2strings(h)
	out := make([]any, len(names))
	for i, n := range names {
		out[i] = n
	}
	return out
}
