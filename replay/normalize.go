package replay

import (
	"fmt"
	"strconv"

	"blackjack-ql/blackjack"
	"blackjack-ql/card"
	"blackjack-ql/qlearn"
)

const defaultHandID = "replay_local"

type normalizedSpec struct {
	handID  string
	deck    []card.Rank
	actions []qlearn.Action
	decider blackjack.Decider
	dealer  blackjack.Decider
}

func normalizeSpec(spec HandSpec) (*normalizedSpec, error) {
	ns := &normalizedSpec{handID: spec.HandID}
	if ns.handID == "" {
		ns.handID = defaultHandID
	}

	deck, err := card.ParseRanks(spec.Deck)
	if err != nil {
		return nil, &ReplayError{StepIndex: -1, Reason: ReasonInvalidCard, Message: err.Error()}
	}
	ns.deck = deck

	for i, raw := range spec.Actions {
		a, err := qlearn.ParseAction(raw)
		if err != nil {
			return nil, &ReplayError{StepIndex: int32(i), Reason: ReasonInvalidAction, Message: err.Error()}
		}
		ns.actions = append(ns.actions, a)
	}

	hit := thresholdOrDefault(spec.HitThreshold)
	dealer := thresholdOrDefault(spec.DealerThreshold)
	if err := (blackjack.Config{HitThreshold: hit, DealerThreshold: dealer}).Validate(); err != nil {
		return nil, &ReplayError{StepIndex: -1, Reason: ReasonInvalidConfig, Message: err.Error()}
	}
	ns.dealer = blackjack.ThresholdDecider{Threshold: dealer}

	switch {
	case len(ns.actions) > 0:
		ns.decider = scriptedDecider{}
	case len(spec.Policy) > 0:
		p, err := parsePolicy(spec.Policy)
		if err != nil {
			return nil, &ReplayError{StepIndex: -1, Reason: ReasonInvalidPolicy, Message: err.Error()}
		}
		ns.decider = qlearn.PolicyDecider{Policy: p}
	default:
		ns.decider = blackjack.ThresholdDecider{Threshold: hit}
	}
	return ns, nil
}

func thresholdOrDefault(v int) int {
	if v == 0 {
		return blackjack.DefaultThreshold
	}
	return v
}

func parsePolicy(raw map[string]string) (qlearn.Policy, error) {
	m := make(map[int]qlearn.Action, len(raw))
	for k, v := range raw {
		s, err := strconv.Atoi(k)
		if err != nil {
			return qlearn.Policy{}, fmt.Errorf("policy state %q: %w", k, err)
		}
		a, err := qlearn.ParseAction(v)
		if err != nil {
			return qlearn.Policy{}, fmt.Errorf("policy state %d: %w", s, err)
		}
		m[s] = a
	}
	return qlearn.PolicyFromMap(m)
}

// scriptedDecider only names the tape; the actions list drives the player.
type scriptedDecider struct{}

func (scriptedDecider) ShouldHit(card.Hand) bool { return false }
func (scriptedDecider) Name() string             { return "scripted" }
