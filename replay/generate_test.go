package replay

import (
	"errors"
	"reflect"
	"strconv"
	"testing"
)

func TestGenerateReplayTape_IsDeterministic(t *testing.T) {
	spec := baseHandSpec()

	tapeA, err := GenerateReplayTape(spec)
	if err != nil {
		t.Fatalf("GenerateReplayTape A failed: %v", err)
	}
	tapeB, err := GenerateReplayTape(spec)
	if err != nil {
		t.Fatalf("GenerateReplayTape B failed: %v", err)
	}

	if !reflect.DeepEqual(tapeA, tapeB) {
		t.Fatalf("expected deterministic replay tape for the same HandSpec")
	}

	want := []string{EventDeal, EventHit, EventStand, EventDealerHit, EventDealerStand, EventResult}
	if got := eventTypes(tapeA); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected event sequence %v", got)
	}
	result := tapeA.Events[len(tapeA.Events)-1].Value
	if result["winner"] != "player" || result["player_score"] != 20 || result["dealer_score"] != 18 {
		t.Fatalf("unexpected result %v", result)
	}
}

func TestGenerateReplayTape_EnvelopeDecodes(t *testing.T) {
	tape, err := GenerateReplayTape(baseHandSpec())
	if err != nil {
		t.Fatalf("GenerateReplayTape failed: %v", err)
	}
	for _, e := range tape.Events {
		env, err := DecodeEnvelope(e.EnvelopeB64)
		if err != nil {
			t.Fatalf("event %d: decode failed: %v", e.Seq, err)
		}
		if env["type"] != e.Type || env["seq"] != float64(e.Seq) || env["hand_id"] != "hand-1" {
			t.Fatalf("event %d: envelope mismatch %v", e.Seq, env)
		}
	}
}

func TestGenerateReplayTape_PlayerBustStillPlaysDealer(t *testing.T) {
	spec := HandSpec{
		Deck:    []string{"T", "6", "T", "5", "K", "3"},
		Actions: []string{"hit"},
	}
	tape, err := GenerateReplayTape(spec)
	if err != nil {
		t.Fatalf("GenerateReplayTape failed: %v", err)
	}
	want := []string{EventDeal, EventHit, EventDealerHit, EventDealerStand, EventResult}
	if got := eventTypes(tape); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected event sequence %v", got)
	}
	if w := tape.Events[len(tape.Events)-1].Value["winner"]; w != "dealer" {
		t.Fatalf("busted player must lose, got %v", w)
	}
}

func TestGenerateReplayTape_ThresholdWhenNoActions(t *testing.T) {
	spec := HandSpec{Deck: []string{"T", "4", "T", "8", "2", "3"}}
	tape, err := GenerateReplayTape(spec)
	if err != nil {
		t.Fatalf("GenerateReplayTape failed: %v", err)
	}
	if tape.Decider != "threshold-16" {
		t.Fatalf("unexpected decider %q", tape.Decider)
	}
	// 14 -> hit 2 -> 16 -> hit 3 -> 19, dealer stands on 18
	if got := eventTypes(tape); !reflect.DeepEqual(got, []string{EventDeal, EventHit, EventHit, EventStand, EventDealerStand, EventResult}) {
		t.Fatalf("unexpected event sequence %v", got)
	}
}

func TestGenerateReplayTape_PolicySpec(t *testing.T) {
	policy := map[string]string{}
	for s := 1; s <= 21; s++ {
		a := "stand"
		if s <= 11 {
			a = "hit"
		}
		policy[strconv.Itoa(s)] = a
	}
	spec := HandSpec{Deck: []string{"5", "4", "T", "7", "9"}, Policy: policy}
	tape, err := GenerateReplayTape(spec)
	if err != nil {
		t.Fatalf("GenerateReplayTape failed: %v", err)
	}
	if tape.Decider != "q-policy" || tape.Events[1].Type != EventHit {
		t.Fatalf("expected policy to hit on 9, got %+v", tape.Events[1])
	}

	delete(policy, "4")
	_, err = GenerateReplayTape(HandSpec{Deck: spec.Deck, Policy: policy})
	assertReason(t, err, ReasonInvalidPolicy)
}

func TestGenerateReplayTape_Errors(t *testing.T) {
	cases := []struct {
		name   string
		spec   HandSpec
		reason string
		step   int32
	}{
		{"bad card", HandSpec{Deck: []string{"T", "X", "5", "5"}}, ReasonInvalidCard, -1},
		{"short deck", HandSpec{Deck: []string{"T", "5", "5"}}, ReasonDeckExhausted, -1},
		{"bad action", HandSpec{Deck: []string{"T", "5", "T", "8"}, Actions: []string{"double"}}, ReasonInvalidAction, 0},
		{"no card for hit", HandSpec{Deck: []string{"T", "5", "T", "8"}, Actions: []string{"hit"}}, ReasonDeckExhausted, 0},
		{"action after stand", HandSpec{Deck: []string{"T", "5", "T", "8"}, Actions: []string{"stand", "hit"}}, ReasonHandOver, 1},
		{"hit after bust", HandSpec{Deck: []string{"T", "5", "T", "8", "T", "2"}, Actions: []string{"hit", "hit"}}, ReasonIllegalAction, 1},
		{"dealer runs dry", HandSpec{Deck: []string{"T", "9", "T", "2"}, Actions: []string{"stand"}}, ReasonDeckExhausted, 1},
		{"bad threshold", HandSpec{Deck: []string{"T", "9", "T", "8"}, DealerThreshold: 40}, ReasonInvalidConfig, -1},
	}
	for _, tc := range cases {
		_, err := GenerateReplayTape(tc.spec)
		re := assertReason(t, err, tc.reason)
		if re.StepIndex != tc.step {
			t.Fatalf("%s: step=%d want %d", tc.name, re.StepIndex, tc.step)
		}
	}
}

func TestToWireReplayTape(t *testing.T) {
	tape, err := GenerateReplayTape(baseHandSpec())
	if err != nil {
		t.Fatalf("GenerateReplayTape failed: %v", err)
	}
	wire := ToWireReplayTape(tape)
	if wire.HandID != "hand-1" || len(wire.Events) != len(tape.Events) {
		t.Fatalf("unexpected wire tape %+v", wire)
	}
	if ToWireReplayTape(nil) != nil {
		t.Fatalf("nil tape must map to nil")
	}
}

func assertReason(t *testing.T, err error, reason string) *ReplayError {
	t.Helper()
	if err == nil {
		t.Fatalf("expected replay error %s", reason)
	}
	var re *ReplayError
	if !errors.As(err, &re) {
		t.Fatalf("expected ReplayError type, got %T", err)
	}
	if re.Reason != reason {
		t.Fatalf("unexpected reason: %s (want %s): %s", re.Reason, reason, re.Message)
	}
	return re
}

func eventTypes(tape *ReplayTape) []string {
	out := make([]string, 0, len(tape.Events))
	for _, e := range tape.Events {
		out = append(out, e.Type)
	}
	return out
}

func baseHandSpec() HandSpec {
	// player 10+2, dealer 10+3; player hits 8 -> 20 and stands,
	// dealer hits 5 -> 18 and stands.
	return HandSpec{
		HandID:  "hand-1",
		Deck:    []string{"T", "2", "K", "3", "8", "5"},
		Actions: []string{"hit", "stand"},
	}
}
