package table

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"blackjack-ql/blackjack"
	"blackjack-ql/card"
	"blackjack-ql/qlearn"
)

type fixedAdvisor qlearn.Action

func (a fixedAdvisor) Advise(int) (qlearn.Action, bool) { return qlearn.Action(a), true }

func newScriptedTable(t *testing.T, ranks []card.Rank, opts ...Option) (*Table, chan Message) {
	t.Helper()
	src := card.NewScriptedSource(ranks...)
	game, err := blackjack.NewGame(blackjack.DefaultConfig(), blackjack.WithSource(src))
	if err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	msgs := make(chan Message, 16)
	broadcast := func(data []byte) {
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Errorf("bad frame %s: %v", data, err)
			return
		}
		msgs <- msg
	}
	tb, err := New("t1", blackjack.DefaultConfig(), broadcast, append([]Option{WithGame(game)}, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(tb.Stop)
	return tb, msgs
}

func next(t *testing.T, msgs chan Message) Message {
	t.Helper()
	select {
	case msg := <-msgs:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for message")
		return Message{}
	}
}

func TestHitToTwentyOneResolvesHand(t *testing.T) {
	tb, msgs := newScriptedTable(t, []card.Rank{card.Face, card.Six, card.Face, card.Seven, card.Five},
		WithAdvisor(fixedAdvisor(qlearn.Hit)))

	if err := tb.SubmitEvent(Event{Type: EventDeal}); err != nil {
		t.Fatalf("deal: %v", err)
	}
	msg := next(t, msgs)
	if msg.Type != MessageState || msg.State.PlayerTotal != 16 || msg.State.DealerUp != card.Face {
		t.Fatalf("unexpected deal state: %+v", msg.State)
	}
	if msg.State.Advice != "hit" {
		t.Fatalf("advice = %q", msg.State.Advice)
	}

	if err := tb.SubmitEvent(Event{Type: EventHit}); err != nil {
		t.Fatalf("hit: %v", err)
	}
	if msg = next(t, msgs); msg.Type != MessageState || msg.State.PlayerTotal != 21 {
		t.Fatalf("unexpected hit state: %+v", msg)
	}
	msg = next(t, msgs)
	if msg.Type != MessageResult || msg.Outcome == nil {
		t.Fatalf("expected result, got %+v", msg)
	}
	if msg.Outcome.Winner != blackjack.WinnerPlayer || msg.Outcome.DealerScore != 17 {
		t.Fatalf("unexpected outcome: %+v", msg.Outcome)
	}
	if msg.Seq != 3 || msg.Hand != 1 {
		t.Fatalf("seq=%d hand=%d", msg.Seq, msg.Hand)
	}
	if err := tb.SubmitEvent(Event{Type: EventHit}); !errors.Is(err, blackjack.ErrRoundFinished) {
		t.Fatalf("hit after finish err = %v", err)
	}
}

func TestNaturalStandsImmediately(t *testing.T) {
	tb, msgs := newScriptedTable(t, []card.Rank{card.Ace, card.Face, card.Face, card.Seven})
	if err := tb.SubmitEvent(Event{Type: EventDeal}); err != nil {
		t.Fatalf("deal: %v", err)
	}
	if msg := next(t, msgs); msg.Type != MessageState || msg.State.PlayerTotal != 21 || !msg.State.Soft {
		t.Fatalf("unexpected state: %+v", msg.State)
	}
	if msg := next(t, msgs); msg.Type != MessageResult || msg.Outcome.Winner != blackjack.WinnerPlayer {
		t.Fatalf("unexpected result: %+v", msg)
	}
}

func TestEventOrderErrors(t *testing.T) {
	tb, msgs := newScriptedTable(t, []card.Rank{card.Face, card.Six, card.Face, card.Seven})
	if err := tb.SubmitEvent(Event{Type: EventHit}); !errors.Is(err, blackjack.ErrRoundNotDealt) {
		t.Fatalf("hit before deal err = %v", err)
	}
	if err := tb.SubmitEvent(Event{Type: EventStand}); !errors.Is(err, blackjack.ErrRoundNotDealt) {
		t.Fatalf("stand before deal err = %v", err)
	}
	if err := tb.SubmitEvent(Event{Type: EventDeal}); err != nil {
		t.Fatalf("deal: %v", err)
	}
	next(t, msgs)
	if err := tb.SubmitEvent(Event{Type: EventDeal}); !errors.Is(err, ErrHandActive) {
		t.Fatalf("double deal err = %v", err)
	}
	if err := tb.SubmitEvent(Event{Type: EventStand}); err != nil {
		t.Fatalf("stand: %v", err)
	}
	if msg := next(t, msgs); msg.Outcome.Winner != blackjack.WinnerDealer {
		t.Fatalf("16 vs 17 should lose: %+v", msg.Outcome)
	}
}

func TestActionTimeoutStands(t *testing.T) {
	tb, msgs := newScriptedTable(t, []card.Rank{card.Face, card.Six, card.Face, card.Seven},
		WithActionTimeout(50*time.Millisecond))
	ended := make(chan HandEndInfo, 1)
	tb.AddHandEndHook(func(info HandEndInfo) { ended <- info })

	if err := tb.SubmitEvent(Event{Type: EventDeal}); err != nil {
		t.Fatalf("deal: %v", err)
	}
	next(t, msgs)
	msg := next(t, msgs)
	if msg.Type != MessageResult || !msg.TimedOut {
		t.Fatalf("expected timed-out result, got %+v", msg)
	}
	select {
	case info := <-ended:
		if !info.TimedOut || info.TableID != "t1" || info.Hand != 1 {
			t.Fatalf("unexpected hook info: %+v", info)
		}
	case <-time.After(time.Second):
		t.Fatalf("hand end hook not called")
	}
}

func TestStoppedTableRejectsEvents(t *testing.T) {
	tb, _ := newScriptedTable(t, nil)
	tb.Stop()
	if !tb.IsClosed() || !tb.IsIdleFor(time.Hour) {
		t.Fatalf("stopped table should be closed and idle")
	}
	if err := tb.SubmitEvent(Event{Type: EventDeal}); !errors.Is(err, ErrTableClosed) {
		t.Fatalf("err = %v, want ErrTableClosed", err)
	}
}

func TestParseEventType(t *testing.T) {
	for _, s := range []string{"deal", "hit", "stand"} {
		et, err := ParseEventType(s)
		if err != nil || et.String() != s {
			t.Fatalf("ParseEventType(%q) = %v, %v", s, et, err)
		}
	}
	if _, err := ParseEventType("split"); err == nil {
		t.Fatalf("expected error for split")
	}
}
