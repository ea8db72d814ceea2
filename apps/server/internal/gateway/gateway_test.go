package gateway

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"blackjack-ql/apps/server/internal/lobby"
	"blackjack-ql/apps/server/internal/table"
	"blackjack-ql/blackjack"
	"blackjack-ql/qlearn"

	"github.com/gorilla/websocket"
)

func dial(t *testing.T, origins []string) (*websocket.Conn, *Gateway, *lobby.Lobby) {
	t.Helper()
	game := blackjack.DefaultConfig()
	game.Seed = 5
	lby := lobby.New(lobby.Config{Trainer: qlearn.DefaultConfig(), Game: game}, nil, nil)
	gw := New(lby, origins, nil)
	srv := httptest.NewServer(http.HandlerFunc(gw.HandleWebSocket))
	t.Cleanup(func() {
		srv.Close()
		lby.Close()
	})

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn, gw, lby
}

func send(t *testing.T, conn *websocket.Conn, raw string) {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(raw)); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func read(t *testing.T, conn *websocket.Conn) table.Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var msg table.Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func TestDealStandFlow(t *testing.T) {
	conn, gw, lby := dial(t, []string{"*"})

	send(t, conn, `{"type":"deal"}`)
	msg := read(t, conn)
	if msg.Type != table.MessageState || msg.State == nil {
		t.Fatalf("expected state, got %+v", msg)
	}
	if len(msg.State.PlayerCards) != 2 || msg.State.DealerUp == 0 {
		t.Fatalf("unexpected state %+v", msg.State)
	}
	if msg.State.Advice != "" {
		t.Fatalf("advice without a policy: %q", msg.State.Advice)
	}
	if msg.State.PlayerTotal < 21 {
		send(t, conn, `{"type":"stand"}`)
	}
	msg = read(t, conn)
	if msg.Type != table.MessageResult || msg.Outcome == nil {
		t.Fatalf("expected result, got %+v", msg)
	}
	if len(msg.Outcome.DealerCards) < 2 {
		t.Fatalf("dealer cards missing: %+v", msg.Outcome)
	}

	if gw.Connections() != 1 || lby.OpenTables() != 1 {
		t.Fatalf("connections=%d tables=%d", gw.Connections(), lby.OpenTables())
	}
	if lby.LiveSummary().Hands != 1 {
		t.Fatalf("live hands = %d", lby.LiveSummary().Hands)
	}
}

func TestProtocolErrors(t *testing.T) {
	conn, _, _ := dial(t, nil)

	send(t, conn, `not json`)
	if msg := read(t, conn); msg.Type != table.MessageError || msg.Error.Code != "invalid_message" {
		t.Fatalf("unexpected %+v", msg)
	}
	send(t, conn, `{"type":"split"}`)
	if msg := read(t, conn); msg.Error == nil || msg.Error.Code != "unknown_type" {
		t.Fatalf("unexpected %+v", msg)
	}
	send(t, conn, `{"type":"hit"}`)
	if msg := read(t, conn); msg.Error == nil || msg.Error.Code != "not_dealt" {
		t.Fatalf("unexpected %+v", msg)
	}
}

func TestDisconnectClosesTable(t *testing.T) {
	conn, gw, lby := dial(t, nil)
	send(t, conn, `{"type":"deal"}`)
	read(t, conn)
	conn.Close()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if gw.Connections() == 0 && lby.OpenTables() == 0 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("connection not cleaned up: conns=%d tables=%d", gw.Connections(), lby.OpenTables())
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://play.example.com"})
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	if !check(req) {
		t.Fatalf("requests without Origin should pass")
	}
	req.Header.Set("Origin", "https://play.example.com")
	if !check(req) {
		t.Fatalf("allowed origin rejected")
	}
	req.Header.Set("Origin", "https://evil.example.com")
	if check(req) {
		t.Fatalf("foreign origin accepted")
	}
	if !originChecker([]string{"*"})(req) {
		t.Fatalf("wildcard should accept any origin")
	}
}
