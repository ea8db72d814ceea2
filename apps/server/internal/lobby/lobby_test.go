package lobby

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"blackjack-ql/apps/server/internal/auth"
	"blackjack-ql/apps/server/internal/ledger"
	"blackjack-ql/apps/server/internal/table"
	"blackjack-ql/blackjack"
	"blackjack-ql/qlearn"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	trainer := qlearn.DefaultConfig()
	trainer.Episodes = 2000
	trainer.Seed = 1
	game := blackjack.DefaultConfig()
	game.Seed = 9
	return Config{Trainer: trainer, Game: game, EvalHands: 300, MaxEpisodes: 50000, MaxPlay: 1000}
}

func newTestLobby(t *testing.T) (*Lobby, ledger.Service) {
	t.Helper()
	store, _, err := ledger.NewService(ledger.Options{Mode: "memory"})
	require.NoError(t, err)
	l := New(testConfig(), store, nil)
	t.Cleanup(l.Close)
	return l, store
}

func TestTrainStoresRunAndSwapsPolicy(t *testing.T) {
	l, store := newTestLobby(t)
	ctx := context.Background()

	_, _, err := l.Policy()
	require.ErrorIs(t, err, ErrNoPolicy)
	_, ok := l.Advise(12)
	assert.False(t, ok)

	run, err := l.Train(ctx, TrainRequest{})
	require.NoError(t, err)
	assert.Equal(t, 2000, run.Config.Episodes)
	require.Len(t, run.Evaluation, 2)
	assert.Equal(t, "q-policy", run.Evaluation[0].Decider)
	assert.Equal(t, "threshold-16", run.Evaluation[1].Decider)
	assert.Equal(t, 300, run.Evaluation[0].Hands)
	assert.NotEmpty(t, run.Progress)

	p, runID, err := l.Policy()
	require.NoError(t, err)
	assert.Equal(t, run.ID, runID)
	assert.Equal(t, run.Policy, p)

	a, ok := l.Advise(12)
	assert.True(t, ok)
	assert.Equal(t, p.Action(12), a)
	_, ok = l.Advise(22)
	assert.False(t, ok)

	stored, err := store.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.Policy, stored.Policy)
}

func TestTrainIsDeterministicForSeed(t *testing.T) {
	l, _ := newTestLobby(t)
	seed := int64(42)
	a, err := l.Train(context.Background(), TrainRequest{Seed: &seed})
	require.NoError(t, err)
	b, err := l.Train(context.Background(), TrainRequest{Seed: &seed})
	require.NoError(t, err)
	assert.Equal(t, a.QTable, b.QTable)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestTrainRejectsBadOverrides(t *testing.T) {
	l, _ := newTestLobby(t)
	bad := 1.5
	_, err := l.Train(context.Background(), TrainRequest{Alpha: &bad})
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)

	tooMany := 60000
	_, err = l.Train(context.Background(), TrainRequest{Episodes: &tooMany})
	require.ErrorAs(t, err, &cfgErr)

	kind := "fancy"
	_, err = l.Train(context.Background(), TrainRequest{Rewards: &kind})
	require.ErrorAs(t, err, &cfgErr)
}

func TestRestoreLoadsLatestRun(t *testing.T) {
	l, store := newTestLobby(t)
	run, err := l.Train(context.Background(), TrainRequest{})
	require.NoError(t, err)

	fresh := New(testConfig(), store, nil)
	require.NoError(t, fresh.Restore(context.Background()))
	p, runID, err := fresh.Policy()
	require.NoError(t, err)
	assert.Equal(t, run.ID, runID)
	assert.Equal(t, run.Policy, p)

	empty := New(testConfig(), nil, nil)
	require.NoError(t, empty.Restore(context.Background()))
	_, _, err = empty.Policy()
	assert.ErrorIs(t, err, ErrNoPolicy)
}

func TestPlay(t *testing.T) {
	l, _ := newTestLobby(t)

	_, err := l.Play(PlayRequest{Hands: 10})
	require.ErrorIs(t, err, ErrNoPolicy)

	res, err := l.Play(PlayRequest{Hands: 10, Decider: "threshold"})
	require.NoError(t, err)
	assert.Equal(t, "threshold-16", res.Summary.Decider)
	assert.Equal(t, 10, res.Summary.Hands)
	assert.Len(t, res.Outcomes, 10)
	assert.Equal(t, res.Summary.PlayerWins+res.Summary.DealerWins, 10)

	again, err := l.Play(PlayRequest{Hands: 10, Decider: "threshold"})
	require.NoError(t, err)
	assert.Equal(t, res.Outcomes, again.Outcomes, "fixed game seed replays the same hands")

	big, err := l.Play(PlayRequest{Hands: 500, Decider: "threshold", Seed: 3})
	require.NoError(t, err)
	assert.Empty(t, big.Outcomes)

	_, err = l.Play(PlayRequest{Hands: 0})
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	_, err = l.Play(PlayRequest{Hands: 5, Decider: "card-counter"})
	require.ErrorIs(t, err, ErrUnknownDecider)
}

func TestOpenTableRecordsLiveHands(t *testing.T) {
	l, _ := newTestLobby(t)
	frames := make(chan table.Message, 8)
	tb, err := l.OpenTable(func(data []byte) {
		var msg table.Message
		if json.Unmarshal(data, &msg) == nil {
			frames <- msg
		}
	})
	require.NoError(t, err)
	assert.Equal(t, 1, l.OpenTables())

	require.NoError(t, tb.SubmitEvent(table.Event{Type: table.EventDeal}))
	first := <-frames
	require.Equal(t, table.MessageState, first.Type)
	if first.State.PlayerTotal < 21 {
		require.NoError(t, tb.SubmitEvent(table.Event{Type: table.EventStand}))
	}
	select {
	case msg := <-frames:
		assert.Equal(t, table.MessageResult, msg.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("no result frame")
	}
	assert.Equal(t, 1, l.LiveSummary().Hands)

	l.CloseTable(tb.ID)
	assert.Equal(t, 0, l.OpenTables())
	assert.True(t, tb.IsClosed())
}

func TestSweepIdle(t *testing.T) {
	l, _ := newTestLobby(t)
	_, err := l.OpenTable(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, l.SweepIdle(time.Hour))
	assert.Equal(t, 1, l.SweepIdle(0))
	assert.Equal(t, 0, l.OpenTables())
}

func TestHTTPRoutes(t *testing.T) {
	l, _ := newTestLobby(t)
	authService, err := auth.NewService("", "letmein")
	require.NoError(t, err)
	router := chi.NewRouter()
	NewHTTPHandler(l).RegisterRoutes(router, auth.RequireAdmin(authService))

	do := func(method, path, body, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusNotFound, do(http.MethodGet, "/api/policy", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(http.MethodPost, "/api/train", `{}`, "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(http.MethodPost, "/api/train", `{}`, "wrong").Code)
	assert.Equal(t, http.StatusBadRequest, do(http.MethodPost, "/api/train", `{"alpha":2}`, "letmein").Code)
	assert.Equal(t, http.StatusBadRequest, do(http.MethodPost, "/api/train", `{"bogus":1}`, "letmein").Code)

	rec := do(http.MethodPost, "/api/train", `{"episodes":1000}`, "letmein")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var run ledger.Run
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&run))
	assert.Equal(t, 1000, run.Config.Episodes)

	rec = do(http.MethodGet, "/api/policy", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var pol policyResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&pol))
	assert.Equal(t, run.ID, pol.RunID)
	assert.True(t, pol.Policy.Complete())

	rec = do(http.MethodPost, "/api/play", `{"hands":5,"decider":"policy"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var play PlayResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&play))
	assert.Equal(t, 5, play.Summary.Hands)

	assert.Equal(t, http.StatusBadRequest, do(http.MethodPost, "/api/play", `{"hands":5,"decider":"x"}`, "").Code)
	assert.Equal(t, http.StatusOK, do(http.MethodGet, "/api/live", "", "").Code)
}

func TestConfigErrorUnwraps(t *testing.T) {
	inner := errors.New("boom")
	err := &ConfigError{Err: inner}
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "boom", err.Error())
}
