package lobby

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"blackjack-ql/apps/server/internal/ledger"
	"blackjack-ql/apps/server/internal/table"
	"blackjack-ql/blackjack"
	"blackjack-ql/qlearn"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

const (
	defaultMaxEpisodes = 1_000_000
	defaultMaxPlay     = 100_000
	// Outcomes are listed per hand only for small play requests.
	maxDetailedHands = 20
)

var (
	ErrNoPolicy       = errors.New("no trained policy")
	ErrTrainBusy      = errors.New("training already running")
	ErrUnknownDecider = errors.New("unknown decider")
)

// Config holds the defaults every request starts from.
type Config struct {
	Trainer     qlearn.Config
	Game        blackjack.Config
	EvalHands   int
	MaxEpisodes int
	MaxPlay     int
}

// Lobby owns the current policy and the open tables.
type Lobby struct {
	cfg    Config
	ledger ledger.Service
	logger *log.Logger

	// Table actors call Advise and recordLiveHand while holding their own
	// lock, so neither may share tablesMu.
	policyMu sync.RWMutex
	policy   *qlearn.Policy
	runID    string

	liveMu sync.Mutex
	live   blackjack.Summary

	tablesMu sync.Mutex
	tables   map[string]*table.Table

	trainMu sync.Mutex
	rngMu   sync.Mutex
	rng     *rand.Rand
}

// New creates a lobby. A nil ledger keeps runs in memory.
func New(cfg Config, ledgerService ledger.Service, logger *log.Logger) *Lobby {
	if cfg.MaxEpisodes <= 0 {
		cfg.MaxEpisodes = defaultMaxEpisodes
	}
	if cfg.MaxPlay <= 0 {
		cfg.MaxPlay = defaultMaxPlay
	}
	if cfg.EvalHands <= 0 {
		cfg.EvalHands = 10000
	}
	if cfg.Game.HitThreshold == 0 {
		cfg.Game.HitThreshold = blackjack.DefaultThreshold
	}
	if cfg.Game.DealerThreshold == 0 {
		cfg.Game.DealerThreshold = blackjack.DefaultThreshold
	}
	if ledgerService == nil {
		ledgerService, _, _ = ledger.NewService(ledger.Options{Mode: "memory"})
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Lobby{
		cfg:    cfg,
		ledger: ledgerService,
		logger: logger.WithPrefix("lobby"),
		tables: make(map[string]*table.Table),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Restore loads the newest stored run's policy, if any.
func (l *Lobby) Restore(ctx context.Context) error {
	run, err := l.ledger.LatestRun(ctx)
	if errors.Is(err, ledger.ErrNotFound) {
		l.logger.Info("no stored runs, starting without a policy")
		return nil
	}
	if err != nil {
		return err
	}
	l.setPolicy(run.Policy, run.ID)
	l.logger.Info("restored policy", "run", run.ID, "win_rate", run.WinRate())
	return nil
}

// TrainRequest overrides trainer settings; nil fields keep the defaults.
type TrainRequest struct {
	Alpha           *float64 `json:"alpha,omitempty"`
	Lambda          *float64 `json:"lambda,omitempty"`
	Epsilon         *float64 `json:"epsilon,omitempty"`
	Episodes        *int     `json:"episodes,omitempty"`
	Seed            *int64   `json:"seed,omitempty"`
	Rewards         *string  `json:"rewards,omitempty"`
	SourceMode      *string  `json:"source_mode,omitempty"`
	DealerThreshold *int     `json:"dealer_threshold,omitempty"`
}

func (r TrainRequest) apply(cfg qlearn.Config) qlearn.Config {
	if r.Alpha != nil {
		cfg.Alpha = *r.Alpha
	}
	if r.Lambda != nil {
		cfg.Lambda = *r.Lambda
	}
	if r.Epsilon != nil {
		cfg.Epsilon = *r.Epsilon
	}
	if r.Episodes != nil {
		cfg.Episodes = *r.Episodes
	}
	if r.Seed != nil {
		cfg.Seed = *r.Seed
	}
	if r.Rewards != nil {
		cfg.Rewards = qlearn.RewardKind(*r.Rewards)
	}
	if r.SourceMode != nil {
		cfg.SourceMode = qlearn.SourceMode(*r.SourceMode)
	}
	if r.DealerThreshold != nil {
		cfg.DealerThreshold = *r.DealerThreshold
	}
	return cfg
}

// ConfigError marks a request the caller can fix.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string { return e.Err.Error() }
func (e *ConfigError) Unwrap() error { return e.Err }

// Train runs one training job, evaluates it, stores it and makes its policy
// current. Only one job runs at a time.
func (l *Lobby) Train(ctx context.Context, req TrainRequest) (*ledger.Run, error) {
	cfg := req.apply(l.cfg.Trainer)
	if err := cfg.Validate(); err != nil {
		return nil, &ConfigError{Err: err}
	}
	if cfg.Episodes > l.cfg.MaxEpisodes {
		return nil, &ConfigError{Err: fmt.Errorf("episodes must be <= %d, got %d", l.cfg.MaxEpisodes, cfg.Episodes)}
	}
	if !l.trainMu.TryLock() {
		return nil, ErrTrainBusy
	}
	defer l.trainMu.Unlock()

	runID := uuid.NewString()
	trainer, err := qlearn.NewTrainer(cfg, qlearn.WithLogger(l.logger.WithPrefix("run "+runID[:8])))
	if err != nil {
		return nil, &ConfigError{Err: err}
	}
	q := trainer.Train()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	policy := qlearn.Extract(q, trainer.Rand())

	evaluation, err := l.evaluate(policy, trainer.Config().DealerThreshold)
	if err != nil {
		return nil, err
	}
	run := &ledger.Run{
		ID:         runID,
		Config:     trainer.Config(),
		QTable:     q.Rows(),
		Policy:     policy,
		Evaluation: evaluation,
		Progress:   trainer.History(),
	}
	if err := l.ledger.SaveRun(ctx, run); err != nil {
		return nil, fmt.Errorf("save run: %w", err)
	}
	l.setPolicy(policy, run.ID)
	l.logger.Info("policy updated", "run", run.ID, "episodes", cfg.Episodes, "win_rate", run.WinRate())
	return run, nil
}

// evaluate plays the new policy and the threshold gambler on identically
// seeded games so both see the same cards.
func (l *Lobby) evaluate(policy qlearn.Policy, dealerThreshold int) ([]blackjack.Summary, error) {
	gameCfg := l.cfg.Game
	gameCfg.DealerThreshold = dealerThreshold
	if gameCfg.Seed == 0 {
		gameCfg.Seed = l.seed()
	}
	deciders := []blackjack.Decider{qlearn.PolicyDecider{Policy: policy}, nil}
	out := make([]blackjack.Summary, 0, len(deciders))
	for _, d := range deciders {
		g, err := blackjack.NewGame(gameCfg)
		if err != nil {
			return nil, err
		}
		out = append(out, blackjack.Evaluate(g, d, l.cfg.EvalHands))
	}
	return out, nil
}

func (l *Lobby) seed() int64 {
	l.rngMu.Lock()
	defer l.rngMu.Unlock()
	return l.rng.Int63() + 1
}

func (l *Lobby) setPolicy(p qlearn.Policy, runID string) {
	l.policyMu.Lock()
	defer l.policyMu.Unlock()
	l.policy = &p
	l.runID = runID
}

// Policy returns the current policy and the run it came from.
func (l *Lobby) Policy() (qlearn.Policy, string, error) {
	l.policyMu.RLock()
	defer l.policyMu.RUnlock()
	if l.policy == nil {
		return qlearn.Policy{}, "", ErrNoPolicy
	}
	return *l.policy, l.runID, nil
}

// Advise implements table.Advisor from the current policy.
func (l *Lobby) Advise(total int) (qlearn.Action, bool) {
	p, _, err := l.Policy()
	if err != nil || total < qlearn.MinState || total > qlearn.MaxState {
		return 0, false
	}
	return p.Action(total), true
}

type PlayRequest struct {
	Hands   int    `json:"hands"`
	Decider string `json:"decider"`
	Seed    int64  `json:"seed,omitempty"`
}

type PlayResult struct {
	Summary  blackjack.Summary   `json:"summary"`
	WinRate  float64             `json:"win_rate"`
	Outcomes []blackjack.Outcome `json:"outcomes,omitempty"`
}

// Play simulates hands with the current policy ("policy") or the
// fixed-threshold gambler ("threshold").
func (l *Lobby) Play(req PlayRequest) (PlayResult, error) {
	if req.Hands <= 0 || req.Hands > l.cfg.MaxPlay {
		return PlayResult{}, &ConfigError{Err: fmt.Errorf("hands must be in [1,%d], got %d", l.cfg.MaxPlay, req.Hands)}
	}
	var d blackjack.Decider
	switch req.Decider {
	case "", "policy":
		p, _, err := l.Policy()
		if err != nil {
			return PlayResult{}, err
		}
		d = qlearn.PolicyDecider{Policy: p}
	case "threshold":
	default:
		return PlayResult{}, fmt.Errorf("%w %q", ErrUnknownDecider, req.Decider)
	}

	gameCfg := l.cfg.Game
	if req.Seed != 0 {
		gameCfg.Seed = req.Seed
	} else if gameCfg.Seed == 0 {
		gameCfg.Seed = l.seed()
	}
	g, err := blackjack.NewGame(gameCfg)
	if err != nil {
		return PlayResult{}, err
	}
	if d == nil {
		d = g.Gambler()
	}

	res := PlayResult{Summary: blackjack.Summary{Decider: d.Name()}}
	for i := 0; i < req.Hands; i++ {
		o := g.PlayHand(d)
		res.Summary.Add(o)
		if req.Hands <= maxDetailedHands {
			res.Outcomes = append(res.Outcomes, o)
		}
	}
	res.WinRate = res.Summary.WinRate()
	return res, nil
}

// OpenTable seats a new interactive player. broadcast receives the table's
// JSON frames.
func (l *Lobby) OpenTable(broadcast func(data []byte)) (*table.Table, error) {
	id := uuid.NewString()
	t, err := table.New(id, l.cfg.Game, broadcast,
		table.WithAdvisor(l),
		table.WithLogger(l.logger),
	)
	if err != nil {
		return nil, err
	}
	t.AddHandEndHook(l.recordLiveHand)

	l.tablesMu.Lock()
	l.tables[id] = t
	l.tablesMu.Unlock()
	return t, nil
}

func (l *Lobby) CloseTable(id string) {
	l.tablesMu.Lock()
	t := l.tables[id]
	delete(l.tables, id)
	l.tablesMu.Unlock()
	if t != nil {
		t.Stop()
	}
}

func (l *Lobby) recordLiveHand(info table.HandEndInfo) {
	l.liveMu.Lock()
	defer l.liveMu.Unlock()
	l.live.Add(info.Outcome)
}

// LiveSummary tallies every hand finished at an interactive table.
func (l *Lobby) LiveSummary() blackjack.Summary {
	l.liveMu.Lock()
	defer l.liveMu.Unlock()
	s := l.live
	s.Decider = "live"
	return s
}

func (l *Lobby) OpenTables() int {
	l.tablesMu.Lock()
	defer l.tablesMu.Unlock()
	return len(l.tables)
}

// SweepIdle stops tables that have not seen an event for ttl.
func (l *Lobby) SweepIdle(ttl time.Duration) int {
	l.tablesMu.Lock()
	var idle []*table.Table
	for id, t := range l.tables {
		if t.IsIdleFor(ttl) {
			idle = append(idle, t)
			delete(l.tables, id)
		}
	}
	l.tablesMu.Unlock()
	for _, t := range idle {
		t.Stop()
	}
	if len(idle) > 0 {
		l.logger.Info("swept idle tables", "count", len(idle))
	}
	return len(idle)
}

// Close stops every open table.
func (l *Lobby) Close() {
	l.tablesMu.Lock()
	tables := l.tables
	l.tables = make(map[string]*table.Table)
	l.tablesMu.Unlock()
	for _, t := range tables {
		t.Stop()
	}
}
