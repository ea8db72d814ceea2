package qlearn

import (
	"math/rand"
	"time"

	"blackjack-ql/blackjack"
	"blackjack-ql/card"

	"github.com/charmbracelet/log"
)

// Progress is a training sample taken over the episodes since the previous one.
type Progress struct {
	Episode    int     `json:"episode"`
	WinRate    float64 `json:"win_rate"`
	BustRate   float64 `json:"bust_rate"`
	MeanReward float64 `json:"mean_reward"`
	// HitStates counts states whose hit value is currently above stand.
	HitStates int `json:"hit_states"`
}

// EpisodeResult describes one simulated hand.
type EpisodeResult struct {
	Outcome blackjack.Outcome
	Updates int
	Reward  float64
}

type window struct {
	episodes int
	wins     int
	busts    int
	reward   float64
}

// Trainer runs Q-learning episodes against a fixed-threshold dealer.
// All randomness comes from one generator.
type Trainer struct {
	cfg     Config
	rng     *rand.Rand
	rewards RewardModel
	q       *QTable
	dealer  blackjack.Decider

	src      card.Source
	fixedSrc bool

	logger     *log.Logger
	onProgress func(Progress)

	episodes int
	win      window
	history  []Progress
}

type Option func(*Trainer)

func WithRand(rng *rand.Rand) Option {
	return func(t *Trainer) { t.rng = rng }
}

// WithSource pins every episode to src, whatever the configured SourceMode.
func WithSource(src card.Source) Option {
	return func(t *Trainer) {
		t.src = src
		t.fixedSrc = true
	}
}

func WithLogger(l *log.Logger) Option {
	return func(t *Trainer) { t.logger = l }
}

func WithProgress(fn func(Progress)) Option {
	return func(t *Trainer) { t.onProgress = fn }
}

// WithTable continues training on an existing table.
func WithTable(q *QTable) Option {
	return func(t *Trainer) { t.q = q }
}

func NewTrainer(cfg Config, opts ...Option) (*Trainer, error) {
	cfg = cfg.normalized()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	rewards, err := NewRewardModel(cfg.Rewards)
	if err != nil {
		return nil, err
	}
	t := &Trainer{
		cfg:     cfg,
		rewards: rewards,
		dealer:  blackjack.ThresholdDecider{Threshold: cfg.DealerThreshold},
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.rng == nil {
		seed := cfg.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		t.rng = rand.New(rand.NewSource(seed))
	}
	if t.q == nil {
		t.q = NewQTable()
	}
	if t.logger == nil {
		t.logger = log.Default()
	}
	if t.src == nil && cfg.SourceMode == SourceShared {
		t.src = card.NewSource(t.rng)
	}
	return t, nil
}

func (t *Trainer) Config() Config       { return t.cfg }
func (t *Trainer) Table() *QTable       { return t.q }
func (t *Trainer) Rewards() RewardModel { return t.rewards }
func (t *Trainer) Rand() *rand.Rand     { return t.rng }
func (t *Trainer) Episodes() int        { return t.episodes }

// History returns the progress samples recorded so far.
func (t *Trainer) History() []Progress {
	out := make([]Progress, len(t.history))
	copy(out, t.history)
	return out
}

// Train runs the configured number of episodes and returns the table.
func (t *Trainer) Train() *QTable {
	start := time.Now()
	t.logger.Info("training started",
		"episodes", t.cfg.Episodes,
		"rewards", t.rewards.Name(),
		"source", t.sourceName(),
		"alpha", t.cfg.Alpha, "lambda", t.cfg.Lambda, "epsilon", t.cfg.Epsilon)

	for i := 0; i < t.cfg.Episodes; i++ {
		t.RunEpisode()
	}
	if t.win.episodes > 0 {
		t.checkpoint()
	}

	t.logger.Info("training finished", "episodes", t.episodes, "elapsed", time.Since(start).Round(time.Millisecond))
	return t.q
}

func (t *Trainer) sourceName() string {
	if t.fixedSrc {
		return "injected"
	}
	return string(t.cfg.SourceMode)
}

func (t *Trainer) episodeSource() card.Source {
	if t.src != nil {
		return t.src
	}
	return card.NewSource(t.rng)
}

// RunEpisode plays and learns from one hand.
func (t *Trainer) RunEpisode() EpisodeResult {
	src := t.episodeSource()
	player := blackjack.NewSeat(src, nil)
	dealer := blackjack.NewSeat(src, t.dealer)

	dealerState := 0
	if t.rewards.NeedsDealer() {
		dealer.PlayOut(src)
		dealerState = min(dealer.Total(), DealerBust)
	}

	var res EpisodeResult
	for player.Total() <= MaxState && chooseAction(t.q, player.Total(), t.cfg.Epsilon, t.rng) == Hit {
		cur := player.Total()
		player.Hit(src)
		res.Reward += t.update(Transition{Current: cur, Action: Hit, Next: player.Total(), Dealer: dealerState})
		res.Updates++
	}

	if cur := player.Total(); cur <= MaxState {
		// standing leaves the state where it is
		res.Reward += t.update(Transition{Current: cur, Action: Stand, Next: cur, Dealer: dealerState})
		res.Updates++
	}

	if !t.rewards.NeedsDealer() {
		dealer.PlayOut(src)
	}

	ps, ds := player.Total(), dealer.Total()
	res.Outcome = blackjack.Outcome{
		Winner:      blackjack.Resolve(ps, ds),
		PlayerScore: ps,
		DealerScore: ds,
		PlayerCards: player.Hand,
		DealerCards: dealer.Hand,
	}
	t.record(res)
	return res
}

// update applies new = (1-alpha)*old + alpha*(reward + lambda*best(next)).
func (t *Trainer) update(tr Transition) float64 {
	old := t.q.Get(tr.Current, tr.Action)
	reward := t.rewards.Reward(tr)
	_, cont := t.q.Best(tr.Next, t.rng)
	t.q.Set(tr.Current, tr.Action, (1-t.cfg.Alpha)*old+t.cfg.Alpha*(reward+t.cfg.Lambda*cont))
	return reward
}

func (t *Trainer) record(res EpisodeResult) {
	t.episodes++
	t.win.episodes++
	t.win.reward += res.Reward
	if res.Outcome.Winner == blackjack.WinnerPlayer {
		t.win.wins++
	}
	if res.Outcome.PlayerBusted() {
		t.win.busts++
	}
	if every := t.cfg.CheckpointEvery; every > 0 && t.episodes%every == 0 {
		t.checkpoint()
	}
}

func (t *Trainer) checkpoint() {
	n := float64(t.win.episodes)
	p := Progress{
		Episode:    t.episodes,
		WinRate:    float64(t.win.wins) / n,
		BustRate:   float64(t.win.busts) / n,
		MeanReward: t.win.reward / n,
	}
	for _, pref := range HitPreference(t.q) {
		if pref > 0 {
			p.HitStates++
		}
	}
	t.history = append(t.history, p)
	t.win = window{}

	t.logger.Debug("checkpoint", "episode", p.Episode, "win_rate", p.WinRate, "bust_rate", p.BustRate, "hit_states", p.HitStates)
	if t.onProgress != nil {
		t.onProgress(p)
	}
}
