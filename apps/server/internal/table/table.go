package table

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"blackjack-ql/blackjack"
	"blackjack-ql/card"
	"blackjack-ql/qlearn"

	"github.com/charmbracelet/log"
)

// Table is one player's blackjack seat, driven as an actor.
type Table struct {
	ID string

	mu       sync.RWMutex
	game     *blackjack.Game
	round    *blackjack.Round
	hands    int
	closed   bool
	stopOnce sync.Once

	// Event channel for actor pattern
	events chan Event
	done   chan struct{}

	// Server sequence for message ordering
	serverSeq uint64

	actionTimeout  time.Duration
	actionDeadline time.Time
	lastActive     time.Time

	broadcast    func(data []byte)
	advisor      Advisor
	logger       *log.Logger
	handEndHooks []HandEndHook
}

// Advisor suggests an action for a player total. ok is false when no policy
// is loaded.
type Advisor interface {
	Advise(total int) (a qlearn.Action, ok bool)
}

type EventType int

const (
	EventDeal EventType = iota
	EventHit
	EventStand
	EventTimeout
	EventClose
)

func (t EventType) String() string {
	switch t {
	case EventDeal:
		return "deal"
	case EventHit:
		return "hit"
	case EventStand:
		return "stand"
	case EventTimeout:
		return "timeout"
	case EventClose:
		return "close"
	default:
		return fmt.Sprintf("event(%d)", int(t))
	}
}

// ParseEventType maps a client message type to the player events it may send.
func ParseEventType(s string) (EventType, error) {
	switch s {
	case "deal":
		return EventDeal, nil
	case "hit":
		return EventHit, nil
	case "stand":
		return EventStand, nil
	default:
		return 0, fmt.Errorf("unknown message type %q", s)
	}
}

// Event represents a message to the table actor
type Event struct {
	Type      EventType
	Timestamp time.Time
	Response  chan error
}

// HandEndInfo is emitted when a hand resolves.
type HandEndInfo struct {
	TableID  string
	Hand     int
	TimedOut bool
	Outcome  blackjack.Outcome
}

type HandEndHook func(info HandEndInfo)

var (
	ErrTableClosed = errors.New("table closed")
	ErrHandActive  = errors.New("hand in progress")
)

const defaultActionTimeout = 30 * time.Second

type Option func(*Table)

// WithActionTimeout sets how long a dealt hand waits for the player before
// standing on their behalf. Zero disables the timeout.
func WithActionTimeout(d time.Duration) Option {
	return func(t *Table) { t.actionTimeout = d }
}

func WithAdvisor(a Advisor) Option {
	return func(t *Table) { t.advisor = a }
}

func WithLogger(l *log.Logger) Option {
	return func(t *Table) { t.logger = l }
}

// WithGame replaces the table's game, mainly to script the cards in tests.
func WithGame(g *blackjack.Game) Option {
	return func(t *Table) { t.game = g }
}

// New creates a table and starts its actor goroutine.
func New(id string, cfg blackjack.Config, broadcastFn func(data []byte), opts ...Option) (*Table, error) {
	t := &Table{
		ID:            id,
		events:        make(chan Event, 64),
		done:          make(chan struct{}),
		broadcast:     broadcastFn,
		actionTimeout: defaultActionTimeout,
		lastActive:    time.Now(),
		logger:        log.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.game == nil {
		game, err := blackjack.NewGame(cfg)
		if err != nil {
			return nil, err
		}
		t.game = game
	}
	t.logger = t.logger.WithPrefix("table " + id)

	go t.run()
	t.logger.Debug("created", "hit_threshold", t.game.Config().HitThreshold)
	return t, nil
}

// run is the main actor loop
func (t *Table) run() {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case event := <-t.events:
			err := t.handleEvent(event)
			if event.Response != nil {
				event.Response <- err
			}
		case now := <-ticker.C:
			t.tick(now)
		case <-t.done:
			t.logger.Debug("actor stopped")
			return
		}
	}
}

func (t *Table) handleEvent(e Event) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed && e.Type != EventClose {
		return ErrTableClosed
	}
	t.lastActive = e.Timestamp

	switch e.Type {
	case EventDeal:
		return t.handleDeal(e.Timestamp)
	case EventHit:
		return t.handleHit(e.Timestamp)
	case EventStand:
		return t.handleStand(false)
	case EventTimeout:
		return t.handleTimeout(e.Timestamp)
	case EventClose:
		t.stopLocked()
		return nil
	default:
		return fmt.Errorf("unknown event type: %d", e.Type)
	}
}

func (t *Table) handleDeal(now time.Time) error {
	if t.round != nil && !t.round.Finished() {
		return ErrHandActive
	}
	t.round = t.game.NewRound()
	if err := t.round.Deal(); err != nil {
		return err
	}
	t.hands++
	t.setActionDeadlineLocked(now)
	t.sendStateLocked()
	if t.round.PlayerTotal() == card.Blackjack {
		// Nothing to decide on a natural 21.
		return t.handleStand(false)
	}
	return nil
}

func (t *Table) handleHit(now time.Time) error {
	if t.round == nil {
		return blackjack.ErrRoundNotDealt
	}
	if _, err := t.round.PlayerHit(); err != nil {
		return err
	}
	if t.round.PlayerTotal() >= card.Blackjack {
		t.sendStateLocked()
		return t.handleStand(false)
	}
	t.setActionDeadlineLocked(now)
	t.sendStateLocked()
	return nil
}

func (t *Table) handleStand(timedOut bool) error {
	if t.round == nil {
		return blackjack.ErrRoundNotDealt
	}
	out, err := t.round.Finish()
	if err != nil {
		return err
	}
	t.actionDeadline = time.Time{}
	t.logger.Debug("hand resolved", "hand", t.hands, "winner", out.Winner, "player", out.PlayerScore, "dealer", out.DealerScore)
	// Hooks run first so a client that has seen the result sees it counted.
	t.dispatchHandEndHooksLocked(HandEndInfo{TableID: t.ID, Hand: t.hands, TimedOut: timedOut, Outcome: out})
	t.serverSeq++
	t.send(Message{
		Type:     MessageResult,
		Seq:      t.serverSeq,
		Hand:     t.hands,
		TimedOut: timedOut,
		Outcome:  &out,
	})
	return nil
}

func (t *Table) handleTimeout(now time.Time) error {
	if t.actionDeadline.IsZero() || now.Before(t.actionDeadline) {
		return nil
	}
	if t.round == nil || t.round.Finished() {
		t.actionDeadline = time.Time{}
		return nil
	}
	t.logger.Info("action timeout, standing", "hand", t.hands, "total", t.round.PlayerTotal())
	return t.handleStand(true)
}

func (t *Table) tick(now time.Time) {
	t.mu.RLock()
	due := !t.actionDeadline.IsZero() && !now.Before(t.actionDeadline)
	t.mu.RUnlock()
	if !due {
		return
	}
	if err := t.handleEvent(Event{Type: EventTimeout, Timestamp: now}); err != nil && !errors.Is(err, ErrTableClosed) {
		t.logger.Warn("timeout handling failed", "err", err)
	}
}

func (t *Table) setActionDeadlineLocked(now time.Time) {
	if t.actionTimeout <= 0 {
		t.actionDeadline = time.Time{}
		return
	}
	t.actionDeadline = now.Add(t.actionTimeout)
}

func (t *Table) dispatchHandEndHooksLocked(info HandEndInfo) {
	for _, hook := range t.handEndHooks {
		hook(info)
	}
}

// SubmitEvent sends an event to the actor and waits for it to be handled.
func (t *Table) SubmitEvent(e Event) error {
	e.Timestamp = time.Now()
	if e.Response == nil {
		e.Response = make(chan error, 1)
	}

	t.mu.RLock()
	closed := t.closed
	t.mu.RUnlock()
	if closed {
		return ErrTableClosed
	}

	select {
	case t.events <- e:
	case <-t.done:
		return ErrTableClosed
	}

	select {
	case err := <-e.Response:
		return err
	case <-t.done:
		return ErrTableClosed
	}
}

// Stop shuts down the table actor
func (t *Table) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

func (t *Table) stopLocked() {
	t.closed = true
	t.actionDeadline = time.Time{}
	t.stopOnce.Do(func() {
		close(t.done)
	})
}

func (t *Table) IsIdleFor(ttl time.Duration) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return true
	}
	if t.round != nil && !t.round.Finished() {
		return false
	}
	return time.Since(t.lastActive) >= ttl
}

func (t *Table) IsClosed() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.closed
}

// Hands is the number of hands dealt at this table.
func (t *Table) Hands() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.hands
}

// AddHandEndHook registers a callback run on the actor after every hand.
func (t *Table) AddHandEndHook(hook HandEndHook) {
	if hook == nil {
		return
	}
	t.mu.Lock()
	t.handEndHooks = append(t.handEndHooks, hook)
	t.mu.Unlock()
}

func (t *Table) sendStateLocked() {
	state := &State{
		PlayerCards: t.round.PlayerHand(),
		PlayerTotal: t.round.PlayerTotal(),
		Soft:        t.round.PlayerHand().Soft(),
		DealerUp:    t.round.DealerUpCard(),
	}
	if t.advisor != nil && state.PlayerTotal <= card.Blackjack {
		if a, ok := t.advisor.Advise(state.PlayerTotal); ok {
			state.Advice = a.String()
		}
	}
	t.serverSeq++
	t.send(Message{Type: MessageState, Seq: t.serverSeq, Hand: t.hands, State: state})
}

func (t *Table) send(msg Message) {
	if t.broadcast == nil {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		t.logger.Error("marshal message failed", "type", msg.Type, "err", err)
		return
	}
	t.broadcast(data)
}
