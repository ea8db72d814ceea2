package card

import (
	"fmt"
	"math/rand"
)

// Source hands out ranks one at a time. Peek shows the next rank without
// consuming it.
type Source interface {
	Draw() Rank
	Peek() Rank
}

// RandomSource draws with replacement from the weighted composition of a
// 52-card deck, so every draw is independent of the ones before it. The only
// state is the pending card exposed by Peek.
type RandomSource struct {
	rng    *rand.Rand
	onDeck Rank
}

func NewSource(rng *rand.Rand) *RandomSource {
	s := &RandomSource{rng: rng}
	s.onDeck = s.sample()
	return s
}

func (s *RandomSource) Draw() Rank {
	r := s.onDeck
	s.onDeck = s.sample()
	return r
}

func (s *RandomSource) Peek() Rank {
	return s.onDeck
}

func (s *RandomSource) sample() Rank {
	n := s.rng.Intn(DeckSize)
	for _, r := range Ranks {
		n -= weights[r]
		if n < 0 {
			return r
		}
	}
	// unreachable while weights sum to DeckSize
	return Face
}

// ScriptedSource replays a fixed list of ranks in order.
// Drawing past the end panics.
type ScriptedSource struct {
	ranks []Rank
	next  int
}

func NewScriptedSource(ranks ...Rank) *ScriptedSource {
	cp := make([]Rank, len(ranks))
	copy(cp, ranks)
	return &ScriptedSource{ranks: cp}
}

func (s *ScriptedSource) Draw() Rank {
	r := s.Peek()
	s.next++
	return r
}

func (s *ScriptedSource) Peek() Rank {
	if s.next >= len(s.ranks) {
		panic(fmt.Sprintf("scripted source exhausted after %d cards", len(s.ranks)))
	}
	return s.ranks[s.next]
}

// Remaining 剩余牌数
func (s *ScriptedSource) Remaining() int {
	return len(s.ranks) - s.next
}
