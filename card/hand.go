package card

import "strings"

const Blackjack = 21

// Hand is the ordered list of ranks a seat holds. Only Add mutates it.
type Hand []Rank

func (h *Hand) Add(ranks ...Rank) {
	*h = append(*h, ranks...)
}

// Count 获取牌数
func (h Hand) Count() int {
	return len(h)
}

func (h Hand) Clone() Hand {
	out := make(Hand, len(h))
	copy(out, h)
	return out
}

// Total scores the hand with ace reduction. The hand itself is untouched,
// so calling it repeatedly always gives the same answer.
func (h Hand) Total() int {
	return Total(h...)
}

// Soft reports whether an ace is still counted as 11 in Total.
func (h Hand) Soft() bool {
	sum, aces := rawSum(h)
	for sum > Blackjack && aces > 0 {
		sum -= 10
		aces--
	}
	return aces > 0
}

func (h Hand) Busted() bool {
	return h.Total() > Blackjack
}

func (h Hand) String() string {
	parts := make([]string, 0, len(h))
	for _, r := range h {
		parts = append(parts, r.String())
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Total sums rank values, then while the sum exceeds 21 and an ace is still
// worth 11, counts one such ace as 1 instead.
func Total(ranks ...Rank) int {
	sum, aces := rawSum(ranks)
	for sum > Blackjack && aces > 0 {
		sum -= 10
		aces--
	}
	return sum
}

func rawSum(ranks []Rank) (sum, aces int) {
	for _, r := range ranks {
		sum += r.Value()
		if r.IsAce() {
			aces++
		}
	}
	return sum, aces
}
