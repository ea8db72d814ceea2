package qlearn

import (
	"fmt"

	"blackjack-ql/card"
)

// RewardModel scores a learner transition. Implementations are built once
// and never change afterwards.
type RewardModel interface {
	Reward(tr Transition) float64
	// NeedsDealer reports whether the dealer must finish before the learner
	// acts, so that Transition.Dealer is known.
	NeedsDealer() bool
	Name() string
}

type RewardKind string

const (
	RewardsPlain  RewardKind = "plain"
	RewardsDealer RewardKind = "dealer"
)

func (k RewardKind) valid() bool {
	return k == RewardsPlain || k == RewardsDealer
}

func NewRewardModel(kind RewardKind) (RewardModel, error) {
	switch kind {
	case RewardsPlain, "":
		return NewPlainRewards(), nil
	case RewardsDealer:
		return NewDealerRewards(), nil
	default:
		return nil, fmt.Errorf("unknown reward model %q", kind)
	}
}

type rewardKey struct {
	current int
	action  Action
	next    int
	dealer  int
}

// rewardTable is an exact-match lookup; a miss panics.
type rewardTable map[rewardKey]float64

func (t rewardTable) lookup(name string, k rewardKey, tr Transition) float64 {
	v, ok := t[k]
	if !ok {
		panic(&LookupError{Table: name + " reward", Key: tr.String()})
	}
	return v
}

// hitReward is the reward for landing on next after a hit.
func hitReward(next int) float64 {
	switch {
	case next > card.Blackjack:
		return LossReward
	case next == card.Blackjack:
		return WinReward
	default:
		return float64(next)
	}
}

// PlainRewards scores a hand total on its own: standing pays the total,
// reaching 21 pays WinReward and busting costs LossReward.
type PlainRewards struct {
	table rewardTable
}

func NewPlainRewards() *PlainRewards {
	t := make(rewardTable, MaxState*(MaxState+12))
	for i := MinState; i <= MaxState; i++ {
		stand := float64(i)
		if i == card.Blackjack {
			stand = WinReward
		}
		t[rewardKey{current: i, action: Stand, next: i}] = stand

		// a forward step for every drawable value
		for j := 1; j <= card.Ace.Value(); j++ {
			t[rewardKey{current: i, action: Hit, next: i + j}] = hitReward(i + j)
		}
		// an ace re-valued as 1 can leave the total unchanged
		t[rewardKey{current: i, action: Hit, next: i}] = hitReward(i)
		// or drop it below where it started
		for k := 2; k < i; k++ {
			t[rewardKey{current: i, action: Hit, next: k}] = hitReward(k)
		}
	}
	return &PlainRewards{table: t}
}

func (r *PlainRewards) Reward(tr Transition) float64 {
	return r.table.lookup("plain", rewardKey{current: tr.Current, action: tr.Action, next: tr.Next}, tr)
}

func (*PlainRewards) NeedsDealer() bool { return false }
func (*PlainRewards) Name() string      { return string(RewardsPlain) }

// Len is the number of enumerated transitions.
func (r *PlainRewards) Len() int { return len(r.table) }

// DealerRewards scores a transition against the dealer's final total:
// beating the dealer, or any non-bust hand against a busted dealer, pays
// WinReward.
type DealerRewards struct {
	table rewardTable
}

func NewDealerRewards() *DealerRewards {
	t := make(rewardTable, DealerBust*MaxState*(MaxState+11))
	for d := 1; d <= DealerBust; d++ {
		for j := MinState; j <= MaxState; j++ {
			stand := LossReward
			if d == DealerBust || j > d {
				stand = WinReward
			}
			t[rewardKey{current: j, action: Stand, next: j, dealer: d}] = stand

			for k := 1 - j; k <= card.Ace.Value(); k++ {
				next := j + k
				var v float64
				switch {
				case next > card.Blackjack:
					v = LossReward
				case next > d || d == DealerBust:
					v = WinReward
				default:
					v = float64(next)
				}
				t[rewardKey{current: j, action: Hit, next: next, dealer: d}] = v
			}
		}
	}
	return &DealerRewards{table: t}
}

func (r *DealerRewards) Reward(tr Transition) float64 {
	return r.table.lookup("dealer", rewardKey{current: tr.Current, action: tr.Action, next: tr.Next, dealer: tr.Dealer}, tr)
}

func (*DealerRewards) NeedsDealer() bool { return true }
func (*DealerRewards) Name() string      { return string(RewardsDealer) }

func (r *DealerRewards) Len() int { return len(r.table) }
