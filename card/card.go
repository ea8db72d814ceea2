package card

import (
	"fmt"
	"strings"
)

// Rank is the blackjack value of a card.
//
// Values run 2..11. Face (10) stands for every ten-valued card,
// Ace (11) may later be counted as 1 by Total.
type Rank int

func (r Rank) String() string {
	switch r {
	case Face:
		return "T"
	case Ace:
		return "A"
	}
	if r.Valid() {
		return fmt.Sprintf("%d", int(r))
	}
	return "Invalid"
}

// Value returns the nominal points of the rank.
func (r Rank) Value() int {
	return int(r)
}

func (r Rank) Valid() bool {
	return r >= Two && r <= Ace
}

func (r Rank) IsAce() bool {
	return r == Ace
}

// MarshalText renders the rank the same way ParseRank reads it.
func (r Rank) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid rank: %d", int(r))
	}
	return []byte(r.String()), nil
}

func (r *Rank) UnmarshalText(b []byte) error {
	v, err := ParseRank(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// ParseRank converts "2".."9", "T"/"10"/"J"/"Q"/"K" and "A" (or "11") into a Rank.
func ParseRank(s string) (Rank, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "2":
		return Two, nil
	case "3":
		return Three, nil
	case "4":
		return Four, nil
	case "5":
		return Five, nil
	case "6":
		return Six, nil
	case "7":
		return Seven, nil
	case "8":
		return Eight, nil
	case "9":
		return Nine, nil
	case "T", "10", "J", "Q", "K":
		return Face, nil
	case "A", "11":
		return Ace, nil
	default:
		return RankInvalid, fmt.Errorf("invalid rank: %s", s)
	}
}

// ParseRanks parses a list of rank strings, stopping at the first bad one.
func ParseRanks(ss []string) ([]Rank, error) {
	out := make([]Rank, 0, len(ss))
	for i, s := range ss {
		r, err := ParseRank(s)
		if err != nil {
			return nil, fmt.Errorf("card %d: %w", i, err)
		}
		out = append(out, r)
	}
	return out, nil
}
