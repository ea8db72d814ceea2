package qlearn

import (
	"fmt"
	"math"

	"blackjack-ql/blackjack"
	"blackjack-ql/card"
)

// SourceMode selects whether episodes share one draw source.
type SourceMode string

const (
	// SourceShared keeps one source, and its pending card, for the whole run.
	SourceShared SourceMode = "shared"
	// SourcePerEpisode builds a fresh source at the start of every episode.
	SourcePerEpisode SourceMode = "per_episode"
)

type Config struct {
	Alpha   float64 `yaml:"alpha" json:"alpha"`
	Lambda  float64 `yaml:"lambda" json:"lambda"`
	Epsilon float64 `yaml:"epsilon" json:"epsilon"`

	Episodes int `yaml:"episodes" json:"episodes"`

	// RNG seed (0 => time-based)
	Seed int64 `yaml:"seed" json:"seed"`

	Rewards         RewardKind `yaml:"rewards" json:"rewards"`
	SourceMode      SourceMode `yaml:"source_mode" json:"source_mode"`
	DealerThreshold int        `yaml:"dealer_threshold" json:"dealer_threshold"`

	// Record a Progress sample every CheckpointEvery episodes (0 => only at the end).
	CheckpointEvery int `yaml:"checkpoint_every" json:"checkpoint_every"`
}

func DefaultConfig() Config {
	return Config{
		Alpha:           0.1,
		Lambda:          0.1,
		Epsilon:         0.1,
		Episodes:        10000,
		Rewards:         RewardsPlain,
		SourceMode:      SourceShared,
		DealerThreshold: blackjack.DefaultThreshold,
		CheckpointEvery: 500,
	}
}

// normalized fills the string and threshold fields left empty.
func (c Config) normalized() Config {
	if c.Rewards == "" {
		c.Rewards = RewardsPlain
	}
	if c.SourceMode == "" {
		c.SourceMode = SourceShared
	}
	if c.DealerThreshold == 0 {
		c.DealerThreshold = blackjack.DefaultThreshold
	}
	return c
}

func unit(name string, v float64) error {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return fmt.Errorf("%s must be in [0,1], got %v", name, v)
	}
	return nil
}

func (c Config) validate() error {
	if err := unit("alpha", c.Alpha); err != nil {
		return err
	}
	if err := unit("lambda", c.Lambda); err != nil {
		return err
	}
	if err := unit("epsilon", c.Epsilon); err != nil {
		return err
	}
	if c.Episodes <= 0 {
		return fmt.Errorf("episodes must be > 0, got %d", c.Episodes)
	}
	if !c.Rewards.valid() {
		return fmt.Errorf("unknown reward model %q", c.Rewards)
	}
	if c.SourceMode != SourceShared && c.SourceMode != SourcePerEpisode {
		return fmt.Errorf("unknown source mode %q", c.SourceMode)
	}
	if c.DealerThreshold < 1 || c.DealerThreshold > card.Blackjack {
		return fmt.Errorf("dealer_threshold must be in [1,21], got %d", c.DealerThreshold)
	}
	if c.CheckpointEvery < 0 {
		return fmt.Errorf("checkpoint_every must be >= 0")
	}
	return nil
}

// Validate checks c after filling empty fields with defaults.
func (c Config) Validate() error {
	return c.normalized().validate()
}
