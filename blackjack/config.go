package blackjack

import (
	"fmt"

	"blackjack-ql/card"
)

// DefaultThreshold is the highest total at which the fixed-threshold gambler
// and the dealer still take a card.
const DefaultThreshold = 16

type Config struct {
	// Fixed-threshold gambler, used when PlayHand gets no decider.
	HitThreshold int
	// Dealer hits while its total is <= DealerThreshold.
	DealerThreshold int

	// RNG seed (0 => time-based). Ignored when a source is injected.
	Seed int64
}

func DefaultConfig() Config {
	return Config{
		HitThreshold:    DefaultThreshold,
		DealerThreshold: DefaultThreshold,
	}
}

func (c Config) validate() error {
	if c.HitThreshold < 1 || c.HitThreshold > card.Blackjack {
		return fmt.Errorf("HitThreshold must be in [1,21], got %d", c.HitThreshold)
	}
	if c.DealerThreshold < 1 || c.DealerThreshold > card.Blackjack {
		return fmt.Errorf("DealerThreshold must be in [1,21], got %d", c.DealerThreshold)
	}
	return nil
}

// Validate is the exported form used by configuration loaders.
func (c Config) Validate() error {
	return c.validate()
}
