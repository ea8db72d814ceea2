// Command blackjackql trains a Q-learning blackjack policy and compares it
// with the fixed-threshold gambler.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"blackjack-ql/blackjack"
	"blackjack-ql/config"
	"blackjack-ql/qlearn"
	"blackjack-ql/report"

	"github.com/charmbracelet/log"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	var (
		configPath = flag.String("config", "", "YAML config file")
		envFile    = flag.String("env", ".env", "dotenv file")
		episodes   = flag.Int("episodes", 0, "training episodes (0 = config value)")
		seed       = flag.Int64("seed", 0, "seed for training and evaluation (0 = config value)")
		hands      = flag.Int("hands", 0, "evaluation hands (0 = config value)")
		rewards    = flag.String("rewards", "", "reward model: plain or dealer")
		chartPath  = flag.String("chart", "", "write an HTML training chart to this path")
		noColor    = flag.Bool("no-color", false, "disable colored output")
		verbose    = flag.Bool("v", false, "log training progress")
	)
	flag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "blackjackql"})
	if *verbose {
		logger.SetLevel(log.DebugLevel)
	}

	if err := config.LoadEnv(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load env: %w", err)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if err := config.ApplyEnv(&cfg); err != nil {
		return err
	}
	if *episodes > 0 {
		cfg.Trainer.Episodes = *episodes
	}
	if *seed != 0 {
		cfg.Trainer.Seed = *seed
		cfg.Game.Seed = *seed
	}
	if *hands > 0 {
		cfg.Evaluate.Hands = *hands
	}
	if *rewards != "" {
		cfg.Trainer.Rewards = qlearn.RewardKind(*rewards)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	trainer, err := qlearn.NewTrainer(cfg.TrainerConfig(), qlearn.WithLogger(logger))
	if err != nil {
		return err
	}
	q := trainer.Train()
	policy := qlearn.Extract(q, trainer.Rand())

	color := !*noColor
	report.PrintPolicy(os.Stdout, q, policy, color)

	summaries := make([]blackjack.Summary, 0, 2)
	for _, d := range []blackjack.Decider{qlearn.PolicyDecider{Policy: policy}, nil} {
		// Same seed for both deciders, so they are scored on the same cards.
		g, err := blackjack.NewGame(cfg.GameConfig())
		if err != nil {
			return err
		}
		summaries = append(summaries, blackjack.Evaluate(g, d, cfg.Evaluate.Hands))
	}
	fmt.Println()
	report.PrintSummaries(os.Stdout, color, summaries...)

	if *chartPath != "" {
		title := fmt.Sprintf("Q-learning (%s rewards, %d episodes)", cfg.Trainer.Rewards, trainer.Episodes())
		if err := report.WriteTrainingChart(*chartPath, title, trainer.History(), q); err != nil {
			return fmt.Errorf("write chart: %w", err)
		}
		logger.Info("chart written", "path", *chartPath)
	}
	return nil
}
