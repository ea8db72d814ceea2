// Package config loads the YAML run configuration and applies .env and
// environment overrides on top of it.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"blackjack-ql/blackjack"
	"blackjack-ql/qlearn"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type File struct {
	Trainer  qlearn.Config `yaml:"trainer"`
	Game     Game          `yaml:"game"`
	Evaluate Evaluate      `yaml:"evaluate"`
	Server   Server        `yaml:"server"`
	Store    Store         `yaml:"store"`
}

type Game struct {
	HitThreshold    int   `yaml:"hit_threshold"`
	DealerThreshold int   `yaml:"dealer_threshold"`
	Seed            int64 `yaml:"seed"`
}

type Evaluate struct {
	Hands int `yaml:"hands"`
}

type Server struct {
	Addr           string   `yaml:"addr"`
	AdminTokenHash string   `yaml:"admin_token_hash"`
	AdminToken     string   `yaml:"admin_token"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type Store struct {
	// memory | sqlite | postgres
	Mode       string `yaml:"mode"`
	SQLitePath string `yaml:"sqlite_path"`
	DSN        string `yaml:"dsn"`
}

func Default() File {
	return File{
		Trainer: qlearn.DefaultConfig(),
		Game: Game{
			HitThreshold:    blackjack.DefaultThreshold,
			DealerThreshold: blackjack.DefaultThreshold,
		},
		Evaluate: Evaluate{Hands: 10000},
		Server: Server{
			Addr:           ":8080",
			AllowedOrigins: []string{"*"},
		},
		Store: Store{
			Mode:       "memory",
			SQLitePath: "data/blackjack.db",
		},
	}
}

// Load reads path over the defaults. An empty path or a missing file yields
// the defaults unchanged.
func Load(path string) (File, error) {
	f := Default()
	if strings.TrimSpace(path) == "" {
		return f, nil
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return f, nil
	}
	if err != nil {
		return f, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return f, fmt.Errorf("parse config %s: %w", path, err)
	}
	return f, nil
}

// LoadEnv loads .env files into the process environment. Variables that are
// already set win.
func LoadEnv(paths ...string) error {
	return godotenv.Load(paths...)
}

// ApplyEnv overrides f with BJ_*, STORE_* and ADMIN_TOKEN* variables.
func ApplyEnv(f *File) error {
	var errs []error
	floatVar := func(key string, dst *float64) {
		if v, ok := lookup(key); ok {
			n, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	intVar := func(key string, dst *int) {
		if v, ok := lookup(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	strVar := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}

	floatVar("BJ_ALPHA", &f.Trainer.Alpha)
	floatVar("BJ_LAMBDA", &f.Trainer.Lambda)
	floatVar("BJ_EPSILON", &f.Trainer.Epsilon)
	intVar("BJ_EPISODES", &f.Trainer.Episodes)
	if v, ok := lookup("BJ_SEED"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("BJ_SEED: %w", err))
		} else {
			f.Trainer.Seed = n
			f.Game.Seed = n
		}
	}
	if v, ok := lookup("BJ_REWARDS"); ok {
		f.Trainer.Rewards = qlearn.RewardKind(strings.ToLower(v))
	}
	if v, ok := lookup("BJ_SOURCE_MODE"); ok {
		f.Trainer.SourceMode = qlearn.SourceMode(strings.ToLower(v))
	}
	intVar("BJ_HIT_THRESHOLD", &f.Game.HitThreshold)
	if v, ok := lookup("BJ_DEALER_THRESHOLD"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("BJ_DEALER_THRESHOLD: %w", err))
		} else {
			f.Game.DealerThreshold = n
			f.Trainer.DealerThreshold = n
		}
	}
	intVar("BJ_EVAL_HANDS", &f.Evaluate.Hands)
	strVar("BJ_ADDR", &f.Server.Addr)
	strVar("ADMIN_TOKEN_HASH", &f.Server.AdminTokenHash)
	strVar("ADMIN_TOKEN", &f.Server.AdminToken)
	if v, ok := lookup("BJ_ALLOWED_ORIGINS"); ok {
		f.Server.AllowedOrigins = splitList(v)
	}
	if v, ok := lookup("STORE_MODE"); ok {
		f.Store.Mode = strings.ToLower(v)
	}
	strVar("STORE_SQLITE_PATH", &f.Store.SQLitePath)
	strVar("STORE_DSN", &f.Store.DSN)

	return errors.Join(errs...)
}

// Validate checks every section that feeds a constructor.
func (f File) Validate() error {
	if err := f.Trainer.Validate(); err != nil {
		return fmt.Errorf("trainer: %w", err)
	}
	if err := f.GameConfig().Validate(); err != nil {
		return fmt.Errorf("game: %w", err)
	}
	if f.Evaluate.Hands < 0 {
		return fmt.Errorf("evaluate: hands must be >= 0")
	}
	switch f.Store.Mode {
	case "memory", "sqlite", "local", "postgres":
	default:
		return fmt.Errorf("store: unknown mode %q", f.Store.Mode)
	}
	return nil
}

func (f File) TrainerConfig() qlearn.Config {
	return f.Trainer
}

func (f File) GameConfig() blackjack.Config {
	return blackjack.Config{
		HitThreshold:    f.Game.HitThreshold,
		DealerThreshold: f.Game.DealerThreshold,
		Seed:            f.Game.Seed,
	}
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
