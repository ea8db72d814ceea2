package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"blackjack-ql/apps/server/internal/auth"
	"blackjack-ql/apps/server/internal/gateway"
	"blackjack-ql/apps/server/internal/ledger"
	"blackjack-ql/apps/server/internal/lobby"
	"blackjack-ql/config"

	"github.com/charmbracelet/log"
)

const (
	idleTableTTL  = 10 * time.Minute
	sweepInterval = time.Minute
)

func main() {
	configPath := flag.String("config", "blackjack.yaml", "YAML config file")
	envFile := flag.String("env", ".env", "dotenv file")
	debug := flag.Bool("debug", false, "debug logging")
	hashToken := flag.String("hash-token", "", "print the bcrypt hash of an admin token and exit")
	genToken := flag.Bool("gen-token", false, "print a new admin token and its hash, then exit")
	flag.Parse()

	if *genToken || *hashToken != "" {
		if err := printToken(*hashToken); err != nil {
			log.Fatal("token", "err", err)
		}
		return
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "server",
	})
	if *debug {
		logger.SetLevel(log.DebugLevel)
	}
	log.SetDefault(logger)

	if err := config.LoadEnv(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Fatal("load env", "err", err)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("load config", "err", err)
	}
	if err := config.ApplyEnv(&cfg); err != nil {
		logger.Fatal("apply env", "err", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid config", "err", err)
	}

	authService, err := auth.NewService(cfg.Server.AdminTokenHash, cfg.Server.AdminToken)
	if err != nil {
		logger.Fatal("init admin auth", "err", err)
	}
	ledgerService, ledgerMode, err := ledger.NewService(ledger.Options{
		Mode:       cfg.Store.Mode,
		SQLitePath: cfg.Store.SQLitePath,
		DSN:        cfg.Store.DSN,
	})
	if err != nil {
		logger.Fatal("init ledger", "err", err)
	}
	defer ledgerService.Close()

	lby := lobby.New(lobby.Config{
		Trainer:   cfg.Trainer,
		Game:      cfg.GameConfig(),
		EvalHands: cfg.Evaluate.Hands,
	}, ledgerService, logger)
	defer lby.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := lby.Restore(ctx); err != nil {
		logger.Warn("restore policy failed", "err", err)
	}

	gw := gateway.New(lby, cfg.Server.AllowedOrigins, logger)
	router := newRouter(services{
		auth:           authService,
		ledger:         ledgerService,
		lobby:          lby,
		gateway:        gw,
		allowedOrigins: cfg.Server.AllowedOrigins,
	})

	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				lby.SweepIdle(idleTableTTL)
			case <-ctx.Done():
				return
			}
		}
	}()

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("starting", "addr", cfg.Server.Addr, "ledger", ledgerMode, "admin", authService.Mode())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server stopped", "err", err)
	}
	logger.Info("shut down")
}

func printToken(token string) error {
	if token == "" {
		var err error
		if token, err = auth.GenerateToken(); err != nil {
			return err
		}
		fmt.Println("ADMIN_TOKEN=" + token)
	}
	hash, err := auth.HashToken(token)
	if err != nil {
		return err
	}
	fmt.Println("ADMIN_TOKEN_HASH=" + hash)
	return nil
}
