// Command arbiterd runs the session budget arbiter: an HTTP service that
// opens per-session budgets, admits or rejects candidate agent turns, and
// keeps the authoritative spend ledger.
package main

import (
	"flag"
	"net/http"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/wesheets/promethios-sub003/internal/arbiter"
	"github.com/wesheets/promethios-sub003/internal/budget"
	"github.com/wesheets/promethios-sub003/internal/config"
	"github.com/wesheets/promethios-sub003/internal/pricing"
	"github.com/wesheets/promethios-sub003/internal/store"
)

func main() {
	configPath := flag.String("config", "arbiter.yaml", "path to the YAML config file")
	flag.Parse()

	// .env is optional; real deployments set env vars directly.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setupLogging(cfg.Logging.Level)

	svc := arbiter.New(
		pricing.NewTableEstimator(),
		openStore(cfg.Store.Path),
		cfg.Taxonomy,
		budget.Options{
			AutoStop:          cfg.Budget.AutoStop,
			MaxExchanges:      cfg.Budget.MaxExchanges,
			WarningThreshold:  cfg.Budget.WarningThreshold,
			CriticalThreshold: cfg.Budget.CriticalThreshold,
		},
	)
	defer svc.Shutdown()

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      newMux(svc),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	log.Info().Str("addr", cfg.Server.Addr).Msg("arbiterd listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("server failed")
	}
}

// setupLogging configures the global zerolog logger. Console output when
// attached to a terminal-ish stderr, JSON otherwise.
func setupLogging(level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

// openStore opens the SQLite store, degrading to no persistence on failure.
// The ledger is authoritative either way.
func openStore(path string) store.Store {
	if path == "" {
		log.Info().Msg("persistence disabled")
		return store.NopStore{}
	}
	st, err := store.OpenSQLite(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("sqlite store unavailable, running without persistence")
		return store.NopStore{}
	}
	log.Info().Str("path", path).Msg("sqlite store opened")
	return st
}
