package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"genassist/internal/genapi"
	"genassist/internal/http/handlers"
	httpapi "genassist/internal/http/httpapi"
	"genassist/internal/infra"
	"genassist/internal/ledger"
	"genassist/internal/orchestrator"
	"genassist/internal/resolver"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	var store ledger.Ledger
	if cfg.LedgerPath != "" {
		sqliteLedger, err := ledger.OpenSQLite(cfg.LedgerPath, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to open job ledger")
		}
		defer sqliteLedger.Close()
		store = sqliteLedger
		logger.Info().Str("path", cfg.LedgerPath).Msg("job ledger persisted to sqlite")
	} else {
		store = ledger.NewMemoryLedger()
	}

	client, err := genapi.NewClient(genapi.Options{
		BaseURL:     cfg.GenerationAPIURL,
		Credentials: genapi.StaticCredential(cfg.GenerationToken),
		Logger:      &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure generation client")
	}
	if cfg.GenerationToken == "" {
		logger.Warn().Msg("no generation credential configured, requests will be anonymous")
	}

	orch := orchestrator.New(orchestrator.Config{
		PollTier1:         cfg.PollTier1,
		PollTier2:         cfg.PollTier2,
		PollTier3:         cfg.PollTier3,
		PollTier3After:    cfg.PollTier3After,
		BackoffBase:       cfg.BackoffBase,
		MaxRateLimitRetry: cfg.MaxRateLimitRetry,
	}, client, store, resolver.New(cfg.AssetBaseURL, cfg.GenerationToken), logger)

	app := handlers.NewApp(orch, logger)
	router := httpapi.NewRouter(app, logger, cfg.CORSOrigins)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("orchestrator listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	orch.Close()
	logger.Info().Msg("orchestrator stopped")
}
