package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"headshot/internal/http/handlers"
	"headshot/internal/http/httpapi"
	"headshot/internal/identity"
	"headshot/internal/infra"
	"headshot/internal/infra/credentials"
	"headshot/internal/providers/genai"
	"headshot/internal/usage"
	"headshot/internal/watermark"
	"headshot/internal/workflow"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)
	ctx := context.Background()

	// Without a database the service runs against an in-memory directory.
	var (
		dir       identity.Directory
		events    *usage.EventLog
		geminiKey = cfg.GeminiAPIKey
	)
	dbpool, err := infra.NewDBPool(ctx, cfg)
	switch {
	case err == nil:
		defer dbpool.Close()
		runner := infra.NewSQLRunner(dbpool, logger)
		dir = identity.NewPGDirectory(runner)
		events = usage.NewEventLog(runner, logger)
		geminiKey, err = credentials.NewStore(runner).GeminiAPIKey(ctx, cfg.GeminiAPIKey)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to load stored gemini key")
		}
	case errors.Is(err, infra.ErrNoDatabase):
		logger.Warn().Msg("DATABASE_URL not set; using in-memory identity directory, token subjects enrol as free tier")
		dir = identity.NewMemoryDirectory().AutoEnroll()
		events = usage.NewEventLog(nil, logger)
	default:
		logger.Fatal().Err(err).Msg("failed to connect database")
	}

	rdb, err := infra.NewRedisClient(ctx, cfg)
	switch {
	case err == nil:
		defer rdb.Close()
		dir = identity.NewCachedDirectory(dir, rdb, cfg.PlanCacheTTL, logger)
	case errors.Is(err, infra.ErrNoRedis):
		logger.Info().Msg("REDIS_ADDR not set; plan lookups are not cached")
	default:
		logger.Warn().Err(err).Msg("redis unavailable; plan lookups are not cached")
	}

	logo, err := watermark.LoadLogo(cfg.WatermarkLogoPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load watermark logo")
	}

	gen := genai.NewClient(genai.Options{
		APIKey:  geminiKey,
		BaseURL: cfg.GeminiBaseURL,
		Model:   cfg.GeminiModel,
		Logger:  logger,
	})
	if gen.Synthetic() {
		logger.Warn().Msg("no Gemini API key; generating synthetic headshots")
	}

	plans := usage.NewPlanResolver(dir, cfg.UnlimitedPlanKeys, cfg.StandardPlanKeys)
	ledger := usage.NewLedger(dir, plans, logger)

	sessions := workflow.NewRegistry(workflow.Deps{
		Generator:   gen,
		Watermarker: watermark.New(logo),
		Ledger:      ledger,
		Events:      events,
		Logger:      logger,
	}, cfg.SessionTTL)
	if err := sessions.StartJanitor(); err != nil {
		logger.Fatal().Err(err).Msg("failed to start session janitor")
	}

	app := &handlers.App{
		Config:   cfg,
		Logger:   logger,
		Sessions: sessions,
		Ledger:   ledger,
	}
	server := infra.NewHTTPServer(cfg, httpapi.NewRouter(app, dir), logger)

	go func() {
		logger.Info().Str("model", gen.Model()).Msgf("API listening on %s", server.Addr())
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	<-sessions.StopJanitor().Done()
	logger.Info().Msg("server stopped")
}
