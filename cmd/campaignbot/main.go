package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/lukia-marketing/campaignbot/internal/api"
	"github.com/lukia-marketing/campaignbot/internal/config"
	"github.com/lukia-marketing/campaignbot/internal/flow"
	"github.com/lukia-marketing/campaignbot/internal/genai"
	"github.com/lukia-marketing/campaignbot/internal/logging"
	"github.com/lukia-marketing/campaignbot/internal/lukia"
	"github.com/lukia-marketing/campaignbot/internal/store"
	"github.com/lukia-marketing/campaignbot/internal/telegram"
	"github.com/lukia-marketing/campaignbot/internal/util"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	}

	configPath := flag.String("config", "", "path to the YAML config file (optional, env vars apply on top)")
	apiAddr := flag.String("api-addr", "", "API server address (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if *apiAddr != "" {
		cfg.API.Addr = *apiAddr
	}

	level := logging.ParseLevel(cfg.Logging.Level)
	if util.ParseBoolEnv("DEBUG", false) {
		level = slog.LevelDebug
	}
	logger, cleanup := logging.Setup(cfg.Logging.File, level)
	defer cleanup()
	slog.SetDefault(logger)

	st, err := buildStore(cfg)
	if err != nil {
		slog.Error("Failed to initialize session store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	oracle, err := genai.NewClient(buildGenAIOptions(cfg)...)
	if err != nil {
		slog.Error("Failed to initialize classifier client", "error", err)
		os.Exit(1)
	}

	backend, err := lukia.NewClient(
		lukia.WithBaseURL(cfg.Lukia.BaseURL),
		lukia.WithToken(cfg.Lukia.Token),
		lukia.WithDefaults(cfg.Lukia.DefaultCompany, cfg.Lukia.DefaultIntegration),
	)
	if err != nil {
		slog.Error("Failed to initialize Lukia client", "error", err)
		os.Exit(1)
	}

	engine := flow.NewEngine(oracle, backend, st)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	server := api.NewServer(engine, api.WithAddr(cfg.API.Addr))
	g.Go(func() error { return server.Run(ctx) })

	if cfg.Telegram.Token != "" {
		bot, err := telegram.NewBot(engine,
			telegram.WithToken(cfg.Telegram.Token),
			telegram.WithLongPollTimeout(time.Duration(cfg.Telegram.LongPollTimeoutSeconds)*time.Second),
		)
		if err != nil {
			slog.Error("Failed to initialize Telegram transport", "error", err)
			os.Exit(1)
		}
		g.Go(func() error { return bot.Run(ctx) })
	} else {
		slog.Info("Telegram transport disabled, no token configured")
	}

	slog.Info("Campaign bot running", "apiAddr", cfg.API.Addr, "storeDriver", cfg.Store.Driver)
	if err := g.Wait(); err != nil {
		slog.Error("Campaign bot failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Campaign bot exited successfully")
}

// buildStore selects the session store backend from the config.
func buildStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Driver {
	case config.DriverSQLite:
		slog.Debug("Configuring SQLite store", "path", cfg.Store.DSN)
		return store.NewSQLiteStore(store.WithDSN(cfg.Store.DSN))
	case config.DriverPostgres:
		slog.Debug("Configuring PostgreSQL store", "dsn_set", cfg.Store.DSN != "")
		return store.NewPostgresStore(store.WithPostgresDSN(cfg.Store.DSN))
	default:
		slog.Debug("Configuring in-memory store")
		return store.NewInMemoryStore(), nil
	}
}

// buildGenAIOptions constructs classifier client options from the config.
func buildGenAIOptions(cfg *config.Config) []genai.Option {
	var opts []genai.Option
	if cfg.OpenAI.APIKey != "" {
		opts = append(opts, genai.WithAPIKey(cfg.OpenAI.APIKey))
	}
	if cfg.OpenAI.Model != "" {
		opts = append(opts, genai.WithModel(cfg.OpenAI.Model))
	}
	return opts
}
