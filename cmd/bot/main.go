// Package main contains the entrypoint for the ticker bot application.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"tickerbot/internal/backfill"
	"tickerbot/internal/bot"
	"tickerbot/internal/bot/tasks"
	"tickerbot/internal/config"
	"tickerbot/internal/contextlog"
	"tickerbot/internal/discord"
	"tickerbot/internal/gemini"
	"tickerbot/internal/ingest"
	"tickerbot/internal/ledger"
	"tickerbot/internal/logger"
	"tickerbot/internal/market"
	"tickerbot/internal/publish"
	"tickerbot/internal/ticker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run initializes and starts all application components, handles
// graceful shutdown, and returns an exit code.
func run(ctx context.Context) int {
	// Optional .env for local development; real deployments set the
	// environment directly.
	_ = godotenv.Load()

	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Logger.Level, cfg.Logger.JSON)
	log.Info("Logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON)

	lex, err := ticker.LoadLexicon(cfg.Lexicon.SymbolsPath, cfg.Lexicon.Blacklist)
	if err != nil {
		log.Error("Failed to load symbol lexicon", "path", cfg.Lexicon.SymbolsPath, "error", err)
		return 1
	}
	log.Info("Symbol lexicon loaded", "symbols", lex.Size())

	loc, err := time.LoadLocation(cfg.Context.Timezone)
	if err != nil {
		log.Error("Failed to load timezone", "timezone", cfg.Context.Timezone, "error", err)
		return 1
	}

	ctxlog, err := contextlog.New(cfg.Context.Dir, loc, log)
	if err != nil {
		log.Error("Failed to initialize context log", "dir", cfg.Context.Dir, "error", err)
		return 1
	}

	var pub ledger.Publisher = publish.Noop{}
	if cfg.Publish.Enabled {
		pub = publish.NewGit(cfg.Publish.RepoDir, log)
	}

	store := ledger.NewStore(cfg.Ledger.Path, pub, log)
	defer store.Close()

	gemClient, err := gemini.NewClient(ctx, gemini.Config{
		APIKey:            cfg.Gemini.APIKey,
		ModelName:         cfg.Gemini.ModelName,
		Temperature:       cfg.Gemini.Temperature,
		MaxRetries:        cfg.Gemini.MaxRetries,
		RetryDelaySeconds: cfg.Gemini.RetryDelaySeconds,
	}, log)
	if err != nil {
		log.Error("Failed to initialize Gemini client", "error", err)
		return 1
	}

	marketClient := market.NewClient("", log)
	svc := ingest.NewService(lex, store, ctxlog, log)

	adapter, err := discord.NewAdapter(discord.HandlerDeps{
		Logger:     log,
		Config:     cfg,
		Ingest:     svc,
		Store:      store,
		ContextLog: ctxlog,
		Series:     marketClient,
		Gemini:     gemClient,
	})
	if err != nil {
		log.Error("Failed to create Discord adapter", "error", err)
		return 1
	}

	driver := backfill.New(adapter.History(), store, ctxlog, svc, cfg.Backfill.LookbackDays, log)

	taskMap := tasks.RegisterAllTasks(tasks.TaskDeps{
		Logger:   log,
		Config:   cfg,
		Store:    store,
		Backfill: driver,
		Series:   marketClient,
		Poster:   adapter,
	})

	sched, err := bot.NewScheduler(log, &cfg.Scheduler, taskMap)
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}

	app := bot.NewBot(log, cfg, adapter, sched)

	log.Info("Starting bot...")
	runErr := app.Run(ctx)

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		return 1
	}

	log.Info("Bot stopped gracefully.")
	return 0
}
