package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MikeSquared-Agency/chatreport/internal/analyzer"
	"github.com/MikeSquared-Agency/chatreport/internal/anthropic"
	"github.com/MikeSquared-Agency/chatreport/internal/api"
	"github.com/MikeSquared-Agency/chatreport/internal/backfill"
	"github.com/MikeSquared-Agency/chatreport/internal/config"
	"github.com/MikeSquared-Agency/chatreport/internal/gemini"
	"github.com/MikeSquared-Agency/chatreport/internal/hermes"
	"github.com/MikeSquared-Agency/chatreport/internal/ingest"
	"github.com/MikeSquared-Agency/chatreport/internal/llm"
	"github.com/MikeSquared-Agency/chatreport/internal/processor"
	"github.com/MikeSquared-Agency/chatreport/internal/report"
	"github.com/MikeSquared-Agency/chatreport/internal/slack"
	"github.com/MikeSquared-Agency/chatreport/internal/store"
	"github.com/MikeSquared-Agency/chatreport/internal/transcript"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	if len(os.Args) > 1 && os.Args[1] == "backfill" {
		os.Exit(runBackfill(cfg, os.Args[2:]))
	}
	os.Exit(serve(cfg))
}

// app holds the collaborators shared by the server and the backfill command.
type app struct {
	db       *store.Store
	hermes   *hermes.Client
	pipeline *ingest.Pipeline
	proc     *processor.Processor
}

func (a *app) close() {
	if a.hermes != nil {
		a.hermes.Close()
	}
	a.db.Close()
}

func setup(ctx context.Context, cfg config.Config) (*app, error) {
	// Database
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	db, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	a := &app{db: db}
	if err := db.EnsureSchema(ctx); err != nil {
		a.close()
		return nil, fmt.Errorf("prepare schema: %w", err)
	}
	slog.Info("database connected")

	// Language model; without one every analysis is an emergency record.
	completer, err := newCompleter(ctx, cfg)
	if err != nil {
		slog.Warn("language model unavailable, analyses will be degraded", "provider", cfg.LLMProvider, "error", err)
	} else {
		slog.Info("language model ready", "provider", cfg.LLMProvider, "model", completer.Model())
	}

	now := time.Now
	a.pipeline = ingest.New(ingest.Options{
		DateOrder:      transcript.ParseDateOrder(cfg.DateOrder),
		WorkDir:        cfg.WorkDir,
		MaxEntryBytes:  cfg.MaxUploadBytes,
		ValidateImages: cfg.ValidateImages,
	}, slog.Default())
	deps := processor.Deps{
		Ingester: a.pipeline,
		Analyzer: analyzer.New(completer, slog.Default(), analyzer.Options{MaxMessages: cfg.MaxAnalyzeMessages}),
		Renderer: report.New(slog.Default(), now),
		Store:    db,
		Now:      now,
	}

	// NATS/Hermes (optional)
	if cfg.NatsURL != "" {
		a.hermes, err = hermes.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			a.close()
			return nil, fmt.Errorf("connect NATS: %w", err)
		}
		deps.Events = a.hermes
		slog.Info("NATS connected", "url", cfg.NatsURL)
	} else {
		slog.Warn("NATS not configured, events disabled")
	}

	// Slack poster (optional)
	if cfg.SlackBotToken != "" && cfg.SlackChannel != "" {
		deps.Notifier = slack.NewPoster(cfg.SlackBotToken, cfg.SlackChannel, slog.Default())
		slog.Info("slack poster ready", "channel", cfg.SlackChannel)
	} else {
		slog.Warn("slack not configured, summaries will not be posted")
	}

	a.proc = processor.New(deps, slog.Default())
	return a, nil
}

func serve(cfg config.Config) int {
	slog.Info("chatreport starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := setup(ctx, cfg)
	if err != nil {
		slog.Error("startup failed", "error", err)
		return 1
	}
	defer a.close()

	if cfg.RetentionDays > 0 {
		n, err := a.db.DeleteOlderThan(ctx, cfg.RetentionDays)
		if err != nil {
			slog.Warn("retention purge failed", "error", err)
		} else {
			slog.Info("retention purge done", "days", cfg.RetentionDays, "deleted", n)
		}
	}

	if a.hermes != nil {
		if err := a.hermes.SubscribeArchiveSubmitted(a.proc.HandleArchiveSubmitted); err != nil {
			slog.Error("failed to subscribe to archive events", "error", err)
			return 1
		}
	}

	// HTTP API
	srv := api.NewServer(api.Options{
		Port:           cfg.Port,
		APIToken:       cfg.APIToken,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}, a.proc, slog.Default())
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
			cancel()
		}
	}()

	slog.Info("chatreport ready", "port", cfg.Port)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case <-ctx.Done():
	}
	slog.Info("shutting down")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 30*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP shutdown incomplete", "error", err)
	}
	slog.Info("chatreport stopped")
	return 0
}

func runBackfill(cfg config.Config, args []string) int {
	fs := flag.NewFlagSet("backfill", flag.ContinueOnError)
	dir := fs.String("dir", "", "directory of exported chat archives (required)")
	statePath := fs.String("state", "", "state file (default <dir>/.chatreport-backfill.json)")
	since := fs.String("since", "", "only archives with messages on or after this date (YYYY-MM-DD)")
	until := fs.String("until", "", "only archives with messages on or before this date (YYYY-MM-DD)")
	dryRun := fs.Bool("dry-run", false, "list what would be analyzed without calling the model")
	minMessages := fs.Int("min-messages", 1, "skip archives with fewer messages")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *dir == "" {
		fmt.Fprintln(os.Stderr, "backfill: -dir is required")
		fs.Usage()
		return 2
	}

	bcfg := backfill.Config{
		Dir:         *dir,
		StatePath:   *statePath,
		DryRun:      *dryRun,
		MinMessages: *minMessages,
	}
	var err error
	if bcfg.Since, err = parseDay(*since, false); err != nil {
		fmt.Fprintf(os.Stderr, "backfill: -since: %v\n", err)
		return 2
	}
	if bcfg.Until, err = parseDay(*until, true); err != nil {
		fmt.Fprintf(os.Stderr, "backfill: -until: %v\n", err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := setup(ctx, cfg)
	if err != nil {
		slog.Error("startup failed", "error", err)
		return 1
	}
	defer a.close()

	r := backfill.NewRunner(bcfg, a.pipeline, a.proc, slog.Default())
	sum, err := r.Run(ctx)
	fmt.Print(backfill.FormatSummary(sum, bcfg.DryRun, r.StatePath()))
	if err != nil {
		slog.Error("backfill failed", "error", err)
		return 1
	}
	return 0
}

// parseDay parses a YYYY-MM-DD flag in UTC. endOfDay moves the result to the
// last instant of that day.
func parseDay(s string, endOfDay bool) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

// newCompleter builds the configured provider. It returns a nil interface on
// error so the analyzer falls back cleanly.
func newCompleter(ctx context.Context, cfg config.Config) (llm.Completer, error) {
	switch cfg.LLMProvider {
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return nil, errors.New("GEMINI_API_KEY is not set")
		}
		c, err := gemini.NewClient(ctx, gemini.Options{APIKey: cfg.GeminiAPIKey, Model: cfg.GeminiModel})
		if err != nil {
			return nil, err
		}
		return c, nil
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			return nil, errors.New("ANTHROPIC_API_KEY is not set")
		}
		return anthropic.NewClient(cfg.AnthropicAPIKey, cfg.AnthropicModel), nil
	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER %q", cfg.LLMProvider)
	}
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
