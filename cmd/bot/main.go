package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"herald_bot/internal/bot"
	"herald_bot/internal/config"
	"herald_bot/internal/dispatch"
	"herald_bot/internal/feed"
	"herald_bot/internal/poller"
	"herald_bot/internal/scheduler"
	"herald_bot/internal/spamguard"
	"herald_bot/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfgPath := flag.String("config", envOrDefault("CONFIG_PATH", "./config.yaml"), "path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.Log.Level)

	if dir := filepath.Dir(cfg.Database.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			log.Error("create data directory", "path", dir, "error", err)
			os.Exit(1)
		}
	}

	store, err := storage.NewSQLite(cfg.Database.Path)
	if err != nil {
		log.Error("open database", "path", cfg.Database.Path, "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	b, err := bot.New(cfg.Telegram.Token, store, cfg, log)
	if err != nil {
		log.Error("create bot", "error", err)
		os.Exit(1)
	}

	if cfg.SpamGuard.Enabled {
		guard, err := spamguard.New(b, store, log)
		if err != nil {
			log.Error("create spam guard", "error", err)
			os.Exit(1)
		}
		b.SetSpamGuard(guard)
	}

	sched := scheduler.New(log)
	for _, svc := range cfg.EnabledServices() {
		// A broken service definition is fatal for that service only; the
		// remaining services still start.
		source, err := feed.NewRSS(http.DefaultClient, svc.FeedURL)
		if err != nil {
			log.Error("configure feed source", "service", svc.Name, "error", err)
			continue
		}
		disp, err := dispatch.New(b, svc.RatePerSec, log)
		if err != nil {
			log.Error("configure dispatcher", "service", svc.Name, "error", err)
			continue
		}
		p, err := poller.New(svc.Name, store, source, disp, bot.FormatNotification, log)
		if err != nil {
			log.Error("configure poller", "service", svc.Name, "error", err)
			continue
		}
		if err := sched.Register(p, svc.PollInterval()); err != nil {
			log.Error("register poller", "service", svc.Name, "error", err)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("starting bot", "services", len(cfg.EnabledServices()))

	sched.Start(ctx)
	b.Run(ctx)
	sched.Stop()

	log.Info("bot stopped")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
