package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"pogoslides/internal/cache"
	"pogoslides/internal/config"
	"pogoslides/internal/feed"
	appLog "pogoslides/internal/log"
	"pogoslides/internal/register"
	"pogoslides/internal/web"
)

type flagConfig struct {
	configPath string
	listen     string
	once       bool
}

func main() {
	_ = godotenv.Load()

	appLog.Info("pogoslides starting", "version", "1.0.0")

	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	// CLI --listen overrides config file listen if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"feed_url", conf.FeedURL,
		"refresh", conf.RefreshCron,
		"window_days", conf.WindowDays,
		"excluded_count", len(conf.Excluded),
		"synthetic_count", len(conf.Synthetic),
		"once", flags.once,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	fetcher := feed.NewFetcher(conf.FeedURL)
	store := cache.New(fetcher.Fetch, nil)

	if flags.once {
		// Single refresh cycle, mainly for cron-style external scheduling
		// and smoke tests.
		store.Refresh(ctx)
		return
	}

	// Warm the cache; requests arriving before this finishes fall back to
	// the empty-read refresh path behind the same guard.
	go store.Refresh(ctx)

	// Background daily refresh shares the guard with everything else, so a
	// scheduled run cannot race a manual one into a double fetch.
	sched := cron.New()
	if _, err := sched.AddFunc(conf.RefreshCron, func() {
		if status := store.Refresh(ctx); status == cache.RefreshAlreadyRunning {
			appLog.Warn("scheduled refresh skipped, another refresh in flight")
		}
	}); err != nil {
		appLog.Error("invalid refresh schedule", err, "refresh", conf.RefreshCron)
		os.Exit(1)
	}
	sched.Start()
	defer sched.Stop()

	server := web.NewServer(conf, store, nil)

	// Hot reload for pipeline settings (exclusions, window, synthetics).
	stopWatch, err := config.Watch(flags.configPath, server.ApplyConfig)
	if err != nil {
		appLog.Warn("config watcher unavailable, hot reload disabled", "err", err)
	} else {
		defer stopWatch()
	}

	go register.Announce(ctx, conf.Registration, web.ServiceName, "Pokemon Go Events")

	srv := &http.Server{
		Addr:         conf.Listen,
		Handler:      server.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+conf.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Error("http server failed", err)
			cancel()
		}
	}()

	<-ctx.Done()
	appLog.Info("signal received, shutting down")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutCancel()
	_ = srv.Shutdown(shutCtx)

	appLog.Info("pogoslides exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/pogoslides/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Run one cache refresh and exit")

	flag.Parse()

	return cfg
}
