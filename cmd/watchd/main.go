package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/watchcore/internal/config"
	"github.com/hamed0406/watchcore/internal/events"
	"github.com/hamed0406/watchcore/internal/httpapi"
	"github.com/hamed0406/watchcore/internal/httpapi/middleware"
	"github.com/hamed0406/watchcore/internal/logging"
	"github.com/hamed0406/watchcore/internal/notify"
	"github.com/hamed0406/watchcore/internal/orchestrator"
	"github.com/hamed0406/watchcore/internal/repo"
	"github.com/hamed0406/watchcore/internal/repo/memory"
	"github.com/hamed0406/watchcore/internal/repo/postgres"
)

func main() {
	cfg := config.FromEnv()

	var logger *zap.Logger
	if os.Getenv("WATCHCORE_DEV") == "1" {
		logger = logging.NewConsoleLogger()
	} else {
		l, err := logging.NewLogger(cfg.LogDir)
		if err != nil {
			log.Fatal(err)
		}
		logger = l
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var targets repo.TargetStore
	var history repo.HistoryStore
	if cfg.DatabaseURL != "" {
		pg, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("postgres_connect_error", zap.Error(err))
		}
		defer pg.Close()
		targets, history = pg, pg
	} else {
		mem := memory.New()
		targets, history = mem, mem
		logger.Info("using_memory_store")
	}

	bus := events.NewBus(logger, cfg.BusQueueSize)

	orch, err := orchestrator.New(logger, targets, history, bus, nil, orchestrator.Defaults{
		Timeout:     cfg.DefaultTimeout,
		Interval:    cfg.DefaultInterval,
		RetryCount:  cfg.DefaultRetries,
		RetryBase:   cfg.RetryBase,
		RetryMax:    cfg.RetryMax,
		Concurrency: cfg.Concurrency,
		CacheSize:   cfg.CacheSize,
		CacheTTL:    cfg.CacheTTL,
		StopGrace:   cfg.StopGrace,
	})
	if err != nil {
		logger.Fatal("orchestrator_build_error", zap.Error(err))
	}

	// seed targets from file before starting; duplicates are skipped by id
	if cfg.TargetsFile != "" {
		seed, err := config.LoadTargets(cfg.TargetsFile)
		if err != nil {
			logger.Fatal("targets_file_error", zap.Error(err))
		}
		for _, t := range seed {
			if _, err := orch.AddTarget(ctx, t); err != nil {
				logger.Warn("targets_file_skip",
					zap.String("address", t.Address), zap.Error(err))
			}
		}
	}

	if err := orch.Start(ctx); err != nil {
		logger.Fatal("orchestrator_start_error", zap.Error(err))
	}
	defer orch.Stop()

	if slack := notify.NewSlack(cfg.SlackWebhook); slack != nil {
		sub := bus.Subscribe(events.StatusChanged)
		defer sub.Unsubscribe()
		watcher := notify.NewWatcher(logger, notify.Multi{slack}, notify.WatcherConfig{
			Cooldown:        cfg.AlertCooldown,
			AlertOnRecovery: cfg.AlertOnRecovery,
		})
		go watcher.Run(ctx, sub)
	}

	api := httpapi.NewServer(logger, orch, middleware.Keys{
		Public: cfg.PublicKeys,
		Admin:  cfg.AdminKeys,
	})
	srv := &http.Server{Addr: cfg.Addr, Handler: api.Router()}

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()

	logger.Info("api_listen", zap.String("addr", cfg.Addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("api_serve_error", zap.Error(err))
	}
}
