// Package main wires together the comic service binary.
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

	"go.uber.org/zap"

	"github.com/comicdl/comicdl/internal/api"
	"github.com/comicdl/comicdl/internal/cache"
	"github.com/comicdl/comicdl/internal/clock/system"
	"github.com/comicdl/comicdl/internal/comicbook"
	"github.com/comicdl/comicdl/internal/config"
	"github.com/comicdl/comicdl/internal/download"
	"github.com/comicdl/comicdl/internal/id/uuid"
	"github.com/comicdl/comicdl/internal/logging"
	"github.com/comicdl/comicdl/internal/metrics"
	"github.com/comicdl/comicdl/internal/pool"
	"github.com/comicdl/comicdl/internal/session"
	"github.com/comicdl/comicdl/internal/task"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clock := system.New()
	sessions := session.NewManager(session.Config{
		UserAgent:      cfg.Crawler.UserAgent,
		Timeout:        cfg.HTTPTimeout(),
		RequestsPerSec: cfg.Crawler.RequestsPerSec,
		Burst:          cfg.Crawler.Burst,
		Proxies:        cfg.Crawler.Proxies,
	}, logger.Named("session"))
	runner := pool.New(cfg.Crawler.Concurrency, logger.Named("pool"))
	crawlerCache := cache.New(cfg.CacheTTL(), clock)
	downloader := download.New(runner, download.Config{
		MaxRetries: cfg.Download.MaxRetries,
		RetryDelay: cfg.RetryDelay(),
	}, logger.Named("download"))

	metrics.Init(crawlerCache.Len)

	svc := comicbook.NewService(comicbook.Options{
		Sessions:   sessions,
		Runner:     runner,
		Cache:      crawlerCache,
		Clock:      clock,
		Logger:     logger.Named("comic"),
		Downloader: downloader,
	})

	var store task.Store
	if cfg.DB.DSN != "" {
		pgStore, err := task.NewPostgresStore(ctx, task.PostgresStoreConfig{
			DSN:      cfg.DB.DSN,
			MaxConns: int32(cfg.DB.MaxOpenConns),
			MinConns: int32(cfg.DB.MaxIdleConns),
		})
		if err != nil {
			logger.Fatal("task store init failed", zap.Error(err))
		}
		defer pgStore.Close()
		store = pgStore
	} else {
		store = task.NewMemoryStore(clock)
	}

	var mailer task.Mailer
	if cfg.Mail.Enabled {
		mailer = &task.SMTPMailer{
			Host:     cfg.Mail.Host,
			Port:     cfg.Mail.Port,
			Username: cfg.Mail.Username,
			Password: cfg.Mail.Password,
			From:     cfg.Mail.From,
		}
	}

	worker := task.NewWorker(svc, store, mailer, uuid.NewUUIDGenerator(),
		cfg.Download.Dir, logger.Named("task"))

	apiServer := api.NewServer(svc, worker, store, cfg, logger.Named("api"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
}
