package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ErlanBelekov/anonbox/config"
	"github.com/ErlanBelekov/anonbox/internal/credential"
	"github.com/ErlanBelekov/anonbox/internal/email"
	"github.com/ErlanBelekov/anonbox/internal/health"
	"github.com/ErlanBelekov/anonbox/internal/infrastructure/memory"
	"github.com/ErlanBelekov/anonbox/internal/infrastructure/postgres"
	"github.com/ErlanBelekov/anonbox/internal/infrastructure/redisstore"
	"github.com/ErlanBelekov/anonbox/internal/janitor"
	ctxlog "github.com/ErlanBelekov/anonbox/internal/log"
	"github.com/ErlanBelekov/anonbox/internal/metrics"
	"github.com/ErlanBelekov/anonbox/internal/repository"
	"github.com/ErlanBelekov/anonbox/internal/session"
	httptransport "github.com/ErlanBelekov/anonbox/internal/transport/http"
	"github.com/ErlanBelekov/anonbox/internal/transport/http/handler"
	"github.com/ErlanBelekov/anonbox/internal/usecase"
	"github.com/ErlanBelekov/anonbox/internal/verifycode"
	"github.com/gin-gonic/gin"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := newLogger(cfg.Env, cfg.SlogLevel())

	if cfg.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var deps []health.Dependency
	codes := verifycode.NewGenerator(cfg.CodeTTL)

	// Accounts
	var accounts repository.AccountRepository
	if cfg.DatabaseURL != "" {
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			stop()
			log.Fatalf("db: %v", err)
		}
		defer pool.Close()

		if err := postgres.Migrate(ctx, pool); err != nil {
			stop()
			log.Fatalf("migrate: %v", err)
		}
		repo := postgres.NewAccountRepository(pool)
		accounts = repo
		deps = append(deps, health.Dependency{Name: "postgres", Pinger: repo})
	} else {
		logger.Warn("DATABASE_URL not set, accounts are kept in memory")
		accounts = memory.NewAccountStore(time.Now)
	}

	// Pending registrations. Redis expires records itself; the in-memory store
	// needs the janitor.
	var (
		pending repository.PendingRegistrationStore
		sweeper *janitor.Janitor
	)
	if cfg.RedisAddr != "" {
		client := redisstore.NewClient(cfg.RedisAddr, cfg.RedisPassword)
		defer client.Close()

		store := redisstore.NewPendingStore(client, codes, cfg.RedisKeyPrefix, cfg.PendingBackstopTTL)
		pending = store
		deps = append(deps, health.Dependency{Name: "redis", Pinger: store})
	} else {
		logger.Warn("REDIS_ADDR not set, pending registrations are kept in memory")
		store := memory.NewPendingStore(codes, cfg.PendingBackstopTTL, time.Now)
		pending = store
		sweeper = janitor.New(store, cfg.PendingSweepSpec, logger)
	}

	sender := email.NewSender(cfg.ResendAPIKey, cfg.ResendFrom, logger)
	mailer := email.NewVerificationMailer(sender)
	tokens := session.NewIssuer([]byte(cfg.JWTSecret), cfg.SessionTTL)

	registration := usecase.NewRegistrationUsecase(
		accounts,
		pending,
		credential.NewBcryptHasher(cfg.BcryptCost),
		mailer,
		cfg.DevMode(),
		logger,
	)
	messages := usecase.NewMessageUsecase(accounts, cfg.StatsLocation(), logger)

	metrics.Register()
	checker := health.NewChecker(logger, prometheus.DefaultRegisterer, deps...)

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: httptransport.NewRouter(logger, httptransport.Handlers{
			Auth:     handler.NewAuthHandler(registration, tokens, logger),
			Account:  handler.NewAccountHandler(registration, logger),
			Messages: handler.NewMessageHandler(messages, logger),
		}, accounts, tokens),
		ReadHeaderTimeout: 10 * time.Second,
	}
	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server started", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
		return nil
	})

	if sweeper != nil {
		g.Go(func() error {
			return sweeper.Start(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", "error", err)
		}
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func newLogger(env string, level slog.Level) *slog.Logger {
	var inner slog.Handler
	if env == "local" {
		inner = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	} else {
		inner = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}
	return slog.New(ctxlog.NewContextHandler(inner))
}
