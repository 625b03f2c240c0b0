package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pourpass-backend/internal/cache"
	"pourpass-backend/internal/config"
	"pourpass-backend/internal/env"
	"pourpass-backend/internal/infrastructure/payproc"
	"pourpass-backend/internal/infrastructure/repo"
	"pourpass-backend/internal/metrics"
	"pourpass-backend/internal/server"
	"pourpass-backend/internal/usecase"
)

func main() {
	env.Load(".env", ".env.local")
	defaults := config.EnvDefaults()

	environment := flag.String("env", defaults.Env, "")
	port := flag.Int("port", defaults.Port, "")
	dbURL := flag.String("database-url", defaults.DatabaseURL, "")
	redisAddr := flag.String("redis-addr", defaults.RedisAddr, "")
	jwtSecret := flag.String("jwt-secret", defaults.JWTSecret, "")
	tokenSecret := flag.String("token-secret", defaults.TokenSecret, "")
	processorMock := flag.Bool("processor-mock", defaults.ProcessorMock, "")
	logJSON := flag.Bool("log-json", defaults.LogJSON, "")
	flag.Parse()

	cfg := defaults
	cfg.Env = *environment
	cfg.Port = *port
	cfg.DatabaseURL = *dbURL
	cfg.RedisAddr = *redisAddr
	cfg.JWTSecret = *jwtSecret
	cfg.TokenSecret = *tokenSecret
	cfg.ProcessorMock = *processorMock
	cfg.LogJSON = *logJSON

	log := newLogger(cfg.LogJSON)
	slog.SetDefault(log)
	metrics.Init()

	var store usecase.Store
	if cfg.DatabaseURL != "" {
		pg, err := repo.NewPostgresStore(cfg.DatabaseURL)
		if err != nil {
			log.Error("postgres init failed", "error", err)
			os.Exit(1)
		}
		store = pg
		log.Info("using postgres store")
	} else {
		store = repo.NewMemoryStore()
		log.Warn("no database configured, using in-memory store")
	}

	var statusCache cache.Cache
	if cfg.RedisAddr != "" {
		statusCache = cache.New(cache.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB), cfg.CacheTTL)
		log.Info("order status cache enabled", "addr", cfg.RedisAddr)
	}

	processor := &payproc.Client{
		BaseURL:       cfg.ProcessorBaseURL,
		APIKey:        cfg.ProcessorAPIKey,
		WebhookSecret: cfg.ProcessorWebhookSecret,
		Mock:          cfg.ProcessorMock,
	}

	reservations := &usecase.ReservationService{
		Store:         store,
		OrderTTL:      cfg.OrderTTL,
		PendingWindow: cfg.PendingWindow,
	}
	payments := &usecase.PaymentService{
		Store:     store,
		Processor: processor,
	}
	tokens := &usecase.TokenService{
		Store:  store,
		Secret: []byte(cfg.TokenSecret),
	}
	sweeper := &usecase.Sweeper{
		Store:     store,
		Processor: processor,
		Cache:     statusCache,
		Interval:  cfg.SweepInterval,
		Log:       log.With("component", "sweeper"),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go sweeper.Run(ctx)

	srv := server.New(cfg, store, reservations, payments, tokens, processor, statusCache, log)
	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: srv.Router(),
	}

	go func() {
		log.Info("listening", "addr", httpSrv.Addr, "env", cfg.Env)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", "error", err)
	}
}

func newLogger(jsonOut bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if jsonOut {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
