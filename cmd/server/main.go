package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/labeldesk/backend/internal/audit"
	"github.com/labeldesk/backend/internal/auth"
	"github.com/labeldesk/backend/internal/config"
	"github.com/labeldesk/backend/internal/database"
	"github.com/labeldesk/backend/internal/devices"
	"github.com/labeldesk/backend/internal/handlers"
	"github.com/labeldesk/backend/internal/handlers/respond"
	"github.com/labeldesk/backend/internal/labels"
	"github.com/labeldesk/backend/internal/ledger"
	"github.com/labeldesk/backend/internal/logger"
	mW "github.com/labeldesk/backend/internal/middleware"
	"github.com/labeldesk/backend/internal/security"
	"github.com/labeldesk/backend/internal/tokens"
	"github.com/labeldesk/backend/internal/tracking"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.RunMigrations(db, cfg.Database.MigrationsPath); err != nil {
		log.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	rdb, err := database.ConnectRedis(ctx, cfg.Redis)
	cancel()
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()

	hasher := security.NewHasher(cfg.Argon2)
	auditSink := audit.MultiSink{audit.NewPostgresSink(db), audit.NewLogSink(log)}

	ledgerService := ledger.NewService(ledger.NewPostgresStore(db), log)

	guard := tokens.NewGuard(tokens.NewPostgresStore(db), hasher, tokens.Config{
		TTL:         cfg.Refresh.TTL,
		SecretBytes: cfg.Refresh.SecretBytes,
	}, log)

	deviceService := devices.NewService(devices.NewPostgresStore(db), rdb, hasher,
		devices.NewLogNotifier(log), guard, auditSink, cfg.OTP, log)

	accessTokens := auth.NewAccessTokens(cfg.JWT)
	authService := auth.NewService(auth.NewPostgresAccounts(db), deviceService, guard,
		accessTokens, hasher, auditSink, log)

	labelStore := labels.NewPostgresStore(db)
	labelService := labels.NewService(labelStore, ledgerService, tracking.NewQueue(rdb), cfg.Labels.Price, log)

	worker := tracking.NewWorker(rdb, tracking.NewLogActivator(log), labelStore, cfg.Tracking, log)
	workerCtx, stopWorker := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(workerCtx)
	}()

	validator := respond.NewValidator()
	router := handlers.Router{
		Auth:          handlers.NewAuthHandler(authService, validator, log),
		Balance:       handlers.NewBalanceHandler(ledgerService, validator, log),
		Labels:        handlers.NewLabelHandler(labelService, validator, log),
		Devices:       handlers.NewDeviceHandler(deviceService, validator, log),
		Admin:         handlers.NewAdminHandler(ledgerService, validator, log),
		Authenticator: mW.NewAuthenticator(accessTokens),
		AuthLimiter:   mW.NewRateLimiter(cfg.Limits.AuthRPS, cfg.Limits.AuthBurst),
		Ping: func(ctx context.Context) error {
			if err := db.PingContext(ctx); err != nil {
				return err
			}
			return rdb.Ping(ctx).Err()
		},
		RequestTimeout: 60 * time.Second,
	}

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("server shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}
	stopWorker()
	wg.Wait()

	log.Info("server stopped")
}
