package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"voiceconsole/internal/audit"
	"voiceconsole/internal/auth"
	"voiceconsole/internal/calls"
	"voiceconsole/internal/config"
	"voiceconsole/internal/costmodel"
	"voiceconsole/internal/dispatch"
	"voiceconsole/internal/httpapi"
	"voiceconsole/internal/ledger"
	"voiceconsole/internal/reporting"
	"voiceconsole/internal/telephony"
	"voiceconsole/pkg/logger"
	"voiceconsole/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env, "api")
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	// Domain wiring, bottom-up: ledger -> state machine -> dispatch.
	ledgerSvc := ledger.NewService(ledger.NewPostgresRepository(db), costmodel.DefaultRateCard())
	callsRepo := calls.NewPostgresRepository(db)
	machine := calls.NewStateMachine(callsRepo, ledgerSvc, log)

	auditSvc := audit.NewService(audit.NewPostgresRepo(db))
	reportsSvc := reporting.NewService(reporting.NewPostgresRepo(db))

	provider := telephony.NewTwilioProvider(&cfg)
	dispatchSvc := dispatch.NewService(
		provider,
		machine,
		callsRepo,
		dispatch.NewRedisLimiter(rdb, cfg.Dispatch.BatchCapTTL),
		dispatch.NewMetrics("voiceconsole_dispatch", prometheus.DefaultRegisterer),
		cfg.Dispatch,
		cfg.Twilio.FromNumber,
		log,
	)
	progress := dispatch.NewProgressPublisher(rdb, log)

	handlers := httpapi.Handlers{
		Auth:             authManager,
		Ledger:           ledgerSvc,
		Calls:            callsRepo,
		Dispatch:         dispatchSvc,
		Reports:          reportsSvc,
		Audit:            auditSvc,
		ProgressObserver: progress.Observer(rootCtx),
	}
	webhooks := telephony.WebhookHandler{
		Machine:        machine,
		Audit:          auditSvc,
		MediaStreamURL: cfg.MediaStreamURL(),
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, routeDeps{
		db:         db,
		handlers:   handlers,
		webhooks:   webhooks,
		authMW:     auth.RequireAccessToken(authManager),
		creditGate: ledger.RequireSufficientCredits(ledgerSvc),
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}
