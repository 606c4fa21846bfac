package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/loomworks/erpconsole/internal/app"
	"github.com/loomworks/erpconsole/internal/audit"
	audithttp "github.com/loomworks/erpconsole/internal/audit/http"
	"github.com/loomworks/erpconsole/internal/auth"
	"github.com/loomworks/erpconsole/internal/console"
	"github.com/loomworks/erpconsole/internal/masterdata/codebook"
	"github.com/loomworks/erpconsole/internal/observability"
	"github.com/loomworks/erpconsole/internal/platform/cache"
	"github.com/loomworks/erpconsole/internal/platform/db"
	"github.com/loomworks/erpconsole/internal/rbac"
	"github.com/loomworks/erpconsole/internal/shared"
	"github.com/loomworks/erpconsole/internal/view"
	"github.com/loomworks/erpconsole/jobs"
)

const demoUserID = 1

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	var dbpool *pgxpool.Pool
	if !cfg.DemoMode {
		dbpool, err = db.New(ctx, cfg.PGDSN, db.Options{MaxConns: cfg.PGMaxConns})
		if err != nil {
			logger.Error("connect postgres", slog.Any("error", err))
			os.Exit(1)
		}
		defer dbpool.Close()
	} else {
		logger.Warn("demo mode: code books are served from memory", slog.String("email", cfg.DemoEmail))
	}

	redisClient, err := cache.New(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "erp_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}
	layout := &view.Layout{CSRF: csrfManager}

	activity := shared.NewActivity()
	metrics := observability.NewMetrics()
	metrics.ObserveInFlight(func() float64 { return float64(activity.InFlight()) })

	var (
		authRepo  auth.Repository
		rbacStore rbac.Store
		auditor   codebook.Auditor
		history   audit.Repository
	)
	if cfg.DemoMode {
		user, err := auth.DemoUser(demoUserID, cfg.DemoEmail, cfg.DemoPassword)
		if err != nil {
			logger.Error("demo user", slog.Any("error", err))
			os.Exit(1)
		}
		authRepo = auth.NewMemoryRepository(user)
		rbacStore = rbac.DemoStore(demoUserID)
		memLog := audit.NewMemoryLog()
		auditor, history = memLog, memLog
	} else {
		authRepo = auth.NewRepository(dbpool)
		rbacStore = rbac.NewPgStore(dbpool)
		auditor = shared.NewAuditLogger(dbpool)
		history = audit.NewPgRepository(dbpool)
	}
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, templates, layout, sessionManager)
	authAPIHandler := auth.NewAPIHandler(logger, authService, sessionManager)

	rbacService := rbac.NewService(rbacStore, redisClient, cfg.CacheTTL)
	rbacMiddleware := rbac.Middleware{Service: rbacService, Logger: logger}

	listCache := cache.NewVersioned(redisClient, "erpconsole", cfg.CacheTTL)
	if err := listCache.ListenForInvalidation(ctx, func(ns string, ver int64) {
		logger.Debug("code book changed", slog.String("book", ns), slog.Int64("generation", ver))
	}); err != nil {
		logger.Warn("cache invalidation listener", slog.Any("error", err))
	}

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
	jobClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	registry, err := console.NewRegistry(codebook.Deps{
		Logger: logger,
		Pool:   dbpool,
		Service: codebook.ServiceDeps{
			Cache:    listCache,
			Audit:    auditor,
			Metrics:  metrics,
			Exporter: jobClient,
		},
		Console: codebook.ConsoleDeps{
			Templates: templates,
			Layout:    layout,
			RBAC:      rbacMiddleware,
			PageSize:  cfg.ConsolePageSize,
			Window:    cfg.ConsoleWindow,
		},
	})
	if err != nil {
		logger.Error("register code books", slog.Any("error", err))
		os.Exit(1)
	}
	layout.Nav = console.Nav(registry)

	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		CSRFManager:        csrfManager,
		Activity:           activity,
		AuthHandler:        authHandler,
		AuthAPIHandler:     authAPIHandler,
		ConsoleHandler:     console.NewHandler(logger, registry, templates, layout, rbacMiddleware, cfg.AppEnv),
		Books:              registry,
		PermissionsHandler: rbac.NewPermissionsHandler(logger, rbacService, templates, layout, rbacMiddleware),
		AuditHandler:       audithttp.NewHandler(logger, audit.NewService(history), templates, layout, rbacMiddleware, registry.Keys(), console.BasePath),
		JobHandler:         jobs.NewHandler(inspector, logger),
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.Any("books", registry.Keys()))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
