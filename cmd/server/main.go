package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ledgerapp "github.com/condoportal/backend/internal/application/ledger"
	"github.com/condoportal/backend/internal/infrastructure/cache"
	"github.com/condoportal/backend/internal/infrastructure/config"
	"github.com/condoportal/backend/internal/infrastructure/event"
	"github.com/condoportal/backend/internal/infrastructure/logger"
	"github.com/condoportal/backend/internal/infrastructure/migration"
	"github.com/condoportal/backend/internal/infrastructure/persistence"
	"github.com/condoportal/backend/internal/infrastructure/telemetry"
	"github.com/condoportal/backend/internal/interfaces/http/handler"
	"github.com/condoportal/backend/internal/interfaces/http/middleware"
	"github.com/condoportal/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

const (
	shutdownTimeout = 30 * time.Second
	// checkout is the only endpoint that talks to the card terminal flow
	checkoutRateLimit  = 10
	checkoutRateWindow = time.Minute
)

func main() {
	// A missing .env is fine; real deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logCfg := &logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		Service:    cfg.App.Name,
	}
	log, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()

	// OTLP log export tees every zap entry into the collector
	logProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize log exporter", zap.Error(err))
	}
	if logProvider.IsEnabled() {
		otelCore := telemetry.NewZapOTELCore(logProvider, cfg.Telemetry.ServiceName, logger.ParseLevel(cfg.Log.Level))
		if log, err = logger.New(logCfg, otelCore); err != nil {
			panic("Failed to initialize logger: " + err.Error())
		}
	}
	defer logger.Sync(log)
	zap.ReplaceGlobals(log)

	log.Info("Starting condominium backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer", zap.Error(err))
	}

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         cfg.Telemetry.ProfilingEnabled,
		ServerAddress:   cfg.Telemetry.PyroscopeEndpoint,
		ApplicationName: cfg.Telemetry.ServiceName,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if profiler.IsEnabled() {
		tracerProvider.EnableSpanProfiles()
	}

	// Create GORM logger backed by zap
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh),
		logger.WithConflictClassifier(persistence.IsUniqueViolation))

	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	if err := telemetry.NewDBTracing(telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.App.Env == "development",
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		DBName:          cfg.Database.DBName,
	}, log).Register(db.DB); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}

	caps := resolveCapabilities(cfg, log)
	log.Info("Schema capabilities resolved",
		zap.Uint("version", caps.Version),
		zap.Bool("fine_paid_at", caps.FineDates.PaidAt),
		zap.Bool("fine_issued_at", caps.FineDates.IssuedAt),
	)

	// Initialize repositories
	repos := persistence.NewRepositories(db.DB, caps.FineDates)
	uow := persistence.NewGormUnitOfWork(db.DB, caps.FineDates)
	statementReader := persistence.NewGormStatementReader(db.DB, cfg.Ledger.Timezone, caps.FineDates)

	idempotencyStore, err := cache.NewIdempotencyStore(ctx, cfg.Ledger.IdempotencyBackend, cfg.Redis, log)
	if err != nil {
		log.Fatal("Failed to initialize idempotency store", zap.Error(err))
	}
	defer func() {
		if err := idempotencyStore.Close(); err != nil {
			log.Error("Error closing idempotency store", zap.Error(err))
		}
	}()

	ledgerMetrics, err := telemetry.NewLedgerMetrics(meterProvider.Meter("condo.ledger"), log)
	if err != nil {
		log.Fatal("Failed to create ledger metrics", zap.Error(err))
	}

	// Initialize event bus and handlers
	eventBus := event.NewInMemoryEventBus(log)
	eventBus.Subscribe(event.NewIdempotentHandler(
		event.NewAuditLogHandler(log), idempotencyStore, cfg.Ledger.IdempotencyTTL, log))
	eventBus.Subscribe(event.NewIdempotentHandler(
		event.NewMetricsHandler(ledgerMetrics), idempotencyStore, cfg.Ledger.IdempotencyTTL, log))
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	// Initialize application services
	intakeService := ledgerapp.NewIntakeService(uow, repos, eventBus, ledgerapp.IntakeConfig{
		DefaultMaintenanceFee: cfg.Ledger.DefaultMaintenanceFee,
		CascadeReview:         cfg.Ledger.CascadeReview,
		Location:              cfg.Ledger.Location(),
	})
	agreementService := ledgerapp.NewAgreementService(uow, repos, eventBus, ledgerapp.AgreementConfig{
		DefaultMaintenanceFee: cfg.Ledger.DefaultMaintenanceFee,
		LookbackMonths:        cfg.Ledger.AgreementLookbackMonths,
		Location:              cfg.Ledger.Location(),
	})
	statementService := ledgerapp.NewStatementService(statementReader, ledgerMetrics, cfg.Statement.Parallel)

	// Initialize HTTP handlers
	paymentHandler := handler.NewPaymentHandler(intakeService)
	agreementHandler := handler.NewAgreementHandler(agreementService)
	statementHandler := handler.NewStatementHandler(statementService, cfg.Ledger.Location())

	checks := map[string]handler.Pinger{"database": db}
	if pinger, ok := idempotencyStore.(handler.Pinger); ok {
		checks["idempotency"] = pinger
	}
	systemHandler := handler.NewSystemHandler(cfg.App.Name, version, checks)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Invalid trusted proxies", zap.Error(err))
	}

	// Middleware chain: request ID first so every later log line and span carries it
	engine.Use(middleware.RequestID())
	engine.Use(logger.GinMiddleware(log, "/health"))
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     tracerProvider.IsEnabled(),
	}))
	engine.Use(middleware.SpanEnricher())
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(middleware.HTTPMetrics(meterProvider))
	if profiler.IsEnabled() {
		engine.Use(middleware.Profiling())
	}
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:  cfg.HTTP.CORSAllowOrigins,
		AllowMethods:  cfg.HTTP.CORSAllowMethods,
		AllowHeaders:  cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders: []string{middleware.RequestIDKey},
		MaxAge:        12 * time.Hour,
	}))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	var limiters []*middleware.RateLimiter
	if cfg.HTTP.RateLimitEnabled {
		globalLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		limiters = append(limiters, globalLimiter)
		engine.Use(middleware.RateLimit(globalLimiter))
	}
	checkoutLimiter := middleware.NewRateLimiter(checkoutRateLimit, checkoutRateWindow)
	limiters = append(limiters, checkoutLimiter)
	defer func() {
		for _, l := range limiters {
			l.Close()
		}
	}()

	engine.GET("/health", systemHandler.Health)

	idempotent := middleware.Idempotency(idempotencyStore, cfg.Ledger.IdempotencyTTL)
	checkoutLimit := middleware.RateLimitByKey(checkoutLimiter, func(c *gin.Context) string {
		return "checkout:" + c.ClientIP()
	})

	r := router.NewRouter(engine)

	paymentRoutes := router.NewDomainGroup("pagos", "/pagos")
	paymentRoutes.GET("", paymentHandler.ListPayments)
	paymentRoutes.POST("", idempotent, paymentHandler.CreatePayment)
	paymentRoutes.POST("/checkout", checkoutLimit, idempotent, paymentHandler.Checkout)
	paymentRoutes.GET("/mantenimiento", paymentHandler.ListMaintenance)
	paymentRoutes.POST("/mantenimiento", idempotent, paymentHandler.RecordMaintenance)
	paymentRoutes.GET("/:id", paymentHandler.GetPayment)
	paymentRoutes.PATCH("/:id/estado", paymentHandler.ReviewPayment)

	fineRoutes := router.NewDomainGroup("multas", "/multas")
	fineRoutes.GET("", paymentHandler.ListFines)
	fineRoutes.PATCH("", paymentHandler.UpdateFines)

	agreementRoutes := router.NewDomainGroup("convenios", "/convenios")
	agreementRoutes.POST("/cotizar", agreementHandler.Quote)
	agreementRoutes.POST("/full", idempotent, agreementHandler.Create)
	agreementRoutes.PATCH("/pagos/:id", paymentHandler.UpdateInstallment)
	agreementRoutes.GET("/:id", agreementHandler.Get)

	statementRoutes := router.NewDomainGroup("estado-resultados", "/estado-resultados")
	statementRoutes.GET("", statementHandler.Get)

	systemRoutes := router.NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", systemHandler.GetSystemInfo)
	systemRoutes.GET("/ping", systemHandler.Ping)

	r.Register(paymentRoutes).
		Register(fineRoutes).
		Register(agreementRoutes).
		Register(statementRoutes).
		Register(systemRoutes)
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := eventBus.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping event bus", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down tracer", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down metrics", zap.Error(err))
	}
	if err := profiler.Stop(); err != nil {
		log.Error("Error stopping profiler", zap.Error(err))
	}
	if err := logProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down log exporter", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// resolveCapabilities reads the applied migration version through its own
// connection. Any failure degrades to the legacy multas columns.
func resolveCapabilities(cfg *config.Config, log *zap.Logger) migration.Capabilities {
	var reader migration.VersionReader
	if cfg.Schema.FineDateColumns == "" || cfg.Schema.FineDateColumns == migration.FineDatesAuto {
		m, err := migration.NewFromURL(cfg.Database.DSN(), cfg.Database.MigrationsPath, log)
		if err != nil {
			log.Warn("Cannot read schema version, using legacy fine columns", zap.Error(err))
			return migration.Capabilities{}
		}
		defer func() {
			if err := m.Close(); err != nil {
				log.Warn("Error closing migrator", zap.Error(err))
			}
		}()
		reader = m
	}

	caps, err := migration.ResolveCapabilities(reader, cfg.Schema.FineDateColumns)
	if err != nil {
		log.Warn("Cannot resolve schema capabilities, using legacy fine columns", zap.Error(err))
		return migration.Capabilities{}
	}
	return caps
}
