package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appevent "github.com/coridor/backend/internal/application/event"
	appreg "github.com/coridor/backend/internal/application/regularization"
	"github.com/coridor/backend/internal/domain/regularization"
	"github.com/coridor/backend/internal/domain/shared"
	"github.com/coridor/backend/internal/infrastructure/cache"
	"github.com/coridor/backend/internal/infrastructure/config"
	"github.com/coridor/backend/internal/infrastructure/document"
	"github.com/coridor/backend/internal/infrastructure/event"
	"github.com/coridor/backend/internal/infrastructure/logger"
	"github.com/coridor/backend/internal/infrastructure/metrics"
	"github.com/coridor/backend/internal/infrastructure/persistence"
	"github.com/coridor/backend/internal/infrastructure/persistence/models"
	"github.com/coridor/backend/internal/infrastructure/storage"
	"github.com/coridor/backend/internal/infrastructure/telemetry"
	"github.com/coridor/backend/internal/interfaces/http/handler"
	"github.com/coridor/backend/internal/interfaces/http/middleware"
	"github.com/coridor/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

const documentIssuer = "Coridor"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	logCfg := logger.ForEnvironment(cfg.App.Env, cfg.Log.Level, cfg.Log.Output)
	if cfg.Log.Format == "json" {
		logCfg.Format = "json"
	}
	bootLog, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()

	// OTLP log export tees into the primary logger
	logsProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize log export", zap.Error(err))
	}
	log, err := logger.New(logCfg, logsProvider.Core(logger.ParseLevel(cfg.Log.Level)))
	if err != nil {
		bootLog.Fatal("Failed to initialize logger", zap.Error(err))
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting Coridor regularization engine",
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
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
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
	meter := meterProvider.Meter("github.com/coridor/backend")
	promRegistry := metrics.New()

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh),
		logger.WithSQL(cfg.App.Env != "production"),
	)
	db, err := persistence.NewDatabase(&cfg.Database, persistence.WithLogger(gormLog))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	dbSystem := "postgresql"
	if cfg.Database.Driver == config.DriverSQLite {
		// SQL migrations target postgres; sqlite schemas come from the models
		dbSystem = "sqlite"
		if err := db.DB.AutoMigrate(models.All()...); err != nil {
			log.Fatal("Failed to migrate sqlite database", zap.Error(err))
		}
	}
	if err := telemetry.InstrumentDB(db.DB, telemetry.DBInstrumentationConfig{
		TracingEnabled:  cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		DBSystem:        dbSystem,
		Meter:           meter,
	}, log); err != nil {
		log.Fatal("Failed to instrument database", zap.Error(err))
	}
	log.Info("Database connected", zap.String("driver", cfg.Database.Driver))

	keys, err := cache.NewIdempotencyStore(ctx, cfg.Redis, cfg.Redis.AllowFallback, log)
	if err != nil {
		log.Fatal("Failed to initialize idempotency store", zap.Error(err))
	}

	// Repositories
	serializer := event.NewRegularizationSerializer()
	outboxRepo := event.NewGormOutboxRepository(db.DB)
	outboxPublisher := event.NewOutboxPublisher(serializer, cfg.Event.MaxRetries)
	expenseRepo := persistence.NewGormExpenseRepository(db.DB)
	periodRepo := persistence.NewGormFinancialPeriodRepository(db.DB)
	reconciliationRepo := persistence.NewGormReconciliationRepository(db.DB, outboxPublisher)
	conversationRepo := persistence.NewGormConversationRepository(db.DB)
	leaseDirectory := persistence.NewGormLeaseDirectory(db.DB)

	// Document storage
	var (
		documentStore appreg.DocumentStore
		memoryStore   *storage.MemoryDocumentStore
	)
	if cfg.Storage.Enabled {
		s3Store, err := storage.NewS3DocumentStore(ctx, &cfg.Storage,
			storage.WithLogger(log),
			storage.WithLinkExpiry(cfg.Storage.PresignExpiry),
		)
		if err != nil {
			log.Fatal("Failed to initialize document storage", zap.Error(err))
		}
		if err := s3Store.EnsureBucket(ctx); err != nil {
			log.Fatal("Failed to prepare document bucket", zap.Error(err))
		}
		documentStore = s3Store
	} else {
		log.Warn("Object storage disabled, documents are kept in memory")
		memoryStore = storage.NewMemoryDocumentStore("http://localhost:" + cfg.App.Port + "/documents")
		documentStore = memoryStore
	}

	regMetrics, err := telemetry.NewRegularizationMetrics(telemetry.RegularizationMetricsConfig{
		Meter:   meter,
		Logger:  log,
		Backlog: outboxRepo,
	})
	if err != nil {
		log.Fatal("Failed to register regularization metrics", zap.Error(err))
	}

	// Application services
	bus := event.NewInMemoryEventBus(log)
	builder := regularization.NewStatementBuilder(
		regularization.NewProvisionAllocator(periodRepo),
		regularization.NewRecoverableExpenseAggregator(expenseRepo, regularization.NewExpenseClassifier()),
		regularization.WithCommittedWindowFinder(reconciliationRepo),
	)
	statementService := appreg.NewStatementService(builder, leaseDirectory, cfg.Regularization.StatementTimeout, log)
	statementService.SetExporter(document.NewXLSXExporter())
	statementService.SetMetrics(regMetrics)

	commitService := appreg.NewCommitService(reconciliationRepo, leaseDirectory, keys, appreg.CommitConfig{
		Timeout:        cfg.Regularization.CommitTimeout,
		IdempotencyTTL: cfg.Regularization.IdempotencyTTL,
	}, log)
	commitService.SetMetrics(regMetrics)

	documentService := appreg.NewDocumentService(leaseDirectory, conversationRepo, log)
	documentService.SetEventPublisher(bus)
	documentService.SetMetrics(regMetrics)

	reconciliationService := appreg.NewReconciliationService(reconciliationRepo)
	expenseService := appreg.NewExpenseService(expenseRepo, leaseDirectory, log)
	periodService := appreg.NewPeriodService(periodRepo, leaseDirectory, log)
	leaseService := appreg.NewLeaseService(leaseDirectory)

	// Committed regularizations are rendered and posted once per event
	documentHandler := appreg.NewCommittedDocumentHandler(appreg.CommittedDocumentDeps{
		Reconciliations: reconciliationRepo,
		Expenses:        expenseRepo,
		Periods:         periodRepo,
		Leases:          leaseDirectory,
		Renderer:        document.NewPDFRenderer(documentIssuer),
		Store:           documentStore,
		Documents:       documentService,
	}, log)
	bus.Subscribe(event.NewIdempotentHandler("regularization-documents", documentHandler, keys, shared.IdempotencyConfig{
		TTL:     cfg.Regularization.IdempotencyTTL,
		Enabled: true,
	}, log), documentHandler.EventTypes()...)

	processor := event.NewOutboxProcessor(outboxRepo, bus, serializer, event.OutboxProcessorConfig{
		BatchSize:        cfg.Event.BatchSize,
		PollInterval:     cfg.Event.PollInterval,
		CleanupEnabled:   cfg.Event.CleanupEnabled,
		CleanupRetention: cfg.Event.CleanupRetention,
	}, log, event.WithDeliveryObserver(promRegistry))

	if err := bus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	if cfg.Event.ProcessorEnabled {
		if err := processor.Start(ctx); err != nil {
			log.Fatal("Failed to start outbox processor", zap.Error(err))
		}
	} else {
		log.Warn("Outbox processor disabled, committed documents will not be delivered")
	}
	regMetrics.StartBacklogCollection(ctx)

	// HTTP
	engine := router.NewEngine(router.EngineConfig{
		ServiceName:    cfg.Telemetry.ServiceName,
		Logger:         log,
		TracingEnabled: cfg.Telemetry.Enabled,
		Meter:          meter,
		Observer:       promRegistry,
		Profiling:      middleware.DefaultProfilingConfig(),
		MaxBodyBytes:   middleware.DefaultBodyLimit,
		RequestTimeout: cfg.HTTP.RequestTimeout,
	})

	checks := map[string]handler.Pinger{"database": handler.PingerFunc(db.Ping)}
	if p, ok := keys.(interface{ Ping(context.Context) error }); ok {
		checks["redis"] = handler.PingerFunc(p.Ping)
	}
	handler.NewSystemHandler(version, checks, promRegistry.Handler()).RegisterRoutes(engine)
	if memoryStore != nil {
		engine.GET("/documents/*key", gin.WrapH(http.StripPrefix("/documents", memoryStore)))
	}

	router.NewRouter(engine).
		Register(
			handler.NewRegularizationHandler(statementService, commitService, documentService, reconciliationService),
			handler.NewExpenseHandler(expenseService),
			handler.NewLeaseHandler(leaseService, periodService),
			handler.NewOutboxHandler(appevent.NewOutboxService(outboxRepo, log)),
		).
		Setup()

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

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := processor.Stop(shutdownCtx); err != nil {
		log.Error("Outbox processor did not stop cleanly", zap.Error(err))
	}
	if err := bus.Stop(shutdownCtx); err != nil {
		log.Error("Event bus did not stop cleanly", zap.Error(err))
	}
	regMetrics.Stop()
	if c, ok := keys.(io.Closer); ok {
		if err := c.Close(); err != nil {
			log.Error("Error closing idempotency store", zap.Error(err))
		}
	}
	if err := db.Close(); err != nil {
		log.Error("Error closing database", zap.Error(err))
	}
	if err := profiler.Stop(); err != nil {
		log.Error("Error stopping profiler", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error flushing traces", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error flushing metrics", zap.Error(err))
	}
	if err := logsProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error flushing logs", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
