package integration

import (
	"context"
	"testing"
	"time"

	appevent "github.com/coridor/backend/internal/application/event"
	appreg "github.com/coridor/backend/internal/application/regularization"
	domainreg "github.com/coridor/backend/internal/domain/regularization"
	"github.com/coridor/backend/internal/domain/shared"
	"github.com/coridor/backend/internal/infrastructure/cache"
	"github.com/coridor/backend/internal/infrastructure/document"
	"github.com/coridor/backend/internal/infrastructure/event"
	"github.com/coridor/backend/internal/infrastructure/persistence"
	"github.com/coridor/backend/internal/infrastructure/storage"
	"github.com/coridor/backend/internal/interfaces/http/handler"
	"github.com/coridor/backend/internal/interfaces/http/router"
	"github.com/coridor/backend/tests/testutil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const documentBaseURL = "http://documents.test"

// app is the service wired the way cmd/server wires it, minus telemetry
type app struct {
	engine    *gin.Engine
	processor *event.OutboxProcessor
	documents *storage.MemoryDocumentStore
	events    *testutil.EventRecorder
}

func newApp(t *testing.T, db *gorm.DB) *app {
	t.Helper()
	log := zap.NewNop()
	ctx := context.Background()

	keys := cache.NewInMemoryIdempotencyStore(time.Minute)
	t.Cleanup(func() { _ = keys.Close() })

	serializer := event.NewRegularizationSerializer()
	outboxRepo := event.NewGormOutboxRepository(db)
	expenseRepo := persistence.NewGormExpenseRepository(db)
	periodRepo := persistence.NewGormFinancialPeriodRepository(db)
	reconciliationRepo := persistence.NewGormReconciliationRepository(db, event.NewOutboxPublisher(serializer, 3))
	conversationRepo := persistence.NewGormConversationRepository(db)
	leaseDirectory := persistence.NewGormLeaseDirectory(db)
	documentStore := storage.NewMemoryDocumentStore(documentBaseURL)

	bus := event.NewInMemoryEventBus(log)
	builder := domainreg.NewStatementBuilder(
		domainreg.NewProvisionAllocator(periodRepo),
		domainreg.NewRecoverableExpenseAggregator(expenseRepo, domainreg.NewExpenseClassifier()),
		domainreg.WithCommittedWindowFinder(reconciliationRepo),
	)
	statementService := appreg.NewStatementService(builder, leaseDirectory, 5*time.Second, log)
	statementService.SetExporter(document.NewXLSXExporter())
	commitService := appreg.NewCommitService(reconciliationRepo, leaseDirectory, keys, appreg.CommitConfig{
		Timeout: 5 * time.Second,
	}, log)
	documentService := appreg.NewDocumentService(leaseDirectory, conversationRepo, log)
	documentService.SetEventPublisher(bus)

	documentHandler := appreg.NewCommittedDocumentHandler(appreg.CommittedDocumentDeps{
		Reconciliations: reconciliationRepo,
		Expenses:        expenseRepo,
		Periods:         periodRepo,
		Leases:          leaseDirectory,
		Renderer:        document.NewPDFRenderer("Coridor"),
		Store:           documentStore,
		Documents:       documentService,
	}, log)
	bus.Subscribe(event.NewIdempotentHandler("regularization-documents", documentHandler, keys, shared.IdempotencyConfig{
		TTL:     time.Hour,
		Enabled: true,
	}, log), documentHandler.EventTypes()...)
	events := testutil.NewEventRecorder()
	bus.Subscribe(events)
	require.NoError(t, bus.Start(ctx))
	t.Cleanup(func() { _ = bus.Stop(context.Background()) })

	processor := event.NewOutboxProcessor(outboxRepo, bus, serializer, event.DefaultOutboxProcessorConfig(), log)

	engine := router.NewEngine(router.EngineConfig{ServiceName: "coridor-test", Logger: log})
	router.NewRouter(engine).Register(
		handler.NewRegularizationHandler(statementService, commitService, documentService,
			appreg.NewReconciliationService(reconciliationRepo)),
		handler.NewExpenseHandler(appreg.NewExpenseService(expenseRepo, leaseDirectory, log)),
		handler.NewLeaseHandler(appreg.NewLeaseService(leaseDirectory), appreg.NewPeriodService(periodRepo, leaseDirectory, log)),
		handler.NewOutboxHandler(appevent.NewOutboxService(outboxRepo, log)),
	).Setup()

	return &app{engine: engine, processor: processor, documents: documentStore, events: events}
}
