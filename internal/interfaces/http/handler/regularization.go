package handler

import (
	"context"
	"net/http"

	appreg "github.com/coridor/backend/internal/application/regularization"
	"github.com/coridor/backend/internal/interfaces/http/dto"
	"github.com/coridor/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// IdempotencyKeyHeader lets clients retry a commit safely
const IdempotencyKeyHeader = "Idempotency-Key"

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// StatementService previews regularization statements
type StatementService interface {
	Preview(ctx context.Context, leaseID, propertyID uuid.UUID, year int) (*appreg.StatementResponse, error)
	ExportXLSX(ctx context.Context, leaseID, propertyID uuid.UUID, year int) ([]byte, string, error)
}

// CommitService commits approved statements
type CommitService interface {
	Commit(ctx context.Context, req appreg.CommitRequest, idempotencyKey string) (*appreg.CommitResponse, error)
}

// DocumentService posts regularization documents to lease conversations
type DocumentService interface {
	Send(ctx context.Context, req appreg.SendDocumentRequest) (*appreg.SendDocumentResponse, error)
}

// ReconciliationService reads committed regularizations
type ReconciliationService interface {
	Get(ctx context.Context, id uuid.UUID) (*appreg.ReconciliationResponse, error)
	ListByLease(ctx context.Context, leaseID uuid.UUID) ([]appreg.ReconciliationResponse, error)
}

// RegularizationHandler serves statement previews, commits, documents and
// the reconciliation audit trail
type RegularizationHandler struct {
	BaseHandler
	statements      StatementService
	commits         CommitService
	documents       DocumentService
	reconciliations ReconciliationService
}

// NewRegularizationHandler creates a RegularizationHandler
func NewRegularizationHandler(
	statements StatementService,
	commits CommitService,
	documents DocumentService,
	reconciliations ReconciliationService,
) *RegularizationHandler {
	return &RegularizationHandler{
		statements:      statements,
		commits:         commits,
		documents:       documents,
		reconciliations: reconciliations,
	}
}

// RegisterRoutes mounts the regularization endpoints
func (h *RegularizationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	leases := rg.Group("/leases/:lease_id/regularizations")
	leases.GET("/preview", h.Preview)
	leases.GET("/preview.xlsx", h.ExportPreview)
	leases.POST("", h.Commit)
	leases.GET("", h.ListReconciliations)
	leases.POST("/documents", h.SendDocument)

	rg.GET("/reconciliations/:id", h.GetReconciliation)
}

// Preview computes the statement of a lease and year without saving it.
// GET /leases/:lease_id/regularizations/preview?property_id=&year=
func (h *RegularizationHandler) Preview(c *gin.Context) {
	leaseID, propertyID, year, ok := h.statementParams(c)
	if !ok {
		return
	}
	stmt, err := h.statements.Preview(c.Request.Context(), leaseID, propertyID, year)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, stmt)
}

// ExportPreview downloads the preview as a spreadsheet.
// GET /leases/:lease_id/regularizations/preview.xlsx?property_id=&year=
func (h *RegularizationHandler) ExportPreview(c *gin.Context) {
	leaseID, propertyID, year, ok := h.statementParams(c)
	if !ok {
		return
	}
	data, filename, err := h.statements.ExportXLSX(c.Request.Context(), leaseID, propertyID, year)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, xlsxContentType, data)
}

// Commit saves an approved statement and locks its expenses.
// POST /leases/:lease_id/regularizations
func (h *RegularizationHandler) Commit(c *gin.Context) {
	leaseID, ok := h.pathUUID(c, "lease_id")
	if !ok {
		return
	}
	var req appreg.CommitRequest
	if !h.bindJSON(c, &req) {
		return
	}
	req.LeaseID = leaseID

	resp, err := h.commits.Commit(c.Request.Context(), req, c.GetHeader(IdempotencyKeyHeader))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	if resp.Replayed {
		h.Success(c, resp)
		return
	}
	h.Created(c, resp)
}

// ListReconciliations lists the committed regularizations of a lease,
// newest first.
// GET /leases/:lease_id/regularizations
func (h *RegularizationHandler) ListReconciliations(c *gin.Context) {
	leaseID, ok := h.pathUUID(c, "lease_id")
	if !ok {
		return
	}
	list, err := h.reconciliations.ListByLease(c.Request.Context(), leaseID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, list)
}

// GetReconciliation returns one committed regularization with its expenses.
// GET /reconciliations/:id
func (h *RegularizationHandler) GetReconciliation(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	rec, err := h.reconciliations.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, rec)
}

// SendDocument posts a document link to the lease's conversation.
// POST /leases/:lease_id/regularizations/documents
func (h *RegularizationHandler) SendDocument(c *gin.Context) {
	leaseID, ok := h.pathUUID(c, "lease_id")
	if !ok {
		return
	}
	var req appreg.SendDocumentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	req.LeaseID = leaseID

	resp, err := h.documents.Send(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, resp)
}

func (h *RegularizationHandler) statementParams(c *gin.Context) (uuid.UUID, uuid.UUID, int, bool) {
	leaseID, ok := h.pathUUID(c, "lease_id")
	if !ok {
		return uuid.Nil, uuid.Nil, 0, false
	}
	var q dto.StatementQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		middleware.HandleValidationError(c, err)
		return uuid.Nil, uuid.Nil, 0, false
	}
	return leaseID, uuid.MustParse(q.PropertyID), q.Year, true
}
