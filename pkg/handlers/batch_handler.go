package handlers

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/melontrace/melontrace-engine/pkg/auth"
	"github.com/melontrace/melontrace-engine/pkg/models"
	"github.com/melontrace/melontrace-engine/pkg/services"
)

// BatchHandler handles batch HTTP requests.
type BatchHandler struct {
	batchService services.BatchService
	logger       *zap.Logger
}

// NewBatchHandler creates a new batch handler.
func NewBatchHandler(batchService services.BatchService, logger *zap.Logger) *BatchHandler {
	return &BatchHandler{
		batchService: batchService,
		logger:       logger.Named("batch-handler"),
	}
}

// RegisterRoutes registers the batch handler's routes on the given mux.
func (h *BatchHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scope ScopeMiddleware) {
	base := "/api/batches"

	mux.HandleFunc("GET "+base, authMiddleware.RequireAuth(scope(h.List)))
	mux.HandleFunc("POST "+base, authMiddleware.RequireAuth(scope(h.Create)))
	mux.HandleFunc("GET "+base+"/{bid}", authMiddleware.RequireAuth(scope(h.Get)))
	mux.HandleFunc("DELETE "+base+"/{bid}",
		authMiddleware.RequireRole(reviewerRoles...)(scope(h.Delete)))
	mux.HandleFunc("POST "+base+"/{bid}/approve",
		authMiddleware.RequireRole(reviewerRoles...)(scope(h.Approve)))
	mux.HandleFunc("POST "+base+"/{bid}/reject",
		authMiddleware.RequireRole(reviewerRoles...)(scope(h.Reject)))
}

type createBatchRequest struct {
	Variety    string `json:"variety"`
	Location   string `json:"location"`
	SowingDate string `json:"sowing_date"` // YYYY-MM-DD or RFC3339
}

// parseSowingDate accepts a calendar date or a full RFC3339 timestamp.
func parseSowingDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// Create handles POST /api/batches
func (h *BatchHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createBatchRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	sowingDate, ok := parseSowingDate(req.SowingDate)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_sowing_date", "Sowing date must be YYYY-MM-DD", h.logger)
		return
	}

	batch, err := h.batchService.Create(r.Context(), services.BatchInput{
		Variety:    req.Variety,
		Location:   req.Location,
		SowingDate: sowingDate,
	})
	if err != nil {
		writeServiceError(w, err, "create_batch_failed", h.logger)
		return
	}

	writeData(w, http.StatusCreated, batch, h.logger)
}

// List handles GET /api/batches
func (h *BatchHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePage(r)
	filters := models.BatchFilters{
		Status: r.URL.Query().Get("status"),
		Limit:  limit,
		Offset: offset,
	}

	batches, total, err := h.batchService.List(r.Context(), filters)
	if err != nil {
		writeServiceError(w, err, "list_batches_failed", h.logger)
		return
	}
	if batches == nil {
		batches = make([]*models.Batch, 0)
	}

	writeData(w, http.StatusOK, PaginatedResponse{
		Items:  batches,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	}, h.logger)
}

// Get handles GET /api/batches/{bid}
func (h *BatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	batchID, ok := ParseBatchID(w, r, h.logger)
	if !ok {
		return
	}

	batch, err := h.batchService.GetByID(r.Context(), batchID)
	if err != nil {
		writeServiceError(w, err, "get_batch_failed", h.logger)
		return
	}

	writeData(w, http.StatusOK, batch, h.logger)
}

// Approve handles POST /api/batches/{bid}/approve
func (h *BatchHandler) Approve(w http.ResponseWriter, r *http.Request) {
	batchID, ok := ParseBatchID(w, r, h.logger)
	if !ok {
		return
	}

	batch, err := h.batchService.Approve(r.Context(), batchID)
	if err != nil {
		writeServiceError(w, err, "approve_batch_failed", h.logger)
		return
	}

	writeData(w, http.StatusOK, batch, h.logger)
}

// Reject handles POST /api/batches/{bid}/reject
func (h *BatchHandler) Reject(w http.ResponseWriter, r *http.Request) {
	batchID, ok := ParseBatchID(w, r, h.logger)
	if !ok {
		return
	}

	batch, err := h.batchService.Reject(r.Context(), batchID)
	if err != nil {
		writeServiceError(w, err, "reject_batch_failed", h.logger)
		return
	}

	writeData(w, http.StatusOK, batch, h.logger)
}

// Delete handles DELETE /api/batches/{bid}
func (h *BatchHandler) Delete(w http.ResponseWriter, r *http.Request) {
	batchID, ok := ParseBatchID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.batchService.Delete(r.Context(), batchID); err != nil {
		writeServiceError(w, err, "delete_batch_failed", h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Message: "Batch deleted",
	}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
