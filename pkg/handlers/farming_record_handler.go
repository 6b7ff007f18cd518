package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/melontrace/melontrace-engine/pkg/auth"
	"github.com/melontrace/melontrace-engine/pkg/models"
	"github.com/melontrace/melontrace-engine/pkg/services"
)

// FarmingRecordHandler handles field operation records.
type FarmingRecordHandler struct {
	recordService services.FarmingRecordService
	logger        *zap.Logger
}

// NewFarmingRecordHandler creates a new farming record handler.
func NewFarmingRecordHandler(recordService services.FarmingRecordService, logger *zap.Logger) *FarmingRecordHandler {
	return &FarmingRecordHandler{
		recordService: recordService,
		logger:        logger.Named("farming-record-handler"),
	}
}

// RegisterRoutes registers the farming record routes on the given mux.
func (h *FarmingRecordHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scope ScopeMiddleware) {
	mux.HandleFunc("GET /api/batches/{bid}/records", authMiddleware.RequireAuth(scope(h.List)))
	mux.HandleFunc("POST /api/batches/{bid}/records",
		authMiddleware.RequireRole(growerRoles...)(scope(h.Create)))
}

type createFarmingRecordRequest struct {
	ActionType  string `json:"action_type"`
	Description string `json:"description"`
}

// Create handles POST /api/batches/{bid}/records
// The operator is always the authenticated user.
func (h *FarmingRecordHandler) Create(w http.ResponseWriter, r *http.Request) {
	batchID, ok := ParseBatchID(w, r, h.logger)
	if !ok {
		return
	}

	var req createFarmingRecordRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	var operator string
	if claims, ok := auth.GetClaims(r.Context()); ok {
		operator = claims.Name
	}

	record, err := h.recordService.Create(r.Context(), batchID, services.FarmingRecordInput{
		ActionType:  req.ActionType,
		Description: req.Description,
		Operator:    operator,
	})
	if err != nil {
		writeServiceError(w, err, "create_record_failed", h.logger)
		return
	}

	writeData(w, http.StatusCreated, record, h.logger)
}

// List handles GET /api/batches/{bid}/records
func (h *FarmingRecordHandler) List(w http.ResponseWriter, r *http.Request) {
	batchID, ok := ParseBatchID(w, r, h.logger)
	if !ok {
		return
	}

	records, err := h.recordService.ListByBatch(r.Context(), batchID)
	if err != nil {
		writeServiceError(w, err, "list_records_failed", h.logger)
		return
	}
	if records == nil {
		records = make([]*models.FarmingRecord, 0)
	}

	writeData(w, http.StatusOK, records, h.logger)
}
