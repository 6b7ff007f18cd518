package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/melontrace/melontrace-engine/pkg/auth"
	"github.com/melontrace/melontrace-engine/pkg/models"
	"github.com/melontrace/melontrace-engine/pkg/services"
)

// AlertHandler handles batch alert HTTP requests.
type AlertHandler struct {
	alertService services.AlertService
	logger       *zap.Logger
}

// NewAlertHandler creates a new alert handler.
func NewAlertHandler(alertService services.AlertService, logger *zap.Logger) *AlertHandler {
	return &AlertHandler{
		alertService: alertService,
		logger:       logger.Named("alert-handler"),
	}
}

// RegisterRoutes registers the alert handler's routes on the given mux.
func (h *AlertHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scope ScopeMiddleware) {
	mux.HandleFunc("POST /api/batches/{bid}/alerts/check",
		authMiddleware.RequireRole(inspectorRoles...)(scope(h.Check)))
	mux.HandleFunc("GET /api/batches/{bid}/alerts", authMiddleware.RequireAuth(scope(h.ListByBatch)))

	mux.HandleFunc("GET /api/alerts", authMiddleware.RequireRole(reviewerRoles...)(scope(h.List)))
	mux.HandleFunc("POST /api/alerts", authMiddleware.RequireRole(reviewerRoles...)(scope(h.CreateManual)))
	mux.HandleFunc("GET /api/alerts/{aid}", authMiddleware.RequireRole(inspectorRoles...)(scope(h.Get)))
	mux.HandleFunc("PATCH /api/alerts/{aid}/status",
		authMiddleware.RequireRole(inspectorRoles...)(scope(h.UpdateStatus)))
	mux.HandleFunc("POST /api/alerts/{aid}/disposals",
		authMiddleware.RequireRole(inspectorRoles...)(scope(h.RecordDisposal)))
}

// Check handles POST /api/batches/{bid}/alerts/check
// The body is the engine's CheckResult; a failed check is still a 200.
func (h *AlertHandler) Check(w http.ResponseWriter, r *http.Request) {
	batchID, ok := ParseBatchID(w, r, h.logger)
	if !ok {
		return
	}

	result := h.alertService.CheckBatch(r.Context(), batchID)
	if err := WriteJSON(w, http.StatusOK, result); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// ListByBatch handles GET /api/batches/{bid}/alerts
func (h *AlertHandler) ListByBatch(w http.ResponseWriter, r *http.Request) {
	batchID, ok := ParseBatchID(w, r, h.logger)
	if !ok {
		return
	}

	alerts, err := h.alertService.ListByBatch(r.Context(), batchID)
	if err != nil {
		writeServiceError(w, err, "list_alerts_failed", h.logger)
		return
	}
	if alerts == nil {
		alerts = make([]*models.Alert, 0)
	}

	writeData(w, http.StatusOK, alerts, h.logger)
}

// List handles GET /api/alerts
func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePage(r)
	query := r.URL.Query()
	filters := models.AlertFilters{
		Status:    query.Get("status"),
		AlertType: query.Get("type"),
		Limit:     limit,
		Offset:    offset,
	}
	if v := query.Get("batch_id"); v != "" {
		batchID, err := uuid.Parse(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_batch_id", "Invalid batch ID format", h.logger)
			return
		}
		filters.BatchID = &batchID
	}

	alerts, total, err := h.alertService.List(r.Context(), filters)
	if err != nil {
		writeServiceError(w, err, "list_alerts_failed", h.logger)
		return
	}
	if alerts == nil {
		alerts = make([]*models.Alert, 0)
	}

	writeData(w, http.StatusOK, PaginatedResponse{
		Items:  alerts,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	}, h.logger)
}

// Get handles GET /api/alerts/{aid}
func (h *AlertHandler) Get(w http.ResponseWriter, r *http.Request) {
	alertID, ok := ParseAlertID(w, r, h.logger)
	if !ok {
		return
	}

	alert, err := h.alertService.GetByID(r.Context(), alertID)
	if err != nil {
		writeServiceError(w, err, "get_alert_failed", h.logger)
		return
	}

	writeData(w, http.StatusOK, alert, h.logger)
}

type createAlertRequest struct {
	BatchID     uuid.UUID `json:"batch_id"`
	AlertType   string    `json:"alert_type"`
	AlertLevel  string    `json:"alert_level"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	AssignedTo  string    `json:"assigned_to"`
}

// CreateManual handles POST /api/alerts
func (h *AlertHandler) CreateManual(w http.ResponseWriter, r *http.Request) {
	var req createAlertRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	alert, err := h.alertService.CreateManual(r.Context(), services.ManualAlertInput{
		BatchID:     req.BatchID,
		AlertType:   models.AlertType(req.AlertType),
		AlertLevel:  req.AlertLevel,
		Title:       req.Title,
		Description: req.Description,
		AssignedTo:  req.AssignedTo,
	})
	if err != nil {
		writeServiceError(w, err, "create_alert_failed", h.logger)
		return
	}

	writeData(w, http.StatusCreated, alert, h.logger)
}

type updateAlertStatusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus handles PATCH /api/alerts/{aid}/status
func (h *AlertHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	alertID, ok := ParseAlertID(w, r, h.logger)
	if !ok {
		return
	}

	var req updateAlertStatusRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	alert, err := h.alertService.UpdateStatus(r.Context(), alertID, req.Status)
	if err != nil {
		writeServiceError(w, err, "update_alert_status_failed", h.logger)
		return
	}

	writeData(w, http.StatusOK, alert, h.logger)
}

type recordDisposalRequest struct {
	ResponsibleParty string `json:"responsible_party"`
	ActionTaken      string `json:"action_taken"`
	Result           string `json:"result"`
	Handler          string `json:"handler"`
}

// RecordDisposal handles POST /api/alerts/{aid}/disposals
// The handler defaults to the caller's display name.
func (h *AlertHandler) RecordDisposal(w http.ResponseWriter, r *http.Request) {
	alertID, ok := ParseAlertID(w, r, h.logger)
	if !ok {
		return
	}

	var req recordDisposalRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}
	if req.Handler == "" {
		if claims, ok := auth.GetClaims(r.Context()); ok && claims != nil {
			req.Handler = claims.Name
		}
	}

	disposal, err := h.alertService.RecordDisposal(r.Context(), alertID, services.DisposalInput{
		ResponsibleParty: req.ResponsibleParty,
		ActionTaken:      req.ActionTaken,
		Result:           req.Result,
		Handler:          req.Handler,
	})
	if err != nil {
		writeServiceError(w, err, "record_disposal_failed", h.logger)
		return
	}

	writeData(w, http.StatusCreated, disposal, h.logger)
}
