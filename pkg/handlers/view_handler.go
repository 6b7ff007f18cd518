package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/melontrace/melontrace-engine/pkg/auth"
	"github.com/melontrace/melontrace-engine/pkg/services"
)

// ViewHandler serves the public trace page and the admin dashboard payloads.
type ViewHandler struct {
	viewService services.ViewService
	logger      *zap.Logger
}

// NewViewHandler creates a new view handler.
func NewViewHandler(viewService services.ViewService, logger *zap.Logger) *ViewHandler {
	return &ViewHandler{
		viewService: viewService,
		logger:      logger.Named("view-handler"),
	}
}

// RegisterRoutes registers the view routes. The trace page is public.
func (h *ViewHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scope ScopeMiddleware) {
	mux.HandleFunc("GET /api/trace/{batch_no}", scope(h.Trace))
	mux.HandleFunc("GET /api/dashboard", authMiddleware.RequireRole(inspectorRoles...)(scope(h.Dashboard)))
}

// Trace handles GET /api/trace/{batch_no}
func (h *ViewHandler) Trace(w http.ResponseWriter, r *http.Request) {
	batchNo := strings.TrimSpace(r.PathValue("batch_no"))
	if batchNo == "" {
		writeError(w, http.StatusBadRequest, "invalid_batch_no", "Batch number is required", h.logger)
		return
	}

	view, err := h.viewService.Trace(r.Context(), batchNo)
	if err != nil {
		writeServiceError(w, err, "trace_failed", h.logger)
		return
	}

	writeData(w, http.StatusOK, view, h.logger)
}

// Dashboard handles GET /api/dashboard
func (h *ViewHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	view, err := h.viewService.Dashboard(r.Context())
	if err != nil {
		writeServiceError(w, err, "dashboard_failed", h.logger)
		return
	}

	writeData(w, http.StatusOK, view, h.logger)
}
