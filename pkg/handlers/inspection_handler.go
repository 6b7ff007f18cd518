package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/melontrace/melontrace-engine/pkg/auth"
	"github.com/melontrace/melontrace-engine/pkg/models"
	"github.com/melontrace/melontrace-engine/pkg/services"
)

// InspectionHandler handles inspection HTTP requests.
type InspectionHandler struct {
	inspectionService services.InspectionService
	logger            *zap.Logger
}

// NewInspectionHandler creates a new inspection handler.
func NewInspectionHandler(inspectionService services.InspectionService, logger *zap.Logger) *InspectionHandler {
	return &InspectionHandler{
		inspectionService: inspectionService,
		logger:            logger.Named("inspection-handler"),
	}
}

// RegisterRoutes registers the inspection handler's routes on the given mux.
func (h *InspectionHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scope ScopeMiddleware) {
	mux.HandleFunc("GET /api/batches/{bid}/inspections", authMiddleware.RequireAuth(scope(h.List)))
	mux.HandleFunc("POST /api/batches/{bid}/inspections",
		authMiddleware.RequireRole(inspectorRoles...)(scope(h.Create)))
	mux.HandleFunc("DELETE /api/inspections/{iid}",
		authMiddleware.RequireRole(reviewerRoles...)(scope(h.Delete)))
}

type createInspectionRequest struct {
	Stage     string `json:"stage"`
	Result    string `json:"result"`
	Inspector string `json:"inspector"`
	Sugar     string `json:"sugar"`
	Pesticide string `json:"pesticide"`
	Notes     string `json:"notes"`
}

// Create handles POST /api/batches/{bid}/inspections
// The response carries both the inspection and the alert check it triggered.
func (h *InspectionHandler) Create(w http.ResponseWriter, r *http.Request) {
	batchID, ok := ParseBatchID(w, r, h.logger)
	if !ok {
		return
	}

	var req createInspectionRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	inspector := req.Inspector
	if inspector == "" {
		if claims, ok := auth.GetClaims(r.Context()); ok && claims.Name != "" {
			inspector = claims.Name
		}
	}

	result, err := h.inspectionService.Create(r.Context(), batchID, services.InspectionInput{
		Stage:     req.Stage,
		Result:    req.Result,
		Inspector: inspector,
		Sugar:     req.Sugar,
		Pesticide: req.Pesticide,
		Notes:     req.Notes,
	})
	if err != nil {
		writeServiceError(w, err, "create_inspection_failed", h.logger)
		return
	}

	writeData(w, http.StatusCreated, result, h.logger)
}

// List handles GET /api/batches/{bid}/inspections
func (h *InspectionHandler) List(w http.ResponseWriter, r *http.Request) {
	batchID, ok := ParseBatchID(w, r, h.logger)
	if !ok {
		return
	}

	inspections, err := h.inspectionService.ListByBatch(r.Context(), batchID)
	if err != nil {
		writeServiceError(w, err, "list_inspections_failed", h.logger)
		return
	}
	if inspections == nil {
		inspections = make([]*models.Inspection, 0)
	}

	writeData(w, http.StatusOK, inspections, h.logger)
}

// Delete handles DELETE /api/inspections/{iid}
func (h *InspectionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	inspectionID, ok := ParseInspectionID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.inspectionService.Delete(r.Context(), inspectionID); err != nil {
		writeServiceError(w, err, "delete_inspection_failed", h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Message: "Inspection deleted",
	}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
