package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/melontrace/melontrace-engine/pkg/auth"
	"github.com/melontrace/melontrace-engine/pkg/models"
	"github.com/melontrace/melontrace-engine/pkg/services"
)

// LogisticsHandler handles logistics HTTP requests.
type LogisticsHandler struct {
	logisticsService services.LogisticsService
	logger           *zap.Logger
}

// NewLogisticsHandler creates a new logistics handler.
func NewLogisticsHandler(logisticsService services.LogisticsService, logger *zap.Logger) *LogisticsHandler {
	return &LogisticsHandler{
		logisticsService: logisticsService,
		logger:           logger.Named("logistics-handler"),
	}
}

// RegisterRoutes registers the logistics handler's routes on the given mux.
func (h *LogisticsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scope ScopeMiddleware) {
	mux.HandleFunc("GET /api/batches/{bid}/logistics", authMiddleware.RequireAuth(scope(h.List)))
	mux.HandleFunc("POST /api/batches/{bid}/logistics", authMiddleware.RequireAuth(scope(h.Create)))
	mux.HandleFunc("DELETE /api/logistics/{lid}",
		authMiddleware.RequireRole(inspectorRoles...)(scope(h.Delete)))
}

// optionalFloat decodes a JSON number, a numeric string, or blank/null as absent.
type optionalFloat struct {
	value *float64
}

func (f *optionalFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("not a number: %q", s)
		}
		f.value = &v
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	f.value = &v
	return nil
}

type createLogisticsRequest struct {
	Stage         string        `json:"stage"`
	Operator      string        `json:"operator"`
	Location      string        `json:"location"`
	Temperature   optionalFloat `json:"temperature"`
	Humidity      optionalFloat `json:"humidity"`
	VehiclePlate  string        `json:"vehicle_plate"`
	VehicleDriver string        `json:"vehicle_driver"`
	VehiclePhone  string        `json:"vehicle_phone"`
	RouteFrom     string        `json:"route_from"`
	RouteTo       string        `json:"route_to"`
	RouteDistance optionalFloat `json:"route_distance"`
	Notes         string        `json:"notes"`
}

// Create handles POST /api/batches/{bid}/logistics
func (h *LogisticsHandler) Create(w http.ResponseWriter, r *http.Request) {
	batchID, ok := ParseBatchID(w, r, h.logger)
	if !ok {
		return
	}

	var req createLogisticsRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	record, err := h.logisticsService.Create(r.Context(), batchID, services.LogisticsInput{
		Stage:         req.Stage,
		Operator:      req.Operator,
		Location:      req.Location,
		Temperature:   req.Temperature.value,
		Humidity:      req.Humidity.value,
		VehiclePlate:  req.VehiclePlate,
		VehicleDriver: req.VehicleDriver,
		VehiclePhone:  req.VehiclePhone,
		RouteFrom:     req.RouteFrom,
		RouteTo:       req.RouteTo,
		RouteDistance: req.RouteDistance.value,
		Notes:         req.Notes,
	})
	if err != nil {
		writeServiceError(w, err, "create_logistics_failed", h.logger)
		return
	}

	writeData(w, http.StatusCreated, record, h.logger)
}

// List handles GET /api/batches/{bid}/logistics
func (h *LogisticsHandler) List(w http.ResponseWriter, r *http.Request) {
	batchID, ok := ParseBatchID(w, r, h.logger)
	if !ok {
		return
	}

	records, err := h.logisticsService.ListByBatch(r.Context(), batchID)
	if err != nil {
		writeServiceError(w, err, "list_logistics_failed", h.logger)
		return
	}
	if records == nil {
		records = make([]*models.Logistics, 0)
	}

	writeData(w, http.StatusOK, records, h.logger)
}

// Delete handles DELETE /api/logistics/{lid}
func (h *LogisticsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	recordID, ok := ParseLogisticsID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.logisticsService.Delete(r.Context(), recordID); err != nil {
		writeServiceError(w, err, "delete_logistics_failed", h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Message: "Logistics record deleted",
	}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
