package handlers

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Page size bounds for list endpoints.
const (
	defaultPageLimit = 50
	maxPageLimit     = 200
)

// ParseBatchID extracts and validates the batch ID from the request path.
// Returns the parsed UUID and true on success, or uuid.Nil and false on error
// (after writing an error response).
// Expects path parameter: bid
func ParseBatchID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	return parseUUID(w, r, "bid", "invalid_batch_id", "Invalid batch ID format", logger)
}

// ParseInspectionID extracts and validates the inspection ID from the request path.
// Expects path parameter: iid
func ParseInspectionID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	return parseUUID(w, r, "iid", "invalid_inspection_id", "Invalid inspection ID format", logger)
}

// ParseLogisticsID extracts and validates the logistics record ID from the request path.
// Expects path parameter: lid
func ParseLogisticsID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	return parseUUID(w, r, "lid", "invalid_logistics_id", "Invalid logistics ID format", logger)
}

// ParseAlertID extracts and validates the alert ID from the request path.
// Expects path parameter: aid
func ParseAlertID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	return parseUUID(w, r, "aid", "invalid_alert_id", "Invalid alert ID format", logger)
}

// parseUUID is the internal helper that does the actual parsing work.
func parseUUID(w http.ResponseWriter, r *http.Request, pathParam, errorCode, errorMessage string, logger *zap.Logger) (uuid.UUID, bool) {
	idStr := r.PathValue(pathParam)
	id, err := uuid.Parse(idStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, errorCode, errorMessage, logger)
		return uuid.Nil, false
	}
	return id, true
}

// parsePage reads limit and offset query parameters. Invalid values fall back
// to the defaults and limit is capped at maxPageLimit.
func parsePage(r *http.Request) (limit, offset int) {
	limit = defaultPageLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = min(n, maxPageLimit)
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
