package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/melontrace/melontrace-engine/pkg/middleware"
	"github.com/melontrace/melontrace-engine/pkg/services"
)

// FeedbackHandler handles public consumer feedback.
type FeedbackHandler struct {
	feedbackService services.FeedbackService
	logger          *zap.Logger
}

// NewFeedbackHandler creates a new feedback handler.
func NewFeedbackHandler(feedbackService services.FeedbackService, logger *zap.Logger) *FeedbackHandler {
	return &FeedbackHandler{
		feedbackService: feedbackService,
		logger:          logger.Named("feedback-handler"),
	}
}

// RegisterRoutes registers the feedback route. It requires no authentication.
func (h *FeedbackHandler) RegisterRoutes(mux *http.ServeMux, scope ScopeMiddleware) {
	mux.HandleFunc("POST /api/batches/{bid}/feedback", scope(h.Submit))
}

const feedbackThanks = "感谢您的评价！"

type submitFeedbackRequest struct {
	Rating   int    `json:"rating"`
	Content  string `json:"content"`
	Consumer string `json:"consumer"`
}

// Submit handles POST /api/batches/{bid}/feedback
func (h *FeedbackHandler) Submit(w http.ResponseWriter, r *http.Request) {
	batchID, ok := ParseBatchID(w, r, h.logger)
	if !ok {
		return
	}

	var req submitFeedbackRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	feedback, err := h.feedbackService.Submit(r.Context(), batchID, services.FeedbackInput{
		Rating:   req.Rating,
		Content:  req.Content,
		Consumer: req.Consumer,
		ClientIP: middleware.ClientIP(r),
	})
	if err != nil {
		writeServiceError(w, err, "submit_feedback_failed", h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusCreated, ApiResponse{
		Success: true,
		Data:    feedback,
		Message: feedbackThanks,
	}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
