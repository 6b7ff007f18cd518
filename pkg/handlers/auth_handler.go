package handlers

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/melontrace/melontrace-engine/pkg/audit"
	"github.com/melontrace/melontrace-engine/pkg/auth"
	"github.com/melontrace/melontrace-engine/pkg/middleware"
)

// AuthHandler mints development tokens and reports the caller's identity.
type AuthHandler struct {
	issuer         *auth.TokenIssuer
	cookieSettings auth.CookieSettings
	auditor        *audit.SecurityAuditor
	logger         *zap.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(issuer *auth.TokenIssuer, cookieSettings auth.CookieSettings, auditor *audit.SecurityAuditor, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		issuer:         issuer,
		cookieSettings: cookieSettings,
		auditor:        auditor,
		logger:         logger.Named("auth-handler"),
	}
}

// RegisterRoutes registers the auth routes. The token endpoint is only
// mounted when allowTokenIssue is set, which main restricts to env=local.
func (h *AuthHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, allowTokenIssue bool) {
	if allowTokenIssue {
		mux.HandleFunc("POST /api/auth/token", h.IssueToken)
	}
	mux.HandleFunc("GET /api/auth/me", authMiddleware.RequireAuth(h.Me))
}

type issueTokenRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	Name   string `json:"name"`
}

type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IssueToken handles POST /api/auth/token
// Sets the auth cookie and returns the token for API clients.
func (h *AuthHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var req issueTokenRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" || !auth.ValidRole(req.Role) {
		writeError(w, http.StatusBadRequest, "invalid_request", "user_id and a valid role (farmer, enterprise, gov) are required", h.logger)
		return
	}

	token, expiresAt, err := h.issuer.Issue(req.UserID, req.Role, req.Name)
	if err != nil {
		h.logger.Error("Failed to issue token", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "token_issue_failed", "Failed to issue token", h.logger)
		return
	}

	h.auditor.LogTokenIssued(r.Context(), req.UserID, req.Role, middleware.ClientIP(r))

	http.SetCookie(w, auth.TokenCookie(token, expiresAt, h.cookieSettings))
	writeData(w, http.StatusOK, tokenResponse{Token: token, ExpiresAt: expiresAt}, h.logger)
}

type meResponse struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	Name   string `json:"name,omitempty"`
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.GetClaims(r.Context())
	if !ok || claims == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required", h.logger)
		return
	}

	writeData(w, http.StatusOK, meResponse{
		UserID: claims.Subject,
		Role:   claims.Role,
		Name:   claims.Name,
	}, h.logger)
}
