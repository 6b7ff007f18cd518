package auth

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// DenialRecorder receives role check failures for the security audit trail.
type DenialRecorder interface {
	LogAccessDenied(ctx context.Context, required []string, path, clientIP string)
}

// Middleware provides HTTP authentication middleware.
type Middleware struct {
	authService AuthService
	denials     DenialRecorder
	logger      *zap.Logger
}

// NewMiddleware creates auth middleware. denials may be nil.
func NewMiddleware(authService AuthService, denials DenialRecorder, logger *zap.Logger) *Middleware {
	return &Middleware{
		authService: authService,
		denials:     denials,
		logger:      logger,
	}
}

// RequireAuth validates the token and stores claims in the request context.
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, token, err := m.authService.ValidateRequest(r)
		if err != nil {
			m.unauthorized(w, "Authentication required")
			return
		}
		next(w, r.WithContext(WithClaims(r.Context(), claims, token)))
	}
}

// RequireRole validates the token and requires one of roles.
func (m *Middleware) RequireRole(roles ...string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			claims, token, err := m.authService.ValidateRequest(r)
			if err != nil {
				m.unauthorized(w, "Authentication required")
				return
			}

			ctx := WithClaims(r.Context(), claims, token)
			if !claims.HasRole(roles...) {
				m.logger.Warn("Role not permitted for endpoint",
					zap.String("subject", claims.Subject),
					zap.String("role", claims.Role),
					zap.Strings("required", roles),
					zap.String("path", r.URL.Path))
				if m.denials != nil {
					m.denials.LogAccessDenied(ctx, roles, r.URL.Path, r.RemoteAddr)
				}
				m.forbidden(w, "Insufficient role for this operation")
				return
			}

			next(w, r.WithContext(ctx))
		}
	}
}

// unauthorized returns a 401 response with JSON error body.
func (m *Middleware) unauthorized(w http.ResponseWriter, message string) {
	writeAuthError(w, http.StatusUnauthorized, "unauthorized", message)
}

// forbidden returns a 403 response with JSON error body.
func (m *Middleware) forbidden(w http.ResponseWriter, message string) {
	writeAuthError(w, http.StatusForbidden, "forbidden", message)
}

func writeAuthError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   code,
		"message": message,
	})
}
