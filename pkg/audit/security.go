// Package audit provides security audit logging for SIEM consumption.
// Events are logged in structured JSON under the "security_audit" logger.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/melontrace/melontrace-engine/pkg/auth"
	"github.com/melontrace/melontrace-engine/pkg/logging"
)

// SecurityEventType categorizes security-relevant events for filtering and alerting.
type SecurityEventType string

const (
	// EventContentRejected is logged when screening rejects submitted text.
	EventContentRejected SecurityEventType = "content_rejected"
	// EventAccessDenied is logged when an authenticated caller lacks the required role.
	EventAccessDenied SecurityEventType = "access_denied"
	// EventTokenIssued is logged when the development token endpoint mints a token.
	EventTokenIssued SecurityEventType = "token_issued"
)

// maxLoggedValue caps how much of a rejected payload reaches the log.
const maxLoggedValue = 200

// SecurityEvent is an auditable security event with the context a SIEM needs.
type SecurityEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType SecurityEventType `json:"event_type"`
	BatchID   uuid.UUID         `json:"batch_id,omitempty"`
	UserID    string            `json:"user_id,omitempty"`
	ClientIP  string            `json:"client_ip,omitempty"`
	Details   any               `json:"details"`
	Severity  string            `json:"severity"` // info, warning, critical
}

// ScreeningDetails describes a rejected submission.
type ScreeningDetails struct {
	Field       string `json:"field"`
	Value       string `json:"value"`
	Kind        string `json:"kind"`        // sqli or xss
	Fingerprint string `json:"fingerprint"` // libinjection fingerprint, sqli only
}

// SecurityAuditor logs security events for SIEM consumption.
type SecurityAuditor struct {
	logger *zap.Logger
}

func NewSecurityAuditor(logger *zap.Logger) *SecurityAuditor {
	return &SecurityAuditor{logger: logger.Named("security_audit")}
}

var _ auth.DenialRecorder = (*SecurityAuditor)(nil)

// LogContentRejected records a screened-out submission at ERROR level.
func (a *SecurityAuditor) LogContentRejected(ctx context.Context, batchID uuid.UUID, details ScreeningDetails, clientIP string) {
	userID := auth.GetUserIDFromContext(ctx)
	details.Value = logging.TruncateString(details.Value, maxLoggedValue)

	event := SecurityEvent{
		Timestamp: time.Now().UTC(),
		EventType: EventContentRejected,
		BatchID:   batchID,
		UserID:    userID,
		ClientIP:  clientIP,
		Details:   details,
		Severity:  "critical",
	}

	// Marshaling known types cannot fail.
	eventJSON, _ := json.Marshal(event)

	a.logger.Error("Injection payload rejected",
		zap.String("event_json", string(eventJSON)),
		zap.String("batch_id", batchID.String()),
		zap.String("field", details.Field),
		zap.String("kind", details.Kind),
		zap.String("fingerprint", details.Fingerprint),
		zap.String("client_ip", clientIP),
		zap.String("user_id", userID),
		zap.String("severity", "critical"),
	)
}

// LogAccessDenied records a role check failure at WARN level.
func (a *SecurityAuditor) LogAccessDenied(ctx context.Context, required []string, path, clientIP string) {
	userID := auth.GetUserIDFromContext(ctx)
	role := auth.GetRoleFromContext(ctx)

	event := SecurityEvent{
		Timestamp: time.Now().UTC(),
		EventType: EventAccessDenied,
		UserID:    userID,
		ClientIP:  clientIP,
		Details: map[string]any{
			"path":     path,
			"role":     role,
			"required": required,
		},
		Severity: "warning",
	}

	eventJSON, _ := json.Marshal(event)

	a.logger.Warn("Access denied",
		zap.String("event_json", string(eventJSON)),
		zap.String("path", path),
		zap.String("role", role),
		zap.Strings("required", required),
		zap.String("client_ip", clientIP),
		zap.String("user_id", userID),
		zap.String("severity", "warning"),
	)
}

// LogTokenIssued records a development token mint at INFO level.
func (a *SecurityAuditor) LogTokenIssued(ctx context.Context, userID, role, clientIP string) {
	event := SecurityEvent{
		Timestamp: time.Now().UTC(),
		EventType: EventTokenIssued,
		UserID:    userID,
		ClientIP:  clientIP,
		Details:   map[string]string{"role": role},
		Severity:  "info",
	}

	eventJSON, _ := json.Marshal(event)

	a.logger.Info("Token issued",
		zap.String("event_json", string(eventJSON)),
		zap.String("role", role),
		zap.String("client_ip", clientIP),
		zap.String("user_id", userID),
		zap.String("severity", "info"),
	)
}
