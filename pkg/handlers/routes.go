package handlers

import (
	"net/http"

	"github.com/melontrace/melontrace-engine/pkg/auth"
)

// ScopeMiddleware attaches a request-scoped database connection.
type ScopeMiddleware func(http.HandlerFunc) http.HandlerFunc

// Role sets allowed on protected routes.
var (
	reviewerRoles  = []string{auth.RoleGov}
	inspectorRoles = []string{auth.RoleGov, auth.RoleEnterprise}
	growerRoles    = []string{auth.RoleFarmer, auth.RoleEnterprise}
)
