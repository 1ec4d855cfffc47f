package middleware

import (
	"net/http"

	"floordesign/models"
)

// IsAdmin reports whether the caller authenticated as an admin.
func IsAdmin(r *http.Request) bool {
	return Role(r.Context()) == models.RoleAdmin
}

// EnsureSelfOrAdmin short-circuits the handler unless the caller is the
// owner of the resource or an admin.
func EnsureSelfOrAdmin(w http.ResponseWriter, r *http.Request, ownerID string) bool {
	if IsAdmin(r) || (ownerID != "" && UserID(r.Context()) == ownerID) {
		return true
	}
	writeJSONError(w, http.StatusForbidden, "Accès refusé", nil)
	return false
}
