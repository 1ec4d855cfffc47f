package middleware

import (
	"context"
	"net/http"

	"floordesign/database"
)

// RequireRoles allows access only if the user's current role is one of
// allowedRoles. The role is re-read from the database so that a demoted
// account loses access before its token expires.
func RequireRoles(allowedRoles ...string) func(http.HandlerFunc) http.HandlerFunc {
	set := make(map[string]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		set[r] = struct{}{}
	}
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			userID := UserID(r.Context())
			if userID == "" {
				writeJSONError(w, http.StatusUnauthorized, "Non authentifié", nil)
				return
			}
			var role, name string
			query := database.Rebind(database.Driver(), "SELECT role, name FROM users WHERE id = ?")
			if err := database.DB.QueryRowContext(r.Context(), query, userID).Scan(&role, &name); err != nil {
				writeJSONError(w, http.StatusForbidden, "Accès refusé", err)
				return
			}
			if _, ok := set[role]; !ok {
				writeJSONError(w, http.StatusForbidden, "Accès refusé", nil)
				return
			}
			ctx := context.WithValue(WithUser(r.Context(), userID, role), usernameKey, name)
			next.ServeHTTP(w, r.WithContext(ctx))
		}
	}
}
