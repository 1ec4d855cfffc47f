package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"floordesign/middleware"
	"floordesign/models"
	"floordesign/utils"
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	writeJSON(w, status, models.ErrorResponse(message, err))
}

func decodeJSON(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// logAdminActivity records an action taken by the authenticated admin.
func logAdminActivity(r *http.Request, action, details string) {
	adminID := middleware.UserID(r.Context())
	if adminID == "" {
		return
	}
	utils.LogAdminActivity(adminID, middleware.Username(r.Context()), action, details)
}

func parsePositiveInt(val string, fallback int) int {
	n, err := strconv.Atoi(val)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func calcTotalPages(total, pageSize int) int {
	if pageSize <= 0 || total == 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}
