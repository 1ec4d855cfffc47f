package handlers

import (
	"net/http"
	"strconv"

	"floordesign/database"
	"floordesign/logger"
	"floordesign/models"
	"floordesign/services"
)

// DashboardHandler serves the admin console overview.
type DashboardHandler struct {
	products      services.ProductService
	users         services.UserService
	conversations services.ConversationService
}

// NewDashboardHandler creates a DashboardHandler.
func NewDashboardHandler(products services.ProductService, users services.UserService, conversations services.ConversationService) *DashboardHandler {
	return &DashboardHandler{products: products, users: users, conversations: conversations}
}

// Stats returns catalog and audience counts
// @Summary Dashboard stats
// @Tags admin-dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.APIResponse
// @Router /api/admin/dashboard/stats [get]
func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	byCategory, err := h.products.CountByCategory(ctx)
	if err != nil {
		logger.Error("Failed to count products by category: %v", err)
		writeError(w, http.StatusInternalServerError, "Erreur serveur", err)
		return
	}
	products, err := h.products.List(ctx, services.ProductFilter{})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Erreur serveur", err)
		return
	}
	users, err := h.users.Count(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Erreur serveur", err)
		return
	}
	conversations, err := h.conversations.Count(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Erreur serveur", err)
		return
	}

	categories := make([]map[string]interface{}, 0, len(models.AllCategories))
	for _, c := range models.AllCategories {
		categories = append(categories, map[string]interface{}{
			"category": c,
			"count":    byCategory[c],
		})
	}

	stats := map[string]interface{}{
		"total_products":       len(products),
		"total_users":          users,
		"total_conversations":  conversations,
		"products_by_category": categories,
	}
	writeJSON(w, http.StatusOK, models.SuccessResponse("Statistiques récupérées", stats))
}

// RecentActivities lists the latest admin actions
// @Summary Recent admin activity
// @Tags admin-dashboard
// @Produce json
// @Security BearerAuth
// @Param action query string false "Filter by action"
// @Param limit query int false "Max entries (default 20, max 100)"
// @Success 200 {object} models.APIResponse{data=[]models.AdminActivityLog}
// @Router /api/admin/dashboard/activities [get]
func (h *DashboardHandler) RecentActivities(w http.ResponseWriter, r *http.Request) {
	qAction := r.URL.Query().Get("action")
	qLimit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 100 {
			qLimit = n
		}
	}

	query := `SELECT id, admin_id, username, action, COALESCE(details, ''), created_at FROM admin_activity_logs`
	args := []interface{}{}
	if qAction != "" {
		query += " WHERE action = ?"
		args = append(args, qAction)
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, qLimit)

	rows, err := database.DB.QueryContext(r.Context(), database.Rebind(database.Driver(), query), args...)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Erreur serveur", err)
		return
	}
	defer rows.Close()

	activities := []models.AdminActivityLog{}
	for rows.Next() {
		var a models.AdminActivityLog
		if err := rows.Scan(&a.ID, &a.AdminID, &a.Username, &a.Action, &a.Details, &a.CreatedAt); err != nil {
			continue
		}
		activities = append(activities, a)
	}

	writeJSON(w, http.StatusOK, models.SuccessResponse("Activités récupérées", activities))
}
