package handlers

import (
	"errors"
	"net/http"

	"floordesign/logger"
	"floordesign/middleware"
	"floordesign/models"
	"floordesign/services"
)

// UserHandler serves the caller's profile and favorites.
type UserHandler struct {
	users services.UserService
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(users services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// Me returns the caller's profile
// @Summary Current user
// @Tags user
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.APIResponse{data=models.User}
// @Failure 401 {object} models.APIResponse
// @Failure 404 {object} models.APIResponse
// @Router /api/user/me [get]
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.Get(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "Utilisateur introuvable", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Erreur serveur", err)
		return
	}
	writeJSON(w, http.StatusOK, models.SuccessResponse("Utilisateur récupéré", user))
}

// Update edits the caller's profile
// @Summary Update profile
// @Tags user
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.UpdateUserRequest true "Profile"
// @Success 200 {object} models.APIResponse{data=models.User}
// @Failure 400 {object} models.APIResponse
// @Failure 409 {object} models.APIResponse
// @Router /api/user/update [put]
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Requête invalide", err)
		return
	}

	userID := middleware.UserID(r.Context())
	user, err := h.users.Update(r.Context(), userID, req)
	if err != nil {
		var verr *services.ValidationError
		switch {
		case errors.As(err, &verr):
			writeError(w, http.StatusBadRequest, verr.Message, nil)
		case errors.Is(err, services.ErrEmailTaken):
			writeError(w, http.StatusConflict, "Cet email est déjà utilisé", nil)
		case errors.Is(err, services.ErrUserNotFound):
			writeError(w, http.StatusNotFound, "Utilisateur introuvable", nil)
		default:
			logger.WithFields(map[string]interface{}{"user_id": userID, "error": err.Error()}).Error("Failed to update user")
			writeError(w, http.StatusInternalServerError, "Erreur serveur", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, models.SuccessResponse("Profil mis à jour", user))
}

// ToggleLike adds or removes a product from the caller's favorites
// @Summary Toggle like
// @Tags user
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.LikeRequest true "Product"
// @Success 200 {object} models.APIResponse
// @Failure 400 {object} models.APIResponse
// @Failure 404 {object} models.APIResponse
// @Router /api/user/like [put]
func (h *UserHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	var req models.LikeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Requête invalide", err)
		return
	}

	liked, err := h.users.ToggleLike(r.Context(), middleware.UserID(r.Context()), req.ItemID)
	if err != nil {
		var verr *services.ValidationError
		switch {
		case errors.As(err, &verr):
			writeError(w, http.StatusBadRequest, verr.Message, nil)
		case errors.Is(err, services.ErrProductNotFound):
			writeError(w, http.StatusNotFound, "Produit introuvable", nil)
		default:
			writeError(w, http.StatusInternalServerError, "Erreur serveur", err)
		}
		return
	}

	message := "removed"
	if liked {
		message = "added"
	}
	writeJSON(w, http.StatusOK, models.SuccessResponse(message, map[string]interface{}{
		"itemId": req.ItemID,
		"liked":  liked,
	}))
}

// Likes lists the caller's liked product IDs. Anonymous callers get an empty list.
// @Summary Liked product IDs
// @Tags user
// @Produce json
// @Success 200 {object} models.LikesResponse
// @Router /api/user/likes [get]
func (h *UserHandler) Likes(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusOK, models.LikesResponse{Success: false, LikedProducts: []string{}})
		return
	}

	ids, err := h.users.LikedIDs(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Erreur serveur", err)
		return
	}
	writeJSON(w, http.StatusOK, models.LikesResponse{Success: true, LikedProducts: ids})
}
