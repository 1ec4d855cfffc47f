package handlers

import (
	"errors"
	"net/http"

	"floordesign/logger"
	"floordesign/middleware"
	"floordesign/models"
	"floordesign/services"
)

// ContactHandler serves buyer/admin chat threads.
type ContactHandler struct {
	conversations services.ConversationService
}

// NewContactHandler creates a ContactHandler.
func NewContactHandler(conversations services.ConversationService) *ContactHandler {
	return &ContactHandler{conversations: conversations}
}

// Get returns a buyer's thread, creating it on first access
// @Summary Get conversation
// @Tags contact
// @Produce json
// @Security BearerAuth
// @Param userId path string true "Buyer ID"
// @Success 200 {object} models.APIResponse{data=models.Conversation}
// @Failure 403 {object} models.APIResponse
// @Failure 404 {object} models.APIResponse
// @Router /api/contact/{userId} [get]
func (h *ContactHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")
	if !middleware.EnsureSelfOrAdmin(w, r, userID) {
		return
	}

	conversation, err := h.conversations.Get(r.Context(), userID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "Utilisateur introuvable", nil)
			return
		}
		logger.Error("Failed to load conversation for %s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "Erreur serveur", err)
		return
	}
	writeJSON(w, http.StatusOK, models.SuccessResponse("Messages récupérés", conversation))
}

// Post appends a message to a buyer's thread
// @Summary Post message
// @Tags contact
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param userId path string true "Buyer ID"
// @Param request body models.PostMessageRequest true "Message"
// @Success 201 {object} models.APIResponse{data=models.Conversation}
// @Failure 400 {object} models.APIResponse
// @Failure 403 {object} models.APIResponse
// @Router /api/contact/{userId} [post]
func (h *ContactHandler) Post(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")
	if !middleware.EnsureSelfOrAdmin(w, r, userID) {
		return
	}

	var req models.PostMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Données manquantes", err)
		return
	}
	// buyers always speak as themselves
	if !middleware.IsAdmin(r) && req.Sender == models.SenderAdmin {
		writeError(w, http.StatusForbidden, "Accès refusé", nil)
		return
	}

	conversation, err := h.conversations.Append(r.Context(), userID, req)
	if err != nil {
		var verr *services.ValidationError
		switch {
		case errors.As(err, &verr):
			writeError(w, http.StatusBadRequest, verr.Message, nil)
		case errors.Is(err, services.ErrUserNotFound):
			writeError(w, http.StatusNotFound, "Utilisateur introuvable", nil)
		default:
			logger.Error("Failed to append message for %s: %v", userID, err)
			writeError(w, http.StatusInternalServerError, "Erreur serveur", err)
		}
		return
	}

	writeJSON(w, http.StatusCreated, models.SuccessResponse("Message envoyé", conversation))

	if req.Sender == models.SenderAdmin {
		logAdminActivity(r, models.AdminActionReplyContact, "Reply to "+userID)
	}
}

// ListContacts lists buyers for the admin inbox
// @Summary Admin inbox
// @Tags contact
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.APIResponse{data=[]models.Contact}
// @Router /api/admin/contacts [get]
func (h *ContactHandler) ListContacts(w http.ResponseWriter, r *http.Request) {
	contacts, err := h.conversations.ListContacts(r.Context())
	if err != nil {
		logger.Error("Failed to list contacts: %v", err)
		writeError(w, http.StatusInternalServerError, "Erreur serveur", err)
		return
	}
	writeJSON(w, http.StatusOK, models.SuccessResponse("Contacts récupérés", contacts))
}
