package handlers

import (
	"net/http"
	"strings"

	"floordesign/logger"
	"floordesign/models"
	"floordesign/upload"
)

// MediaHandler exposes direct media deletion to admins.
type MediaHandler struct {
	store upload.Deleter
}

// NewMediaHandler creates a MediaHandler.
func NewMediaHandler(store upload.Deleter) *MediaHandler {
	return &MediaHandler{store: store}
}

// DeleteMediaRequest names the media to delete.
type DeleteMediaRequest struct {
	PublicID string `json:"publicId"`
}

// Delete removes one hosted image
// @Summary Delete media
// @Tags admin-media
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body DeleteMediaRequest true "Media"
// @Success 200 {object} models.APIResponse
// @Failure 400 {object} models.APIResponse
// @Failure 502 {object} models.APIResponse
// @Router /api/admin/media [delete]
func (h *MediaHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req DeleteMediaRequest
	if err := decodeJSON(r, &req); err != nil || strings.TrimSpace(req.PublicID) == "" {
		writeError(w, http.StatusBadRequest, "publicId requis", err)
		return
	}

	if err := h.store.Delete(r.Context(), req.PublicID); err != nil {
		logger.WithFields(map[string]interface{}{
			"public_id": req.PublicID,
			"error":     err.Error(),
		}).Error("Failed to delete media")
		writeError(w, http.StatusBadGateway, "Erreur lors de la suppression de l'image", err)
		return
	}

	writeJSON(w, http.StatusOK, models.SuccessResponse("Image supprimée", map[string]string{"publicId": req.PublicID}))
	logAdminActivity(r, models.AdminActionDeleteMedia, "Media deleted: "+req.PublicID)
}
