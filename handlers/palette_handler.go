package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"floordesign/logger"
	"floordesign/models"
	"floordesign/services"
)

const maxPaletteFileBytes = 1 << 20

// PaletteHandler serves the 3D simulator color palette.
type PaletteHandler struct {
	palette services.PaletteService
}

// NewPaletteHandler creates a PaletteHandler.
func NewPaletteHandler(palette services.PaletteService) *PaletteHandler {
	return &PaletteHandler{palette: palette}
}

// List returns every swatch
// @Summary List palette
// @Tags palette
// @Produce json
// @Success 200 {object} models.APIResponse{data=[]models.PaletteColor}
// @Router /api/palette-couleurs [get]
func (h *PaletteHandler) List(w http.ResponseWriter, r *http.Request) {
	colors, err := h.palette.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Erreur serveur", err)
		return
	}
	writeJSON(w, http.StatusOK, models.SuccessResponse("Palette récupérée", colors))
}

// Update renames or recolors a swatch
// @Summary Update swatch
// @Tags palette
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Swatch ID"
// @Param request body models.UpdatePaletteColorRequest true "Swatch"
// @Success 200 {object} models.APIResponse{data=models.PaletteColor}
// @Failure 400 {object} models.APIResponse
// @Failure 404 {object} models.APIResponse
// @Router /api/palette-couleurs/{id} [put]
func (h *PaletteHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req models.UpdatePaletteColorRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Requête invalide", err)
		return
	}

	id := r.PathValue("id")
	color, err := h.palette.Update(r.Context(), id, req)
	if err != nil {
		var verr *services.ValidationError
		switch {
		case errors.As(err, &verr):
			writeError(w, http.StatusBadRequest, verr.Message, nil)
		case errors.Is(err, services.ErrPaletteNameConflict):
			writeError(w, http.StatusBadRequest, "Une couleur avec ce nom existe déjà", nil)
		case errors.Is(err, services.ErrPaletteColorNotFound):
			writeError(w, http.StatusNotFound, "Couleur introuvable", nil)
		default:
			writeError(w, http.StatusInternalServerError, "Erreur serveur", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, models.SuccessResponse("Couleur mise à jour", color))
	logAdminActivity(r, models.AdminActionUpdatePalette, "Color updated: "+color.Name)
}

// Delete removes a swatch
// @Summary Delete swatch
// @Tags palette
// @Produce json
// @Security BearerAuth
// @Param id path string true "Swatch ID"
// @Success 200 {object} models.APIResponse
// @Failure 404 {object} models.APIResponse
// @Router /api/palette-couleurs/{id} [delete]
func (h *PaletteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.palette.Delete(r.Context(), id); err != nil {
		if errors.Is(err, services.ErrPaletteColorNotFound) {
			writeError(w, http.StatusNotFound, "Couleur introuvable", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Erreur serveur", err)
		return
	}

	writeJSON(w, http.StatusOK, models.SuccessResponse("Couleur supprimée", nil))
	logAdminActivity(r, models.AdminActionDeletePalette, "Color deleted: "+id)
}

// Import adds swatches from a YAML or JSON name-to-hex file
// @Summary Import palette
// @Description Accepts a multipart "file" part or a raw YAML/JSON body. Invalid and existing names are skipped.
// @Tags palette
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.APIResponse{data=models.PaletteImportResult}
// @Failure 400 {object} models.APIResponse
// @Router /api/palette-couleurs/import [post]
func (h *PaletteHandler) Import(w http.ResponseWriter, r *http.Request) {
	data, err := readPaletteFile(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Fichier invalide", err)
		return
	}

	result, err := h.palette.ImportFile(r.Context(), data)
	if err != nil {
		var verr *services.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, verr.Message, nil)
			return
		}
		logger.Error("Failed to import palette: %v", err)
		writeError(w, http.StatusInternalServerError, "Erreur serveur", err)
		return
	}

	logger.WithFields(map[string]interface{}{
		"inserted": result.Inserted,
		"skipped":  result.Skipped,
	}).Info("Palette imported")
	writeJSON(w, http.StatusOK, models.SuccessResponse("Palette importée", result))
	logAdminActivity(r, models.AdminActionImportPalette, "Colors imported")
}

func readPaletteFile(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxPaletteFileBytes)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, err
		}
		defer file.Close()
		return io.ReadAll(file)
	}
	return io.ReadAll(r.Body)
}
