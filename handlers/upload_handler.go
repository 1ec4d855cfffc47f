package handlers

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"
	"sync"
	"time"

	"floordesign/logger"
	"floordesign/middleware"
	"floordesign/models"
	"floordesign/services"
	"floordesign/tracker"
	"floordesign/upload"
	"floordesign/utils"
)

// UploadHandler accepts product folders from the admin console and runs
// each submission in the background, tracked by session.
type UploadHandler struct {
	ctx      context.Context
	products services.ProductService
	uploader upload.Uploader
	sessions tracker.Tracker
	opts     upload.Options
	maxBytes int64

	mu       sync.Mutex
	draining bool
	wg       sync.WaitGroup
}

// NewUploadHandler creates an UploadHandler. Background submissions run
// under ctx; cancelling it stops them between two uploads.
func NewUploadHandler(ctx context.Context, products services.ProductService, uploader upload.Uploader, sessions tracker.Tracker, opts upload.Options, maxRequestMB int) *UploadHandler {
	if maxRequestMB <= 0 {
		maxRequestMB = 512
	}
	return &UploadHandler{
		ctx:      ctx,
		products: products,
		uploader: uploader,
		sessions: sessions,
		opts:     opts,
		maxBytes: int64(maxRequestMB) << 20,
	}
}

// Wait blocks until every background submission has returned.
func (h *UploadHandler) Wait() {
	h.mu.Lock()
	h.draining = true
	h.mu.Unlock()
	h.wg.Wait()
}

// spawn runs fn in a tracked goroutine unless Wait has started.
func (h *UploadHandler) spawn(fn func()) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.draining {
		return false
	}
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		fn()
	}()
	return true
}

type uploadForm struct {
	files       []upload.FileEntry
	description string
	categories  []string
	price       string
}

// readUploadForm streams the multipart body. File parts keep the raw
// filename parameter because it carries the folder path
// (multipart.Part.FileName strips directories). Hidden files are dropped.
func readUploadForm(r *http.Request) (uploadForm, error) {
	var form uploadForm
	reader, err := r.MultipartReader()
	if err != nil {
		return form, err
	}

	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			return form, nil
		}
		if err != nil {
			return form, err
		}

		data, err := io.ReadAll(part)
		part.Close()
		if err != nil {
			return form, err
		}

		switch part.FormName() {
		case "files":
			_, params, err := mime.ParseMediaType(part.Header.Get("Content-Disposition"))
			if err != nil || params["filename"] == "" {
				continue
			}
			entry := upload.BytesEntry(params["filename"], data)
			if entry.Hidden() {
				continue
			}
			form.files = append(form.files, entry)
		case "description":
			form.description = string(data)
		case "categories":
			form.categories = append(form.categories, string(data))
		case "price":
			form.price = string(data)
		}
	}
}

// Start validates a product folder and begins uploading it
// @Summary Start product upload
// @Description Multipart body: repeated "files" parts named by relative path (Tapis/Floral/rouge.png), "description", repeated "categories" and "price". Returns the session to poll.
// @Tags admin-uploads
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Success 202 {object} models.APIResponse
// @Failure 400 {object} models.APIResponse
// @Router /api/admin/uploads [post]
func (h *UploadHandler) Start(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	form, err := readUploadForm(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Fichiers trop volumineux", err)
			return
		}
		writeError(w, http.StatusBadRequest, "Requête invalide", err)
		return
	}
	if len(form.files) == 0 {
		writeError(w, http.StatusBadRequest, "Aucun fichier sélectionné", nil)
		return
	}

	adminID := middleware.UserID(r.Context())
	adminName := middleware.Username(r.Context())
	orchestrator := upload.NewOrchestrator(services.NewProductRegistrar(h.products, adminID), h.uploader, h.opts)

	structure, err := orchestrator.Classify(form.files)
	if err != nil {
		writeError(w, http.StatusBadRequest, upload.UserMessage(err), nil)
		return
	}
	req := upload.Request{
		Structure:   &structure,
		Description: form.description,
		Categories:  form.categories,
		Price:       form.price,
	}
	if err := orchestrator.Validate(req); err != nil {
		writeError(w, http.StatusBadRequest, upload.UserMessage(err), nil)
		return
	}

	now := time.Now()
	session := tracker.Session{
		ID:        tracker.NewSessionID(),
		StartedBy: adminID,
		State: upload.State{
			Phase:       upload.PhaseIdle,
			ProductName: structure.ProductName,
			Total:       structure.TotalFiles(),
		},
		StartedAt: now,
		UpdatedAt: now,
	}
	if err := h.sessions.Save(r.Context(), session); err != nil {
		logger.Error("Failed to save upload session: %v", err)
		writeError(w, http.StatusInternalServerError, "Erreur serveur", err)
		return
	}

	fields := map[string]interface{}{
		"session_id": session.ID,
		"product":    structure.ProductName,
		"files":      structure.TotalFiles(),
		"admin_id":   adminID,
	}
	observe := tracker.Observer(h.sessions, session, func(err error) {
		logger.WithFields(fields).Warn("Failed to save upload state: %v", err)
	})

	started := h.spawn(func() {
		product, err := orchestrator.Submit(h.ctx, req, observe)
		if err != nil {
			logger.WithFields(fields).Warn("Product upload failed: %v", err)
			return
		}
		logger.WithFields(fields).Info("Product uploaded")
		utils.LogAdminActivity(adminID, adminName, models.AdminActionCreateProduct, "Product created: "+product.Name)
	})
	if !started {
		observe(upload.State{
			Phase:       upload.PhaseFailed,
			ProductName: structure.ProductName,
			Total:       structure.TotalFiles(),
			Error:       "Serveur en cours d'arrêt",
		})
		writeError(w, http.StatusServiceUnavailable, "Serveur en cours d'arrêt", nil)
		return
	}

	logger.WithFields(fields).Info("Product upload started")
	writeJSON(w, http.StatusAccepted, models.SuccessResponse("Upload démarré", map[string]string{
		"session_id": session.ID,
	}))

	logAdminActivity(r, models.AdminActionStartUpload, "Upload started: "+strings.TrimSpace(structure.ProductName))
}

// Status returns the tracked state of an upload session
// @Summary Upload status
// @Tags admin-uploads
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Success 200 {object} models.APIResponse{data=tracker.Session}
// @Failure 404 {object} models.APIResponse
// @Router /api/admin/uploads/{id} [get]
func (h *UploadHandler) Status(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.Load(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, tracker.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "Session introuvable", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Erreur serveur", err)
		return
	}
	writeJSON(w, http.StatusOK, models.SuccessResponse("État de l'upload", session))
}
