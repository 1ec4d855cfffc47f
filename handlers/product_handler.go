package handlers

import (
	"errors"
	"net/http"
	"strings"

	"floordesign/logger"
	"floordesign/middleware"
	"floordesign/models"
	"floordesign/services"
	"floordesign/upload"
)

// ProductHandler serves the catalog and the admin product endpoints.
type ProductHandler struct {
	service services.ProductService
	media   upload.Deleter
}

// NewProductHandler creates a ProductHandler. media may be nil, in which
// case deleting a product never touches its images.
func NewProductHandler(service services.ProductService, media upload.Deleter) *ProductHandler {
	return &ProductHandler{service: service, media: media}
}

// ListByCategory lists one category, newest first
// @Summary Products by category
// @Tags products
// @Produce json
// @Param category path string true "INTEMPOREL, GRAPHIQUES, PRESTIGE, ETHINIQUE, BAGUETTES or INSPIRATION"
// @Param page query int false "Page (default 1)"
// @Param limit query int false "Page size (default 10)"
// @Success 200 {object} models.PaginatedResponse{data=[]models.Product}
// @Failure 400 {object} models.APIResponse
// @Router /api/products/category/{category} [get]
func (h *ProductHandler) ListByCategory(w http.ResponseWriter, r *http.Request) {
	category, ok := models.ParseCategory(r.PathValue("category"))
	if !ok {
		writeError(w, http.StatusBadRequest, "Catégorie invalide", nil)
		return
	}

	page := parsePositiveInt(r.URL.Query().Get("page"), 1)
	limit := parsePositiveInt(r.URL.Query().Get("limit"), 10)
	if limit > 100 {
		limit = 100
	}

	products, total, err := h.service.ListByCategory(r.Context(), category, page, limit)
	if err != nil {
		logger.Error("Failed to query products by category: %v", err)
		writeError(w, http.StatusInternalServerError, "Erreur serveur", err)
		return
	}

	writeJSON(w, http.StatusOK, models.PaginatedResponse{
		Status:  "success",
		Message: "Produits récupérés",
		Data:    products,
		Meta: models.Pagination{
			Page:       page,
			PageSize:   limit,
			TotalPages: calcTotalPages(total, limit),
			TotalCount: total,
		},
	})
}

// GetBySlug returns one product
// @Summary Product by slug
// @Tags products
// @Produce json
// @Param slug path string true "Product slug"
// @Success 200 {object} models.APIResponse{data=models.Product}
// @Failure 404 {object} models.APIResponse
// @Router /api/products/{slug} [get]
func (h *ProductHandler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	product, err := h.service.GetBySlug(r.Context(), r.PathValue("slug"))
	if err != nil {
		if errors.Is(err, services.ErrProductNotFound) {
			writeError(w, http.StatusNotFound, "Produit introuvable", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Erreur serveur", err)
		return
	}
	writeJSON(w, http.StatusOK, models.SuccessResponse("Produit récupéré", product))
}

// List returns the products named by ids; without ids, admins get the whole catalog
// @Summary List products
// @Tags products
// @Produce json
// @Param ids query string false "Comma-separated product IDs"
// @Success 200 {object} models.APIResponse{data=[]models.Product}
// @Failure 403 {object} models.APIResponse
// @Router /api/products [get]
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	var filter services.ProductFilter
	if r.URL.Query().Has("ids") {
		filter.IDs = []string{}
		for _, id := range strings.Split(r.URL.Query().Get("ids"), ",") {
			if id = strings.TrimSpace(id); id != "" {
				filter.IDs = append(filter.IDs, id)
			}
		}
	} else if !middleware.IsAdmin(r) {
		writeError(w, http.StatusForbidden, "Accès refusé", nil)
		return
	}

	products, err := h.service.List(r.Context(), filter)
	if err != nil {
		logger.Error("Failed to query products: %v", err)
		writeError(w, http.StatusInternalServerError, "Erreur serveur", err)
		return
	}
	writeJSON(w, http.StatusOK, models.SuccessResponse("Produits récupérés", products))
}

// Liked returns the caller's liked products
// @Summary Liked products
// @Tags products
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.APIResponse{data=[]models.Product}
// @Failure 401 {object} models.APIResponse
// @Router /api/products/liked [get]
func (h *ProductHandler) Liked(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.ListLikedBy(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Erreur serveur", err)
		return
	}
	writeJSON(w, http.StatusOK, models.SuccessResponse("Produits aimés récupérés", products))
}

// Exists reports whether a product name is taken
// @Summary Product name check
// @Tags products
// @Accept json
// @Produce json
// @Param request body models.ProductExistsRequest true "Name"
// @Success 200 {object} models.ProductExistsResponse
// @Failure 400 {object} models.APIResponse
// @Router /api/products/exists [post]
func (h *ProductHandler) Exists(w http.ResponseWriter, r *http.Request) {
	var req models.ProductExistsRequest
	if err := decodeJSON(r, &req); err != nil || strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "Le nom du produit est requis", err)
		return
	}

	exists, err := h.service.Exists(r.Context(), req.Name)
	if err != nil {
		logger.Error("Failed to check product name: %v", err)
		writeError(w, http.StatusInternalServerError, "Erreur serveur", err)
		return
	}
	writeJSON(w, http.StatusOK, models.ProductExistsResponse{Exists: exists})
}

// Create registers a product record whose images are already hosted
// @Summary Create product
// @Tags admin-products
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CreateProductRequest true "Product record"
// @Success 201 {object} models.APIResponse{data=models.Product}
// @Failure 400 {object} models.APIResponse
// @Failure 409 {object} models.APIResponse
// @Failure 500 {object} models.APIResponse
// @Router /api/admin/products [post]
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateProductRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Requête invalide", err)
		return
	}

	product, err := h.service.Create(r.Context(), req, middleware.UserID(r.Context()))
	if err != nil {
		var verr *services.ValidationError
		switch {
		case errors.Is(err, services.ErrProductNameConflict):
			writeError(w, http.StatusConflict, upload.UserMessage(upload.ErrDuplicateName), nil)
		case errors.As(err, &verr):
			writeError(w, http.StatusBadRequest, verr.Message, nil)
		default:
			logger.WithFields(map[string]interface{}{"error": err.Error(), "name": req.Name}).Error("Failed to create product")
			writeError(w, http.StatusInternalServerError, "Erreur serveur", err)
		}
		return
	}

	logger.WithFields(map[string]interface{}{
		"product_id": product.ID,
		"name":       product.Name,
	}).Info("Product created")
	writeJSON(w, http.StatusCreated, models.SuccessResponse("Produit créé", product))

	logAdminActivity(r, models.AdminActionCreateProduct, "Product created: "+product.Name)
}

// Delete removes a product; with media=true its hosted images are destroyed too
// @Summary Delete product
// @Tags admin-products
// @Produce json
// @Security BearerAuth
// @Param id path string true "Product ID"
// @Param media query bool false "Also delete hosted images"
// @Success 200 {object} models.APIResponse
// @Failure 404 {object} models.APIResponse
// @Router /api/admin/products/{id} [delete]
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	product, err := h.service.Delete(r.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrProductNotFound) {
			writeError(w, http.StatusNotFound, "Produit introuvable", nil)
			return
		}
		logger.Error("Failed to delete product %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Erreur serveur", err)
		return
	}

	failed := 0
	if h.media != nil && r.URL.Query().Get("media") == "true" {
		for _, publicID := range upload.PublicIDs(product) {
			if err := h.media.Delete(r.Context(), publicID); err != nil {
				failed++
				logger.WithFields(map[string]interface{}{
					"product_id": id,
					"public_id":  publicID,
					"error":      err.Error(),
				}).Warn("Failed to delete product image")
			}
		}
	}

	logger.WithFields(map[string]interface{}{"product_id": id, "name": product.Name}).Info("Product deleted")
	writeJSON(w, http.StatusOK, models.SuccessResponse("Produit supprimé", map[string]interface{}{
		"id":                  id,
		"media_delete_errors": failed,
	}))

	logAdminActivity(r, models.AdminActionDeleteProduct, "Product deleted: "+product.Name)
}
