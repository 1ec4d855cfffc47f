package services

import (
	"context"

	"github.com/go-faster/errors"

	"floordesign/models"
	"floordesign/upload"
)

type productRegistrar struct {
	products  ProductService
	creatorID string
}

// NewProductRegistrar exposes ProductService to the upload workflow. Business
// rule violations come back as *upload.RegistrarRejectionError.
func NewProductRegistrar(products ProductService, creatorID string) upload.Registrar {
	return &productRegistrar{products: products, creatorID: creatorID}
}

func (r *productRegistrar) Exists(ctx context.Context, name string) (bool, error) {
	return r.products.Exists(ctx, name)
}

func (r *productRegistrar) Create(ctx context.Context, record models.CreateProductRequest) (models.Product, error) {
	product, err := r.products.Create(ctx, record, r.creatorID)
	if err == nil {
		return product, nil
	}

	var validation *ValidationError
	switch {
	case errors.Is(err, ErrProductNameConflict):
		return models.Product{}, &upload.RegistrarRejectionError{Message: "Un produit avec ce nom existe déjà"}
	case errors.As(err, &validation):
		return models.Product{}, &upload.RegistrarRejectionError{Message: validation.Message}
	default:
		return models.Product{}, err
	}
}
