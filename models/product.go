package models

import "github.com/shopspring/decimal"

func init() {
	// Prices go over the wire as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// Product is a catalog item with its principal image and motif layers.
type Product struct {
	ID          string          `json:"id" db:"id"`
	Name        string          `json:"name" db:"name"`
	Slug        string          `json:"slug" db:"slug"`
	Image       string          `json:"image" db:"image"`
	Description string          `json:"description" db:"description"`
	Category    []Category      `json:"category" db:"categories"`
	Price       decimal.Decimal `json:"price" db:"price"`
	Motifs      []Motif         `json:"motifs" db:"motifs"`
	CreatedBy   string          `json:"created_by,omitempty" db:"created_by"`
	CreatedAt   string          `json:"created_at" db:"created_at"`
	UpdatedAt   string          `json:"updated_at" db:"updated_at"`
}

// Motif is a named pattern with one image per color variant.
type Motif struct {
	Name        string       `json:"name"`
	ColorLayers []ColorLayer `json:"color_layers"`
}

// ColorLayer is one color variant of a motif.
type ColorLayer struct {
	ColorLabel string `json:"color_label"`
	ImageURL   string `json:"image_url"`
}

// CreateProductRequest is the record assembled by the upload workflow.
type CreateProductRequest struct {
	Name        string          `json:"name"`
	Image       string          `json:"image"`
	Description string          `json:"description"`
	Category    []Category      `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Motifs      []Motif         `json:"motifs"`
}

// ProductExistsRequest asks whether a product name is taken.
type ProductExistsRequest struct {
	Name string `json:"name"`
}

// ProductExistsResponse answers ProductExistsRequest.
type ProductExistsResponse struct {
	Exists bool `json:"exists"`
}
