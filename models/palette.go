package models

// PaletteColor is a named swatch used by the 3D simulator.
type PaletteColor struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"nom" db:"name"`
	Hex  string `json:"hex" db:"hex"`
}

// UpdatePaletteColorRequest renames or recolors a swatch.
type UpdatePaletteColorRequest struct {
	Name string `json:"nom"`
	Hex  string `json:"hex"`
}

// PaletteImportResult reports how many swatches an import added.
type PaletteImportResult struct {
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
}
