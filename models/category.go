package models

import "strings"

// Category is one of the closed set of catalog collections.
type Category string

// Categories in presentation order.
const (
	CategoryIntemporel  Category = "INTEMPOREL"
	CategoryGraphiques  Category = "GRAPHIQUES"
	CategoryPrestige    Category = "PRESTIGE"
	CategoryEthinique   Category = "ETHINIQUE"
	CategoryBaguettes   Category = "BAGUETTES"
	CategoryInspiration Category = "INSPIRATION"
)

// AllCategories lists every category in presentation order.
var AllCategories = []Category{
	CategoryIntemporel,
	CategoryGraphiques,
	CategoryPrestige,
	CategoryEthinique,
	CategoryBaguettes,
	CategoryInspiration,
}

// Valid reports whether c belongs to the closed set.
func (c Category) Valid() bool {
	for _, known := range AllCategories {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory accepts any letter case, e.g. "prestige" from a URL path.
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	return c, c.Valid()
}
