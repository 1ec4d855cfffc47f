package services

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/go-faster/errors"
	"gopkg.in/yaml.v3"

	"floordesign/models"
	"floordesign/utils"
)

var hexPattern = regexp.MustCompile(`^#([0-9A-Fa-f]{6}|[0-9A-Fa-f]{3})$`)

// PaletteService manages the named color swatches of the 3D simulator.
type PaletteService interface {
	List(ctx context.Context) ([]models.PaletteColor, error)
	Update(ctx context.Context, id string, req models.UpdatePaletteColorRequest) (models.PaletteColor, error)
	Delete(ctx context.Context, id string) error
	Import(ctx context.Context, colors map[string]string) (models.PaletteImportResult, error)
	ImportFile(ctx context.Context, data []byte) (models.PaletteImportResult, error)
}

type paletteService struct {
	db SQLExecutor
}

// NewPaletteService creates a PaletteService over db.
func NewPaletteService(db SQLExecutor) PaletteService {
	return &paletteService{db: db}
}

func (s *paletteService) List(ctx context.Context) ([]models.PaletteColor, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, hex FROM palette_colors ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	colors := make([]models.PaletteColor, 0)
	for rows.Next() {
		var c models.PaletteColor
		if err := rows.Scan(&c.ID, &c.Name, &c.Hex); err != nil {
			return nil, err
		}
		colors = append(colors, c)
	}
	return colors, rows.Err()
}

func (s *paletteService) Update(ctx context.Context, id string, req models.UpdatePaletteColorRequest) (models.PaletteColor, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return models.PaletteColor{}, invalid("Le nom est requis")
	}
	if !hexPattern.MatchString(req.Hex) {
		return models.PaletteColor{}, invalid("Code hexadécimal invalide")
	}

	var conflicts int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM palette_colors WHERE LOWER(name) = LOWER(?) AND id <> ?", name, id).Scan(&conflicts)
	if err != nil {
		return models.PaletteColor{}, err
	}
	if conflicts > 0 {
		return models.PaletteColor{}, ErrPaletteNameConflict
	}

	color := models.PaletteColor{ID: id, Name: name, Hex: strings.ToUpper(req.Hex)}
	result, err := s.db.ExecContext(ctx, "UPDATE palette_colors SET name = ?, hex = ? WHERE id = ?", color.Name, color.Hex, id)
	if err != nil {
		if isDuplicateKeyError(err) {
			return models.PaletteColor{}, ErrPaletteNameConflict
		}
		return models.PaletteColor{}, err
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return models.PaletteColor{}, ErrPaletteColorNotFound
	}
	return color, nil
}

func (s *paletteService) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM palette_colors WHERE id = ?", id)
	if err != nil {
		return err
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return ErrPaletteColorNotFound
	}
	return err
}

// Import inserts name->hex pairs. Invalid hex values and names already in
// the palette are skipped; hex codes are stored upper-cased.
func (s *paletteService) Import(ctx context.Context, colors map[string]string) (models.PaletteImportResult, error) {
	names := make([]string, 0, len(colors))
	for name := range colors {
		names = append(names, name)
	}
	sort.Strings(names)

	var result models.PaletteImportResult
	for _, name := range names {
		hex := colors[name]
		if strings.TrimSpace(name) == "" || !hexPattern.MatchString(hex) {
			result.Skipped++
			continue
		}

		var existing int
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM palette_colors WHERE name = ?", name).Scan(&existing); err != nil {
			return result, err
		}
		if existing > 0 {
			result.Skipped++
			continue
		}

		id, err := utils.GenerateID("col")
		if err != nil {
			return result, err
		}
		if _, err := s.db.ExecContext(ctx, "INSERT INTO palette_colors (id, name, hex) VALUES (?, ?, ?)", id, name, strings.ToUpper(hex)); err != nil {
			if isDuplicateKeyError(err) {
				result.Skipped++
				continue
			}
			return result, errors.Wrapf(err, "insert color %q", name)
		}
		result.Inserted++
	}
	return result, nil
}

// ImportFile parses a YAML (or JSON) mapping of name to hex code and imports it.
func (s *paletteService) ImportFile(ctx context.Context, data []byte) (models.PaletteImportResult, error) {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return models.PaletteImportResult{}, invalid("Format de fichier invalide")
	}
	if raw == nil {
		return models.PaletteImportResult{}, invalid("Format de fichier invalide")
	}

	colors := make(map[string]string, len(raw))
	for name, value := range raw {
		// non-string values become "" and are skipped as invalid
		hex, _ := value.(string)
		colors[name] = hex
	}
	return s.Import(ctx, colors)
}
