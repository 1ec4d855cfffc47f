package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"floordesign/models"
	"floordesign/utils"
)

// ProductFilter narrows List. An empty filter lists the whole catalog.
type ProductFilter struct {
	IDs []string
}

// ProductService holds the catalog business rules.
type ProductService interface {
	Exists(ctx context.Context, name string) (bool, error)
	Create(ctx context.Context, req models.CreateProductRequest, creatorID string) (models.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]models.Product, error)
	ListByCategory(ctx context.Context, category models.Category, page, limit int) ([]models.Product, int, error)
	ListLikedBy(ctx context.Context, userID string) ([]models.Product, error)
	Get(ctx context.Context, id string) (models.Product, error)
	GetBySlug(ctx context.Context, slug string) (models.Product, error)
	Delete(ctx context.Context, id string) (models.Product, error)
	CountByCategory(ctx context.Context) (map[models.Category]int, error)
}

type productService struct {
	db SQLExecutor
}

// NewProductService creates a ProductService over db.
func NewProductService(db SQLExecutor) ProductService {
	return &productService{db: db}
}

const productColumns = `p.id, p.name, p.slug, p.image, p.description, p.categories, p.price, p.motifs, p.created_by, p.created_at, p.updated_at`

func (s *productService) Exists(ctx context.Context, name string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM products WHERE name = ?", strings.TrimSpace(name)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func validateProduct(req models.CreateProductRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return invalid("Le nom du produit est requis")
	}
	if strings.TrimSpace(req.Image) == "" {
		return invalid("L'image principale est requise")
	}
	if strings.TrimSpace(req.Description) == "" {
		return invalid("La description est requise")
	}
	if len(req.Category) == 0 {
		return invalid("Au moins une catégorie est requise")
	}
	for _, c := range req.Category {
		if !c.Valid() {
			return invalid(fmt.Sprintf("Catégorie invalide : %s", c))
		}
	}
	if req.Price.IsNegative() {
		return invalid("Le prix ne peut pas être négatif")
	}
	for _, m := range req.Motifs {
		if strings.TrimSpace(m.Name) == "" {
			return invalid("Chaque motif doit avoir un nom")
		}
		for _, layer := range m.ColorLayers {
			if layer.ColorLabel == "" || layer.ImageURL == "" {
				return invalid(fmt.Sprintf("Couleur incomplète dans le motif %s", m.Name))
			}
		}
	}
	return nil
}

func (s *productService) Create(ctx context.Context, req models.CreateProductRequest, creatorID string) (models.Product, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Category = uniqueCategories(req.Category)
	if err := validateProduct(req); err != nil {
		return models.Product{}, err
	}

	id, err := utils.GenerateID("prod")
	if err != nil {
		return models.Product{}, err
	}
	slug := utils.Slugify(req.Name)
	if slug == "" {
		slug = id
	}

	motifs := req.Motifs
	if motifs == nil {
		motifs = []models.Motif{}
	}
	categoriesJSON, err := json.Marshal(req.Category)
	if err != nil {
		return models.Product{}, err
	}
	motifsJSON, err := json.Marshal(motifs)
	if err != nil {
		return models.Product{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Product{}, err
	}
	defer tx.Rollback()

	ts := now()
	_, err = tx.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO products (id, name, slug, image, description, categories, price, motifs, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		id, req.Name, slug, req.Image, req.Description, string(categoriesJSON), req.Price.String(), string(motifsJSON),
		nullIfEmpty(creatorID), ts, ts,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return models.Product{}, ErrProductNameConflict
		}
		return models.Product{}, errors.Wrap(err, "insert product")
	}

	for _, c := range req.Category {
		if _, err := tx.ExecContext(ctx, s.db.Rebind(`INSERT INTO product_categories (product_id, category) VALUES (?, ?)`), id, string(c)); err != nil {
			return models.Product{}, errors.Wrap(err, "insert product category")
		}
	}

	if err := tx.Commit(); err != nil {
		return models.Product{}, err
	}

	return models.Product{
		ID:          id,
		Name:        req.Name,
		Slug:        slug,
		Image:       req.Image,
		Description: req.Description,
		Category:    req.Category,
		Price:       req.Price,
		Motifs:      motifs,
		CreatedBy:   creatorID,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}, nil
}

func (s *productService) List(ctx context.Context, filter ProductFilter) ([]models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products p WHERE 1=1`
	args := make([]any, 0, len(filter.IDs))

	if filter.IDs != nil {
		if len(filter.IDs) == 0 {
			return []models.Product{}, nil
		}
		query += " AND p.id IN (" + placeholders(len(filter.IDs)) + ")"
		for _, id := range filter.IDs {
			args = append(args, id)
		}
	}

	query += " ORDER BY p.created_at DESC, p.id"
	return s.query(ctx, query, args...)
}

func (s *productService) ListByCategory(ctx context.Context, category models.Category, page, limit int) ([]models.Product, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM product_categories WHERE category = ?", string(category)).Scan(&total); err != nil {
		return nil, 0, err
	}

	products, err := s.query(ctx, `
		SELECT `+productColumns+`
		FROM products p
		JOIN product_categories pc ON pc.product_id = p.id
		WHERE pc.category = ?
		ORDER BY p.created_at DESC, p.id
		LIMIT ? OFFSET ?`,
		string(category), limit, (page-1)*limit,
	)
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (s *productService) ListLikedBy(ctx context.Context, userID string) ([]models.Product, error) {
	return s.query(ctx, `
		SELECT `+productColumns+`
		FROM products p
		JOIN user_likes l ON l.product_id = p.id
		WHERE l.user_id = ?
		ORDER BY l.created_at DESC, p.id`,
		userID,
	)
}

func (s *productService) Get(ctx context.Context, id string) (models.Product, error) {
	return s.queryOne(ctx, `SELECT `+productColumns+` FROM products p WHERE p.id = ?`, id)
}

func (s *productService) GetBySlug(ctx context.Context, slug string) (models.Product, error) {
	return s.queryOne(ctx, `SELECT `+productColumns+` FROM products p WHERE p.slug = ?`, slug)
}

func (s *productService) Delete(ctx context.Context, id string) (models.Product, error) {
	product, err := s.Get(ctx, id)
	if err != nil {
		return models.Product{}, err
	}

	result, err := s.db.ExecContext(ctx, "DELETE FROM products WHERE id = ?", id)
	if err != nil {
		return models.Product{}, err
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return models.Product{}, ErrProductNotFound
	}
	return product, nil
}

func (s *productService) CountByCategory(ctx context.Context) (map[models.Category]int, error) {
	counts := make(map[models.Category]int, len(models.AllCategories))
	for _, c := range models.AllCategories {
		counts[c] = 0
	}

	rows, err := s.db.QueryContext(ctx, "SELECT category, COUNT(*) FROM product_categories GROUP BY category")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			category string
			count    int
		)
		if err := rows.Scan(&category, &count); err != nil {
			return nil, err
		}
		counts[models.Category(category)] = count
	}
	return counts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (models.Product, error) {
	var (
		product    models.Product
		categories string
		price      string
		motifs     string
		createdBy  sql.NullString
	)
	if err := row.Scan(&product.ID, &product.Name, &product.Slug, &product.Image, &product.Description,
		&categories, &price, &motifs, &createdBy, &product.CreatedAt, &product.UpdatedAt); err != nil {
		return models.Product{}, err
	}

	if err := json.Unmarshal([]byte(categories), &product.Category); err != nil {
		return models.Product{}, errors.Wrapf(err, "decode categories of %s", product.ID)
	}
	if err := json.Unmarshal([]byte(motifs), &product.Motifs); err != nil {
		return models.Product{}, errors.Wrapf(err, "decode motifs of %s", product.ID)
	}
	p, err := decimal.NewFromString(price)
	if err != nil {
		return models.Product{}, errors.Wrapf(err, "decode price of %s", product.ID)
	}
	product.Price = p
	if createdBy.Valid {
		product.CreatedBy = createdBy.String
	}
	return product, nil
}

func (s *productService) query(ctx context.Context, query string, args ...any) ([]models.Product, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]models.Product, 0)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	return products, rows.Err()
}

func (s *productService) queryOne(ctx context.Context, query string, args ...any) (models.Product, error) {
	product, err := scanProduct(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Product{}, ErrProductNotFound
	}
	return product, err
}

func uniqueCategories(in []models.Category) []models.Category {
	seen := make(map[models.Category]bool, len(in))
	out := make([]models.Category, 0, len(in))
	for _, c := range in {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
