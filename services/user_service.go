package services

import (
	"context"
	"database/sql"
	"regexp"
	"strings"

	"github.com/go-faster/errors"

	"floordesign/models"
	"floordesign/utils"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 5

// UserService manages accounts and favorites.
type UserService interface {
	Register(ctx context.Context, req models.RegisterRequest) (models.User, error)
	Authenticate(ctx context.Context, email, password string) (models.User, error)
	Get(ctx context.Context, id string) (models.User, error)
	Update(ctx context.Context, id string, req models.UpdateUserRequest) (models.User, error)
	ToggleLike(ctx context.Context, userID, productID string) (bool, error)
	LikedIDs(ctx context.Context, userID string) ([]string, error)
	Count(ctx context.Context) (int, error)
}

type userService struct {
	db SQLExecutor
}

// NewUserService creates a UserService over db.
func NewUserService(db SQLExecutor) UserService {
	return &userService{db: db}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *userService) Register(ctx context.Context, req models.RegisterRequest) (models.User, error) {
	email := normalizeEmail(req.Email)
	name := strings.TrimSpace(req.Name)

	if email == "" || req.Password == "" || name == "" {
		return models.User{}, invalid("Tous les champs sont requis")
	}
	if !emailPattern.MatchString(email) {
		return models.User{}, invalid("Adresse email invalide")
	}
	if len(req.Password) < MinPasswordLength {
		return models.User{}, invalid("Le mot de passe doit contenir au moins 5 caractères")
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return models.User{}, errors.Wrap(err, "hash password")
	}
	id, err := utils.GenerateID("usr")
	if err != nil {
		return models.User{}, err
	}

	ts := now()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, password, name, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, email, hash, name, models.RoleUser, ts, ts,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return models.User{}, ErrEmailTaken
		}
		return models.User{}, errors.Wrap(err, "insert user")
	}

	return models.User{
		ID:        id,
		Email:     email,
		Name:      name,
		Role:      models.RoleUser,
		CreatedAt: ts,
		UpdatedAt: ts,
	}, nil
}

func (s *userService) Authenticate(ctx context.Context, email, password string) (models.User, error) {
	user, err := s.scanOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, normalizeEmail(email))
	if err != nil {
		return models.User{}, err
	}
	if !utils.CheckPassword(user.Password, password) {
		return models.User{}, ErrInvalidCredentials
	}
	return user, nil
}

func (s *userService) Get(ctx context.Context, id string) (models.User, error) {
	return s.scanOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (s *userService) Update(ctx context.Context, id string, req models.UpdateUserRequest) (models.User, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return models.User{}, err
	}

	email := normalizeEmail(req.Email)
	if email == "" {
		email = current.Email
	}
	if !emailPattern.MatchString(email) {
		return models.User{}, invalid("Adresse email invalide")
	}

	var taken int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE email = ? AND id <> ?", email, id).Scan(&taken); err != nil {
		return models.User{}, err
	}
	if taken > 0 {
		return models.User{}, ErrEmailTaken
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = current.Name
	}

	ts := now()
	_, err = s.db.ExecContext(ctx, `
		UPDATE users SET email = ?, name = ?, image = ?, phone = ?, address = ?, updated_at = ?
		WHERE id = ?`,
		email, name, req.Image, req.Phone, req.Address, ts, id,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return models.User{}, ErrEmailTaken
		}
		return models.User{}, err
	}

	current.Email = email
	current.Name = name
	current.Image = req.Image
	current.Phone = req.Phone
	current.Address = req.Address
	current.UpdatedAt = ts
	return current, nil
}

// ToggleLike adds the product to the user's favorites, or removes it if
// already there. It reports whether the product is now liked.
func (s *userService) ToggleLike(ctx context.Context, userID, productID string) (bool, error) {
	if strings.TrimSpace(productID) == "" {
		return false, invalid("itemId requis")
	}

	var exists int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM products WHERE id = ?", productID).Scan(&exists); err != nil {
		return false, err
	}
	if exists == 0 {
		return false, ErrProductNotFound
	}

	result, err := s.db.ExecContext(ctx, "DELETE FROM user_likes WHERE user_id = ? AND product_id = ?", userID, productID)
	if err != nil {
		return false, err
	}
	if removed, err := result.RowsAffected(); err == nil && removed > 0 {
		return false, nil
	}

	_, err = s.db.ExecContext(ctx, "INSERT INTO user_likes (user_id, product_id, created_at) VALUES (?, ?, ?)", userID, productID, now())
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *userService) LikedIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT product_id FROM user_likes WHERE user_id = ? ORDER BY created_at, product_id", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *userService) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE role <> ?", models.RoleAdmin).Scan(&count)
	return count, err
}

const userColumns = `id, email, password, name, role, image, phone, address, created_at, updated_at`

func scanUser(row rowScanner) (models.User, error) {
	var (
		user                  models.User
		image, phone, address sql.NullString
	)
	if err := row.Scan(&user.ID, &user.Email, &user.Password, &user.Name, &user.Role,
		&image, &phone, &address, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return models.User{}, err
	}
	user.Image = image.String
	user.Phone = phone.String
	user.Address = address.String
	return user, nil
}

func (s *userService) scanOne(ctx context.Context, query string, args ...any) (models.User, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}
