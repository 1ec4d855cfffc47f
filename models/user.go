package models

// Account roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is a storefront account (buyer or admin).
type User struct {
	ID        string `json:"id" db:"id"`
	Email     string `json:"email" db:"email"`
	Password  string `json:"-" db:"password"` // bcrypt hash
	Name      string `json:"name" db:"name"`
	Role      string `json:"role" db:"role"`
	Image     string `json:"image,omitempty" db:"image"`
	Phone     string `json:"phone,omitempty" db:"phone"`
	Address   string `json:"address,omitempty" db:"address"`
	CreatedAt string `json:"created_at" db:"created_at"`
	UpdatedAt string `json:"updated_at" db:"updated_at"`
}

// RegisterRequest creates a buyer account.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// LoginRequest authenticates by email and password.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the issued token.
type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
	User      *User  `json:"user"`
}

// UpdateUserRequest edits the caller's profile. Empty optional fields are
// cleared; an empty Email or Name keeps the current value.
type UpdateUserRequest struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Image   string `json:"image"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// LikeRequest toggles a product in the caller's favorites.
type LikeRequest struct {
	ItemID string `json:"itemId"`
}

// LikesResponse lists liked product IDs.
type LikesResponse struct {
	Success       bool     `json:"success"`
	LikedProducts []string `json:"likedProducts"`
}
