package handlers

import (
	"errors"
	"net/http"
	"time"

	"floordesign/logger"
	"floordesign/middleware"
	"floordesign/models"
	"floordesign/services"
	"floordesign/utils"
)

// AuthHandler handles account registration and sessions.
type AuthHandler struct {
	users        services.UserService
	cookieSecure bool
}

// NewAuthHandler creates an AuthHandler. cookieSecure marks the session cookie Secure.
func NewAuthHandler(users services.UserService, cookieSecure bool) *AuthHandler {
	return &AuthHandler{users: users, cookieSecure: cookieSecure}
}

// Register creates a buyer account
// @Summary Register
// @Description Creates a buyer account
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.RegisterRequest true "Account"
// @Success 201 {object} models.APIResponse{data=models.User}
// @Failure 400 {object} models.APIResponse
// @Failure 500 {object} models.APIResponse
// @Router /api/auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Requête invalide", err)
		return
	}

	user, err := h.users.Register(r.Context(), req)
	if err != nil {
		var verr *services.ValidationError
		switch {
		case errors.As(err, &verr):
			writeError(w, http.StatusBadRequest, verr.Message, nil)
		case errors.Is(err, services.ErrEmailTaken):
			writeError(w, http.StatusBadRequest, "Cet email est déjà utilisé", err)
		default:
			logger.WithFields(map[string]interface{}{"error": err.Error()}).Error("Failed to register user")
			writeError(w, http.StatusInternalServerError, "Erreur serveur", err)
		}
		return
	}

	logger.WithFields(map[string]interface{}{
		"user_id": user.ID,
		"email":   user.Email,
	}).Info("User registered")
	writeJSON(w, http.StatusCreated, models.SuccessResponse("Utilisateur créé", user))
}

// Login authenticates and sets the session cookie
// @Summary Login
// @Description Authenticates by email and password and issues a JWT
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.LoginRequest true "Credentials"
// @Success 200 {object} models.APIResponse{data=models.LoginResponse}
// @Failure 401 {object} models.APIResponse
// @Failure 404 {object} models.APIResponse
// @Failure 429 {object} models.APIResponse
// @Router /api/auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Requête invalide", err)
		return
	}

	user, err := h.users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUserNotFound):
			writeError(w, http.StatusNotFound, "Utilisateur introuvable", nil)
		case errors.Is(err, services.ErrInvalidCredentials):
			logger.WithFields(map[string]interface{}{
				"email":      req.Email,
				"request_id": middleware.RequestID(r.Context()),
			}).Warn("Login failed: invalid password")
			writeError(w, http.StatusUnauthorized, "Mot de passe incorrect", nil)
		default:
			logger.Error("Failed to authenticate user: %v", err)
			writeError(w, http.StatusInternalServerError, "Erreur serveur", err)
		}
		return
	}

	token, expiresAt, err := utils.GenerateToken(user.ID, user.Role)
	if err != nil {
		logger.Error("Failed to generate token: %v", err)
		writeError(w, http.StatusInternalServerError, "Erreur serveur", err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AuthCookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Unix(expiresAt, 0),
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	logger.WithFields(map[string]interface{}{
		"user_id": user.ID,
		"role":    user.Role,
	}).Info("User logged in")

	writeJSON(w, http.StatusOK, models.SuccessResponse("Connexion réussie", models.LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      &user,
	}))

	if user.Role == models.RoleAdmin {
		utils.LogAdminActivity(user.ID, user.Name, models.AdminActionLogin, "Admin logged in")
	}
}

// Logout expires the session cookie
// @Summary Logout
// @Tags auth
// @Produce json
// @Success 200 {object} models.APIResponse
// @Router /api/auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AuthCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, models.SuccessResponse("Déconnexion réussie", nil))
}
