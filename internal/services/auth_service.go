package services

import (
	"context"
	cryptorand "crypto/rand"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
	"golang.org/x/crypto/argon2"

	"github.com/minibank/backend/internal/middleware"
	"github.com/minibank/backend/internal/models"
	"github.com/minibank/backend/internal/store"
)

// AuthService handles registration, login and logout for the three roles.
// Logged-out tokens are blacklisted in Redis until their natural expiry.
type AuthService struct {
	db        *sql.DB
	store     *store.Store
	redis     *redis.Client
	validator *validator.Validate
}

// LoginRequest represents the login request payload
// @Description Login request structure
type LoginRequest struct {
	Username string `json:"username" validate:"required" example:"Priya42"`          // Login username
	Password string `json:"password" validate:"required,min=8" example:"Secret1234"` // Password
}

// RegisterRequest represents the registration request payload
// @Description Registration request structure
type RegisterRequest struct {
	Username    string `json:"username" validate:"required" example:"Priya42"`             // Login username
	Password    string `json:"password" validate:"required,min=8" example:"Secret1234"`    // Password
	Email       string `json:"email" validate:"required,email" example:"user@example.com"` // Email address
	Role        string `json:"role" validate:"omitempty,oneof=Manager Employee Customer"`  // Role, defaults to Customer
	ReferenceID int64  `json:"referenceId" validate:"omitempty,min=1"`                     // Customer id this login belongs to
}

// AuthResponse represents the authentication response
// @Description Authentication response structure
type AuthResponse struct {
	Token string              `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."` // JWT token
	User  models.UserRegister `json:"user"`                                                    // Login information
}

func NewAuthService(db *sql.DB, st *store.Store, redisClient *redis.Client) *AuthService {
	viper.SetDefault("argon2.salt_length", 16)
	viper.SetDefault("argon2.time", 1)
	viper.SetDefault("argon2.memory", 64*1024)
	viper.SetDefault("argon2.threads", 4)
	viper.SetDefault("argon2.key_length", 32)
	viper.SetDefault("jwt.expiry_hours", 24)
	return &AuthService{
		db:        db,
		store:     st,
		redis:     redisClient,
		validator: validator.New(),
	}
}

func (s *AuthService) sendErrorResponse(w http.ResponseWriter, message string, statusCode int, validationErr error) {
	SendErrorResponse(w, message, statusCode, validationErr)
}

func (s *AuthService) decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	maxBytes := 1_048_576 // 1 MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("request body must only contain a single JSON object")
	}
	return nil
}

// Register handles login creation
// @Summary Register a new login
// @Description Create a login with username, password, email and role
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration request"
// @Success 200 {object} AuthResponse "Registration successful"
// @Failure 400 {string} string "Invalid request"
// @Failure 409 {string} string "Username already exists"
// @Failure 500 {string} string "Internal server error"
// @Router /auth/register [post]
func (s *AuthService) Register(w http.ResponseWriter, r *http.Request) {
	log.Printf("[AUTH] Registration attempt from IP: %s", r.RemoteAddr)

	var req RegisterRequest
	if err := s.decodeBody(w, r, &req); err != nil {
		log.Printf("[AUTH] Registration failed - invalid request: %v", err)
		s.sendErrorResponse(w, "Invalid request", http.StatusBadRequest, nil)
		return
	}
	if err := s.validator.Struct(&req); err != nil {
		log.Printf("[AUTH] Registration validation failed: %v", err)
		s.sendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}
	if err := ValidateUsername(req.Username); err != nil {
		s.sendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}
	if err := ValidatePassword(req.Password); err != nil {
		s.sendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}
	if req.Role == "" {
		req.Role = models.RoleCustomer
	}

	hashedPassword, err := hashPassword(req.Password)
	if err != nil {
		log.Printf("[AUTH] Password hashing failed for %s: %v", req.Username, err)
		s.sendErrorResponse(w, "An Internal Error Occurred", http.StatusInternalServerError, nil)
		return
	}

	// Employee logins stay inactive until a manager activates them.
	user := &models.UserRegister{
		Username:     req.Username,
		PasswordHash: hashedPassword,
		Email:        strings.ToLower(req.Email),
		Role:         req.Role,
		ReferenceID:  req.ReferenceID,
		IsActive:     req.Role != models.RoleEmployee,
		CreatedAt:    time.Now(),
	}
	err = s.store.RunTx(r.Context(), "auth.register", func(tx *sql.Tx) error {
		return s.store.InsertUserRegister(r.Context(), tx, user)
	})
	if err != nil {
		log.Printf("[AUTH] Login creation failed for %s: %v", req.Username, err)
		s.sendErrorResponse(w, "Username Already Exists", http.StatusConflict, nil)
		return
	}

	token, err := generateJWT(user)
	if err != nil {
		log.Printf("[AUTH] JWT generation failed for user %d: %v", user.UserID, err)
		s.sendErrorResponse(w, "Failed to generate token", http.StatusInternalServerError, nil)
		return
	}

	log.Printf("[AUTH] Registration successful for user %d (%s)", user.UserID, user.Role)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(AuthResponse{Token: token, User: *user})
}

// Login handles user authentication
// @Summary Login
// @Description Authenticate with username and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login request"
// @Success 200 {object} AuthResponse "Login successful"
// @Failure 400 {string} string "Invalid request"
// @Failure 401 {string} string "Invalid credentials"
// @Failure 500 {string} string "Internal server error"
// @Router /auth/login [post]
func (s *AuthService) Login(w http.ResponseWriter, r *http.Request) {
	log.Printf("[AUTH] Login attempt from IP: %s", r.RemoteAddr)

	var req LoginRequest
	if err := s.decodeBody(w, r, &req); err != nil {
		log.Printf("[AUTH] Login failed - invalid request: %v", err)
		s.sendErrorResponse(w, "Invalid request", http.StatusBadRequest, nil)
		return
	}
	if err := s.validator.Struct(&req); err != nil {
		log.Printf("[AUTH] Login validation failed: %v", err)
		s.sendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	var user models.UserRegister
	err := s.db.QueryRowContext(r.Context(), `
		SELECT user_id, username, password_hash, email, role, reference_id, is_active, created_at
		FROM users WHERE username = $1`, req.Username).
		Scan(&user.UserID, &user.Username, &user.PasswordHash, &user.Email,
			&user.Role, &user.ReferenceID, &user.IsActive, &user.CreatedAt)
	if err != nil {
		log.Printf("[AUTH] User not found: %s", req.Username)
		s.sendErrorResponse(w, "Invalid credentials", http.StatusUnauthorized, nil)
		return
	}

	if !verifyPassword(req.Password, user.PasswordHash) {
		log.Printf("[AUTH] Invalid password for user: %s", req.Username)
		s.sendErrorResponse(w, "Invalid credentials", http.StatusUnauthorized, nil)
		return
	}
	if !user.IsActive {
		log.Printf("[AUTH] Login rejected for deactivated user: %s", req.Username)
		s.sendErrorResponse(w, "Account is deactivated", http.StatusUnauthorized, nil)
		return
	}

	token, err := generateJWT(&user)
	if err != nil {
		log.Printf("[AUTH] JWT generation failed for user %d: %v", user.UserID, err)
		s.sendErrorResponse(w, "Failed to generate token", http.StatusInternalServerError, nil)
		return
	}

	log.Printf("[AUTH] Login successful for user %d (%s)", user.UserID, user.Role)
	user.PasswordHash = ""
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(AuthResponse{Token: token, User: user})
}

// Logout handles user logout
// @Summary Logout
// @Description Logout and blacklist the presented token
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]string "Logout successful"
// @Router /auth/logout [post]
func (s *AuthService) Logout(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get("Authorization")
	if token != "" && len(token) > 7 {
		token = token[7:] // Remove "Bearer " prefix

		if s.redis != nil {
			ctx := context.Background()
			key := fmt.Sprintf("blacklist:%s", token)
			// Blacklist token until its expiration
			expiry := time.Duration(viper.GetInt("jwt.expiry_hours")) * time.Hour
			if err := s.redis.Set(ctx, key, "1", expiry).Err(); err != nil {
				log.Printf("[AUTH] Failed to blacklist token: %v", err)
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Logout successful"})
}

// Me returns the login behind the presented token
// @Summary Get current login
// @Description Get the authenticated user's login record
// @Tags auth
// @Produce json
// @Success 200 {object} models.UserRegister "Login details"
// @Failure 401 {string} string "Unauthorized"
// @Failure 500 {string} string "Internal server error"
// @Router /auth/me [get]
func (s *AuthService) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserIDKey).(int64)
	if !ok {
		log.Printf("[AUTH] Unauthorized account request - no user ID in context")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var user models.UserRegister
	err := s.db.QueryRowContext(r.Context(), `
		SELECT user_id, username, email, role, reference_id, is_active, created_at
		FROM users WHERE user_id = $1`, userID).
		Scan(&user.UserID, &user.Username, &user.Email, &user.Role,
			&user.ReferenceID, &user.IsActive, &user.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			http.Error(w, "User not found", http.StatusNotFound)
		} else {
			log.Printf("[AUTH] Failed to fetch login for user %d: %v", userID, err)
			http.Error(w, "Failed to fetch user details", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(user)
}

// Deactivate flips a login inactive without deleting it
// @Summary Deactivate a login
// @Description Mark a login inactive so it can no longer authenticate
// @Tags auth
// @Produce json
// @Param username path string true "Username"
// @Success 200 {object} map[string]string "Login deactivated"
// @Failure 404 {string} string "Login not found"
// @Router /auth/users/{username}/deactivate [post]
func (s *AuthService) Deactivate(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	result, err := s.db.ExecContext(r.Context(), `
		UPDATE users SET is_active = FALSE WHERE username = $1`, username)
	if err != nil {
		log.Printf("[AUTH] Failed to deactivate %s: %v", username, err)
		s.sendErrorResponse(w, "Failed to deactivate login", http.StatusInternalServerError, nil)
		return
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		s.sendErrorResponse(w, "Login not found", http.StatusNotFound, nil)
		return
	}

	log.Printf("[AUTH] Login %s deactivated", username)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Login deactivated"})
}

// Activate approves a pending login
// @Summary Activate a login
// @Description Mark a login active so it can authenticate
// @Tags auth
// @Produce json
// @Param username path string true "Username"
// @Success 200 {object} map[string]string "Login activated"
// @Failure 404 {string} string "Login not found"
// @Router /auth/users/{username}/activate [post]
func (s *AuthService) Activate(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	result, err := s.db.ExecContext(r.Context(), `
		UPDATE users SET is_active = TRUE WHERE username = $1`, username)
	if err != nil {
		log.Printf("[AUTH] Failed to activate %s: %v", username, err)
		s.sendErrorResponse(w, "Failed to activate login", http.StatusInternalServerError, nil)
		return
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		s.sendErrorResponse(w, "Login not found", http.StatusNotFound, nil)
		return
	}

	log.Printf("[AUTH] Login %s activated", username)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Login activated"})
}

// ChangePasswordRequest represents the password change payload
// @Description Password change request structure
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`       // Current password
	NewPassword string `json:"newPassword" validate:"required,min=8"` // Replacement password
}

// ChangePassword replaces the authenticated user's password
// @Summary Change password
// @Description Verify the current password and store a new one
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ChangePasswordRequest true "Password change request"
// @Success 200 {object} map[string]string "Password changed"
// @Failure 400 {string} string "Invalid request"
// @Failure 401 {string} string "Wrong current password"
// @Router /auth/password [post]
func (s *AuthService) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserIDKey).(int64)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req ChangePasswordRequest
	if err := s.decodeBody(w, r, &req); err != nil {
		s.sendErrorResponse(w, "Invalid request", http.StatusBadRequest, nil)
		return
	}
	if err := s.validator.Struct(&req); err != nil {
		s.sendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}
	if err := ValidatePassword(req.NewPassword); err != nil {
		s.sendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}

	var currentHash string
	err := s.db.QueryRowContext(r.Context(), `
		SELECT password_hash FROM users WHERE user_id = $1`, userID).Scan(&currentHash)
	if err != nil {
		log.Printf("[AUTH] Password change failed to load user %d: %v", userID, err)
		s.sendErrorResponse(w, "An Internal Error Occurred", http.StatusInternalServerError, nil)
		return
	}
	if !verifyPassword(req.OldPassword, currentHash) {
		log.Printf("[AUTH] Password change rejected for user %d: wrong current password", userID)
		s.sendErrorResponse(w, "Current password is incorrect", http.StatusUnauthorized, nil)
		return
	}

	newHash, err := hashPassword(req.NewPassword)
	if err != nil {
		s.sendErrorResponse(w, "An Internal Error Occurred", http.StatusInternalServerError, nil)
		return
	}
	if _, err := s.db.ExecContext(r.Context(), `
		UPDATE users SET password_hash = $1 WHERE user_id = $2`, newHash, userID); err != nil {
		log.Printf("[AUTH] Password update failed for user %d: %v", userID, err)
		s.sendErrorResponse(w, "An Internal Error Occurred", http.StatusInternalServerError, nil)
		return
	}

	log.Printf("[AUTH] Password changed for user %d", userID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Password changed"})
}

func generateJWT(user *models.UserRegister) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  user.UserID,
		"username": user.Username,
		"role":     user.Role,
		"ref_id":   user.ReferenceID,
		"exp":      time.Now().Add(time.Duration(viper.GetInt("jwt.expiry_hours")) * time.Hour).Unix(),
	})

	return token.SignedString([]byte(viper.GetString("jwt.secret_key")))
}

func hashPassword(password string) (string, error) {
	salt := make([]byte, viper.GetInt("argon2.salt_length"))
	if _, err := cryptorand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(password), salt,
		uint32(viper.GetInt("argon2.time")),
		uint32(viper.GetInt("argon2.memory")),
		uint8(viper.GetInt("argon2.threads")),
		uint32(viper.GetInt("argon2.key_length")))
	return fmt.Sprintf("%s$%s", base64.StdEncoding.EncodeToString(salt), base64.StdEncoding.EncodeToString(hash)), nil
}

func verifyPassword(password, hashedPassword string) bool {
	parts := strings.Split(hashedPassword, "$")
	if len(parts) != 2 {
		return false
	}

	salt, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return false
	}

	hash, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return false
	}

	computedHash := argon2.IDKey([]byte(password), salt,
		uint32(viper.GetInt("argon2.time")),
		uint32(viper.GetInt("argon2.memory")),
		uint8(viper.GetInt("argon2.threads")),
		uint32(viper.GetInt("argon2.key_length")))
	return string(hash) == string(computedHash)
}
