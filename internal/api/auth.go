package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/mail"
	"time"

	"github.com/erazemk/inventar/internal/auth"
	"github.com/erazemk/inventar/internal/db"
	"github.com/erazemk/inventar/internal/repo"
)

// AuthHandler handles registration and login.
type AuthHandler struct {
	Users       *repo.UserRepo
	Secret      string
	TokenExpiry time.Duration
}

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	IsActive *bool  `json:"is_active"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := validateEmail(req.Email); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validateUsername(req.Username); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validatePassword(req.Password); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Pre-checks for friendly messages; the unique constraints still
	// catch concurrent duplicates below.
	existing, err := h.Users.GetByUsername(r.Context(), req.Username)
	if err != nil {
		slog.Error("checking username", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if existing != nil {
		jsonError(w, http.StatusBadRequest, "Username already registered")
		return
	}

	existing, err = h.Users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		slog.Error("checking email", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if existing != nil {
		jsonError(w, http.StatusBadRequest, "Email already registered")
		return
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	user, err := h.Users.Create(r.Context(), repo.UserCreate{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
		FullName: req.FullName,
		IsActive: isActive,
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			jsonError(w, http.StatusConflict, "Username or email already registered")
			return
		}
		slog.Error("creating user", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	slog.Info("user registered", "user", user.Username)
	jsonResponse(w, http.StatusCreated, user)
}

// Login handles POST /auth/login. The body is form-encoded with username
// and password fields; the username field also accepts an email.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid form body")
		return
	}

	username := r.PostFormValue("username")
	password := r.PostFormValue("password")
	if username == "" || password == "" {
		jsonError(w, http.StatusBadRequest, "username and password required")
		return
	}

	user, err := h.Users.Authenticate(r.Context(), username, password)
	if err != nil {
		slog.Error("authenticating user", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if user == nil {
		slog.Warn("login failed", "username", username, "remote", r.RemoteAddr)
		w.Header().Set("WWW-Authenticate", "Bearer")
		jsonError(w, http.StatusUnauthorized, "Incorrect username or password")
		return
	}
	if !user.IsActive {
		jsonError(w, http.StatusBadRequest, "Inactive user")
		return
	}

	token, err := auth.GenerateToken(h.Secret, user.Username, h.TokenExpiry)
	if err != nil {
		slog.Error("generating token", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}

	slog.Info("user logged in", "user", user.Username)
	jsonResponse(w, http.StatusOK, tokenResponse{AccessToken: token, TokenType: "bearer"})
}

func validateEmail(email string) error {
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("invalid email address")
	}
	return nil
}

func validateUsername(username string) error {
	if len(username) < 3 || len(username) > 50 {
		return fmt.Errorf("username must be between 3 and 50 characters")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}
	return nil
}
