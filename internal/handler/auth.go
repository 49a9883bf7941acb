package handler

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/taskwise-ai/assistant-platform/internal/auth"
	"github.com/taskwise-ai/assistant-platform/internal/model"
	"github.com/taskwise-ai/assistant-platform/internal/store"
	"github.com/taskwise-ai/assistant-platform/pkg/logger"
)

// AuthHandler handles signup and login.
type AuthHandler struct {
	users  *store.UserStore
	issuer *auth.TokenIssuer
	logger *logger.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(users *store.UserStore, issuer *auth.TokenIssuer, log *logger.Logger) *AuthHandler {
	return &AuthHandler{
		users:  users,
		issuer: issuer,
		logger: log,
	}
}

// Signup handles POST /api/v1/auth/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req model.SignupRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidInput, "email and a password of at least 8 characters are required")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.logger.Error("failed to hash password", zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to register user")
		return
	}

	user, err := h.users.Create(r.Context(), req.Email, hash)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			writeError(w, http.StatusConflict, codeConflict, "email already registered")
			return
		}
		h.logger.Error("failed to create user", zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to register user")
		return
	}

	h.respondWithToken(w, http.StatusCreated, user)
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidInput, "email and password are required")
		return
	}

	user, err := h.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "invalid credentials")
			return
		}
		h.logger.Error("failed to load user", zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to log in")
		return
	}

	if !auth.VerifyPassword(req.Password, user.PasswordHash) {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "invalid credentials")
		return
	}

	// Migrate legacy salted-SHA-256 credentials to bcrypt on successful
	// login. Best effort: login succeeds either way.
	if auth.NeedsRehash(user.PasswordHash) {
		if hash, err := auth.HashPassword(req.Password); err == nil {
			if err := h.users.UpdatePasswordHash(r.Context(), user.ID, hash); err != nil {
				h.logger.Warn("failed to migrate legacy credential", zap.Int64("user_id", user.ID), zap.Error(err))
			}
		}
	}

	h.respondWithToken(w, http.StatusOK, user)
}

func (h *AuthHandler) respondWithToken(w http.ResponseWriter, status int, user *model.User) {
	token, err := h.issuer.Issue(user.ID, user.Email)
	if err != nil {
		h.logger.Error("failed to issue token", zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to issue token")
		return
	}

	writeJSON(w, status, &model.AuthResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(h.issuer.Expiration().Seconds()),
		User:        user,
	})
}
