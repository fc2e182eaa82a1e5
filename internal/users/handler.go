package users

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/viradabrew/storefront/internal/auth"
	"github.com/viradabrew/storefront/internal/domain"
	"github.com/viradabrew/storefront/internal/httpx"
)

// Store is the persistence surface the handler needs; tests use fakes.
type Store interface {
	Create(ctx context.Context, user *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

type Handler struct {
	store  Store
	issuer *auth.TokenIssuer
	logger *slog.Logger
}

func NewHandler(store Store, issuer *auth.TokenIssuer, logger *slog.Logger) *Handler {
	return &Handler{store: store, issuer: issuer, logger: logger}
}

type registerRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Document string `json:"document"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Fail(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		httpx.Fail(w, h.logger, http.StatusBadRequest, "a valid email is required")
		return
	}
	if len(req.Password) < 8 {
		httpx.Fail(w, h.logger, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}
	if req.FullName == "" {
		httpx.Fail(w, h.logger, http.StatusBadRequest, "full name is required")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("failed to hash password", "error", err)
		httpx.Fail(w, h.logger, http.StatusInternalServerError, "internal server error")
		return
	}

	user := &domain.User{
		FullName:     req.FullName,
		Email:        req.Email,
		Document:     req.Document,
		PasswordHash: string(hash),
	}

	if err := h.store.Create(r.Context(), user); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			httpx.Fail(w, h.logger, http.StatusConflict, "email already registered")
			return
		}
		h.logger.Error("failed to create user", "error", err)
		httpx.Fail(w, h.logger, http.StatusInternalServerError, "internal server error")
		return
	}

	token, err := h.issuer.Issue(user)
	if err != nil {
		h.logger.Error("failed to issue token", "error", err)
		httpx.Fail(w, h.logger, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("user registered", "user_id", user.ID)
	httpx.JSON(w, h.logger, http.StatusCreated, authResponse{Token: token, User: user})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Fail(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.store.GetByEmail(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		h.logger.Error("failed to look up user", "error", err)
		httpx.Fail(w, h.logger, http.StatusInternalServerError, "internal server error")
		return
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		httpx.Fail(w, h.logger, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := h.issuer.Issue(user)
	if err != nil {
		h.logger.Error("failed to issue token", "error", err)
		httpx.Fail(w, h.logger, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("user logged in", "user_id", user.ID)
	httpx.JSON(w, h.logger, http.StatusOK, authResponse{Token: token, User: user})
}
