package users

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/viradabrew/storefront/internal/auth"
	"github.com/viradabrew/storefront/internal/domain"
)

type fakeStore struct {
	users   map[string]*domain.User
	created []*domain.User
}

func (f *fakeStore) Create(_ context.Context, user *domain.User) error {
	if _, ok := f.users[user.Email]; ok {
		return ErrEmailTaken
	}
	user.ID = "user-1"
	f.users[user.Email] = user
	f.created = append(f.created, user)
	return nil
}

func (f *fakeStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	return f.users[email], nil
}

func newTestHandler(store *fakeStore) *Handler {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return NewHandler(store, auth.NewTokenIssuer("test-secret"), logger)
}

func TestHandler_HandleRegister(t *testing.T) {
	t.Run("registers and returns a token", func(t *testing.T) {
		store := &fakeStore{users: map[string]*domain.User{}}
		h := newTestHandler(store)

		req := httptest.NewRequest(http.MethodPost, "/api/auth/register",
			strings.NewReader(`{"full_name":"Ana Souza","email":"Ana@Example.com","password":"supersecret"}`))
		w := httptest.NewRecorder()

		h.HandleRegister(w, req)

		if w.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
		}

		var resp authResponse
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.Token == "" {
			t.Error("expected a token")
		}
		if resp.User.Email != "ana@example.com" {
			t.Errorf("email must be normalized, got %s", resp.User.Email)
		}
		if len(store.created) != 1 {
			t.Fatalf("expected one user, got %d", len(store.created))
		}
		if store.created[0].PasswordHash == "supersecret" {
			t.Error("password must be hashed")
		}
		if bcrypt.CompareHashAndPassword([]byte(store.created[0].PasswordHash), []byte("supersecret")) != nil {
			t.Error("hash must verify against the original password")
		}
	})

	t.Run("rejects short passwords", func(t *testing.T) {
		h := newTestHandler(&fakeStore{users: map[string]*domain.User{}})

		req := httptest.NewRequest(http.MethodPost, "/api/auth/register",
			strings.NewReader(`{"full_name":"Ana","email":"a@example.com","password":"short"}`))
		w := httptest.NewRecorder()

		h.HandleRegister(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", w.Code)
		}
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		store := &fakeStore{users: map[string]*domain.User{
			"ana@example.com": {ID: "user-0", Email: "ana@example.com"},
		}}
		h := newTestHandler(store)

		req := httptest.NewRequest(http.MethodPost, "/api/auth/register",
			strings.NewReader(`{"full_name":"Ana","email":"ana@example.com","password":"supersecret"}`))
		w := httptest.NewRecorder()

		h.HandleRegister(w, req)

		if w.Code != http.StatusConflict {
			t.Errorf("expected 409, got %d", w.Code)
		}
	})
}

func TestHandler_HandleLogin(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("supersecret"), bcrypt.MinCost)
	store := &fakeStore{users: map[string]*domain.User{
		"ana@example.com": {ID: "user-1", Email: "ana@example.com", PasswordHash: string(hash), IsAdmin: true},
	}}

	t.Run("valid credentials issue an admin-bearing token", func(t *testing.T) {
		h := newTestHandler(store)

		req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
			strings.NewReader(`{"email":"ana@example.com","password":"supersecret"}`))
		w := httptest.NewRecorder()

		h.HandleLogin(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}

		var resp authResponse
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}

		claims, err := auth.NewTokenIssuer("test-secret").Verify(resp.Token)
		if err != nil {
			t.Fatalf("token must verify: %v", err)
		}
		if claims.Subject != "user-1" || !claims.Admin {
			t.Errorf("unexpected claims %+v", claims)
		}
	})

	t.Run("wrong password is unauthorized", func(t *testing.T) {
		h := newTestHandler(store)

		req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
			strings.NewReader(`{"email":"ana@example.com","password":"wrong"}`))
		w := httptest.NewRecorder()

		h.HandleLogin(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", w.Code)
		}
	})

	t.Run("unknown email is unauthorized, not 404", func(t *testing.T) {
		h := newTestHandler(store)

		req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
			strings.NewReader(`{"email":"ghost@example.com","password":"supersecret"}`))
		w := httptest.NewRecorder()

		h.HandleLogin(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", w.Code)
		}
	})
}
