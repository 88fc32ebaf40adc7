package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

const minPasswordLen = 8

// Authenticator is the slice of the auth service the HTTP handlers
// need; tests substitute a fake.
type Authenticator interface {
	Register(ctx context.Context, email, password, displayName string) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
}

type Handler struct {
	auth Authenticator
}

func NewHandler(auth Authenticator) *Handler {
	return &Handler{auth: auth}
}

// credentials is the request body for both register and login;
// DisplayName is register-only.
type credentials struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName,omitempty"`
}

// decodeCredentials parses and normalizes the request body. Emails are
// case-insensitive, so they are stored lowercased.
func decodeCredentials(w http.ResponseWriter, r *http.Request) (credentials, bool) {
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		fail(w, http.StatusBadRequest, "invalid request body")
		return creds, false
	}
	creds.Email = strings.ToLower(strings.TrimSpace(creds.Email))
	creds.DisplayName = strings.TrimSpace(creds.DisplayName)

	if creds.Email == "" || !strings.Contains(creds.Email, "@") {
		fail(w, http.StatusBadRequest, "a valid email is required")
		return creds, false
	}
	if creds.Password == "" {
		fail(w, http.StatusBadRequest, "password is required")
		return creds, false
	}
	return creds, true
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	creds, ok := decodeCredentials(w, r)
	if !ok {
		return
	}
	if len(creds.Password) < minPasswordLen {
		fail(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}
	if creds.DisplayName == "" {
		// Default to the email local part.
		creds.DisplayName, _, _ = strings.Cut(creds.Email, "@")
	}

	result, err := h.auth.Register(r.Context(), creds.Email, creds.Password, creds.DisplayName)
	switch {
	case errors.Is(err, ErrEmailTaken):
		fail(w, http.StatusConflict, ErrEmailTaken.Error())
	case err != nil:
		slog.Error("register failed", "email", creds.Email, "error", err)
		fail(w, http.StatusInternalServerError, "internal error")
	default:
		slog.Info("user registered", "user", result.User.ID)
		respond(w, http.StatusCreated, result)
	}
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	creds, ok := decodeCredentials(w, r)
	if !ok {
		return
	}

	result, err := h.auth.Login(r.Context(), creds.Email, creds.Password)
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		fail(w, http.StatusUnauthorized, ErrInvalidCredentials.Error())
	case err != nil:
		slog.Error("login failed", "email", creds.Email, "error", err)
		fail(w, http.StatusInternalServerError, "internal error")
	default:
		respond(w, http.StatusOK, result)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func fail(w http.ResponseWriter, status int, msg string) {
	respond(w, status, errorResponse{Error: msg})
}
