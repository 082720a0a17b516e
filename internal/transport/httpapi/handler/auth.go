package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// TokenIssuer defines the interface for issuing API tokens
type TokenIssuer interface {
	GenerateToken() (string, time.Time, error)
}

// AuthHandler exchanges the configured access password for an API token.
type AuthHandler struct {
	passwordHash []byte
	jwtService   TokenIssuer
}

// NewAuthHandler creates a new auth handler. passwordHash is a bcrypt hash;
// empty disables the endpoint.
func NewAuthHandler(passwordHash string, jwtService TokenIssuer) *AuthHandler {
	return &AuthHandler{
		passwordHash: []byte(passwordHash),
		jwtService:   jwtService,
	}
}

// TokenRequest represents the token request body
type TokenRequest struct {
	Password string `json:"password"`
}

// TokenResponse represents the issued token
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IssueToken handles POST /auth/token
func (h *AuthHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	if len(h.passwordHash) == 0 {
		respondError(w, "token endpoint is not configured", http.StatusNotFound)
		return
	}

	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.Password == "" {
		respondError(w, "password is required", http.StatusBadRequest)
		return
	}

	if err := bcrypt.CompareHashAndPassword(h.passwordHash, []byte(req.Password)); err != nil {
		respondError(w, "invalid password", http.StatusUnauthorized)
		return
	}

	token, expiresAt, err := h.jwtService.GenerateToken()
	if err != nil {
		respondError(w, "failed to generate token", http.StatusInternalServerError)
		return
	}

	respondJSON(w, TokenResponse{Token: token, ExpiresAt: expiresAt}, http.StatusOK)
}
