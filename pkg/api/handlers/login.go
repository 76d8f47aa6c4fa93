package handlers

import (
	"net/http"

	"github.com/hashbeam/cidhub/pkg/api/auth"
	"github.com/hashbeam/cidhub/pkg/store"
)

// AuthHandler issues session tokens.
type AuthHandler struct {
	store  *store.GORMStore
	tokens *auth.Service
}

// NewAuthHandler creates an auth handler.
func NewAuthHandler(s *store.GORMStore, tokens *auth.Service) *AuthHandler {
	return &AuthHandler{store: s, tokens: tokens}
}

// LoginRequest is the request body for POST /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.Username == "" || req.Password == "" {
		BadRequest(w, "Username and password are required")
		return
	}

	user, err := h.store.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		Unauthorized(w, "Invalid credentials")
		return
	}
	token, err := h.tokens.Issue(user)
	if err != nil {
		InternalServerError(w, "failed to issue token")
		return
	}
	WriteJSONOK(w, token)
}
