package handler

import (
	"net/http"

	"github.com/iho/lendledger/internal/adapter/http/dto"
	"github.com/iho/lendledger/internal/adapter/http/middleware"
)

// AuthHandler handles authentication introspection. Tokens are minted by the
// ops CLI with the shared signing secret; the server never issues them.
type AuthHandler struct{}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler() *AuthHandler {
	return &AuthHandler{}
}

// Me returns the authenticated caller's identity.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing authentication context", "")
		return
	}

	writeJSON(w, http.StatusOK, dto.IdentityResponse{
		Principal: identity.Principal,
		Role:      identity.Role,
	})
}
