package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/iho/lendledger/internal/domain"
	"github.com/iho/lendledger/internal/infrastructure/auth"
)

// ContextKey is the type for context keys
type ContextKey string

const (
	// IdentityContextKey is the context key for the authenticated identity
	IdentityContextKey ContextKey = "identity"
)

// Identity is the authenticated caller: the principal every gateway call is
// made as, plus the role gating privileged routes.
type Identity struct {
	Principal domain.Principal
	Role      domain.Role
}

// AuthMiddleware creates an authentication middleware
func AuthMiddleware(jwtManager *auth.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Extract token from Authorization header
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "missing authorization header", http.StatusUnauthorized)
				return
			}

			// Parse Bearer token
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, "invalid authorization header format", http.StatusUnauthorized)
				return
			}

			tokenString := parts[1]

			// Verify token
			claims, err := jwtManager.Verify(tokenString)
			if err != nil {
				http.Error(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}

			identity := &Identity{
				Principal: claims.Principal,
				Role:      claims.Role,
			}

			ctx := context.WithValue(r.Context(), IdentityContextKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// DevAuthMiddleware trusts the X-Principal and X-Role headers. Only wired
// when authentication is disabled; never use in production.
func DevAuthMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := domain.Principal(r.Header.Get("X-Principal"))
			if principal.IsZero() {
				http.Error(w, "missing X-Principal header", http.StatusUnauthorized)
				return
			}

			role := domain.RoleUser
			if header := r.Header.Get("X-Role"); header != "" {
				role = domain.Role(header)
				if !role.IsValid() {
					http.Error(w, "invalid X-Role header", http.StatusUnauthorized)
					return
				}
			}

			identity := &Identity{
				Principal: principal,
				Role:      role,
			}

			ctx := context.WithValue(r.Context(), IdentityContextKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole creates a middleware that checks for a specific role
func RequireRole(minRole domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := r.Context().Value(IdentityContextKey).(*Identity)
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			// Check role permissions
			switch minRole {
			case domain.RoleAdmin:
				if identity.Role != domain.RoleAdmin {
					http.Error(w, "insufficient permissions", http.StatusForbidden)
					return
				}
			case domain.RoleOperator:
				if identity.Role != domain.RoleAdmin && identity.Role != domain.RoleOperator {
					http.Error(w, "insufficient permissions", http.StatusForbidden)
					return
				}
			case domain.RoleUser:
				// All authenticated principals can use user routes
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GetIdentityFromContext extracts the authenticated identity from context
func GetIdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(IdentityContextKey).(*Identity)
	return identity, ok
}
