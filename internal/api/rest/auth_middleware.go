package rest

import (
	"context"
	"net/http"
	"strings"

	"github.com/arenabid/live-auction-backend/internal/domain/errors"
	"github.com/arenabid/live-auction-backend/internal/infrastructure/auth"
)

const contextKeyClaims contextKey = "claims"

// TokenValidator authenticates bearer tokens.
type TokenValidator interface {
	ValidateToken(token string) (*auth.Claims, error)
}

// AuthMiddleware validates the bearer token and stores its claims in the
// request context.
func AuthMiddleware(tokens TokenValidator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				writeError(w, errors.NewUnauthorizedError("missing bearer token"))
				return
			}
			claims, err := tokens.ValidateToken(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				writeError(w, errors.NewUnauthorizedError("invalid or expired token"))
				return
			}
			ctx := context.WithValue(r.Context(), contextKeyClaims, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole gates a handler on the authenticated role.
func RequireRole(role auth.Role) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := claimsFromContext(r.Context())
			if claims == nil {
				writeError(w, errors.NewUnauthorizedError("authentication required"))
				return
			}
			if claims.Role != role {
				writeError(w, errors.NewForbiddenError("insufficient role"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func claimsFromContext(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(contextKeyClaims).(*auth.Claims)
	return claims
}
