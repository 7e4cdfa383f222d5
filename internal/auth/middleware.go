package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/sakif/problem-hub/internal/apperror"
)

// Verifier turns a raw bearer token into an Identity.
// *TokenService and service.AuthService both satisfy it.
type Verifier interface {
	Verify(token string) (Identity, error)
}

// contextKey is unexported so no other package can read or shadow the
// identity stored in the request context.
type contextKey string

const identityKey contextKey = "identity"

// RequireAuth rejects requests without a valid "Authorization: Bearer"
// header before they reach the handler.
//
//	no header / not a bearer token  → 401 {"message":"access token required"}
//	bad signature / expired / junk  → 403 {"message":"invalid or expired token"}
//
// On success the Identity is stored in the request context; read it with
// IdentityFromContext.
func RequireAuth(v Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := v.Verify(BearerToken(r))
			if err != nil {
				status := http.StatusForbidden
				message := "invalid or expired token"
				if errors.Is(err, apperror.ErrUnauthenticated) {
					status = http.StatusUnauthorized
					message = "access token required"
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(status)
				json.NewEncoder(w).Encode(map[string]string{"message": message})
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// BearerToken extracts the token from the Authorization header, or ""
// when the header is missing or uses another scheme.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the authenticated caller, or false on a
// request that did not pass through RequireAuth.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok && id.UserID != ""
}
