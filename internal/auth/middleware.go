package auth

import (
	"context"
	"net/http"

	"github.com/mrcrandell/fourgreenfieldsfarm-api/internal/rest"
	log "github.com/sirupsen/logrus"
)

type contextKey string

const claimsKey contextKey = "claims"

// RequireAuth rejects requests without a valid bearer token and stores its claims in the request context.
func RequireAuth(issuer *TokenIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := BearerToken(r)
			if err != nil {
				log.Debugf("rejecting %s %s: %v", r.Method, r.URL.Path, err)
				rest.WriteError(w, http.StatusUnauthorized, "Unauthorized", err.Error())
				return
			}
			claims, err := issuer.Verify(raw)
			if err != nil {
				log.Debugf("rejecting %s %s: %v", r.Method, r.URL.Path, err)
				rest.WriteError(w, http.StatusUnauthorized, "Unauthorized", "")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// CurrentClaims returns the claims of the authenticated caller, if any.
func CurrentClaims(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*Claims)
	return claims, ok
}
