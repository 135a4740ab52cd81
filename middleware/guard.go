package middleware

import (
	"context"
	"net/http"

	"github.com/MrEthical07/tokenauth"
)

// Authenticator is the engine surface the gate needs.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*tokenauth.Principal, error)
}

// Gate authenticates the bearer token, if any, and attaches the principal to
// the request context. Absence falls through; invalidity is rejected.
func Gate(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, present := tokenauth.BearerToken(r.Header.Get("Authorization"))
			if !present {
				next.ServeHTTP(w, r)
				return
			}
			if auth == nil || token == "" {
				rejectInvalidToken(w)
				return
			}

			principal, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				rejectInvalidToken(w)
				return
			}

			ctx := tokenauth.WithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
