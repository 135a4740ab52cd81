package middleware

import (
	"net/http"

	"github.com/MrEthical07/tokenauth"
)

// RequireAuthenticated rejects requests that reached it without a principal.
func RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := tokenauth.PrincipalFromContext(r.Context()); !ok {
			rejectAnonymous(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole admits principals holding one of roles.
func RequireRole(roles ...tokenauth.Role) func(http.Handler) http.Handler {
	allowed := make(map[tokenauth.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := tokenauth.PrincipalFromContext(r.Context())
			if !ok {
				rejectAnonymous(w)
				return
			}
			if _, ok := allowed[p.Role]; !ok {
				writeError(w, http.StatusForbidden, "E403", "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Chain applies mws so that the first one listed runs first.
func Chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
