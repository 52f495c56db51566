package middleware

import (
	"context"
	"net/http"

	"github.com/akoreshkov/minefield-server/internal/config"
)

type ctxKey int

const ctxPlayerClaims ctxKey = iota

// Auth parses the auth cookie pair and, when valid, attaches the player
// claims to the request context. Requests without valid cookies pass
// through anonymously with the stale cookies cleared.
func Auth(cookies *config.Cookies) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := cookies.ParsePlayerClaims(r)
			if err != nil {
				cookies.Clear(w)
				next.ServeHTTP(w, r)
				return
			}
			ctx := context.WithValue(r.Context(), ctxPlayerClaims, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// PlayerClaims extracts the claims attached by Auth, if any.
func PlayerClaims(ctx context.Context) (*config.PlayerClaims, bool) {
	claims, ok := ctx.Value(ctxPlayerClaims).(*config.PlayerClaims)
	return claims, ok
}
