package auth

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/mind-engage/fungiquest/internal/apierr"
	"github.com/mind-engage/fungiquest/internal/rbac"
)

// BearerToken extracts the credential from "Authorization: Bearer ..." or,
// failing that, the "apikey" header.
func BearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return strings.TrimSpace(r.Header.Get("apikey"))
}

// JWTMiddleware admits either the shared API key (role "anon", no subject) or
// a user token issued by a.
func JWTMiddleware(a *AuthService, apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := BearerToken(r)
			if tok == "" {
				apierr.Write(w, apierr.New(http.StatusUnauthorized, "missing_bearer", errors.New("missing bearer")))
				return
			}
			ctx := r.Context()
			if apiKey != "" && subtle.ConstantTimeCompare([]byte(tok), []byte(apiKey)) == 1 {
				next.ServeHTTP(w, r.WithContext(rbac.WithRole(ctx, RoleAnon)))
				return
			}
			claims, err := a.Parse(tok)
			if err != nil {
				apierr.Write(w, apierr.New(http.StatusUnauthorized, "bad_token", errors.New("bad token")))
				return
			}
			ctx = WithSubject(ctx, claims.Sub)
			ctx = WithEmail(ctx, claims.Email)
			ctx = rbac.WithRole(ctx, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
