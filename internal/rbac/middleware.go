package rbac

import (
	"errors"
	"net/http"

	"github.com/mind-engage/fungiquest/internal/apierr"
)

var defaultChecker = NewChecker(nil)

// Can reports whether role holds perm under the default policy.
func Can(role, perm string) bool { return role != "" && defaultChecker.Has(role, perm) }

func forbidden(w http.ResponseWriter) {
	apierr.Write(w, apierr.New(http.StatusForbidden, "forbidden", errors.New("forbidden")))
}

// Require enforces a single permission.
func Require(perm string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !Can(RoleFromContext(r.Context()), perm) {
				forbidden(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAny enforces that the role has at least one of the permissions.
func RequireAny(perms ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := RoleFromContext(r.Context())
			if role == "" || !defaultChecker.Any(role, perms...) {
				forbidden(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
