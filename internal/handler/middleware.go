package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/skobelev/storefront/internal/domain/user"
)

type currentUserKey struct{}

// UserFromContext extracts the authenticated user set by requireSession.
func UserFromContext(ctx context.Context) (*user.User, bool) {
	u, ok := ctx.Value(currentUserKey{}).(*user.User)
	return u, ok
}

// sessionToken extracts the token from the Authorization header or the
// session cookie.
func sessionToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return token
		}
	}
	if c, err := r.Cookie("admin_session"); err == nil {
		return c.Value
	}
	return ""
}

// requireSession resolves the session token to a user and stores it in the
// request context. Requests without a valid session get 401.
func (h *Handler) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := sessionToken(r)
		if token == "" {
			respondError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		u, err := h.auth.CurrentUser(r.Context(), token)
		if err != nil {
			respondDomainError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), currentUserKey{}, u)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requirePermission gates a route on the authenticated user holding p.
// Authorization tests permission membership, never role names.
func (h *Handler) requirePermission(p user.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := UserFromContext(r.Context())
			if !ok {
				respondError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			if !u.HasPermission(p) {
				respondError(w, http.StatusForbidden, "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
