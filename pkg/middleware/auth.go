package middleware

import (
	"net/http"
	"strings"

	"github.com/shashiranjanraj/panaya/pkg/auth"
	"github.com/shashiranjanraj/panaya/pkg/response"
)

func bearer(r *http.Request, allowQuery bool) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	if allowQuery {
		return r.URL.Query().Get("token")
	}
	return ""
}

func authenticate(allowQuery, optional bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := bearer(r, allowQuery)
			if tok == "" {
				if optional {
					next.ServeHTTP(w, r)
					return
				}
				response.Unauthorized(w)
				return
			}

			claims, err := auth.ValidateToken(tok)
			if err != nil {
				response.Error(w, http.StatusUnauthorized, "Invalid token")
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
		})
	}
}

// AuthMiddleware requires a valid bearer token and stores its claims in the
// request context.
func AuthMiddleware(next http.Handler) http.Handler {
	return authenticate(false, false)(next)
}

// StreamAuth is AuthMiddleware that also accepts ?token= for websocket and
// event-stream clients that cannot set headers.
func StreamAuth(next http.Handler) http.Handler {
	return authenticate(true, false)(next)
}

// OptionalAuth attaches claims when a valid token is sent and lets anonymous
// requests through.
func OptionalAuth(next http.Handler) http.Handler {
	return authenticate(false, true)(next)
}

func RoleFromCtx(r *http.Request) (string, bool) {
	c, ok := auth.FromContext(r.Context())
	if !ok {
		return "", false
	}
	return c.Role, true
}

func UserIDFromCtx(r *http.Request) (uint, bool) {
	c, ok := auth.FromContext(r.Context())
	if !ok {
		return 0, false
	}
	return c.UserID, true
}
