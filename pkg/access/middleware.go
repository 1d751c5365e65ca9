package access

import (
	"context"
	"net/http"
	"strconv"

	"github.com/akivmoovex/fuelx-crm-sub001/pkg/httputil"
)

type contextKey string

const userIDKey contextKey = "access_user_id"

// WithUserID returns a context carrying the authenticated user's ID.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext extracts the authenticated user's ID from context.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(userIDKey).(int64)
	return userID, ok
}

// UserHeaderMiddleware reads the authenticated user ID from the X-User-ID
// header, set by the authenticating proxy, and stores it on the context.
func UserHeaderMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if raw := r.Header.Get("X-User-ID"); raw != "" {
			if userID, err := strconv.ParseInt(raw, 10, 64); err == nil && userID > 0 {
				r = r.WithContext(WithUserID(r.Context(), userID))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RequirePermission guards a handler behind a permission check. Requests
// without an authenticated user get 401; users without the grant get 403.
func RequirePermission(engine *Engine, resource, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := UserIDFromContext(r.Context())
			if !ok {
				httputil.WriteErrorMessage(w, http.StatusUnauthorized, "authentication required")
				return
			}
			if !engine.CanPerform(r.Context(), userID, resource, action) {
				httputil.WriteForbidden(w, "permission denied")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
