package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dukerupert/basket/internal/auth"
)

// UserHeader carries the id of the user a request acts for. It is set by
// whatever fronts this service; the value is not verified here.
const UserHeader = "X-User-ID"

// RequireUser reads the caller's id from UserHeader into the request context
// and rejects requests without one.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(UserHeader))
		if userID == "" {
			writeFailure(w, http.StatusUnauthorized, "missing "+UserHeader+" header")
			return
		}
		ctx := auth.WithIdentity(r.Context(), auth.Identity{UserID: userID})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func writeFailure(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"success": false, "error": msg})
}
