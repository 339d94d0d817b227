package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/erazemk/knjiznica/internal/session"
)

type webContextKey string

const webSessionKey webContextKey = "session"

// CookieName is the session cookie.
const CookieName = "knjiznica_session"

// SessionMiddleware validates the session cookie and adds the session id to
// the context. Requests without a valid cookie get a fresh session.
func SessionMiddleware(secret string, ttl time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var id string
			if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
				id, err = session.Validate(secret, cookie.Value)
				if err != nil {
					slog.Info("discarding session cookie", "error", err)
					id = ""
				}
			}

			if id == "" {
				token, newID, err := session.NewToken(secret, ttl)
				if err != nil {
					slog.Error("failed to create session", "error", err)
					http.Error(w, "internal error", http.StatusInternalServerError)
					return
				}
				id = newID
				http.SetCookie(w, &http.Cookie{
					Name:     CookieName,
					Value:    token,
					Path:     "/",
					MaxAge:   int(ttl.Seconds()),
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx := context.WithValue(r.Context(), webSessionKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSessionID retrieves the session id from web context.
func GetSessionID(ctx context.Context) string {
	id, _ := ctx.Value(webSessionKey).(string)
	return id
}
