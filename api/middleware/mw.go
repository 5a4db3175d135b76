package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/studentdesk/frontdesk/api/services"
	"github.com/studentdesk/frontdesk/internal/sessions"
	"github.com/studentdesk/frontdesk/models"
)

type contextKey string

const SessionKey contextKey = "session"

// WithLogger adds a logger to the context and logs request information.
func WithLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			logger := log.With().
				Str("host", r.Host).
				Str("method", r.Method).
				Str("url", r.URL.String()).
				Str("remote_addr", r.RemoteAddr).
				Time("timestamp", time.Now()).
				Logger()

			// Add the logger to the context
			ctx := logger.WithContext(r.Context())
			next.ServeHTTP(w, r.WithContext(ctx))
		},
	)
}

// WithSession loads the session named by the session cookie into the request
// context. Requests without a valid session pass through without one.
func WithSession(store sessions.Store, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				cookie, err := r.Cookie(cookieName)
				if err != nil || cookie.Value == "" {
					next.ServeHTTP(w, r)
					return
				}

				logger := zerolog.Ctx(r.Context())
				session, err := store.Get(r.Context(), cookie.Value)
				if err != nil {
					if !errors.Is(err, sessions.ErrNotFound) {
						logger.Error().Err(err).Msg("failed to load session")
					}
					next.ServeHTTP(w, r)
					return
				}

				l := logger.With().Str("session_id", session.ID).Str("role", session.User.Role.String()).Logger()
				ctx := context.WithValue(r.Context(), SessionKey, session)
				ctx = l.WithContext(ctx)
				next.ServeHTTP(w, r.WithContext(ctx))
			},
		)
	}
}

// SessionFrom returns the session stored in ctx by WithSession.
func SessionFrom(ctx context.Context) (models.Session, bool) {
	session, ok := ctx.Value(SessionKey).(models.Session)
	return session, ok
}

// RequirePage only lets sessions with role through. Others are redirected:
// to their own dashboard when logged in, to / otherwise.
func RequirePage(role models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				session, ok := SessionFrom(r.Context())
				if !ok || !session.User.Role.IsValid() {
					http.Redirect(w, r, "/", http.StatusSeeOther)
					return
				}
				if session.User.Role != role {
					http.Redirect(w, r, session.Route(), http.StatusSeeOther)
					return
				}
				next.ServeHTTP(w, r)
			},
		)
	}
}

// RequireAPI rejects requests without a session (401) or whose role is not
// one of roles (403). No roles allows any logged in user.
func RequireAPI(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				session, ok := SessionFrom(r.Context())
				if !ok {
					services.WriteResponse(w, http.StatusUnauthorized, models.ErrorResponse{Message: "You are not logged in"})
					return
				}
				if len(roles) > 0 && !hasRole(roles, session.User.Role) {
					zerolog.Ctx(r.Context()).Debug().Msg("role not allowed")
					services.WriteResponse(w, http.StatusForbidden, models.ErrorResponse{Message: "Not allowed for your role"})
					return
				}
				next.ServeHTTP(w, r)
			},
		)
	}
}

func hasRole(roles []models.Role, role models.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
