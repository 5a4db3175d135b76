package handlers

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/studentdesk/frontdesk/internal/appconfig"
	"github.com/studentdesk/frontdesk/internal/auth"
	"github.com/studentdesk/frontdesk/internal/sessions"
	"github.com/studentdesk/frontdesk/internal/studentsync"
	"github.com/studentdesk/frontdesk/models"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Authenticator signs users in. Implemented by *auth.Flows.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*auth.Result, error)
	Signup(ctx context.Context, form *auth.SignupForm) (*auth.Result, error)
}

// Views hands out the polling engine of a session's dashboard.
// Implemented by *dashboard.Registry.
type Views interface {
	Activate(session models.Session) *studentsync.Engine
	Deactivate(sessionID string)
}

// Frontend holds the dependencies shared by the web handlers.
type Frontend struct {
	Auth     Authenticator
	Sessions sessions.Store
	Views    Views
	Cookie   appconfig.CookieConfig
}

func (fe *Frontend) setCookie(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     fe.Cookie.Name,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		Secure:   fe.Cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (fe *Frontend) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     fe.Cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   fe.Cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func render(w http.ResponseWriter, r *http.Request, status int, name string, data interface{}) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("template", name).Msg("failed to render page")
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func isJSON(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

// NotFound sends unknown paths to the home page.
func NotFound() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}
