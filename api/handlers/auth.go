package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/studentdesk/frontdesk/api/middleware"
	"github.com/studentdesk/frontdesk/api/services"
	"github.com/studentdesk/frontdesk/internal/auth"
	"github.com/studentdesk/frontdesk/models"
)

type homePage struct {
	Error  string
	Fields map[string]string
	Email  string
	Signup auth.SignupForm
	Roles  []models.Role
}

// AuthResponse is returned to JSON clients after login or signup.
type AuthResponse struct {
	Route string      `json:"route"`
	User  models.User `json:"user"`
}

func newHomePage() homePage {
	return homePage{
		Roles:  []models.Role{models.RoleOperator, models.RoleReceptionist},
		Signup: auth.SignupForm{Role: models.RoleOperator},
	}
}

// Home renders the login and signup forms. Logged in users go to their dashboard.
func Home(fe *Frontend) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if session, ok := middleware.SessionFrom(r.Context()); ok && session.Route() != "" {
			http.Redirect(w, r, session.Route(), http.StatusSeeOther)
			return
		}
		render(w, r, http.StatusOK, "home.html", newHomePage())
	}
}

// Login handles the login form or a JSON {email, password} body.
func Login(fe *Frontend) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.LoginRequest
		if isJSON(r) {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				services.WriteResponse(w, http.StatusBadRequest, models.ErrorResponse{Message: "Invalid request payload"})
				return
			}
		} else {
			if err := r.ParseForm(); err != nil {
				http.Error(w, "Invalid form", http.StatusBadRequest)
				return
			}
			req.Email = r.PostForm.Get("email")
			req.Password = r.PostForm.Get("password")
		}

		res, err := fe.Auth.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			page := newHomePage()
			page.Email = req.Email
			authFailed(w, r, err, page)
			return
		}

		fe.startSession(w, r, res)
	}
}

// Signup handles the signup form or a JSON body.
func Signup(fe *Frontend) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var form auth.SignupForm
		if isJSON(r) {
			if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
				services.WriteResponse(w, http.StatusBadRequest, models.ErrorResponse{Message: "Invalid request payload"})
				return
			}
		} else {
			if err := r.ParseForm(); err != nil {
				http.Error(w, "Invalid form", http.StatusBadRequest)
				return
			}
			form = auth.SignupForm{
				Name:            r.PostForm.Get("name"),
				Email:           r.PostForm.Get("email"),
				Password:        r.PostForm.Get("password"),
				ConfirmPassword: r.PostForm.Get("confirmPassword"),
				Role:            models.Role(r.PostForm.Get("role")),
			}
		}

		res, err := fe.Auth.Signup(r.Context(), &form)
		if err != nil {
			page := newHomePage()
			page.Signup = auth.SignupForm{Name: form.Name, Email: form.Email, Role: form.Role}
			authFailed(w, r, err, page)
			return
		}

		fe.startSession(w, r, res)
	}
}

// Logout ends the session and stops its dashboard view.
func Logout(fe *Frontend) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if session, ok := middleware.SessionFrom(r.Context()); ok {
			fe.endSession(r, session)
		}
		fe.clearCookie(w)

		if isJSON(r) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

func (fe *Frontend) startSession(w http.ResponseWriter, r *http.Request, res *auth.Result) {
	logger := zerolog.Ctx(r.Context())

	if err := fe.Sessions.Save(r.Context(), res.Session); err != nil {
		logger.Error().Err(err).Msg("failed to save session")
		if isJSON(r) {
			services.WriteResponse(w, http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to start session"})
			return
		}
		http.Error(w, "Failed to start session", http.StatusInternalServerError)
		return
	}

	// replace any session the browser already had
	if old, ok := middleware.SessionFrom(r.Context()); ok {
		fe.endSession(r, old)
	}
	fe.setCookie(w, res.Session.ID)

	if isJSON(r) {
		services.WriteResponse(w, http.StatusOK, AuthResponse{Route: res.Route, User: res.Session.User})
		return
	}
	http.Redirect(w, r, res.Route, http.StatusSeeOther)
}

func (fe *Frontend) endSession(r *http.Request, session models.Session) {
	fe.Views.Deactivate(session.ID)
	if err := fe.Sessions.Delete(r.Context(), session.ID); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to delete session")
	}
}

func authFailed(w http.ResponseWriter, r *http.Request, err error, page homePage) {
	if isJSON(r) {
		services.HandleErrResponse(w, err)
		return
	}
	body := services.ErrorBody(err)
	page.Error = body.Message
	page.Fields = body.Fields
	render(w, r, services.ErrorStatus(err), "home.html", page)
}
