package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/studentdesk/frontdesk/internal/sessions"
	"github.com/studentdesk/frontdesk/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cookieName = "desk"

func operatorSession() models.Session {
	return models.Session{ID: "sess-1", Token: "tok", User: models.User{Email: "a@b.co", Role: models.RoleOperator}}
}

func TestWithSessionLoadsSession(t *testing.T) {
	store := sessions.NewMemoryStore()
	require.NoError(t, store.Save(context.Background(), operatorSession()))

	var got models.Session
	var found bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, found = SessionFrom(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/ui/students", nil)
	req.AddCookie(&http.Cookie{Name: cookieName, Value: "sess-1"})
	WithSession(store, cookieName)(next).ServeHTTP(httptest.NewRecorder(), req)

	assert.True(t, found)
	assert.Equal(t, operatorSession(), got)
}

func TestWithSessionUnknownCookie(t *testing.T) {
	store := sessions.NewMemoryStore()

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, found := SessionFrom(r.Context())
		assert.False(t, found)
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: cookieName, Value: "stale"})
	w := httptest.NewRecorder()
	WithSession(store, cookieName)(next).ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRequirePage(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	receptionist := operatorSession()
	receptionist.User.Role = models.RoleReceptionist

	tests := []struct {
		name     string
		session  *models.Session
		code     int
		location string
	}{
		{"no session", nil, http.StatusSeeOther, "/"},
		{"matching role", ptr(operatorSession()), http.StatusOK, ""},
		{"other role", &receptionist, http.StatusSeeOther, "/receptionist-dashboard"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/operator-dashboard", nil)
			if tt.session != nil {
				req = req.WithContext(context.WithValue(req.Context(), SessionKey, *tt.session))
			}
			w := httptest.NewRecorder()
			RequirePage(models.RoleOperator)(next).ServeHTTP(w, req)

			assert.Equal(t, tt.code, w.Code)
			assert.Equal(t, tt.location, w.Header().Get("Location"))
		})
	}
}

func TestRequireAPI(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/ui/students", nil)
	w := httptest.NewRecorder()
	RequireAPI()(next).ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"message": "You are not logged in"}`, w.Body.String())

	req = req.WithContext(context.WithValue(req.Context(), SessionKey, operatorSession()))
	w = httptest.NewRecorder()
	RequireAPI(models.RoleReceptionist)(next).ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	RequireAPI()(next).ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func ptr[T any](v T) *T { return &v }
