package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/studentdesk/frontdesk/api/middleware"
	"github.com/studentdesk/frontdesk/internal/sessions"
	"github.com/studentdesk/frontdesk/internal/studentsync"
	"github.com/studentdesk/frontdesk/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiMock struct {
	students []models.Student
	patched  map[string]string
}

func (a *apiMock) FetchAllStudents(ctx context.Context, token string) ([]models.Student, error) {
	out := append([]models.Student(nil), a.students...)
	for i := range out {
		if name, ok := a.patched[out[i].ID]; ok {
			n := name
			out[i].AllocatedMan = &n
		}
	}
	return out, nil
}

func (a *apiMock) AddStudent(ctx context.Context, token string, ns models.NewStudent) (*models.Student, error) {
	s := models.Student{ID: "s1", Name: ns.Name, Email: ns.Email, Phone: ns.Phone}
	a.students = append(a.students, s)
	return &s, nil
}

func (a *apiMock) EditAllocatedMan(ctx context.Context, token, studentID, staffName string) error {
	a.patched[studentID] = staffName
	return nil
}

// viewsMock hands out one engine that is never activated.
type viewsMock struct {
	engine      *studentsync.Engine
	deactivated []string
}

func (v *viewsMock) Activate(session models.Session) *studentsync.Engine { return v.engine }
func (v *viewsMock) Deactivate(sessionID string) { v.deactivated = append(v.deactivated, sessionID) }

func newMockFrontend(api *apiMock) (*Frontend, *studentsync.Engine) {
	session := models.Session{ID: "sess-1", Token: "tok", User: models.User{Role: models.RoleReceptionist}}
	engine := studentsync.New(api, session, studentsync.Options{Staff: []string{"abc", "bca"}})
	return &Frontend{Views: &viewsMock{engine: engine}}, engine
}

func withSession(req *http.Request, role models.Role) *http.Request {
	session := models.Session{ID: "sess-1", Token: "tok", User: models.User{Role: role}}
	return req.WithContext(context.WithValue(req.Context(), middleware.SessionKey, session))
}

func TestAssignStaff_Success(t *testing.T) {
	api := &apiMock{students: []models.Student{{ID: "s1", Name: "Asha"}}, patched: map[string]string{}}
	fe, engine := newMockFrontend(api)
	require.NoError(t, engine.Refresh(context.Background()))

	req := httptest.NewRequest(http.MethodPatch, "/ui/students/{id}/allocation", strings.NewReader(`{"allocatedMan": "bca"}`))
	req = mux.SetURLVars(req, map[string]string{"id": "s1"})
	w := httptest.NewRecorder()

	AssignStaff(fe).ServeHTTP(w, withSession(req, models.RoleReceptionist))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "bca", api.patched["s1"])

	var snap struct {
		Status   string `json:"status"`
		Students []struct {
			AllocatedMan *string `json:"allocatedMan"`
		} `json:"students"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&snap))
	assert.Equal(t, "ready", snap.Status)
	require.Len(t, snap.Students, 1)
	require.NotNil(t, snap.Students[0].AllocatedMan)
	assert.Equal(t, "bca", *snap.Students[0].AllocatedMan)
}

func TestAssignStaff_InvalidPayload(t *testing.T) {
	fe, _ := newMockFrontend(&apiMock{patched: map[string]string{}})

	req := httptest.NewRequest(http.MethodPatch, "/ui/students/{id}/allocation", strings.NewReader(`{`))
	req = mux.SetURLVars(req, map[string]string{"id": "s1"})
	w := httptest.NewRecorder()

	AssignStaff(fe).ServeHTTP(w, withSession(req, models.RoleReceptionist))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"message": "Invalid request payload"}`, w.Body.String())
}

func TestCreateStudent_StripsPhoneFormatting(t *testing.T) {
	api := &apiMock{patched: map[string]string{}}
	fe, _ := newMockFrontend(api)

	req := httptest.NewRequest(http.MethodPost, "/ui/students", strings.NewReader(`{"name": "Asha", "phone": "(987) 654-3210"}`))
	w := httptest.NewRecorder()

	CreateStudent(fe).ServeHTTP(w, withSession(req, models.RoleOperator))
	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, api.students, 1)
	assert.Equal(t, "9876543210", api.students[0].Phone)
}

func TestCreateStudent_RejectsWrongPhoneLength(t *testing.T) {
	tests := []struct {
		name  string
		phone string
	}{
		{name: "eleven digits", phone: "98765432109"},
		{name: "extension", phone: "(987) 654-3210 ext 5"},
		{name: "too short", phone: "98765"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &apiMock{patched: map[string]string{}}
			fe, _ := newMockFrontend(api)

			body, err := json.Marshal(models.NewStudent{Name: "Asha", Phone: tt.phone})
			require.NoError(t, err)
			req := httptest.NewRequest(http.MethodPost, "/ui/students", strings.NewReader(string(body)))
			w := httptest.NewRecorder()

			CreateStudent(fe).ServeHTTP(w, withSession(req, models.RoleOperator))
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.JSONEq(t, `{"message": "phone must be exactly 10 digits", "fields": {"phone": "phone must be exactly 10 digits"}}`, w.Body.String())
			assert.Empty(t, api.students)
		})
	}
}

func TestListStaff(t *testing.T) {
	fe, _ := newMockFrontend(&apiMock{patched: map[string]string{}})

	req := httptest.NewRequest(http.MethodGet, "/ui/staff", nil)
	w := httptest.NewRecorder()

	ListStaff(fe).ServeHTTP(w, withSession(req, models.RoleReceptionist))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"staff": ["abc", "bca"]}`, w.Body.String())
}

func TestLogoutDeactivatesView(t *testing.T) {
	fe, _ := newMockFrontend(&apiMock{patched: map[string]string{}})
	store := sessions.NewMemoryStore()
	fe.Sessions = store
	views := fe.Views.(*viewsMock)

	session := models.Session{ID: "sess-1", Token: "tok", User: models.User{Role: models.RoleOperator}}
	require.NoError(t, store.Save(context.Background(), session))

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	Logout(fe).ServeHTTP(w, withSession(req, models.RoleOperator))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []string{"sess-1"}, views.deactivated)

	_, err := store.Get(context.Background(), "sess-1")
	assert.ErrorIs(t, err, sessions.ErrNotFound)
}

func TestLogoutWithoutSession(t *testing.T) {
	fe, _ := newMockFrontend(&apiMock{patched: map[string]string{}})
	fe.Sessions = nil
	views := fe.Views.(*viewsMock)

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	// only the cookie is cleared
	Logout(fe).ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, views.deactivated)
}
