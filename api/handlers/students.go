package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/studentdesk/frontdesk/api/middleware"
	"github.com/studentdesk/frontdesk/api/services"
	"github.com/studentdesk/frontdesk/internal/studentsync"
	"github.com/studentdesk/frontdesk/internal/validation"
	"github.com/studentdesk/frontdesk/models"
)

type dashboardPage struct {
	User       models.User
	Snapshot   studentsync.Snapshot
	Staff      []string
	PollMillis int64
}

// StaffResponse lists the staff members students can be allocated to.
type StaffResponse struct {
	Staff []string `json:"staff"`
}

// Dashboard renders the dashboard for role and activates its polling view.
func Dashboard(fe *Frontend, role models.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, _ := middleware.SessionFrom(r.Context())
		engine := fe.Views.Activate(session)

		render(w, r, http.StatusOK, role.String()+".html", dashboardPage{
			User:       session.User,
			Snapshot:   engine.Snapshot(),
			Staff:      engine.Staff(),
			PollMillis: engine.Interval().Milliseconds(),
		})
	}
}

// ListStudents returns the current snapshot of the session's view.
func ListStudents(fe *Frontend) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, _ := middleware.SessionFrom(r.Context())
		engine := fe.Views.Activate(session)
		services.WriteResponse(w, http.StatusOK, engine.Snapshot())
	}
}

// CreateStudent registers a student from a JSON {name, email, phone} body.
func CreateStudent(fe *Frontend) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, _ := middleware.SessionFrom(r.Context())

		var ns models.NewStudent
		if err := json.NewDecoder(r.Body).Decode(&ns); err != nil {
			services.WriteResponse(w, http.StatusBadRequest, models.ErrorResponse{Message: "Invalid request payload"})
			return
		}
		ns.Phone = validation.SanitizePhone(ns.Phone)

		engine := fe.Views.Activate(session)
		student, err := engine.Create(r.Context(), ns)
		if err != nil {
			services.HandleErrResponse(w, err)
			return
		}

		services.WriteResponse(w, http.StatusCreated, models.StudentResponse{Student: *student})
	}
}

// AssignStaff allocates a staff member to the student in the URL.
// The response is the snapshot after the reconciling refresh.
func AssignStaff(fe *Frontend) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, _ := middleware.SessionFrom(r.Context())
		studentID := mux.Vars(r)["id"]

		var req models.AllocationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			services.WriteResponse(w, http.StatusBadRequest, models.ErrorResponse{Message: "Invalid request payload"})
			return
		}

		engine := fe.Views.Activate(session)
		if err := engine.Assign(r.Context(), studentID, req.AllocatedMan); err != nil {
			services.HandleErrResponse(w, err)
			return
		}

		services.WriteResponse(w, http.StatusOK, engine.Snapshot())
	}
}

// ListStaff returns the staff roster.
func ListStaff(fe *Frontend) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, _ := middleware.SessionFrom(r.Context())
		engine := fe.Views.Activate(session)
		services.WriteResponse(w, http.StatusOK, StaffResponse{Staff: engine.Staff()})
	}
}
