package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/studentdesk/frontdesk/api/handlers"
	"github.com/studentdesk/frontdesk/api/middleware"
	"github.com/studentdesk/frontdesk/models"
)

// NewRouter registers the pages and JSON endpoints of the web front end.
func NewRouter(fe *handlers.Frontend) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.WithLogger)
	r.Use(middleware.WithSession(fe.Sessions, fe.Cookie.Name))

	// Pages
	r.HandleFunc("/", handlers.Home(fe)).Methods(http.MethodGet)
	r.HandleFunc("/login", handlers.Login(fe)).Methods(http.MethodPost)
	r.HandleFunc("/signup", handlers.Signup(fe)).Methods(http.MethodPost)
	r.HandleFunc("/logout", handlers.Logout(fe)).Methods(http.MethodPost)

	operator := r.Path(models.OperatorDashboardPath).Subrouter()
	operator.Use(middleware.RequirePage(models.RoleOperator))
	operator.Methods(http.MethodGet).HandlerFunc(handlers.Dashboard(fe, models.RoleOperator))

	receptionist := r.Path(models.ReceptionistDashboardPath).Subrouter()
	receptionist.Use(middleware.RequirePage(models.RoleReceptionist))
	receptionist.Methods(http.MethodGet).HandlerFunc(handlers.Dashboard(fe, models.RoleReceptionist))

	// JSON endpoints polled by the dashboards
	ui := r.PathPrefix("/ui").Subrouter()
	ui.Use(middleware.RequireAPI())
	ui.HandleFunc("/students", handlers.ListStudents(fe)).Methods(http.MethodGet)
	ui.HandleFunc("/staff", handlers.ListStaff(fe)).Methods(http.MethodGet)
	ui.Handle("/students", middleware.RequireAPI(models.RoleOperator)(handlers.CreateStudent(fe))).Methods(http.MethodPost)
	ui.Handle("/students/{id}/allocation", middleware.RequireAPI(models.RoleReceptionist)(handlers.AssignStaff(fe))).Methods(http.MethodPatch)

	r.NotFoundHandler = middleware.WithLogger(handlers.NotFound())
	return r
}
