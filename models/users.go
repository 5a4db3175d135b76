package models

// Role is the dashboard role a user signs up with.
type Role string

const (
	RoleOperator     Role = "operator"
	RoleReceptionist Role = "receptionist"
)

// Dashboard routes
const (
	OperatorDashboardPath     = "/operator-dashboard"
	ReceptionistDashboardPath = "/receptionist-dashboard"
)

func (r Role) String() string {
	return string(r)
}

func (r Role) IsValid() bool {
	return r == RoleOperator || r == RoleReceptionist
}

// Route returns the dashboard path for the role, or "" for an unknown role.
func (r Role) Route() string {
	switch r {
	case RoleOperator:
		return OperatorDashboardPath
	case RoleReceptionist:
		return ReceptionistDashboardPath
	default:
		return ""
	}
}

// User is the profile stored alongside a session token.
type User struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// LoginRequest is the body of a login call.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SignupRequest is the body of a signup call.
type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     Role   `json:"role"`
}

// AuthResponse is returned by login and, optionally, signup.
// Some deployments put the role at the top level instead of inside the user.
type AuthResponse struct {
	User  User   `json:"user"`
	Token string `json:"token"`
	Role  Role   `json:"role,omitempty"`
}

// EffectiveRole returns the user's role, falling back to the top-level role.
func (r AuthResponse) EffectiveRole() Role {
	if r.User.Role != "" {
		return r.User.Role
	}
	return r.Role
}
