package models

import "time"

// Session is an authenticated user session: an opaque token plus the user profile.
type Session struct {
	ID        string    `json:"id"`
	Token     string    `json:"token"`
	User      User      `json:"user"`
	CreatedAt time.Time `json:"createdAt"`
}

// Route returns the dashboard path for the session's role.
func (s Session) Route() string {
	return s.User.Role.Route()
}
