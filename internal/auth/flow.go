package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/studentdesk/frontdesk/internal/authn"
	"github.com/studentdesk/frontdesk/internal/validation"
	"github.com/studentdesk/frontdesk/models"
)

var (
	ErrInFlight    = errors.New("a submission is already in progress")
	ErrInvalidRole = errors.New("Invalid role")
	ErrNoToken     = errors.New("Login failed")
)

// Authenticator is the part of the student API used to sign users in.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*models.AuthResponse, error)
	Signup(ctx context.Context, req models.SignupRequest) (*models.AuthResponse, error)
}

// State of a Flow.
type State int

const (
	Idle State = iota
	Submitting
	Redirected
)

func (s State) String() string {
	switch s {
	case Submitting:
		return "submitting"
	case Redirected:
		return "redirected"
	default:
		return "idle"
	}
}

// SignupForm is the registration form. Role defaults to operator.
type SignupForm struct {
	Name            string      `json:"name" validate:"required"`
	Email           string      `json:"email" validate:"required,email"`
	Password        string      `json:"password" validate:"required"`
	ConfirmPassword string      `json:"confirmPassword" validate:"required,eqfield=Password"`
	Role            models.Role `json:"role" validate:"role"`
}

// Result is a successful login or signup.
type Result struct {
	Session models.Session
	Route   string
}

// Flow submits credentials for a single form. Only one submission may be in
// flight at a time; a failed submission returns the flow to Idle with the error kept.
type Flow struct {
	client   Authenticator
	validate *validation.Validator

	mu    sync.Mutex
	state State
	err   error

	now func() time.Time
}

// NewFlow creates a Flow backed by client.
func NewFlow(client Authenticator) *Flow {
	return &Flow{
		client:   client,
		validate: newValidator(),
		now:      time.Now,
	}
}

func newValidator() *validation.Validator {
	v := validation.New()
	v.RegisterValidation("role", "role must be operator or receptionist", func(fl validator.FieldLevel) bool {
		return models.Role(fl.Field().String()).IsValid()
	})
	return v
}

// State returns the current state of the flow.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Err returns the error of the last failed submission, if any.
func (f *Flow) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Login submits credentials and returns the session and dashboard route.
func (f *Flow) Login(ctx context.Context, email, password string) (*Result, error) {
	if err := f.begin(); err != nil {
		return nil, err
	}

	req := models.LoginRequest{Email: strings.TrimSpace(email), Password: password}
	if err := f.validate.Struct(req); err != nil {
		return nil, f.fail(ctx, err)
	}

	resp, err := f.client.Login(ctx, req.Email, req.Password)
	if err != nil {
		return nil, f.fail(ctx, err)
	}

	return f.finish(ctx, resp, "")
}

// Signup validates and submits the form. On success the form is cleared.
// When the signup response carries no token the user is logged in with the
// same credentials.
func (f *Flow) Signup(ctx context.Context, form *SignupForm) (*Result, error) {
	if err := f.begin(); err != nil {
		return nil, err
	}

	form.Name = strings.TrimSpace(form.Name)
	form.Email = strings.TrimSpace(form.Email)
	if form.Role == "" {
		form.Role = models.RoleOperator
	}
	if err := f.validate.Struct(form); err != nil {
		return nil, f.fail(ctx, err)
	}

	resp, err := f.client.Signup(ctx, models.SignupRequest{
		Name:     form.Name,
		Email:    form.Email,
		Password: form.Password,
		Role:     form.Role,
	})
	if err != nil {
		return nil, f.fail(ctx, err)
	}

	if resp.Token == "" {
		zerolog.Ctx(ctx).Debug().Str("email", form.Email).Msg("signup returned no token, logging in")
		resp, err = f.client.Login(ctx, form.Email, form.Password)
		if err != nil {
			return nil, f.fail(ctx, err)
		}
	}

	res, err := f.finish(ctx, resp, form.Role)
	if err != nil {
		return nil, err
	}
	*form = SignupForm{}
	return res, nil
}

func (f *Flow) begin() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == Submitting {
		return ErrInFlight
	}
	f.state = Submitting
	f.err = nil
	return nil
}

func (f *Flow) fail(ctx context.Context, err error) error {
	f.mu.Lock()
	f.state = Idle
	f.err = err
	f.mu.Unlock()

	zerolog.Ctx(ctx).Warn().Err(err).Msg("authentication failed")
	return err
}

func (f *Flow) finish(ctx context.Context, resp *models.AuthResponse, fallback models.Role) (*Result, error) {
	role := resp.EffectiveRole()
	if role == "" {
		role = fallback
	}
	if !role.IsValid() {
		return nil, f.fail(ctx, ErrInvalidRole)
	}
	if resp.Token == "" {
		return nil, f.fail(ctx, ErrNoToken)
	}

	user := resp.User
	user.Role = role
	session := models.Session{
		ID:        uuid.NewString(),
		Token:     resp.Token,
		User:      user,
		CreatedAt: f.now().UTC(),
	}

	f.mu.Lock()
	f.state = Redirected
	f.mu.Unlock()

	authn.LogFields(zerolog.Ctx(ctx).Info(), session.Token).
		Str("email", user.Email).
		Str("role", role.String()).
		Msg("user authenticated")

	return &Result{Session: session, Route: role.Route()}, nil
}
