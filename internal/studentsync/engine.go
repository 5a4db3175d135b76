package studentsync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/studentdesk/frontdesk/internal/deskapi"
	"github.com/studentdesk/frontdesk/internal/events"
	"github.com/studentdesk/frontdesk/internal/validation"
	"github.com/studentdesk/frontdesk/models"
)

const DefaultInterval = 3 * time.Second

var (
	ErrMissingToken   = deskapi.ErrMissingToken
	ErrUnknownStudent = errors.New("unknown student")
)

var validate = validation.New()

// API is the part of the student API the engine depends on.
type API interface {
	FetchAllStudents(ctx context.Context, token string) ([]models.Student, error)
	AddStudent(ctx context.Context, token string, ns models.NewStudent) (*models.Student, error)
	EditAllocatedMan(ctx context.Context, token, studentID, staffName string) error
}

type Options struct {
	// Interval between refreshes of an active engine. Defaults to DefaultInterval.
	Interval time.Duration
	// Staff is the roster allocations are checked against. Empty allows any name.
	Staff    []string
	Notifier events.Notifier
	Logger   *zerolog.Logger
}

// Engine keeps a local copy of the student list in sync with the API for
// one session. It is safe for concurrent use.
type Engine struct {
	api      API
	session  models.Session
	interval time.Duration
	staff    []string
	notifier events.Notifier
	log      *zerolog.Logger

	// refreshMu allows a single refresh in flight
	refreshMu sync.Mutex

	mu        sync.Mutex
	records   []Record
	loaded    bool
	err       error
	updatedAt time.Time
	inFlight  map[string]int
}

// New creates an engine for session. The session is not checked here;
// operations fail with ErrMissingToken when it has no token.
func New(api API, session models.Session, opts Options) *Engine {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	logger := opts.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	l := logger.With().Str("session_id", session.ID).Logger()

	return &Engine{
		api:      api,
		session:  session,
		interval: opts.Interval,
		staff:    append([]string(nil), opts.Staff...),
		notifier: opts.Notifier,
		log:      &l,
		inFlight: make(map[string]int),
	}
}

func (e *Engine) Session() models.Session { return e.session }

func (e *Engine) Interval() time.Duration { return e.interval }

// Staff returns a copy of the roster.
func (e *Engine) Staff() []string {
	return append([]string(nil), e.staff...)
}

// Snapshot returns a copy of the current list and view status.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := Snapshot{
		Students:  append([]Record{}, e.records...),
		UpdatedAt: e.updatedAt,
		Err:       e.err,
	}
	switch {
	case e.err != nil:
		snap.Status = StatusError
		snap.Message = deskapi.Message(e.err)
	case !e.loaded && len(e.records) == 0:
		snap.Status = StatusLoading
	case len(e.records) == 0:
		snap.Status = StatusEmpty
	default:
		snap.Status = StatusReady
	}
	return snap
}

// Refresh fetches the full list and replaces the local one. It waits for a
// refresh already in flight. On failure the local list is left unchanged.
func (e *Engine) Refresh(ctx context.Context) error {
	e.refreshMu.Lock()
	defer e.refreshMu.Unlock()
	return e.refresh(ctx)
}

// tryRefresh refreshes unless another refresh is in flight.
func (e *Engine) tryRefresh(ctx context.Context) bool {
	if !e.refreshMu.TryLock() {
		e.log.Debug().Msg("refresh in flight, skipping tick")
		return false
	}
	defer e.refreshMu.Unlock()
	_ = e.refresh(ctx)
	return true
}

func (e *Engine) refresh(ctx context.Context) error {
	if e.session.Token == "" {
		e.setErr(ErrMissingToken)
		return ErrMissingToken
	}

	students, err := e.api.FetchAllStudents(ctx, e.session.Token)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		e.log.Warn().Err(err).Msg("failed to refresh students")
		e.setErr(err)
		return err
	}

	e.mu.Lock()
	previous := make(map[string]Record, len(e.records))
	for _, r := range e.records {
		previous[r.ID] = r
	}

	records := make([]Record, 0, len(students))
	for _, s := range students {
		rec := Record{Student: s, State: Synced}
		// an allocation still being written wins over the fetched value
		if e.inFlight[s.ID] > 0 {
			if prev, ok := previous[s.ID]; ok {
				rec.AllocatedMan = prev.AllocatedMan
				rec.State = Pending
			}
		}
		records = append(records, rec)
	}

	changed := !e.loaded || !sameRecords(e.records, records)
	e.records = records
	e.loaded = true
	e.err = nil
	e.updatedAt = time.Now().UTC()
	e.mu.Unlock()

	e.log.Debug().Int("count", len(records)).Bool("changed", changed).Msg("students refreshed")
	if changed {
		e.notify(events.EventPayload{Action: events.ActionRefreshed, Count: len(records)})
	}
	return nil
}

// Create validates ns, registers it with the API and appends the canonical
// record. No request is sent when validation fails.
func (e *Engine) Create(ctx context.Context, ns models.NewStudent) (*models.Student, error) {
	if e.session.Token == "" {
		return nil, ErrMissingToken
	}

	ns.Name = strings.TrimSpace(ns.Name)
	ns.Email = strings.TrimSpace(ns.Email)
	ns.Phone = strings.TrimSpace(ns.Phone)
	if err := validate.Struct(ns); err != nil {
		return nil, err
	}

	// Holding the refresh lock stops a fetch that started before the POST
	// from replacing the list without the new record.
	e.refreshMu.Lock()
	defer e.refreshMu.Unlock()

	student, err := e.api.AddStudent(ctx, e.session.Token, ns)
	if err != nil {
		e.log.Warn().Err(err).Msg("failed to add student")
		e.setErr(err)
		return nil, err
	}

	e.mu.Lock()
	rec := Record{Student: *student, State: Synced}
	replaced := false
	for i := range e.records {
		if e.records[i].ID == student.ID {
			e.records[i] = rec
			replaced = true
			break
		}
	}
	if !replaced {
		e.records = append(e.records, rec)
	}
	e.err = nil
	e.updatedAt = time.Now().UTC()
	e.mu.Unlock()

	e.log.Info().Str("student_id", student.ID).Msg("student added")
	e.notify(events.EventPayload{Action: events.ActionCreated, StudentID: student.ID})
	return student, nil
}

// Assign optimistically allocates staffName to the student, sends the PATCH
// and then always refreshes. A failed PATCH is returned and kept as the view
// error; the following refresh restores the server's value.
func (e *Engine) Assign(ctx context.Context, studentID, staffName string) error {
	if e.session.Token == "" {
		return ErrMissingToken
	}

	staffName = strings.TrimSpace(staffName)
	if err := e.checkStaff(staffName); err != nil {
		return err
	}

	e.mu.Lock()
	idx := e.indexOf(studentID)
	if idx < 0 {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownStudent, studentID)
	}
	allocated := staffName
	e.records[idx].AllocatedMan = &allocated
	e.records[idx].State = Pending
	e.inFlight[studentID]++
	e.mu.Unlock()

	patchErr := e.api.EditAllocatedMan(ctx, e.session.Token, studentID, staffName)

	e.mu.Lock()
	e.inFlight[studentID]--
	if e.inFlight[studentID] <= 0 {
		delete(e.inFlight, studentID)
		if i := e.indexOf(studentID); i >= 0 {
			e.records[i].State = Reconciling
		}
	}
	e.mu.Unlock()

	if patchErr == nil {
		e.log.Info().Str("student_id", studentID).Str("staff", staffName).Msg("staff allocated")
		e.notify(events.EventPayload{Action: events.ActionAllocated, StudentID: studentID, AllocatedMan: staffName})
	} else {
		e.log.Warn().Err(patchErr).Str("student_id", studentID).Msg("failed to allocate staff")
	}

	refreshErr := e.Refresh(ctx)

	if patchErr != nil {
		e.setErr(patchErr)
		if refreshErr != nil {
			return errors.Join(patchErr, refreshErr)
		}
		return patchErr
	}
	return refreshErr
}

func (e *Engine) checkStaff(name string) error {
	if name == "" {
		return validation.NewFieldError("allocatedMan", "allocatedMan is required")
	}
	if len(e.staff) == 0 {
		return nil
	}
	for _, s := range e.staff {
		if s == name {
			return nil
		}
	}
	return validation.NewFieldError("allocatedMan", fmt.Sprintf("%s is not a staff member", name))
}

// indexOf must be called with mu held.
func (e *Engine) indexOf(id string) int {
	for i := range e.records {
		if e.records[i].ID == id {
			return i
		}
	}
	return -1
}

func (e *Engine) setErr(err error) {
	e.mu.Lock()
	e.err = err
	e.mu.Unlock()
}

func (e *Engine) notify(event events.EventPayload) {
	if e.notifier == nil {
		return
	}
	event.Actor = e.session.User.Email
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if err := e.notifier.Notify(event); err != nil {
		e.log.Warn().Err(err).Str("action", event.Action).Msg("failed to publish student event")
	}
}
