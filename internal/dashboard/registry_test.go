package dashboard

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/studentdesk/frontdesk/internal/studentsync"
	"github.com/studentdesk/frontdesk/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingAPI struct {
	fetches atomic.Int32
}

func (c *countingAPI) FetchAllStudents(ctx context.Context, token string) ([]models.Student, error) {
	c.fetches.Add(1)
	return []models.Student{}, nil
}

func (c *countingAPI) AddStudent(ctx context.Context, token string, ns models.NewStudent) (*models.Student, error) {
	return &models.Student{ID: "s1", Name: ns.Name}, nil
}

func (c *countingAPI) EditAllocatedMan(ctx context.Context, token, studentID, staffName string) error {
	return nil
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestRegistry(t *testing.T, api *countingAPI, idle time.Duration) (*Registry, *fakeClock) {
	t.Helper()
	logger := zerolog.Nop()
	clock := &fakeClock{t: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	r := NewRegistry(context.Background(), func(s models.Session) *studentsync.Engine {
		return studentsync.New(api, s, studentsync.Options{Interval: time.Hour})
	}, idle, &logger)
	r.now = clock.Now
	t.Cleanup(r.StopAll)
	return r, clock
}

func session(id string) models.Session {
	return models.Session{ID: id, Token: "tok-" + id, User: models.User{Role: models.RoleOperator}}
}

func TestActivateReusesView(t *testing.T) {
	api := &countingAPI{}
	r, _ := newTestRegistry(t, api, time.Minute)

	e1 := r.Activate(session("a"))
	e2 := r.Activate(session("a"))
	assert.Same(t, e1, e2)
	assert.Equal(t, 1, r.Len())

	// activation refreshes immediately
	assert.Eventually(t, func() bool { return api.fetches.Load() == 1 }, time.Second, 5*time.Millisecond)

	e3 := r.Activate(session("b"))
	assert.NotSame(t, e1, e3)
	assert.Equal(t, 2, r.Len())
}

func TestDeactivate(t *testing.T) {
	r, _ := newTestRegistry(t, &countingAPI{}, time.Minute)

	r.Activate(session("a"))
	r.Deactivate("a")
	assert.Equal(t, 0, r.Len())

	// unknown sessions are ignored
	r.Deactivate("missing")
}

func TestSweepStopsIdleViews(t *testing.T) {
	r, clock := newTestRegistry(t, &countingAPI{}, time.Minute)

	r.Activate(session("a"))
	r.Activate(session("b"))

	clock.Advance(45 * time.Second)
	r.Activate(session("b"))

	clock.Advance(30 * time.Second)
	assert.Equal(t, 1, r.Sweep())
	assert.Equal(t, 1, r.Len())

	clock.Advance(2 * time.Minute)
	assert.Equal(t, 1, r.Sweep())
	assert.Equal(t, 0, r.Len())
}

func TestRunStopsViewsOnCancel(t *testing.T) {
	r, _ := newTestRegistry(t, &countingAPI{}, time.Minute)
	r.Activate(session("a"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
	require.Equal(t, 0, r.Len())
}
