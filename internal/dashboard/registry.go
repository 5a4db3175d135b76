package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/studentdesk/frontdesk/internal/studentsync"
	"github.com/studentdesk/frontdesk/models"
)

// EngineFactory builds the engine backing a session's dashboard.
type EngineFactory func(session models.Session) *studentsync.Engine

type view struct {
	engine   *studentsync.Engine
	task     *studentsync.Task
	lastSeen time.Time
}

// Registry binds one polling engine to each open dashboard. A view lives
// from the first dashboard request until logout, shutdown, or idleTimeout
// without a request.
type Registry struct {
	ctx         context.Context
	newEngine   EngineFactory
	idleTimeout time.Duration
	log         *zerolog.Logger
	now         func() time.Time

	mu    sync.Mutex
	views map[string]*view
}

// NewRegistry creates a registry whose polling tasks end when ctx is cancelled.
func NewRegistry(ctx context.Context, newEngine EngineFactory, idleTimeout time.Duration, log *zerolog.Logger) *Registry {
	return &Registry{
		ctx:         ctx,
		newEngine:   newEngine,
		idleTimeout: idleTimeout,
		log:         log,
		now:         time.Now,
		views:       make(map[string]*view),
	}
}

// Activate returns the engine of the session's view, starting it if needed.
func (r *Registry) Activate(session models.Session) *studentsync.Engine {
	r.mu.Lock()
	defer r.mu.Unlock()

	if v, ok := r.views[session.ID]; ok {
		v.lastSeen = r.now()
		return v.engine
	}

	engine := r.newEngine(session)
	r.views[session.ID] = &view{
		engine:   engine,
		task:     engine.Activate(r.ctx),
		lastSeen: r.now(),
	}
	r.log.Debug().Str("session_id", session.ID).Msg("dashboard view activated")
	return engine
}

// Deactivate stops the session's view, if any.
func (r *Registry) Deactivate(sessionID string) {
	r.mu.Lock()
	v, ok := r.views[sessionID]
	delete(r.views, sessionID)
	r.mu.Unlock()

	if ok {
		v.task.Stop()
		r.log.Debug().Str("session_id", sessionID).Msg("dashboard view deactivated")
	}
}

// Sweep stops views idle for longer than the idle timeout and returns how many were stopped.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.idleTimeout)

	r.mu.Lock()
	var idle []*view
	for id, v := range r.views {
		if v.lastSeen.Before(cutoff) {
			idle = append(idle, v)
			delete(r.views, id)
		}
	}
	r.mu.Unlock()

	for _, v := range idle {
		v.task.Stop()
	}
	if len(idle) > 0 {
		r.log.Debug().Int("count", len(idle)).Msg("idle dashboard views stopped")
	}
	return len(idle)
}

// Run sweeps idle views until ctx is done, then stops every view.
func (r *Registry) Run(ctx context.Context) {
	interval := r.idleTimeout / 2
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.StopAll()
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// StopAll stops every view.
func (r *Registry) StopAll() {
	r.mu.Lock()
	views := r.views
	r.views = make(map[string]*view)
	r.mu.Unlock()

	for _, v := range views {
		v.task.Stop()
	}
}

// Len returns the number of active views.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.views)
}
