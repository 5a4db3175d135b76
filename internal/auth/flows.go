package auth

import (
	"context"
	"strings"
	"sync"
)

// Flows hands out one Flow per email address so that concurrent submissions
// for the same account are rejected with ErrInFlight.
type Flows struct {
	client Authenticator

	mu    sync.Mutex
	flows map[string]*flowRef
}

type flowRef struct {
	flow *Flow
	refs int
}

func NewFlows(client Authenticator) *Flows {
	return &Flows{client: client, flows: make(map[string]*flowRef)}
}

func (fs *Flows) Login(ctx context.Context, email, password string) (*Result, error) {
	key := flowKey(email)
	f := fs.acquire(key)
	defer fs.release(key)
	return f.Login(ctx, email, password)
}

func (fs *Flows) Signup(ctx context.Context, form *SignupForm) (*Result, error) {
	key := flowKey(form.Email)
	f := fs.acquire(key)
	defer fs.release(key)
	return f.Signup(ctx, form)
}

func (fs *Flows) acquire(key string) *Flow {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	ref, ok := fs.flows[key]
	if !ok {
		ref = &flowRef{flow: NewFlow(fs.client)}
		fs.flows[key] = ref
	}
	ref.refs++
	return ref.flow
}

func (fs *Flows) release(key string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	ref, ok := fs.flows[key]
	if !ok {
		return
	}
	ref.refs--
	if ref.refs <= 0 {
		delete(fs.flows, key)
	}
}

func flowKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
