package studentsync

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/studentdesk/frontdesk/internal/events"
	"github.com/studentdesk/frontdesk/models"
	"github.com/stretchr/testify/mock"
)

// fakeAPI is an in-memory student API. Gates, when set, block the matching
// call until closed; the started channels are signalled on entry.
type fakeAPI struct {
	mu       sync.Mutex
	students []models.Student
	nextID   int

	fetchErr error
	addErr   error
	patchErr error

	fetchGate    chan struct{}
	fetchStarted chan struct{}
	patchGate    chan struct{}
	patchStarted chan struct{}

	fetches atomic.Int32
	adds    atomic.Int32
	patches atomic.Int32
}

func strPtr(s string) *string { return &s }

func (f *fakeAPI) FetchAllStudents(ctx context.Context, token string) ([]models.Student, error) {
	f.fetches.Add(1)
	if f.fetchStarted != nil {
		f.fetchStarted <- struct{}{}
	}
	if f.fetchGate != nil {
		select {
		case <-f.fetchGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	out := make([]models.Student, len(f.students))
	for i, s := range f.students {
		out[i] = s
		if s.AllocatedMan != nil {
			out[i].AllocatedMan = strPtr(*s.AllocatedMan)
		}
	}
	return out, nil
}

func (f *fakeAPI) AddStudent(ctx context.Context, token string, ns models.NewStudent) (*models.Student, error) {
	f.adds.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return nil, f.addErr
	}
	f.nextID++
	s := models.Student{ID: fmt.Sprintf("s%d", f.nextID), Name: ns.Name, Email: ns.Email, Phone: ns.Phone}
	f.students = append(f.students, s)
	return &s, nil
}

func (f *fakeAPI) EditAllocatedMan(ctx context.Context, token, studentID, staffName string) error {
	f.patches.Add(1)
	if f.patchStarted != nil {
		f.patchStarted <- struct{}{}
	}
	if f.patchGate != nil {
		<-f.patchGate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.patchErr != nil {
		return f.patchErr
	}
	for i := range f.students {
		if f.students[i].ID == studentID {
			f.students[i].AllocatedMan = strPtr(staffName)
			return nil
		}
	}
	return fmt.Errorf("student %s not found", studentID)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(event events.EventPayload) error {
	args := m.Called(event)
	return args.Error(0)
}

func (m *MockNotifier) Close() {
	m.Called()
}
