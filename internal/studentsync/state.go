package studentsync

import (
	"encoding/json"
	"time"

	"github.com/studentdesk/frontdesk/models"
)

// SyncState tracks a record's allocation against the server.
type SyncState int

const (
	// Synced records hold the value last served by the API.
	Synced SyncState = iota
	// Pending records hold an optimistic allocation whose PATCH is in flight.
	Pending
	// Reconciling records have a finished PATCH and wait for the next refresh.
	Reconciling
)

func (s SyncState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Reconciling:
		return "reconciling"
	default:
		return "synced"
	}
}

func (s SyncState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Status of a view's data.
type Status string

const (
	StatusLoading Status = "loading"
	StatusEmpty   Status = "empty"
	StatusReady   Status = "ready"
	StatusError   Status = "error"
)

// Record is a student together with its sync state.
type Record struct {
	models.Student
	State SyncState
}

func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		models.Student
		SyncState SyncState `json:"syncState"`
	}{r.Student, r.State})
}

// Snapshot is a point-in-time copy of the engine's list.
// When Status is StatusError, Students still holds the last good list.
type Snapshot struct {
	Students  []Record  `json:"students"`
	Status    Status    `json:"status"`
	Message   string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
	Err       error     `json:"-"`
}

// Find returns the record with the given id.
func (s Snapshot) Find(id string) (Record, bool) {
	for _, r := range s.Students {
		if r.ID == id {
			return r, true
		}
	}
	return Record{}, false
}

func sameRecords(a, b []Record) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID ||
			a[i].Name != b[i].Name ||
			a[i].Email != b[i].Email ||
			a[i].Phone != b[i].Phone ||
			a[i].Allocation() != b[i].Allocation() ||
			(a[i].AllocatedMan == nil) != (b[i].AllocatedMan == nil) ||
			a[i].State != b[i].State {
			return false
		}
	}
	return true
}
