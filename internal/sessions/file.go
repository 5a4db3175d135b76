package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/studentdesk/frontdesk/models"
)

// FileStore keeps the single current session of a terminal user in a file.
// The profile and the token are stored as two separate values.
type FileStore struct {
	Path string

	mu sync.Mutex
}

type sessionFile struct {
	ID        string          `json:"id"`
	User      json.RawMessage `json:"user"`
	Token     string          `json:"token"`
	CreatedAt time.Time       `json:"createdAt"`
}

func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// DefaultSessionPath returns ~/.studentdesk/session.json.
func DefaultSessionPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".studentdesk", "session.json")
	}
	return filepath.Join(home, ".studentdesk", "session.json")
}

// Save replaces the current session.
func (f *FileStore) Save(_ context.Context, s models.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	user, err := json.Marshal(s.User)
	if err != nil {
		return fmt.Errorf("failed to encode user profile: %w", err)
	}
	data, err := json.MarshalIndent(sessionFile{ID: s.ID, User: user, Token: s.Token, CreatedAt: s.CreatedAt}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	return os.WriteFile(f.Path, data, 0o600)
}

// Get returns the current session when its id matches. An empty id matches any session.
func (f *FileStore) Get(_ context.Context, id string) (models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, err := f.read()
	if err != nil {
		return models.Session{}, err
	}
	if id != "" && s.ID != id {
		return models.Session{}, ErrNotFound
	}
	return s, nil
}

// Current returns the stored session whatever its id.
func (f *FileStore) Current(ctx context.Context) (models.Session, error) {
	return f.Get(ctx, "")
}

// Delete removes the session file. An empty id removes any session.
func (f *FileStore) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if id != "" {
		s, err := f.read()
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if s.ID != id {
			return nil
		}
	}
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (f *FileStore) read() (models.Session, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return models.Session{}, ErrNotFound
	}
	if err != nil {
		return models.Session{}, err
	}

	var sf sessionFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return models.Session{}, fmt.Errorf("failed to decode session file: %w", err)
	}

	s := models.Session{ID: sf.ID, Token: sf.Token, CreatedAt: sf.CreatedAt}
	if len(sf.User) > 0 {
		if err := json.Unmarshal(sf.User, &s.User); err != nil {
			return models.Session{}, fmt.Errorf("failed to decode user profile: %w", err)
		}
	}
	return s, nil
}
