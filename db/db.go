package db

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
	"github.com/studentdesk/frontdesk/internal/sessions"
	"github.com/studentdesk/frontdesk/models"
)

//go:embed migrations/*.sql
var migrations embed.FS

// SessionDB is a Postgres backed sessions.Store.
type SessionDB struct {
	DB  *sql.DB
	Log *zerolog.Logger
}

// NewSessionDB opens and pings the database at source.
func NewSessionDB(source string, log *zerolog.Logger) (*SessionDB, error) {
	if source == "" {
		log.Error().Msg("session database source is not set")
		return nil, fmt.Errorf("session database source is not set")
	}

	// Open the database connection
	db, err := sql.Open("postgres", source)
	if err != nil {
		log.Error().Err(err).Msg("Failed to open database connection")
		return nil, err
	}

	// Check we are actually connected
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		log.Error().Err(err).Msg("Database connection failed during ping")
		db.Close()
		return nil, err
	}

	return &SessionDB{DB: db, Log: log}, nil
}

func (s *SessionDB) Close() error {
	if err := s.DB.Close(); err != nil {
		return err
	}
	s.Log.Info().Msg("database connection closed")
	return nil
}

// Migrate applies the embedded goose migrations.
func (s *SessionDB) Migrate(ctx context.Context) error {
	goose.SetBaseFS(migrations)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("error setting migration dialect: %w", err)
	}
	if err := goose.UpContext(ctx, s.DB, "migrations"); err != nil {
		s.Log.Error().Err(err).Msg("error running migrations")
		return fmt.Errorf("error running migrations: %w", err)
	}

	s.Log.Info().Msg("Tables initialized successfully")
	return nil
}

// Save inserts or replaces a session.
func (s *SessionDB) Save(ctx context.Context, session models.Session) error {
	profile, err := json.Marshal(session.User)
	if err != nil {
		return fmt.Errorf("failed to encode user profile: %w", err)
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}

	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO sessions (id, user_profile, token, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET user_profile = EXCLUDED.user_profile, token = EXCLUDED.token`,
		session.ID, profile, session.Token, session.CreatedAt)
	if err != nil {
		s.Log.Error().Err(err).Str("session_id", session.ID).Msg("error saving session")
		return fmt.Errorf("error saving session: %w", err)
	}
	return nil
}

// Get returns the session with the given id, or sessions.ErrNotFound.
func (s *SessionDB) Get(ctx context.Context, id string) (models.Session, error) {
	// ids are uuids; anything else is a stale or forged cookie
	if _, err := uuid.Parse(id); err != nil {
		return models.Session{}, sessions.ErrNotFound
	}

	var (
		session models.Session
		profile []byte
	)
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, user_profile, token, created_at FROM sessions WHERE id = $1`, id).
		Scan(&session.ID, &profile, &session.Token, &session.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Session{}, sessions.ErrNotFound
	}
	if err != nil {
		return models.Session{}, fmt.Errorf("error reading session: %w", err)
	}

	if err := json.Unmarshal(profile, &session.User); err != nil {
		return models.Session{}, fmt.Errorf("failed to decode user profile: %w", err)
	}
	session.CreatedAt = session.CreatedAt.UTC()
	return session, nil
}

func (s *SessionDB) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return nil
	}
	if _, err := s.DB.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("error deleting session: %w", err)
	}
	return nil
}
