package db

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/studentdesk/frontdesk/internal/sessions"
	"github.com/studentdesk/frontdesk/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var _ sessions.Store = (*SessionDB)(nil)

func TestMalformedSessionIDIsNotFound(t *testing.T) {
	// no database needed: malformed ids never reach a query
	logger := zerolog.Nop()
	store := &SessionDB{Log: &logger}

	_, err := store.Get(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, sessions.ErrNotFound)

	assert.NoError(t, store.Delete(context.Background(), "not-a-uuid"))
}

// Helper function to setup PostgreSQL container using testcontainers
func setupPostgresContainer(t *testing.T) string {
	if os.Getenv("STUDENTDESK_PG_TESTS") == "" {
		t.Skip("set STUDENTDESK_PG_TESTS to run Postgres tests")
	}

	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        "postgres:13",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "postgres",
			"POSTGRES_PASSWORD": "postgres",
			"POSTGRES_DB":       "postgres",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	postgresC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("could not start container: %s", err)
	}
	t.Cleanup(func() { _ = postgresC.Terminate(ctx) })

	host, _ := postgresC.Host(ctx)
	port, _ := postgresC.MappedPort(ctx, "5432/tcp")

	return fmt.Sprintf("postgres://postgres:postgres@%s:%s/postgres?sslmode=disable", host, port.Port())
}

func TestSessionDB(t *testing.T) {
	source := setupPostgresContainer(t)
	logger := zerolog.Nop()
	ctx := context.Background()

	sessionDB, err := NewSessionDB(source, &logger)
	require.NoError(t, err)
	defer sessionDB.Close()

	require.NoError(t, sessionDB.Migrate(ctx))
	// migrations are idempotent
	require.NoError(t, sessionDB.Migrate(ctx))

	session := models.Session{
		ID:        uuid.NewString(),
		Token:     "tok",
		User:      models.User{Name: "Asha", Email: "a@b.co", Role: models.RoleOperator},
		CreatedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}

	_, err = sessionDB.Get(ctx, session.ID)
	assert.ErrorIs(t, err, sessions.ErrNotFound)

	require.NoError(t, sessionDB.Save(ctx, session))
	got, err := sessionDB.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, session, got)

	session.Token = "tok2"
	require.NoError(t, sessionDB.Save(ctx, session))
	got, err = sessionDB.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, "tok2", got.Token)

	require.NoError(t, sessionDB.Delete(ctx, session.ID))
	_, err = sessionDB.Get(ctx, session.ID)
	assert.ErrorIs(t, err, sessions.ErrNotFound)
}

func TestNewSessionDBRequiresSource(t *testing.T) {
	logger := zerolog.Nop()
	_, err := NewSessionDB("", &logger)
	assert.Error(t, err)
}
