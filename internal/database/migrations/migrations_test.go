package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"lodge-ops/internal/models"
	"lodge-ops/internal/session/db"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

func TestInitialize_MissingDirectory(t *testing.T) {
	r := NewRunner(nil, "/nonexistent/migrations", nil)
	err := r.Initialize()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
	assert.NoError(t, r.Close())
}

// TestMigrateUp_Postgres applies the SQL migrations to a real postgres and
// checks the store works against the resulting schema.
func TestMigrateUp_Postgres(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "lodge",
				"POSTGRES_PASSWORD": "lodge",
				"POSTGRES_DB":       "lodge",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("docker not available: %v", err)
	}
	defer container.Terminate(ctx)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)
	dsn := fmt.Sprintf("postgres://lodge:lodge@%s:%s/lodge?sslmode=disable", host, port.Port())

	migrationDB, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	runner := NewRunner(migrationDB, "../../../migrations", nil)
	require.NoError(t, runner.MigrateUp())
	require.NoError(t, runner.MigrateUp(), "re-running is a no-op")
	require.NoError(t, runner.Close())

	sqldb, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	bunDB := bun.NewDB(sqldb, pgdialect.New())
	defer bunDB.Close()

	store := &db.DB{Bun: bunDB}
	require.NoError(t, store.UpsertEvent(ctx, models.Event{ID: "ev-1", Date: "2025-05-06", Title: "Sessão", Type: models.EventTypeSession}))
	rec, err := store.UpsertSessionRecord(ctx, models.SessionRecord{EventID: "ev-1", Date: "2025-05-06", Status: models.SessionStatusFinalized})
	require.NoError(t, err)

	err = store.BulkReplaceAttendance(ctx, rec.ID, []models.Attendance{
		{BrotherID: "m1", Status: models.AttendancePresent},
		{BrotherID: "m1", Status: models.AttendanceAbsent},
	})
	assert.Error(t, err, "unique (session_record_id, brother_id) must hold")

	_, err = bunDB.NewInsert().Model(&models.SessionRecord{ID: "dup", EventID: "ev-1", Date: "2025-05-06", Status: models.SessionStatusPending}).Exec(ctx)
	assert.Error(t, err, "unique event_id must hold")
}
