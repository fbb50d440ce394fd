package db_test

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"lodge-ops/internal/models"
	"lodge-ops/internal/session/db"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func setupTestDB(t *testing.T) (*db.DB, *bun.DB) {
	t.Helper()

	// One named in-memory database per test, shared by a single connection.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	require.NoError(t, db.CreateSchema(context.Background(), bunDB))
	t.Cleanup(func() { bunDB.Close() })

	return &db.DB{Bun: bunDB}, bunDB
}

func TestUpsertEvent_InsertThenUpdate(t *testing.T) {
	store, _ := setupTestDB(t)
	ctx := context.Background()

	err := store.UpsertEvent(ctx, models.Event{ID: "ev-1", Date: "2025-03-01", Title: "Sessão", Type: models.EventTypeSession})
	require.NoError(t, err)

	err = store.UpsertEvent(ctx, models.Event{ID: "ev-1", Date: "2025-03-08", Title: "Sessão adiada", Type: models.EventTypeSession})
	require.NoError(t, err)

	events, err := store.ListEvents(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "2025-03-08", events[0].Date)
	assert.Equal(t, "Sessão adiada", events[0].Title)

	missing, err := store.GetEvent(ctx, "nope")
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestListMembers_OnlyActiveSortedByName(t *testing.T) {
	store, _ := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, store.CreateMember(ctx, models.Member{ID: "m2", Name: "Bento", Degree: models.DegreeMaster, Active: true}))
	require.NoError(t, store.CreateMember(ctx, models.Member{ID: "m1", Name: "Afonso", Degree: models.DegreeApprentice, Active: true}))
	require.NoError(t, store.CreateMember(ctx, models.Member{ID: "m3", Name: "Carlos", Degree: models.DegreeCompanion, Active: false}))

	members, err := store.ListMembers(ctx)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "Afonso", members[0].Name)
	assert.Equal(t, "Bento", members[1].Name)
}

func TestUpsertSessionRecord_KeepsOneRecordPerEvent(t *testing.T) {
	store, _ := setupTestDB(t)
	ctx := context.Background()

	first, err := store.UpsertSessionRecord(ctx, models.SessionRecord{
		ID:                "rec-1",
		EventID:           "ev-1",
		Date:              "2025-03-01",
		CharityCollection: decimal.NewFromInt(50),
		Status:            models.SessionStatusFinalized,
	})
	require.NoError(t, err)
	assert.Equal(t, "rec-1", first.ID)

	// A second write for the same event with a fresh ID updates the existing row.
	second, err := store.UpsertSessionRecord(ctx, models.SessionRecord{
		ID:                "rec-other",
		EventID:           "ev-1",
		Date:              "2025-03-01",
		CharityCollection: decimal.RequireFromString("75.50"),
		Observations:      "Ata lida e aprovada",
		Status:            models.SessionStatusFinalized,
	})
	require.NoError(t, err)
	assert.Equal(t, "rec-1", second.ID)

	records, err := store.ListSessionRecords(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, decimal.RequireFromString("75.50").Equal(records[0].CharityCollection))
	assert.Equal(t, "Ata lida e aprovada", records[0].Observations)

	got, err := store.GetSessionRecordByEvent(ctx, "ev-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "rec-1", got.ID)

	none, err := store.GetSessionRecordByEvent(ctx, "ev-2")
	assert.NoError(t, err)
	assert.Nil(t, none)
}

func TestSessionRecords_EventIDIsUnique(t *testing.T) {
	_, bunDB := setupTestDB(t)
	ctx := context.Background()

	insert := func(id string) error {
		_, err := bunDB.NewInsert().Model(&models.SessionRecord{
			ID: id, EventID: "ev-1", Date: "2025-03-01", Status: models.SessionStatusPending, CreatedAt: time.Now(),
		}).Exec(ctx)
		return err
	}

	require.NoError(t, insert("rec-1"))
	assert.Error(t, insert("rec-2"))
}

func TestBulkReplaceAttendance_RemovesOmittedMembers(t *testing.T) {
	store, _ := setupTestDB(t)
	ctx := context.Background()

	err := store.BulkReplaceAttendance(ctx, "rec-1", []models.Attendance{
		{BrotherID: "m1", Status: models.AttendancePresent},
		{BrotherID: "m2", Status: models.AttendanceAbsent},
		{BrotherID: "m3", Status: models.AttendanceJustified, Justification: "Viagem"},
	})
	require.NoError(t, err)
	require.NoError(t, store.BulkReplaceAttendance(ctx, "rec-2", []models.Attendance{
		{BrotherID: "m1", Status: models.AttendancePresent},
	}))

	err = store.BulkReplaceAttendance(ctx, "rec-1", []models.Attendance{
		{BrotherID: "m2", Status: models.AttendancePresent},
	})
	require.NoError(t, err)

	rows, err := store.ListAttendance(ctx, "rec-1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "m2", rows[0].BrotherID)
	assert.Equal(t, models.AttendancePresent, rows[0].Status)

	// Other sessions are untouched.
	all, err := store.ListAttendance(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestBulkReplaceAttendance_DuplicateMemberRejected(t *testing.T) {
	store, _ := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, store.BulkReplaceAttendance(ctx, "rec-1", []models.Attendance{
		{BrotherID: "m1", Status: models.AttendancePresent},
	}))

	err := store.BulkReplaceAttendance(ctx, "rec-1", []models.Attendance{
		{BrotherID: "m1", Status: models.AttendancePresent},
		{BrotherID: "m1", Status: models.AttendanceAbsent},
	})
	assert.Error(t, err)

	// The failed replacement rolled back, so the previous set survives.
	rows, err := store.ListAttendance(ctx, "rec-1")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestBulkReplaceAttendance_EmptySetClears(t *testing.T) {
	store, _ := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, store.BulkReplaceAttendance(ctx, "rec-1", []models.Attendance{
		{BrotherID: "m1", Status: models.AttendancePresent},
	}))
	require.NoError(t, store.BulkReplaceAttendance(ctx, "rec-1", nil))

	rows, err := store.ListAttendance(ctx, "rec-1")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSetFinancialTransaction(t *testing.T) {
	store, _ := setupTestDB(t)
	ctx := context.Background()

	rec, err := store.UpsertSessionRecord(ctx, models.SessionRecord{
		EventID: "ev-1", Date: "2025-03-01", Status: models.SessionStatusFinalized, CharityCollection: decimal.NewFromInt(10),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)

	require.NoError(t, store.SetFinancialTransaction(ctx, rec.ID, "tx-9"))

	got, err := store.GetSessionRecordByEvent(ctx, "ev-1")
	require.NoError(t, err)
	assert.Equal(t, "tx-9", got.FinancialTxID)
}
