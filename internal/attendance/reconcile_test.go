package attendance

import (
	"testing"

	"lodge-ops/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eventIDs(rows []models.EventWithStatus) []string {
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.Event.ID)
	}
	return ids
}

func TestReconcile_StatusFromRecordOrPending(t *testing.T) {
	events := []models.Event{
		{ID: "ev-1", Date: "2025-01-10", Title: "Sessão ordinária"},
		{ID: "ev-2", Date: "2025-01-17", Title: "Sessão magna"},
		{ID: "ev-3", Date: "2025-01-24", Title: "Ágape"},
	}
	records := []models.SessionRecord{
		{ID: "rec-1", EventID: "ev-1", Status: models.SessionStatusFinalized},
		{ID: "rec-3", EventID: "ev-3", Status: models.SessionStatusPending},
	}

	result := Reconcile(events, records)

	require.Len(t, result.Rows, len(events))
	byID := map[string]models.EventWithStatus{}
	for _, row := range result.Rows {
		byID[row.Event.ID] = row
	}
	assert.Equal(t, models.SessionStatusFinalized, byID["ev-1"].Status)
	assert.Equal(t, "rec-1", byID["ev-1"].Record.ID)
	assert.Equal(t, models.SessionStatusPending, byID["ev-2"].Status)
	assert.Nil(t, byID["ev-2"].Record)
	assert.Equal(t, models.SessionStatusPending, byID["ev-3"].Status)
	assert.NotNil(t, byID["ev-3"].Record)
	assert.Empty(t, result.MalformedDates)
	assert.Empty(t, result.DuplicateRecords)
}

func TestReconcile_SortsNewestFirst(t *testing.T) {
	events := []models.Event{
		{ID: "jan", Date: "2025-01-01"},
		{ID: "mar", Date: "2025-03-01T19:30:00Z"},
		{ID: "feb", Date: "2025-02-01"},
	}

	result := Reconcile(events, nil)

	assert.Equal(t, []string{"mar", "feb", "jan"}, eventIDs(result.Rows))
}

func TestReconcile_MalformedDatesDoNotFail(t *testing.T) {
	events := []models.Event{
		{ID: "bad", Date: "bad"},
		{ID: "new-year", Date: "2025-01-01"},
	}

	var result Reconciliation
	require.NotPanics(t, func() { result = Reconcile(events, nil) })

	assert.Len(t, result.Rows, 2)
	assert.Equal(t, []string{"bad"}, result.MalformedDates)
}

func TestReconcile_ValidDatesSortedAroundMalformedOnes(t *testing.T) {
	events := []models.Event{
		{ID: "old", Date: "2024-05-01"},
		{ID: "typo", Date: "31/02/2025"},
		{ID: "new", Date: "2025-05-01"},
		{ID: "empty", Date: ""},
		{ID: "mid", Date: "2024-12-01"},
	}

	result := Reconcile(events, nil)

	// Malformed entries keep their slots, valid ones are descending among themselves.
	assert.Equal(t, []string{"new", "typo", "mid", "empty", "old"}, eventIDs(result.Rows))
	assert.ElementsMatch(t, []string{"typo", "empty"}, result.MalformedDates)
}

func TestReconcile_DuplicateRecordsReported(t *testing.T) {
	events := []models.Event{{ID: "ev-1", Date: "2025-01-10"}}
	records := []models.SessionRecord{
		{ID: "rec-a", EventID: "ev-1", Status: models.SessionStatusFinalized},
		{ID: "rec-b", EventID: "ev-1", Status: models.SessionStatusPending},
	}

	result := Reconcile(events, records)

	require.Len(t, result.Rows, 1)
	assert.Equal(t, "rec-a", result.Rows[0].Record.ID)
	assert.Equal(t, []string{"rec-b"}, result.DuplicateRecords)
}

func TestReconcile_DoesNotAliasInputRecords(t *testing.T) {
	events := []models.Event{{ID: "ev-1", Date: "2025-01-10"}}
	records := []models.SessionRecord{{ID: "rec-1", EventID: "ev-1", Status: models.SessionStatusFinalized}}

	result := Reconcile(events, records)
	records[0].Status = models.SessionStatusPending

	assert.Equal(t, models.SessionStatusFinalized, result.Rows[0].Record.Status)
}

func TestParseDate(t *testing.T) {
	_, ok := ParseDate("2025-06-24")
	assert.True(t, ok)
	_, ok = ParseDate("2025-06-24T20:00:00-03:00")
	assert.True(t, ok)
	_, ok = ParseDate("24 de junho")
	assert.False(t, ok)
	_, ok = ParseDate("   ")
	assert.False(t, ok)
}
