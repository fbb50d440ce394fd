package attendance

import "lodge-ops/internal/models"

// Reconciliation is the display list of events joined with their session
// records, plus the data problems found while building it.
type Reconciliation struct {
	Rows []models.EventWithStatus
	// MalformedDates lists IDs of events whose date could not be parsed.
	MalformedDates []string
	// DuplicateRecords lists IDs of session records ignored because an
	// earlier record already referenced the same event.
	DuplicateRecords []string
}

// Reconcile joins events with their session records and sorts the result by
// event date, newest first. It never fails: malformed dates keep their
// position and are reported instead.
func Reconcile(events []models.Event, records []models.SessionRecord) Reconciliation {
	var result Reconciliation

	byEvent := make(map[string]*models.SessionRecord, len(records))
	for i := range records {
		rec := records[i]
		if _, taken := byEvent[rec.EventID]; taken {
			result.DuplicateRecords = append(result.DuplicateRecords, rec.ID)
			continue
		}
		byEvent[rec.EventID] = &rec
	}

	rows := make([]models.EventWithStatus, 0, len(events))
	for _, ev := range events {
		row := models.EventWithStatus{Event: ev, Status: models.SessionStatusPending}
		if rec, ok := byEvent[ev.ID]; ok {
			row.Record = rec
			row.Status = rec.Status
		}
		rows = append(rows, row)
	}

	for _, idx := range sortByDateDesc(rows, func(r models.EventWithStatus) string { return r.Event.Date }) {
		result.MalformedDates = append(result.MalformedDates, rows[idx].Event.ID)
	}
	result.Rows = rows
	return result
}
