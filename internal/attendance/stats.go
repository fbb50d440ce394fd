package attendance

import "lodge-ops/internal/models"

const (
	// DefaultWindow is how many finalized sessions the rolling rate looks at.
	DefaultWindow = 5
	// DefaultStreak is how many consecutive unjustified absences raise an alert.
	DefaultStreak = 3
)

// RecentFinalized returns the finalized records, newest first, truncated to
// window entries. Records whose date does not parse come after every dated
// one, so they only fill the window when there are too few dated sessions.
func RecentFinalized(records []models.SessionRecord, window int) []models.SessionRecord {
	finalized := make([]models.SessionRecord, 0, len(records))
	var undated []models.SessionRecord
	for _, rec := range records {
		if rec.Status != models.SessionStatusFinalized {
			continue
		}
		if _, ok := ParseDate(rec.Date); !ok {
			undated = append(undated, rec)
			continue
		}
		finalized = append(finalized, rec)
	}
	sortByDateDesc(finalized, func(r models.SessionRecord) string { return r.Date })
	finalized = append(finalized, undated...)
	if window >= 0 && len(finalized) > window {
		finalized = finalized[:window]
	}
	return finalized
}

// RollingPercentage is the mean of the per-session attendance rates of the
// given sessions. Each session is weighted equally: its rate is attended rows
// over the roster recorded for it, falling back to memberCount for sessions
// with no rows at all. No sessions yields 0.
func RollingPercentage(recent []models.SessionRecord, rows []models.Attendance, memberCount int) float64 {
	if len(recent) == 0 {
		return 0
	}

	bySession := groupBySession(rows)
	var total float64
	for _, rec := range recent {
		sessionRows := bySession[rec.ID]
		roster := len(sessionRows)
		if roster == 0 {
			roster = memberCount
		}
		if roster == 0 {
			continue
		}

		attended := 0
		for _, row := range sessionRows {
			if row.Status.Attended() {
				attended++
			}
		}
		total += float64(attended) / float64(roster) * 100
	}
	return total / float64(len(recent))
}

func groupBySession(rows []models.Attendance) map[string][]models.Attendance {
	grouped := make(map[string][]models.Attendance)
	for _, row := range rows {
		grouped[row.SessionRecordID] = append(grouped[row.SessionRecordID], row)
	}
	return grouped
}
