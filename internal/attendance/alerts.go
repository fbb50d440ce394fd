package attendance

import "lodge-ops/internal/models"

// FrequencyAlerts flags members absent without justification in every one of
// the newest min(streak, len(recent)) sessions. A missing row counts as an
// absence; present or justified breaks the streak. Members in reviewed are
// skipped.
func FrequencyAlerts(recent []models.SessionRecord, rows []models.Attendance, members []models.Member, reviewed ReviewSet, streak int) []models.FrequencyAlert {
	considered := min(streak, len(recent))
	if considered <= 0 {
		return nil
	}

	type key struct{ session, member string }
	statuses := make(map[key]models.AttendanceStatus, len(rows))
	for _, row := range rows {
		statuses[key{row.SessionRecordID, row.BrotherID}] = row.Status
	}

	var alerts []models.FrequencyAlert
	for _, member := range members {
		if reviewed.Contains(member.ID) {
			continue
		}

		absences := 0
		for _, rec := range recent[:considered] {
			status, recorded := statuses[key{rec.ID, member.ID}]
			if !recorded || status == models.AttendanceAbsent {
				absences++
			}
		}
		if absences == considered {
			alerts = append(alerts, models.FrequencyAlert{
				Member:                         member,
				ConsecutiveUnjustifiedAbsences: considered,
			})
		}
	}
	return alerts
}
