package models

import "github.com/uptrace/bun"

type AttendanceStatus string

const (
	AttendancePresent   AttendanceStatus = "present"
	AttendanceAbsent    AttendanceStatus = "absent"
	AttendanceJustified AttendanceStatus = "justified"
)

// Attended reports whether the status counts towards the attendance rate.
func (s AttendanceStatus) Attended() bool {
	return s == AttendancePresent || s == AttendanceJustified
}

type Attendance struct {
	bun.BaseModel `bun:"table:attendance"`

	ID              string           `bun:"id,pk" json:"id"`
	SessionRecordID string           `bun:"session_record_id,notnull,unique:attendance_session_brother" json:"session_record_id"`
	BrotherID       string           `bun:"brother_id,notnull,unique:attendance_session_brother" json:"brother_id"`
	Status          AttendanceStatus `bun:"status,notnull" json:"status"`
	Justification   string           `bun:"justification,nullzero" json:"justification,omitempty"`
}

type AttendanceRequest struct {
	BrotherID     string           `json:"brother_id" validate:"required"`
	Status        AttendanceStatus `json:"status" validate:"required,oneof=present absent justified"`
	Justification string           `json:"justification" validate:"max=1000"`
}

// FrequencyAlert flags a member absent without justification in every one
// of the sessions considered.
type FrequencyAlert struct {
	Member                         Member `json:"member"`
	ConsecutiveUnjustifiedAbsences int    `json:"consecutive_unjustified_absences"`
}

type AttendanceSummary struct {
	RollingPercentage  float64          `json:"rolling_percentage"`
	SessionsConsidered int              `json:"sessions_considered"`
	Alerts             []FrequencyAlert `json:"alerts"`
	Reviewed           []string         `json:"reviewed"`
}
