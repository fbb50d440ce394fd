package models

import "time"

type NotificationKind string

const (
	NotificationSuccess NotificationKind = "success"
	NotificationError   NotificationKind = "error"
)

type Notification struct {
	Kind    NotificationKind `json:"kind"`
	Title   string           `json:"title"`
	Message string           `json:"message"`
	SentAt  time.Time        `json:"sent_at"`
}

// SessionFinalizedEvent is published after a session save completes.
type SessionFinalizedEvent struct {
	SessionRecordID   string `json:"session_record_id"`
	EventID           string `json:"event_id"`
	Date              string `json:"date"`
	CharityCollection string `json:"charity_collection"`
	AttendanceCount   int    `json:"attendance_count"`
	Created           bool   `json:"created"`
}
