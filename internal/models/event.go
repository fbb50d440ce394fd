package models

import (
	"time"

	"github.com/uptrace/bun"
)

type EventType string

const (
	EventTypeSession     EventType = "session"
	EventTypeMeeting     EventType = "meeting"
	EventTypeSocialEvent EventType = "social_event"
	EventTypeOther       EventType = "other"
)

// Event is a lodge calendar entry. Date is kept as entered ("2006-01-02" or
// RFC3339) because calendar data is typed in by hand and may not parse.
type Event struct {
	bun.BaseModel `bun:"table:events"`

	ID        string    `bun:"id,pk" json:"id"`
	Date      string    `bun:"date,notnull" json:"date"`
	Title     string    `bun:"title,notnull" json:"title"`
	Type      EventType `bun:"type,notnull" json:"type"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}

type EventRequest struct {
	ID    string    `json:"id"`
	Date  string    `json:"date" validate:"required"`
	Title string    `json:"title" validate:"required,max=200"`
	Type  EventType `json:"type" validate:"required,oneof=session meeting social_event other"`
}

// CalendarEventMessage is the payload published by the calendar service.
type CalendarEventMessage struct {
	EventID string    `json:"event_id"`
	Date    string    `json:"date"`
	Title   string    `json:"title"`
	Type    EventType `json:"type"`
}

func (m CalendarEventMessage) ToEvent() Event {
	return Event{
		ID:    m.EventID,
		Date:  m.Date,
		Title: m.Title,
		Type:  m.Type,
	}
}
