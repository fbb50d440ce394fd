package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type SessionStatus string

const (
	SessionStatusPending   SessionStatus = "pending"
	SessionStatusFinalized SessionStatus = "finalized"
)

// SessionRecord tracks whether attendance and the beneficence collection
// were finalized for one event. There is at most one record per event.
type SessionRecord struct {
	bun.BaseModel `bun:"table:session_records"`

	ID                string          `bun:"id,pk" json:"id"`
	EventID           string          `bun:"event_id,notnull,unique" json:"event_id"`
	Date              string          `bun:"date,notnull" json:"date"`
	CharityCollection decimal.Decimal `bun:"charity_collection,type:decimal(12,2),notnull" json:"charity_collection"`
	Observations      string          `bun:"observations" json:"observations"`
	Status            SessionStatus   `bun:"status,notnull" json:"status"`
	FinancialTxID     string          `bun:"financial_tx_id,nullzero" json:"financial_tx_id,omitempty"`
	CreatedAt         time.Time       `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt         time.Time       `bun:"updated_at,nullzero" json:"updated_at"`
}

// EventWithStatus is an event joined with its (optional) session record.
type EventWithStatus struct {
	Event  Event          `json:"event"`
	Record *SessionRecord `json:"record,omitempty"`
	Status SessionStatus  `json:"status"`
}

type SaveSessionRequest struct {
	EventID           string              `json:"event_id" validate:"required"`
	CharityCollection decimal.Decimal     `json:"charity_collection"`
	Observations      string              `json:"observations" validate:"max=4000"`
	Attendance        []AttendanceRequest `json:"attendance" validate:"dive"`
}

type SessionDetail struct {
	Event      Event          `json:"event"`
	Record     *SessionRecord `json:"record,omitempty"`
	Attendance []Attendance   `json:"attendance"`
}
