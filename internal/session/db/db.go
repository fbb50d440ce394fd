package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"lodge-ops/internal/models"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type DB struct {
	Bun *bun.DB
}

// ---------------- EVENTS ----------------

// ListEvents returns every calendar event; ordering is left to the reconciler.
func (d *DB) ListEvents(ctx context.Context) ([]models.Event, error) {
	var events []models.Event
	err := d.Bun.NewSelect().Model(&events).Scan(ctx)
	return events, err
}

// GetEvent returns nil without error when the event does not exist.
func (d *DB) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	var event models.Event
	err := d.Bun.NewSelect().
		Model(&event).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// UpsertEvent inserts the event or overwrites date, title and type.
func (d *DB) UpsertEvent(ctx context.Context, event models.Event) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().Model((*models.Event)(nil)).Where("id = ?", event.ID).Exists(ctx)
		if err != nil {
			return err
		}
		if exists {
			_, err = tx.NewUpdate().
				Model(&event).
				Column("date", "title", "type").
				Where("id = ?", event.ID).
				Exec(ctx)
			return err
		}
		if event.CreatedAt.IsZero() {
			event.CreatedAt = time.Now()
		}
		_, err = tx.NewInsert().Model(&event).Exec(ctx)
		return err
	})
}

// ---------------- MEMBERS ----------------

// ListMembers returns the active members ordered by name.
func (d *DB) ListMembers(ctx context.Context) ([]models.Member, error) {
	var members []models.Member
	err := d.Bun.NewSelect().
		Model(&members).
		Where("active = ?", true).
		Order("name ASC").
		Scan(ctx)
	return members, err
}

func (d *DB) CreateMember(ctx context.Context, member models.Member) error {
	_, err := d.Bun.NewInsert().Model(&member).Exec(ctx)
	return err
}

// ---------------- SESSION RECORDS ----------------

func (d *DB) ListSessionRecords(ctx context.Context) ([]models.SessionRecord, error) {
	var records []models.SessionRecord
	err := d.Bun.NewSelect().Model(&records).Scan(ctx)
	return records, err
}

// GetSessionRecordByEvent returns nil without error when the event has no record yet.
func (d *DB) GetSessionRecordByEvent(ctx context.Context, eventID string) (*models.SessionRecord, error) {
	var record models.SessionRecord
	err := d.Bun.NewSelect().
		Model(&record).
		Where("event_id = ?", eventID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// UpsertSessionRecord writes the record keyed by its event. When a record for
// the event already exists it is updated in place and keeps its ID.
func (d *DB) UpsertSessionRecord(ctx context.Context, record models.SessionRecord) (*models.SessionRecord, error) {
	err := d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var existing models.SessionRecord
		err := tx.NewSelect().
			Model(&existing).
			Where("event_id = ?", record.EventID).
			Limit(1).
			Scan(ctx)

		switch {
		case errors.Is(err, sql.ErrNoRows):
			if record.ID == "" {
				record.ID = uuid.New().String()
			}
			now := time.Now()
			record.CreatedAt = now
			record.UpdatedAt = now
			_, err = tx.NewInsert().Model(&record).Exec(ctx)
			return err
		case err != nil:
			return err
		}

		record.ID = existing.ID
		record.CreatedAt = existing.CreatedAt
		if record.FinancialTxID == "" {
			record.FinancialTxID = existing.FinancialTxID
		}
		record.UpdatedAt = time.Now()
		_, err = tx.NewUpdate().
			Model(&record).
			Column("date", "charity_collection", "observations", "status", "financial_tx_id", "updated_at").
			Where("id = ?", record.ID).
			Exec(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("upsert session record for event %s: %w", record.EventID, err)
	}
	return &record, nil
}

// SetFinancialTransaction links the ledger entry created for a record.
func (d *DB) SetFinancialTransaction(ctx context.Context, recordID, transactionID string) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.SessionRecord)(nil)).
		Set("financial_tx_id = ?", transactionID).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", recordID).
		Exec(ctx)
	return err
}

// ---------------- ATTENDANCE ----------------

// ListAttendance returns the rows of one session, or all rows when
// sessionRecordID is empty.
func (d *DB) ListAttendance(ctx context.Context, sessionRecordID string) ([]models.Attendance, error) {
	var rows []models.Attendance
	query := d.Bun.NewSelect().Model(&rows)
	if sessionRecordID != "" {
		query = query.Where("session_record_id = ?", sessionRecordID)
	}
	err := query.Scan(ctx)
	return rows, err
}

// BulkReplaceAttendance swaps the full attendance set of a session in one
// transaction. Rows for members missing from the new set are removed.
func (d *DB) BulkReplaceAttendance(ctx context.Context, sessionRecordID string, rows []models.Attendance) error {
	for i := range rows {
		rows[i].SessionRecordID = sessionRecordID
		if rows[i].ID == "" {
			rows[i].ID = uuid.New().String()
		}
	}

	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewDelete().
			Model((*models.Attendance)(nil)).
			Where("session_record_id = ?", sessionRecordID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("clear attendance for %s: %w", sessionRecordID, err)
		}
		if len(rows) == 0 {
			return nil
		}
		if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
			return fmt.Errorf("insert attendance for %s: %w", sessionRecordID, err)
		}
		return nil
	})
}
