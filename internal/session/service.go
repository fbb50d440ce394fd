package session

import (
	"context"
	"errors"
	"fmt"

	"lodge-ops/internal/attendance"
	"lodge-ops/internal/logger"
	"lodge-ops/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrEventNotFound       = errors.New("event not found")
	ErrSaveInProgress      = errors.New("a save for this session is already in progress")
	ErrInvalidCharity      = errors.New("charity collection must not be negative")
	ErrDuplicateAttendance = errors.New("member listed more than once in attendance")
	ErrMemberNotFound      = errors.New("member not found")
	ErrCollectionNotBooked = errors.New("session saved, collection not booked")
)

type DBLayer interface {
	ListEvents(ctx context.Context) ([]models.Event, error)
	GetEvent(ctx context.Context, id string) (*models.Event, error)
	UpsertEvent(ctx context.Context, event models.Event) error
	ListMembers(ctx context.Context) ([]models.Member, error)
	ListSessionRecords(ctx context.Context) ([]models.SessionRecord, error)
	GetSessionRecordByEvent(ctx context.Context, eventID string) (*models.SessionRecord, error)
	UpsertSessionRecord(ctx context.Context, record models.SessionRecord) (*models.SessionRecord, error)
	SetFinancialTransaction(ctx context.Context, recordID, transactionID string) error
	ListAttendance(ctx context.Context, sessionRecordID string) ([]models.Attendance, error)
	BulkReplaceAttendance(ctx context.Context, sessionRecordID string, rows []models.Attendance) error
}

type Ledger interface {
	ListAccounts(ctx context.Context) ([]models.Account, error)
	CreateTransaction(ctx context.Context, tx models.FinancialTransaction) (*models.FinancialTransaction, error)
	UpdateTransactionAmount(ctx context.Context, id string, amount decimal.Decimal) error
}

type SaveGuard interface {
	AcquireSave(ctx context.Context, eventID, token string) (bool, error)
	ReleaseSave(ctx context.Context, eventID, token string) error
}

type ReviewStore interface {
	MarkReviewed(ctx context.Context, memberID string) error
	UnmarkReviewed(ctx context.Context, memberID string) error
	Reviewed(ctx context.Context) (attendance.ReviewSet, error)
}

type Publisher interface {
	PublishSessionFinalized(ctx context.Context, event models.SessionFinalizedEvent) error
	PublishTransactionCreated(ctx context.Context, tx models.FinancialTransaction) error
}

type Notifier interface {
	Notify(kind models.NotificationKind, title, message string)
}

type Options struct {
	Window        int
	Streak        int
	CharityPolicy CharityPolicy
}

type Service struct {
	DB      DBLayer
	Ledger  Ledger
	Guard   SaveGuard
	Reviews ReviewStore
	Kafka   Publisher
	Notify  Notifier
	Logger  *logger.Logger
	opts    Options
}

// SaveResult describes what a save wrote.
type SaveResult struct {
	Record          models.SessionRecord         `json:"record"`
	Created         bool                         `json:"created"`
	AttendanceCount int                          `json:"attendance_count"`
	Transaction     *models.FinancialTransaction `json:"transaction,omitempty"`
}

func NewService(db DBLayer, ledger Ledger, guard SaveGuard, reviews ReviewStore, kafka Publisher, notifier Notifier, log *logger.Logger, opts Options) *Service {
	if opts.Window <= 0 {
		opts.Window = attendance.DefaultWindow
	}
	if opts.Streak <= 0 {
		opts.Streak = attendance.DefaultStreak
	}
	if opts.CharityPolicy == "" {
		opts.CharityPolicy = CharitySkip
	}
	if log == nil {
		log = logger.NewDiscard()
	}
	return &Service{
		DB:      db,
		Ledger:  ledger,
		Guard:   guard,
		Reviews: reviews,
		Kafka:   kafka,
		Notify:  notifier,
		Logger:  log,
		opts:    opts,
	}
}

// ---------------- EVENTS ----------------

// ListEventsWithStatus returns every event joined with its session record,
// newest first. Data problems are logged, never returned.
func (s *Service) ListEventsWithStatus(ctx context.Context) ([]models.EventWithStatus, error) {
	events, err := s.DB.ListEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	records, err := s.DB.ListSessionRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("list session records: %w", err)
	}

	result := attendance.Reconcile(events, records)
	for _, id := range result.MalformedDates {
		s.Logger.Warn("SESSION", fmt.Sprintf("Event %s has an unparseable date; left unsorted", id))
	}
	for _, id := range result.DuplicateRecords {
		s.Logger.Warn("SESSION", fmt.Sprintf("Session record %s duplicates another record for the same event; ignored", id))
	}
	return result.Rows, nil
}

func (s *Service) UpsertEvent(ctx context.Context, event models.Event) (*models.Event, error) {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if _, ok := attendance.ParseDate(event.Date); !ok {
		s.Logger.Warn("SESSION", fmt.Sprintf("Event %s saved with unparseable date %q", event.ID, event.Date))
	}
	if err := s.DB.UpsertEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("upsert event %s: %w", event.ID, err)
	}
	s.Logger.LogSession("EVENT_UPSERTED", event.ID, event.Title)
	return &event, nil
}

func (s *Service) ListMembers(ctx context.Context) ([]models.Member, error) {
	members, err := s.DB.ListMembers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return members, nil
}

// ---------------- SESSIONS ----------------

func (s *Service) GetSessionDetail(ctx context.Context, eventID string) (*models.SessionDetail, error) {
	event, err := s.DB.GetEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("load event %s: %w", eventID, err)
	}
	if event == nil {
		return nil, fmt.Errorf("%w: %s", ErrEventNotFound, eventID)
	}

	detail := &models.SessionDetail{Event: *event, Attendance: []models.Attendance{}}
	record, err := s.DB.GetSessionRecordByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("load session record for %s: %w", eventID, err)
	}
	if record == nil {
		return detail, nil
	}

	rows, err := s.DB.ListAttendance(ctx, record.ID)
	if err != nil {
		return nil, fmt.Errorf("load attendance for %s: %w", record.ID, err)
	}
	detail.Record = record
	if rows != nil {
		detail.Attendance = rows
	}
	return detail, nil
}

// SaveSession finalizes the session of an event: it writes the record,
// replaces the whole attendance set and, on first finalization with a
// positive collection, books the beneficence collection to the ledger.
// Writes are sequential; a failure leaves earlier writes in place.
func (s *Service) SaveSession(ctx context.Context, req models.SaveSessionRequest) (*SaveResult, error) {
	result, err := s.saveSession(ctx, req)
	if err != nil {
		s.Logger.Error("SESSION", fmt.Sprintf("Save of session for event %s failed: %v", req.EventID, err))
		if errors.Is(err, ErrCollectionNotBooked) {
			s.notify(models.NotificationError, "Session saved, collection not booked",
				"Attendance was recorded but the collection could not be booked to the ledger.")
			return nil, err
		}
		s.notify(models.NotificationError, "Save failed", "The session could not be saved. Please try again.")
		return nil, err
	}

	s.Logger.LogSession("SAVED", req.EventID, fmt.Sprintf("record=%s created=%t attendance=%d", result.Record.ID, result.Created, result.AttendanceCount))
	s.publish(ctx, result)
	s.notify(models.NotificationSuccess, "Session saved", "Attendance and collection were recorded.")
	return result, nil
}

func (s *Service) saveSession(ctx context.Context, req models.SaveSessionRequest) (*SaveResult, error) {
	if req.CharityCollection.IsNegative() {
		return nil, ErrInvalidCharity
	}
	rows, err := attendanceRows(req.Attendance)
	if err != nil {
		return nil, err
	}

	token := uuid.New().String()
	ok, err := s.Guard.AcquireSave(ctx, req.EventID, token)
	if err != nil {
		return nil, fmt.Errorf("save guard: %w", err)
	}
	if !ok {
		return nil, ErrSaveInProgress
	}
	defer func() {
		if err := s.Guard.ReleaseSave(context.WithoutCancel(ctx), req.EventID, token); err != nil {
			s.Logger.Warn("SESSION", fmt.Sprintf("Failed to release save guard for %s: %v", req.EventID, err))
		}
	}()

	event, err := s.DB.GetEvent(ctx, req.EventID)
	if err != nil {
		return nil, fmt.Errorf("load event %s: %w", req.EventID, err)
	}
	if event == nil {
		return nil, fmt.Errorf("%w: %s", ErrEventNotFound, req.EventID)
	}

	existing, err := s.DB.GetSessionRecordByEvent(ctx, req.EventID)
	if err != nil {
		return nil, fmt.Errorf("load session record for %s: %w", req.EventID, err)
	}

	record := models.SessionRecord{
		EventID:           event.ID,
		Date:              event.Date,
		CharityCollection: req.CharityCollection,
		Observations:      req.Observations,
		Status:            models.SessionStatusFinalized,
	}
	if existing != nil {
		record.ID = existing.ID
		record.FinancialTxID = existing.FinancialTxID
	} else {
		record.ID = uuid.New().String()
	}

	saved, err := s.DB.UpsertSessionRecord(ctx, record)
	if err != nil {
		return nil, fmt.Errorf("save session record: %w", err)
	}

	if err := s.DB.BulkReplaceAttendance(ctx, saved.ID, rows); err != nil {
		return nil, fmt.Errorf("save attendance: %w", err)
	}

	result := &SaveResult{Record: *saved, Created: existing == nil, AttendanceCount: len(rows)}

	tx, err := s.applyCharity(ctx, *event, existing, saved)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCollectionNotBooked, err)
	}
	if tx != nil {
		result.Transaction = tx
		if result.Record.FinancialTxID == "" {
			result.Record.FinancialTxID = tx.ID
		}
	}
	return result, nil
}

// attendanceRows converts the request rows, rejecting repeated members.
// Justifications are only kept for justified absences.
func attendanceRows(reqs []models.AttendanceRequest) ([]models.Attendance, error) {
	seen := make(map[string]struct{}, len(reqs))
	rows := make([]models.Attendance, 0, len(reqs))
	for _, r := range reqs {
		if _, dup := seen[r.BrotherID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateAttendance, r.BrotherID)
		}
		seen[r.BrotherID] = struct{}{}

		row := models.Attendance{BrotherID: r.BrotherID, Status: r.Status}
		if r.Status == models.AttendanceJustified {
			row.Justification = r.Justification
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ---------------- SUMMARY ----------------

// Summary computes the rolling attendance rate and the frequency alerts over
// the most recent finalized sessions.
func (s *Service) Summary(ctx context.Context) (*models.AttendanceSummary, error) {
	records, err := s.DB.ListSessionRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("list session records: %w", err)
	}
	rows, err := s.DB.ListAttendance(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	members, err := s.DB.ListMembers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	reviewed, err := s.Reviews.Reviewed(ctx)
	if err != nil {
		return nil, fmt.Errorf("load reviewed members: %w", err)
	}

	recent := attendance.RecentFinalized(records, s.opts.Window)
	alerts := attendance.FrequencyAlerts(recent, rows, members, reviewed, s.opts.Streak)
	if alerts == nil {
		alerts = []models.FrequencyAlert{}
	}

	return &models.AttendanceSummary{
		RollingPercentage:  attendance.RollingPercentage(recent, rows, len(members)),
		SessionsConsidered: len(recent),
		Alerts:             alerts,
		Reviewed:           reviewed.IDs(),
	}, nil
}

// RecentSessions returns the sessions the summary is computed over together
// with their attendance rows, for reports.
func (s *Service) RecentSessions(ctx context.Context) ([]models.SessionRecord, []models.Attendance, error) {
	records, err := s.DB.ListSessionRecords(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list session records: %w", err)
	}
	rows, err := s.DB.ListAttendance(ctx, "")
	if err != nil {
		return nil, nil, fmt.Errorf("list attendance: %w", err)
	}
	return attendance.RecentFinalized(records, s.opts.Window), rows, nil
}

// ---------------- REVIEWS ----------------

func (s *Service) MarkReviewed(ctx context.Context, memberID string) error {
	if err := s.requireMember(ctx, memberID); err != nil {
		return err
	}
	if err := s.Reviews.MarkReviewed(ctx, memberID); err != nil {
		return err
	}
	s.Logger.Info("SESSION", fmt.Sprintf("Alerts suppressed for member %s", memberID))
	return nil
}

func (s *Service) UnmarkReviewed(ctx context.Context, memberID string) error {
	if err := s.Reviews.UnmarkReviewed(ctx, memberID); err != nil {
		return err
	}
	s.Logger.Info("SESSION", fmt.Sprintf("Alerts restored for member %s", memberID))
	return nil
}

func (s *Service) requireMember(ctx context.Context, memberID string) error {
	members, err := s.DB.ListMembers(ctx)
	if err != nil {
		return fmt.Errorf("list members: %w", err)
	}
	for _, m := range members {
		if m.ID == memberID {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrMemberNotFound, memberID)
}

// ---------------- SIDE EFFECTS ----------------

func (s *Service) publish(ctx context.Context, result *SaveResult) {
	if s.Kafka == nil {
		return
	}
	event := models.SessionFinalizedEvent{
		SessionRecordID:   result.Record.ID,
		EventID:           result.Record.EventID,
		Date:              result.Record.Date,
		CharityCollection: result.Record.CharityCollection.StringFixed(2),
		AttendanceCount:   result.AttendanceCount,
		Created:           result.Created,
	}
	if err := s.Kafka.PublishSessionFinalized(ctx, event); err != nil {
		s.Logger.Error("KAFKA", fmt.Sprintf("Kafka publish error (session finalized): %v", err))
	}
	if result.Transaction != nil {
		if err := s.Kafka.PublishTransactionCreated(ctx, *result.Transaction); err != nil {
			s.Logger.Error("KAFKA", fmt.Sprintf("Kafka publish error (transaction created): %v", err))
		}
	}
}

func (s *Service) notify(kind models.NotificationKind, title, message string) {
	if s.Notify != nil {
		s.Notify.Notify(kind, title, message)
	}
}
