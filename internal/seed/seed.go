package seed

import (
	"context"
	"fmt"

	"lodge-ops/internal/finance"
	"lodge-ops/internal/models"
	"lodge-ops/internal/session"
	"lodge-ops/internal/session/db"

	"github.com/shopspring/decimal"
)

var members = []models.Member{
	{ID: "brother-01", Name: "Afonso Henriques", Degree: models.DegreeMaster, Active: true},
	{ID: "brother-02", Name: "Bento Carvalho", Degree: models.DegreeMaster, Active: true},
	{ID: "brother-03", Name: "Caio Mendes", Degree: models.DegreeCompanion, Active: true},
	{ID: "brother-04", Name: "Davi Rocha", Degree: models.DegreeCompanion, Active: true},
	{ID: "brother-05", Name: "Elias Prado", Degree: models.DegreeApprentice, Active: true},
	{ID: "brother-06", Name: "Fábio Nunes", Degree: models.DegreeApprentice, Active: true},
	{ID: "brother-07", Name: "Gustavo Lima", Degree: models.DegreeMaster, Active: false},
}

var accounts = []models.Account{
	{ID: "account-bank", Name: "Conta Corrente", Type: models.AccountTypeBank},
	{ID: "account-cash", Name: "Caixa da Loja", Type: models.AccountTypeCash},
}

var events = []models.Event{
	{ID: "event-2025-04-01", Date: "2025-04-01", Title: "Sessão Ordinária", Type: models.EventTypeSession},
	{ID: "event-2025-04-08", Date: "2025-04-08", Title: "Sessão Ordinária", Type: models.EventTypeSession},
	{ID: "event-2025-04-15", Date: "2025-04-15", Title: "Sessão de Iniciação", Type: models.EventTypeSession},
	{ID: "event-2025-04-22", Date: "2025-04-22", Title: "Sessão Ordinária", Type: models.EventTypeSession},
	{ID: "event-2025-04-26", Date: "2025-04-26", Title: "Ágape Fraternal", Type: models.EventTypeSocialEvent},
	{ID: "event-2025-04-29", Date: "2025-04-29", Title: "Sessão Ordinária", Type: models.EventTypeSession},
	{ID: "event-2025-05-03", Date: "2025-05-03", Title: "Reunião da Diretoria", Type: models.EventTypeMeeting},
}

// sessions lists the finalized sessions: event, collection, and the absent
// and justified members. Everyone else is present.
var sessions = []struct {
	eventID   string
	charity   string
	absent    []string
	justified []string
}{
	{"event-2025-04-01", "85.50", []string{"brother-05"}, nil},
	{"event-2025-04-08", "62.00", []string{"brother-05", "brother-06"}, []string{"brother-03"}},
	{"event-2025-04-15", "140.00", []string{"brother-05"}, nil},
	{"event-2025-04-22", "0", []string{"brother-05", "brother-06"}, []string{"brother-02"}},
}

// Result counts what Run wrote.
type Result struct {
	Members      int
	Accounts     int
	Events       int
	Sessions     int
	Transactions int
}

// Run loads the sample lodge data. Sessions are saved through the service so
// the ledger entries are created the same way as in production.
func Run(ctx context.Context, store *db.DB, ledger *finance.Ledger, svc *session.Service) (*Result, error) {
	res := &Result{}

	for _, m := range members {
		if err := store.CreateMember(ctx, m); err != nil {
			return nil, fmt.Errorf("seed member %s: %w", m.ID, err)
		}
		res.Members++
	}
	for _, a := range accounts {
		if err := ledger.CreateAccount(ctx, a); err != nil {
			return nil, fmt.Errorf("seed account %s: %w", a.ID, err)
		}
		res.Accounts++
	}
	for _, e := range events {
		if err := store.UpsertEvent(ctx, e); err != nil {
			return nil, fmt.Errorf("seed event %s: %w", e.ID, err)
		}
		res.Events++
	}

	for _, s := range sessions {
		req := models.SaveSessionRequest{
			EventID:           s.eventID,
			CharityCollection: decimal.RequireFromString(s.charity),
			Attendance:        attendanceFor(s.absent, s.justified),
		}
		result, err := svc.SaveSession(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("seed session %s: %w", s.eventID, err)
		}
		res.Sessions++
		if result.Transaction != nil {
			res.Transactions++
		}
	}
	return res, nil
}

func attendanceFor(absent, justified []string) []models.AttendanceRequest {
	status := make(map[string]models.AttendanceStatus)
	for _, id := range absent {
		status[id] = models.AttendanceAbsent
	}
	for _, id := range justified {
		status[id] = models.AttendanceJustified
	}

	var rows []models.AttendanceRequest
	for _, m := range members {
		if !m.Active {
			continue
		}
		row := models.AttendanceRequest{BrotherID: m.ID, Status: models.AttendancePresent}
		if st, ok := status[m.ID]; ok {
			row.Status = st
		}
		if row.Status == models.AttendanceJustified {
			row.Justification = "Viagem a trabalho"
		}
		rows = append(rows, row)
	}
	return rows
}
