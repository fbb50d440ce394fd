package session_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"lodge-ops/internal/logger"
	"lodge-ops/internal/models"
	"lodge-ops/internal/reports"
	"lodge-ops/internal/session"
	"lodge-ops/internal/sse"
	"lodge-ops/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

type Handler struct {
	Service  *session.Service
	Hub      *sse.NotificationHub
	Sheets   *reports.SheetGenerator
	Validate *validator.Validate
	Logger   *logger.Logger
}

func NewHandler(service *session.Service, hub *sse.NotificationHub, sheets *reports.SheetGenerator, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.NewDiscard()
	}
	return &Handler{
		Service:  service,
		Hub:      hub,
		Sheets:   sheets,
		Validate: validator.New(),
		Logger:   log,
	}
}

// RegisterRoutes mounts the lodge API under /api.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Route("/events", func(r chi.Router) {
			r.Get("/", h.ListEvents)
			r.Post("/", h.UpsertEvent)
		})
		r.Get("/members", h.ListMembers)
		r.Route("/sessions/{eventId}", func(r chi.Router) {
			r.Get("/", h.GetSession)
			r.Put("/", h.SaveSession)
			r.Get("/sheet.pdf", h.AttendanceSheet)
		})
		r.Route("/attendance", func(r chi.Router) {
			r.Get("/summary", h.Summary)
			r.Get("/export.xlsx", h.ExportAttendance)
		})
		r.Route("/alerts/{memberId}/review", func(r chi.Router) {
			r.Post("/", h.MarkReviewed)
			r.Delete("/", h.UnmarkReviewed)
		})
		r.Get("/notifications/stream", h.NotificationStream)
	})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, utils.SuccessResponse("ok", map[string]string{"status": "healthy"}))
}

// ---------------- EVENTS ----------------

func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Service.ListEventsWithStatus(r.Context())
	if err != nil {
		h.writeError(w, "ListEvents", err)
		return
	}
	h.writeJSON(w, http.StatusOK, utils.SuccessResponse("Events retrieved", rows))
}

func (h *Handler) UpsertEvent(w http.ResponseWriter, r *http.Request) {
	var req models.EventRequest
	if !h.decode(w, r, "UpsertEvent", &req) {
		return
	}

	event, err := h.Service.UpsertEvent(r.Context(), models.Event{
		ID:    req.ID,
		Date:  req.Date,
		Title: req.Title,
		Type:  req.Type,
	})
	if err != nil {
		h.writeError(w, "UpsertEvent", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, utils.SuccessResponse("Event saved", event))
}

func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.Service.ListMembers(r.Context())
	if err != nil {
		h.writeError(w, "ListMembers", err)
		return
	}
	h.writeJSON(w, http.StatusOK, utils.SuccessResponse("Members retrieved", members))
}

// ---------------- SESSIONS ----------------

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")
	detail, err := h.Service.GetSessionDetail(r.Context(), eventID)
	if err != nil {
		h.writeError(w, "GetSession", err)
		return
	}
	h.writeJSON(w, http.StatusOK, utils.SuccessResponse("Session retrieved", detail))
}

func (h *Handler) SaveSession(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")
	h.Logger.Info("API", fmt.Sprintf("SaveSession: eventId=%s", eventID))

	var req models.SaveSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Warn("API", fmt.Sprintf("SaveSession: failed to decode request body: %v", err))
		h.writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}
	req.EventID = eventID
	if !h.valid(w, "SaveSession", &req) {
		return
	}

	result, err := h.Service.SaveSession(r.Context(), req)
	if err != nil {
		h.writeError(w, "SaveSession", err)
		return
	}
	h.writeJSON(w, http.StatusOK, utils.SuccessResponse("Session saved", result))
}

func (h *Handler) AttendanceSheet(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")

	detail, err := h.Service.GetSessionDetail(r.Context(), eventID)
	if err != nil {
		h.writeError(w, "AttendanceSheet", err)
		return
	}
	members, err := h.Service.ListMembers(r.Context())
	if err != nil {
		h.writeError(w, "AttendanceSheet", err)
		return
	}

	pdf, err := h.Sheets.Generate(*detail, members)
	if err != nil {
		h.writeError(w, "AttendanceSheet", err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=attendance-%s.pdf", eventID))
	if _, err := w.Write(pdf); err != nil {
		h.Logger.Error("API", fmt.Sprintf("AttendanceSheet: failed to write response: %v", err))
	}
}

// ---------------- ATTENDANCE ----------------

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Service.Summary(r.Context())
	if err != nil {
		h.writeError(w, "Summary", err)
		return
	}
	h.writeJSON(w, http.StatusOK, utils.SuccessResponse("Attendance summary", summary))
}

func (h *Handler) ExportAttendance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	summary, err := h.Service.Summary(ctx)
	if err != nil {
		h.writeError(w, "ExportAttendance", err)
		return
	}
	sessions, rows, err := h.Service.RecentSessions(ctx)
	if err != nil {
		h.writeError(w, "ExportAttendance", err)
		return
	}
	members, err := h.Service.ListMembers(ctx)
	if err != nil {
		h.writeError(w, "ExportAttendance", err)
		return
	}

	workbook, err := reports.AttendanceWorkbook(reports.WorkbookData{
		Sessions:   sessions,
		Attendance: rows,
		Members:    members,
		Summary:    *summary,
	})
	if err != nil {
		h.writeError(w, "ExportAttendance", err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename=attendance.xlsx")
	if _, err := w.Write(workbook); err != nil {
		h.Logger.Error("API", fmt.Sprintf("ExportAttendance: failed to write response: %v", err))
	}
}

func (h *Handler) MarkReviewed(w http.ResponseWriter, r *http.Request) {
	memberID := chi.URLParam(r, "memberId")
	if err := h.Service.MarkReviewed(r.Context(), memberID); err != nil {
		h.writeError(w, "MarkReviewed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, utils.SuccessResponse("Member marked as reviewed", map[string]string{"member_id": memberID}))
}

func (h *Handler) UnmarkReviewed(w http.ResponseWriter, r *http.Request) {
	memberID := chi.URLParam(r, "memberId")
	if err := h.Service.UnmarkReviewed(r.Context(), memberID); err != nil {
		h.writeError(w, "UnmarkReviewed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, utils.SuccessResponse("Member review cleared", map[string]string{"member_id": memberID}))
}

// ---------------- HELPERS ----------------

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, op string, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.Logger.Warn("API", fmt.Sprintf("%s: failed to decode request body: %v", op, err))
		h.writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return false
	}
	return h.valid(w, op, dst)
}

func (h *Handler) valid(w http.ResponseWriter, op string, v interface{}) bool {
	if err := h.Validate.Struct(v); err != nil {
		h.Logger.Warn("API", fmt.Sprintf("%s: validation failed: %v", op, err))
		h.writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Validation failed", validationMessage(err)))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	return fmt.Sprintf("field %s failed on %s", fe.Namespace(), fe.Tag())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrEventNotFound), errors.Is(err, session.ErrMemberNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrSaveInProgress):
		return http.StatusConflict
	case errors.Is(err, session.ErrInvalidCharity), errors.Is(err, session.ErrDuplicateAttendance):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if errors.Is(err, session.ErrCollectionNotBooked) {
		h.Logger.Error("API", fmt.Sprintf("%s: %v", op, err))
		h.writeJSON(w, status, utils.ErrorResponse("Session saved, collection not booked", "the beneficence collection could not be booked to the ledger"))
		return
	}
	if status == http.StatusInternalServerError {
		h.Logger.Error("API", fmt.Sprintf("%s: %v", op, err))
		h.writeJSON(w, status, utils.ErrorResponse("Internal server error", "the request could not be completed"))
		return
	}
	h.Logger.Warn("API", fmt.Sprintf("%s: %v", op, err))
	h.writeJSON(w, status, utils.ErrorResponse(http.StatusText(status), err.Error()))
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body utils.APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.Logger.Error("API", fmt.Sprintf("failed to encode response: %v", err))
	}
}
