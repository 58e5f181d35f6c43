package http

import (
	"context"
	"net/http"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-engine/internal/handler/http/response"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/validator"
	"github.com/go-chi/chi/v5"
)

type AttendanceHandler interface {
	RecordPunches(w http.ResponseWriter, r *http.Request)
	Classify(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
	ListFlagged(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	History(w http.ResponseWriter, r *http.Request)
	Resolve(w http.ResponseWriter, r *http.Request)
	ApproveOvertime(w http.ResponseWriter, r *http.Request)
	DenyOvertime(w http.ResponseWriter, r *http.Request)
}

type attendanceHandlerImpl struct {
	attendanceService attendance.AttendanceService
	reviewService     attendance.ReviewService
}

func NewAttendanceHandler(attendanceService attendance.AttendanceService, reviewService attendance.ReviewService) AttendanceHandler {
	return &attendanceHandlerImpl{
		attendanceService: attendanceService,
		reviewService:     reviewService,
	}
}

// RecordPunches implements AttendanceHandler.
func (h *attendanceHandlerImpl) RecordPunches(w http.ResponseWriter, r *http.Request) {
	claims, ok := tenant(w, r)
	if !ok {
		return
	}

	var req attendance.RecordPunchesRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.CompanyID = claims.CompanyID

	recorded, err := h.attendanceService.RecordPunches(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Punches recorded", map[string]int{
		"received": len(req.Punches),
		"recorded": recorded,
	})
}

// Classify implements AttendanceHandler.
func (h *attendanceHandlerImpl) Classify(w http.ResponseWriter, r *http.Request) {
	claims, ok := tenant(w, r)
	if !ok {
		return
	}

	var req attendance.ClassifyRangeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.CompanyID = claims.CompanyID
	req.Actor = claims.UserID

	result, err := h.attendanceService.ClassifyRange(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// List implements AttendanceHandler.
func (h *attendanceHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.parseFilter(w, r)
	if !ok {
		return
	}
	h.list(w, r, filter)
}

// ListFlagged implements AttendanceHandler.
func (h *attendanceHandlerImpl) ListFlagged(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.parseFilter(w, r)
	if !ok {
		return
	}
	flagged := true
	filter.NeedsReview = &flagged
	h.list(w, r, filter)
}

func (h *attendanceHandlerImpl) parseFilter(w http.ResponseWriter, r *http.Request) (attendance.DtrFilter, bool) {
	var filter attendance.DtrFilter
	var errs validator.ValidationErrors
	q := r.URL.Query()

	filter.Page, filter.Limit = pagination(r)
	if employeeID := q.Get("employee_id"); employeeID != "" {
		filter.EmployeeID = &employeeID
	}
	if from := q.Get("from"); from != "" {
		if d, ok := validator.IsValidDate(from); ok {
			filter.From = &d
		} else {
			errs.Add("from", "from must be YYYY-MM-DD")
		}
	}
	if to := q.Get("to"); to != "" {
		if d, ok := validator.IsValidDate(to); ok {
			filter.To = &d
		} else {
			errs.Add("to", "to must be YYYY-MM-DD")
		}
	}
	if status := q.Get("status"); status != "" {
		s := attendance.DtrStatus(status)
		if s.Valid() {
			filter.Status = &s
		} else {
			errs.Add("status", "unknown status "+status)
		}
	}
	if needsReview := q.Get("needs_review"); needsReview != "" {
		flag := needsReview == "true"
		filter.NeedsReview = &flag
	}

	if err := errs.Err(); err != nil {
		response.HandleError(w, err)
		return filter, false
	}
	return filter, true
}

func (h *attendanceHandlerImpl) list(w http.ResponseWriter, r *http.Request, filter attendance.DtrFilter) {
	claims, ok := tenant(w, r)
	if !ok {
		return
	}

	records, total, err := h.attendanceService.ListRecords(r.Context(), claims.CompanyID, filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	data := make([]attendance.DtrResponse, 0, len(records))
	for _, rec := range records {
		data = append(data, attendance.NewDtrResponse(rec))
	}
	response.Paginated(w, data, filter.Page, filter.Limit, total)
}

// Get implements AttendanceHandler.
func (h *attendanceHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := tenant(w, r)
	if !ok {
		return
	}

	record, err := h.attendanceService.GetRecord(r.Context(), claims.CompanyID, chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, attendance.NewDtrResponse(record))
}

// History implements AttendanceHandler.
func (h *attendanceHandlerImpl) History(w http.ResponseWriter, r *http.Request) {
	claims, ok := tenant(w, r)
	if !ok {
		return
	}

	events, err := h.attendanceService.History(r.Context(), claims.CompanyID, chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	data := make([]attendance.DtrEventResponse, 0, len(events))
	for _, e := range events {
		data = append(data, attendance.NewDtrEventResponse(e))
	}
	response.Success(w, data)
}

// Resolve implements AttendanceHandler.
func (h *attendanceHandlerImpl) Resolve(w http.ResponseWriter, r *http.Request) {
	claims, ok := tenant(w, r)
	if !ok {
		return
	}

	var req attendance.ResolveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.CompanyID = claims.CompanyID
	req.RecordID = chi.URLParam(r, "id")
	req.Actor = claims.UserID

	record, err := h.reviewService.Resolve(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Record resolved", attendance.NewDtrResponse(record))
}

// ApproveOvertime implements AttendanceHandler.
func (h *attendanceHandlerImpl) ApproveOvertime(w http.ResponseWriter, r *http.Request) {
	h.decideOvertime(w, r, h.reviewService.ApproveOvertime, "Overtime approved")
}

// DenyOvertime implements AttendanceHandler.
func (h *attendanceHandlerImpl) DenyOvertime(w http.ResponseWriter, r *http.Request) {
	h.decideOvertime(w, r, h.reviewService.DenyOvertime, "Overtime denied")
}

func (h *attendanceHandlerImpl) decideOvertime(
	w http.ResponseWriter,
	r *http.Request,
	decide func(context.Context, attendance.OvertimeDecisionRequest) (attendance.DailyTimeRecord, error),
	message string,
) {
	claims, ok := tenant(w, r)
	if !ok {
		return
	}

	var req attendance.OvertimeDecisionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.CompanyID = claims.CompanyID
	req.RecordID = chi.URLParam(r, "id")
	req.Actor = claims.UserID

	record, err := decide(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, message, attendance.NewDtrResponse(record))
}
