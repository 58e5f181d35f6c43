package http

import (
	"net/http"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/schedule"
	"github.com/cmlabs-hris/payroll-engine/internal/handler/http/response"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/validator"
	"github.com/go-chi/chi/v5"
)

type ScheduleHandler interface {
	// Work Schedule
	CreateWorkSchedule(w http.ResponseWriter, r *http.Request)
	GetWorkSchedule(w http.ResponseWriter, r *http.Request)
	UpdateWorkSchedule(w http.ResponseWriter, r *http.Request)

	// Employee Schedule Assignment
	CreateEmployeeScheduleAssignment(w http.ResponseWriter, r *http.Request)
	ListEmployeeScheduleAssignments(w http.ResponseWriter, r *http.Request)
	GetExpectedWindow(w http.ResponseWriter, r *http.Request)
}

type scheduleHandlerImpl struct {
	scheduleService schedule.ScheduleService
}

func NewScheduleHandler(scheduleService schedule.ScheduleService) ScheduleHandler {
	return &scheduleHandlerImpl{scheduleService: scheduleService}
}

// ========== WORK SCHEDULE ==========

// CreateWorkSchedule implements ScheduleHandler.
func (h *scheduleHandlerImpl) CreateWorkSchedule(w http.ResponseWriter, r *http.Request) {
	claims, ok := tenant(w, r)
	if !ok {
		return
	}

	var req schedule.SaveScheduleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.CompanyID = claims.CompanyID
	req.ID = ""

	ws, err := h.scheduleService.SaveSchedule(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Work schedule created", schedule.NewScheduleResponse(ws))
}

// UpdateWorkSchedule saves a new version; records already classified keep
// the version they were classified with.
func (h *scheduleHandlerImpl) UpdateWorkSchedule(w http.ResponseWriter, r *http.Request) {
	claims, ok := tenant(w, r)
	if !ok {
		return
	}

	var req schedule.SaveScheduleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.CompanyID = claims.CompanyID
	req.ID = chi.URLParam(r, "id")

	ws, err := h.scheduleService.SaveSchedule(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Work schedule updated", schedule.NewScheduleResponse(ws))
}

// GetWorkSchedule implements ScheduleHandler.
func (h *scheduleHandlerImpl) GetWorkSchedule(w http.ResponseWriter, r *http.Request) {
	claims, ok := tenant(w, r)
	if !ok {
		return
	}

	ws, err := h.scheduleService.GetSchedule(r.Context(), claims.CompanyID, chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, schedule.NewScheduleResponse(ws))
}

// ========== EMPLOYEE SCHEDULE ASSIGNMENT ==========

// CreateEmployeeScheduleAssignment implements ScheduleHandler.
func (h *scheduleHandlerImpl) CreateEmployeeScheduleAssignment(w http.ResponseWriter, r *http.Request) {
	claims, ok := tenant(w, r)
	if !ok {
		return
	}

	var req schedule.AssignScheduleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.CompanyID = claims.CompanyID

	assignment, err := h.scheduleService.AssignSchedule(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Schedule assigned", schedule.NewAssignmentResponse(assignment))
}

// ListEmployeeScheduleAssignments implements ScheduleHandler.
func (h *scheduleHandlerImpl) ListEmployeeScheduleAssignments(w http.ResponseWriter, r *http.Request) {
	claims, ok := tenant(w, r)
	if !ok {
		return
	}

	assignments, err := h.scheduleService.ListAssignments(r.Context(), claims.CompanyID, chi.URLParam(r, "employeeId"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	data := make([]schedule.AssignmentResponse, 0, len(assignments))
	for _, a := range assignments {
		data = append(data, schedule.NewAssignmentResponse(a))
	}
	response.Success(w, data)
}

// GetExpectedWindow shows the window the classifier would use for a date.
func (h *scheduleHandlerImpl) GetExpectedWindow(w http.ResponseWriter, r *http.Request) {
	claims, ok := tenant(w, r)
	if !ok {
		return
	}

	date, valid := validator.IsValidDate(r.URL.Query().Get("date"))
	if !valid {
		var errs validator.ValidationErrors
		errs.Add("date", "date must be YYYY-MM-DD")
		response.HandleError(w, errs.Err())
		return
	}

	window, err := h.scheduleService.ExpectedWindow(r.Context(), claims.CompanyID, chi.URLParam(r, "employeeId"), date)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, schedule.NewWindowResponse(window))
}
