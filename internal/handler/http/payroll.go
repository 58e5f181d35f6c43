package http

import (
	"context"
	"net/http"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/handler/http/response"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/validator"
	"github.com/go-chi/chi/v5"
)

type PayrollHandler interface {
	// Periods
	CreatePeriod(w http.ResponseWriter, r *http.Request)
	GetPeriod(w http.ResponseWriter, r *http.Request)
	ListPeriods(w http.ResponseWriter, r *http.Request)
	OpenPeriod(w http.ResponseWriter, r *http.Request)
	ApprovePeriod(w http.ResponseWriter, r *http.Request)
	MarkPaid(w http.ResponseWriter, r *http.Request)
	ClosePeriod(w http.ResponseWriter, r *http.Request)
	Summary(w http.ResponseWriter, r *http.Request)

	// Computation
	Compute(w http.ResponseWriter, r *http.Request)
	Recompute(w http.ResponseWriter, r *http.Request)

	// Entries
	ListEntries(w http.ResponseWriter, r *http.Request)
	GetEntry(w http.ResponseWriter, r *http.Request)
	ReviewEntry(w http.ResponseWriter, r *http.Request)
	ApproveEntry(w http.ResponseWriter, r *http.Request)
	VoidEntry(w http.ResponseWriter, r *http.Request)

	// Settings
	GetTaxSettings(w http.ResponseWriter, r *http.Request)
	UpdateTaxSettings(w http.ResponseWriter, r *http.Request)
}

type payrollHandlerImpl struct {
	payrollService payroll.PayrollService
}

func NewPayrollHandler(payrollService payroll.PayrollService) PayrollHandler {
	return &payrollHandlerImpl{payrollService: payrollService}
}

// ========== PERIODS ==========

func (h *payrollHandlerImpl) CreatePeriod(w http.ResponseWriter, r *http.Request) {
	claims, ok := tenant(w, r)
	if !ok {
		return
	}

	var req payroll.CreatePeriodRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.CompanyID = claims.CompanyID

	period, err := h.payrollService.CreatePeriod(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Payroll period created", payroll.NewPeriodResponse(period))
}

func (h *payrollHandlerImpl) GetPeriod(w http.ResponseWriter, r *http.Request) {
	claims, ok := tenant(w, r)
	if !ok {
		return
	}

	period, err := h.payrollService.GetPeriod(r.Context(), claims.CompanyID, chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, payroll.NewPeriodResponse(period))
}

func (h *payrollHandlerImpl) ListPeriods(w http.ResponseWriter, r *http.Request) {
	claims, ok := tenant(w, r)
	if !ok {
		return
	}

	var filter payroll.PeriodFilter
	filter.Page, filter.Limit = pagination(r)
	if status := r.URL.Query().Get("status"); status != "" {
		s := payroll.PeriodStatus(status)
		if !s.Valid() {
			var errs validator.ValidationErrors
			errs.Add("status", "unknown period status "+status)
			response.HandleError(w, errs.Err())
			return
		}
		filter.Status = &s
	}

	periods, total, err := h.payrollService.ListPeriods(r.Context(), claims.CompanyID, filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	data := make([]payroll.PeriodResponse, 0, len(periods))
	for _, p := range periods {
		data = append(data, payroll.NewPeriodResponse(p))
	}
	response.Paginated(w, data, filter.Page, filter.Limit, total)
}

func (h *payrollHandlerImpl) OpenPeriod(w http.ResponseWriter, r *http.Request) {
	h.periodAction(w, r, h.payrollService.OpenPeriod, "Payroll period opened")
}

func (h *payrollHandlerImpl) ApprovePeriod(w http.ResponseWriter, r *http.Request) {
	h.periodAction(w, r, h.payrollService.ApprovePeriod, "Payroll period approved")
}

func (h *payrollHandlerImpl) MarkPaid(w http.ResponseWriter, r *http.Request) {
	h.periodAction(w, r, h.payrollService.MarkPaid, "Payroll period marked as paid")
}

func (h *payrollHandlerImpl) ClosePeriod(w http.ResponseWriter, r *http.Request) {
	h.periodAction(w, r, h.payrollService.ClosePeriod, "Payroll period closed")
}

func (h *payrollHandlerImpl) periodAction(
	w http.ResponseWriter,
	r *http.Request,
	action func(context.Context, payroll.PeriodActionRequest) (payroll.Period, error),
	message string,
) {
	claims, ok := tenant(w, r)
	if !ok {
		return
	}

	period, err := action(r.Context(), payroll.PeriodActionRequest{
		CompanyID: claims.CompanyID,
		PeriodID:  chi.URLParam(r, "id"),
		Actor:     claims.UserID,
	})
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, message, payroll.NewPeriodResponse(period))
}

func (h *payrollHandlerImpl) Summary(w http.ResponseWriter, r *http.Request) {
	claims, ok := tenant(w, r)
	if !ok {
		return
	}

	summary, err := h.payrollService.Summary(r.Context(), claims.CompanyID, chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, summary)
}

// ========== COMPUTATION ==========

func (h *payrollHandlerImpl) Compute(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, h.payrollService.Compute)
}

func (h *payrollHandlerImpl) Recompute(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, h.payrollService.Recompute)
}

// run answers 200 even when some employees failed; the failures are listed
// in the body so the batch can be fixed and recomputed.
func (h *payrollHandlerImpl) run(
	w http.ResponseWriter,
	r *http.Request,
	compute func(context.Context, payroll.ComputeRequest) (payroll.RunResult, error),
) {
	claims, ok := tenant(w, r)
	if !ok {
		return
	}

	var req payroll.ComputeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.CompanyID = claims.CompanyID
	req.PeriodID = chi.URLParam(r, "id")
	req.Actor = claims.UserID

	result, err := compute(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, payroll.NewRunResponse(result))
}

// ========== ENTRIES ==========

func (h *payrollHandlerImpl) ListEntries(w http.ResponseWriter, r *http.Request) {
	claims, ok := tenant(w, r)
	if !ok {
		return
	}

	var filter payroll.EntryFilter
	filter.Page, filter.Limit = pagination(r)
	if status := r.URL.Query().Get("status"); status != "" {
		s := payroll.EntryStatus(status)
		if !s.Valid() {
			var errs validator.ValidationErrors
			errs.Add("status", "unknown entry status "+status)
			response.HandleError(w, errs.Err())
			return
		}
		filter.Status = &s
	}
	if employeeID := r.URL.Query().Get("employee_id"); employeeID != "" {
		filter.EmployeeID = &employeeID
	}

	entries, total, err := h.payrollService.ListEntries(r.Context(), claims.CompanyID, chi.URLParam(r, "id"), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	data := make([]payroll.EntryResponse, 0, len(entries))
	for _, e := range entries {
		data = append(data, payroll.NewEntryResponse(e))
	}
	response.Paginated(w, data, filter.Page, filter.Limit, total)
}

func (h *payrollHandlerImpl) GetEntry(w http.ResponseWriter, r *http.Request) {
	claims, ok := tenant(w, r)
	if !ok {
		return
	}

	entry, err := h.payrollService.GetEntry(r.Context(), claims.CompanyID, chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, payroll.NewEntryResponse(entry))
}

func (h *payrollHandlerImpl) ReviewEntry(w http.ResponseWriter, r *http.Request) {
	h.entryAction(w, r, h.payrollService.ReviewEntry, "Payroll entry reviewed")
}

func (h *payrollHandlerImpl) ApproveEntry(w http.ResponseWriter, r *http.Request) {
	h.entryAction(w, r, h.payrollService.ApproveEntry, "Payroll entry approved")
}

func (h *payrollHandlerImpl) VoidEntry(w http.ResponseWriter, r *http.Request) {
	h.entryAction(w, r, h.payrollService.VoidEntry, "Payroll entry voided")
}

func (h *payrollHandlerImpl) entryAction(
	w http.ResponseWriter,
	r *http.Request,
	action func(context.Context, payroll.EntryActionRequest) (payroll.Entry, error),
	message string,
) {
	claims, ok := tenant(w, r)
	if !ok {
		return
	}

	var req payroll.EntryActionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.CompanyID = claims.CompanyID
	req.EntryID = chi.URLParam(r, "id")
	req.Actor = claims.UserID

	entry, err := action(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, message, payroll.NewEntryResponse(entry))
}

// ========== SETTINGS ==========

func (h *payrollHandlerImpl) GetTaxSettings(w http.ResponseWriter, r *http.Request) {
	claims, ok := tenant(w, r)
	if !ok {
		return
	}

	settings, err := h.payrollService.GetTaxSettings(r.Context(), claims.CompanyID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, payroll.TaxSettingsResponse{Method: string(settings.Method)})
}

func (h *payrollHandlerImpl) UpdateTaxSettings(w http.ResponseWriter, r *http.Request) {
	claims, ok := tenant(w, r)
	if !ok {
		return
	}

	var req payroll.UpdateTaxSettingsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.CompanyID = claims.CompanyID

	settings, err := h.payrollService.UpdateTaxSettings(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, payroll.TaxSettingsResponse{Method: string(settings.Method)})
}
