package payroll

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/contribution"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// ========== PERIOD DTOs ==========

type CreatePeriodRequest struct {
	CompanyID        string  `json:"-"`
	CycleType        string  `json:"cycle_type"`
	StartDate        string  `json:"start_date"`
	EndDate          string  `json:"end_date"`
	PayDate          string  `json:"pay_date"`
	CorrectsPeriodID *string `json:"corrects_period_id,omitempty"`
}

func (r *CreatePeriodRequest) Validate() error {
	var errs validator.ValidationErrors

	if !CycleType(r.CycleType).Valid() {
		errs.Add("cycle_type", fmt.Sprintf("cycle_type must be one of: %v", CycleTypeValues))
	}
	start, okStart := validator.IsValidDate(r.StartDate)
	if !okStart {
		errs.Add("start_date", "start_date must be YYYY-MM-DD")
	}
	end, okEnd := validator.IsValidDate(r.EndDate)
	if !okEnd {
		errs.Add("end_date", "end_date must be YYYY-MM-DD")
	}
	pay, okPay := validator.IsValidDate(r.PayDate)
	if !okPay {
		errs.Add("pay_date", "pay_date must be YYYY-MM-DD")
	}
	if okStart && okEnd && end.Before(start) {
		errs.Add("end_date", "end_date must not precede start_date")
	}
	if okEnd && okPay && pay.Before(end) && CycleType(r.CycleType) != CycleSupplemental {
		errs.Add("pay_date", "pay_date must not precede end_date")
	}
	if CycleType(r.CycleType) == CycleSupplemental {
		if r.CorrectsPeriodID == nil || !validator.IsValidUUID(*r.CorrectsPeriodID) {
			errs.Add("corrects_period_id", "supplemental periods must reference the period they correct")
		}
	} else if r.CorrectsPeriodID != nil {
		errs.Add("corrects_period_id", "only supplemental periods may correct another period")
	}

	return errs.Err()
}

func (r *CreatePeriodRequest) ToEntity() Period {
	start, _ := validator.IsValidDate(r.StartDate)
	end, _ := validator.IsValidDate(r.EndDate)
	pay, _ := validator.IsValidDate(r.PayDate)
	return Period{
		CompanyID:        r.CompanyID,
		CycleType:        CycleType(r.CycleType),
		StartDate:        start,
		EndDate:          end,
		PayDate:          pay,
		CorrectsPeriodID: r.CorrectsPeriodID,
		Status:           PeriodStatusDraft,
	}
}

type PeriodActionRequest struct {
	CompanyID string `json:"-"`
	PeriodID  string `json:"-"`
	Actor     string `json:"-"`
}

type PeriodFilter struct {
	Status *PeriodStatus
	Page   int
	Limit  int
}

type PeriodResponse struct {
	ID               string  `json:"id"`
	CycleType        string  `json:"cycle_type"`
	StartDate        string  `json:"start_date"`
	EndDate          string  `json:"end_date"`
	PayDate          string  `json:"pay_date"`
	CorrectsPeriodID *string `json:"corrects_period_id,omitempty"`
	Status           string  `json:"status"`
}

func NewPeriodResponse(p Period) PeriodResponse {
	return PeriodResponse{
		ID:               p.ID,
		CycleType:        string(p.CycleType),
		StartDate:        p.StartDate.Format(time.DateOnly),
		EndDate:          p.EndDate.Format(time.DateOnly),
		PayDate:          p.PayDate.Format(time.DateOnly),
		CorrectsPeriodID: p.CorrectsPeriodID,
		Status:           string(p.Status),
	}
}

// ========== COMPUTATION DTOs ==========

// ComputeRequest drives Compute and Recompute. Force only matters for
// recompute: it lets a voided entry be replaced.
type ComputeRequest struct {
	CompanyID   string   `json:"-"`
	PeriodID    string   `json:"-"`
	Actor       string   `json:"-"`
	Force       bool     `json:"force"`
	EmployeeIDs []string `json:"employee_ids,omitempty"`
}

func (r *ComputeRequest) Validate() error {
	var errs validator.ValidationErrors

	if !validator.IsValidUUID(r.PeriodID) {
		errs.Add("period_id", "period_id must be a UUID")
	}
	for _, id := range r.EmployeeIDs {
		if validator.IsEmpty(id) {
			errs.Add("employee_ids", "employee_ids must not contain blanks")
			break
		}
	}

	return errs.Err()
}

// RunResult lists the entries written and the employees that failed, both
// ordered by employee ID.
type RunResult struct {
	PeriodID string
	Entries  []Entry
	Failures []*EmployeeError
}

type FailureResponse struct {
	EmployeeID string   `json:"employee_id"`
	Error      string   `json:"error"`
	Dates      []string `json:"dates,omitempty"`
}

type RunResponse struct {
	PeriodID string            `json:"period_id"`
	Computed int               `json:"computed"`
	Entries  []EntryResponse   `json:"entries"`
	Failures []FailureResponse `json:"failures,omitempty"`
}

func NewRunResponse(r RunResult) RunResponse {
	resp := RunResponse{PeriodID: r.PeriodID, Computed: len(r.Entries), Entries: make([]EntryResponse, 0, len(r.Entries))}
	for _, e := range r.Entries {
		resp.Entries = append(resp.Entries, NewEntryResponse(e))
	}
	for _, f := range r.Failures {
		fr := FailureResponse{EmployeeID: f.EmployeeID, Error: f.Err.Error()}
		for _, d := range f.Dates {
			fr.Dates = append(fr.Dates, d.Format(time.DateOnly))
		}
		resp.Failures = append(resp.Failures, fr)
	}
	return resp
}

// ========== ENTRY DTOs ==========

type EntryActionRequest struct {
	CompanyID string `json:"-"`
	EntryID   string `json:"-"`
	Actor     string `json:"-"`
	Reason    string `json:"reason,omitempty"`
}

type EntryFilter struct {
	Status     *EntryStatus
	EmployeeID *string
	Page       int
	Limit      int
}

type EntryResponse struct {
	ID                   string             `json:"id"`
	PeriodID             string             `json:"period_id"`
	EmployeeID           string             `json:"employee_id"`
	PayBasis             string             `json:"pay_basis"`
	DailyRate            decimal.Decimal    `json:"daily_rate"`
	HourlyRate           decimal.Decimal    `json:"hourly_rate"`
	BasicPay             decimal.Decimal    `json:"basic_pay"`
	OvertimePay          decimal.Decimal    `json:"overtime_pay"`
	NightDifferentialPay decimal.Decimal    `json:"night_differential_pay"`
	HolidayPay           decimal.Decimal    `json:"holiday_pay"`
	RestDayPay           decimal.Decimal    `json:"rest_day_pay"`
	AbsenceDeduction     decimal.Decimal    `json:"absence_deduction"`
	TardinessDeduction   decimal.Decimal    `json:"tardiness_deduction"`
	Allowances           []Line             `json:"allowances"`
	Contributions        []ContributionLine `json:"contributions"`
	WithholdingTax       decimal.Decimal    `json:"withholding_tax"`
	LoanDeductions       []LoanLine         `json:"loan_deductions"`
	OtherDeductions      []Line             `json:"other_deductions"`
	GrossPay             decimal.Decimal    `json:"gross_pay"`
	TaxableIncome        decimal.Decimal    `json:"taxable_income"`
	TotalDeductions      decimal.Decimal    `json:"total_deductions"`
	NetPay               decimal.Decimal    `json:"net_pay"`
	Attendance           Attendance         `json:"attendance"`
	Status               string             `json:"status"`
	Checksum             string             `json:"checksum"`
	VoidReason           *string            `json:"void_reason,omitempty"`
	ComputedAt           string             `json:"computed_at"`
}

func NewEntryResponse(e Entry) EntryResponse {
	return EntryResponse{
		ID:                   e.ID,
		PeriodID:             e.PeriodID,
		EmployeeID:           e.EmployeeID,
		PayBasis:             string(e.PayBasis),
		DailyRate:            e.DailyRate.Round(4),
		HourlyRate:           e.HourlyRate.Round(4),
		BasicPay:             e.BasicPay,
		OvertimePay:          e.OvertimePay,
		NightDifferentialPay: e.NightDifferentialPay,
		HolidayPay:           e.HolidayPay,
		RestDayPay:           e.RestDayPay,
		AbsenceDeduction:     e.AbsenceDeduction,
		TardinessDeduction:   e.TardinessDeduction,
		Allowances:           nonNilLines(e.Allowances),
		Contributions:        e.Contributions,
		WithholdingTax:       e.WithholdingTax,
		LoanDeductions:       e.LoanDeductions,
		OtherDeductions:      nonNilLines(e.OtherDeductions),
		GrossPay:             e.GrossPay,
		TaxableIncome:        e.TaxableIncome,
		TotalDeductions:      e.TotalDeductions,
		NetPay:               e.NetPay,
		Attendance:           e.Attendance,
		Status:               string(e.Status),
		Checksum:             e.Checksum,
		VoidReason:           e.VoidReason,
		ComputedAt:           e.ComputedAt.Format(time.RFC3339),
	}
}

func nonNilLines(l []Line) []Line {
	if l == nil {
		return []Line{}
	}
	return l
}

type ListEntryResponse struct {
	Data       []EntryResponse `json:"data"`
	TotalCount int64           `json:"total_count"`
	Page       int             `json:"page"`
	Limit      int             `json:"limit"`
}

type SummaryResponse struct {
	PeriodID            string          `json:"period_id"`
	Status              string          `json:"status"`
	TotalEmployees      int             `json:"total_employees"`
	TotalGrossPay       decimal.Decimal `json:"total_gross_pay"`
	TotalDeductions     decimal.Decimal `json:"total_deductions"`
	TotalNetPay         decimal.Decimal `json:"total_net_pay"`
	TotalWithholdingTax decimal.Decimal `json:"total_withholding_tax"`
	TotalEmployeeShare  decimal.Decimal `json:"total_employee_share"`
	TotalEmployerShare  decimal.Decimal `json:"total_employer_share"`
	TotalLoanDeductions decimal.Decimal `json:"total_loan_deductions"`
	CountByStatus       map[string]int  `json:"count_by_status"`
}

// ========== SETTINGS DTOs ==========

type UpdateTaxSettingsRequest struct {
	CompanyID string `json:"-"`
	Method    string `json:"method"`
}

func (r *UpdateTaxSettingsRequest) Validate() error {
	var errs validator.ValidationErrors

	if !contribution.TaxMethod(r.Method).Valid() {
		errs.Add("method", contribution.ErrInvalidTaxMethod.Error())
	}

	return errs.Err()
}

type TaxSettingsResponse struct {
	Method string `json:"method"`
}
