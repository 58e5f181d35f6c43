package payroll

import (
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/contribution"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/employee"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CycleType string

const (
	CycleSemiMonthly  CycleType = "semi_monthly"
	CycleMonthly      CycleType = "monthly"
	CycleSupplemental CycleType = "supplemental"
)

var CycleTypeValues = []string{string(CycleSemiMonthly), string(CycleMonthly), string(CycleSupplemental)}

func (c CycleType) Valid() bool {
	switch c {
	case CycleSemiMonthly, CycleMonthly, CycleSupplemental:
		return true
	}
	return false
}

// PeriodsPerYear is the annualization factor for contributions and tax.
func (c CycleType) PeriodsPerYear() int {
	switch c {
	case CycleSemiMonthly:
		return 24
	case CycleMonthly:
		return 12
	}
	return 1
}

type PeriodStatus string

const (
	PeriodStatusDraft     PeriodStatus = "draft"
	PeriodStatusOpen      PeriodStatus = "open"
	PeriodStatusComputing PeriodStatus = "computing"
	PeriodStatusComputed  PeriodStatus = "computed"
	PeriodStatusApproved  PeriodStatus = "approved"
	PeriodStatusPaid      PeriodStatus = "paid"
	PeriodStatusClosed    PeriodStatus = "closed"
)

func (s PeriodStatus) Valid() bool {
	switch s {
	case PeriodStatusDraft, PeriodStatusOpen, PeriodStatusComputing, PeriodStatusComputed,
		PeriodStatusApproved, PeriodStatusPaid, PeriodStatusClosed:
		return true
	}
	return false
}

// CanTransition lists the allowed edges. Computed → Computing is the recompute
// edge; Computing → Open rolls back a first run that could not finish.
func (s PeriodStatus) CanTransition(to PeriodStatus) bool {
	switch s {
	case PeriodStatusDraft:
		return to == PeriodStatusOpen
	case PeriodStatusOpen:
		return to == PeriodStatusComputing
	case PeriodStatusComputing:
		return to == PeriodStatusComputed || to == PeriodStatusOpen
	case PeriodStatusComputed:
		return to == PeriodStatusComputing || to == PeriodStatusApproved
	case PeriodStatusApproved:
		return to == PeriodStatusPaid
	case PeriodStatusPaid:
		return to == PeriodStatusClosed
	case PeriodStatusClosed:
		return false
	}
	return false
}

type Period struct {
	ID               string
	CompanyID        string
	CycleType        CycleType
	StartDate        time.Time
	EndDate          time.Time
	PayDate          time.Time
	CorrectsPeriodID *string
	Status           PeriodStatus
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Days lists every calendar date of the period.
func (p Period) Days() []time.Time {
	var days []time.Time
	for d := p.StartDate; !d.After(p.EndDate); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// Index is the 1-based position of the period within its tax year. The
// position follows the period's end date, so a lagging pay date does not
// shift it. A period that ends in the year before its pay date opens the
// new tax year.
func (p Period) Index() int {
	if p.EndDate.Year() < p.PayDate.Year() {
		return 1
	}
	month := int(p.EndDate.Month())
	switch p.CycleType {
	case CycleSemiMonthly:
		if p.EndDate.Day() > 15 {
			return month * 2
		}
		return month*2 - 1
	case CycleMonthly:
		return month
	}
	return 1
}

// Supplemental periods carry adjustments only.
func (p Period) Supplemental() bool {
	return p.CycleType == CycleSupplemental
}

type EntryStatus string

const (
	EntryStatusDraft    EntryStatus = "draft"
	EntryStatusReviewed EntryStatus = "reviewed"
	EntryStatusApproved EntryStatus = "approved"
	EntryStatusPaid     EntryStatus = "paid"
	EntryStatusVoided   EntryStatus = "voided"
)

func (s EntryStatus) Valid() bool {
	switch s {
	case EntryStatusDraft, EntryStatusReviewed, EntryStatusApproved, EntryStatusPaid, EntryStatusVoided:
		return true
	}
	return false
}

// Replaceable reports whether a recompute may overwrite the entry.
func (s EntryStatus) Replaceable(force bool) bool {
	switch s {
	case EntryStatusDraft, EntryStatusReviewed:
		return true
	case EntryStatusVoided:
		return force
	case EntryStatusApproved, EntryStatusPaid:
		return false
	}
	return false
}

// Line is one named amount: an allowance or an ad-hoc deduction.
type Line struct {
	Code     string          `json:"code"`
	Name     string          `json:"name"`
	Amount   decimal.Decimal `json:"amount"`
	Taxable  bool            `json:"taxable"`
	SourceID string          `json:"source_id,omitempty"`
}

type ContributionLine struct {
	TableType     contribution.TableType `json:"table_type"`
	Basis         decimal.Decimal        `json:"basis"`
	EmployeeShare decimal.Decimal        `json:"employee_share"`
	EmployerShare decimal.Decimal        `json:"employer_share"`
}

type LoanLine struct {
	LoanID string          `json:"loan_id"`
	Kind   string          `json:"kind"`
	Amount decimal.Decimal `json:"amount"`
}

// Attendance totals the DTR minutes and days an entry was computed from.
type Attendance struct {
	DaysWorked                int `json:"days_worked"`
	DaysAbsent                int `json:"days_absent"`
	DaysPaidLeave             int `json:"days_paid_leave"`
	RegularMinutes            int `json:"regular_minutes"`
	LateMinutes               int `json:"late_minutes"`
	UndertimeMinutes          int `json:"undertime_minutes"`
	OvertimeMinutes           int `json:"overtime_minutes"`
	NightDifferentialMinutes  int `json:"night_differential_minutes"`
	HolidayMinutes            int `json:"holiday_minutes"`
	RestDayMinutes            int `json:"rest_day_minutes"`
	UnapprovedOvertimeMinutes int `json:"unapproved_overtime_minutes"`
}

// Entry is one employee's pay for one period. Every amount is rounded to
// centavos on its own line; totals are sums of rounded lines.
type Entry struct {
	ID         string
	PeriodID   string
	EmployeeID string
	CompanyID  string
	PayBasis   employee.PayBasis
	DailyRate  decimal.Decimal
	HourlyRate decimal.Decimal

	BasicPay             decimal.Decimal
	OvertimePay          decimal.Decimal
	NightDifferentialPay decimal.Decimal
	HolidayPay           decimal.Decimal
	RestDayPay           decimal.Decimal
	AbsenceDeduction     decimal.Decimal
	TardinessDeduction   decimal.Decimal
	Allowances           []Line

	Contributions   []ContributionLine
	WithholdingTax  decimal.Decimal
	LoanDeductions  []LoanLine
	OtherDeductions []Line

	GrossPay        decimal.Decimal
	TaxableIncome   decimal.Decimal
	TotalDeductions decimal.Decimal
	NetPay          decimal.Decimal

	Attendance Attendance
	Status     EntryStatus
	Checksum   string
	VoidReason *string
	ComputedAt time.Time
	ReviewedBy *string
	ApprovedBy *string
	ApprovedAt *time.Time
	UpdatedAt  time.Time
}

var entryNamespace = uuid.MustParse("c7f3d1a4-2b6e-4f08-8d35-91e0b4a7c612")

// EntryID is stable for a (period, employee) pair so recomputes replace in place.
func EntryID(periodID, employeeID string) string {
	return uuid.NewSHA1(entryNamespace, []byte(periodID+"|"+employeeID)).String()
}

// EmployeeContributions sums the employee shares.
func (e Entry) EmployeeContributions() decimal.Decimal {
	total := decimal.Zero
	for _, c := range e.Contributions {
		total = total.Add(c.EmployeeShare)
	}
	return total
}

// Editable is false once an entry is approved; paid entries never change.
func (e Entry) Editable() bool {
	return e.Status == EntryStatusDraft || e.Status == EntryStatusReviewed
}

// YearToDate aggregates approved and paid entries of earlier periods in the
// same tax year.
type YearToDate struct {
	Taxable  decimal.Decimal
	Withheld decimal.Decimal
	Periods  int
}

// TaxSettings is the tenant's withholding configuration.
type TaxSettings struct {
	CompanyID string
	Method    contribution.TaxMethod
	UpdatedAt time.Time
}
