package employee

import (
	"time"

	"github.com/shopspring/decimal"
)

// Employee is the roster and compensation view the engine consumes. The
// owning HR system keeps the full profile.
type Employee struct {
	ID               string
	CompanyID        string
	WorkScheduleID   string
	EmployeeCode     string
	FullName         string
	HireDate         time.Time
	ResignationDate  *time.Time
	EmploymentStatus EmploymentStatus
	PayBasis         PayBasis
	BaseSalary       *decimal.Decimal // monthly rate for PayBasisMonthly
	DailyRate        *decimal.Decimal // for PayBasisDaily
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type EmploymentStatus string

const (
	EmploymentStatusActive     EmploymentStatus = "active"
	EmploymentStatusResigned   EmploymentStatus = "resigned"
	EmploymentStatusTerminated EmploymentStatus = "terminated"
)

type PayBasis string

const (
	PayBasisMonthly PayBasis = "monthly"
	PayBasisDaily   PayBasis = "daily"
)

func (p PayBasis) Valid() bool {
	switch p {
	case PayBasisMonthly, PayBasisDaily:
		return true
	}
	return false
}

// ActiveDuring reports whether the employment overlaps [from, to].
func (e Employee) ActiveDuring(from, to time.Time) bool {
	if e.HireDate.After(to) {
		return false
	}
	if e.ResignationDate != nil && e.ResignationDate.Before(from) {
		return false
	}
	return true
}

// Rates derives the daily rate. Monthly-paid employees are converted with the
// company's paid days per year (261 for a five-day week).
func (e Employee) Rates(workDaysPerYear int) (Rates, error) {
	switch e.PayBasis {
	case PayBasisMonthly:
		if e.BaseSalary == nil || !e.BaseSalary.IsPositive() {
			return Rates{}, ErrMissingCompensation
		}
		daily := e.BaseSalary.Mul(decimal.NewFromInt(12)).Div(decimal.NewFromInt(int64(workDaysPerYear)))
		return newRates(*e.BaseSalary, daily), nil
	case PayBasisDaily:
		if e.DailyRate == nil || !e.DailyRate.IsPositive() {
			return Rates{}, ErrMissingCompensation
		}
		monthly := e.DailyRate.Mul(decimal.NewFromInt(int64(workDaysPerYear))).Div(decimal.NewFromInt(12))
		return newRates(monthly, *e.DailyRate), nil
	}
	return Rates{}, ErrInvalidPayBasis
}

// Rates keeps full precision; rounding happens per payroll line.
type Rates struct {
	Monthly decimal.Decimal
	Daily   decimal.Decimal
	Hourly  decimal.Decimal
	Minute  decimal.Decimal
}

func newRates(monthly, daily decimal.Decimal) Rates {
	hourly := daily.Div(decimal.NewFromInt(8))
	return Rates{
		Monthly: monthly,
		Daily:   daily,
		Hourly:  hourly,
		Minute:  hourly.Div(decimal.NewFromInt(60)),
	}
}
