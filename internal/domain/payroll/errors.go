package payroll

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrPeriodNotFound                 = errors.New("payroll period not found")
	ErrEntryNotFound                  = errors.New("payroll entry not found")
	ErrInvalidPeriodTransition        = errors.New("payroll period status transition not allowed")
	ErrInvalidEntryTransition         = errors.New("payroll entry status transition not allowed")
	ErrInvalidPeriodDates             = errors.New("payroll period dates are invalid")
	ErrSupplementalRequiresPaidPeriod = errors.New("supplemental period must correct a paid period")
	ErrUnresolvedDtrBlocking          = errors.New("daily time records still need review")
	ErrMissingDtr                     = errors.New("daily time record missing for a payable date")
	ErrCannotRecomputeApprovedEntry   = errors.New("payroll entry is approved or paid; void it before recomputing")
	ErrComputationInProgress          = errors.New("payroll computation already in progress for this period")
	ErrEntryImmutable                 = errors.New("payroll entry is paid and cannot change")
	ErrVoidReasonRequired             = errors.New("void reason is required")
	ErrTaxSettingsNotFound            = errors.New("tax settings not found")
)

// EmployeeError isolates one employee's failure within a batch run. Dates
// lists the days to fix when the cause is attendance data.
type EmployeeError struct {
	EmployeeID string
	PeriodID   string
	Dates      []time.Time
	Err        error
}

func (e *EmployeeError) Error() string {
	msg := fmt.Sprintf("employee %s in period %s: %v", e.EmployeeID, e.PeriodID, e.Err)
	if len(e.Dates) > 0 {
		days := make([]string, len(e.Dates))
		for i, d := range e.Dates {
			days[i] = d.Format(time.DateOnly)
		}
		msg += " (" + strings.Join(days, ", ") + ")"
	}
	return msg
}

func (e *EmployeeError) Unwrap() error {
	return e.Err
}
