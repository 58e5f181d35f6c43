package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/contribution"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/loan"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/schedule"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/jwt"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	// Token errors
	case errors.Is(err, jwt.ErrInvalidToken):
		Unauthorized(w, err.Error())
	case errors.Is(err, jwt.ErrCompanyIDRequired),
		errors.Is(err, jwt.ErrManagerAccessRequired):
		Forbidden(w, err.Error())

	// Not found
	case errors.Is(err, attendance.ErrRecordNotFound),
		errors.Is(err, payroll.ErrPeriodNotFound),
		errors.Is(err, payroll.ErrEntryNotFound),
		errors.Is(err, payroll.ErrTaxSettingsNotFound),
		errors.Is(err, loan.ErrLoanNotFound),
		errors.Is(err, loan.ErrAdjustmentNotFound),
		errors.Is(err, schedule.ErrWorkScheduleNotFound),
		errors.Is(err, employee.ErrEmployeeNotFound):
		NotFound(w, err.Error())

	// Another run holds the period
	case errors.Is(err, payroll.ErrComputationInProgress):
		Locked(w, err.Error())

	// Tenant configuration must be fixed before retrying
	case errors.Is(err, contribution.ErrNoApplicableTableVersion),
		errors.Is(err, contribution.ErrNoMatchingBracket),
		errors.Is(err, schedule.ErrNoScheduleForEmployee),
		errors.Is(err, schedule.ErrShiftNotResolved),
		errors.Is(err, employee.ErrMissingCompensation):
		slog.Error("configuration error", "error", err)
		ConfigurationError(w, err.Error())

	// Input the validator cannot see
	case errors.Is(err, contribution.ErrInvalidTable),
		errors.Is(err, contribution.ErrInvalidTaxMethod),
		errors.Is(err, attendance.ErrRemarksRequired),
		errors.Is(err, attendance.ErrManualTimeOutRequired),
		errors.Is(err, attendance.ErrManualTimeOutBeforeFirstIn),
		errors.Is(err, attendance.ErrInvalidReviewAction),
		errors.Is(err, attendance.ErrInvalidPunch),
		errors.Is(err, payroll.ErrInvalidPeriodDates),
		errors.Is(err, payroll.ErrVoidReasonRequired),
		errors.Is(err, loan.ErrInvalidAmount),
		errors.Is(err, schedule.ErrInvalidScheduleType),
		errors.Is(err, schedule.ErrInvalidClockTime),
		errors.Is(err, employee.ErrInvalidPayBasis):
		UnprocessableEntity(w, err.Error())

	// State conflicts
	case errors.Is(err, attendance.ErrRecordNotFlagged),
		errors.Is(err, attendance.ErrRecordFinalized),
		errors.Is(err, attendance.ErrNoOvertimeToAct),
		errors.Is(err, attendance.ErrConcurrentModification),
		errors.Is(err, payroll.ErrInvalidPeriodTransition),
		errors.Is(err, payroll.ErrInvalidEntryTransition),
		errors.Is(err, payroll.ErrSupplementalRequiresPaidPeriod),
		errors.Is(err, payroll.ErrUnresolvedDtrBlocking),
		errors.Is(err, payroll.ErrMissingDtr),
		errors.Is(err, payroll.ErrCannotRecomputeApprovedEntry),
		errors.Is(err, payroll.ErrEntryImmutable),
		errors.Is(err, loan.ErrInvalidLoanTransition),
		errors.Is(err, loan.ErrInvalidAdjustmentChange),
		errors.Is(err, loan.ErrLoanNotActive),
		errors.Is(err, loan.ErrPaymentExceedsBalance),
		errors.Is(err, loan.ErrDeductionExceedsBalance),
		errors.Is(err, loan.ErrDeductionMismatch),
		errors.Is(err, loan.ErrDuplicateTransaction),
		errors.Is(err, loan.ErrConcurrentModification),
		errors.Is(err, schedule.ErrOverlappingScheduleAssignment),
		errors.Is(err, employee.ErrEmployeeInactive):
		Conflict(w, err.Error())

	// Default
	default:
		slog.Error("unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}
