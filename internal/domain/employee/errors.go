package employee

import "errors"

var (
	ErrEmployeeNotFound    = errors.New("employee not found")
	ErrEmployeeInactive    = errors.New("employee is not employed on the requested date")
	ErrMissingCompensation = errors.New("employee has no compensation configured")
	ErrInvalidPayBasis     = errors.New("employee pay basis must be 'monthly' or 'daily'")
)
