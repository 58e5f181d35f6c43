package attendance

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrRecordNotFound             = errors.New("daily time record not found")
	ErrRecordNotFlagged           = errors.New("daily time record is not flagged for review")
	ErrRecordFinalized            = errors.New("daily time record already reviewed, reclassification skipped")
	ErrNoOvertimeToAct            = errors.New("daily time record has no overtime to approve or deny")
	ErrRemarksRequired            = errors.New("remarks are required")
	ErrManualTimeOutRequired      = errors.New("manual time-out is required for this action")
	ErrManualTimeOutBeforeFirstIn = errors.New("manual time-out must be after the first time-in")
	ErrInvalidReviewAction        = errors.New("invalid review action")
	ErrConcurrentModification     = errors.New("daily time record was modified concurrently")
	ErrEventOutOfOrder            = errors.New("event sequence does not follow record version")
	ErrInvalidEvent               = errors.New("invalid daily time record event")
	ErrInvalidPunch               = errors.New("invalid punch")
)

// RecordError carries the employee and date of a failed record operation so
// the caller can route the fix.
type RecordError struct {
	RecordID   string
	EmployeeID string
	Date       time.Time
	Err        error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("employee %s on %s (record %s): %v", e.EmployeeID, e.Date.Format(time.DateOnly), e.RecordID, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// WrapRecordError attaches record context to err.
func WrapRecordError(r DailyTimeRecord, err error) error {
	if err == nil {
		return nil
	}
	return &RecordError{RecordID: r.ID, EmployeeID: r.EmployeeID, Date: r.Date, Err: err}
}
