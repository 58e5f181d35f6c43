package schedule

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrWorkScheduleNotFound          = errors.New("work schedule not found")
	ErrNoScheduleForEmployee         = errors.New("no work schedule applies to employee on date")
	ErrShiftNotResolved              = errors.New("no shift could be resolved for date")
	ErrInvalidScheduleType           = errors.New("invalid work schedule type")
	ErrInvalidClockTime              = errors.New("invalid clock time, use HH:MM")
	ErrOverlappingScheduleAssignment = errors.New("overlapping schedule assignment detected")
)

// OverlapError names the two assignments that claim the same date.
type OverlapError struct {
	EmployeeID string
	ExistingID string
	From       time.Time
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("employee %s: assignment starting %s overlaps assignment %s",
		e.EmployeeID, e.From.Format(time.DateOnly), e.ExistingID)
}

func (e *OverlapError) Unwrap() error {
	return ErrOverlappingScheduleAssignment
}
