package leave

import "time"

// LeaveDay is one calendar date covered by an approved leave request.
type LeaveDay struct {
	EmployeeID    string
	RequestID     string
	LeaveTypeName string
	Date          time.Time
	Paid          bool
	HalfDay       bool
}
