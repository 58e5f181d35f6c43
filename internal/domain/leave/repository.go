package leave

import (
	"context"
	"time"
)

// LeaveRepository reads approved leave maintained by the leave workflow.
type LeaveRepository interface {
	ListApprovedDays(ctx context.Context, companyID string, employeeIDs []string, from, to time.Time) ([]LeaveDay, error)
}
