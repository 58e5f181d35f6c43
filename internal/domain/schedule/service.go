package schedule

import (
	"context"
	"time"
)

type ScheduleService interface {
	SaveSchedule(ctx context.Context, req SaveScheduleRequest) (WorkSchedule, error)
	GetSchedule(ctx context.Context, companyID, id string) (WorkSchedule, error)
	AssignSchedule(ctx context.Context, req AssignScheduleRequest) (EmployeeScheduleAssignment, error)
	ListAssignments(ctx context.Context, companyID, employeeID string) ([]EmployeeScheduleAssignment, error)

	// Preload snapshots every schedule and the assignments touching [from, to]
	// so batch runs resolve plans without further I/O.
	Preload(ctx context.Context, companyID string, from, to time.Time) (*PlanBook, error)
	ResolvePlan(ctx context.Context, companyID, employeeID string, date time.Time) (Plan, error)
	ExpectedWindow(ctx context.Context, companyID, employeeID string, date time.Time) (Window, error)
}
