package schedule

import (
	"context"
	"time"
)

type WorkScheduleRepository interface {
	// SaveVersion stores ws as the next version of ws.ID (version 1 when new).
	SaveVersion(ctx context.Context, ws WorkSchedule) (WorkSchedule, error)
	GetByID(ctx context.Context, id string, companyID string) (WorkSchedule, error)
	GetVersion(ctx context.Context, id string, version int, companyID string) (WorkSchedule, error)
	ListVersionsByCompany(ctx context.Context, companyID string) ([]WorkSchedule, error)
}

type EmployeeScheduleAssignmentRepository interface {
	Create(ctx context.Context, assignment EmployeeScheduleAssignment, companyID string) (EmployeeScheduleAssignment, error)
	ListByEmployee(ctx context.Context, employeeID string, companyID string) ([]EmployeeScheduleAssignment, error)
	ListByCompanyBetween(ctx context.Context, companyID string, from, to time.Time) ([]EmployeeScheduleAssignment, error)
}
