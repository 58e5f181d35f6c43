package employee

import (
	"context"
	"time"
)

type EmployeeRepository interface {
	GetByID(ctx context.Context, id string, companyID string) (Employee, error)
	// ListActiveBetween returns employees whose employment overlaps [from, to], ordered by ID.
	ListActiveBetween(ctx context.Context, companyID string, from, to time.Time) ([]Employee, error)
	ListByIDs(ctx context.Context, companyID string, ids []string) ([]Employee, error)
	ListCompanyIDs(ctx context.Context) ([]string, error)
}
