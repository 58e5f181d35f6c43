package attendance

import (
	"context"
	"time"
)

type PunchRepository interface {
	// CreateBatch ignores punches already stored for the same employee, time and kind.
	CreateBatch(ctx context.Context, punches []Punch) (int, error)
	ListByEmployeeBetween(ctx context.Context, companyID, employeeID string, from, to time.Time) ([]Punch, error)
}

type DtrRepository interface {
	GetByID(ctx context.Context, id string, companyID string) (DailyTimeRecord, error)
	GetByEmployeeDate(ctx context.Context, companyID, employeeID string, date time.Time) (DailyTimeRecord, error)
	ListByEmployeeBetween(ctx context.Context, companyID, employeeID string, from, to time.Time) ([]DailyTimeRecord, error)
	List(ctx context.Context, companyID string, filter DtrFilter) ([]DailyTimeRecord, int64, error)
	ListEvents(ctx context.Context, recordID string, companyID string) ([]DtrEvent, error)
	// Append stores event and the projection it produced. It fails with
	// ErrConcurrentModification unless the stored version is event.Sequence-1.
	Append(ctx context.Context, event DtrEvent, record DailyTimeRecord) error
}
