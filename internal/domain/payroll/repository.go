package payroll

import (
	"context"
	"time"
)

// PeriodRepository stores pay periods. All methods take companyID to keep
// tenants apart.
type PeriodRepository interface {
	Create(ctx context.Context, period Period) (Period, error)
	GetByID(ctx context.Context, id string, companyID string) (Period, error)
	List(ctx context.Context, companyID string, filter PeriodFilter) ([]Period, int64, error)
	// UpdateStatus moves the period from one status to another and fails with
	// ErrInvalidPeriodTransition when the stored status is not from.
	UpdateStatus(ctx context.Context, id string, companyID string, from, to PeriodStatus, at time.Time) error
}

type EntryRepository interface {
	GetByID(ctx context.Context, id string, companyID string) (Entry, error)
	GetByPeriodEmployee(ctx context.Context, periodID, employeeID, companyID string) (Entry, error)
	ListByPeriod(ctx context.Context, periodID, companyID string, filter EntryFilter) ([]Entry, int64, error)
	// Save inserts or replaces the entry with the same ID. An approved or paid
	// entry is never replaced: Save fails with ErrCannotRecomputeApprovedEntry.
	Save(ctx context.Context, entry Entry) error
	// UpdateStatus persists a status change, failing with
	// ErrInvalidEntryTransition when the stored status is not from.
	UpdateStatus(ctx context.Context, entry Entry, from EntryStatus) error
	// YearToDate sums approved and paid entries of the employee whose period
	// pay date falls in year and before payDate.
	YearToDate(ctx context.Context, companyID, employeeID string, year int, payDate time.Time) (YearToDate, error)
}

type TaxSettingsRepository interface {
	Get(ctx context.Context, companyID string) (TaxSettings, error)
	Upsert(ctx context.Context, settings TaxSettings) (TaxSettings, error)
}
