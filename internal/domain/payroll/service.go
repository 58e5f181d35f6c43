package payroll

import "context"

type PayrollService interface {
	// Periods
	CreatePeriod(ctx context.Context, req CreatePeriodRequest) (Period, error)
	GetPeriod(ctx context.Context, companyID, id string) (Period, error)
	ListPeriods(ctx context.Context, companyID string, filter PeriodFilter) ([]Period, int64, error)
	OpenPeriod(ctx context.Context, req PeriodActionRequest) (Period, error)
	ApprovePeriod(ctx context.Context, req PeriodActionRequest) (Period, error)
	MarkPaid(ctx context.Context, req PeriodActionRequest) (Period, error)
	ClosePeriod(ctx context.Context, req PeriodActionRequest) (Period, error)
	Summary(ctx context.Context, companyID, periodID string) (SummaryResponse, error)

	// Computation
	Compute(ctx context.Context, req ComputeRequest) (RunResult, error)
	Recompute(ctx context.Context, req ComputeRequest) (RunResult, error)

	// Entries
	GetEntry(ctx context.Context, companyID, id string) (Entry, error)
	ListEntries(ctx context.Context, companyID, periodID string, filter EntryFilter) ([]Entry, int64, error)
	ReviewEntry(ctx context.Context, req EntryActionRequest) (Entry, error)
	ApproveEntry(ctx context.Context, req EntryActionRequest) (Entry, error)
	VoidEntry(ctx context.Context, req EntryActionRequest) (Entry, error)

	// Settings
	GetTaxSettings(ctx context.Context, companyID string) (TaxSettings, error)
	UpdateTaxSettings(ctx context.Context, req UpdateTaxSettingsRequest) (TaxSettings, error)
}
