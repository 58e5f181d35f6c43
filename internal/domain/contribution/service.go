package contribution

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type TableService interface {
	UpsertVersion(ctx context.Context, req UpsertVersionRequest) (TableVersion, error)
	Resolve(ctx context.Context, req ResolveRequest) (Amounts, error)
	// Resolver returns the cached resolver for a company, loading it once.
	Resolver(ctx context.Context, companyID string) (Resolver, error)
	Invalidate(companyID string)
	WithholdingTax(ctx context.Context, companyID string, in TaxInput) (decimal.Decimal, error)
	Version(ctx context.Context, companyID string, tableType TableType, asOf time.Time) (TableVersion, error)
}
