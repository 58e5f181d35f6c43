package contribution

import "context"

type TableRepository interface {
	ListRows(ctx context.Context, companyID string) ([]Row, error)
	// ReplaceVersion swaps every row of (table type, effective date) atomically.
	ReplaceVersion(ctx context.Context, companyID string, version TableVersion) error
}
