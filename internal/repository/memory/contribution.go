package memory

import (
	"context"
	"sync"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/contribution"
)

type ContributionRepository struct {
	mu    sync.RWMutex
	rows  map[string][]contribution.Row // by company
	loads int
}

func NewContributionRepository() *ContributionRepository {
	return &ContributionRepository{rows: make(map[string][]contribution.Row)}
}

func (r *ContributionRepository) ListRows(_ context.Context, companyID string) ([]contribution.Row, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loads++
	return append([]contribution.Row(nil), r.rows[companyID]...), nil
}

func (r *ContributionRepository) ReplaceVersion(_ context.Context, companyID string, v contribution.TableVersion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := dateKey(v.EffectiveDate)
	kept := r.rows[companyID][:0:0]
	for _, row := range r.rows[companyID] {
		if row.TableType == v.TableType && dateKey(row.EffectiveDate) == key {
			continue
		}
		kept = append(kept, row)
	}
	for _, row := range v.Rows {
		if row.ID == "" {
			row.ID = newID()
		}
		row.CompanyID = companyID
		kept = append(kept, row)
	}
	r.rows[companyID] = kept
	return nil
}

// Loads counts ListRows calls.
func (r *ContributionRepository) Loads() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loads
}
