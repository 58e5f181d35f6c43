package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/shopspring/decimal"
)

type PeriodRepository struct {
	mu      sync.RWMutex
	periods map[string]payroll.Period
}

func NewPeriodRepository() *PeriodRepository {
	return &PeriodRepository{periods: make(map[string]payroll.Period)}
}

func (r *PeriodRepository) Create(_ context.Context, p payroll.Period) (payroll.Period, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == "" {
		p.ID = newID()
	}
	r.periods[p.ID] = p
	return p, nil
}

func (r *PeriodRepository) GetByID(_ context.Context, id string, companyID string) (payroll.Period, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.periods[id]
	if !ok || p.CompanyID != companyID {
		return payroll.Period{}, payroll.ErrPeriodNotFound
	}
	return p, nil
}

func (r *PeriodRepository) List(_ context.Context, companyID string, f payroll.PeriodFilter) ([]payroll.Period, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []payroll.Period
	for _, p := range r.periods {
		if p.CompanyID == companyID && (f.Status == nil || p.Status == *f.Status) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].StartDate.After(out[j].StartDate)
		}
		return out[i].ID < out[j].ID
	})
	return page(out, f.Page, f.Limit), int64(len(out)), nil
}

func (r *PeriodRepository) UpdateStatus(_ context.Context, id string, companyID string, from, to payroll.PeriodStatus, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.periods[id]
	if !ok || p.CompanyID != companyID {
		return payroll.ErrPeriodNotFound
	}
	if p.Status != from {
		return payroll.ErrInvalidPeriodTransition
	}
	p.Status = to
	p.UpdatedAt = at
	r.periods[id] = p
	return nil
}

func (r *PeriodRepository) payDate(id string) (time.Time, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.periods[id]
	return p.PayDate, ok
}

type EntryRepository struct {
	mu      sync.RWMutex
	entries map[string]payroll.Entry
	periods *PeriodRepository
}

// NewEntryRepository reads pay dates from periods for year-to-date totals.
func NewEntryRepository(periods *PeriodRepository) *EntryRepository {
	return &EntryRepository{entries: make(map[string]payroll.Entry), periods: periods}
}

func (r *EntryRepository) GetByID(_ context.Context, id string, companyID string) (payroll.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok || e.CompanyID != companyID {
		return payroll.Entry{}, payroll.ErrEntryNotFound
	}
	return e, nil
}

func (r *EntryRepository) GetByPeriodEmployee(ctx context.Context, periodID, employeeID, companyID string) (payroll.Entry, error) {
	return r.GetByID(ctx, payroll.EntryID(periodID, employeeID), companyID)
}

func (r *EntryRepository) ListByPeriod(_ context.Context, periodID, companyID string, f payroll.EntryFilter) ([]payroll.Entry, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []payroll.Entry
	for _, e := range r.entries {
		switch {
		case e.CompanyID != companyID || e.PeriodID != periodID:
		case f.Status != nil && e.Status != *f.Status:
		case f.EmployeeID != nil && e.EmployeeID != *f.EmployeeID:
		default:
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeID < out[j].EmployeeID })
	return page(out, f.Page, f.Limit), int64(len(out)), nil
}

func (r *EntryRepository) Save(_ context.Context, e payroll.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.entries[e.ID]; ok && !current.Status.Replaceable(true) {
		return payroll.ErrCannotRecomputeApprovedEntry
	}
	r.entries[e.ID] = e
	return nil
}

func (r *EntryRepository) UpdateStatus(_ context.Context, e payroll.Entry, from payroll.EntryStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.entries[e.ID]
	if !ok || current.CompanyID != e.CompanyID {
		return payroll.ErrEntryNotFound
	}
	if current.Status != from {
		return payroll.ErrInvalidEntryTransition
	}
	r.entries[e.ID] = e
	return nil
}

func (r *EntryRepository) YearToDate(_ context.Context, companyID, employeeID string, year int, payDate time.Time) (payroll.YearToDate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ytd := payroll.YearToDate{Taxable: decimal.Zero, Withheld: decimal.Zero}
	for _, e := range r.entries {
		if e.CompanyID != companyID || e.EmployeeID != employeeID {
			continue
		}
		if e.Status != payroll.EntryStatusApproved && e.Status != payroll.EntryStatusPaid {
			continue
		}
		pd, ok := r.periods.payDate(e.PeriodID)
		if !ok || pd.Year() != year || !pd.Before(payDate) {
			continue
		}
		ytd.Taxable = ytd.Taxable.Add(e.TaxableIncome)
		ytd.Withheld = ytd.Withheld.Add(e.WithholdingTax)
		ytd.Periods++
	}
	return ytd, nil
}

type TaxSettingsRepository struct {
	mu       sync.RWMutex
	settings map[string]payroll.TaxSettings
}

func NewTaxSettingsRepository() *TaxSettingsRepository {
	return &TaxSettingsRepository{settings: make(map[string]payroll.TaxSettings)}
}

func (r *TaxSettingsRepository) Get(_ context.Context, companyID string) (payroll.TaxSettings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.settings[companyID]
	if !ok {
		return payroll.TaxSettings{}, payroll.ErrTaxSettingsNotFound
	}
	return s, nil
}

func (r *TaxSettingsRepository) Upsert(_ context.Context, s payroll.TaxSettings) (payroll.TaxSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings[s.CompanyID] = s
	return s, nil
}
