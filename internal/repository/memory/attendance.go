package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/attendance"
)

type PunchRepository struct {
	mu      sync.RWMutex
	punches map[string][]attendance.Punch // by employee
}

func NewPunchRepository() *PunchRepository {
	return &PunchRepository{punches: make(map[string][]attendance.Punch)}
}

func (r *PunchRepository) CreateBatch(_ context.Context, punches []attendance.Punch) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	created := 0
	for _, p := range punches {
		if r.existsLocked(p) {
			continue
		}
		if p.ID == "" {
			p.ID = newID()
		}
		r.punches[p.EmployeeID] = append(r.punches[p.EmployeeID], p)
		created++
	}
	return created, nil
}

func (r *PunchRepository) existsLocked(p attendance.Punch) bool {
	for _, q := range r.punches[p.EmployeeID] {
		if q.CompanyID == p.CompanyID && q.Time.Equal(p.Time) && q.Kind == p.Kind {
			return true
		}
	}
	return false
}

// ListByEmployeeBetween returns punches in [from, to), oldest first.
func (r *PunchRepository) ListByEmployeeBetween(_ context.Context, companyID, employeeID string, from, to time.Time) ([]attendance.Punch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []attendance.Punch
	for _, p := range r.punches[employeeID] {
		if p.CompanyID == companyID && !p.Time.Before(from) && p.Time.Before(to) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out, nil
}

// DtrRepository keeps each record's event log next to its projection.
type DtrRepository struct {
	mu      sync.RWMutex
	records map[string]attendance.DailyTimeRecord
	events  map[string][]attendance.DtrEvent
}

func NewDtrRepository() *DtrRepository {
	return &DtrRepository{
		records: make(map[string]attendance.DailyTimeRecord),
		events:  make(map[string][]attendance.DtrEvent),
	}
}

func (r *DtrRepository) GetByID(_ context.Context, id string, companyID string) (attendance.DailyTimeRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	if !ok || rec.CompanyID != companyID {
		return attendance.DailyTimeRecord{}, attendance.ErrRecordNotFound
	}
	return rec, nil
}

func (r *DtrRepository) GetByEmployeeDate(ctx context.Context, companyID, employeeID string, date time.Time) (attendance.DailyTimeRecord, error) {
	return r.GetByID(ctx, attendance.RecordID(employeeID, date), companyID)
}

func (r *DtrRepository) ListByEmployeeBetween(_ context.Context, companyID, employeeID string, from, to time.Time) ([]attendance.DailyTimeRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []attendance.DailyTimeRecord
	for _, rec := range r.records {
		if rec.CompanyID == companyID && rec.EmployeeID == employeeID && inRange(rec.Date, from, to) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (r *DtrRepository) List(_ context.Context, companyID string, f attendance.DtrFilter) ([]attendance.DailyTimeRecord, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []attendance.DailyTimeRecord
	for _, rec := range r.records {
		switch {
		case rec.CompanyID != companyID:
		case f.EmployeeID != nil && rec.EmployeeID != *f.EmployeeID:
		case f.From != nil && dateKey(rec.Date) < dateKey(*f.From):
		case f.To != nil && dateKey(rec.Date) > dateKey(*f.To):
		case f.NeedsReview != nil && rec.NeedsReview != *f.NeedsReview:
		case f.Status != nil && rec.Status != *f.Status:
		default:
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].EmployeeID < out[j].EmployeeID
	})
	return page(out, f.Page, f.Limit), int64(len(out)), nil
}

func (r *DtrRepository) ListEvents(_ context.Context, recordID string, companyID string) ([]attendance.DtrEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []attendance.DtrEvent
	for _, e := range r.events[recordID] {
		if e.CompanyID == companyID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *DtrRepository) Append(_ context.Context, event attendance.DtrEvent, record attendance.DailyTimeRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current := r.records[event.RecordID]
	if current.Version != event.Sequence-1 {
		return attendance.ErrConcurrentModification
	}
	if event.ID == "" {
		event.ID = newID()
	}
	r.events[event.RecordID] = append(r.events[event.RecordID], event)
	r.records[event.RecordID] = record
	return nil
}
