package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/calendar"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/leave"
)

type HolidayRepository struct {
	mu       sync.RWMutex
	holidays []calendar.Holiday
}

func NewHolidayRepository(holidays ...calendar.Holiday) *HolidayRepository {
	return &HolidayRepository{holidays: holidays}
}

func (r *HolidayRepository) Put(h calendar.Holiday) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.holidays = append(r.holidays, h)
}

func (r *HolidayRepository) ListBetween(_ context.Context, companyID string, from, to time.Time) ([]calendar.Holiday, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []calendar.Holiday
	for _, h := range r.holidays {
		if h.CompanyID == companyID && inRange(h.Date, from, to) {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

type LeaveRepository struct {
	mu   sync.RWMutex
	days map[string][]leave.LeaveDay // by company
}

func NewLeaveRepository() *LeaveRepository {
	return &LeaveRepository{days: make(map[string][]leave.LeaveDay)}
}

func (r *LeaveRepository) Put(companyID string, days ...leave.LeaveDay) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.days[companyID] = append(r.days[companyID], days...)
}

func (r *LeaveRepository) ListApprovedDays(_ context.Context, companyID string, employeeIDs []string, from, to time.Time) ([]leave.LeaveDay, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []leave.LeaveDay
	for _, d := range r.days[companyID] {
		if (len(employeeIDs) == 0 || contains(employeeIDs, d.EmployeeID)) && inRange(d.Date, from, to) {
			out = append(out, d)
		}
	}
	return out, nil
}
