package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/calendar"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/leave"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/database"
)

type holidayRepositoryImpl struct {
	db *database.DB
}

func NewHolidayRepository(db *database.DB) calendar.HolidayRepository {
	return &holidayRepositoryImpl{db: db}
}

// ListBetween implements calendar.HolidayRepository.
func (r *holidayRepositoryImpl) ListBetween(ctx context.Context, companyID string, from, to time.Time) ([]calendar.Holiday, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, company_id, date, name, type
		FROM holidays
		WHERE company_id = $1 AND date BETWEEN $2::date AND $3::date
		ORDER BY date
	`

	rows, err := q.Query(ctx, query, companyID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list holidays: %w", err)
	}
	defer rows.Close()

	var holidays []calendar.Holiday
	for rows.Next() {
		var h calendar.Holiday
		if err := rows.Scan(&h.ID, &h.CompanyID, &h.Date, &h.Name, &h.Type); err != nil {
			return nil, fmt.Errorf("failed to scan holiday: %w", err)
		}
		holidays = append(holidays, h)
	}
	return holidays, rows.Err()
}

type leaveRepositoryImpl struct {
	db *database.DB
}

func NewLeaveRepository(db *database.DB) leave.LeaveRepository {
	return &leaveRepositoryImpl{db: db}
}

// ListApprovedDays implements leave.LeaveRepository.
func (r *leaveRepositoryImpl) ListApprovedDays(ctx context.Context, companyID string, employeeIDs []string, from, to time.Time) ([]leave.LeaveDay, error) {
	if len(employeeIDs) == 0 {
		return nil, nil
	}
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT employee_id, request_id, leave_type_name, date, paid, half_day
		FROM approved_leave_days
		WHERE company_id = $1
		  AND employee_id = ANY($2::uuid[])
		  AND date BETWEEN $3::date AND $4::date
		ORDER BY employee_id, date
	`

	rows, err := q.Query(ctx, query, companyID, employeeIDs, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list approved leave days: %w", err)
	}
	defer rows.Close()

	var days []leave.LeaveDay
	for rows.Next() {
		var d leave.LeaveDay
		if err := rows.Scan(&d.EmployeeID, &d.RequestID, &d.LeaveTypeName, &d.Date, &d.Paid, &d.HalfDay); err != nil {
			return nil, fmt.Errorf("failed to scan leave day: %w", err)
		}
		days = append(days, d)
	}
	return days, rows.Err()
}
