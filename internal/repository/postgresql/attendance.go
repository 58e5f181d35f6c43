package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/calendar"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type punchRepositoryImpl struct {
	db *database.DB
}

func NewPunchRepository(db *database.DB) attendance.PunchRepository {
	return &punchRepositoryImpl{db: db}
}

// CreateBatch implements attendance.PunchRepository.
func (r *punchRepositoryImpl) CreateBatch(ctx context.Context, punches []attendance.Punch) (int, error) {
	if len(punches) == 0 {
		return 0, nil
	}

	var created int
	err := WithTransaction(ctx, r.db, func(ctx context.Context) error {
		q := GetQuerier(ctx, r.db)
		query := `
			INSERT INTO punches (company_id, employee_id, punched_at, kind, source)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT ON CONSTRAINT uk_punches_employee_time_kind DO NOTHING
		`
		for _, p := range punches {
			tag, err := q.Exec(ctx, query, p.CompanyID, p.EmployeeID, p.Time, p.Kind, p.Source)
			if err != nil {
				return fmt.Errorf("failed to insert punch: %w", err)
			}
			created += int(tag.RowsAffected())
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

// ListByEmployeeBetween implements attendance.PunchRepository.
func (r *punchRepositoryImpl) ListByEmployeeBetween(ctx context.Context, companyID, employeeID string, from, to time.Time) ([]attendance.Punch, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, employee_id, company_id, punched_at, kind, source
		FROM punches
		WHERE company_id = $1 AND employee_id = $2
		  AND punched_at >= $3 AND punched_at < $4
		ORDER BY punched_at, id
	`

	rows, err := q.Query(ctx, query, companyID, employeeID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list punches: %w", err)
	}
	defer rows.Close()

	var punches []attendance.Punch
	for rows.Next() {
		var p attendance.Punch
		if err := rows.Scan(&p.ID, &p.EmployeeID, &p.CompanyID, &p.Time, &p.Kind, &p.Source); err != nil {
			return nil, fmt.Errorf("failed to scan punch: %w", err)
		}
		punches = append(punches, p)
	}
	return punches, rows.Err()
}

type dtrRepositoryImpl struct {
	db *database.DB
}

func NewDtrRepository(db *database.DB) attendance.DtrRepository {
	return &dtrRepositoryImpl{db: db}
}

const dtrColumns = `
	id, employee_id, company_id, date, COALESCE(schedule_id::text, ''), schedule_version,
	first_in, last_out, punches,
	total_work_minutes, late_minutes, undertime_minutes, overtime_minutes,
	overtime_approved, overtime_denied,
	night_differential_minutes, night_differential_overtime_minutes,
	status, holiday_type, leave_paid, needs_review, review_reason, remarks,
	version, updated_at
`

func scanDtr(row pgx.Row) (attendance.DailyTimeRecord, error) {
	var (
		rec         attendance.DailyTimeRecord
		punches     []byte
		holidayType *string
	)
	err := row.Scan(
		&rec.ID, &rec.EmployeeID, &rec.CompanyID, &rec.Date, &rec.ScheduleID, &rec.ScheduleVersion,
		&rec.FirstIn, &rec.LastOut, &punches,
		&rec.TotalWorkMinutes, &rec.LateMinutes, &rec.UndertimeMinutes, &rec.OvertimeMinutes,
		&rec.OvertimeApproved, &rec.OvertimeDenied,
		&rec.NightDifferentialMinutes, &rec.NightDifferentialOvertimeMinutes,
		&rec.Status, &holidayType, &rec.LeavePaid, &rec.NeedsReview, &rec.ReviewReason, &rec.Remarks,
		&rec.Version, &rec.UpdatedAt,
	)
	if err != nil {
		return attendance.DailyTimeRecord{}, err
	}
	if len(punches) > 0 {
		if err := json.Unmarshal(punches, &rec.Punches); err != nil {
			return attendance.DailyTimeRecord{}, fmt.Errorf("failed to decode punches: %w", err)
		}
	}
	if holidayType != nil {
		ht := calendar.HolidayType(*holidayType)
		rec.HolidayType = &ht
	}
	return rec, nil
}

// GetByID implements attendance.DtrRepository.
func (r *dtrRepositoryImpl) GetByID(ctx context.Context, id string, companyID string) (attendance.DailyTimeRecord, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + dtrColumns + ` FROM daily_time_records WHERE id = $1 AND company_id = $2`

	rec, err := scanDtr(q.QueryRow(ctx, query, id, companyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.DailyTimeRecord{}, attendance.ErrRecordNotFound
		}
		return attendance.DailyTimeRecord{}, fmt.Errorf("failed to get daily time record: %w", err)
	}
	return rec, nil
}

// GetByEmployeeDate implements attendance.DtrRepository.
func (r *dtrRepositoryImpl) GetByEmployeeDate(ctx context.Context, companyID, employeeID string, date time.Time) (attendance.DailyTimeRecord, error) {
	return r.GetByID(ctx, attendance.RecordID(employeeID, date), companyID)
}

// ListByEmployeeBetween implements attendance.DtrRepository.
func (r *dtrRepositoryImpl) ListByEmployeeBetween(ctx context.Context, companyID, employeeID string, from, to time.Time) ([]attendance.DailyTimeRecord, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + dtrColumns + `
		FROM daily_time_records
		WHERE company_id = $1 AND employee_id = $2 AND date BETWEEN $3::date AND $4::date
		ORDER BY date
	`

	rows, err := q.Query(ctx, query, companyID, employeeID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list daily time records: %w", err)
	}
	defer rows.Close()

	var records []attendance.DailyTimeRecord
	for rows.Next() {
		rec, err := scanDtr(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan daily time record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// List implements attendance.DtrRepository.
func (r *dtrRepositoryImpl) List(ctx context.Context, companyID string, filter attendance.DtrFilter) ([]attendance.DailyTimeRecord, int64, error) {
	q := GetQuerier(ctx, r.db)

	whereClauses := []string{"company_id = $1"}
	args := []any{companyID}
	argIdx := 2

	if filter.EmployeeID != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("employee_id = $%d", argIdx))
		args = append(args, *filter.EmployeeID)
		argIdx++
	}
	if filter.From != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("date >= $%d::date", argIdx))
		args = append(args, *filter.From)
		argIdx++
	}
	if filter.To != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("date <= $%d::date", argIdx))
		args = append(args, *filter.To)
		argIdx++
	}
	if filter.NeedsReview != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("needs_review = $%d", argIdx))
		args = append(args, *filter.NeedsReview)
		argIdx++
	}
	if filter.Status != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *filter.Status)
	}
	where := strings.Join(whereClauses, " AND ")

	var total int64
	if err := q.QueryRow(ctx, "SELECT COUNT(*) FROM daily_time_records WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count daily time records: %w", err)
	}

	query, args := paginate(`SELECT `+dtrColumns+` FROM daily_time_records WHERE `+where+` ORDER BY date, employee_id`, args, filter.Page, filter.Limit)
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list daily time records: %w", err)
	}
	defer rows.Close()

	var records []attendance.DailyTimeRecord
	for rows.Next() {
		rec, err := scanDtr(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan daily time record: %w", err)
		}
		records = append(records, rec)
	}
	return records, total, rows.Err()
}

// ListEvents implements attendance.DtrRepository.
func (r *dtrRepositoryImpl) ListEvents(ctx context.Context, recordID string, companyID string) ([]attendance.DtrEvent, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, record_id, company_id, sequence, type, actor, remarks,
			   snapshot, minutes, manual_time_out, occurred_at
		FROM dtr_events
		WHERE record_id = $1 AND company_id = $2
		ORDER BY sequence
	`

	rows, err := q.Query(ctx, query, recordID, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list daily time record events: %w", err)
	}
	defer rows.Close()

	var events []attendance.DtrEvent
	for rows.Next() {
		var (
			e                                attendance.DtrEvent
			snapshot, minutes, manualTimeOut []byte
		)
		if err := rows.Scan(
			&e.ID, &e.RecordID, &e.CompanyID, &e.Sequence, &e.Type, &e.Actor, &e.Remarks,
			&snapshot, &minutes, &manualTimeOut, &e.OccurredAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan daily time record event: %w", err)
		}
		if err := decodeOptional(snapshot, &e.Snapshot); err != nil {
			return nil, err
		}
		if err := decodeOptional(minutes, &e.Minutes); err != nil {
			return nil, err
		}
		if err := decodeOptional(manualTimeOut, &e.ManualTimeOut); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Append implements attendance.DtrRepository. The projection row carries the
// version; the first event inserts it and later events update it only when
// the stored version is event.Sequence-1.
func (r *dtrRepositoryImpl) Append(ctx context.Context, event attendance.DtrEvent, record attendance.DailyTimeRecord) error {
	punches, err := json.Marshal(record.Punches)
	if err != nil {
		return fmt.Errorf("failed to encode punches: %w", err)
	}
	snapshot, err := encodeOptional(event.Snapshot)
	if err != nil {
		return err
	}
	minutes, err := encodeOptional(event.Minutes)
	if err != nil {
		return err
	}
	manualTimeOut, err := encodeOptional(event.ManualTimeOut)
	if err != nil {
		return err
	}
	if event.ID == "" {
		event.ID = uuid.Must(uuid.NewV7()).String()
	}
	var holidayType *string
	if record.HolidayType != nil {
		s := string(*record.HolidayType)
		holidayType = &s
	}
	var scheduleID *string
	if record.ScheduleID != "" {
		scheduleID = &record.ScheduleID
	}
	remarks := record.Remarks
	if remarks == nil {
		remarks = []string{}
	}

	return WithTransaction(ctx, r.db, func(ctx context.Context) error {
		q := GetQuerier(ctx, r.db)

		args := []any{
			record.ID, record.EmployeeID, record.CompanyID, record.Date, scheduleID, record.ScheduleVersion,
			record.FirstIn, record.LastOut, punches,
			record.TotalWorkMinutes, record.LateMinutes, record.UndertimeMinutes, record.OvertimeMinutes,
			record.OvertimeApproved, record.OvertimeDenied,
			record.NightDifferentialMinutes, record.NightDifferentialOvertimeMinutes,
			record.Status, holidayType, record.LeavePaid, record.NeedsReview, record.ReviewReason, remarks,
			event.Sequence, record.UpdatedAt,
		}

		var (
			tag pgconn.CommandTag
			err error
		)
		if event.Sequence == 1 {
			tag, err = q.Exec(ctx, `
				INSERT INTO daily_time_records (
					id, employee_id, company_id, date, schedule_id, schedule_version,
					first_in, last_out, punches,
					total_work_minutes, late_minutes, undertime_minutes, overtime_minutes,
					overtime_approved, overtime_denied,
					night_differential_minutes, night_differential_overtime_minutes,
					status, holiday_type, leave_paid, needs_review, review_reason, remarks,
					version, updated_at
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)
				ON CONFLICT (id) DO NOTHING
			`, args...)
		} else {
			tag, err = q.Exec(ctx, `
				UPDATE daily_time_records SET
					schedule_id = $5, schedule_version = $6,
					first_in = $7, last_out = $8, punches = $9,
					total_work_minutes = $10, late_minutes = $11, undertime_minutes = $12, overtime_minutes = $13,
					overtime_approved = $14, overtime_denied = $15,
					night_differential_minutes = $16, night_differential_overtime_minutes = $17,
					status = $18, holiday_type = $19, leave_paid = $20, needs_review = $21, review_reason = $22, remarks = $23,
					version = $24, updated_at = $25
				WHERE id = $1 AND employee_id = $2 AND company_id = $3 AND date = $4 AND version = $24 - 1
			`, args...)
		}
		if err != nil {
			return fmt.Errorf("failed to store daily time record: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return attendance.ErrConcurrentModification
		}

		_, err = q.Exec(ctx, `
			INSERT INTO dtr_events (id, record_id, company_id, sequence, type, actor, remarks, snapshot, minutes, manual_time_out, occurred_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`, event.ID, event.RecordID, event.CompanyID, event.Sequence, event.Type, event.Actor, event.Remarks,
			snapshot, minutes, manualTimeOut, event.OccurredAt)
		if err != nil {
			if isUniqueViolation(err, "uk_dtr_events_sequence") {
				return attendance.ErrConcurrentModification
			}
			return fmt.Errorf("failed to append daily time record event: %w", err)
		}
		return nil
	})
}

func encodeOptional[T any](v *T) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %T: %w", v, err)
	}
	return b, nil
}

func decodeOptional[T any](b []byte, dst **T) error {
	if len(b) == 0 {
		return nil
	}
	v := new(T)
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("failed to decode %T: %w", v, err)
	}
	*dst = v
	return nil
}
