package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/schedule"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type workScheduleRepositoryImpl struct {
	db *database.DB
}

func NewWorkScheduleRepository(db *database.DB) schedule.WorkScheduleRepository {
	return &workScheduleRepositoryImpl{db: db}
}

const workScheduleColumns = `
	id, company_id, name, version, type, timezone, grace_period_minutes,
	time_config, overtime, night_differential, shifts, created_at
`

func scanWorkSchedule(row pgx.Row) (schedule.WorkSchedule, error) {
	var (
		ws                               schedule.WorkSchedule
		timeConfig, overtime, nd, shifts []byte
	)
	err := row.Scan(
		&ws.ID, &ws.CompanyID, &ws.Name, &ws.Version, &ws.Type, &ws.Timezone, &ws.GracePeriodMinutes,
		&timeConfig, &overtime, &nd, &shifts, &ws.CreatedAt,
	)
	if err != nil {
		return schedule.WorkSchedule{}, err
	}
	for _, part := range []struct {
		raw []byte
		dst any
	}{
		{timeConfig, &ws.Time},
		{overtime, &ws.Overtime},
		{nd, &ws.NightDifferential},
		{shifts, &ws.Shifts},
	} {
		if err := json.Unmarshal(part.raw, part.dst); err != nil {
			return schedule.WorkSchedule{}, fmt.Errorf("failed to decode work schedule %s: %w", ws.ID, err)
		}
	}
	return ws, nil
}

// SaveVersion implements schedule.WorkScheduleRepository.
func (r *workScheduleRepositoryImpl) SaveVersion(ctx context.Context, ws schedule.WorkSchedule) (schedule.WorkSchedule, error) {
	if ws.ID == "" {
		ws.ID = uuid.Must(uuid.NewV7()).String()
	}
	timeConfig, err := json.Marshal(ws.Time)
	if err != nil {
		return schedule.WorkSchedule{}, fmt.Errorf("failed to encode time configuration: %w", err)
	}
	overtime, err := json.Marshal(ws.Overtime)
	if err != nil {
		return schedule.WorkSchedule{}, fmt.Errorf("failed to encode overtime rules: %w", err)
	}
	nd, err := json.Marshal(ws.NightDifferential)
	if err != nil {
		return schedule.WorkSchedule{}, fmt.Errorf("failed to encode night differential: %w", err)
	}
	shifts := ws.Shifts
	if shifts == nil {
		shifts = []schedule.Shift{}
	}
	shiftsJSON, err := json.Marshal(shifts)
	if err != nil {
		return schedule.WorkSchedule{}, fmt.Errorf("failed to encode shifts: %w", err)
	}

	var saved schedule.WorkSchedule
	err = WithTransaction(ctx, r.db, func(ctx context.Context) error {
		q := GetQuerier(ctx, r.db)

		// Serializes concurrent edits of the same schedule.
		if _, err := q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, ws.ID); err != nil {
			return fmt.Errorf("failed to lock work schedule: %w", err)
		}

		query := `
			INSERT INTO work_schedules (
				id, company_id, name, version, type, timezone, grace_period_minutes,
				time_config, overtime, night_differential, shifts
			)
			SELECT $1, $2, $3, COALESCE(MAX(version), 0) + 1, $4, $5, $6, $7, $8, $9, $10
			FROM work_schedules WHERE id = $1
			RETURNING ` + workScheduleColumns

		saved, err = scanWorkSchedule(q.QueryRow(ctx, query,
			ws.ID, ws.CompanyID, ws.Name, ws.Type, ws.Timezone, ws.GracePeriodMinutes,
			timeConfig, overtime, nd, shiftsJSON,
		))
		if err != nil {
			return fmt.Errorf("failed to save work schedule version: %w", err)
		}
		return nil
	})
	if err != nil {
		return schedule.WorkSchedule{}, err
	}
	return saved, nil
}

// GetByID implements schedule.WorkScheduleRepository. It returns the latest version.
func (r *workScheduleRepositoryImpl) GetByID(ctx context.Context, id string, companyID string) (schedule.WorkSchedule, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + workScheduleColumns + `
		FROM work_schedules
		WHERE id = $1 AND company_id = $2
		ORDER BY version DESC
		LIMIT 1
	`

	ws, err := scanWorkSchedule(q.QueryRow(ctx, query, id, companyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return schedule.WorkSchedule{}, schedule.ErrWorkScheduleNotFound
		}
		return schedule.WorkSchedule{}, fmt.Errorf("failed to get work schedule: %w", err)
	}
	return ws, nil
}

// GetVersion implements schedule.WorkScheduleRepository.
func (r *workScheduleRepositoryImpl) GetVersion(ctx context.Context, id string, version int, companyID string) (schedule.WorkSchedule, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + workScheduleColumns + ` FROM work_schedules WHERE id = $1 AND version = $2 AND company_id = $3`

	ws, err := scanWorkSchedule(q.QueryRow(ctx, query, id, version, companyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return schedule.WorkSchedule{}, schedule.ErrWorkScheduleNotFound
		}
		return schedule.WorkSchedule{}, fmt.Errorf("failed to get work schedule version: %w", err)
	}
	return ws, nil
}

// ListVersionsByCompany implements schedule.WorkScheduleRepository.
func (r *workScheduleRepositoryImpl) ListVersionsByCompany(ctx context.Context, companyID string) ([]schedule.WorkSchedule, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + workScheduleColumns + ` FROM work_schedules WHERE company_id = $1 ORDER BY id, version`

	rows, err := q.Query(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list work schedules: %w", err)
	}
	defer rows.Close()

	var schedules []schedule.WorkSchedule
	for rows.Next() {
		ws, err := scanWorkSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan work schedule: %w", err)
		}
		schedules = append(schedules, ws)
	}
	return schedules, rows.Err()
}
