package postgresql

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/contribution"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/database"
)

type contributionRepositoryImpl struct {
	db *database.DB
}

func NewContributionRepository(db *database.DB) contribution.TableRepository {
	return &contributionRepositoryImpl{db: db}
}

// ListRows implements contribution.TableRepository.
func (r *contributionRepositoryImpl) ListRows(ctx context.Context, companyID string) ([]contribution.Row, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, company_id, table_type, effective_date, min_compensation, max_compensation,
			   employee_fixed, employee_rate, employee_excess_over,
			   employer_fixed, employer_rate, employer_excess_over
		FROM contribution_rows
		WHERE company_id = $1
		ORDER BY table_type, effective_date, min_compensation
	`

	rows, err := q.Query(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list contribution rows: %w", err)
	}
	defer rows.Close()

	var result []contribution.Row
	for rows.Next() {
		var row contribution.Row
		if err := rows.Scan(
			&row.ID, &row.CompanyID, &row.TableType, &row.EffectiveDate, &row.MinCompensation, &row.MaxCompensation,
			&row.EmployeeShare.Fixed, &row.EmployeeShare.Rate, &row.EmployeeShare.ExcessOver,
			&row.EmployerShare.Fixed, &row.EmployerShare.Rate, &row.EmployerShare.ExcessOver,
		); err != nil {
			return nil, fmt.Errorf("failed to scan contribution row: %w", err)
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// ReplaceVersion implements contribution.TableRepository.
func (r *contributionRepositoryImpl) ReplaceVersion(ctx context.Context, companyID string, version contribution.TableVersion) error {
	return WithTransaction(ctx, r.db, func(ctx context.Context) error {
		q := GetQuerier(ctx, r.db)

		_, err := q.Exec(ctx, `
			DELETE FROM contribution_rows
			WHERE company_id = $1 AND table_type = $2 AND effective_date = $3::date
		`, companyID, version.TableType, version.EffectiveDate)
		if err != nil {
			return fmt.Errorf("failed to clear contribution table version: %w", err)
		}

		query := `
			INSERT INTO contribution_rows (
				company_id, table_type, effective_date, min_compensation, max_compensation,
				employee_fixed, employee_rate, employee_excess_over,
				employer_fixed, employer_rate, employer_excess_over
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`
		for _, row := range version.Rows {
			_, err := q.Exec(ctx, query,
				companyID, version.TableType, version.EffectiveDate, row.MinCompensation, row.MaxCompensation,
				row.EmployeeShare.Fixed, row.EmployeeShare.Rate, row.EmployeeShare.ExcessOver,
				row.EmployerShare.Fixed, row.EmployerShare.Rate, row.EmployerShare.ExcessOver,
			)
			if err != nil {
				if isUniqueViolation(err, "uk_contribution_rows_bracket") {
					return fmt.Errorf("%w: duplicate bracket starting at %s", contribution.ErrInvalidTable, row.MinCompensation.StringFixed(2))
				}
				return fmt.Errorf("failed to insert contribution row: %w", err)
			}
		}
		return nil
	})
}
