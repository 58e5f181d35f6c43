package contribution

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

type ShareInput struct {
	Fixed      decimal.Decimal `json:"fixed"`
	Rate       decimal.Decimal `json:"rate"`
	ExcessOver decimal.Decimal `json:"excess_over"`
}

type RowInput struct {
	MinCompensation decimal.Decimal  `json:"min_compensation"`
	MaxCompensation *decimal.Decimal `json:"max_compensation,omitempty"`
	EmployeeShare   ShareInput       `json:"employee_share"`
	EmployerShare   ShareInput       `json:"employer_share"`
}

type UpsertVersionRequest struct {
	CompanyID     string     `json:"-"`
	TableType     string     `json:"table_type"`
	EffectiveDate string     `json:"effective_date"`
	Rows          []RowInput `json:"rows"`
}

func (r *UpsertVersionRequest) Validate() error {
	var errs validator.ValidationErrors

	if !TableType(r.TableType).Valid() {
		errs.Add("table_type", fmt.Sprintf("table_type must be one of: %v", TableTypeValues))
	}
	if _, ok := validator.IsValidDate(r.EffectiveDate); !ok {
		errs.Add("effective_date", "effective_date must be YYYY-MM-DD")
	}
	if len(r.Rows) == 0 {
		errs.Add("rows", "at least one row is required")
	}
	for i, row := range r.Rows {
		if row.MinCompensation.IsNegative() {
			errs.Add(fmt.Sprintf("rows[%d].min_compensation", i), "must not be negative")
		}
		if row.EmployeeShare.Rate.IsNegative() || row.EmployerShare.Rate.IsNegative() {
			errs.Add(fmt.Sprintf("rows[%d]", i), "share rates must not be negative")
		}
	}

	return errs.Err()
}

// ToEntity builds the version; row IDs are left for the repository.
func (r *UpsertVersionRequest) ToEntity() TableVersion {
	effective, _ := validator.IsValidDate(r.EffectiveDate)
	v := TableVersion{TableType: TableType(r.TableType), EffectiveDate: effective}
	for _, row := range r.Rows {
		v.Rows = append(v.Rows, Row{
			CompanyID:       r.CompanyID,
			TableType:       v.TableType,
			EffectiveDate:   effective,
			MinCompensation: row.MinCompensation,
			MaxCompensation: row.MaxCompensation,
			EmployeeShare:   Share(row.EmployeeShare),
			EmployerShare:   Share(row.EmployerShare),
		})
	}
	return v
}

type ResolveRequest struct {
	CompanyID    string `json:"-"`
	TableType    string `json:"table_type"`
	Compensation string `json:"compensation"`
	AsOf         string `json:"as_of"`
}

func (r *ResolveRequest) Validate() error {
	var errs validator.ValidationErrors

	if !TableType(r.TableType).Valid() {
		errs.Add("table_type", fmt.Sprintf("table_type must be one of: %v", TableTypeValues))
	}
	if _, err := decimal.NewFromString(r.Compensation); err != nil {
		errs.Add("compensation", "compensation must be a decimal number")
	}
	if _, ok := validator.IsValidDate(r.AsOf); !ok {
		errs.Add("as_of", "as_of must be YYYY-MM-DD")
	}

	return errs.Err()
}

type AmountsResponse struct {
	TableType     string          `json:"table_type"`
	EffectiveDate string          `json:"effective_date"`
	Compensation  decimal.Decimal `json:"compensation"`
	EmployeeShare decimal.Decimal `json:"employee_share"`
	EmployerShare decimal.Decimal `json:"employer_share"`
}

func NewAmountsResponse(a Amounts) AmountsResponse {
	return AmountsResponse{
		TableType:     string(a.TableType),
		EffectiveDate: a.EffectiveDate.Format(time.DateOnly),
		Compensation:  a.Compensation,
		EmployeeShare: a.EmployeeShare,
		EmployerShare: a.EmployerShare,
	}
}

type VersionResponse struct {
	TableType     string `json:"table_type"`
	EffectiveDate string `json:"effective_date"`
	Rows          int    `json:"rows"`
}

func NewVersionResponse(v TableVersion) VersionResponse {
	return VersionResponse{
		TableType:     string(v.TableType),
		EffectiveDate: v.EffectiveDate.Format(time.DateOnly),
		Rows:          len(v.Rows),
	}
}
