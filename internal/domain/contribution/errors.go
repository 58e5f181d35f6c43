package contribution

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNoApplicableTableVersion = errors.New("no contribution table version is effective on date")
	ErrNoMatchingBracket        = errors.New("no contribution bracket matches compensation")
	ErrInvalidTable             = errors.New("contribution table is malformed")
	ErrInvalidTaxMethod         = errors.New("withholding tax method must be 'bracket' or 'cumulative_average'")
)

// BracketError is a configuration error: the table needs fixing, nothing
// may be defaulted.
type BracketError struct {
	TableType    TableType
	Compensation decimal.Decimal
	AsOf         time.Time
	Err          error
}

func (e *BracketError) Error() string {
	return fmt.Sprintf("%s table as of %s, compensation %s: %v",
		e.TableType, e.AsOf.Format(time.DateOnly), e.Compensation.StringFixed(2), e.Err)
}

func (e *BracketError) Unwrap() error {
	return e.Err
}

// TableError points at the offending row of a malformed version.
type TableError struct {
	TableType     TableType
	EffectiveDate time.Time
	Row           int
	Reason        string
}

func (e *TableError) Error() string {
	return fmt.Sprintf("%s table effective %s, row %d: %s",
		e.TableType, e.EffectiveDate.Format(time.DateOnly), e.Row, e.Reason)
}

func (e *TableError) Unwrap() error {
	return ErrInvalidTable
}
