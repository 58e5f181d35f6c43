package contribution

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/contribution"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/validator"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

type cached struct {
	resolver   contribution.Resolver
	generation uint64
}

type tableServiceImpl struct {
	tableRepo contribution.TableRepository

	sf          singleflight.Group
	mu          sync.RWMutex
	cache       map[string]cached
	generations map[string]uint64
}

func NewTableService(tableRepo contribution.TableRepository) contribution.TableService {
	return &tableServiceImpl{
		tableRepo:   tableRepo,
		cache:       make(map[string]cached),
		generations: make(map[string]uint64),
	}
}

// UpsertVersion replaces every row of one (table type, effective date). The
// version is validated as a whole before anything is written.
func (s *tableServiceImpl) UpsertVersion(ctx context.Context, req contribution.UpsertVersionRequest) (contribution.TableVersion, error) {
	if err := req.Validate(); err != nil {
		return contribution.TableVersion{}, err
	}
	v := req.ToEntity()
	if err := v.Validate(); err != nil {
		return contribution.TableVersion{}, err
	}

	if err := s.tableRepo.ReplaceVersion(ctx, req.CompanyID, v); err != nil {
		return contribution.TableVersion{}, fmt.Errorf("failed to save %s table: %w", v.TableType, err)
	}
	s.Invalidate(req.CompanyID)

	slog.Info("contribution table version saved",
		"company_id", req.CompanyID,
		"table_type", v.TableType,
		"effective_date", v.EffectiveDate.Format(time.DateOnly),
		"rows", len(v.Rows),
	)
	return v, nil
}

func (s *tableServiceImpl) Resolve(ctx context.Context, req contribution.ResolveRequest) (contribution.Amounts, error) {
	if err := req.Validate(); err != nil {
		return contribution.Amounts{}, err
	}
	rs, err := s.Resolver(ctx, req.CompanyID)
	if err != nil {
		return contribution.Amounts{}, err
	}
	compensation, _ := decimal.NewFromString(req.Compensation)
	asOf, _ := validator.IsValidDate(req.AsOf)
	return rs.Resolve(contribution.TableType(req.TableType), compensation, asOf)
}

// Resolver loads a company's rows once; concurrent callers share the load.
func (s *tableServiceImpl) Resolver(ctx context.Context, companyID string) (contribution.Resolver, error) {
	s.mu.RLock()
	c, ok := s.cache[companyID]
	gen := s.generations[companyID]
	s.mu.RUnlock()
	if ok && c.generation == gen {
		return c.resolver, nil
	}

	key := fmt.Sprintf("%s:%d", companyID, gen)
	v, err, _ := s.sf.Do(key, func() (interface{}, error) {
		rows, err := s.tableRepo.ListRows(ctx, companyID)
		if err != nil {
			return nil, fmt.Errorf("failed to load contribution tables: %w", err)
		}
		rs := contribution.NewResolver(rows)

		s.mu.Lock()
		if s.generations[companyID] == gen {
			s.cache[companyID] = cached{resolver: rs, generation: gen}
		}
		s.mu.Unlock()
		return rs, nil
	})
	if err != nil {
		return contribution.Resolver{}, err
	}
	return v.(contribution.Resolver), nil
}

// Invalidate drops the cached resolver. A load already in flight finishes
// but is not cached.
func (s *tableServiceImpl) Invalidate(companyID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generations[companyID]++
	delete(s.cache, companyID)
}

func (s *tableServiceImpl) WithholdingTax(ctx context.Context, companyID string, in contribution.TaxInput) (decimal.Decimal, error) {
	rs, err := s.Resolver(ctx, companyID)
	if err != nil {
		return decimal.Zero, err
	}
	return rs.WithholdingTax(in)
}

func (s *tableServiceImpl) Version(ctx context.Context, companyID string, tableType contribution.TableType, asOf time.Time) (contribution.TableVersion, error) {
	rs, err := s.Resolver(ctx, companyID)
	if err != nil {
		return contribution.TableVersion{}, err
	}
	v, ok := rs.Version(tableType, asOf)
	if !ok {
		return contribution.TableVersion{}, &contribution.BracketError{TableType: tableType, AsOf: asOf, Err: contribution.ErrNoApplicableTableVersion}
	}
	return v, nil
}
