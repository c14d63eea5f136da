package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"dompet/internal/cache"
	"dompet/internal/log"
	"dompet/internal/payroll"
)

// PayrollService fronts the statutory engine. Salary breakdowns are cached
// and concurrent identical requests share one computation.
type PayrollService struct {
	engine     payroll.Engine
	breakdowns *cache.LRUCache[payroll.SalaryBreakdown]
	group      singleflight.Group
	logger     *log.Logger
}

func NewPayrollService(engine payroll.Engine, cacheSize int, cacheTTL time.Duration, logger *log.Logger) *PayrollService {
	if logger == nil {
		logger = log.Default()
	}
	return &PayrollService{
		engine:     engine,
		breakdowns: cache.NewLRUCache[payroll.SalaryBreakdown](cacheSize, cacheTTL),
		logger:     logger.WithComponent(log.ComponentPayroll),
	}
}

// Cache exposes the breakdown cache for registration with a cache.Manager.
func (s *PayrollService) Cache() *cache.LRUCache[payroll.SalaryBreakdown] {
	return s.breakdowns
}

func (s *PayrollService) EPF(gross decimal.Decimal, age int) payroll.EPFResult {
	return s.engine.CalculateEPF(gross, age)
}

func (s *PayrollService) SOCSO(gross decimal.Decimal, age int) payroll.SOCSOResult {
	return s.engine.CalculateSOCSO(gross, age)
}

func (s *PayrollService) EIS(gross decimal.Decimal) payroll.EISResult {
	return s.engine.CalculateEIS(gross)
}

func (s *PayrollService) PCB(gross, epf decimal.Decimal, status payroll.MaritalStatus, children int) payroll.PCBResult {
	return s.engine.CalculatePCB(gross, epf, status, children)
}

// Zakat uses the engine's configured gold price when goldPrice is not positive.
func (s *PayrollService) Zakat(annualIncome, goldPrice decimal.Decimal) payroll.ZakatResult {
	return s.engine.CalculateZakat(annualIncome, goldPrice)
}

// Breakdown returns the full salary breakdown and whether it was served
// from cache.
func (s *PayrollService) Breakdown(ctx context.Context, gross decimal.Decimal, profile payroll.EmployeeProfile) (payroll.SalaryBreakdown, bool) {
	if profile.MaritalStatus == "" {
		profile.MaritalStatus = payroll.Single
	}
	key := breakdownKey(gross, profile)

	if b, ok := s.breakdowns.Get(key); ok {
		s.logger.DebugContext(ctx, "Salary breakdown served from cache", log.FieldCacheHit, true)
		return b, true
	}

	v, _, shared := s.group.Do(key, func() (any, error) {
		b := s.engine.CalculateSalaryBreakdown(gross, profile)
		s.breakdowns.Set(key, b)
		return b, nil
	})
	b := v.(payroll.SalaryBreakdown)

	fields := log.NewFields().
		WithSalary(b.GrossSalary.StringFixed(2), b.NetSalary.StringFixed(2), b.PCB.MonthlyPCB.StringFixed(2)).
		WithOperation(log.OpCalculate).
		ToSlice()
	s.logger.InfoContext(ctx, "Salary breakdown calculated", append(fields, log.FieldCacheHit, false, "shared", shared)...)
	return b, false
}

func (s *PayrollService) CacheStats() cache.Stats {
	return s.breakdowns.Stats()
}

func breakdownKey(gross decimal.Decimal, p payroll.EmployeeProfile) string {
	return fmt.Sprintf("%s|%d|%s|%d", gross.String(), p.Age, p.MaritalStatus, p.ChildrenCount)
}
