package service

import (
	"context"
	"errors"

	"aicfo-backend/analysis"
	"aicfo-backend/logger"
	"aicfo-backend/metrics"
	"aicfo-backend/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const unassignedBranchName = "Unassigned"

// CompanyAnalysisLister lists analyses in aggregation scope
type CompanyAnalysisLister interface {
	ListByCompany(ctx context.Context, companyID uuid.UUID, branchID *uuid.UUID, period *string) ([]*models.FinancialAnalysis, error)
}

// BranchLister lists a company's active branches
type BranchLister interface {
	ListActiveByCompany(ctx context.Context, companyID uuid.UUID) ([]*models.Branch, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Branch, error)
}

// DetailFetcher fetches the detailed analysis payload for one record
type DetailFetcher interface {
	GetAnalysisDetail(ctx context.Context, analysisID uuid.UUID) (*analysis.Detail, error)
}

// MetricsService aggregates per-branch financial metrics for a company and
// reduces them into consolidated company-wide figures.
type MetricsService struct {
	analysisRepo CompanyAnalysisLister
	branchRepo   BranchLister
	fetcher      DetailFetcher
	serviceName  string
}

// MetricsServiceOption is a functional option for MetricsService
type MetricsServiceOption func(*MetricsService)

// MetricsWithAnalysisLister sets the analysis lister
func MetricsWithAnalysisLister(l CompanyAnalysisLister) MetricsServiceOption {
	return func(s *MetricsService) {
		s.analysisRepo = l
	}
}

// MetricsWithBranchLister sets the branch lister
func MetricsWithBranchLister(l BranchLister) MetricsServiceOption {
	return func(s *MetricsService) {
		s.branchRepo = l
	}
}

// MetricsWithDetailFetcher sets the analysis detail fetcher
func MetricsWithDetailFetcher(f DetailFetcher) MetricsServiceOption {
	return func(s *MetricsService) {
		s.fetcher = f
	}
}

// MetricsWithServiceName sets the service name used on outbound-fetch counters
func MetricsWithServiceName(name string) MetricsServiceOption {
	return func(s *MetricsService) {
		s.serviceName = name
	}
}

// NewMetricsService creates a new metrics service
func NewMetricsService(opts ...MetricsServiceOption) *MetricsService {
	s := &MetricsService{serviceName: "aicfo-backend"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AggregateRequest scopes an aggregation run
type AggregateRequest struct {
	CompanyID uuid.UUID
	BranchID  *uuid.UUID
	Period    *string
}

// AggregateResult carries per-branch metrics and their consolidation
type AggregateResult struct {
	Branches     []models.BranchMetrics     `json:"branches"`
	Consolidated models.ConsolidatedMetrics `json:"consolidated"`
}

// branchAccumulator carries running sums while records are processed.
// Ratio-like fields hold the latest processed record's value; sums are
// averaged afterwards where averaging applies.
type branchAccumulator struct {
	branchID *uuid.UUID
	name     string

	revenue        float64
	expenses       float64
	netProfit      float64
	ebitda         float64
	cashFlow       float64
	workingCapital float64

	grossMargin  float64
	healthScore  float64
	currentRatio float64
	debtToEquity float64

	criticalAlerts int
	count          int
}

// AggregateByBranch lists the analyses in scope, fetches each record's
// detailed payload from the backend and accumulates metrics per branch.
// A failed fetch is logged and skipped; the record contributes zero to the
// sums and the aggregation carries on.
func (s *MetricsService) AggregateByBranch(ctx context.Context, req AggregateRequest) (*AggregateResult, error) {
	if s.analysisRepo == nil {
		return nil, errors.New("analysis lister not set")
	}
	if s.fetcher == nil {
		return nil, errors.New("detail fetcher not set")
	}

	records, err := s.analysisRepo.ListByCompany(ctx, req.CompanyID, req.BranchID, req.Period)
	if err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx)

	accs := make(map[string]*branchAccumulator)
	var order []string

	for _, record := range records {
		key := unassignedBranchName
		if record.BranchID != nil {
			key = record.BranchID.String()
		}

		acc, ok := accs[key]
		if !ok {
			acc = &branchAccumulator{branchID: record.BranchID, name: s.branchName(ctx, record.BranchID)}
			accs[key] = acc
			order = append(order, key)
		}

		detail, err := s.fetcher.GetAnalysisDetail(ctx, record.ID)
		if err != nil {
			metrics.BackendFetchCounter.WithLabelValues(s.serviceName, "error").Inc()
			log.Warn("skipping analysis record: detail fetch failed",
				zap.String("analysis_id", record.ID.String()),
				zap.Error(err),
			)
			continue
		}
		metrics.BackendFetchCounter.WithLabelValues(s.serviceName, "ok").Inc()

		m := detail.Metrics()

		acc.revenue += m.Revenue
		acc.expenses += m.Expenses
		acc.netProfit += m.NetIncome
		acc.ebitda += m.EBITDA
		acc.cashFlow += m.FreeCashFlow
		acc.workingCapital += m.WorkingCapital
		acc.criticalAlerts += m.CriticalAlerts

		// Ratios are not summed; the latest processed record wins.
		acc.grossMargin = m.GrossMargin
		acc.healthScore = m.HealthScore
		acc.currentRatio = m.CurrentRatio
		acc.debtToEquity = m.DebtToEquity

		acc.count++
	}

	branches := make([]models.BranchMetrics, 0, len(order))
	for _, key := range order {
		branches = append(branches, accs[key].finalize())
	}

	return &AggregateResult{
		Branches:     branches,
		Consolidated: ConsolidateBranchMetrics(branches),
	}, nil
}

// finalize converts running sums into the reported metric set: EBITDA, cash
// flow and working capital become averages over the processed records, and
// profit margin is derived from the summed figures.
func (a *branchAccumulator) finalize() models.BranchMetrics {
	m := models.BranchMetrics{
		BranchID:       a.branchID,
		BranchName:     a.name,
		TotalRevenue:   a.revenue,
		TotalExpenses:  a.expenses,
		NetProfit:      a.netProfit,
		GrossMargin:    a.grossMargin,
		HealthScore:    a.healthScore,
		CurrentRatio:   a.currentRatio,
		DebtToEquity:   a.debtToEquity,
		CriticalAlerts: a.criticalAlerts,
		RecordCount:    a.count,
	}

	if a.count > 0 {
		m.EBITDA = a.ebitda / float64(a.count)
		m.CashFlow = a.cashFlow / float64(a.count)
		m.WorkingCapital = a.workingCapital / float64(a.count)
	}
	if a.revenue != 0 {
		m.ProfitMargin = a.netProfit / a.revenue
	}

	return m
}

// ConsolidateBranchMetrics reduces per-branch metrics into company-wide
// totals and branch-averaged ratios. All averages are zero when there are
// no branches.
func ConsolidateBranchMetrics(branches []models.BranchMetrics) models.ConsolidatedMetrics {
	c := models.ConsolidatedMetrics{BranchCount: len(branches)}

	for _, b := range branches {
		c.TotalRevenue += b.TotalRevenue
		c.TotalExpenses += b.TotalExpenses
		c.NetProfit += b.NetProfit
		c.TotalCashFlow += b.CashFlow
		c.TotalWorkingCapital += b.WorkingCapital

		c.AvgEBITDA += b.EBITDA
		c.AvgGrossMargin += b.GrossMargin
		c.AvgProfitMargin += b.ProfitMargin
		c.AvgHealthScore += b.HealthScore
		c.AvgCurrentRatio += b.CurrentRatio
	}

	if n := float64(len(branches)); n > 0 {
		c.AvgEBITDA /= n
		c.AvgGrossMargin /= n
		c.AvgProfitMargin /= n
		c.AvgHealthScore /= n
		c.AvgCurrentRatio /= n
	}

	return c
}

// branchName resolves a display name for the bucket. Soft-deleted branches
// still resolve here so historical analyses keep their label.
func (s *MetricsService) branchName(ctx context.Context, branchID *uuid.UUID) string {
	if branchID == nil {
		return unassignedBranchName
	}
	if s.branchRepo == nil {
		return branchID.String()
	}
	branch, err := s.branchRepo.GetByID(ctx, *branchID)
	if err != nil {
		return branchID.String()
	}
	return branch.Name
}
