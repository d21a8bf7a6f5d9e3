package service

import (
	"context"
	"errors"
	"math"
	"testing"

	"aicfo-backend/analysis"
	"aicfo-backend/models"

	"github.com/google/uuid"
)

func fp(v float64) *float64 { return &v }

func detailFor(revenue, expenses, netIncome, ebitda, cashFlow, grossMargin float64) *analysis.Detail {
	return &analysis.Detail{
		ProfitAndLoss: &analysis.ProfitAndLoss{
			RevenueAnalysis: &analysis.RevenueAnalysis{TotalRevenue: fp(revenue)},
			ExpenseAnalysis: &analysis.ExpenseAnalysis{TotalExpenses: fp(expenses)},
			Profitability: &analysis.Profitability{
				NetIncome:   fp(netIncome),
				EBITDA:      fp(ebitda),
				GrossMargin: fp(grossMargin),
			},
		},
		CashFlow: &analysis.CashFlow{FreeCashFlow: fp(cashFlow)},
	}
}

type fakeAnalysisLister struct {
	records []*models.FinancialAnalysis
}

func (f *fakeAnalysisLister) ListByCompany(ctx context.Context, companyID uuid.UUID, branchID *uuid.UUID, period *string) ([]*models.FinancialAnalysis, error) {
	return f.records, nil
}

type fakeBranchLister struct {
	names map[uuid.UUID]string
}

func (f *fakeBranchLister) ListActiveByCompany(ctx context.Context, companyID uuid.UUID) ([]*models.Branch, error) {
	return nil, nil
}

func (f *fakeBranchLister) GetByID(ctx context.Context, id uuid.UUID) (*models.Branch, error) {
	name, ok := f.names[id]
	if !ok {
		return nil, errors.New("branch not found")
	}
	return &models.Branch{ID: id, Name: name}, nil
}

type fakeDetailFetcher struct {
	details map[uuid.UUID]*analysis.Detail
	errs    map[uuid.UUID]error
}

func (f *fakeDetailFetcher) GetAnalysisDetail(ctx context.Context, analysisID uuid.UUID) (*analysis.Detail, error) {
	if err, ok := f.errs[analysisID]; ok {
		return nil, err
	}
	return f.details[analysisID], nil
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestAggregateByBranch(t *testing.T) {
	branchID := uuid.New()
	rec1 := uuid.New()
	rec2 := uuid.New()

	svc := NewMetricsService(
		MetricsWithAnalysisLister(&fakeAnalysisLister{records: []*models.FinancialAnalysis{
			{ID: rec1, BranchID: &branchID},
			{ID: rec2, BranchID: &branchID},
		}}),
		MetricsWithBranchLister(&fakeBranchLister{names: map[uuid.UUID]string{branchID: "Downtown"}}),
		MetricsWithDetailFetcher(&fakeDetailFetcher{details: map[uuid.UUID]*analysis.Detail{
			rec1: detailFor(1000, 600, 400, 200, 100, 0.40),
			rec2: detailFor(2000, 1500, 500, 400, 300, 0.25),
		}}),
	)

	result, err := svc.AggregateByBranch(context.Background(), AggregateRequest{CompanyID: uuid.New()})
	if err != nil {
		t.Fatalf("AggregateByBranch returned error: %v", err)
	}

	if len(result.Branches) != 1 {
		t.Fatalf("got %d branches, want 1", len(result.Branches))
	}
	b := result.Branches[0]

	if b.BranchName != "Downtown" {
		t.Errorf("BranchName = %q, want Downtown", b.BranchName)
	}
	if b.TotalRevenue != 3000 {
		t.Errorf("TotalRevenue = %v, want 3000", b.TotalRevenue)
	}
	if b.TotalExpenses != 2100 {
		t.Errorf("TotalExpenses = %v, want 2100", b.TotalExpenses)
	}
	if b.NetProfit != 900 {
		t.Errorf("NetProfit = %v, want 900", b.NetProfit)
	}
	// EBITDA and cash flow average over the two processed records
	if b.EBITDA != 300 {
		t.Errorf("EBITDA = %v, want 300", b.EBITDA)
	}
	if b.CashFlow != 200 {
		t.Errorf("CashFlow = %v, want 200", b.CashFlow)
	}
	// Gross margin takes the last processed record's value
	if b.GrossMargin != 0.25 {
		t.Errorf("GrossMargin = %v, want 0.25", b.GrossMargin)
	}
	if !almostEqual(b.ProfitMargin, 900.0/3000.0) {
		t.Errorf("ProfitMargin = %v, want 0.3", b.ProfitMargin)
	}
	if b.RecordCount != 2 {
		t.Errorf("RecordCount = %v, want 2", b.RecordCount)
	}
}

func TestAggregateByBranchSkipsFailedFetch(t *testing.T) {
	branchID := uuid.New()
	good := uuid.New()
	bad := uuid.New()

	svc := NewMetricsService(
		MetricsWithAnalysisLister(&fakeAnalysisLister{records: []*models.FinancialAnalysis{
			{ID: bad, BranchID: &branchID},
			{ID: good, BranchID: &branchID},
		}}),
		MetricsWithBranchLister(&fakeBranchLister{names: map[uuid.UUID]string{branchID: "East"}}),
		MetricsWithDetailFetcher(&fakeDetailFetcher{
			details: map[uuid.UUID]*analysis.Detail{good: detailFor(1000, 800, 200, 150, 50, 0.20)},
			errs:    map[uuid.UUID]error{bad: errors.New("backend timeout")},
		}),
	)

	result, err := svc.AggregateByBranch(context.Background(), AggregateRequest{CompanyID: uuid.New()})
	if err != nil {
		t.Fatalf("AggregateByBranch returned error: %v", err)
	}

	b := result.Branches[0]
	if b.TotalRevenue != 1000 {
		t.Errorf("TotalRevenue = %v, want 1000 (failed record contributes nothing)", b.TotalRevenue)
	}
	// Averages divide by successfully processed records only
	if b.EBITDA != 150 {
		t.Errorf("EBITDA = %v, want 150", b.EBITDA)
	}
	if b.RecordCount != 1 {
		t.Errorf("RecordCount = %v, want 1", b.RecordCount)
	}
}

func TestAggregateByBranchAllFetchesFail(t *testing.T) {
	branchID := uuid.New()
	rec := uuid.New()

	svc := NewMetricsService(
		MetricsWithAnalysisLister(&fakeAnalysisLister{records: []*models.FinancialAnalysis{
			{ID: rec, BranchID: &branchID},
		}}),
		MetricsWithBranchLister(&fakeBranchLister{names: map[uuid.UUID]string{branchID: "West"}}),
		MetricsWithDetailFetcher(&fakeDetailFetcher{
			errs: map[uuid.UUID]error{rec: errors.New("backend down")},
		}),
	)

	result, err := svc.AggregateByBranch(context.Background(), AggregateRequest{CompanyID: uuid.New()})
	if err != nil {
		t.Fatalf("AggregateByBranch returned error: %v", err)
	}

	// The branch bucket still appears but every metric is zero
	if len(result.Branches) != 1 {
		t.Fatalf("got %d branches, want 1", len(result.Branches))
	}
	b := result.Branches[0]
	if b.TotalRevenue != 0 || b.EBITDA != 0 || b.ProfitMargin != 0 || b.RecordCount != 0 {
		t.Errorf("expected all-zero metrics, got %+v", b)
	}
}

func TestAggregateByBranchUnassignedBucket(t *testing.T) {
	rec := uuid.New()

	svc := NewMetricsService(
		MetricsWithAnalysisLister(&fakeAnalysisLister{records: []*models.FinancialAnalysis{
			{ID: rec, BranchID: nil},
		}}),
		MetricsWithBranchLister(&fakeBranchLister{}),
		MetricsWithDetailFetcher(&fakeDetailFetcher{details: map[uuid.UUID]*analysis.Detail{
			rec: detailFor(500, 300, 200, 100, 50, 0.4),
		}}),
	)

	result, err := svc.AggregateByBranch(context.Background(), AggregateRequest{CompanyID: uuid.New()})
	if err != nil {
		t.Fatalf("AggregateByBranch returned error: %v", err)
	}

	b := result.Branches[0]
	if b.BranchName != "Unassigned" {
		t.Errorf("BranchName = %q, want Unassigned", b.BranchName)
	}
	if b.BranchID != nil {
		t.Errorf("BranchID = %v, want nil", b.BranchID)
	}
}

func TestConsolidateBranchMetrics(t *testing.T) {
	branches := []models.BranchMetrics{
		{TotalRevenue: 1000, TotalExpenses: 700, NetProfit: 300, EBITDA: 100, CashFlow: 50, WorkingCapital: 20, GrossMargin: 0.30, ProfitMargin: 0.30, HealthScore: 80, CurrentRatio: 1.5},
		{TotalRevenue: 3000, TotalExpenses: 2500, NetProfit: 500, EBITDA: 300, CashFlow: 150, WorkingCapital: 80, GrossMargin: 0.20, ProfitMargin: 0.10, HealthScore: 60, CurrentRatio: 2.5},
	}

	c := ConsolidateBranchMetrics(branches)

	if c.BranchCount != 2 {
		t.Errorf("BranchCount = %d, want 2", c.BranchCount)
	}
	if c.TotalRevenue != 4000 {
		t.Errorf("TotalRevenue = %v, want 4000", c.TotalRevenue)
	}
	if c.TotalCashFlow != 200 {
		t.Errorf("TotalCashFlow = %v, want 200", c.TotalCashFlow)
	}
	if c.TotalWorkingCapital != 100 {
		t.Errorf("TotalWorkingCapital = %v, want 100", c.TotalWorkingCapital)
	}
	if c.AvgEBITDA != 200 {
		t.Errorf("AvgEBITDA = %v, want 200", c.AvgEBITDA)
	}
	if !almostEqual(c.AvgGrossMargin, 0.25) {
		t.Errorf("AvgGrossMargin = %v, want 0.25", c.AvgGrossMargin)
	}
	if !almostEqual(c.AvgProfitMargin, 0.20) {
		t.Errorf("AvgProfitMargin = %v, want 0.20", c.AvgProfitMargin)
	}
	if c.AvgHealthScore != 70 {
		t.Errorf("AvgHealthScore = %v, want 70", c.AvgHealthScore)
	}
	if c.AvgCurrentRatio != 2.0 {
		t.Errorf("AvgCurrentRatio = %v, want 2.0", c.AvgCurrentRatio)
	}
}

func TestConsolidateBranchMetricsEmpty(t *testing.T) {
	c := ConsolidateBranchMetrics(nil)
	if c.BranchCount != 0 {
		t.Errorf("BranchCount = %d, want 0", c.BranchCount)
	}
	if c.AvgEBITDA != 0 || c.AvgHealthScore != 0 {
		t.Errorf("expected zero averages with no branches, got %+v", c)
	}
}
