package models

import (
	"github.com/google/uuid"
)

// BranchMetrics holds the aggregated financial metrics for one branch.
// Revenue, expenses and net profit are sums over the branch's analyses;
// EBITDA, cash flow and working capital are averages over the processed
// records; ratio-like metrics carry the latest record's value.
type BranchMetrics struct {
	BranchID       *uuid.UUID `json:"branch_id,omitempty"`
	BranchName     string     `json:"branch_name"`
	TotalRevenue   float64    `json:"total_revenue"`
	TotalExpenses  float64    `json:"total_expenses"`
	NetProfit      float64    `json:"net_profit"`
	EBITDA         float64    `json:"ebitda"`
	GrossMargin    float64    `json:"gross_margin"`
	ProfitMargin   float64    `json:"profit_margin"`
	HealthScore    float64    `json:"health_score"`
	CashFlow       float64    `json:"cash_flow"`
	CurrentRatio   float64    `json:"current_ratio"`
	DebtToEquity   float64    `json:"debt_to_equity"`
	WorkingCapital float64    `json:"working_capital"`
	CriticalAlerts int        `json:"critical_alerts"`
	RecordCount    int        `json:"record_count"`
}

// ConsolidatedMetrics reduces per-branch metrics into company-wide totals
// and branch-averaged ratios.
type ConsolidatedMetrics struct {
	TotalRevenue        float64 `json:"total_revenue"`
	TotalExpenses       float64 `json:"total_expenses"`
	NetProfit           float64 `json:"net_profit"`
	TotalCashFlow       float64 `json:"total_cash_flow"`
	TotalWorkingCapital float64 `json:"total_working_capital"`
	AvgEBITDA           float64 `json:"avg_ebitda"`
	AvgGrossMargin      float64 `json:"avg_gross_margin"`
	AvgProfitMargin     float64 `json:"avg_profit_margin"`
	AvgHealthScore      float64 `json:"avg_health_score"`
	AvgCurrentRatio     float64 `json:"avg_current_ratio"`
	BranchCount         int     `json:"branch_count"`
}
