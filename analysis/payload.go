package analysis

// Detail is the decoded shape of the backend's detailed analysis payload.
// Every field is optional; readers go through Metrics which applies zero
// defaults, so the nested sections are never accessed ad hoc.
type Detail struct {
	ProfitAndLoss    *ProfitAndLoss    `json:"profit_and_loss,omitempty"`
	BalanceSheet     *BalanceSheet     `json:"balance_sheet,omitempty"`
	CashFlow         *CashFlow         `json:"cash_flow,omitempty"`
	ExecutiveSummary *ExecutiveSummary `json:"executive_summary,omitempty"`
}

// ProfitAndLoss is the profit-and-loss section of the payload.
type ProfitAndLoss struct {
	RevenueAnalysis *RevenueAnalysis `json:"revenue_analysis,omitempty"`
	ExpenseAnalysis *ExpenseAnalysis `json:"expense_analysis,omitempty"`
	Profitability   *Profitability   `json:"profitability,omitempty"`
}

// RevenueAnalysis holds revenue figures.
type RevenueAnalysis struct {
	TotalRevenue *float64 `json:"total_revenue,omitempty"`
}

// ExpenseAnalysis holds expense figures.
type ExpenseAnalysis struct {
	TotalExpenses *float64 `json:"total_expenses,omitempty"`
}

// Profitability holds profitability figures and margin ratios.
type Profitability struct {
	NetIncome   *float64 `json:"net_income,omitempty"`
	EBITDA      *float64 `json:"ebitda,omitempty"`
	GrossMargin *float64 `json:"gross_margin,omitempty"`
}

// BalanceSheet is the balance-sheet section of the payload.
type BalanceSheet struct {
	WorkingCapital *float64   `json:"working_capital,omitempty"`
	Liquidity      *Liquidity `json:"liquidity,omitempty"`
	Leverage       *Leverage  `json:"leverage,omitempty"`
}

// Liquidity holds liquidity ratios.
type Liquidity struct {
	CurrentRatio *float64 `json:"current_ratio,omitempty"`
}

// Leverage holds leverage ratios.
type Leverage struct {
	DebtToEquity *float64 `json:"debt_to_equity,omitempty"`
}

// CashFlow is the cash-flow section of the payload.
type CashFlow struct {
	FreeCashFlow *float64 `json:"free_cash_flow,omitempty"`
}

// ExecutiveSummary holds the backend-computed health indicators.
type ExecutiveSummary struct {
	HealthScore    *float64 `json:"health_score,omitempty"`
	CriticalAlerts []string `json:"critical_alerts,omitempty"`
}

// Metrics is the flat set of numeric metrics extracted from a Detail.
type Metrics struct {
	Revenue        float64
	Expenses       float64
	NetIncome      float64
	EBITDA         float64
	GrossMargin    float64
	HealthScore    float64
	FreeCashFlow   float64
	CurrentRatio   float64
	DebtToEquity   float64
	WorkingCapital float64
	CriticalAlerts int
}

// Metrics extracts the fixed metric set from the payload. Missing sections
// and fields default to zero.
func (d *Detail) Metrics() Metrics {
	var m Metrics
	if d == nil {
		return m
	}
	if pl := d.ProfitAndLoss; pl != nil {
		if pl.RevenueAnalysis != nil {
			m.Revenue = deref(pl.RevenueAnalysis.TotalRevenue)
		}
		if pl.ExpenseAnalysis != nil {
			m.Expenses = deref(pl.ExpenseAnalysis.TotalExpenses)
		}
		if pl.Profitability != nil {
			m.NetIncome = deref(pl.Profitability.NetIncome)
			m.EBITDA = deref(pl.Profitability.EBITDA)
			m.GrossMargin = deref(pl.Profitability.GrossMargin)
		}
	}
	if bs := d.BalanceSheet; bs != nil {
		m.WorkingCapital = deref(bs.WorkingCapital)
		if bs.Liquidity != nil {
			m.CurrentRatio = deref(bs.Liquidity.CurrentRatio)
		}
		if bs.Leverage != nil {
			m.DebtToEquity = deref(bs.Leverage.DebtToEquity)
		}
	}
	if cf := d.CashFlow; cf != nil {
		m.FreeCashFlow = deref(cf.FreeCashFlow)
	}
	if es := d.ExecutiveSummary; es != nil {
		m.HealthScore = deref(es.HealthScore)
		m.CriticalAlerts = len(es.CriticalAlerts)
	}
	return m
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
