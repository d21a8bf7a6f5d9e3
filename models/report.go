package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntryType tags a parsed line item with its statement category.
type EntryType string

const (
	EntryTypeRevenue   EntryType = "revenue"
	EntryTypeExpense   EntryType = "expense"
	EntryTypeAsset     EntryType = "asset"
	EntryTypeLiability EntryType = "liability"
)

// FinancialReport is the legacy report header; its parsed line items are
// deleted together with it.
type FinancialReport struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	FileName  string    `json:"file_name"`
	Period    *string   `json:"period,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ParsedFinancialData is a single parsed line item belonging to a report.
type ParsedFinancialData struct {
	ID          uuid.UUID       `json:"id"`
	ReportID    uuid.UUID       `json:"report_id"`
	AccountName string          `json:"account_name"`
	Category    *string         `json:"category,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	EntryType   EntryType       `json:"entry_type"`
	Period      *string         `json:"period,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}
