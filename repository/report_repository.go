package repository

import (
	"context"
	"fmt"

	"aicfo-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ReportRepository handles database operations for legacy financial reports
// and their parsed line items
type ReportRepository struct {
	db *pgxpool.Pool
}

// NewReportRepository creates a new report repository
func NewReportRepository(db *pgxpool.Pool) *ReportRepository {
	return &ReportRepository{db: db}
}

// Create inserts a report header together with its parsed line items in one
// transaction, so a partial failure leaves no orphan header behind.
func (r *ReportRepository) Create(ctx context.Context, report *models.FinancialReport, items []*models.ParsedFinancialData) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO financial_reports (user_id, file_name, period)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err = tx.QueryRow(ctx, query, report.UserID, report.FileName, report.Period).
		Scan(&report.ID, &report.CreatedAt)
	if err != nil {
		return err
	}

	itemQuery := `
		INSERT INTO parsed_financial_data (report_id, account_name, category, amount, entry_type, period)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	for _, item := range items {
		item.ReportID = report.ID
		err = tx.QueryRow(
			ctx, itemQuery,
			item.ReportID,
			item.AccountName,
			item.Category,
			item.Amount,
			item.EntryType,
			item.Period,
		).Scan(&item.ID, &item.CreatedAt)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// GetByID retrieves a report header by ID
func (r *ReportRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.FinancialReport, error) {
	report := &models.FinancialReport{}
	query := `
		SELECT id, user_id, file_name, period, created_at
		FROM financial_reports
		WHERE id = $1`

	err := r.db.QueryRow(ctx, query, id).Scan(
		&report.ID,
		&report.UserID,
		&report.FileName,
		&report.Period,
		&report.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return report, nil
}

// ListByUser retrieves all report headers for a user
func (r *ReportRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.FinancialReport, error) {
	query := `
		SELECT id, user_id, file_name, period, created_at
		FROM financial_reports
		WHERE user_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []*models.FinancialReport
	for rows.Next() {
		report := &models.FinancialReport{}
		err := rows.Scan(
			&report.ID,
			&report.UserID,
			&report.FileName,
			&report.Period,
			&report.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}

	return reports, rows.Err()
}

// ListItems retrieves the parsed line items of a report
func (r *ReportRepository) ListItems(ctx context.Context, reportID uuid.UUID) ([]*models.ParsedFinancialData, error) {
	query := `
		SELECT id, report_id, account_name, category, amount, entry_type, period, created_at
		FROM parsed_financial_data
		WHERE report_id = $1
		ORDER BY created_at`

	rows, err := r.db.Query(ctx, query, reportID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*models.ParsedFinancialData
	for rows.Next() {
		item := &models.ParsedFinancialData{}
		err := rows.Scan(
			&item.ID,
			&item.ReportID,
			&item.AccountName,
			&item.Category,
			&item.Amount,
			&item.EntryType,
			&item.Period,
			&item.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

// DeleteWithItems deletes the parsed line items and then the report header
// inside one transaction, preserving the no-orphan-rows invariant.
func (r *ReportRepository) DeleteWithItems(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM parsed_financial_data WHERE report_id = $1`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM financial_reports WHERE id = $1`, id); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
