package repository

import (
	"context"

	"aicfo-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AnalysisRepository handles database operations for financial analyses
type AnalysisRepository struct {
	db *pgxpool.Pool
}

// NewAnalysisRepository creates a new analysis repository
func NewAnalysisRepository(db *pgxpool.Pool) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// Create creates a new analysis record
func (r *AnalysisRepository) Create(ctx context.Context, a *models.FinancialAnalysis) error {
	query := `
		INSERT INTO financial_analyses (
			user_id, company_id, branch_id, file_name, file_type, file_size,
			storage_path, upload_group, period, payload
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at`

	return r.db.QueryRow(
		ctx, query,
		a.UserID,
		a.CompanyID,
		a.BranchID,
		a.FileName,
		a.FileType,
		a.FileSize,
		a.StoragePath,
		a.UploadGroup,
		a.Period,
		a.Payload,
	).Scan(&a.ID, &a.CreatedAt)
}

// GetByID retrieves an analysis by ID
func (r *AnalysisRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.FinancialAnalysis, error) {
	a := &models.FinancialAnalysis{}
	query := `
		SELECT id, user_id, company_id, branch_id, file_name, file_type, file_size,
		       storage_path, upload_group, period, payload, created_at
		FROM financial_analyses
		WHERE id = $1`

	err := r.db.QueryRow(ctx, query, id).Scan(
		&a.ID,
		&a.UserID,
		&a.CompanyID,
		&a.BranchID,
		&a.FileName,
		&a.FileType,
		&a.FileSize,
		&a.StoragePath,
		&a.UploadGroup,
		&a.Period,
		&a.Payload,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return a, nil
}

// ListByUser retrieves all analyses for a user
func (r *AnalysisRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.FinancialAnalysis, error) {
	query := `
		SELECT id, user_id, company_id, branch_id, file_name, file_type, file_size,
		       storage_path, upload_group, period, payload, created_at
		FROM financial_analyses
		WHERE user_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanAnalyses(rows)
}

// ListByCompany retrieves the analyses in aggregation scope: all records of
// a company, optionally narrowed to one branch and one period.
func (r *AnalysisRepository) ListByCompany(ctx context.Context, companyID uuid.UUID, branchID *uuid.UUID, period *string) ([]*models.FinancialAnalysis, error) {
	query := `
		SELECT id, user_id, company_id, branch_id, file_name, file_type, file_size,
		       storage_path, upload_group, period, payload, created_at
		FROM financial_analyses
		WHERE company_id = $1
		  AND ($2::uuid IS NULL OR branch_id = $2)
		  AND ($3::text IS NULL OR period = $3)
		ORDER BY created_at ASC`

	rows, err := r.db.Query(ctx, query, companyID, branchID, period)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanAnalyses(rows)
}

// Delete deletes an analysis record
func (r *AnalysisRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM financial_analyses WHERE id = $1`
	_, err := r.db.Exec(ctx, query, id)
	return err
}

type analysisRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanAnalyses(rows analysisRows) ([]*models.FinancialAnalysis, error) {
	var analyses []*models.FinancialAnalysis
	for rows.Next() {
		a := &models.FinancialAnalysis{}
		err := rows.Scan(
			&a.ID,
			&a.UserID,
			&a.CompanyID,
			&a.BranchID,
			&a.FileName,
			&a.FileType,
			&a.FileSize,
			&a.StoragePath,
			&a.UploadGroup,
			&a.Period,
			&a.Payload,
			&a.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		analyses = append(analyses, a)
	}

	return analyses, rows.Err()
}
