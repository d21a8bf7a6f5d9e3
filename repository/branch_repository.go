package repository

import (
	"context"

	"aicfo-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BranchRepository handles database operations for branches
type BranchRepository struct {
	db *pgxpool.Pool
}

// NewBranchRepository creates a new branch repository
func NewBranchRepository(db *pgxpool.Pool) *BranchRepository {
	return &BranchRepository{db: db}
}

// Create creates a new branch record
func (r *BranchRepository) Create(ctx context.Context, branch *models.Branch) error {
	query := `
		INSERT INTO branches (company_id, name, location, is_active)
		VALUES ($1, $2, $3, true)
		RETURNING id, is_active, created_at, updated_at`

	return r.db.QueryRow(
		ctx, query,
		branch.CompanyID,
		branch.Name,
		branch.Location,
	).Scan(&branch.ID, &branch.IsActive, &branch.CreatedAt, &branch.UpdatedAt)
}

// GetByID retrieves a branch by ID, including soft-deleted ones
func (r *BranchRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Branch, error) {
	branch := &models.Branch{}
	query := `
		SELECT id, company_id, name, location, is_active, created_at, updated_at
		FROM branches
		WHERE id = $1`

	err := r.db.QueryRow(ctx, query, id).Scan(
		&branch.ID,
		&branch.CompanyID,
		&branch.Name,
		&branch.Location,
		&branch.IsActive,
		&branch.CreatedAt,
		&branch.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return branch, nil
}

// ListActiveByCompany retrieves the active branches of a company.
// Soft-deleted branches are excluded here but still resolve via GetByID for
// historical analyses.
func (r *BranchRepository) ListActiveByCompany(ctx context.Context, companyID uuid.UUID) ([]*models.Branch, error) {
	query := `
		SELECT id, company_id, name, location, is_active, created_at, updated_at
		FROM branches
		WHERE company_id = $1 AND is_active = true
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var branches []*models.Branch
	for rows.Next() {
		branch := &models.Branch{}
		err := rows.Scan(
			&branch.ID,
			&branch.CompanyID,
			&branch.Name,
			&branch.Location,
			&branch.IsActive,
			&branch.CreatedAt,
			&branch.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		branches = append(branches, branch)
	}

	return branches, rows.Err()
}

// Update updates a branch's mutable fields
func (r *BranchRepository) Update(ctx context.Context, branch *models.Branch) error {
	query := `
		UPDATE branches
		SET name = $2, location = $3, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`

	return r.db.QueryRow(ctx, query, branch.ID, branch.Name, branch.Location).Scan(&branch.UpdatedAt)
}

// SoftDelete marks a branch inactive instead of removing the row
func (r *BranchRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE branches SET is_active = false, updated_at = now() WHERE id = $1`
	_, err := r.db.Exec(ctx, query, id)
	return err
}
