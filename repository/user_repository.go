package repository

import (
	"context"

	"aicfo-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository handles database operations for users
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// UpsertByExternalID creates the user on first sign-in and refreshes the
// email on subsequent requests. Idempotent, keyed by the identity provider
// subject id.
func (r *UserRepository) UpsertByExternalID(ctx context.Context, externalID, email string) (*models.User, error) {
	user := &models.User{}
	query := `
		INSERT INTO users (external_id, email)
		VALUES ($1, $2)
		ON CONFLICT (external_id) DO UPDATE
		SET email = EXCLUDED.email, updated_at = now()
		RETURNING id, external_id, email, company_id, is_admin, stripe_customer_id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query, externalID, email).Scan(
		&user.ID,
		&user.ExternalID,
		&user.Email,
		&user.CompanyID,
		&user.IsAdmin,
		&user.StripeCustomerID,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return user, nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user := &models.User{}
	query := `
		SELECT id, external_id, email, company_id, is_admin, stripe_customer_id, created_at, updated_at
		FROM users
		WHERE id = $1`

	err := r.db.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.ExternalID,
		&user.Email,
		&user.CompanyID,
		&user.IsAdmin,
		&user.StripeCustomerID,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return user, nil
}

// GetByStripeCustomerID resolves the owning user of a billing customer
func (r *UserRepository) GetByStripeCustomerID(ctx context.Context, customerID string) (*models.User, error) {
	user := &models.User{}
	query := `
		SELECT id, external_id, email, company_id, is_admin, stripe_customer_id, created_at, updated_at
		FROM users
		WHERE stripe_customer_id = $1`

	err := r.db.QueryRow(ctx, query, customerID).Scan(
		&user.ID,
		&user.ExternalID,
		&user.Email,
		&user.CompanyID,
		&user.IsAdmin,
		&user.StripeCustomerID,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return user, nil
}

// SetStripeCustomerID links a user to their billing customer record
func (r *UserRepository) SetStripeCustomerID(ctx context.Context, userID uuid.UUID, customerID string) error {
	query := `UPDATE users SET stripe_customer_id = $2, updated_at = now() WHERE id = $1`
	_, err := r.db.Exec(ctx, query, userID, customerID)
	return err
}

// SetCompany assigns a user to a company, optionally flagging them as the
// company admin
func (r *UserRepository) SetCompany(ctx context.Context, userID, companyID uuid.UUID, isAdmin bool) error {
	query := `UPDATE users SET company_id = $2, is_admin = $3, updated_at = now() WHERE id = $1`
	_, err := r.db.Exec(ctx, query, userID, companyID, isAdmin)
	return err
}
