package models

import (
	"time"

	"github.com/google/uuid"
)

// Company represents a tenant company. The first user that creates a
// company becomes its admin.
type Company struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Industry    *string   `json:"industry,omitempty"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Branch represents a sub-location of a company with its own financial
// analyses. Branches are soft-deleted via IsActive so historical analyses
// keep resolving.
type Branch struct {
	ID        uuid.UUID `json:"id"`
	CompanyID uuid.UUID `json:"company_id"`
	Name      string    `json:"name"`
	Location  *string   `json:"location,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
