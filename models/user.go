package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a user entity. Users are created lazily on the first
// authenticated request, keyed by the identity provider's subject id.
type User struct {
	ID               uuid.UUID  `json:"id"`
	ExternalID       string     `json:"external_id"`
	Email            string     `json:"email"`
	CompanyID        *uuid.UUID `json:"company_id,omitempty"`
	IsAdmin          bool       `json:"is_admin"`
	StripeCustomerID *string    `json:"-"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}
