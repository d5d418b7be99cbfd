package dto

import "github.com/justikon/jcm-api/internal/models"

// CreateUserRequest registers a new account for an institution member.
type CreateUserRequest struct {
	Email           string                 `json:"email" validate:"required,email"`
	Password        string                 `json:"password" validate:"required,min=12"`
	FullName        string                 `json:"full_name" validate:"required"`
	Role            models.UserRole        `json:"role" validate:"required"`
	InstitutionID   string                 `json:"institution_id" validate:"required"`
	InstitutionType models.InstitutionType `json:"institution_type" validate:"required"`
}

// UpdateUserRequest edits mutable account fields; nil fields are untouched.
type UpdateUserRequest struct {
	FullName        *string                 `json:"full_name,omitempty"`
	Role            *models.UserRole        `json:"role,omitempty"`
	InstitutionID   *string                 `json:"institution_id,omitempty"`
	InstitutionType *models.InstitutionType `json:"institution_type,omitempty"`
	Active          *bool                   `json:"active,omitempty"`
}

// UserQuery narrows a user listing.
type UserQuery struct {
	Role          *models.UserRole
	InstitutionID string
	Active        *bool
	Search        string
	Page          int
	PageSize      int
}
