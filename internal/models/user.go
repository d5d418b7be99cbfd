package models

import "time"

// UserRole represents the available roles for the access-control system.
type UserRole string

const (
	RoleProsecutor               UserRole = "PROSECUTOR"
	RoleProsecutorRepresentative UserRole = "PROSECUTOR_REPRESENTATIVE"
	RoleJudge                    UserRole = "JUDGE"
	RoleRegistrar                UserRole = "REGISTRAR"
	RoleAssistant                UserRole = "ASSISTANT"
	RolePrisonStaff              UserRole = "PRISON_SYSTEM_STAFF"
	RoleAdmin                    UserRole = "ADMIN"
	RoleDefender                 UserRole = "DEFENDER"
)

// InstitutionType classifies the institution a user belongs to.
type InstitutionType string

const (
	InstitutionTypeProsecutorsOffice InstitutionType = "PROSECUTORS_OFFICE"
	InstitutionTypeDistrictCourt     InstitutionType = "DISTRICT_COURT"
	InstitutionTypeCourtOfAppeals    InstitutionType = "COURT_OF_APPEALS"
	InstitutionTypePrison            InstitutionType = "PRISON"
	InstitutionTypePrisonAdmin       InstitutionType = "PRISON_ADMIN"
)

// Institution represents a row in the institutions table.
type Institution struct {
	ID        string          `db:"id" json:"id"`
	Name      string          `db:"name" json:"name"`
	Type      InstitutionType `db:"type" json:"type"`
	Active    bool            `db:"active" json:"active"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// User represents an application user stored in the users table.
type User struct {
	ID              string          `db:"id" json:"id"`
	Email           string          `db:"email" json:"email"`
	PasswordHash    string          `db:"password_hash" json:"-"`
	FullName        string          `db:"full_name" json:"full_name"`
	Role            UserRole        `db:"role" json:"role"`
	InstitutionID   string          `db:"institution_id" json:"institution_id"`
	InstitutionType InstitutionType `db:"institution_type" json:"institution_type"`
	Active          bool            `db:"active" json:"active"`
	LastLogin       *time.Time      `db:"last_login" json:"last_login,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

// Actor is the snapshot of the requesting user that every access decision is
// evaluated against. It is built either from a User row or from JWT claims.
type Actor struct {
	ID              string          `json:"id"`
	Role            UserRole        `json:"role"`
	InstitutionID   string          `json:"institution_id"`
	InstitutionType InstitutionType `json:"institution_type"`
}

// Actor derives the access-control snapshot from a user row.
func (u *User) Actor() *Actor {
	return &Actor{
		ID:              u.ID,
		Role:            u.Role,
		InstitutionID:   u.InstitutionID,
		InstitutionType: u.InstitutionType,
	}
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role          *UserRole
	InstitutionID string
	Active        *bool
	Search        string
	Page          int
	PageSize      int
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
