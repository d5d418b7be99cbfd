package dto

import (
	"time"

	"github.com/justikon/jcm-api/internal/models"
)

// CreateCaseRequest opens a new case record.
type CreateCaseRequest struct {
	Type             models.CaseType `json:"type" binding:"required"`
	Description      string          `json:"description"`
	PoliceCaseNumber string          `json:"police_case_number" binding:"required"`
	CourtID          *string         `json:"court_id,omitempty"`
}

// UpdateCaseRequest edits mutable case fields; nil fields are untouched.
type UpdateCaseRequest struct {
	Description                   *string `json:"description,omitempty"`
	PoliceCaseNumber              *string `json:"police_case_number,omitempty"`
	ProsecutorID                  *string `json:"prosecutor_id,omitempty"`
	SharedWithProsecutorsOfficeID *string `json:"shared_with_prosecutors_office_id,omitempty"`
	CourtID                       *string `json:"court_id,omitempty"`
	IsHeightenedSecurityLevel     *bool   `json:"is_heightened_security_level,omitempty"`
}

// TransitionCaseRequest asks for a lifecycle transition. Decision is only
// meaningful with ACCEPT, REJECT and DISMISS.
type TransitionCaseRequest struct {
	Transition models.CaseTransition `json:"transition" binding:"required"`
	Decision   *models.CaseDecision  `json:"decision,omitempty"`
}

// AppealDecisionRequest records a party's declaration against a ruling.
type AppealDecisionRequest struct {
	ByProsecutor        bool                      `json:"by_prosecutor"`
	Decision            models.CaseAppealDecision `json:"decision" binding:"required"`
	PostponedAppealDate *time.Time                `json:"postponed_appeal_date,omitempty"`
}

// CaseQuery narrows a case listing within the actor's visibility scope.
type CaseQuery struct {
	States           []models.CaseState
	Types            []models.CaseType
	PoliceCaseNumber string
	Limit            int
	Offset           int
}
