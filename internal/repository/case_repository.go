package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/justikon/jcm-api/internal/models"
	"github.com/justikon/jcm-api/internal/policy"
)

const caseColumns = `id, type, state, appeal_state, decision, description, police_case_number,
       creating_prosecutor_id, prosecutors_office_id, prosecutor_id, shared_with_prosecutors_office_id, court_id,
       is_heightened_security_level, is_archived,
       accused_appeal_decision, prosecutor_appeal_decision, accused_postponed_appeal_date, prosecutor_postponed_appeal_date,
       created_at, updated_at`

// CaseRepository persists case records and their lifecycle updates.
type CaseRepository struct {
	db *sqlx.DB
}

// NewCaseRepository constructs the repository.
func NewCaseRepository(db *sqlx.DB) *CaseRepository {
	return &CaseRepository{db: db}
}

// Create inserts a new case row.
func (r *CaseRepository) Create(ctx context.Context, c *models.Case) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	const query = `INSERT INTO cases
	(id, type, state, appeal_state, decision, description, police_case_number,
	 creating_prosecutor_id, prosecutors_office_id, prosecutor_id, shared_with_prosecutors_office_id, court_id,
	 is_heightened_security_level, is_archived,
	 accused_appeal_decision, prosecutor_appeal_decision, accused_postponed_appeal_date, prosecutor_postponed_appeal_date,
	 created_at, updated_at)
	VALUES (:id, :type, :state, :appeal_state, :decision, :description, :police_case_number,
	 :creating_prosecutor_id, :prosecutors_office_id, :prosecutor_id, :shared_with_prosecutors_office_id, :court_id,
	 :is_heightened_security_level, :is_archived,
	 :accused_appeal_decision, :prosecutor_appeal_decision, :accused_postponed_appeal_date, :prosecutor_postponed_appeal_date,
	 :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, c); err != nil {
		return fmt.Errorf("create case: %w", err)
	}
	return nil
}

// GetByID fetches a case by identifier regardless of visibility; access
// checks belong to the service layer.
func (r *CaseRepository) GetByID(ctx context.Context, id string) (*models.Case, error) {
	query := fmt.Sprintf(`SELECT %s FROM cases WHERE id = $1`, caseColumns)
	var c models.Case
	if err := r.db.GetContext(ctx, &c, query, id); err != nil {
		return nil, err
	}
	return &c, nil
}

// ListVisible returns the cases the actor may read, newest first. The
// actor's visibility scope is compiled into the WHERE clause so rows never
// leave the database only to be filtered out again.
func (r *CaseRepository) ListVisible(ctx context.Context, actor *models.Actor, filter models.CaseFilter) ([]models.Case, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 8)
	builder.WriteString(fmt.Sprintf(`SELECT %s FROM cases`, caseColumns))

	conditions := make([]string, 0, 4)
	if len(filter.States) > 0 {
		placeholders := make([]string, len(filter.States))
		for i, state := range filter.States {
			args = append(args, state)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("state IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Types) > 0 {
		placeholders := make([]string, len(filter.Types))
		for i, caseType := range filter.Types {
			args = append(args, caseType)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("type IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.PoliceCaseNumber != "" {
		args = append(args, filter.PoliceCaseNumber)
		conditions = append(conditions, fmt.Sprintf("police_case_number = $%d", len(args)))
	}

	scope, scopeArgs := policy.ToSQL(policy.BuildReadFilter(actor), len(args)+1)
	args = append(args, scopeArgs...)
	conditions = append(conditions, scope)

	builder.WriteString(" WHERE ")
	builder.WriteString(strings.Join(conditions, " AND "))
	builder.WriteString(" ORDER BY created_at DESC")

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var cases []models.Case
	if err := r.db.SelectContext(ctx, &cases, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	return cases, nil
}

// TransitionParams groups the optimistic lifecycle update. FromState and
// FromAppealState are the snapshot the transition was decided on; the update
// applies only if the row still matches both.
type TransitionParams struct {
	ID              string
	FromState       models.CaseState
	FromAppealState models.CaseAppealState
	NewState        *models.CaseState
	NewAppealState  *models.CaseAppealState
	Decision        *models.CaseDecision
}

// ApplyTransition commits a transition with optimistic concurrency. It
// returns sql.ErrNoRows when the row moved on since the decision snapshot,
// which the service surfaces as a conflict.
func (r *CaseRepository) ApplyTransition(ctx context.Context, params TransitionParams) error {
	setParts := []string{"updated_at = :updated_at"}
	if params.NewState != nil {
		setParts = append(setParts, "state = :new_state")
	}
	if params.NewAppealState != nil {
		setParts = append(setParts, "appeal_state = :new_appeal_state")
	}
	if params.Decision != nil {
		setParts = append(setParts, "decision = :decision")
	}

	query := fmt.Sprintf(`UPDATE cases SET %s
	WHERE id = :id AND state = :from_state AND appeal_state IS NOT DISTINCT FROM :from_appeal_state`,
		strings.Join(setParts, ", "))

	result, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id":                params.ID,
		"from_state":        params.FromState,
		"from_appeal_state": params.FromAppealState,
		"new_state":         params.NewState,
		"new_appeal_state":  params.NewAppealState,
		"decision":          params.Decision,
		"updated_at":        time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("apply case transition: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check transition rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateCaseParams groups mutable case fields for the write path. A nil
// pointer leaves the column untouched. Type, creating-prosecutor ownership
// and the archive flag never change through this path.
type UpdateCaseParams struct {
	ID                            string
	Description                   *string
	PoliceCaseNumber              *string
	ProsecutorID                  *string
	SharedWithProsecutorsOfficeID *string
	CourtID                       *string
	IsHeightenedSecurityLevel     *bool
}

// Update persists field edits on an existing case.
func (r *CaseRepository) Update(ctx context.Context, params UpdateCaseParams) error {
	setParts := []string{"updated_at = :updated_at"}
	if params.Description != nil {
		setParts = append(setParts, "description = :description")
	}
	if params.PoliceCaseNumber != nil {
		setParts = append(setParts, "police_case_number = :police_case_number")
	}
	if params.ProsecutorID != nil {
		setParts = append(setParts, "prosecutor_id = :prosecutor_id")
	}
	if params.SharedWithProsecutorsOfficeID != nil {
		setParts = append(setParts, "shared_with_prosecutors_office_id = :shared_with_prosecutors_office_id")
	}
	if params.CourtID != nil {
		setParts = append(setParts, "court_id = :court_id")
	}
	if params.IsHeightenedSecurityLevel != nil {
		setParts = append(setParts, "is_heightened_security_level = :is_heightened_security_level")
	}

	query := fmt.Sprintf("UPDATE cases SET %s WHERE id = :id", strings.Join(setParts, ", "))
	result, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id":                                params.ID,
		"description":                       params.Description,
		"police_case_number":                params.PoliceCaseNumber,
		"prosecutor_id":                     params.ProsecutorID,
		"shared_with_prosecutors_office_id": params.SharedWithProsecutorsOfficeID,
		"court_id":                          params.CourtID,
		"is_heightened_security_level":      params.IsHeightenedSecurityLevel,
		"updated_at":                        time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("update case: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check case update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// AppealDecisionParams records what a party declared against a ruling.
type AppealDecisionParams struct {
	ID                string
	ByProsecutor      bool
	Decision          models.CaseAppealDecision
	PostponedAppealAt *time.Time
}

// SetAppealDecision stores a party's appeal declaration. These columns feed
// the appellate court's read visibility.
func (r *CaseRepository) SetAppealDecision(ctx context.Context, params AppealDecisionParams) error {
	decisionCol := "accused_appeal_decision"
	postponedCol := "accused_postponed_appeal_date"
	if params.ByProsecutor {
		decisionCol = "prosecutor_appeal_decision"
		postponedCol = "prosecutor_postponed_appeal_date"
	}

	query := fmt.Sprintf(`UPDATE cases SET %s = $2, %s = $3, updated_at = $4 WHERE id = $1`, decisionCol, postponedCol)
	result, err := r.db.ExecContext(ctx, query, params.ID, params.Decision, params.PostponedAppealAt, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set appeal decision: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check appeal decision rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
