package policy

import (
	"fmt"
	"strings"

	"github.com/justikon/jcm-api/internal/models"
)

// Expr is a boolean predicate over case attributes. It renders to a
// parameterised SQL fragment for bulk list queries and evaluates in memory
// against a Case snapshot, which is how it is kept provably equivalent to the
// read path of CanAccess.
type Expr interface {
	sql(b *sqlBuilder) string
	Match(c *models.Case) bool
}

// ToSQL renders the predicate as a WHERE fragment using Postgres placeholders.
// next is the first placeholder ordinal to use, letting callers append the
// fragment to a query that already carries arguments.
func ToSQL(e Expr, next int) (string, []interface{}) {
	b := &sqlBuilder{next: next}
	return e.sql(b), b.args
}

type sqlBuilder struct {
	next int
	args []interface{}
}

func (b *sqlBuilder) bind(v interface{}) string {
	b.args = append(b.args, v)
	placeholder := fmt.Sprintf("$%d", b.next)
	b.next++
	return placeholder
}

// column names a cases-table column the predicate may reference.
type column string

const (
	colIsArchived               column = "is_archived"
	colState                    column = "state"
	colType                     column = "type"
	colDecision                 column = "decision"
	colProsecutorsOffice        column = "prosecutors_office_id"
	colSharedOffice             column = "shared_with_prosecutors_office_id"
	colCourt                    column = "court_id"
	colHeightenedSecurity       column = "is_heightened_security_level"
	colCreatingProsecutor       column = "creating_prosecutor_id"
	colProsecutor               column = "prosecutor_id"
	colAccusedAppealDecision    column = "accused_appeal_decision"
	colProsecutorAppealDecision column = "prosecutor_appeal_decision"
	colAccusedPostponedDate     column = "accused_postponed_appeal_date"
	colProsecutorPostponedDate  column = "prosecutor_postponed_appeal_date"
)

// value extracts the column's current value from a case snapshot; null
// mirrors SQL NULL for optional columns.
func (c column) value(cs *models.Case) (value interface{}, null bool) {
	switch c {
	case colIsArchived:
		return cs.IsArchived, false
	case colState:
		return string(cs.State), false
	case colType:
		return string(cs.Type), false
	case colDecision:
		if cs.Decision == nil {
			return nil, true
		}
		return string(*cs.Decision), false
	case colProsecutorsOffice:
		return cs.ProsecutorsOfficeID, false
	case colSharedOffice:
		if cs.SharedWithProsecutorsOfficeID == nil {
			return nil, true
		}
		return *cs.SharedWithProsecutorsOfficeID, false
	case colCourt:
		if cs.CourtID == nil {
			return nil, true
		}
		return *cs.CourtID, false
	case colHeightenedSecurity:
		return cs.IsHeightenedSecurityLevel, false
	case colCreatingProsecutor:
		return cs.CreatingProsecutorID, false
	case colProsecutor:
		if cs.ProsecutorID == nil {
			return nil, true
		}
		return *cs.ProsecutorID, false
	case colAccusedAppealDecision:
		if cs.AccusedAppealDecision == nil {
			return nil, true
		}
		return string(*cs.AccusedAppealDecision), false
	case colProsecutorAppealDecision:
		if cs.ProsecutorAppealDecision == nil {
			return nil, true
		}
		return string(*cs.ProsecutorAppealDecision), false
	case colAccusedPostponedDate:
		if cs.AccusedPostponedAppealDate == nil {
			return nil, true
		}
		return *cs.AccusedPostponedAppealDate, false
	case colProsecutorPostponedDate:
		if cs.ProsecutorPostponedAppealDate == nil {
			return nil, true
		}
		return *cs.ProsecutorPostponedAppealDate, false
	default:
		return nil, true
	}
}

type eqExpr struct {
	col column
	val interface{}
}

func (e eqExpr) sql(b *sqlBuilder) string {
	return fmt.Sprintf("%s = %s", e.col, b.bind(e.val))
}

func (e eqExpr) Match(c *models.Case) bool {
	value, null := e.col.value(c)
	return !null && value == e.val
}

// neqExpr is the negation of equality with SQL NULL treated as "not equal",
// rendered with IS DISTINCT FROM so the SQL and in-memory semantics agree.
type neqExpr struct {
	col column
	val interface{}
}

func (e neqExpr) sql(b *sqlBuilder) string {
	return fmt.Sprintf("%s IS DISTINCT FROM %s", e.col, b.bind(e.val))
}

func (e neqExpr) Match(c *models.Case) bool {
	value, null := e.col.value(c)
	return null || value != e.val
}

type inExpr struct {
	col  column
	vals []string
}

func (e inExpr) sql(b *sqlBuilder) string {
	placeholders := make([]string, len(e.vals))
	for i, v := range e.vals {
		placeholders[i] = b.bind(v)
	}
	return fmt.Sprintf("%s IN (%s)", e.col, strings.Join(placeholders, ", "))
}

func (e inExpr) Match(c *models.Case) bool {
	value, null := e.col.value(c)
	if null {
		return false
	}
	for _, v := range e.vals {
		if value == v {
			return true
		}
	}
	return false
}

type notNullExpr struct {
	col column
}

func (e notNullExpr) sql(b *sqlBuilder) string {
	return fmt.Sprintf("%s IS NOT NULL", e.col)
}

func (e notNullExpr) Match(c *models.Case) bool {
	_, null := e.col.value(c)
	return !null
}

type andExpr []Expr

func (e andExpr) sql(b *sqlBuilder) string {
	parts := make([]string, len(e))
	for i, sub := range e {
		parts[i] = sub.sql(b)
	}
	return "(" + strings.Join(parts, " AND ") + ")"
}

func (e andExpr) Match(c *models.Case) bool {
	for _, sub := range e {
		if !sub.Match(c) {
			return false
		}
	}
	return true
}

type orExpr []Expr

func (e orExpr) sql(b *sqlBuilder) string {
	parts := make([]string, len(e))
	for i, sub := range e {
		parts[i] = sub.sql(b)
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

func (e orExpr) Match(c *models.Case) bool {
	for _, sub := range e {
		if sub.Match(c) {
			return true
		}
	}
	return false
}

// noneExpr matches nothing; it is the predicate for roles the policy never
// admits.
type noneExpr struct{}

func (noneExpr) sql(*sqlBuilder) string  { return "FALSE" }
func (noneExpr) Match(*models.Case) bool { return false }

func eq(col column, val interface{}) Expr { return eqExpr{col: col, val: val} }
func neq(col column, val string) Expr     { return neqExpr{col: col, val: val} }
func notNull(col column) Expr             { return notNullExpr{col: col} }

func inStates(col column, states []models.CaseState) Expr {
	vals := make([]string, len(states))
	for i, s := range states {
		vals[i] = string(s)
	}
	return inExpr{col: col, vals: vals}
}

func inTypes(col column, types []models.CaseType) Expr {
	vals := make([]string, len(types))
	for i, t := range types {
		vals[i] = string(t)
	}
	return inExpr{col: col, vals: vals}
}

// BuildReadFilter derives the declarative predicate equivalent to "CanAccess
// with Read would allow this actor to see the case". It mirrors the engine
// family by family so list results and single-record checks cannot diverge.
func BuildReadFilter(actor *models.Actor) Expr {
	if actor == nil {
		return noneExpr{}
	}

	notArchived := eq(colIsArchived, false)

	switch {
	case isProsecutionActor(actor):
		return andExpr{
			notArchived,
			inStates(colState, prosecutionVisibleStates),
			orExpr{
				eq(colProsecutorsOffice, actor.InstitutionID),
				eq(colSharedOffice, actor.InstitutionID),
			},
			orExpr{
				eq(colHeightenedSecurity, false),
				eq(colCreatingProsecutor, actor.ID),
				eq(colProsecutor, actor.ID),
			},
		}
	case isDistrictCourtActor(actor):
		return andExpr{
			notArchived,
			inStates(colState, districtCourtVisibleStates),
			eq(colCourt, actor.InstitutionID),
		}
	case isAppealsCourtActor(actor):
		return andExpr{
			notArchived,
			inStates(colState, appealsCourtVisibleStates),
			orExpr{
				eq(colAccusedAppealDecision, string(models.CaseAppealDecisionAppeal)),
				eq(colProsecutorAppealDecision, string(models.CaseAppealDecisionAppeal)),
				notNull(colAccusedPostponedDate),
				notNull(colProsecutorPostponedDate),
			},
		}
	case isPrisonStaffActor(actor):
		return andExpr{
			notArchived,
			inStates(colState, prisonVisibleStates),
			inTypes(colType, prisonStaffTypes),
			neq(colDecision, string(models.CaseDecisionAcceptingAlternativeTravelBan)),
		}
	case isPrisonAdminActor(actor):
		return andExpr{
			notArchived,
			inStates(colState, prisonVisibleStates),
			inTypes(colType, prisonAdminReadTypes),
		}
	default:
		return noneExpr{}
	}
}
