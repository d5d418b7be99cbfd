// Package policy decides who may read or write a case, and derives the
// equivalent list-query predicate. Both halves are pure functions over
// immutable actor/case snapshots; they must stay semantically in lockstep,
// which TestFilterMatchesEngine pins down.
package policy

import "github.com/justikon/jcm-api/internal/models"

// Operation selects the read or the write path of the policy. Write is always
// at least as strict as read.
type Operation int

const (
	Read Operation = iota
	Write
)

// State allow-lists per actor category. A case whose state is not in the
// actor's list is invisible for both operations.
var (
	prosecutionVisibleStates = []models.CaseState{
		models.CaseStateNew,
		models.CaseStateWaitingForConfirmation,
		models.CaseStateDraft,
		models.CaseStateSubmitted,
		models.CaseStateReceived,
		models.CaseStateMainHearing,
		models.CaseStateAccepted,
		models.CaseStateRejected,
		models.CaseStateDismissed,
	}
	districtCourtVisibleStates = []models.CaseState{
		models.CaseStateSubmitted,
		models.CaseStateReceived,
		models.CaseStateMainHearing,
		models.CaseStateAccepted,
		models.CaseStateRejected,
		models.CaseStateDismissed,
	}
	appealsCourtVisibleStates = []models.CaseState{
		models.CaseStateAccepted,
		models.CaseStateRejected,
		models.CaseStateDismissed,
	}
	prisonVisibleStates = []models.CaseState{
		models.CaseStateAccepted,
	}
)

// Case types custodial institutions may handle. The prison administration may
// additionally read travel-ban cases but never write them.
var (
	prisonStaffTypes = []models.CaseType{
		models.CaseTypeCustody,
		models.CaseTypeAdmissionToFacility,
	}
	prisonAdminReadTypes = []models.CaseType{
		models.CaseTypeCustody,
		models.CaseTypeAdmissionToFacility,
		models.CaseTypeTravelBan,
	}
)

func isProsecutionActor(actor *models.Actor) bool {
	if actor.InstitutionType != models.InstitutionTypeProsecutorsOffice {
		return false
	}
	return actor.Role == models.RoleProsecutor || actor.Role == models.RoleProsecutorRepresentative
}

func isCourtRole(role models.UserRole) bool {
	return role == models.RoleJudge || role == models.RoleRegistrar || role == models.RoleAssistant
}

func isDistrictCourtActor(actor *models.Actor) bool {
	return actor.InstitutionType == models.InstitutionTypeDistrictCourt && isCourtRole(actor.Role)
}

func isAppealsCourtActor(actor *models.Actor) bool {
	return actor.InstitutionType == models.InstitutionTypeCourtOfAppeals && isCourtRole(actor.Role)
}

func isPrisonStaffActor(actor *models.Actor) bool {
	return actor.InstitutionType == models.InstitutionTypePrison && actor.Role == models.RolePrisonStaff
}

func isPrisonAdminActor(actor *models.Actor) bool {
	return actor.InstitutionType == models.InstitutionTypePrisonAdmin && actor.Role == models.RolePrisonStaff
}

func stateVisible(states []models.CaseState, state models.CaseState) bool {
	for _, s := range states {
		if s == state {
			return true
		}
	}
	return false
}

func typeAllowed(types []models.CaseType, t models.CaseType) bool {
	for _, ct := range types {
		if ct == t {
			return true
		}
	}
	return false
}

// CanAccess reports whether the actor may perform op on the case. Archived
// cases are rejected before anything else; every other check depends on the
// actor category, and only the sharing, appellate and custodial-type rules
// distinguish read from write.
func CanAccess(c *models.Case, actor *models.Actor, op Operation) bool {
	if c == nil || actor == nil {
		return false
	}
	if c.IsArchived {
		return false
	}

	switch {
	case isProsecutionActor(actor):
		return prosecutionCanAccess(c, actor, op)
	case isDistrictCourtActor(actor):
		return districtCourtCanAccess(c, actor)
	case isAppealsCourtActor(actor):
		return appealsCourtCanAccess(c, op)
	case isPrisonStaffActor(actor):
		return prisonStaffCanAccess(c)
	case isPrisonAdminActor(actor):
		return prisonAdminCanAccess(c, op)
	default:
		// Roles with no case-domain mapping (admin, defender) never pass
		// through this policy.
		return false
	}
}

func prosecutionCanAccess(c *models.Case, actor *models.Actor, op Operation) bool {
	if !stateVisible(prosecutionVisibleStates, c.State) {
		return false
	}

	ownOffice := c.ProsecutorsOfficeID == actor.InstitutionID
	sharedWithOffice := c.SharedWithProsecutorsOfficeID != nil &&
		*c.SharedWithProsecutorsOfficeID == actor.InstitutionID

	switch op {
	case Write:
		// Sharing extends reading only; the shared office never writes.
		if !ownOffice {
			return false
		}
	default:
		if !ownOffice && !sharedWithOffice {
			return false
		}
	}

	if c.IsHeightenedSecurityLevel {
		// Office membership is not enough; only the two named prosecutors
		// may touch the case.
		if actor.ID != c.CreatingProsecutorID {
			if c.ProsecutorID == nil || *c.ProsecutorID != actor.ID {
				return false
			}
		}
	}
	return true
}

func districtCourtCanAccess(c *models.Case, actor *models.Actor) bool {
	if !stateVisible(districtCourtVisibleStates, c.State) {
		return false
	}
	return c.CourtID != nil && *c.CourtID == actor.InstitutionID
}

func appealsCourtCanAccess(c *models.Case, op Operation) bool {
	if op == Write {
		// The appellate exception never grants write access.
		return false
	}
	if !stateVisible(appealsCourtVisibleStates, c.State) {
		return false
	}
	return c.HasBeenAppealed()
}

func prisonStaffCanAccess(c *models.Case) bool {
	if !stateVisible(prisonVisibleStates, c.State) {
		return false
	}
	if !typeAllowed(prisonStaffTypes, c.Type) {
		return false
	}
	// A custody ruling converted to an alternative travel ban is not served
	// in prison, so plain prison staff never see it.
	if c.Decision != nil && *c.Decision == models.CaseDecisionAcceptingAlternativeTravelBan {
		return false
	}
	return true
}

func prisonAdminCanAccess(c *models.Case, op Operation) bool {
	if !stateVisible(prisonVisibleStates, c.State) {
		return false
	}
	if op == Write {
		return typeAllowed(prisonStaffTypes, c.Type)
	}
	return typeAllowed(prisonAdminReadTypes, c.Type)
}
