package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/justikon/jcm-api/internal/models"
)

func strPtr(s string) *string { return &s }

func decisionPtr(d models.CaseDecision) *models.CaseDecision { return &d }

func appealDecisionPtr(d models.CaseAppealDecision) *models.CaseAppealDecision { return &d }

func prosecutorActor(id, officeID string) *models.Actor {
	return &models.Actor{
		ID:              id,
		Role:            models.RoleProsecutor,
		InstitutionID:   officeID,
		InstitutionType: models.InstitutionTypeProsecutorsOffice,
	}
}

func courtActor(role models.UserRole, courtID string, instType models.InstitutionType) *models.Actor {
	return &models.Actor{
		ID:              "court-user",
		Role:            role,
		InstitutionID:   courtID,
		InstitutionType: instType,
	}
}

func prisonActor(instType models.InstitutionType) *models.Actor {
	return &models.Actor{
		ID:              "prison-user",
		Role:            models.RolePrisonStaff,
		InstitutionID:   "prison-1",
		InstitutionType: instType,
	}
}

func baseCase() *models.Case {
	return &models.Case{
		ID:                   "case-1",
		Type:                 models.CaseTypeCustody,
		State:                models.CaseStateReceived,
		CreatingProsecutorID: "pros-x",
		ProsecutorsOfficeID:  "office-a",
		CourtID:              strPtr("court-1"),
	}
}

func TestProsecutionSharingGrantsReadOnly(t *testing.T) {
	c := baseCase()
	c.SharedWithProsecutorsOfficeID = strPtr("office-b")
	actor := prosecutorActor("pros-z", "office-b")

	require.True(t, CanAccess(c, actor, Read))
	require.False(t, CanAccess(c, actor, Write))
}

func TestProsecutionOwnOfficeReadsAndWrites(t *testing.T) {
	c := baseCase()
	actor := prosecutorActor("pros-z", "office-a")

	require.True(t, CanAccess(c, actor, Read))
	require.True(t, CanAccess(c, actor, Write))
}

func TestHeightenedSecurityBlocksOfficeColleague(t *testing.T) {
	c := baseCase()
	c.IsHeightenedSecurityLevel = true
	c.ProsecutorID = strPtr("pros-assigned")

	colleague := prosecutorActor("pros-y", "office-a")
	require.False(t, CanAccess(c, colleague, Read))
	require.False(t, CanAccess(c, colleague, Write))

	creator := prosecutorActor("pros-x", "office-a")
	require.True(t, CanAccess(c, creator, Read))
	require.True(t, CanAccess(c, creator, Write))

	assigned := prosecutorActor("pros-assigned", "office-a")
	require.True(t, CanAccess(c, assigned, Read))
	require.True(t, CanAccess(c, assigned, Write))
}

func TestDistrictCourtRequiresOwnCourt(t *testing.T) {
	c := baseCase()
	ownCourt := courtActor(models.RoleJudge, "court-1", models.InstitutionTypeDistrictCourt)
	otherCourt := courtActor(models.RoleRegistrar, "court-2", models.InstitutionTypeDistrictCourt)

	require.True(t, CanAccess(c, ownCourt, Read))
	require.True(t, CanAccess(c, ownCourt, Write))
	require.False(t, CanAccess(c, otherCourt, Read))
}

func TestDistrictCourtNeverSeesUnsubmittedCases(t *testing.T) {
	actor := courtActor(models.RoleJudge, "court-1", models.InstitutionTypeDistrictCourt)
	for _, state := range []models.CaseState{
		models.CaseStateNew,
		models.CaseStateDraft,
		models.CaseStateWaitingForConfirmation,
		models.CaseStateDeleted,
	} {
		c := baseCase()
		c.State = state
		require.False(t, CanAccess(c, actor, Read), "state %s", state)
	}
}

func TestAppealsCourtReadsAppealedRulingsOnly(t *testing.T) {
	actor := courtActor(models.RoleJudge, "appeals-1", models.InstitutionTypeCourtOfAppeals)

	c := baseCase()
	c.State = models.CaseStateAccepted
	require.False(t, CanAccess(c, actor, Read), "no appeal recorded")

	c.AccusedAppealDecision = appealDecisionPtr(models.CaseAppealDecisionAppeal)
	require.True(t, CanAccess(c, actor, Read))
	require.False(t, CanAccess(c, actor, Write), "appellate exception is read-only")

	postponed := baseCase()
	postponed.State = models.CaseStateRejected
	now := time.Now().UTC()
	postponed.ProsecutorPostponedAppealDate = &now
	require.True(t, CanAccess(postponed, actor, Read))

	undecided := baseCase()
	undecided.State = models.CaseStateReceived
	undecided.AccusedAppealDecision = appealDecisionPtr(models.CaseAppealDecisionAppeal)
	require.False(t, CanAccess(undecided, actor, Read), "terminal states only")
}

func TestPrisonStaffSeesAcceptedCustodyOnly(t *testing.T) {
	staff := prisonActor(models.InstitutionTypePrison)

	c := baseCase()
	c.State = models.CaseStateAccepted
	c.Decision = decisionPtr(models.CaseDecisionAccepting)
	require.True(t, CanAccess(c, staff, Read))

	c.State = models.CaseStateReceived
	require.False(t, CanAccess(c, staff, Read), "only accepted cases reach the prison")

	travelBan := baseCase()
	travelBan.Type = models.CaseTypeTravelBan
	travelBan.State = models.CaseStateAccepted
	require.False(t, CanAccess(travelBan, staff, Read), "travel bans are not served in prison")

	indictment := baseCase()
	indictment.Type = models.CaseTypeIndictment
	indictment.State = models.CaseStateAccepted
	require.False(t, CanAccess(indictment, staff, Read))
}

func TestAlternativeTravelBanDecisionHiddenFromPrisonStaff(t *testing.T) {
	c := baseCase()
	c.State = models.CaseStateAccepted
	c.Decision = decisionPtr(models.CaseDecisionAcceptingAlternativeTravelBan)

	require.False(t, CanAccess(c, prisonActor(models.InstitutionTypePrison), Read))
	require.True(t, CanAccess(c, prisonActor(models.InstitutionTypePrisonAdmin), Read))
}

func TestPrisonAdminTravelBanReadOnly(t *testing.T) {
	admin := prisonActor(models.InstitutionTypePrisonAdmin)

	travelBan := baseCase()
	travelBan.Type = models.CaseTypeTravelBan
	travelBan.State = models.CaseStateAccepted
	require.True(t, CanAccess(travelBan, admin, Read))
	require.False(t, CanAccess(travelBan, admin, Write))

	custody := baseCase()
	custody.State = models.CaseStateAccepted
	require.True(t, CanAccess(custody, admin, Write))
}

func TestUnmappedRolesAreAlwaysBlocked(t *testing.T) {
	c := baseCase()
	for _, actor := range []*models.Actor{
		{ID: "adm", Role: models.RoleAdmin, InstitutionID: "office-a", InstitutionType: models.InstitutionTypeProsecutorsOffice},
		{ID: "def", Role: models.RoleDefender, InstitutionID: "firm-1", InstitutionType: models.InstitutionTypeDistrictCourt},
		{ID: "judge-at-prison", Role: models.RoleJudge, InstitutionID: "prison-1", InstitutionType: models.InstitutionTypePrison},
	} {
		require.False(t, CanAccess(c, actor, Read), "role %s at %s", actor.Role, actor.InstitutionType)
		require.False(t, CanAccess(c, actor, Write))
	}
}

func TestArchivedCasesAreInvisibleToEveryone(t *testing.T) {
	for _, actor := range allTestActors() {
		for _, c := range caseGrid() {
			c.IsArchived = true
			require.False(t, CanAccess(c, actor, Read), "actor %s/%s", actor.Role, actor.InstitutionType)
			require.False(t, CanAccess(c, actor, Write))
		}
	}
}

func TestWriteImpliesRead(t *testing.T) {
	for _, actor := range allTestActors() {
		for _, c := range caseGrid() {
			if CanAccess(c, actor, Write) {
				require.True(t, CanAccess(c, actor, Read),
					"write granted without read: actor %s/%s case state=%s type=%s",
					actor.Role, actor.InstitutionType, c.State, c.Type)
			}
		}
	}
}
