package policy

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/justikon/jcm-api/internal/models"
)

// allTestActors covers every actor category the policy distinguishes plus the
// unmapped roles it must block.
func allTestActors() []*models.Actor {
	return []*models.Actor{
		prosecutorActor("pros-x", "office-a"),
		prosecutorActor("pros-y", "office-a"),
		prosecutorActor("pros-assigned", "office-a"),
		prosecutorActor("pros-z", "office-b"),
		{
			ID:              "rep-1",
			Role:            models.RoleProsecutorRepresentative,
			InstitutionID:   "office-a",
			InstitutionType: models.InstitutionTypeProsecutorsOffice,
		},
		courtActor(models.RoleJudge, "court-1", models.InstitutionTypeDistrictCourt),
		courtActor(models.RoleRegistrar, "court-1", models.InstitutionTypeDistrictCourt),
		courtActor(models.RoleAssistant, "court-2", models.InstitutionTypeDistrictCourt),
		courtActor(models.RoleJudge, "appeals-1", models.InstitutionTypeCourtOfAppeals),
		courtActor(models.RoleRegistrar, "appeals-1", models.InstitutionTypeCourtOfAppeals),
		prisonActor(models.InstitutionTypePrison),
		prisonActor(models.InstitutionTypePrisonAdmin),
		{ID: "adm", Role: models.RoleAdmin, InstitutionID: "office-a", InstitutionType: models.InstitutionTypeProsecutorsOffice},
		{ID: "def", Role: models.RoleDefender, InstitutionID: "firm-1", InstitutionType: models.InstitutionTypeDistrictCourt},
	}
}

// caseGrid enumerates case attribute combinations across every axis the
// policy inspects.
func caseGrid() []*models.Case {
	states := []models.CaseState{
		models.CaseStateNew,
		models.CaseStateWaitingForConfirmation,
		models.CaseStateDraft,
		models.CaseStateSubmitted,
		models.CaseStateReceived,
		models.CaseStateMainHearing,
		models.CaseStateAccepted,
		models.CaseStateRejected,
		models.CaseStateDismissed,
		models.CaseStateDeleted,
	}
	types := []models.CaseType{
		models.CaseTypeCustody,
		models.CaseTypeTravelBan,
		models.CaseTypeAdmissionToFacility,
		models.CaseTypeSearchWarrant,
		models.CaseTypeIndictment,
	}
	decisions := []*models.CaseDecision{
		nil,
		decisionPtr(models.CaseDecisionAccepting),
		decisionPtr(models.CaseDecisionAcceptingAlternativeTravelBan),
		decisionPtr(models.CaseDecisionRejecting),
	}
	sharedWith := []*string{nil, strPtr("office-b"), strPtr("office-c")}
	courts := []*string{nil, strPtr("court-1"), strPtr("court-2")}
	assigned := []*string{nil, strPtr("pros-assigned")}
	postponed := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	appealMarks := []func(c *models.Case){
		func(*models.Case) {},
		func(c *models.Case) { c.AccusedAppealDecision = appealDecisionPtr(models.CaseAppealDecisionAppeal) },
		func(c *models.Case) { c.ProsecutorAppealDecision = appealDecisionPtr(models.CaseAppealDecisionAccept) },
		func(c *models.Case) { c.ProsecutorPostponedAppealDate = &postponed },
	}

	var cases []*models.Case
	id := 0
	for _, state := range states {
		for _, caseType := range types {
			for _, decision := range decisions {
				for _, shared := range sharedWith {
					for _, court := range courts {
						for _, prosecutor := range assigned {
							for _, heightened := range []bool{false, true} {
								for _, mark := range appealMarks {
									id++
									c := &models.Case{
										ID:                            fmt.Sprintf("case-%d", id),
										Type:                          caseType,
										State:                         state,
										Decision:                      decision,
										CreatingProsecutorID:          "pros-x",
										ProsecutorsOfficeID:           "office-a",
										ProsecutorID:                  prosecutor,
										SharedWithProsecutorsOfficeID: shared,
										CourtID:                       court,
										IsHeightenedSecurityLevel:     heightened,
									}
									mark(c)
									cases = append(cases, c)
								}
							}
						}
					}
				}
			}
		}
	}
	return cases
}

// TestFilterMatchesEngine is the equivalence property: the list-query
// predicate must admit exactly the cases the engine's read path admits.
func TestFilterMatchesEngine(t *testing.T) {
	grid := caseGrid()
	for _, actor := range allTestActors() {
		filter := BuildReadFilter(actor)
		for _, c := range grid {
			want := CanAccess(c, actor, Read)
			got := filter.Match(c)
			require.Equal(t, want, got,
				"filter diverges from engine: actor %s/%s case %s (state=%s type=%s archived=%v)",
				actor.Role, actor.InstitutionType, c.ID, c.State, c.Type, c.IsArchived)
		}
	}
}

func TestFilterExcludesArchivedCases(t *testing.T) {
	for _, actor := range allTestActors() {
		filter := BuildReadFilter(actor)
		for _, c := range caseGrid() {
			c.IsArchived = true
			require.False(t, filter.Match(c))
		}
	}
}

func TestBuildReadFilterSQLProsecutor(t *testing.T) {
	filter := BuildReadFilter(prosecutorActor("pros-x", "office-a"))
	clause, args := ToSQL(filter, 1)

	require.Contains(t, clause, "is_archived = $1")
	require.Contains(t, clause, "state IN (")
	require.Contains(t, clause, "prosecutors_office_id = $")
	require.Contains(t, clause, "shared_with_prosecutors_office_id = $")
	require.Contains(t, clause, "is_heightened_security_level = $")
	require.Equal(t, strings.Count(clause, "$"), len(args))
	require.Equal(t, false, args[0])
}

func TestBuildReadFilterSQLPlaceholderOffset(t *testing.T) {
	filter := BuildReadFilter(prisonActor(models.InstitutionTypePrison))
	clause, args := ToSQL(filter, 3)

	require.Contains(t, clause, "is_archived = $3")
	require.Contains(t, clause, "decision IS DISTINCT FROM $")
	require.NotContains(t, clause, "$1")
	require.NotContains(t, clause, "$2")
	require.Len(t, args, strings.Count(clause, "$"))
}

func TestBuildReadFilterUnmappedRolesMatchNothing(t *testing.T) {
	filter := BuildReadFilter(&models.Actor{ID: "adm", Role: models.RoleAdmin})
	clause, args := ToSQL(filter, 1)
	require.Equal(t, "FALSE", clause)
	require.Empty(t, args)
	require.False(t, filter.Match(baseCase()))
}
