package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/justikon/jcm-api/internal/dto"
	"github.com/justikon/jcm-api/internal/models"
	"github.com/justikon/jcm-api/internal/repository"
	appErrors "github.com/justikon/jcm-api/pkg/errors"
)

type mockCaseRepo struct {
	cases       map[string]models.Case
	lastFilter  models.CaseFilter
	beforeApply func()
	err         error
}

func (m *mockCaseRepo) Create(ctx context.Context, c *models.Case) error {
	if m.err != nil {
		return m.err
	}
	if m.cases == nil {
		m.cases = make(map[string]models.Case)
	}
	if c.ID == "" {
		c.ID = "generated"
	}
	c.CreatedAt = time.Now().UTC()
	c.UpdatedAt = c.CreatedAt
	m.cases[c.ID] = *c
	return nil
}

func (m *mockCaseRepo) GetByID(ctx context.Context, id string) (*models.Case, error) {
	if c, ok := m.cases[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCaseRepo) ListVisible(ctx context.Context, actor *models.Actor, filter models.CaseFilter) ([]models.Case, error) {
	m.lastFilter = filter
	if m.err != nil {
		return nil, m.err
	}
	out := make([]models.Case, 0, len(m.cases))
	for _, c := range m.cases {
		out = append(out, c)
	}
	return out, nil
}

func (m *mockCaseRepo) ApplyTransition(ctx context.Context, params repository.TransitionParams) error {
	if m.beforeApply != nil {
		m.beforeApply()
	}
	c, ok := m.cases[params.ID]
	if !ok {
		return sql.ErrNoRows
	}
	if c.State != params.FromState || c.AppealState != params.FromAppealState {
		return sql.ErrNoRows
	}
	if params.NewState != nil {
		c.State = *params.NewState
	}
	if params.NewAppealState != nil {
		c.AppealState = *params.NewAppealState
	}
	if params.Decision != nil {
		c.Decision = params.Decision
	}
	m.cases[params.ID] = c
	return nil
}

func (m *mockCaseRepo) Update(ctx context.Context, params repository.UpdateCaseParams) error {
	c, ok := m.cases[params.ID]
	if !ok {
		return sql.ErrNoRows
	}
	if params.Description != nil {
		c.Description = *params.Description
	}
	if params.CourtID != nil {
		c.CourtID = params.CourtID
	}
	if params.IsHeightenedSecurityLevel != nil {
		c.IsHeightenedSecurityLevel = *params.IsHeightenedSecurityLevel
	}
	m.cases[params.ID] = c
	return nil
}

func (m *mockCaseRepo) SetAppealDecision(ctx context.Context, params repository.AppealDecisionParams) error {
	c, ok := m.cases[params.ID]
	if !ok {
		return sql.ErrNoRows
	}
	if params.ByProsecutor {
		c.ProsecutorAppealDecision = &params.Decision
		c.ProsecutorPostponedAppealDate = params.PostponedAppealAt
	} else {
		c.AccusedAppealDecision = &params.Decision
		c.AccusedPostponedAppealDate = params.PostponedAppealAt
	}
	m.cases[params.ID] = c
	return nil
}

type mockAuditRepo struct {
	logs []models.AuditLog
}

func (m *mockAuditRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.logs = append(m.logs, *log)
	return nil
}

func testProsecutorActor() *models.Actor {
	return &models.Actor{
		ID:              "prosecutor-1",
		Role:            models.RoleProsecutor,
		InstitutionID:   "office-1",
		InstitutionType: models.InstitutionTypeProsecutorsOffice,
	}
}

func testJudgeActor(courtID string) *models.Actor {
	return &models.Actor{
		ID:              "judge-1",
		Role:            models.RoleJudge,
		InstitutionID:   courtID,
		InstitutionType: models.InstitutionTypeDistrictCourt,
	}
}

func storedCase(id string, typ models.CaseType, state models.CaseState) models.Case {
	return models.Case{
		ID:                   id,
		Type:                 typ,
		State:                state,
		PoliceCaseNumber:     "007-2023-11",
		CreatingProsecutorID: "prosecutor-1",
		ProsecutorsOfficeID:  "office-1",
		CreatedAt:            time.Now().UTC(),
		UpdatedAt:            time.Now().UTC(),
	}
}

func TestCaseServiceCreateRestrictionCase(t *testing.T) {
	repo := &mockCaseRepo{}
	audit := &mockAuditRepo{}
	svc := NewCaseService(repo, audit, zap.NewNop())

	c, err := svc.Create(context.Background(), dto.CreateCaseRequest{
		Type:             models.CaseTypeCustody,
		PoliceCaseNumber: "007-2023-11",
	}, testProsecutorActor())
	require.NoError(t, err)
	assert.Equal(t, models.CaseStateNew, c.State)
	assert.Equal(t, "office-1", c.ProsecutorsOfficeID)
	assert.Equal(t, "prosecutor-1", c.CreatingProsecutorID)
	assert.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionCaseCreate, audit.logs[0].Action)
}

func TestCaseServiceCreateIndictmentStartsAsDraft(t *testing.T) {
	repo := &mockCaseRepo{}
	svc := NewCaseService(repo, &mockAuditRepo{}, zap.NewNop())

	c, err := svc.Create(context.Background(), dto.CreateCaseRequest{
		Type:             models.CaseTypeIndictment,
		PoliceCaseNumber: "007-2023-11",
	}, testProsecutorActor())
	require.NoError(t, err)
	assert.Equal(t, models.CaseStateDraft, c.State)
}

func TestCaseServiceCreateRejectsNonProsecution(t *testing.T) {
	svc := NewCaseService(&mockCaseRepo{}, &mockAuditRepo{}, zap.NewNop())

	_, err := svc.Create(context.Background(), dto.CreateCaseRequest{
		Type:             models.CaseTypeCustody,
		PoliceCaseNumber: "007-2023-11",
	}, testJudgeActor("court-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestCaseServiceGetEnforcesReadPolicy(t *testing.T) {
	repo := &mockCaseRepo{cases: map[string]models.Case{
		"case-1": storedCase("case-1", models.CaseTypeCustody, models.CaseStateNew),
	}}
	svc := NewCaseService(repo, &mockAuditRepo{}, zap.NewNop())

	// The owning prosecutor sees the case; a court cannot before submission.
	c, err := svc.Get(context.Background(), "case-1", testProsecutorActor())
	require.NoError(t, err)
	assert.Equal(t, "case-1", c.ID)

	_, err = svc.Get(context.Background(), "case-1", testJudgeActor("court-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestCaseServiceGetArchivedIsInvisible(t *testing.T) {
	archived := storedCase("case-1", models.CaseTypeCustody, models.CaseStateNew)
	archived.IsArchived = true
	repo := &mockCaseRepo{cases: map[string]models.Case{"case-1": archived}}
	svc := NewCaseService(repo, &mockAuditRepo{}, zap.NewNop())

	_, err := svc.Get(context.Background(), "case-1", testProsecutorActor())
	require.Error(t, err)
}

func TestCaseServiceTransitionSubmit(t *testing.T) {
	repo := &mockCaseRepo{cases: map[string]models.Case{
		"case-1": storedCase("case-1", models.CaseTypeCustody, models.CaseStateDraft),
	}}
	audit := &mockAuditRepo{}
	svc := NewCaseService(repo, audit, zap.NewNop())

	c, err := svc.Transition(context.Background(), "case-1", dto.TransitionCaseRequest{
		Transition: models.TransitionSubmit,
	}, testProsecutorActor())
	require.NoError(t, err)
	assert.Equal(t, models.CaseStateSubmitted, c.State)
	assert.Equal(t, models.CaseStateSubmitted, repo.cases["case-1"].State)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionCaseTransition, audit.logs[0].Action)
}

func TestCaseServiceTransitionIllegal(t *testing.T) {
	repo := &mockCaseRepo{cases: map[string]models.Case{
		"case-1": storedCase("case-1", models.CaseTypeCustody, models.CaseStateNew),
	}}
	svc := NewCaseService(repo, &mockAuditRepo{}, zap.NewNop())

	_, err := svc.Transition(context.Background(), "case-1", dto.TransitionCaseRequest{
		Transition: models.TransitionAccept,
	}, testProsecutorActor())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrIllegalTransition.Code, appErrors.FromError(err).Code)
	// The record is untouched.
	assert.Equal(t, models.CaseStateNew, repo.cases["case-1"].State)
}

func TestCaseServiceTransitionConflict(t *testing.T) {
	repo := &mockCaseRepo{cases: map[string]models.Case{
		"case-1": storedCase("case-1", models.CaseTypeCustody, models.CaseStateDraft),
	}}
	// Another writer moves the row between the read and the commit.
	repo.beforeApply = func() {
		moved := repo.cases["case-1"]
		moved.State = models.CaseStateSubmitted
		repo.cases["case-1"] = moved
	}
	svc := NewCaseService(repo, &mockAuditRepo{}, zap.NewNop())

	_, err := svc.Transition(context.Background(), "case-1", dto.TransitionCaseRequest{
		Transition: models.TransitionSubmit,
	}, testProsecutorActor())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestCaseServiceTransitionAcceptRecordsDecision(t *testing.T) {
	c := storedCase("case-1", models.CaseTypeCustody, models.CaseStateReceived)
	c.CourtID = strPointer("court-1")
	repo := &mockCaseRepo{cases: map[string]models.Case{"case-1": c}}
	svc := NewCaseService(repo, &mockAuditRepo{}, zap.NewNop())

	decision := models.CaseDecisionAcceptingAlternativeTravelBan
	got, err := svc.Transition(context.Background(), "case-1", dto.TransitionCaseRequest{
		Transition: models.TransitionAccept,
		Decision:   &decision,
	}, testJudgeActor("court-1"))
	require.NoError(t, err)
	assert.Equal(t, models.CaseStateAccepted, got.State)
	require.NotNil(t, got.Decision)
	assert.Equal(t, models.CaseDecisionAcceptingAlternativeTravelBan, *got.Decision)
}

func TestCaseServiceTransitionRejectImpliesDecision(t *testing.T) {
	c := storedCase("case-1", models.CaseTypeCustody, models.CaseStateReceived)
	c.CourtID = strPointer("court-1")
	repo := &mockCaseRepo{cases: map[string]models.Case{"case-1": c}}
	svc := NewCaseService(repo, &mockAuditRepo{}, zap.NewNop())

	got, err := svc.Transition(context.Background(), "case-1", dto.TransitionCaseRequest{
		Transition: models.TransitionReject,
	}, testJudgeActor("court-1"))
	require.NoError(t, err)
	require.NotNil(t, got.Decision)
	assert.Equal(t, models.CaseDecisionRejecting, *got.Decision)
}

func TestCaseServiceTransitionDecisionRejectedOutsideRulings(t *testing.T) {
	repo := &mockCaseRepo{cases: map[string]models.Case{
		"case-1": storedCase("case-1", models.CaseTypeCustody, models.CaseStateNew),
	}}
	svc := NewCaseService(repo, &mockAuditRepo{}, zap.NewNop())

	decision := models.CaseDecisionAccepting
	_, err := svc.Transition(context.Background(), "case-1", dto.TransitionCaseRequest{
		Transition: models.TransitionSubmit,
		Decision:   &decision,
	}, testProsecutorActor())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCaseServiceUpdateBehindWriteGate(t *testing.T) {
	repo := &mockCaseRepo{cases: map[string]models.Case{
		"case-1": storedCase("case-1", models.CaseTypeCustody, models.CaseStateNew),
	}}
	svc := NewCaseService(repo, &mockAuditRepo{}, zap.NewNop())

	desc := "updated description"
	updated, err := svc.Update(context.Background(), "case-1", dto.UpdateCaseRequest{
		Description: &desc,
	}, testProsecutorActor())
	require.NoError(t, err)
	assert.Equal(t, desc, updated.Description)

	_, err = svc.Update(context.Background(), "case-1", dto.UpdateCaseRequest{
		Description: &desc,
	}, testJudgeActor("court-1"))
	require.Error(t, err)
}

func TestCaseServiceRecordAppealDecisionPostponeNeedsDate(t *testing.T) {
	c := storedCase("case-1", models.CaseTypeCustody, models.CaseStateAccepted)
	repo := &mockCaseRepo{cases: map[string]models.Case{"case-1": c}}
	svc := NewCaseService(repo, &mockAuditRepo{}, zap.NewNop())

	_, err := svc.RecordAppealDecision(context.Background(), "case-1", dto.AppealDecisionRequest{
		ByProsecutor: true,
		Decision:     models.CaseAppealDecisionPostpone,
	}, testProsecutorActor())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	when := time.Now().UTC().Add(72 * time.Hour)
	got, err := svc.RecordAppealDecision(context.Background(), "case-1", dto.AppealDecisionRequest{
		ByProsecutor:        true,
		Decision:            models.CaseAppealDecisionPostpone,
		PostponedAppealDate: &when,
	}, testProsecutorActor())
	require.NoError(t, err)
	assert.True(t, got.HasBeenAppealed())
}

func TestCaseServiceListWrapsFilter(t *testing.T) {
	repo := &mockCaseRepo{cases: map[string]models.Case{
		"case-1": storedCase("case-1", models.CaseTypeCustody, models.CaseStateNew),
	}}
	svc := NewCaseService(repo, &mockAuditRepo{}, zap.NewNop())

	out, err := svc.List(context.Background(), dto.CaseQuery{
		States: []models.CaseState{models.CaseStateNew},
		Limit:  10,
	}, testProsecutorActor())
	require.NoError(t, err)
	assert.Len(t, out, 1)
	assert.Equal(t, []models.CaseState{models.CaseStateNew}, repo.lastFilter.States)
	assert.Equal(t, 10, repo.lastFilter.Limit)
}

func strPointer(s string) *string { return &s }
