package service

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/justikon/jcm-api/internal/dto"
	"github.com/justikon/jcm-api/internal/lifecycle"
	"github.com/justikon/jcm-api/internal/models"
	"github.com/justikon/jcm-api/internal/policy"
	"github.com/justikon/jcm-api/internal/repository"
	appErrors "github.com/justikon/jcm-api/pkg/errors"
)

type caseStore interface {
	Create(ctx context.Context, c *models.Case) error
	GetByID(ctx context.Context, id string) (*models.Case, error)
	ListVisible(ctx context.Context, actor *models.Actor, filter models.CaseFilter) ([]models.Case, error)
	ApplyTransition(ctx context.Context, params repository.TransitionParams) error
	Update(ctx context.Context, params repository.UpdateCaseParams) error
	SetAppealDecision(ctx context.Context, params repository.AppealDecisionParams) error
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type caseListCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

type transitionNotifier interface {
	CaseTransitioned(ctx context.Context, event models.CaseEvent)
}

type accessMetrics interface {
	ObserveTransition(transition models.CaseTransition, outcome string)
	RecordAccessDenied(role models.UserRole, operation string)
	RecordCacheOperation(hit bool, duration time.Duration)
}

// CaseService orchestrates the policy gate, the lifecycle state machine and
// the optimistic commit. The policy is always consulted before anything
// mutates; a denial leaves the record untouched.
type CaseService struct {
	repo     caseStore
	audit    auditLogger
	cache    caseListCache
	notifier transitionNotifier
	metrics  accessMetrics
	logger   *zap.Logger
	cacheTTL time.Duration
}

// CaseServiceOption configures the service.
type CaseServiceOption func(*CaseService)

// WithCaseListCache enables redis-backed list caching.
func WithCaseListCache(cache caseListCache, ttl time.Duration) CaseServiceOption {
	return func(s *CaseService) {
		s.cache = cache
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithTransitionNotifier sets the dispatcher for committed transitions.
func WithTransitionNotifier(notifier transitionNotifier) CaseServiceOption {
	return func(s *CaseService) {
		if notifier != nil {
			s.notifier = notifier
		}
	}
}

// WithCaseMetrics wires domain metrics collection.
func WithCaseMetrics(metrics accessMetrics) CaseServiceOption {
	return func(s *CaseService) {
		if metrics != nil {
			s.metrics = metrics
		}
	}
}

// NewCaseService constructs the service with defaults.
func NewCaseService(repo caseStore, audit auditLogger, logger *zap.Logger, opts ...CaseServiceOption) *CaseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &CaseService{
		repo:     repo,
		audit:    audit,
		logger:   logger,
		cacheTTL: 30 * time.Second,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Create opens a new case owned by the requesting prosecutor. Indictments
// start life in DRAFT, every other type in NEW.
func (s *CaseService) Create(ctx context.Context, req dto.CreateCaseRequest, actor *models.Actor) (*models.Case, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.InstitutionType != models.InstitutionTypeProsecutorsOffice ||
		(actor.Role != models.RoleProsecutor && actor.Role != models.RoleProsecutorRepresentative) {
		s.recordDenied(actor, "write")
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only prosecution staff may create cases")
	}
	if !validCaseType(req.Type) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported case type")
	}
	if strings.TrimSpace(req.PoliceCaseNumber) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "police case number is required")
	}

	state := models.CaseStateNew
	if models.IsIndictmentCaseType(req.Type) {
		state = models.CaseStateDraft
	}

	c := &models.Case{
		Type:                 req.Type,
		State:                state,
		Description:          strings.TrimSpace(req.Description),
		PoliceCaseNumber:     strings.TrimSpace(req.PoliceCaseNumber),
		CreatingProsecutorID: actor.ID,
		ProsecutorsOfficeID:  actor.InstitutionID,
		CourtID:              req.CourtID,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create case")
	}

	s.invalidateListCache(ctx)
	s.emitAudit(ctx, actor, models.AuditActionCaseCreate, c.ID, nil, mustJSON(c))
	return c, nil
}

// Get returns a case after the read policy gate.
func (s *CaseService) Get(ctx context.Context, id string, actor *models.Actor) (*models.Case, error) {
	c, err := s.loadCase(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanAccess(c, actor, policy.Read) {
		s.recordDenied(actor, "read")
		return nil, appErrors.ErrForbidden
	}
	return c, nil
}

// List returns the cases visible to the actor. Results are cached per actor
// and query shape for a short TTL.
func (s *CaseService) List(ctx context.Context, query dto.CaseQuery, actor *models.Actor) ([]models.Case, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}

	filter := models.CaseFilter{
		States:           query.States,
		Types:            query.Types,
		PoliceCaseNumber: query.PoliceCaseNumber,
		Limit:            query.Limit,
		Offset:           query.Offset,
	}

	key := s.listCacheKey(actor, filter)
	if s.cache != nil {
		start := time.Now()
		var cached []models.Case
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			if s.metrics != nil {
				s.metrics.RecordCacheOperation(true, time.Since(start))
			}
			return cached, nil
		}
		if s.metrics != nil {
			s.metrics.RecordCacheOperation(false, time.Since(start))
		}
	}

	cases, err := s.repo.ListVisible(ctx, actor, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list cases")
	}
	if cases == nil {
		cases = []models.Case{}
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, cases, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache case list", zap.Error(err))
		}
	}
	return cases, nil
}

// Update edits mutable case fields behind the write policy gate.
func (s *CaseService) Update(ctx context.Context, id string, req dto.UpdateCaseRequest, actor *models.Actor) (*models.Case, error) {
	c, err := s.loadCase(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanAccess(c, actor, policy.Write) {
		s.recordDenied(actor, "write")
		return nil, appErrors.ErrForbidden
	}

	before := mustJSON(c)
	params := repository.UpdateCaseParams{
		ID:                            c.ID,
		Description:                   req.Description,
		PoliceCaseNumber:              req.PoliceCaseNumber,
		ProsecutorID:                  req.ProsecutorID,
		SharedWithProsecutorsOfficeID: req.SharedWithProsecutorsOfficeID,
		CourtID:                       req.CourtID,
		IsHeightenedSecurityLevel:     req.IsHeightenedSecurityLevel,
	}
	if err := s.repo.Update(ctx, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update case")
	}

	updated, err := s.loadCase(ctx, id)
	if err != nil {
		return nil, err
	}
	s.invalidateListCache(ctx)
	s.emitAudit(ctx, actor, models.AuditActionCaseUpdate, c.ID, before, mustJSON(updated))
	return updated, nil
}

// Transition runs the policy gate, evaluates the lifecycle table and commits
// the result with optimistic concurrency. A conflict means the record moved
// on since the snapshot; the caller re-fetches and re-evaluates.
func (s *CaseService) Transition(ctx context.Context, id string, req dto.TransitionCaseRequest, actor *models.Actor) (*models.Case, error) {
	c, err := s.loadCase(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanAccess(c, actor, policy.Write) {
		s.recordDenied(actor, "write")
		return nil, appErrors.ErrForbidden
	}

	decision, err := transitionDecision(req)
	if err != nil {
		return nil, err
	}

	update, err := lifecycle.Transition(req.Transition, c.State, c.AppealState)
	if err != nil {
		var illegal *lifecycle.IllegalTransitionError
		if errors.As(err, &illegal) {
			s.observeTransition(req.Transition, TransitionOutcomeIllegal)
			return nil, appErrors.Clone(appErrors.ErrIllegalTransition, illegal.Error())
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to evaluate transition")
	}

	params := repository.TransitionParams{
		ID:              c.ID,
		FromState:       c.State,
		FromAppealState: c.AppealState,
		NewState:        update.State,
		NewAppealState:  update.AppealState,
		Decision:        decision,
	}
	if err := s.repo.ApplyTransition(ctx, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.observeTransition(req.Transition, TransitionOutcomeConflict)
			return nil, appErrors.Clone(appErrors.ErrConflict, "case changed since it was read, fetch it again")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit transition")
	}
	s.observeTransition(req.Transition, TransitionOutcomeCommitted)

	before := mustJSON(c)
	event := models.CaseEvent{
		CaseID:         c.ID,
		CaseType:       c.Type,
		Transition:     req.Transition,
		OldState:       c.State,
		OldAppealState: c.AppealState,
		NewState:       c.State,
		NewAppealState: c.AppealState,
		ActorID:        actorID(actor),
		OccurredAt:     time.Now().UTC(),
	}
	if update.State != nil {
		c.State = *update.State
		event.NewState = *update.State
	}
	if update.AppealState != nil {
		c.AppealState = *update.AppealState
		event.NewAppealState = *update.AppealState
	}
	if decision != nil {
		c.Decision = decision
	}

	s.invalidateListCache(ctx)
	s.emitAudit(ctx, actor, models.AuditActionCaseTransition, c.ID, before, mustJSON(c))
	if s.notifier != nil {
		s.notifier.CaseTransitioned(ctx, event)
	}
	return c, nil
}

// RecordAppealDecision stores a party's declaration against a ruling.
func (s *CaseService) RecordAppealDecision(ctx context.Context, id string, req dto.AppealDecisionRequest, actor *models.Actor) (*models.Case, error) {
	c, err := s.loadCase(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanAccess(c, actor, policy.Write) {
		s.recordDenied(actor, "write")
		return nil, appErrors.ErrForbidden
	}
	switch req.Decision {
	case models.CaseAppealDecisionAppeal, models.CaseAppealDecisionAccept, models.CaseAppealDecisionPostpone:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported appeal decision")
	}
	if req.Decision == models.CaseAppealDecisionPostpone && req.PostponedAppealDate == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "postponed appeal date is required with POSTPONE")
	}

	params := repository.AppealDecisionParams{
		ID:                c.ID,
		ByProsecutor:      req.ByProsecutor,
		Decision:          req.Decision,
		PostponedAppealAt: req.PostponedAppealDate,
	}
	if err := s.repo.SetAppealDecision(ctx, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record appeal decision")
	}

	s.invalidateListCache(ctx)
	return s.loadCase(ctx, id)
}

func (s *CaseService) loadCase(ctx context.Context, id string) (*models.Case, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load case")
	}
	return c, nil
}

func (s *CaseService) listCacheKey(actor *models.Actor, filter models.CaseFilter) string {
	payload, _ := json.Marshal(struct {
		Actor  *models.Actor
		Filter models.CaseFilter
	}{actor, filter})
	sum := sha256.Sum256(payload)
	return fmt.Sprintf("cases:list:%s:%s", actor.ID, hex.EncodeToString(sum[:8]))
}

func (s *CaseService) invalidateListCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "cases:list:*"); err != nil {
		s.logger.Warn("failed to invalidate case list cache", zap.Error(err))
	}
}

func (s *CaseService) recordDenied(actor *models.Actor, operation string) {
	if s.metrics == nil || actor == nil {
		return
	}
	s.metrics.RecordAccessDenied(actor.Role, operation)
}

func (s *CaseService) observeTransition(transition models.CaseTransition, outcome string) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveTransition(transition, outcome)
}

func (s *CaseService) emitAudit(ctx context.Context, actor *models.Actor, action, caseID string, oldValues, newValues []byte) {
	if s.audit == nil {
		return
	}
	log := &models.AuditLog{
		Action:     action,
		Resource:   "case",
		ResourceID: &caseID,
		OldValues:  oldValues,
		NewValues:  newValues,
		IPAddress:  "system",
		UserAgent:  "case-service",
	}
	if actor != nil {
		id := actor.ID
		log.UserID = &id
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}

func actorID(actor *models.Actor) string {
	if actor == nil {
		return ""
	}
	return actor.ID
}

func mustJSON(v interface{}) []byte {
	payload, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return payload
}

// transitionDecision validates the decision payload against the requested
// transition. REJECT and DISMISS imply their decision; ACCEPT requires an
// explicit accepting variant.
func transitionDecision(req dto.TransitionCaseRequest) (*models.CaseDecision, error) {
	switch req.Transition {
	case models.TransitionAccept:
		if req.Decision == nil {
			d := models.CaseDecisionAccepting
			return &d, nil
		}
		switch *req.Decision {
		case models.CaseDecisionAccepting, models.CaseDecisionAcceptingPartially, models.CaseDecisionAcceptingAlternativeTravelBan:
			return req.Decision, nil
		default:
			return nil, appErrors.Clone(appErrors.ErrValidation, "decision must be an accepting variant")
		}
	case models.TransitionReject:
		if req.Decision != nil && *req.Decision != models.CaseDecisionRejecting {
			return nil, appErrors.Clone(appErrors.ErrValidation, "REJECT implies a rejecting decision")
		}
		d := models.CaseDecisionRejecting
		return &d, nil
	case models.TransitionDismiss:
		if req.Decision != nil && *req.Decision != models.CaseDecisionDismissing {
			return nil, appErrors.Clone(appErrors.ErrValidation, "DISMISS implies a dismissing decision")
		}
		d := models.CaseDecisionDismissing
		return &d, nil
	default:
		if req.Decision != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "decision is only valid with ACCEPT, REJECT or DISMISS")
		}
		return nil, nil
	}
}

func validCaseType(t models.CaseType) bool {
	for _, group := range [][]models.CaseType{
		models.RestrictionCaseTypes,
		models.InvestigationCaseTypes,
		models.IndictmentCaseTypes,
	} {
		for _, ct := range group {
			if ct == t {
				return true
			}
		}
	}
	return false
}
