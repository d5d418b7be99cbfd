package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/justikon/jcm-api/internal/dto"
	"github.com/justikon/jcm-api/internal/models"
	appErrors "github.com/justikon/jcm-api/pkg/errors"
)

type userStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
}

var validUserRoles = map[models.UserRole]bool{
	models.RoleProsecutor:               true,
	models.RoleProsecutorRepresentative: true,
	models.RoleJudge:                    true,
	models.RoleRegistrar:                true,
	models.RoleAssistant:                true,
	models.RolePrisonStaff:              true,
	models.RoleAdmin:                    true,
	models.RoleDefender:                 true,
}

var validInstitutionTypes = map[models.InstitutionType]bool{
	models.InstitutionTypeProsecutorsOffice: true,
	models.InstitutionTypeDistrictCourt:     true,
	models.InstitutionTypeCourtOfAppeals:    true,
	models.InstitutionTypePrison:            true,
	models.InstitutionTypePrisonAdmin:       true,
}

// UserService provides account administration use cases. Route-level audit
// logging for these is handled by the audit middleware.
type UserService struct {
	repo      userStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService constructs a UserService instance.
func NewUserService(repo userStore, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{repo: repo, validator: validate, logger: logger}
}

// List returns users matching the query with pagination metadata.
func (s *UserService) List(ctx context.Context, query dto.UserQuery) ([]models.User, *models.Pagination, error) {
	filter := models.UserFilter{
		Role:          query.Role,
		InstitutionID: query.InstitutionID,
		Active:        query.Active,
		Search:        query.Search,
		Page:          query.Page,
		PageSize:      query.PageSize,
	}
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}

	page := query.Page
	if page < 1 {
		page = 1
	}
	pageSize := query.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return users, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Create registers a new account with a bcrypt password hash.
func (s *UserService) Create(ctx context.Context, req dto.CreateUserRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}
	if !validUserRoles[req.Role] {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown role")
	}
	if !validInstitutionTypes[req.InstitutionType] {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown institution type")
	}

	if existing, err := s.repo.FindByEmail(ctx, req.Email); err == nil && existing != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email is already registered")
	} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		Email:           req.Email,
		PasswordHash:    string(hash),
		FullName:        req.FullName,
		Role:            req.Role,
		InstitutionID:   req.InstitutionID,
		InstitutionType: req.InstitutionType,
		Active:          true,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}
	return user, nil
}

// Update applies the non-nil fields of the request to an account.
func (s *UserService) Update(ctx context.Context, id string, req dto.UpdateUserRequest) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	if req.FullName != nil {
		user.FullName = *req.FullName
	}
	if req.Role != nil {
		if !validUserRoles[*req.Role] {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown role")
		}
		user.Role = *req.Role
	}
	if req.InstitutionID != nil {
		user.InstitutionID = *req.InstitutionID
	}
	if req.InstitutionType != nil {
		if !validInstitutionTypes[*req.InstitutionType] {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown institution type")
		}
		user.InstitutionType = *req.InstitutionType
	}
	if req.Active != nil {
		user.Active = *req.Active
	}
	user.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user")
	}
	return user, nil
}

// Deactivate soft-deletes an account so it can no longer log in.
func (s *UserService) Deactivate(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate user")
	}
	return nil
}
