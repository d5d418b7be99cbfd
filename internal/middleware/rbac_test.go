package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justikon/jcm-api/internal/models"
	"github.com/justikon/jcm-api/internal/repository"
)

func withClaims(claims *models.JWTClaims) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims != nil {
			c.Set(ContextUserKey, claims)
		}
		c.Next()
	}
}

func okHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func adminClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
}

func prosecutorClaims() *models.JWTClaims {
	return &models.JWTClaims{
		UserID:          "prosecutor-1",
		Role:            models.RoleProsecutor,
		InstitutionID:   "office-1",
		InstitutionType: models.InstitutionTypeProsecutorsOffice,
	}
}

func TestRequireRolesRejectsMissingClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/admin", RequireRoles(models.RoleAdmin), okHandler)

	recorder := httptest.NewRecorder()
	r.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/admin", nil))

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestRequireRolesRejectsOtherRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/admin", withClaims(prosecutorClaims()), RequireRoles(models.RoleAdmin), okHandler)

	recorder := httptest.NewRecorder()
	r.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/admin", nil))

	assert.Equal(t, http.StatusForbidden, recorder.Code)
}

func TestRequireRolesAllowsListedRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/admin", withClaims(adminClaims()), RequireRoles(models.RoleAdmin), okHandler)

	recorder := httptest.NewRecorder()
	r.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/admin", nil))

	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestRBACSelfMatchesPathParam(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/users/:id", withClaims(prosecutorClaims()), RBAC("ADMIN", "SELF"), okHandler)

	recorder := httptest.NewRecorder()
	r.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/users/prosecutor-1", nil))
	assert.Equal(t, http.StatusOK, recorder.Code)

	recorder = httptest.NewRecorder()
	r.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/users/someone-else", nil))
	assert.Equal(t, http.StatusForbidden, recorder.Code)
}

func TestAuditRecordsSuccessfulRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()
	repo := repository.NewUserRepository(sqlx.NewDb(db, "sqlmock"))

	mock.ExpectExec("INSERT INTO audit_logs").
		WillReturnResult(sqlmock.NewResult(1, 1))

	r := gin.New()
	r.POST("/users", withClaims(adminClaims()), Audit(repo, models.AuditActionUserCreate, "users"), okHandler)

	recorder := httptest.NewRecorder()
	r.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/users", nil))

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditSkipsFailedRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()
	repo := repository.NewUserRepository(sqlx.NewDb(db, "sqlmock"))

	r := gin.New()
	r.POST("/users", Audit(repo, models.AuditActionUserCreate, "users"), func(c *gin.Context) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad payload"})
	})

	recorder := httptest.NewRecorder()
	r.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/users", nil))

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
