package handler

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justikon/jcm-api/internal/middleware"
	"github.com/justikon/jcm-api/internal/models"
	"github.com/justikon/jcm-api/internal/service"
	"github.com/justikon/jcm-api/pkg/storage"
)

type stubAuthRepo struct{}

func (stubAuthRepo) FindByEmail(context.Context, string) (*models.User, error) {
	return nil, sql.ErrNoRows
}
func (stubAuthRepo) FindByID(context.Context, string) (*models.User, error) {
	return nil, sql.ErrNoRows
}
func (stubAuthRepo) UpdateLastLogin(context.Context, string, time.Time) error { return nil }
func (stubAuthRepo) UpdatePassword(context.Context, string, string, time.Time) error {
	return nil
}
func (stubAuthRepo) RevokeUserRefreshTokens(context.Context, string) error { return nil }
func (stubAuthRepo) CreateRefreshToken(context.Context, *models.RefreshToken) error {
	return nil
}
func (stubAuthRepo) FindRefreshToken(context.Context, string) (*models.RefreshToken, error) {
	return nil, sql.ErrNoRows
}
func (stubAuthRepo) RevokeRefreshToken(context.Context, string, time.Time) error { return nil }
func (stubAuthRepo) CreateAuditLog(context.Context, *models.AuditLog) error      { return nil }

type recordingAudit struct {
	logs []models.AuditLog
}

func (r *recordingAudit) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	r.logs = append(r.logs, *log)
	return nil
}

const downloadTestSecret = "access-secret"

func signedBearer(t *testing.T, claims *models.JWTClaims) string {
	t.Helper()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(downloadTestSecret))
	require.NoError(t, err)
	return "Bearer " + token
}

func newDownloadRouter(t *testing.T, audit *recordingAudit) (*gin.Engine, *storage.SignedURLSigner) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := storage.NewDocumentStore(t.TempDir())
	require.NoError(t, err)
	_, err = store.Save("rulings/case-1.pdf", []byte("%PDF-1.4 ruling"))
	require.NoError(t, err)

	signer := storage.NewSignedURLSigner("download-secret", time.Hour)
	exports := service.NewExportService(nil, store, signer, audit, nil)
	handler := NewCaseHandler(nil, exports)

	authService := service.NewAuthService(stubAuthRepo{}, nil, nil, service.AuthConfig{
		AccessTokenSecret: downloadTestSecret,
		AccessTokenExpiry: time.Hour,
	})

	r := gin.New()
	r.GET("/downloads/:token", middleware.OptionalJWT(authService), handler.Download)
	return r, signer
}

func TestDownloadWithoutBearerToken(t *testing.T) {
	audit := &recordingAudit{}
	r, signer := newDownloadRouter(t, audit)

	token, _, err := signer.Generate("case-1", "rulings/case-1.pdf")
	require.NoError(t, err)

	recorder := httptest.NewRecorder()
	r.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/downloads/"+token, nil))

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "%PDF-1.4 ruling", recorder.Body.String())
	require.Len(t, audit.logs, 1)
	assert.Nil(t, audit.logs[0].UserID)
}

func TestDownloadAttributesBearerToken(t *testing.T) {
	audit := &recordingAudit{}
	r, signer := newDownloadRouter(t, audit)

	token, _, err := signer.Generate("case-1", "rulings/case-1.pdf")
	require.NoError(t, err)

	request := httptest.NewRequest(http.MethodGet, "/downloads/"+token, nil)
	request.Header.Set("Authorization", signedBearer(t, &models.JWTClaims{UserID: "judge-1", Role: models.RoleJudge}))

	recorder := httptest.NewRecorder()
	r.ServeHTTP(recorder, request)

	require.Equal(t, http.StatusOK, recorder.Code)
	require.Len(t, audit.logs, 1)
	require.NotNil(t, audit.logs[0].UserID)
	assert.Equal(t, "judge-1", *audit.logs[0].UserID)
}

func TestDownloadRejectsInvalidToken(t *testing.T) {
	audit := &recordingAudit{}
	r, _ := newDownloadRouter(t, audit)

	recorder := httptest.NewRecorder()
	r.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/downloads/not-a-token", nil))

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Empty(t, audit.logs)
}
