package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/justikon/jcm-api/internal/dto"
	"github.com/justikon/jcm-api/internal/models"
	"github.com/justikon/jcm-api/internal/service"
	appErrors "github.com/justikon/jcm-api/pkg/errors"
	"github.com/justikon/jcm-api/pkg/response"
)

// CaseHandler exposes case endpoints.
type CaseHandler struct {
	cases   *service.CaseService
	exports *service.ExportService
}

// NewCaseHandler constructs CaseHandler.
func NewCaseHandler(cases *service.CaseService, exports *service.ExportService) *CaseHandler {
	return &CaseHandler{cases: cases, exports: exports}
}

// List godoc
// @Summary List visible cases
// @Tags Cases
// @Produce json
// @Param state query string false "Comma separated state filter"
// @Param type query string false "Comma separated type filter"
// @Param policeCaseNumber query string false "Police case number"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Envelope
// @Router /cases [get]
func (h *CaseHandler) List(c *gin.Context) {
	actor := actorFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	query := parseCaseQuery(c)
	cases, err := h.cases.List(c.Request.Context(), query, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cases, nil)
}

// Get godoc
// @Summary Get a case
// @Tags Cases
// @Produce json
// @Param id path string true "Case ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /cases/{id} [get]
func (h *CaseHandler) Get(c *gin.Context) {
	actor := actorFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	record, err := h.cases.Get(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Create godoc
// @Summary Open a new case
// @Tags Cases
// @Accept json
// @Produce json
// @Param payload body dto.CreateCaseRequest true "Case payload"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /cases [post]
func (h *CaseHandler) Create(c *gin.Context) {
	actor := actorFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.CreateCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid case payload"))
		return
	}

	record, err := h.cases.Create(c.Request.Context(), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

// Update godoc
// @Summary Update case fields
// @Tags Cases
// @Accept json
// @Produce json
// @Param id path string true "Case ID"
// @Param payload body dto.UpdateCaseRequest true "Case payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /cases/{id} [put]
func (h *CaseHandler) Update(c *gin.Context) {
	actor := actorFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.UpdateCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid case payload"))
		return
	}

	record, err := h.cases.Update(c.Request.Context(), c.Param("id"), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Transition godoc
// @Summary Apply a lifecycle transition
// @Tags Cases
// @Accept json
// @Produce json
// @Param id path string true "Case ID"
// @Param payload body dto.TransitionCaseRequest true "Transition payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /cases/{id}/transitions [post]
func (h *CaseHandler) Transition(c *gin.Context) {
	actor := actorFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.TransitionCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid transition payload"))
		return
	}

	record, err := h.cases.Transition(c.Request.Context(), c.Param("id"), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// AppealDecision godoc
// @Summary Record an appeal declaration
// @Tags Cases
// @Accept json
// @Produce json
// @Param id path string true "Case ID"
// @Param payload body dto.AppealDecisionRequest true "Appeal declaration"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /cases/{id}/appeal-decisions [post]
func (h *CaseHandler) AppealDecision(c *gin.Context) {
	actor := actorFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.AppealDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid appeal payload"))
		return
	}

	record, err := h.cases.RecordAppealDecision(c.Request.Context(), c.Param("id"), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Export godoc
// @Summary Export visible cases as CSV
// @Tags Cases
// @Produce text/csv
// @Success 200 {file} binary
// @Router /cases/export [get]
func (h *CaseHandler) Export(c *gin.Context) {
	actor := actorFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	payload, err := h.exports.ExportCases(c.Request.Context(), parseCaseQuery(c), actor)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="cases.csv"`)
	c.Data(http.StatusOK, "text/csv", payload)
}

// Ruling godoc
// @Summary Download the ruling document for a decided case
// @Tags Cases
// @Produce application/pdf
// @Param id path string true "Case ID"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /cases/{id}/ruling [get]
func (h *CaseHandler) Ruling(c *gin.Context) {
	actor := actorFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	doc, err := h.exports.RenderRuling(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}

	if doc.DownloadRef != "" {
		c.Header("X-Download-Ref", doc.DownloadRef)
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="ruling-%s.pdf"`, doc.CaseID))
	c.Data(http.StatusOK, "application/pdf", doc.Content)
}

// Download godoc
// @Summary Download a rendered ruling by signed token
// @Tags Cases
// @Param token path string true "Signed download token"
// @Success 200 {file} binary
// @Failure 401 {object} response.Envelope
// @Router /downloads/{token} [get]
func (h *CaseHandler) Download(c *gin.Context) {
	var userID *string
	if claims := claimsFromContext(c); claims != nil {
		userID = &claims.UserID
	}

	doc, err := h.exports.ResolveDownload(c.Request.Context(), c.Param("token"), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.FileAttachment(doc.Path, doc.FileName)
}

func parseCaseQuery(c *gin.Context) dto.CaseQuery {
	var query dto.CaseQuery
	if raw := strings.TrimSpace(c.Query("state")); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			query.States = append(query.States, models.CaseState(strings.TrimSpace(s)))
		}
	}
	if raw := strings.TrimSpace(c.Query("type")); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			query.Types = append(query.Types, models.CaseType(strings.TrimSpace(t)))
		}
	}
	query.PoliceCaseNumber = strings.TrimSpace(c.Query("policeCaseNumber"))
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil {
		query.Limit = limit
	}
	if offset, err := strconv.Atoi(c.DefaultQuery("offset", "0")); err == nil {
		query.Offset = offset
	}
	return query
}
