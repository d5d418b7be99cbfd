package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/justikon/jcm-api/internal/dto"
	"github.com/justikon/jcm-api/internal/models"
	"github.com/justikon/jcm-api/internal/policy"
	appErrors "github.com/justikon/jcm-api/pkg/errors"
	"github.com/justikon/jcm-api/pkg/export"
)

type exportCaseStore interface {
	GetByID(ctx context.Context, id string) (*models.Case, error)
	ListVisible(ctx context.Context, actor *models.Actor, filter models.CaseFilter) ([]models.Case, error)
}

type documentStorage interface {
	Save(filename string, data []byte) (string, error)
	Path(filename string) string
}

type documentSigner interface {
	Generate(docID, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (docID, relPath string, expiresAt time.Time, err error)
}

// ExportService renders listings and rulings for download. Everything it
// emits goes through the same visibility scope as the read API.
type ExportService struct {
	repo    exportCaseStore
	storage documentStorage
	signer  documentSigner
	audit   auditLogger
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
	logger  *zap.Logger
}

// NewExportService constructs the export service.
func NewExportService(repo exportCaseStore, storage documentStorage, signer documentSigner, audit auditLogger, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		repo:    repo,
		storage: storage,
		signer:  signer,
		audit:   audit,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		logger:  logger,
	}
}

var caseExportHeaders = []string{
	"id", "type", "state", "appeal_state", "decision",
	"police_case_number", "prosecutors_office_id", "court_id", "created_at",
}

// ExportCases renders the actor's visible cases as CSV.
func (s *ExportService) ExportCases(ctx context.Context, query dto.CaseQuery, actor *models.Actor) ([]byte, error) {
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
	cases, err := s.repo.ListVisible(ctx, actor, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list cases for export")
	}

	rows := make([]map[string]string, 0, len(cases))
	for i := range cases {
		rows = append(rows, caseExportRow(&cases[i]))
	}
	payload, err := s.csv.Render(export.Dataset{Headers: caseExportHeaders, Rows: rows})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render case export")
	}

	s.emitExportAudit(ctx, actor, "case_list", fmt.Sprintf(`{"rows":%d}`, len(rows)))
	return payload, nil
}

// RulingDocument is a rendered ruling with a signed download reference.
type RulingDocument struct {
	CaseID      string    `json:"case_id"`
	FileName    string    `json:"file_name"`
	DownloadRef string    `json:"download_ref,omitempty"`
	ExpiresAt   time.Time `json:"expires_at,omitempty"`
	Content     []byte    `json:"-"`
}

// RenderRuling produces the ruling PDF for a decided case. Only cases that
// carry a decision have a ruling to render.
func (s *ExportService) RenderRuling(ctx context.Context, caseID string, actor *models.Actor) (*RulingDocument, error) {
	c, err := s.repo.GetByID(ctx, caseID)
	if err != nil {
		return nil, appErrors.ErrNotFound
	}
	if !policy.CanAccess(c, actor, policy.Read) {
		return nil, appErrors.ErrForbidden
	}
	if c.Decision == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "case has no recorded decision")
	}

	doc := export.Document{
		Title: "Ruling",
		Fields: []export.Field{
			{Label: "Case number", Value: c.PoliceCaseNumber},
			{Label: "Case type", Value: string(c.Type)},
			{Label: "State", Value: string(c.State)},
			{Label: "Decision", Value: string(*c.Decision)},
			{Label: "Issued", Value: c.UpdatedAt.Format("2006-01-02")},
		},
		Body: c.Description,
	}
	if c.CourtID != nil {
		doc.Fields = append(doc.Fields, export.Field{Label: "Court", Value: *c.CourtID})
	}

	payload, err := s.pdf.RenderDocument(doc)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render ruling")
	}

	result := &RulingDocument{
		CaseID:   c.ID,
		FileName: fmt.Sprintf("rulings/%s.pdf", c.ID),
		Content:  payload,
	}

	if s.storage != nil {
		if _, err := s.storage.Save(result.FileName, payload); err != nil {
			s.logger.Warn("failed to persist ruling document", zap.Error(err))
		} else if s.signer != nil {
			ref, expiresAt, err := s.signer.Generate(c.ID, result.FileName)
			if err != nil {
				s.logger.Warn("failed to sign ruling download", zap.Error(err))
			} else {
				result.DownloadRef = ref
				result.ExpiresAt = expiresAt
			}
		}
	}

	s.emitExportAudit(ctx, actor, "ruling", fmt.Sprintf(`{"case_id":%q}`, c.ID))
	return result, nil
}

// Download resolves a signed download token to the stored file. The token is
// the credential here; a bearer token, when present, only attributes the
// audit entry.
type Download struct {
	DocID    string
	FileName string
	Path     string
}

// ResolveDownload validates a signed token and returns the file it points at.
func (s *ExportService) ResolveDownload(ctx context.Context, token string, userID *string) (*Download, error) {
	if s.signer == nil || s.storage == nil {
		return nil, appErrors.ErrNotFound
	}
	docID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "download link is invalid or expired")
	}

	if s.audit != nil {
		detail := fmt.Sprintf(`{"doc_id":%q}`, docID)
		if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
			UserID:    userID,
			Action:    models.AuditActionRulingDownload,
			Resource:  "ruling",
			NewValues: []byte(detail),
			IPAddress: "system",
			UserAgent: "export-service",
		}); err != nil {
			s.logger.Warn("failed to record download audit log", zap.Error(err))
		}
	}

	return &Download{
		DocID:    docID,
		FileName: filepath.Base(relPath),
		Path:     s.storage.Path(relPath),
	}, nil
}

func (s *ExportService) emitExportAudit(ctx context.Context, actor *models.Actor, resource, detail string) {
	if s.audit == nil || actor == nil {
		return
	}
	id := actor.ID
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:    &id,
		Action:    models.AuditActionCaseExport,
		Resource:  resource,
		NewValues: []byte(detail),
		IPAddress: "system",
		UserAgent: "export-service",
	}); err != nil {
		s.logger.Warn("failed to record export audit log", zap.Error(err))
	}
}

func caseExportRow(c *models.Case) map[string]string {
	row := map[string]string{
		"id":                    c.ID,
		"type":                  string(c.Type),
		"state":                 string(c.State),
		"appeal_state":          string(c.AppealState),
		"police_case_number":    sanitizeCSVCell(c.PoliceCaseNumber),
		"prosecutors_office_id": c.ProsecutorsOfficeID,
		"created_at":            c.CreatedAt.Format(time.RFC3339),
	}
	if c.Decision != nil {
		row["decision"] = string(*c.Decision)
	}
	if c.CourtID != nil {
		row["court_id"] = *c.CourtID
	}
	return row
}

// sanitizeCSVCell guards exported values against spreadsheet formula
// injection.
func sanitizeCSVCell(value string) string {
	if value == "" {
		return value
	}
	switch value[0] {
	case '=', '+', '-', '@':
		return "'" + value
	}
	return strings.TrimSpace(value)
}
