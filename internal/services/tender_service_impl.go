package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/ajharbinger/tender-eligibility/internal/eligibility"
	apperrors "github.com/ajharbinger/tender-eligibility/internal/errors"
	"github.com/ajharbinger/tender-eligibility/internal/extraction"
	"github.com/ajharbinger/tender-eligibility/internal/logger"
	"github.com/ajharbinger/tender-eligibility/internal/metrics"
	"github.com/ajharbinger/tender-eligibility/internal/models"
	"github.com/ajharbinger/tender-eligibility/internal/repository"
	"github.com/ajharbinger/tender-eligibility/pkg/config"
)

// statusWriteTimeout bounds the final tender writes, which run detached from
// the request so a disconnect cannot leave a tender PROCESSING
const statusWriteTimeout = 10 * time.Second

// Paging limits for tender listings
const (
	DefaultPageSize = 10
	MaxPageSize     = 50
)

// UploadedDocument is a tender file received from a client
type UploadedDocument struct {
	FileName    string
	ContentType string
	Data        []byte
}

// TenderPage is one page of the tender listing
type TenderPage struct {
	Data []models.TenderListItem `json:"data"`
	Meta models.PageMeta         `json:"meta"`
}

// tenderServiceImpl implements TenderService
type tenderServiceImpl struct {
	repos     *repository.Repositories
	cfg       *config.Config
	logger    logger.Logger
	extractor TenderExtractor
	fetcher   DocumentFetcher
}

func newTenderService(deps Dependencies) TenderService {
	return &tenderServiceImpl{
		repos:     deps.Repos,
		cfg:       deps.Config,
		logger:    deps.Logger,
		extractor: deps.Extractor,
		fetcher:   deps.Fetcher,
	}
}

// Upload stores a tender document and extracts it synchronously. The tender
// ends EXTRACTED, or FAILED with the error recorded.
func (s *tenderServiceImpl) Upload(ctx context.Context, caller Caller, doc UploadedDocument) (*models.Tender, error) {
	if err := requireWrite(caller, "UploadTender"); err != nil {
		return nil, err
	}
	if len(doc.Data) == 0 {
		return nil, apperrors.ValidationError("No file provided", nil).WithOperation("UploadTender")
	}
	if int64(len(doc.Data)) > s.cfg.MaxUploadSize {
		return nil, apperrors.ValidationError(
			fmt.Sprintf("File size exceeds %dMB limit", s.cfg.MaxUploadSize>>20), nil).WithOperation("UploadTender")
	}

	docType := extraction.DetectType(doc.Data, doc.FileName, doc.ContentType)
	if docType != extraction.TypePDF && docType != extraction.TypeHTML {
		return nil, apperrors.ValidationError("Only PDF or HTML files are supported", nil).WithOperation("UploadTender")
	}

	tender := &models.Tender{
		UserID:      caller.UserID,
		FileName:    sanitizeFileName(doc.FileName),
		FileSize:    int64(len(doc.Data)),
		ContentType: docType,
		Status:      models.TenderProcessing,
	}
	if err := s.repos.Tender.Create(ctx, tender); err != nil {
		return nil, apperrors.DatabaseError("failed to create tender", err).WithOperation("UploadTender")
	}

	s.logger.Info("Tender uploaded", map[string]interface{}{
		"tender_id": tender.ID.String(),
		"file_name": tender.FileName,
		"file_size": tender.FileSize,
	})

	if err := s.process(ctx, tender, doc.Data); err != nil {
		return nil, err
	}
	return tender, nil
}

// Import fetches a tender notice from url and processes it like an upload
func (s *tenderServiceImpl) Import(ctx context.Context, caller Caller, rawURL string) (*models.Tender, error) {
	if err := requireWrite(caller, "ImportTender"); err != nil {
		return nil, err
	}
	if s.fetcher == nil {
		return nil, apperrors.ServiceError("Tender import is not configured", nil).WithOperation("ImportTender")
	}

	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, apperrors.ValidationError("A valid http(s) URL is required", err).WithOperation("ImportTender")
	}

	data, contentType, err := s.fetcher.Fetch(ctx, u.String())
	if err != nil {
		s.logger.Warn("Tender import fetch failed", map[string]interface{}{
			"host":  u.Hostname(),
			"error": err.Error(),
		})
		if errors.Is(err, extraction.ErrBlockedAddress) {
			return nil, apperrors.ValidationError("URL is not allowed", nil).WithOperation("ImportTender")
		}
		return nil, apperrors.ServiceError("Failed to fetch tender notice", err).WithOperation("ImportTender")
	}

	name := path.Base(u.Path)
	if name == "." || name == "/" {
		name = u.Host
	}
	return s.Upload(ctx, caller, UploadedDocument{FileName: name, ContentType: contentType, Data: data})
}

func (s *tenderServiceImpl) process(ctx context.Context, tender *models.Tender, data []byte) error {
	start := time.Now()

	ext, err := s.extract(ctx, tender, data)

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), statusWriteTimeout)
	defer cancel()

	if err != nil {
		metrics.ExtractionsTotal.WithLabelValues("failed").Inc()
		s.logger.Warn("Tender extraction failed", map[string]interface{}{
			"tender_id": tender.ID.String(),
			"error":     err.Error(),
		})

		tender.Status = models.TenderFailed
		tender.ErrorMessage = err.Error()
		if updErr := s.repos.Tender.UpdateStatus(writeCtx, tender.ID, models.TenderFailed, err.Error()); updErr != nil {
			s.logger.Error("Failed to mark tender as failed", updErr, map[string]interface{}{"tender_id": tender.ID.String()})
		}
		return extractionError(err)
	}

	clauses := ext.Apply(tender)
	err = s.repos.Tx.WithTransaction(writeCtx, func(repos *repository.Repositories) error {
		if err := repos.Tender.SaveExtraction(writeCtx, tender); err != nil {
			return err
		}
		return repos.Tender.ReplaceClauses(writeCtx, tender.ID, clauses)
	})
	if err != nil {
		return apperrors.DatabaseError("failed to save extraction", err).WithOperation("UploadTender")
	}

	metrics.ExtractionsTotal.WithLabelValues("extracted").Inc()
	metrics.ExtractionDuration.Observe(time.Since(start).Seconds())
	s.logger.Info("Tender extracted", map[string]interface{}{
		"tender_id":  tender.ID.String(),
		"clauses":    len(clauses),
		"risk_level": tender.RiskLevel(),
		"duration":   time.Since(start).String(),
	})
	return nil
}

func (s *tenderServiceImpl) extract(ctx context.Context, tender *models.Tender, data []byte) (*extraction.Extraction, error) {
	if s.extractor == nil {
		return nil, errExtractorMissing
	}

	text, err := extraction.ExtractText(data, tender.ContentType)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.LLMTimeout)
	defer cancel()
	return s.extractor.Extract(ctx, text)
}

var errExtractorMissing = errors.New("extraction service is not configured")

func extractionError(err error) *apperrors.AppError {
	switch {
	case errors.Is(err, extraction.ErrInsufficientText), errors.Is(err, extraction.ErrUnsupportedType):
		return apperrors.ValidationError("Document text could not be read", err).WithDetails(err.Error())
	case errors.Is(err, errExtractorMissing):
		return apperrors.ServiceError("Document extraction is not configured", err)
	case errors.Is(err, extraction.ErrInvalidResponse):
		return apperrors.ServiceError("AI processing returned an invalid response", err)
	default:
		return apperrors.ServiceError("AI processing failed", err)
	}
}

// Get returns a tender with its clauses
func (s *tenderServiceImpl) Get(ctx context.Context, caller Caller, id string) (*models.Tender, error) {
	tenderID, err := parseID(id, "tender", "GetTender")
	if err != nil {
		return nil, err
	}
	tender, err := s.repos.Tender.GetByID(ctx, tenderID)
	if err != nil {
		return nil, lookupError(err, "Tender not found", "GetTender")
	}
	if !caller.Owns(tender.UserID) {
		return nil, apperrors.Forbidden("Access denied to this tender", nil).WithOperation("GetTender")
	}
	return tender, nil
}

// List returns one page of the caller's tenders
func (s *tenderServiceImpl) List(ctx context.Context, caller Caller, filters models.TenderFilters) (*TenderPage, error) {
	f := NormalizeFilters(filters)
	f.UserID = caller.UserID

	items, total, err := s.repos.Tender.List(ctx, f)
	if err != nil {
		return nil, apperrors.DatabaseError("failed to list tenders", err).WithOperation("ListTenders")
	}

	return &TenderPage{
		Data: items,
		Meta: models.PageMeta{
			Page:       f.Page,
			PageSize:   f.PageSize,
			Total:      total,
			TotalPages: int(math.Ceil(float64(total) / float64(f.PageSize))),
		},
	}, nil
}

// NormalizeFilters clamps paging and drops unknown filter values
func NormalizeFilters(f models.TenderFilters) models.TenderFilters {
	if f.Page < 1 {
		f.Page = 1
	}
	switch {
	case f.PageSize == 0:
		f.PageSize = DefaultPageSize
	case f.PageSize < 1:
		f.PageSize = 1
	case f.PageSize > MaxPageSize:
		f.PageSize = MaxPageSize
	}

	if !strings.EqualFold(f.SortOrder, "asc") {
		f.SortOrder = "desc"
	} else {
		f.SortOrder = "asc"
	}

	switch models.TenderStatus(f.Status) {
	case models.TenderUploaded, models.TenderProcessing, models.TenderExtracted, models.TenderFailed:
	default:
		f.Status = ""
	}
	if !eligibility.Verdict(f.Eligibility).Valid() {
		f.Eligibility = ""
	}
	f.Search = strings.TrimSpace(f.Search)

	if f.DateTo != nil {
		end := time.Date(f.DateTo.Year(), f.DateTo.Month(), f.DateTo.Day(), 23, 59, 59, int(time.Second-time.Millisecond), f.DateTo.Location())
		f.DateTo = &end
	}
	return f
}

// Stats returns the caller's dashboard counters
func (s *tenderServiceImpl) Stats(ctx context.Context, caller Caller) (*models.DashboardStats, error) {
	stats, err := s.repos.Tender.Stats(ctx, caller.UserID)
	if err != nil {
		return nil, apperrors.DatabaseError("failed to load dashboard stats", err).WithOperation("DashboardStats")
	}
	return stats, nil
}

func sanitizeFileName(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "" || name == "." || name == "/" {
		return "document"
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := b.String()
	if len(out) > 255 {
		out = out[len(out)-255:]
	}
	return out
}
