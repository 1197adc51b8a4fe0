package api

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/ajharbinger/tender-eligibility/internal/errors"
	"github.com/ajharbinger/tender-eligibility/internal/models"
	"github.com/ajharbinger/tender-eligibility/internal/services"
)

const queryDateLayout = "2006-01-02"

// TenderHandler handles tender upload, import and listing
type TenderHandler struct {
	tenderService services.TenderService
	maxUpload     int64
}

// NewTenderHandler creates a new tender handler
func NewTenderHandler(tenderService services.TenderService, maxUpload int64) *TenderHandler {
	return &TenderHandler{tenderService: tenderService, maxUpload: maxUpload}
}

// ImportRequest names a tender notice to fetch
type ImportRequest struct {
	URL string `json:"url" binding:"required"`
}

// tenderListQuery is the query string of the tender listing
type tenderListQuery struct {
	Page        int    `form:"page"`
	PageSize    int    `form:"page_size"`
	SortBy      string `form:"sort_by"`
	SortOrder   string `form:"sort_order"`
	Status      string `form:"status"`
	Eligibility string `form:"eligibility"`
	Search      string `form:"search"`
	DateFrom    string `form:"date_from"`
	DateTo      string `form:"date_to"`
}

// Upload accepts a PDF or HTML tender in the multipart field "file" and
// returns it extracted
func (h *TenderHandler) Upload(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		respondError(c, apperrors.ValidationError("No file provided", err))
		return
	}
	if header.Size > h.maxUpload {
		respondError(c, apperrors.ValidationError(fmt.Sprintf("File size exceeds %dMB limit", h.maxUpload>>20), nil))
		return
	}

	file, err := header.Open()
	if err != nil {
		respondError(c, apperrors.ValidationError("Failed to read uploaded file", err))
		return
	}
	defer file.Close()

	// one byte over the limit is enough for the service to reject it
	data, err := io.ReadAll(io.LimitReader(file, h.maxUpload+1))
	if err != nil {
		respondError(c, apperrors.ValidationError("Failed to read uploaded file", err))
		return
	}

	tender, err := h.tenderService.Upload(c.Request.Context(), caller, services.UploadedDocument{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tender)
}

// Import fetches a tender notice by URL and extracts it
func (h *TenderHandler) Import(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		return
	}
	var req ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	tender, err := h.tenderService.Import(c.Request.Context(), caller, req.URL)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tender)
}

// Get returns one tender with its clauses
func (h *TenderHandler) Get(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		return
	}
	tender, err := h.tenderService.Get(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tender)
}

// List returns a filtered page of the caller's tenders
func (h *TenderHandler) List(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		return
	}

	var q tenderListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBindError(c, err)
		return
	}
	filters := models.TenderFilters{
		Page:        q.Page,
		PageSize:    q.PageSize,
		SortBy:      q.SortBy,
		SortOrder:   q.SortOrder,
		Status:      q.Status,
		Eligibility: q.Eligibility,
		Search:      q.Search,
	}

	var err error
	if filters.DateFrom, err = parseQueryDate(q.DateFrom, "date_from"); err != nil {
		respondError(c, err)
		return
	}
	if filters.DateTo, err = parseQueryDate(q.DateTo, "date_to"); err != nil {
		respondError(c, err)
		return
	}

	page, err := h.tenderService.List(c.Request.Context(), caller, filters)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// Stats returns the caller's dashboard counters
func (h *TenderHandler) Stats(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		return
	}
	stats, err := h.tenderService.Stats(c.Request.Context(), caller)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func parseQueryDate(raw, name string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(queryDateLayout, raw)
	if err != nil {
		return nil, apperrors.InvalidInput("Invalid "+name, err).WithDetails("expected YYYY-MM-DD")
	}
	return &t, nil
}
