package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "github.com/ajharbinger/tender-eligibility/internal/errors"
	"github.com/ajharbinger/tender-eligibility/internal/models"
	"github.com/ajharbinger/tender-eligibility/internal/services"
)

// VerdictHandler runs matches and serves verdicts
type VerdictHandler struct {
	verdictService services.VerdictService
}

// NewVerdictHandler creates a new verdict handler
func NewVerdictHandler(verdictService services.VerdictService) *VerdictHandler {
	return &VerdictHandler{verdictService: verdictService}
}

// Match evaluates a profile against a tender and persists the verdict
func (h *VerdictHandler) Match(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		return
	}
	var req models.MatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	verdict, err := h.verdictService.Match(c.Request.Context(), caller, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, verdict)
}

// Get returns one verdict
func (h *VerdictHandler) Get(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		return
	}
	verdict, err := h.verdictService.Get(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, verdict)
}

// List returns the caller's verdicts newest first
func (h *VerdictHandler) List(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			respondError(c, apperrors.InvalidInput("Invalid limit", err))
			return
		}
		limit = n
	}

	verdicts, err := h.verdictService.List(c.Request.Context(), caller, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": verdicts, "count": len(verdicts)})
}

// Export downloads the caller's verdicts as CSV or JSON
func (h *VerdictHandler) Export(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		return
	}

	export, err := h.verdictService.Export(c.Request.Context(), caller, services.ExportFormat(c.DefaultQuery("format", "csv")))
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+export.FileName+`"`)
	c.Header("X-Export-Count", strconv.Itoa(export.Count))
	c.Data(http.StatusOK, export.ContentType, export.Data)
}
