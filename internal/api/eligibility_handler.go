package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ajharbinger/tender-eligibility/internal/services"
)

// EligibilityHandler exposes the rule engine directly
type EligibilityHandler struct {
	eligibilityService services.EligibilityService
	rulesVersion       string
}

// NewEligibilityHandler creates a new eligibility handler
func NewEligibilityHandler(eligibilityService services.EligibilityService, rulesVersion string) *EligibilityHandler {
	return &EligibilityHandler{eligibilityService: eligibilityService, rulesVersion: rulesVersion}
}

// Evaluate runs the matcher on an inline profile and tender. Numbers may be
// sent as strings.
func (h *EligibilityHandler) Evaluate(c *gin.Context) {
	var req services.EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.eligibilityService.Evaluate(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Rules lists the active rule set
func (h *EligibilityHandler) Rules(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"version": h.rulesVersion,
		"rules":   h.eligibilityService.Rules(),
	})
}
