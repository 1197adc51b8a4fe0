package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ajharbinger/tender-eligibility/internal/models"
	"github.com/ajharbinger/tender-eligibility/internal/services"
)

// ProfileHandler serves contractor profiles
type ProfileHandler struct {
	profileService services.ProfileService
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(profileService services.ProfileService) *ProfileHandler {
	return &ProfileHandler{profileService: profileService}
}

// GetMine returns the caller's profile
func (h *ProfileHandler) GetMine(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		return
	}
	profile, err := h.profileService.GetMine(c.Request.Context(), caller)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// Get returns a profile by ID
func (h *ProfileHandler) Get(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		return
	}
	profile, err := h.profileService.GetByID(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// Save creates or replaces the caller's profile
func (h *ProfileHandler) Save(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		return
	}
	var req models.ProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	profile, err := h.profileService.Save(c.Request.Context(), caller, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}
