package api

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ajharbinger/tender-eligibility/internal/auth"
	"github.com/ajharbinger/tender-eligibility/internal/models"
	"github.com/ajharbinger/tender-eligibility/internal/services"
)

// AuthHandler handles authentication operations
type AuthHandler struct {
	authService services.AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// AuthResponse is the login payload. Browser clients use the cookies, API
// clients the bearer token.
type AuthResponse struct {
	*models.LoginResponse
	CSRFToken string `json:"csrf_token"`
}

// RefreshRequest carries a refresh token
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// generateCSRFToken generates a cryptographically secure CSRF token
func generateCSRFToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate CSRF token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func isSecure(c *gin.Context) bool {
	return c.Request.Header.Get("X-Forwarded-Proto") == "https" || c.Request.TLS != nil
}

// setCookie sets a cookie scoped to the whole API
func setCookie(c *gin.Context, name, value string, maxAge int, httpOnly bool) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(name, value, maxAge, "/", "", isSecure(c), httpOnly)
}

// clearCookie clears a cookie by setting it to empty with past expiration
func clearCookie(c *gin.Context, name string, httpOnly bool) {
	setCookie(c, name, "", -1, httpOnly)
}

// respondWithSession sets the session cookies and writes the token pair.
// The CSRF cookie is readable by scripts so clients can echo it in
// X-CSRF-Token.
func respondWithSession(c *gin.Context, status int, resp *models.LoginResponse) {
	csrfToken, err := generateCSRFToken()
	if err != nil {
		respondError(c, err)
		return
	}

	maxAge := int(time.Until(resp.ExpiresAt).Seconds())
	setCookie(c, "auth_token", resp.Token, maxAge, true)
	setCookie(c, "csrf_token", csrfToken, maxAge, false)

	c.JSON(status, AuthResponse{LoginResponse: resp, CSRFToken: csrfToken})
}

// Register creates a new user account and signs it in
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if _, err := h.authService.Register(c.Request.Context(), &req); err != nil {
		respondError(c, err)
		return
	}

	resp, err := h.authService.Login(c.Request.Context(), &models.LoginRequest{Email: req.Email, Password: req.Password})
	if err != nil {
		respondError(c, err)
		return
	}
	respondWithSession(c, http.StatusCreated, resp)
}

// Login authenticates a user
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	resp, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondWithSession(c, http.StatusOK, resp)
}

// Refresh issues a new token pair from a refresh token
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	resp, err := h.authService.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondError(c, err)
		return
	}
	respondWithSession(c, http.StatusOK, resp)
}

// Logout clears the session cookies
func (h *AuthHandler) Logout(c *gin.Context) {
	clearCookie(c, "auth_token", true)
	clearCookie(c, "csrf_token", false)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// Me returns the authenticated user
func (h *AuthHandler) Me(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":    caller.UserID,
		"email": c.GetString(auth.UserEmailKey),
		"role":  caller.Role,
	})
}
