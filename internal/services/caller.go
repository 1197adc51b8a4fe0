package services

import (
	"github.com/google/uuid"

	"github.com/ajharbinger/tender-eligibility/internal/models"
)

// Caller is the authenticated user a service call acts for
type Caller struct {
	UserID uuid.UUID
	Role   string
}

// IsAdmin reports whether the caller bypasses ownership checks
func (c Caller) IsAdmin() bool {
	return c.Role == string(models.RoleAdmin)
}

// CanWrite reports whether the caller may create or change records.
// Viewers are read-only.
func (c Caller) CanWrite() bool {
	return c.Role != string(models.RoleViewer)
}

// Owns reports whether the caller owns a record or is an admin
func (c Caller) Owns(ownerID uuid.UUID) bool {
	return c.IsAdmin() || (c.UserID != uuid.Nil && c.UserID == ownerID)
}
