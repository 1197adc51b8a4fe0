package services

import (
	"errors"

	"github.com/google/uuid"

	apperrors "github.com/ajharbinger/tender-eligibility/internal/errors"
	"github.com/ajharbinger/tender-eligibility/internal/repository"
)

// lookupError translates a repository lookup failure
func lookupError(err error, notFound, op string) *apperrors.AppError {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound(notFound, err).WithOperation(op)
	}
	return apperrors.DatabaseError("database lookup failed", err).WithOperation(op)
}

func parseID(raw, what, op string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperrors.InvalidInput("Invalid "+what+" ID", err).WithOperation(op)
	}
	return id, nil
}

func requireWrite(caller Caller, op string) error {
	if !caller.CanWrite() {
		return apperrors.Forbidden("Read-only account", nil).WithOperation(op)
	}
	return nil
}
