package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/prohmpiriya/eventhub/internal/domain"
)

// Postgres SQLSTATE codes translated into domain errors
const (
	codeUniqueViolation      = "23505"
	codeCheckViolation       = "23514"
	codeInvalidText          = "22P02"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isUniqueViolation(err error) bool {
	return pgCode(err) == codeUniqueViolation
}

// isInvalidID reports a malformed uuid literal, which callers treat as not found
func isInvalidID(err error) bool {
	return pgCode(err) == codeInvalidText
}

// IsTransient reports errors that a retry may resolve
func IsTransient(err error) bool {
	switch pgCode(err) {
	case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable:
		return true
	}
	return false
}

// translate maps driver errors onto domain errors for entity
func translate(err error, entity, id, key string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) || isInvalidID(err) {
		return domain.NewNotFoundError(entity, id)
	}
	if isUniqueViolation(err) {
		return &domain.DuplicateKeyError{Entity: entity, Key: key}
	}
	if pgCode(err) == codeCheckViolation {
		return domain.NewValidationError("", "%s violates a storage constraint", entity)
	}
	if IsTransient(err) {
		return &domain.ConflictError{Op: entity, Err: err}
	}
	return err
}
