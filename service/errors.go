package service

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// Domain errors. Controllers map these to HTTP status codes; the services
// themselves never know about HTTP.
var (
	ErrNotFound            = errors.New("resource not found")
	ErrInvalidOperation    = errors.New("operation not permitted")
	ErrInvalidState        = errors.New("invalid state for this operation")
	ErrConstraintViolation = errors.New("constraint violation")
)

// isDuplicateKey detects unique-constraint failures from the storage layer so
// they can be re-signaled as ErrConstraintViolation instead of leaking raw
// driver errors.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || // postgres
		strings.Contains(msg, "UNIQUE constraint failed") // sqlite
}
