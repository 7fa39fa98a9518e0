package db

import (
	"strings"

	pkgerrors "github.com/furnihub/marketplace-backend/pkg/errors"
)

const sqlStateUniqueViolation = "23505"

// IsUniqueViolation reports whether err is a unique constraint violation. The
// SQLSTATE is checked first; the message fallback covers sqlite in dev and
// tests. When constraintName is provided the message must also reference it.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if constraintName != "" && !strings.Contains(msg, constraintName) {
		return false
	}
	if pkgerrors.IsPGCode(err, sqlStateUniqueViolation) {
		return true
	}
	return strings.Contains(msg, "duplicate key value") || strings.Contains(msg, "UNIQUE constraint failed")
}
