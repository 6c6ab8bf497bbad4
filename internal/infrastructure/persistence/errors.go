package persistence

import (
	"errors"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique-constraint violations
const uniqueViolation = "23505"

// isDuplicateKey reports whether err is a unique-constraint violation.
// GORM translates driver errors when TranslateError is enabled; the pq check
// covers raw SQL paths that bypass the translator.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return true
	}
	return false
}
