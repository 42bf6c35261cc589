package repo

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// Write-path sentinel errors.
var (
	// ErrUnknownTable is returned when InsertRecords is called with a table
	// name other than employers or vacancies.
	ErrUnknownTable = errors.New("unknown target table")

	// ErrRecordType is returned when the records argument does not match the
	// requested table.
	ErrRecordType = errors.New("records do not match target table")
)

// IsDuplicate reports whether err is a uniqueness violation, across the
// drivers in use.
func IsDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// SQLite: "UNIQUE constraint failed"
	// Postgres: "duplicate key value violates unique constraint"
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key")
}
