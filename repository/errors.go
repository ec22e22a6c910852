package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
)

// ErrDuplicateKey matches any unique constraint violation.
var ErrDuplicateKey = errors.New("duplicate key")

// DuplicateKeyError reports which column collided. Field is the column
// name (for example "referral_code"), or empty when the backend did not say.
type DuplicateKeyError struct {
	Field string
	Err   error
}

func (e *DuplicateKeyError) Error() string {
	if e.Field == "" {
		return "duplicate key"
	}
	return fmt.Sprintf("duplicate key on %s", e.Field)
}

func (e *DuplicateKeyError) Is(target error) bool { return target == ErrDuplicateKey }

func (e *DuplicateKeyError) Unwrap() error { return e.Err }

// IsDuplicateOn reports whether err is a unique violation on field.
func IsDuplicateOn(err error, field string) bool {
	var dup *DuplicateKeyError
	return errors.As(err, &dup) && dup.Field == field
}

// pgUniqueViolation is SQLSTATE unique_violation.
const pgUniqueViolation = "23505"

// classify turns driver unique-constraint errors into *DuplicateKeyError
// and returns every other error unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var dup *DuplicateKeyError
	if errors.As(err, &dup) {
		return err
	}

	var se sqlite3.Error
	if errors.As(err, &se) && se.Code == sqlite3.ErrConstraint &&
		(se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey) {
		return &DuplicateKeyError{Field: sqliteColumn(se.Error()), Err: err}
	}

	var pe *pq.Error
	if errors.As(err, &pe) && string(pe.Code) == pgUniqueViolation {
		return &DuplicateKeyError{Field: pgColumn(pe), Err: err}
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return &DuplicateKeyError{Err: err}
	}
	return err
}

// sqliteColumn extracts the first column from
// "UNIQUE constraint failed: agents.referral_code".
func sqliteColumn(msg string) string {
	_, cols, ok := strings.Cut(msg, "constraint failed: ")
	if !ok {
		return ""
	}
	first, _, _ := strings.Cut(cols, ",")
	first = strings.TrimSpace(first)
	if i := strings.LastIndex(first, "."); i >= 0 {
		first = first[i+1:]
	}
	return first
}

// pgColumn recovers the column from index names of the form ux_<table>_<column>.
func pgColumn(pe *pq.Error) string {
	if pe.Column != "" {
		return pe.Column
	}
	name := pe.Constraint
	if pe.Table != "" {
		if rest, ok := strings.CutPrefix(name, "ux_"+pe.Table+"_"); ok {
			return rest
		}
	}
	return name
}
