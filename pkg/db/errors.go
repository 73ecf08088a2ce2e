package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const pgUniqueViolation = "23505"

// IsUniqueViolation reports whether err is a unique constraint failure from
// Postgres (pgx or lib/pq) or SQLite. When hint is provided the constraint
// name, or for SQLite the offending column, must contain it.
func IsUniqueViolation(err error, hint string) bool {
	if err == nil {
		return false
	}

	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return pgxErr.Code == pgUniqueViolation && matchesHint(pgxErr.ConstraintName+" "+pgxErr.Message, hint)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pgUniqueViolation && matchesHint(pqErr.Constraint+" "+pqErr.Message, hint)
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "duplicate key value"):
		return matchesHint(msg, hint)
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return matchesHint(msg, hint)
	}
	return false
}

func matchesHint(text, hint string) bool {
	if hint == "" {
		return true
	}
	return strings.Contains(text, hint)
}

const pgForeignKeyViolation = "23503"

// IsForeignKeyViolation reports whether err is a foreign key failure from
// Postgres or SQLite.
func IsForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return pgxErr.Code == pgForeignKeyViolation
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pgForeignKeyViolation
	}
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
