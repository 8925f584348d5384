package common

import (
	"errors"

	"github.com/lib/pq"
)

var (
	ErrRecordNotFound     = errors.New("record not found")
	ErrUniqueViolation    = errors.New("unique constraint violation")
	ErrIntegrityViolation = errors.New("integrity violation")
)

const (
	pqUniqueViolation      = "23505"
	pqForeignKeyViolation  = "23503"
	pqSerializationFailure = "40001"
)

// UniqueViolation reports whether err is a postgres unique violation on the named constraint.
// An empty name matches any constraint.
func UniqueViolation(err error, constraint string) bool {
	return pqErrorIs(err, pqUniqueViolation, constraint)
}

// ForeignKeyViolation reports whether err is a postgres foreign key violation on the named constraint.
// An empty name matches any constraint.
func ForeignKeyViolation(err error, constraint string) bool {
	return pqErrorIs(err, pqForeignKeyViolation, constraint)
}

// SerializationFailure reports whether err is a postgres serialization failure. The transaction
// can be retried.
func SerializationFailure(err error) bool {
	return pqErrorIs(err, pqSerializationFailure, "")
}

func pqErrorIs(err error, code pq.ErrorCode, constraint string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == code && (constraint == "" || pqErr.Constraint == constraint)
	}

	return false
}
