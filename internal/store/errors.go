package store

import (
	"errors"

	"github.com/lib/pq"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a unique constraint is violated,
// e.g. registering an email that already exists.
var ErrConflict = errors.New("already exists")

// ErrBlocked is returned when a write sequence aborts because the
// target account is administratively blocked.
var ErrBlocked = errors.New("account blocked")

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
