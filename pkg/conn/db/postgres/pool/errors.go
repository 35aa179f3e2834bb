package pool

import (
	"errors"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v4"
)

// UniqueViolation reports whether err is a unique-constraint
// violation, for repositories that translate it to a domain conflict.
func UniqueViolation(err error) bool {
	pgErr := new(pgconn.PgError)
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// NoRows reports whether err is pgx's empty-result sentinel.
func NoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
