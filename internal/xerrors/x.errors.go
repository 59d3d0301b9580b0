package xerrors

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Reconciliation taxonomy. Callers branch with errors.Is; the concrete
// cause stays wrapped around the sentinel.
var (
	// ErrNotFound: the addressed record or account does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidAmount: bad monetary input. Never retried, the caller must fix it.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrUnknownStatus: status label outside the closed vocabulary.
	ErrUnknownStatus = errors.New("unknown status")

	// ErrReconciliation: no resolvable account or a transition policy
	// violation. Surfaced before any transaction begins.
	ErrReconciliation = errors.New("reconciliation blocked")

	// ErrConstraint: storage-level rule violation (foreign key, unique,
	// check). The transaction was rolled back.
	ErrConstraint = errors.New("constraint violation")

	// ErrPersistence: transient infrastructure failure. Nothing was
	// applied, so the whole call is safe to retry.
	ErrPersistence = errors.New("persistence failure")
)

// ParsePGErrorCode extracts the SQLSTATE code from a pgx error, or
// "unknown" when the error did not come from Postgres.
func ParsePGErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code // e.g. 23505 for unique_violation
	}
	return "unknown"
}

// IsConstraintViolation reports whether err is a Postgres integrity
// constraint violation (SQLSTATE class 23).
func IsConstraintViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return len(pgErr.Code) >= 2 && pgErr.Code[:2] == "23"
}
