package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Common errors for repository operations.
var (
	ErrPlayerNotFound = errors.New("player not found")
	ErrBannerNotFound = errors.New("banner not found")
	ErrEntryNotFound  = errors.New("inventory entry not found")
	ErrAssetNotFound  = errors.New("asset not found")
)

const uniqueViolation = "23505"

// IsUniqueViolation reports whether err is a PostgreSQL unique-constraint
// violation. Concurrent first unlocks and registrations race on such
// constraints and lose benignly.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	return false
}
