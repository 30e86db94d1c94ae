package postgres

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// isUniqueViolation verifica si un error es una violación de constraint único (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}

// advisoryKey clave textual para pg_advisory_xact_lock(hashtextextended(key, 0)).
func advisoryKey(scope string, parts ...string) string {
	return scope + ":" + strings.Join(parts, ":")
}
