package database

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/maktab-api/pkg/config"
)

// Dialect captures the SQL differences between supported drivers.
type Dialect string

const (
	Postgres Dialect = config.DriverPostgres
	MySQL    Dialect = config.DriverMySQL
	SQLite   Dialect = config.DriverSQLite
)

// DialectOf reports the dialect of an open handle. Unknown drivers (sqlmock in
// tests) are treated as postgres.
func DialectOf(db *sqlx.DB) Dialect {
	if db == nil {
		return Postgres
	}
	switch db.DriverName() {
	case config.DriverMySQL:
		return MySQL
	case config.DriverSQLite, "sqlite":
		return SQLite
	default:
		return Postgres
	}
}

// Upsert returns the conflict clause updating the given columns when the
// conflict columns collide.
func (d Dialect) Upsert(conflict []string, update []string) string {
	sets := make([]string, 0, len(update))
	if d == MySQL {
		for _, col := range update {
			sets = append(sets, fmt.Sprintf("%s = VALUES(%s)", col, col))
		}
		return " ON DUPLICATE KEY UPDATE " + strings.Join(sets, ", ")
	}
	for _, col := range update {
		sets = append(sets, fmt.Sprintf("%s = excluded.%s", col, col))
	}
	return fmt.Sprintf(" ON CONFLICT (%s) DO UPDATE SET %s", strings.Join(conflict, ", "), strings.Join(sets, ", "))
}

// LikePattern lowercases term and wraps it for a LOWER(col) LIKE ? predicate.
func LikePattern(term string) string {
	return "%" + strings.ToLower(strings.TrimSpace(term)) + "%"
}
