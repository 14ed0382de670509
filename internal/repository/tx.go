package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// withTx runs fn in a transaction, committing when fn returns nil.
func withTx(ctx context.Context, db *sqlx.DB, name string, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s transaction: %w", name, err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit %s transaction: %w", name, err)
	}
	committed = true
	return nil
}

// whereClause accumulates AND conditions written with ? placeholders.
type whereClause struct {
	conditions []string
	args       []interface{}
}

func (w *whereClause) add(condition string, args ...interface{}) {
	w.conditions = append(w.conditions, condition)
	w.args = append(w.args, args...)
}

func (w *whereClause) String() string {
	if len(w.conditions) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conditions, " AND ")
}

// pageBounds clamps paging input the same way for every listing.
func pageBounds(page, size int) (limit, offset int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return size, (page - 1) * size
}

func sortColumn(allowed map[string]string, requested, fallback string) string {
	if column, ok := allowed[requested]; ok {
		return column
	}
	return allowed[fallback]
}

func sortOrder(raw, fallback string) string {
	order := strings.ToUpper(strings.TrimSpace(raw))
	if order != "ASC" && order != "DESC" {
		return fallback
	}
	return order
}
