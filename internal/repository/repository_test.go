package repository

import (
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func TestPageBounds(t *testing.T) {
	limit, offset := pageBounds(0, 0)
	require.Equal(t, 20, limit)
	require.Equal(t, 0, offset)

	limit, offset = pageBounds(3, 50)
	require.Equal(t, 50, limit)
	require.Equal(t, 100, offset)

	limit, _ = pageBounds(1, 500)
	require.Equal(t, 20, limit)
}
