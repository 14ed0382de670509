// Package migrations embeds the schema for every supported driver and runs it with goose.
package migrations

import (
	"context"
	"embed"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"github.com/noah-isme/maktab-api/pkg/config"
)

//go:embed postgres/*.sql mysql/*.sql sqlite3/*.sql
var files embed.FS

// goose keeps its dialect and filesystem in package state.
var mu sync.Mutex

// Dir returns the embedded directory holding migrations for driver.
func Dir(driver string) (string, error) {
	switch driver {
	case config.DriverPostgres, config.DriverMySQL, config.DriverSQLite:
		return driver, nil
	default:
		return "", fmt.Errorf("no migrations for driver %q", driver)
	}
}

// Up applies all pending migrations.
func Up(ctx context.Context, db *sqlx.DB, logger *zap.Logger) error {
	return Run(ctx, db, logger, "up")
}

// Run executes a goose command (up, down, status, version, redo, reset) against db.
func Run(ctx context.Context, db *sqlx.DB, logger *zap.Logger, command string, args ...string) error {
	dir, err := Dir(db.DriverName())
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()

	goose.SetBaseFS(files)
	defer goose.SetBaseFS(nil)
	goose.SetLogger(zapLogger{logger: logger})

	if err := goose.SetDialect(db.DriverName()); err != nil {
		return fmt.Errorf("set migration dialect: %w", err)
	}
	if err := goose.RunContext(ctx, command, db.DB, dir, args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

type zapLogger struct {
	logger *zap.Logger
}

func (l zapLogger) Fatalf(format string, v ...interface{}) {
	l.sugar().Fatalf(format, v...)
}

func (l zapLogger) Printf(format string, v ...interface{}) {
	l.sugar().Infof(format, v...)
}

func (l zapLogger) sugar() *zap.SugaredLogger {
	if l.logger == nil {
		return zap.NewNop().Sugar()
	}
	return l.logger.Sugar()
}
