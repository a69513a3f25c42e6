// Package sqlstore keeps the ledger in SQLite or PostgreSQL through gorm. The schema is owned
// by the goose migrations embedded below.
package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"strings"

	errors "github.com/frahmantamala/dot-spend/internal"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"

	migrationTable = "schema_migrations"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrations embed.FS

type Options struct {
	Dialect      string
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
}

type Store struct {
	db      *gorm.DB
	sqlDB   *sql.DB
	dialect string
	logger  *slog.Logger
}

// Open connects to the database. SQLite files are opened in WAL mode with a busy timeout and a
// single writer connection.
func Open(opts Options, logger *slog.Logger) (*Store, error) {
	var dialector gorm.Dialector
	switch opts.Dialect {
	case DialectSQLite:
		dialector = sqlite.Open(sqliteDSN(opts.DSN))
	case DialectPostgres:
		// goose and gorm share one pgx stdlib pool
		conn, err := sql.Open("pgx", opts.DSN)
		if err != nil {
			return nil, errors.NewStorageError("failed to open database", errors.ErrCodeStorageRead, err)
		}
		dialector = postgres.New(postgres.Config{Conn: conn})
	default:
		return nil, errors.NewValidationError(fmt.Sprintf("unsupported database dialect %q", opts.Dialect), errors.ErrCodeInvalidConfig)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, errors.NewStorageError("failed to open database", errors.ErrCodeStorageRead, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.NewStorageError("failed to get database handle", errors.ErrCodeStorageRead, err)
	}
	if opts.Dialect == DialectSQLite {
		sqlDB.SetMaxOpenConns(1)
	} else {
		if opts.MaxOpenConns > 0 {
			sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
		}
		if opts.MaxIdleConns > 0 {
			sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
		}
	}

	logger.Debug("database opened", "dialect", opts.Dialect)
	return &Store{db: db, sqlDB: sqlDB, dialect: opts.Dialect, logger: logger}, nil
}

func sqliteDSN(path string) string {
	if strings.Contains(path, "?") {
		return path
	}
	return path + "?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on"
}

func (s *Store) Dialect() string {
	return s.dialect
}

func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) Ping(ctx context.Context) error {
	return s.sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.sqlDB.Close()
}

// Migrate applies pending migrations. With rollback it reverts the latest one instead.
func (s *Store) Migrate(ctx context.Context, rollback bool) error {
	goose.SetBaseFS(migrations)
	defer goose.SetBaseFS(nil)
	goose.SetTableName(migrationTable)
	goose.SetLogger(&gooseLogger{logger: s.logger})

	gooseDialect := "postgres"
	if s.dialect == DialectSQLite {
		gooseDialect = "sqlite3"
	}
	if err := goose.SetDialect(gooseDialect); err != nil {
		return errors.NewInternalError("failed to select migration dialect", err)
	}

	dir := "migrations/" + s.dialect
	var err error
	if rollback {
		err = goose.DownContext(ctx, s.sqlDB, dir)
	} else {
		err = goose.UpContext(ctx, s.sqlDB, dir)
	}
	if err != nil {
		return errors.NewStorageError("database migration failed", errors.ErrCodeStorageWrite, err)
	}

	version, err := goose.GetDBVersionContext(ctx, s.sqlDB)
	if err == nil {
		s.logger.Info("database schema ready", "dialect", s.dialect, "version", version)
	}
	return nil
}

func (s *Store) Expenses() *ExpenseRepository {
	return &ExpenseRepository{db: s.db}
}

func (s *Store) Budgets() *BudgetRepository {
	return &BudgetRepository{db: s.db}
}

func (s *Store) Recurring() *RecurringRepository {
	return &RecurringRepository{db: s.db}
}

// gooseLogger routes goose output through slog.
type gooseLogger struct {
	logger *slog.Logger
}

func (l *gooseLogger) Printf(format string, v ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "goose")
}

func (l *gooseLogger) Fatalf(format string, v ...interface{}) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "goose")
}
