package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"demoapi/pkg/domain"
)

const migrateLockID int64 = 41930417

type dialect string

const (
	dialectPostgres dialect = "postgres"
	dialectSQLite   dialect = "sqlite"
)

type GormStoreOptions struct {
	LogLevel      gormlogger.LogLevel
	SkipMigration bool
}

type GormStoreOption func(*GormStoreOptions)

// WithLogLevel overrides the GORM log level (Warn by default).
func WithLogLevel(level gormlogger.LogLevel) GormStoreOption {
	return func(opts *GormStoreOptions) {
		opts.LogLevel = level
	}
}

// WithoutMigration opens the database without running auto-migration.
func WithoutMigration() GormStoreOption {
	return func(opts *GormStoreOptions) {
		opts.SkipMigration = true
	}
}

// GormStore implements Store using GORM over Postgres or SQLite.
type GormStore struct {
	db      *gorm.DB
	dialect dialect
}

// NewGormStore opens the DB and runs auto-migrations.
// Postgres DSNs (URL or key=value) and sqlite:// or file: DSNs are accepted.
func NewGormStore(dsn string, options ...GormStoreOption) (*GormStore, error) {
	opts := GormStoreOptions{LogLevel: gormlogger.Warn}
	for _, option := range options {
		if option != nil {
			option(&opts)
		}
	}
	d, conn, err := resolveDialect(dsn)
	if err != nil {
		return nil, err
	}

	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  opts.LogLevel,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	var dialector gorm.Dialector
	switch d {
	case dialectSQLite:
		dialector = sqlite.Open(conn)
	default:
		dialector = postgres.Open(conn)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	s := &GormStore{db: db, dialect: d}
	if d == dialectSQLite {
		// single writer keeps sqlite from returning SQLITE_BUSY under the HTTP server
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.SetMaxOpenConns(1)
		}
	}
	if !opts.SkipMigration {
		if err := s.Migrate(context.Background()); err != nil {
			_ = s.Close()
			return nil, err
		}
	}
	return s, nil
}

func resolveDialect(dsn string) (dialect, string, error) {
	dsn = strings.TrimSpace(dsn)
	switch {
	case dsn == "":
		return "", "", errors.New("database dsn required")
	case strings.HasPrefix(dsn, "sqlite://"):
		path := strings.TrimPrefix(dsn, "sqlite://")
		if path == "" {
			return "", "", errors.New("sqlite dsn requires a path")
		}
		return dialectSQLite, path, nil
	case strings.HasPrefix(dsn, "file:"):
		return dialectSQLite, dsn, nil
	default:
		return dialectPostgres, dsn, nil
	}
}

// Migrate creates or updates the demo table.
func (s *GormStore) Migrate(ctx context.Context) error {
	migrate := func(tx *gorm.DB) error {
		if err := tx.WithContext(ctx).AutoMigrate(&RecordModel{}); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	}
	if s.dialect != dialectPostgres {
		return migrate(s.db)
	}
	return withMigrationLock(ctx, s.db, migrate)
}

func withMigrationLock(ctx context.Context, db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

// CreateRecord inserts a single row.
func (s *GormStore) CreateRecord(ctx context.Context, rec domain.Record) (domain.Record, error) {
	if rec.Created.IsZero() {
		rec.Created = now()
	}
	model := recordToModel(rec)
	model.ID = 0
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return domain.Record{}, err
	}
	return recordFromModel(model), nil
}

// ListRecords returns all records ordered by id.
func (s *GormStore) ListRecords(ctx context.Context) ([]domain.Record, error) {
	var models []RecordModel
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Record, 0, len(models))
	for _, m := range models {
		res = append(res, recordFromModel(m))
	}
	return res, nil
}

// Ping checks database connectivity.
func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the underlying connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// now is truncated to microseconds, the precision Postgres keeps.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func recordToModel(r domain.Record) RecordModel {
	return RecordModel{
		ID:      r.ID,
		Message: r.Message,
		Created: r.Created,
	}
}

func recordFromModel(m RecordModel) domain.Record {
	return domain.Record{
		ID:      m.ID,
		Message: m.Message,
		Created: m.Created.UTC(),
	}
}
