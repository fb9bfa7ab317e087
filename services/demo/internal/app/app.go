package app

import (
	"context"
	"fmt"
	"strings"

	"demoapi/pkg/domain"
	"demoapi/pkg/store"
)

const (
	// DeleteAcknowledgement is returned by the delete placeholder.
	DeleteAcknowledgement = "DELETE api called!"
	// UpdateAcknowledgement is returned by the put placeholder.
	UpdateAcknowledgement = "PUT api called!"

	memoryDSN = "memory://"
)

// Config holds runtime configuration for the core application.
type Config struct {
	DatabaseURL string
	Store       store.Store
	// EmptyListNotFound makes ListRecords return ErrNotFound instead of an
	// empty slice when the table has no rows.
	EmptyListNotFound bool
}

// App is the core application service wiring together storage and the transcoder.
type App struct {
	store             store.Store
	codec             *Transcoder
	emptyListNotFound bool
}

// New constructs the application. When cfg.Store is nil a store is opened
// from cfg.DatabaseURL; "memory://" selects the in-process store.
func New(cfg Config) (*App, error) {
	dataStore := cfg.Store
	if dataStore == nil {
		dsn := strings.TrimSpace(cfg.DatabaseURL)
		switch dsn {
		case "":
			return nil, fmt.Errorf("database URL required")
		case memoryDSN:
			dataStore = store.NewMemoryStore()
		default:
			gormStore, err := store.NewGormStore(dsn)
			if err != nil {
				return nil, fmt.Errorf("init record store: %w", err)
			}
			dataStore = gormStore
		}
	}
	return &App{
		store:             dataStore,
		codec:             NewTranscoder(),
		emptyListNotFound: cfg.EmptyListNotFound,
	}, nil
}

// CreateRecord decodes raw and persists a new record.
func (a *App) CreateRecord(ctx context.Context, raw []byte) (domain.Record, error) {
	req, err := a.codec.Decode(raw)
	if err != nil {
		return domain.Record{}, err
	}
	rec, err := a.store.CreateRecord(ctx, domain.Record{Message: *req.Message})
	if err != nil {
		return domain.Record{}, &StoreError{Op: "create record", Err: err}
	}
	return rec, nil
}

// ListRecords returns every stored record in output form.
func (a *App) ListRecords(ctx context.Context) ([]RecordFields, error) {
	records, err := a.store.ListRecords(ctx)
	if err != nil {
		return nil, &StoreError{Op: "list records", Err: err}
	}
	if len(records) == 0 && a.emptyListNotFound {
		return nil, ErrNotFound
	}
	return a.codec.Encode(records), nil
}

// Ping checks the record store when it supports health checks.
func (a *App) Ping(ctx context.Context) error {
	pinger, ok := a.store.(store.Pinger)
	if !ok {
		return nil
	}
	if err := pinger.Ping(ctx); err != nil {
		return &StoreError{Op: "ping", Err: err}
	}
	return nil
}

// DeleteRecord is a placeholder; storage is never touched.
func (a *App) DeleteRecord(_ context.Context) string {
	return DeleteAcknowledgement
}

// UpdateRecord is a placeholder; storage is never touched.
func (a *App) UpdateRecord(_ context.Context) string {
	return UpdateAcknowledgement
}

// Close releases the record store.
func (a *App) Close() error {
	return a.store.Close()
}
