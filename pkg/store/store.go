package store

import (
	"context"
	"errors"

	"demoapi/pkg/domain"
)

// ErrClosed is returned by stores used after Close.
var ErrClosed = errors.New("store closed")

// Store defines persistence operations for demo records.
type Store interface {
	// CreateRecord inserts rec and returns it with the assigned id.
	// A zero Created is replaced with the insertion time.
	CreateRecord(ctx context.Context, rec domain.Record) (domain.Record, error)
	// ListRecords returns every record in insertion order.
	ListRecords(ctx context.Context) ([]domain.Record, error)
	Close() error
}

// Pinger is implemented by stores backed by a remote database.
type Pinger interface {
	Ping(ctx context.Context) error
}
