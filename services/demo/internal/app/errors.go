package app

import (
	"errors"
	"fmt"
)

var (
	// ErrDecode matches every *DecodeError.
	ErrDecode = errors.New("decode request")
	// ErrStore matches every *StoreError.
	ErrStore = errors.New("record store")
	// ErrNotFound is returned by ListRecords when no records exist and the
	// app treats an empty table as not found.
	ErrNotFound = errors.New("records not found")
)

// DecodeError reports a create body that could not be turned into a record.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode request: %s: %v", e.Reason, e.Err)
	}
	return "decode request: " + e.Reason
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

// StoreError reports a failure of the persistence collaborator.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return target == ErrStore }
