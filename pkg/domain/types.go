package domain

import "time"

// Record is a single stored demo entry.
type Record struct {
	ID      int64     `json:"id"`
	Message string    `json:"message"`
	Created time.Time `json:"created"`
}

// Persisted reports whether the record has been assigned a primary key.
func (r Record) Persisted() bool {
	return r.ID > 0
}
