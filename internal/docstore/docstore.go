// Package docstore abstracts the remote document store holding synced scan
// metadata records, with a PostgreSQL implementation.
package docstore

import (
	"context"
	"time"
)

// Record is the fixed metadata shape written for every synced scan.
// CapturedAt is the original capture time, not the sync time.
type Record struct {
	UserID      string
	ImageURL    string
	DiseaseName string
	CropName    string
	Confidence  float64
	CapturedAt  time.Time
}

// DocStore is the remote metadata collaborator of the sync coordinator.
type DocStore interface {
	// Insert writes one record and returns its assigned id.
	Insert(ctx context.Context, rec Record) (string, error)
}
