// Package models defines the core data types of the scan sync pipeline.
package models

import (
	"time"

	"github.com/dmitrijs2005/leafsync/internal/common"
)

// PendingScan is a diagnosis capture awaiting durable remote storage.
//
// The struct is immutable once enqueued: ID is the sole dequeue key,
// CreatedAt is the canonical capture time (not the sync time), and ImageData
// carries the whole encoded image payload as a base64 data URI.
type PendingScan struct {
	ID          string    `json:"id"`
	ImageData   string    `json:"imageData"`
	DiseaseName string    `json:"diseaseName"`
	CropName    string    `json:"cropName"`
	Confidence  float64   `json:"confidence"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Validate checks the fields a caller supplies at enqueue time.
func (s *PendingScan) Validate() error {
	if s.Confidence < 0 || s.Confidence > 1 {
		return common.ErrInvalidConfidence
	}
	if s.ImageData == "" {
		return common.ErrInvalidImageData
	}
	return nil
}

// Outcome is the aggregate result of one sync pass. It is produced fresh per
// invocation and never persisted.
type Outcome struct {
	Synced int
	Failed int
}
