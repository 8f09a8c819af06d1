// Package common defines shared constants and sentinel errors used across
// LeafSync components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Storage-level errors.
	ErrorNotFound = errors.New("not found")

	// Pending-scan queue errors.
	ErrQueueFull = errors.New("pending queue is full")

	// Validation errors.
	ErrInvalidConfidence = errors.New("confidence out of range")
	ErrInvalidImageData  = errors.New("invalid image data")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
)
