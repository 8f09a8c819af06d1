// Package blobstore abstracts the remote blob store that receives scan
// images, with an S3-compatible implementation.
package blobstore

import "context"

// BlobStore is the remote image storage collaborator of the sync
// coordinator. Implementations must handle payloads of several MB.
type BlobStore interface {
	// Upload stores data under key.
	Upload(ctx context.Context, key string, data []byte, contentType string) error

	// AccessURL returns a durable, accessible URL for a previously uploaded key.
	AccessURL(ctx context.Context, key string) (string, error)
}
