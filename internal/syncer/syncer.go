// Package syncer drains the pending-scan queue against the remote blob and
// document stores.
//
// One sync pass attempts every queued scan exactly once, oldest first. A scan
// is removed from the queue only after both its image upload and its metadata
// record succeed; any failure leaves it queued for the next pass (manual or
// reconnect-triggered), which makes the pipeline eventually consistent under
// repeated connectivity. Failures are isolated per item: one bad scan never
// aborts the rest of the batch.
package syncer

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/leafsync/internal/blobstore"
	"github.com/dmitrijs2005/leafsync/internal/docstore"
	"github.com/dmitrijs2005/leafsync/internal/identity"
	"github.com/dmitrijs2005/leafsync/internal/imagex"
	"github.com/dmitrijs2005/leafsync/internal/logging"
	"github.com/dmitrijs2005/leafsync/internal/models"
	"github.com/dmitrijs2005/leafsync/internal/pending"
)

// DefaultOpTimeout bounds each remote operation so a hung request cannot
// stall the whole pass. A timed-out operation counts as a plain failure.
const DefaultOpTimeout = 10 * time.Second

// Coordinator orchestrates sync passes. Construct with New; the zero value
// is not usable.
type Coordinator struct {
	store     *pending.Store
	blobs     blobstore.BlobStore
	docs      docstore.DocStore
	identity  identity.Provider
	online    func() bool
	logger    logging.Logger
	opTimeout time.Duration

	syncing atomic.Bool

	mu          sync.Mutex
	lastOutcome models.Outcome
}

// New wires a Coordinator with its collaborators. online reports the current
// connectivity state (normally Monitor.Online). opTimeout <= 0 selects
// DefaultOpTimeout.
func New(store *pending.Store, blobs blobstore.BlobStore, docs docstore.DocStore,
	provider identity.Provider, online func() bool, logger logging.Logger,
	opTimeout time.Duration) *Coordinator {

	if opTimeout <= 0 {
		opTimeout = DefaultOpTimeout
	}

	return &Coordinator{
		store:     store,
		blobs:     blobs,
		docs:      docs,
		identity:  provider,
		online:    online,
		logger:    logger.With("component", "syncer"),
		opTimeout: opTimeout,
	}
}

// Syncing reports whether a sync pass is currently running.
func (c *Coordinator) Syncing() bool {
	return c.syncing.Load()
}

// LastOutcome returns the result of the most recent completed pass.
func (c *Coordinator) LastOutcome() models.Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastOutcome
}

// SyncAll runs one sync pass and returns the aggregate counts. It never
// returns an error: expected failure modes are counted, and preconditions
// (no identity, offline, empty queue, pass already running) yield a zero
// outcome without touching the network. Concurrent calls while a pass is
// running are no-ops.
func (c *Coordinator) SyncAll(ctx context.Context) models.Outcome {
	userID, ok := c.identity.Current(ctx)
	if !ok {
		c.logger.Debug(ctx, "sync deferred: no authenticated identity")
		return models.Outcome{}
	}
	if !c.online() {
		c.logger.Debug(ctx, "sync deferred: offline")
		return models.Outcome{}
	}
	if c.store.Len() == 0 {
		return models.Outcome{}
	}

	// single-flight: a second caller returns immediately instead of queuing
	// another pass
	if !c.syncing.CompareAndSwap(false, true) {
		c.logger.Debug(ctx, "sync already in progress")
		return models.Outcome{}
	}
	defer c.syncing.Store(false)

	var outcome models.Outcome

	for _, scan := range c.store.List() {
		if err := c.syncOne(ctx, userID, scan); err != nil {
			outcome.Failed++
			c.logger.Warn(ctx, "scan left queued after failed sync", "id", scan.ID, "error", err)
			continue
		}
		outcome.Synced++
	}

	c.logger.Info(ctx, "sync pass finished", "synced", outcome.Synced, "failed", outcome.Failed)

	c.mu.Lock()
	c.lastOutcome = outcome
	c.mu.Unlock()

	return outcome
}

// syncOne uploads one scan and writes its metadata record, dequeuing only
// after both succeed. A panic from a collaborator is converted into a
// counted failure so the rest of the batch still runs.
func (c *Coordinator) syncOne(ctx context.Context, userID string, scan models.PendingScan) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic while syncing scan: %v", p)
		}
	}()

	data, contentType, err := imagex.DecodeDataURI(scan.ImageData)
	if err != nil {
		return fmt.Errorf("image decode error: %w", err)
	}

	key := storageKey(userID, scan.ID)

	uploadCtx, cancel := context.WithTimeout(ctx, c.opTimeout)
	err = c.blobs.Upload(uploadCtx, key, data, contentType)
	cancel()
	if err != nil {
		return fmt.Errorf("blob upload error: %w", err)
	}

	urlCtx, cancel := context.WithTimeout(ctx, c.opTimeout)
	url, err := c.blobs.AccessURL(urlCtx, key)
	cancel()
	if err != nil {
		return fmt.Errorf("blob url error: %w", err)
	}

	insertCtx, cancel := context.WithTimeout(ctx, c.opTimeout)
	_, err = c.docs.Insert(insertCtx, docstore.Record{
		UserID:      userID,
		ImageURL:    url,
		DiseaseName: scan.DiseaseName,
		CropName:    scan.CropName,
		Confidence:  scan.Confidence,
		CapturedAt:  scan.CreatedAt,
	})
	cancel()
	if err != nil {
		return fmt.Errorf("metadata insert error: %w", err)
	}

	if err := c.store.Dequeue(ctx, scan.ID); err != nil {
		// both remote writes succeeded; a snapshot persist failure here only
		// means the record may sync again later (at-least-once)
		c.logger.Warn(ctx, "failed to dequeue synced scan", "id", scan.ID, "error", err)
	}

	return nil
}

// storageKey namespaces a blob by owner, upload time and record id, keeping
// keys collision-resistant but human-traceable.
func storageKey(userID, scanID string) string {
	return fmt.Sprintf("scans/%s/%d-%s", userID, time.Now().UTC().Unix(), scanID)
}
