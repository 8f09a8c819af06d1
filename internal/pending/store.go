// Package pending implements the durable, ordered queue of scan captures
// awaiting upload.
//
// The queue is a set keyed by scan id that preserves insertion order. Every
// mutation persists a full JSON snapshot to local storage before returning,
// so a crash never loses more than the in-flight operation. A record stays
// queued from enqueue until the sync coordinator confirms both remote writes
// for it.
package pending

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/leafsync/internal/common"
	"github.com/dmitrijs2005/leafsync/internal/logging"
	"github.com/dmitrijs2005/leafsync/internal/models"
	"github.com/dmitrijs2005/leafsync/internal/storage"
	"github.com/google/uuid"
)

// SnapshotKey is the fixed storage key holding the queue snapshot.
const SnapshotKey = "pending-scans"

// DefaultMaxSize caps the queue so unbounded image accumulation while
// offline cannot exhaust local storage. Enqueue past the cap is rejected,
// never silently dropped.
const DefaultMaxSize = 500

// Store is the sole owner of unsynced scan records. All mutations go through
// Enqueue/Dequeue; the sync coordinator's single-flight guard ensures no two
// sync passes mutate it concurrently.
type Store struct {
	mu      sync.Mutex
	queue   []models.PendingScan
	storage storage.Storage
	maxSize int
	logger  logging.Logger
}

// NewStore creates a Store over the given durable storage. maxSize <= 0
// selects DefaultMaxSize.
func NewStore(st storage.Storage, logger logging.Logger, maxSize int) *Store {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Store{
		storage: st,
		maxSize: maxSize,
		logger:  logger.With("component", "pending"),
	}
}

// Load restores the queue from durable storage. An absent or corrupt
// snapshot fails soft: the store starts empty and capture keeps working.
func (s *Store) Load(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.storage.Get(ctx, SnapshotKey)
	if err != nil {
		s.logger.Warn(ctx, "failed to read pending snapshot, starting empty", "error", err)
		s.queue = nil
		return
	}
	if data == nil {
		s.queue = nil
		return
	}

	var queue []models.PendingScan
	if err := json.Unmarshal(data, &queue); err != nil {
		s.logger.Warn(ctx, "corrupt pending snapshot, starting empty", "error", err)
		s.queue = nil
		return
	}

	s.queue = queue
}

// Enqueue assigns a fresh id and capture timestamp, appends the scan to the
// end of the queue and persists the snapshot before returning. The assigned
// id is returned. A full queue returns common.ErrQueueFull.
func (s *Store) Enqueue(ctx context.Context, scan models.PendingScan) (string, error) {
	if err := scan.Validate(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.queue) >= s.maxSize {
		return "", common.ErrQueueFull
	}

	scan.ID = uuid.NewString()
	scan.CreatedAt = time.Now().UTC()

	s.queue = append(s.queue, scan)

	if err := s.persistLocked(ctx); err != nil {
		// keep the record in memory so it can still sync this session
		return scan.ID, fmt.Errorf("failed to persist pending snapshot: %w", err)
	}

	return scan.ID, nil
}

// Dequeue removes the entry with the matching id and persists the remaining
// queue. Removal is idempotent: an absent id is a no-op.
func (s *Store) Dequeue(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, scan := range s.queue {
		if scan.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}

	s.queue = append(s.queue[:idx], s.queue[idx+1:]...)

	if err := s.persistLocked(ctx); err != nil {
		return fmt.Errorf("failed to persist pending snapshot: %w", err)
	}
	return nil
}

// List returns a copy of the queue in insertion order.
func (s *Store) List() []models.PendingScan {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]models.PendingScan, len(s.queue))
	copy(result, s.queue)
	return result
}

// Len returns the number of queued scans.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// persistLocked writes the full current queue as one snapshot. Callers must
// hold s.mu.
func (s *Store) persistLocked(ctx context.Context) error {
	data, err := json.Marshal(s.queue)
	if err != nil {
		return err
	}
	return s.storage.Set(ctx, SnapshotKey, data)
}
