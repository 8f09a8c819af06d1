package syncer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/leafsync/internal/blobstore"
	"github.com/dmitrijs2005/leafsync/internal/docstore"
	"github.com/dmitrijs2005/leafsync/internal/logging"
	"github.com/dmitrijs2005/leafsync/internal/models"
	"github.com/dmitrijs2005/leafsync/internal/pending"
	"github.com/dmitrijs2005/leafsync/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type fakeBlobs struct {
	mu         sync.Mutex
	uploadKeys []string
	uploadFn   func(ctx context.Context, key string) error
	urlFn      func(ctx context.Context, key string) (string, error)
}

var _ blobstore.BlobStore = (*fakeBlobs)(nil)

func (f *fakeBlobs) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	f.mu.Lock()
	f.uploadKeys = append(f.uploadKeys, key)
	f.mu.Unlock()
	if f.uploadFn != nil {
		return f.uploadFn(ctx, key)
	}
	return nil
}

func (f *fakeBlobs) AccessURL(ctx context.Context, key string) (string, error) {
	if f.urlFn != nil {
		return f.urlFn(ctx, key)
	}
	return "https://blobs.test/" + key, nil
}

func (f *fakeBlobs) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]string, len(f.uploadKeys))
	copy(cp, f.uploadKeys)
	return cp
}

type fakeDocs struct {
	mu       sync.Mutex
	records  []docstore.Record
	insertFn func(ctx context.Context, rec docstore.Record) error
}

var _ docstore.DocStore = (*fakeDocs)(nil)

func (f *fakeDocs) Insert(ctx context.Context, rec docstore.Record) (string, error) {
	if f.insertFn != nil {
		if err := f.insertFn(ctx, rec); err != nil {
			return "", err
		}
	}
	f.mu.Lock()
	f.records = append(f.records, rec)
	f.mu.Unlock()
	return "doc-id", nil
}

func (f *fakeDocs) inserted() []docstore.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]docstore.Record, len(f.records))
	copy(cp, f.records)
	return cp
}

type fakeIdentity struct {
	userID string
	ok     bool
}

func (f *fakeIdentity) Current(context.Context) (string, bool) { return f.userID, f.ok }

type harness struct {
	store *pending.Store
	blobs *fakeBlobs
	docs  *fakeDocs
	ident *fakeIdentity
	coord *Coordinator

	online bool
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store:  pending.NewStore(storage.NewMemoryStorage(), discardLogger(), 0),
		blobs:  &fakeBlobs{},
		docs:   &fakeDocs{},
		ident:  &fakeIdentity{userID: "u1", ok: true},
		online: true,
	}
	h.coord = New(h.store, h.blobs, h.docs, h.ident,
		func() bool { return h.online }, discardLogger(), time.Second)
	return h
}

func (h *harness) enqueue(t *testing.T, disease string) string {
	t.Helper()
	id, err := h.store.Enqueue(context.Background(), models.PendingScan{
		ImageData:   "data:image/jpeg;base64,AAECAw==",
		DiseaseName: disease,
		CropName:    "Tomato",
		Confidence:  0.82,
	})
	require.NoError(t, err)
	return id
}

func TestSyncAll_HappyPathScenario(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.online = false
	id := h.enqueue(t, "Late Blight")
	assert.Equal(t, 1, h.store.Len())

	// offline: nothing happens
	assert.Equal(t, models.Outcome{}, h.coord.SyncAll(ctx))

	// back online, next pass drains the queue
	h.online = true
	outcome := h.coord.SyncAll(ctx)
	assert.Equal(t, models.Outcome{Synced: 1, Failed: 0}, outcome)
	assert.Equal(t, 0, h.store.Len())
	assert.Equal(t, outcome, h.coord.LastOutcome())

	records := h.docs.inserted()
	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, "u1", rec.UserID)
	assert.Equal(t, "Late Blight", rec.DiseaseName)
	assert.Equal(t, "Tomato", rec.CropName)
	assert.InDelta(t, 0.82, rec.Confidence, 1e-9)
	assert.False(t, rec.CapturedAt.IsZero())
	assert.True(t, strings.HasPrefix(rec.ImageURL, "https://blobs.test/scans/u1/"), "url = %q", rec.ImageURL)
	assert.True(t, strings.HasSuffix(rec.ImageURL, "-"+id))
}

func TestSyncAll_Preconditions_NoNetworkCalls(t *testing.T) {
	ctx := context.Background()

	t.Run("offline", func(t *testing.T) {
		h := newHarness(t)
		h.enqueue(t, "Rust")
		h.online = false

		assert.Equal(t, models.Outcome{}, h.coord.SyncAll(ctx))
		assert.Empty(t, h.blobs.keys())
		assert.Empty(t, h.docs.inserted())
		assert.Equal(t, 1, h.store.Len())
	})

	t.Run("empty queue", func(t *testing.T) {
		h := newHarness(t)
		assert.Equal(t, models.Outcome{}, h.coord.SyncAll(ctx))
		assert.Empty(t, h.blobs.keys())
	})

	t.Run("no identity", func(t *testing.T) {
		h := newHarness(t)
		h.enqueue(t, "Rust")
		h.ident.ok = false

		assert.Equal(t, models.Outcome{}, h.coord.SyncAll(ctx))
		assert.Empty(t, h.blobs.keys())
		assert.Equal(t, 1, h.store.Len())
	})
}

func TestSyncAll_FailureIsolation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_ = h.enqueue(t, "one")
	id2 := h.enqueue(t, "two")
	_ = h.enqueue(t, "three")

	h.blobs.uploadFn = func(ctx context.Context, key string) error {
		if strings.HasSuffix(key, "-"+id2) {
			return errors.New("connection reset")
		}
		return nil
	}

	outcome := h.coord.SyncAll(ctx)
	assert.Equal(t, models.Outcome{Synced: 2, Failed: 1}, outcome)

	left := h.store.List()
	require.Len(t, left, 1)
	assert.Equal(t, id2, left[0].ID)
}

func TestSyncAll_DocStoreFailureLeavesRecordQueued(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.enqueue(t, "one")
	h.docs.insertFn = func(ctx context.Context, rec docstore.Record) error {
		return errors.New("constraint violation")
	}

	assert.Equal(t, models.Outcome{Synced: 0, Failed: 1}, h.coord.SyncAll(ctx))
	assert.Equal(t, 1, h.store.Len(), "blob uploaded but metadata missing: must stay queued")
}

func TestSyncAll_FIFOOrder(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	ids := []string{h.enqueue(t, "a"), h.enqueue(t, "b"), h.enqueue(t, "c")}

	h.coord.SyncAll(ctx)

	keys := h.blobs.keys()
	require.Len(t, keys, 3)
	for i, id := range ids {
		assert.True(t, strings.HasSuffix(keys[i], "-"+id),
			"upload %d = %q, want suffix %q", i, keys[i], id)
	}
}

func TestSyncAll_SingleFlight(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.enqueue(t, "one")

	block := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once
	h.blobs.uploadFn = func(ctx context.Context, key string) error {
		once.Do(func() { close(started) })
		<-block
		return nil
	}

	results := make(chan models.Outcome, 1)
	go func() { results <- h.coord.SyncAll(ctx) }()

	<-started
	require.True(t, h.coord.Syncing())

	// a second pass issued while the first holds the flag is a silent no-op
	second := h.coord.SyncAll(ctx)
	assert.Equal(t, models.Outcome{}, second)

	close(block)
	first := <-results
	assert.Equal(t, models.Outcome{Synced: 1, Failed: 0}, first)
	assert.False(t, h.coord.Syncing())
}

func TestSyncAll_EventualConsistency(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.enqueue(t, "stubborn")

	failing := true
	h.blobs.uploadFn = func(ctx context.Context, key string) error {
		if failing {
			return errors.New("still broken")
		}
		return nil
	}

	// repeated passes with a persistently failing collaborator
	for i := 0; i < 3; i++ {
		assert.Equal(t, models.Outcome{Synced: 0, Failed: 1}, h.coord.SyncAll(ctx))
		assert.Equal(t, 1, h.store.Len())
	}

	failing = false
	assert.Equal(t, models.Outcome{Synced: 1, Failed: 0}, h.coord.SyncAll(ctx))
	assert.Equal(t, 0, h.store.Len())
}

func TestSyncAll_TimeoutCountsAsFailure(t *testing.T) {
	h := newHarness(t)
	h.coord = New(h.store, h.blobs, h.docs, h.ident,
		func() bool { return h.online }, discardLogger(), 20*time.Millisecond)
	ctx := context.Background()
	h.enqueue(t, "slow")

	h.blobs.uploadFn = func(ctx context.Context, key string) error {
		<-ctx.Done()
		return ctx.Err()
	}

	assert.Equal(t, models.Outcome{Synced: 0, Failed: 1}, h.coord.SyncAll(ctx))
	assert.Equal(t, 1, h.store.Len())
}

func TestSyncAll_PanicIsIsolated(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	id1 := h.enqueue(t, "panics")
	_ = h.enqueue(t, "fine")

	h.docs.insertFn = func(ctx context.Context, rec docstore.Record) error {
		if rec.DiseaseName == "panics" {
			panic("collaborator bug")
		}
		return nil
	}

	outcome := h.coord.SyncAll(ctx)
	assert.Equal(t, models.Outcome{Synced: 1, Failed: 1}, outcome)

	left := h.store.List()
	require.Len(t, left, 1)
	assert.Equal(t, id1, left[0].ID)
}

func TestSyncAll_MalformedImagePayload(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.store.Enqueue(ctx, models.PendingScan{
		ImageData:   "not-a-data-uri",
		DiseaseName: "x",
		CropName:    "y",
		Confidence:  0.5,
	})
	require.NoError(t, err)

	assert.Equal(t, models.Outcome{Synced: 0, Failed: 1}, h.coord.SyncAll(ctx))
	assert.Empty(t, h.blobs.keys(), "decode fails before any network call")
}

func TestStorageKey_Shape(t *testing.T) {
	key := storageKey("u1", "abc")
	assert.Regexp(t, fmt.Sprintf(`^scans/u1/\d+-abc$`), key)
}
