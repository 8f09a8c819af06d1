// Package cli implements the interactive LeafSync client: the capture
// commands, the manual sync trigger, and the reconnect-driven auto sync.
package cli

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/dmitrijs2005/leafsync/internal/blobstore"
	"github.com/dmitrijs2005/leafsync/internal/config"
	"github.com/dmitrijs2005/leafsync/internal/connectivity"
	"github.com/dmitrijs2005/leafsync/internal/docstore"
	"github.com/dmitrijs2005/leafsync/internal/identity"
	"github.com/dmitrijs2005/leafsync/internal/localdb"
	"github.com/dmitrijs2005/leafsync/internal/logging"
	"github.com/dmitrijs2005/leafsync/internal/netx"
	"github.com/dmitrijs2005/leafsync/internal/pending"
	"github.com/dmitrijs2005/leafsync/internal/storage"
	"github.com/dmitrijs2005/leafsync/internal/syncer"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	store   *pending.Store
	monitor *connectivity.Monitor
	coord   *syncer.Coordinator
	tokens  *identity.TokenProvider

	localDB  *sql.DB
	remoteDB *sql.DB
	migrated atomic.Bool
}

// NewApp wires the client: local sqlite storage, the pending store, the S3
// blob store, the Postgres document store (opened lazily so startup works
// offline), the identity provider and the connectivity monitor.
func NewApp(ctx context.Context, cfg *config.Config, logger logging.Logger) (*App, error) {
	db, err := localdb.Open(ctx, cfg.LocalDBPath)
	if err != nil {
		return nil, err
	}

	st := storage.NewSQLiteStorage(db)

	store := pending.NewStore(st, logger, cfg.MaxPendingScans)
	store.Load(ctx)

	tokens := identity.NewTokenProvider(st, []byte(cfg.TokenSecret), logger)

	blobs, err := blobstore.NewS3BlobStore(ctx, blobstore.S3Config{
		BaseEndpoint: cfg.S3BaseEndpoint,
		Region:       cfg.S3Region,
		Bucket:       cfg.S3Bucket,
		AccessKey:    cfg.S3AccessKey,
		SecretKey:    cfg.S3SecretKey,
		URLValidity:  cfg.S3URLValidity,
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	remoteDB, err := docstore.OpenLazy(cfg.DatabaseDSN)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	docs := docstore.NewPostgresDocStore(remoteDB)

	probeClient := &http.Client{}
	monitor := connectivity.NewMonitor(func(ctx context.Context) error {
		return netx.ProbeURL(ctx, probeClient, cfg.ProbeURL)
	}, cfg.ReconnectDebounce, logger)

	coord := syncer.New(store, blobs, docs, tokens,
		monitor.Online, logger, cfg.OpTimeout)

	app := &App{
		config:   cfg,
		logger:   logger,
		store:    store,
		monitor:  monitor,
		coord:    coord,
		tokens:   tokens,
		localDB:  db,
		remoteDB: remoteDB,
	}

	monitor.OnReconnect(func() { app.autoSync(context.Background()) })

	return app, nil
}

// Run starts the reachability watcher and the REPL, and shuts down on
// SIGINT/SIGTERM or when the user exits.
func (a *App) Run(ctx context.Context) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer a.Close()

	go a.monitor.Watch(ctx, a.config.OnlineCheckInterval)

	a.Root(ctx)
}

// Close releases database handles.
func (a *App) Close() {
	if a.remoteDB != nil {
		_ = a.remoteDB.Close()
	}
	if a.localDB != nil {
		_ = a.localDB.Close()
	}
}

// autoSync is the reconnect-triggered pass: make sure the remote schema
// exists, then drain the queue and report the counts.
func (a *App) autoSync(ctx context.Context) {
	if a.store.Len() == 0 {
		return
	}
	if _, ok := a.tokens.Current(ctx); !ok {
		return
	}

	a.ensureRemoteSchema(ctx)

	outcome := a.coord.SyncAll(ctx)
	if outcome.Synced > 0 || outcome.Failed > 0 {
		reportOutcome(outcome)
	}
}

// ensureRemoteSchema applies document-store migrations once, retrying on
// later calls until a connection succeeds. The handle is opened lazily, so
// the database is pinged with backoff first: right after a reconnect the
// server side may still be warming up.
func (a *App) ensureRemoteSchema(ctx context.Context) {
	if a.migrated.Load() || a.remoteDB == nil {
		return
	}
	if err := docstore.WaitReady(ctx, a.remoteDB); err != nil {
		a.logger.Warn(ctx, "document store not reachable", "error", err)
		return
	}
	if err := docstore.Migrate(ctx, a.remoteDB); err != nil {
		a.logger.Warn(ctx, "document store schema not ready", "error", err)
		return
	}
	a.migrated.Store(true)
}
