package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/dmitrijs2005/leafsync/internal/common"
	"github.com/dmitrijs2005/leafsync/internal/imagex"
	"github.com/dmitrijs2005/leafsync/internal/models"
)

// readFileFn is an indirection used to facilitate testing. It points to
// os.ReadFile and can be swapped in tests.
var readFileFn = os.ReadFile

// Login stores the provided access token after validating its signature.
func (a *App) Login(ctx context.Context, args []string) error {
	if len(args) != 1 {
		printlnFn("Usage: login <token>")
		return nil
	}

	if err := a.tokens.SetToken(ctx, args[0]); err != nil {
		if errors.Is(err, common.ErrInvalidToken) {
			printlnFn("Login unsuccessfull: invalid token")
			return nil
		}
		return err
	}

	printlnFn("Login successfull")
	return nil
}

// Logout discards the stored access token. Pending scans stay queued.
func (a *App) Logout(ctx context.Context) error {
	if err := a.tokens.ClearToken(ctx); err != nil {
		return err
	}
	printlnFn("Logged out")
	return nil
}

// Scan captures a diagnosis: it reads the image file, queues the record
// locally and, when the device is online, immediately tries to push it.
func (a *App) Scan(ctx context.Context, args []string) error {
	if len(args) != 4 {
		printlnFn("Usage: scan <image> <crop> <disease> <confidence>")
		return nil
	}

	confidence, err := strconv.ParseFloat(args[3], 64)
	if err != nil {
		printlnFn("Confidence must be a number between 0 and 1")
		return nil
	}

	data, err := readFileFn(args[0])
	if err != nil {
		printlnFn("Cannot read image:", err.Error())
		return nil
	}

	id, err := a.store.Enqueue(ctx, models.PendingScan{
		ImageData:   imagex.EncodeDataURI(data),
		CropName:    args[1],
		DiseaseName: args[2],
		Confidence:  confidence,
	})
	if err != nil {
		if errors.Is(err, common.ErrQueueFull) {
			printlnFn("Queue is full, sync before capturing more scans")
			return nil
		}
		if errors.Is(err, common.ErrInvalidConfidence) {
			printlnFn("Confidence must be a number between 0 and 1")
			return nil
		}
		return err
	}

	printlnFn("Scan queued:", id)

	if a.monitor.Online() {
		go a.autoSync(context.Background())
	}
	return nil
}

// List prints the pending queue in capture order.
func (a *App) List(ctx context.Context) error {
	scans := a.store.List()
	if len(scans) == 0 {
		printlnFn("No pending scans")
		return nil
	}

	for _, s := range scans {
		printlnFn(fmt.Sprintf("%s  %s / %s  %.2f  %s",
			s.ID, s.CropName, s.DiseaseName, s.Confidence,
			s.CreatedAt.Format("2006-01-02 15:04:05")))
	}
	return nil
}

// Sync pushes all pending scans now and reports the result.
func (a *App) Sync(ctx context.Context) error {
	if !a.isLoggedIn() {
		printlnFn("Not logged in")
		return nil
	}
	if !a.monitor.Online() {
		printlnFn("Device is offline, scans stay queued")
		return nil
	}

	a.ensureRemoteSchema(ctx)

	reportOutcome(a.coord.SyncAll(ctx))
	return nil
}

// Status prints connectivity, queue depth and the last sync result.
func (a *App) Status(ctx context.Context) error {
	state := "offline"
	if a.monitor.Online() {
		state = "online"
	}
	printlnFn("Connectivity:", state)
	printlnFn("Pending scans:", a.store.Len())
	if a.coord.Syncing() {
		printlnFn("Sync in progress")
	}
	if o := a.coord.LastOutcome(); o.Synced > 0 || o.Failed > 0 {
		printlnFn(fmt.Sprintf("Last sync: %d synced, %d failed", o.Synced, o.Failed))
	}
	return nil
}

func reportOutcome(o models.Outcome) {
	if o.Synced == 0 && o.Failed == 0 {
		printlnFn("Nothing to sync")
		return
	}
	printlnFn(fmt.Sprintf("Sync finished: %d synced, %d failed", o.Synced, o.Failed))
}
