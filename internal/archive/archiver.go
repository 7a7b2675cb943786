// Package archive copies the operation log into the analytics store in
// the background. The event store stays the source of truth; the archive
// is bulk-loadable and idempotent, so a crashed run replays its last
// batch harmlessly.
package archive

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"revora-ledger/internal/storage"
)

const (
	defaultInterval  = 30 * time.Second
	defaultBatchSize = 1000
)

// Archiver tails the event store and ships batches to the archive.
type Archiver struct {
	events  storage.EventStore
	archive storage.EventArchive

	interval  time.Duration
	batchSize int
	logger    *log.Logger
}

// Options configures an Archiver. Zero values pick defaults.
type Options struct {
	Interval  time.Duration
	BatchSize int
	Logger    *log.Logger
}

// New creates an archiver over the given stores.
func New(events storage.EventStore, arch storage.EventArchive, opts Options) *Archiver {
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.Logger == nil {
		opts.Logger = log.New(os.Stdout, "[archive] ", log.LstdFlags)
	}
	return &Archiver{
		events:    events,
		archive:   arch,
		interval:  opts.Interval,
		batchSize: opts.BatchSize,
		logger:    opts.Logger,
	}
}

// Run archives until the context is cancelled. It resumes from the
// archive's highest stored sequence, so restarts never lose events.
func (a *Archiver) Run(ctx context.Context) error {
	cursor, err := a.archive.LatestSeq(ctx)
	if err != nil {
		return fmt.Errorf("read archive position: %w", err)
	}
	a.logger.Printf("archiving from seq %d", cursor)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		cursor, err = a.CatchUp(ctx, cursor)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			a.logger.Printf("archive pass failed at seq %d: %v", cursor, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// CatchUp drains everything past cursor in batches and returns the new
// cursor. On error the returned cursor covers the batches already shipped.
func (a *Archiver) CatchUp(ctx context.Context, cursor uint64) (uint64, error) {
	for {
		batch, err := a.events.GetSince(ctx, cursor, a.batchSize)
		if err != nil {
			return cursor, fmt.Errorf("read events after %d: %w", cursor, err)
		}
		if len(batch) == 0 {
			return cursor, nil
		}
		if err := a.archive.ArchiveBulk(ctx, batch); err != nil {
			return cursor, fmt.Errorf("archive %d events after %d: %w", len(batch), cursor, err)
		}
		cursor = batch[len(batch)-1].Seq
		if len(batch) < a.batchSize {
			return cursor, nil
		}
	}
}
