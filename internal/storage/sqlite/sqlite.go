// Package sqlitestorage keeps the demo catalog in an in-memory SQLite
// database and snapshots it to disk. Queries and writes are those of the
// gorm backend it embeds.
package sqlitestorage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"gorm.io/gorm"

	"github.com/OCAP2/demo/internal/config"
	"github.com/OCAP2/demo/internal/database"
	"github.com/OCAP2/demo/internal/storage/postgres"
	"github.com/OCAP2/demo/pkg/core"
)

type Backend struct {
	*postgres.Backend
	db  *gorm.DB
	cfg config.SQLiteConfig
	log *slog.Logger

	// dirty is set by every write and cleared by a snapshot.
	dirty atomic.Bool

	cancel context.CancelFunc
	loop   sync.WaitGroup
}

// New wraps db, or a fresh in-memory database when db is nil.
func New(cfg config.SQLiteConfig, db *gorm.DB, logger *slog.Logger) (*Backend, error) {
	if db == nil {
		var err error
		if db, err = database.OpenSqlite(""); err != nil {
			return nil, fmt.Errorf("open in-memory catalog: %w", err)
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		Backend: postgres.New(postgres.Dependencies{DB: db, Logger: logger}),
		db:      db,
		cfg:     cfg,
		log:     logger.With("backend", "sqlite"),
	}, nil
}

// Init migrates, loads the previous snapshot if one exists and starts the
// snapshot loop when an interval is set.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}
	if b.cfg.Path == "" {
		return nil
	}

	n, err := database.RestoreFromDisk(b.db, b.cfg.Path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return fmt.Errorf("restore catalog: %w", err)
	default:
		b.log.Info("Restored catalog from disk", "path", b.cfg.Path, "rows", n)
	}

	if b.cfg.DumpInterval > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		b.cancel = cancel
		b.loop.Add(1)
		go b.snapshotLoop(ctx)
	}
	return nil
}

func (b *Backend) RecordDemo(d *core.DemoRecord) error {
	b.dirty.Store(true)
	return b.Backend.RecordDemo(d)
}

func (b *Backend) RecordPlayback(r *core.PlaybackReport) error {
	b.dirty.Store(true)
	return b.Backend.RecordPlayback(r)
}

// Close stops the loop, drains the writer and takes a last snapshot.
func (b *Backend) Close() error {
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
	b.loop.Wait()
	if err := b.Backend.Close(); err != nil {
		return err
	}
	if b.cfg.Path == "" {
		return nil
	}
	return b.Dump()
}

// Dump snapshots the catalog to the configured path.
func (b *Backend) Dump() error {
	start := time.Now()
	b.dirty.Store(false)
	if err := database.Snapshot(b.db, b.cfg.Path); err != nil {
		b.dirty.Store(true)
		return err
	}
	b.log.Debug("Catalog snapshot written", "path", b.cfg.Path, "took", time.Since(start))
	return nil
}

// snapshotLoop dumps on every interval that saw a write.
func (b *Backend) snapshotLoop(ctx context.Context) {
	defer b.loop.Done()
	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !b.dirty.Load() {
				continue
			}
			if err := b.Dump(); err != nil {
				b.log.Error("Catalog snapshot failed", "error", err)
			}
		}
	}
}
