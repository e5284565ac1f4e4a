// Package postgres implements the storage.Backend interface using GORM.
// Recordings are written synchronously so their IDs are known; playback
// runs are queued and written by a background goroutine.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/OCAP2/demo/internal/database"
	"github.com/OCAP2/demo/internal/model"
	"github.com/OCAP2/demo/internal/model/convert"
	"github.com/OCAP2/demo/internal/queue"
	"github.com/OCAP2/demo/pkg/core"

	"gorm.io/gorm"
)

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB     *gorm.DB
	Logger *slog.Logger
	// WriteInterval is how often queued rows are flushed. Defaults to 2s.
	WriteInterval time.Duration
}

// Backend implements storage.Backend using GORM with a queued writer.
type Backend struct {
	deps      Dependencies
	playbacks *queue.Queue[model.PlaybackRun]
	missions  sync.Map // core.Mission -> uint

	stopChan chan struct{}
	done     sync.WaitGroup
	once     sync.Once
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.WriteInterval <= 0 {
		deps.WriteInterval = 2 * time.Second
	}
	return &Backend{
		deps:      deps,
		playbacks: queue.New[model.PlaybackRun](),
		stopChan:  make(chan struct{}),
	}
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init runs schema migration and starts the DB writer goroutine.
// If no DB was injected via Dependencies, it opens its own postgres connection.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		db, err := database.OpenPostgres(context.Background(), database.PostgresFromConfig())
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		b.deps.DB = db
	}

	b.deps.Logger.Info("Migrating schema")
	if err := database.Migrate(b.deps.DB); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}

	b.done.Add(1)
	go b.writeLoop()
	return nil
}

// Close stops the writer goroutine and flushes what is still queued.
func (b *Backend) Close() error {
	b.once.Do(func() { close(b.stopChan) })
	b.done.Wait()
	if b.deps.DB == nil {
		return nil
	}
	return b.flush()
}

// missionID returns the ID of the mission row, creating it when needed.
func (b *Backend) missionID(m core.Mission) (uint, error) {
	if id, ok := b.missions.Load(m); ok {
		return id.(uint), nil
	}
	row := convert.CoreToMission(m)
	err := b.deps.DB.
		Where("filename = ? AND level = ?", row.Filename, row.Level).
		FirstOrCreate(&row).Error
	if err != nil {
		return 0, fmt.Errorf("failed to get or insert mission: %w", err)
	}
	b.missions.Store(m, row.ID)
	return row.ID, nil
}

// RecordDemo inserts a recording and assigns its ID.
func (b *Backend) RecordDemo(d *core.DemoRecord) error {
	if b.deps.DB == nil {
		return errors.New("postgres backend not initialised")
	}
	missionID, err := b.missionID(d.Mission)
	if err != nil {
		return err
	}
	row := convert.CoreToDemo(*d)
	row.MissionID = missionID
	if err := b.deps.DB.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert demo: %w", err)
	}
	d.ID = row.ID
	return nil
}

// RecordPlayback queues a playback run for the writer.
func (b *Backend) RecordPlayback(r *core.PlaybackReport) error {
	row := convert.CoreToPlaybackRun(*r)
	row.Mission = convert.CoreToMission(r.Mission)
	b.playbacks.Push(row)
	return nil
}

// ListDemos returns every stored recording, oldest first.
func (b *Backend) ListDemos() ([]core.DemoRecord, error) {
	if b.deps.DB == nil {
		return nil, errors.New("postgres backend not initialised")
	}
	var rows []model.Demo
	if err := b.deps.DB.Preload("Mission").Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list demos: %w", err)
	}
	out := make([]core.DemoRecord, len(rows))
	for i, r := range rows {
		out[i] = convert.DemoToCore(r)
	}
	return out, nil
}

// Playbacks returns every stored playback run, oldest first.
func (b *Backend) Playbacks() ([]core.PlaybackReport, error) {
	var rows []model.PlaybackRun
	if err := b.deps.DB.Preload("Mission").Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list playbacks: %w", err)
	}
	out := make([]core.PlaybackReport, len(rows))
	for i, r := range rows {
		out[i] = convert.PlaybackRunToCore(r)
	}
	return out, nil
}

// flush writes all queued playback runs in one transaction. On failure
// the rows are pushed back for the next cycle.
func (b *Backend) flush() error {
	if b.playbacks.Empty() {
		return nil
	}
	items := b.playbacks.Drain()
	for i := range items {
		if items[i].MissionID != 0 {
			continue
		}
		id, err := b.missionID(core.Mission{Filename: items[i].Mission.Filename, Level: items[i].Mission.Level})
		if err != nil {
			b.playbacks.Push(items...)
			return err
		}
		items[i].MissionID = id
		items[i].Mission = model.Mission{}
	}

	err := b.deps.DB.Transaction(func(tx *gorm.DB) error {
		return tx.Omit("Mission").Create(&items).Error
	})
	if err != nil {
		b.playbacks.Push(items...)
		return fmt.Errorf("failed to write playback runs: %w", err)
	}
	return nil
}

// writeLoop periodically drains the queue into the DB.
func (b *Backend) writeLoop() {
	defer b.done.Done()
	ticker := time.NewTicker(b.deps.WriteInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := b.flush(); err != nil {
				b.deps.Logger.Error("Error writing queued rows", "error", err)
			}
		}
	}
}

// Pending is the number of playback runs waiting for the writer.
func (b *Backend) Pending() int {
	return b.playbacks.Len()
}
