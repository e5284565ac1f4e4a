package memory

import (
	"sync"
	"time"

	"github.com/OCAP2/demo/internal/config"
	"github.com/OCAP2/demo/pkg/core"
)

// Backend keeps the demo catalog in memory and exports it to JSON on Close.
type Backend struct {
	cfg     config.MemoryConfig
	started time.Time

	demos     []core.DemoRecord
	playbacks []core.PlaybackReport

	idCounter      uint
	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{cfg: cfg, started: time.Now()}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close exports the catalog.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.demos) == 0 && len(b.playbacks) == 0 {
		return nil
	}
	return b.exportJSON()
}

// RecordDemo stores a finished recording
func (b *Backend) RecordDemo(d *core.DemoRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.idCounter++
	d.ID = b.idCounter
	b.demos = append(b.demos, *d)
	return nil
}

// RecordPlayback stores a finished playback run
func (b *Backend) RecordPlayback(r *core.PlaybackReport) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.idCounter++
	r.ID = b.idCounter
	b.playbacks = append(b.playbacks, *r)
	return nil
}

// ListDemos returns every stored recording
func (b *Backend) ListDemos() ([]core.DemoRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]core.DemoRecord, len(b.demos))
	copy(out, b.demos)
	return out, nil
}

// Playbacks returns every stored playback run
func (b *Backend) Playbacks() []core.PlaybackReport {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]core.PlaybackReport, len(b.playbacks))
	copy(out, b.playbacks)
	return out
}

// GetExportedFilePath returns the path of the last catalog export
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

// GetExportMetadata describes the most recent recording
func (b *Backend) GetExportMetadata() core.UploadMetadata {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.demos) == 0 {
		return core.UploadMetadata{}
	}
	d := b.demos[len(b.demos)-1]
	return core.UploadMetadata{
		Filename: d.Filename,
		Mission:  d.Mission.Filename,
		Level:    d.Mission.Level,
		Duration: d.Duration.Seconds(),
	}
}
