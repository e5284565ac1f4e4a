package storage

import (
	"errors"

	"github.com/OCAP2/demo/pkg/core"
)

// ErrNotFound is returned when a catalog lookup has no match.
var ErrNotFound = errors.New("not found")

// Backend is the demo catalog every storage implementation must satisfy.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// RecordDemo stores a finished recording and assigns its ID.
	RecordDemo(d *core.DemoRecord) error
	// RecordPlayback stores a finished playback run and assigns its ID.
	RecordPlayback(r *core.PlaybackReport) error

	// ListDemos returns every stored recording, oldest first.
	ListDemos() ([]core.DemoRecord, error)
}

// Uploadable is an optional interface for backends that write a catalog
// file suitable for upload to the web frontend.
type Uploadable interface {
	GetExportedFilePath() string
	GetExportMetadata() core.UploadMetadata
}

// Queued is an optional interface for backends that write asynchronously.
type Queued interface {
	// Pending is the number of entries not yet persisted or acknowledged.
	Pending() int
}

// UploadMetadataFor describes a demo file for upload.
func UploadMetadataFor(d core.DemoRecord, tag string) core.UploadMetadata {
	return core.UploadMetadata{
		Filename:  d.Filename,
		Mission:   d.Mission.Filename,
		Level:     d.Mission.Level,
		Duration:  d.Duration.Seconds(),
		PlayerTag: tag,
	}
}
