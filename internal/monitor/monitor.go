// Package monitor keeps a JSON status file current while the tool runs.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/OCAP2/demo/internal/session"
	"github.com/OCAP2/demo/internal/storage"
)

// StatusFile is the name of the file the monitor keeps current.
const StatusFile = "status.txt"

// StatusSource reports the state of the demo session.
type StatusSource interface {
	Status() session.Status
}

type Dependencies struct {
	Source   StatusSource
	Logger   *slog.Logger
	Dir      string
	Interval time.Duration
	// Backend reports pending catalog writes when it implements storage.Queued.
	Backend storage.Backend
}

// ProgramStatus is one snapshot of the status file.
type ProgramStatus struct {
	Time    time.Time      `json:"time"`
	Uptime  string         `json:"uptime"`
	Session session.Status `json:"session"`
	Pending int            `json:"pendingWrites"`
}

type Service struct {
	deps    Dependencies
	started time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	last   session.Status
	writes int
}

func NewService(deps Dependencies) *Service {
	if deps.Interval <= 0 {
		deps.Interval = time.Second
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Service{deps: deps, started: time.Now()}
}

func (s *Service) Path() string {
	return filepath.Join(s.deps.Dir, StatusFile)
}

// Snapshot reads the current status.
func (s *Service) Snapshot() ProgramStatus {
	now := time.Now()
	st := ProgramStatus{
		Time:    now,
		Uptime:  now.Sub(s.started).Truncate(time.Second).String(),
		Session: s.deps.Source.Status(),
	}
	if q, ok := s.deps.Backend.(storage.Queued); ok {
		st.Pending = q.Pending()
	}
	return st
}

// WriteStatus writes st to the status file through a temp file and rename.
func (s *Service) WriteStatus(st ProgramStatus) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encode status: %w", err)
	}
	tmp := s.Path() + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write status file: %w", err)
	}
	if err := os.Rename(tmp, s.Path()); err != nil {
		return fmt.Errorf("replace status file: %w", err)
	}
	return nil
}

// tick writes the status when the session changed or a pending count is
// being tracked. It reports whether a write happened.
func (s *Service) tick(force bool) bool {
	st := s.Snapshot()

	s.mu.Lock()
	changed := force || st.Session != s.last || st.Pending > 0
	s.last = st.Session
	s.mu.Unlock()
	if !changed {
		return false
	}

	if err := s.WriteStatus(st); err != nil {
		s.deps.Logger.Error("Error writing status file", "error", err)
		return false
	}
	s.mu.Lock()
	s.writes++
	s.mu.Unlock()
	return true
}

// Running reports whether the background writer is active.
func (s *Service) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// Start writes the status once and then on every interval until Stop.
// Starting twice is a no-op.
func (s *Service) Start() error {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return nil
	}
	if err := os.MkdirAll(s.deps.Dir, 0o755); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("create status dir: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel, s.done = cancel, done
	s.mu.Unlock()

	s.tick(true)
	go s.run(ctx, done)
	return nil
}

func (s *Service) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	s.deps.Logger.Debug("Status monitor started", "path", s.Path(), "interval", s.deps.Interval)

	ticker := time.NewTicker(s.deps.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.tick(true)
			return
		case <-ticker.C:
			s.tick(false)
		}
	}
}

// Stop ends the writer after a final write and waits for it.
func (s *Service) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}
