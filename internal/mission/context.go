// Package mission tracks which demo and mission the process is working on
// so log records can carry them.
package mission

import (
	"log/slog"
	"sync"

	"github.com/OCAP2/demo/pkg/core"
)

// Context holds the current session mode, demo file and mission.
// A nil *Context is valid and ignores updates.
type Context struct {
	mu      sync.RWMutex
	mode    string
	file    string
	mission core.Mission
}

// NewContext creates a new Context with default values
func NewContext() *Context {
	return &Context{mode: "idle"}
}

// Set records the active session.
func (mc *Context) Set(mode, file string, m core.Mission) {
	if mc == nil {
		return
	}
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.mode = mode
	mc.file = file
	mc.mission = m
}

// Clear returns the context to idle.
func (mc *Context) Clear() {
	mc.Set("idle", "", core.Mission{})
}

// GetMission returns the current mission
func (mc *Context) GetMission() core.Mission {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return mc.mission
}

// File returns the current demo file, empty when idle.
func (mc *Context) File() string {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return mc.file
}

// Attrs returns the log attributes for the current state. It matches
// logging.ContextProvider.
func (mc *Context) Attrs() []slog.Attr {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	attrs := []slog.Attr{slog.String("mode", mc.mode)}
	if mc.file != "" {
		attrs = append(attrs, slog.String("demo", mc.file))
	}
	if mc.mission.Filename != "" {
		attrs = append(attrs, slog.String("mission", mc.mission.Filename))
	}
	return attrs
}
