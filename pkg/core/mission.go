// pkg/core/mission.go
package core

import "time"

// Mission identifies the content a demo was recorded against.
type Mission struct {
	Filename string `json:"filename"`
	Level    int32  `json:"level"`
}

// DemoRecord describes a finished recording.
type DemoRecord struct {
	ID         uint           `json:"id"`
	Filename   string         `json:"filename"`
	Mission    Mission        `json:"mission"`
	Version    int16          `json:"version"`
	StartTime  time.Time      `json:"startTime"`
	Duration   time.Duration  `json:"duration"`
	Frames     uint32         `json:"frames"`
	Events     uint32         `json:"events"`
	SizeBytes  int64          `json:"sizeBytes"`
	PlayerSlot int32          `json:"playerSlot"`
	Opcodes    map[string]int `json:"opcodes,omitempty"`
	// Paths is the planar distance each object travelled, when known.
	Paths map[ObjectID]float64 `json:"paths,omitempty"`
}

// PlaybackReport summarises a finished playback run.
type PlaybackReport struct {
	ID           uint          `json:"id"`
	Filename     string        `json:"filename"`
	Mission      Mission       `json:"mission"`
	StartedAt    time.Time     `json:"startedAt"`
	Outcome      string        `json:"outcome"`
	Frames       uint32        `json:"frames"`
	Events       uint32        `json:"events"`
	Skipped      uint32        `json:"skipped"`
	MinFrameTime time.Duration `json:"minFrameTime"`
	MaxFrameTime time.Duration `json:"maxFrameTime"`
	AvgFrameTime time.Duration `json:"avgFrameTime"`
	Fast         bool          `json:"fast"`
	Movie        bool          `json:"movie"`
}

// UploadMetadata accompanies a demo file uploaded to the web frontend.
type UploadMetadata struct {
	Filename  string
	Mission   string
	Level     int32
	Duration  float64
	PlayerTag string
}
