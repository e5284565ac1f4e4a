// Package v1 contains the v1 export format of the demo catalog.
package v1

// FormatVersion is written into every export.
const FormatVersion = 1

// Export is the root JSON structure for v1 format
type Export struct {
	FormatVersion int        `json:"formatVersion"`
	ExportedAt    string     `json:"exportedAt"`
	Missions      []string   `json:"missions"`
	Demos         []Demo     `json:"demos"`
	Playbacks     []Playback `json:"playbacks"`
}

// Demo is a recorded demo file
type Demo struct {
	ID         uint           `json:"id"`
	Filename   string         `json:"filename"`
	Mission    string         `json:"mission"`
	Level      int32          `json:"level"`
	Version    int16          `json:"version"`
	StartTime  string         `json:"startTime"`
	Duration   float64        `json:"duration"`
	Frames     uint32         `json:"frames"`
	Events     uint32         `json:"events"`
	SizeBytes  int64          `json:"sizeBytes"`
	PlayerSlot int32          `json:"playerSlot"`
	Opcodes    map[string]int `json:"opcodes"`
}

// Playback is one playback run. Frame times are in milliseconds.
type Playback struct {
	ID        uint    `json:"id"`
	Filename  string  `json:"filename"`
	StartedAt string  `json:"startedAt"`
	Outcome   string  `json:"outcome"`
	Frames    uint32  `json:"frames"`
	Events    uint32  `json:"events"`
	Skipped   uint32  `json:"skipped"`
	MinFrame  float64 `json:"minFrameMs"`
	MaxFrame  float64 `json:"maxFrameMs"`
	AvgFrame  float64 `json:"avgFrameMs"`
	Fast      bool    `json:"fast"`
	Movie     bool    `json:"movie"`
}
