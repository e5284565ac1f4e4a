package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&CatalogInfo{},
	&Mission{},
	&Demo{},
	&PlaybackRun{},
}

////////////////////////
// SYSTEM MODELS
////////////////////////

// CatalogInfo describes the group owning the catalog
type CatalogInfo struct {
	gorm.Model
	GroupName        string `json:"groupName" gorm:"size:127"`
	GroupDescription string `json:"groupDescription" gorm:"size:255"`
	GroupWebsite     string `json:"groupURL" gorm:"size:255"`
}

func (*CatalogInfo) TableName() string {
	return "catalog_infos"
}

////////////////////////
// CATALOG MODELS
////////////////////////

// Mission is a mission file and level demos were recorded against
type Mission struct {
	gorm.Model
	Filename string `json:"filename" gorm:"size:260;uniqueIndex:idx_mission_level"`
	Level    int32  `json:"level" gorm:"uniqueIndex:idx_mission_level"`
}

func (*Mission) TableName() string {
	return "missions"
}

// Demo is a finished recording
type Demo struct {
	gorm.Model
	MissionID  uint           `json:"missionId" gorm:"index:idx_demo_mission_id"`
	Mission    Mission        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:MissionID;"`
	Filename   string         `json:"filename" gorm:"size:128;index:idx_demo_filename"`
	Version    int16          `json:"version"`
	StartTime  time.Time      `json:"startTime" gorm:"index:idx_demo_start_time"`
	DurationMs int64          `json:"durationMs"`
	Frames     uint32         `json:"frames"`
	Events     uint32         `json:"events"`
	SizeBytes  int64          `json:"sizeBytes"`
	PlayerSlot int32          `json:"playerSlot"`
	Opcodes    datatypes.JSON `json:"opcodes"`
	Paths      datatypes.JSON `json:"paths"`
}

func (*Demo) TableName() string {
	return "demos"
}

// PlaybackRun is one playback of a demo file. Frame times are in microseconds.
type PlaybackRun struct {
	gorm.Model
	MissionID  uint      `json:"missionId" gorm:"index:idx_playback_mission_id"`
	Mission    Mission   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:MissionID;"`
	Filename   string    `json:"filename" gorm:"size:128;index:idx_playback_filename"`
	StartedAt  time.Time `json:"startedAt" gorm:"index:idx_playback_started_at"`
	Outcome    string    `json:"outcome" gorm:"size:16"`
	Frames     uint32    `json:"frames"`
	Events     uint32    `json:"events"`
	Skipped    uint32    `json:"skipped"`
	MinFrameUs int64     `json:"minFrameUs"`
	MaxFrameUs int64     `json:"maxFrameUs"`
	AvgFrameUs int64     `json:"avgFrameUs"`
	Fast       bool      `json:"fast"`
	Movie      bool      `json:"movie"`
}

func (*PlaybackRun) TableName() string {
	return "playback_runs"
}
