// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"encoding/json"
	"time"

	"github.com/OCAP2/demo/internal/model"
	"github.com/OCAP2/demo/pkg/core"
	"gorm.io/datatypes"
)

// toJSON marshals v for a JSON column, storing "{}" for empty values.
func toJSON[T any](v map[string]T) datatypes.JSON {
	if len(v) == 0 {
		return datatypes.JSON("{}")
	}
	data, _ := json.Marshal(v)
	return datatypes.JSON(data)
}

func pathsToJSON(p map[core.ObjectID]float64) datatypes.JSON {
	if len(p) == 0 {
		return datatypes.JSON("{}")
	}
	data, _ := json.Marshal(p)
	return datatypes.JSON(data)
}

// CoreToMission converts a core.Mission to a GORM model.Mission.
func CoreToMission(m core.Mission) model.Mission {
	return model.Mission{Filename: m.Filename, Level: m.Level}
}

// CoreToDemo converts a core.DemoRecord to a GORM model.Demo.
// The mission association is left for the caller to resolve.
func CoreToDemo(d core.DemoRecord) model.Demo {
	return model.Demo{
		Filename:   d.Filename,
		Version:    d.Version,
		StartTime:  d.StartTime,
		DurationMs: d.Duration.Milliseconds(),
		Frames:     d.Frames,
		Events:     d.Events,
		SizeBytes:  d.SizeBytes,
		PlayerSlot: d.PlayerSlot,
		Opcodes:    toJSON(d.Opcodes),
		Paths:      pathsToJSON(d.Paths),
	}
}

// CoreToPlaybackRun converts a core.PlaybackReport to a GORM model.PlaybackRun.
func CoreToPlaybackRun(r core.PlaybackReport) model.PlaybackRun {
	return model.PlaybackRun{
		Filename:   r.Filename,
		StartedAt:  r.StartedAt,
		Outcome:    r.Outcome,
		Frames:     r.Frames,
		Events:     r.Events,
		Skipped:    r.Skipped,
		MinFrameUs: r.MinFrameTime.Microseconds(),
		MaxFrameUs: r.MaxFrameTime.Microseconds(),
		AvgFrameUs: r.AvgFrameTime.Microseconds(),
		Fast:       r.Fast,
		Movie:      r.Movie,
	}
}

// DemoToCore converts a GORM model.Demo back to a core.DemoRecord.
// Mission must be preloaded for the mission fields to be set.
func DemoToCore(d model.Demo) core.DemoRecord {
	out := core.DemoRecord{
		ID:         d.ID,
		Filename:   d.Filename,
		Mission:    core.Mission{Filename: d.Mission.Filename, Level: d.Mission.Level},
		Version:    d.Version,
		StartTime:  d.StartTime,
		Duration:   time.Duration(d.DurationMs) * time.Millisecond,
		Frames:     d.Frames,
		Events:     d.Events,
		SizeBytes:  d.SizeBytes,
		PlayerSlot: d.PlayerSlot,
	}
	if len(d.Opcodes) > 0 {
		_ = json.Unmarshal(d.Opcodes, &out.Opcodes)
	}
	if len(d.Paths) > 0 {
		_ = json.Unmarshal(d.Paths, &out.Paths)
	}
	if len(out.Opcodes) == 0 {
		out.Opcodes = nil
	}
	if len(out.Paths) == 0 {
		out.Paths = nil
	}
	return out
}

// PlaybackRunToCore converts a GORM model.PlaybackRun back to a core.PlaybackReport.
func PlaybackRunToCore(r model.PlaybackRun) core.PlaybackReport {
	return core.PlaybackReport{
		ID:           r.ID,
		Filename:     r.Filename,
		Mission:      core.Mission{Filename: r.Mission.Filename, Level: r.Mission.Level},
		StartedAt:    r.StartedAt,
		Outcome:      r.Outcome,
		Frames:       r.Frames,
		Events:       r.Events,
		Skipped:      r.Skipped,
		MinFrameTime: time.Duration(r.MinFrameUs) * time.Microsecond,
		MaxFrameTime: time.Duration(r.MaxFrameUs) * time.Microsecond,
		AvgFrameTime: time.Duration(r.AvgFrameUs) * time.Microsecond,
		Fast:         r.Fast,
		Movie:        r.Movie,
	}
}
