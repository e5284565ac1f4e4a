package v1

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/OCAP2/demo/pkg/core"
)

// Build creates an Export from the stored catalog
func Build(exportedAt time.Time, demos []core.DemoRecord, playbacks []core.PlaybackReport) Export {
	export := Export{
		FormatVersion: FormatVersion,
		ExportedAt:    exportedAt.UTC().Format(time.RFC3339),
		Missions:      make([]string, 0),
		Demos:         make([]Demo, 0, len(demos)),
		Playbacks:     make([]Playback, 0, len(playbacks)),
	}

	missions := make(map[string]struct{})
	for _, d := range demos {
		opcodes := d.Opcodes
		if opcodes == nil {
			opcodes = map[string]int{}
		}
		export.Demos = append(export.Demos, Demo{
			ID:         d.ID,
			Filename:   d.Filename,
			Mission:    d.Mission.Filename,
			Level:      d.Mission.Level,
			Version:    d.Version,
			StartTime:  d.StartTime.UTC().Format(time.RFC3339),
			Duration:   round3(d.Duration.Seconds()),
			Frames:     d.Frames,
			Events:     d.Events,
			SizeBytes:  d.SizeBytes,
			PlayerSlot: d.PlayerSlot,
			Opcodes:    opcodes,
		})
		missions[strings.ToLower(d.Mission.Filename)] = struct{}{}
	}
	for _, p := range playbacks {
		export.Playbacks = append(export.Playbacks, Playback{
			ID:        p.ID,
			Filename:  p.Filename,
			StartedAt: p.StartedAt.UTC().Format(time.RFC3339),
			Outcome:   p.Outcome,
			Frames:    p.Frames,
			Events:    p.Events,
			Skipped:   p.Skipped,
			MinFrame:  millis(p.MinFrameTime),
			MaxFrame:  millis(p.MaxFrameTime),
			AvgFrame:  millis(p.AvgFrameTime),
			Fast:      p.Fast,
			Movie:     p.Movie,
		})
		missions[strings.ToLower(p.Mission.Filename)] = struct{}{}
	}
	delete(missions, "")
	for m := range missions {
		export.Missions = append(export.Missions, m)
	}
	sort.Strings(export.Missions)

	sort.Slice(export.Demos, func(i, j int) bool { return export.Demos[i].ID < export.Demos[j].ID })
	sort.Slice(export.Playbacks, func(i, j int) bool { return export.Playbacks[i].ID < export.Playbacks[j].ID })
	return export
}

func millis(d time.Duration) float64 {
	return round3(float64(d) / float64(time.Millisecond))
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
