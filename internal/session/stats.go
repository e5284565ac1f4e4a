package session

import "time"

// FrameStats tracks the wall time between playback frames.
type FrameStats struct {
	Min    time.Duration
	Max    time.Duration
	Total  time.Duration
	Frames int
}

// Add records one frame.
func (s *FrameStats) Add(d time.Duration) {
	if s.Frames == 0 || d < s.Min {
		s.Min = d
	}
	if d > s.Max {
		s.Max = d
	}
	s.Total += d
	s.Frames++
}

// Avg returns the mean frame time.
func (s FrameStats) Avg() time.Duration {
	if s.Frames == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Frames)
}

// FPS returns the slowest, fastest and mean frame rates.
func (s FrameStats) FPS() (slowest, fastest, mean float64) {
	rate := func(d time.Duration) float64 {
		if d <= 0 {
			return 0
		}
		return float64(time.Second) / float64(d)
	}
	return rate(s.Max), rate(s.Min), rate(s.Avg())
}
