package rendering

import (
	"time"

	"golang.org/x/exp/slog"
)

// FrameStats accumulates CPU time spent per rendered frame.
type FrameStats struct {
	frames int
	total  time.Duration
	min    time.Duration
	max    time.Duration
	last   time.Duration
}

func (s *FrameStats) Observe(d time.Duration) {
	if s.frames == 0 || d < s.min {
		s.min = d
	}
	if d > s.max {
		s.max = d
	}
	s.frames++
	s.total += d
	s.last = d
}

func (s *FrameStats) Frames() int {
	return s.frames
}

func (s *FrameStats) Mean() time.Duration {
	if s.frames == 0 {
		return 0
	}
	return s.total / time.Duration(s.frames)
}

func (s *FrameStats) Min() time.Duration  { return s.min }
func (s *FrameStats) Max() time.Duration  { return s.max }
func (s *FrameStats) Last() time.Duration { return s.last }

func (s *FrameStats) Reset() {
	*s = FrameStats{}
}

func (s *FrameStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("frames", s.frames),
		slog.Duration("mean", s.Mean()),
		slog.Duration("min", s.min),
		slog.Duration("max", s.max),
	)
}
