package clock

import (
	"fmt"
	"sync/atomic"
	"time"

	"merchantboard.ai/internal/sim/logic/mathx"
)

// DaySeconds is the length of one in-game day on the merchant clock.
const DaySeconds = 86400

// Unavailable is returned by the calculator when the time source has no value yet.
const Unavailable = -1

// TimeSource supplies the absolute in-game time in seconds.
type TimeSource interface {
	Now() (seconds int64, ok bool)
}

// Calculator maps in-game time onto refresh intervals.
type Calculator struct {
	src TimeSource
}

func New(src TimeSource) Calculator {
	return Calculator{src: src}
}

func periodSeconds(periodDays int) int64 {
	if periodDays < 1 {
		periodDays = 1
	}
	return int64(periodDays) * DaySeconds
}

// CurrentInterval returns the index of the interval containing now.
func (c Calculator) CurrentInterval(periodDays int) int {
	now, ok := c.now()
	if !ok {
		return Unavailable
	}
	return int(mathx.FloorDiv(now, periodSeconds(periodDays)))
}

// SecondsUntilNextInterval is always in [0, periodDays*DaySeconds) unless the
// time source is unavailable. The countdown is floored: it reads
// periodDays*DaySeconds-1 exactly on a boundary and 0 for the whole last
// second of an interval.
func (c Calculator) SecondsUntilNextInterval(periodDays int) int {
	now, ok := c.now()
	if !ok {
		return Unavailable
	}
	p := periodSeconds(periodDays)
	return int(p - 1 - mathx.Mod(now, p))
}

func (c Calculator) now() (int64, bool) {
	if c.src == nil {
		return 0, false
	}
	now, ok := c.src.Now()
	if !ok || now < 0 {
		return 0, false
	}
	return now, true
}

// FormatRemaining renders a countdown the way the merchant board shows it.
func FormatRemaining(seconds int) string {
	if seconds < 0 {
		return "???"
	}
	d := seconds / DaySeconds
	h := (seconds % DaySeconds) / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	switch {
	case d > 0:
		return fmt.Sprintf("%dd %dh %dm %ds", d, h, m, s)
	case h > 0:
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	default:
		return fmt.Sprintf("%dm %ds", m, s)
	}
}

func RefreshTooltip(periodDays int) string {
	if periodDays > 1 {
		return fmt.Sprintf("Every %d in-game days", periodDays)
	}
	return "Every in-game day"
}

// Fixed is a constant time source, mostly for tests and replays.
type Fixed int64

func (f Fixed) Now() (int64, bool) { return int64(f), true }

// HostTime is reported by the game host. It is unavailable until the first Set.
type HostTime struct {
	v   atomic.Int64
	set atomic.Bool
}

func (h *HostTime) Set(seconds int64) {
	h.v.Store(seconds)
	h.set.Store(true)
}

func (h *HostTime) Now() (int64, bool) {
	if h == nil || !h.set.Load() {
		return 0, false
	}
	return h.v.Load(), true
}

// Scaled advances in-game time from wall time: Base + (wall-Epoch)*Scale.
type Scaled struct {
	Epoch time.Time
	Base  int64
	Scale float64
	Wall  func() time.Time
}

func (s Scaled) Now() (int64, bool) {
	if s.Epoch.IsZero() || s.Scale <= 0 {
		return 0, false
	}
	wall := time.Now
	if s.Wall != nil {
		wall = s.Wall
	}
	elapsed := wall().Sub(s.Epoch).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}
	return s.Base + int64(elapsed*s.Scale), true
}
