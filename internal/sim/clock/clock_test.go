package clock

import (
	"testing"
	"time"
)

func TestSecondsUntilNextInterval_Range(t *testing.T) {
	times := []int64{0, 1, 86399, 86400, 86401, 3*86400 - 1, 1234567, 98765432}
	for periodDays := 1; periodDays <= 7; periodDays++ {
		for _, now := range times {
			c := New(Fixed(now))
			s := c.SecondsUntilNextInterval(periodDays)
			if s < 0 || s >= periodDays*DaySeconds {
				t.Fatalf("period=%d now=%d: seconds %d out of range", periodDays, now, s)
			}
		}
	}
}

func TestCurrentInterval_Boundaries(t *testing.T) {
	if got := New(Fixed(86399)).CurrentInterval(1); got != 0 {
		t.Fatalf("expected interval 0, got %d", got)
	}
	if got := New(Fixed(86400)).CurrentInterval(1); got != 1 {
		t.Fatalf("expected interval 1, got %d", got)
	}
	if got := New(Fixed(5 * 86400)).CurrentInterval(2); got != 2 {
		t.Fatalf("expected interval 2, got %d", got)
	}
	if got := New(Fixed(86399)).SecondsUntilNextInterval(1); got != 0 {
		t.Fatalf("expected 0 seconds at last second, got %d", got)
	}
	if got := New(Fixed(86400)).SecondsUntilNextInterval(1); got != 86399 {
		t.Fatalf("expected 86399 right after rollover, got %d", got)
	}
}

func TestSecondsUntilNextInterval_FlooredAtBoundary(t *testing.T) {
	const p = 2 * 86400
	cases := []struct {
		now  int64
		want int
	}{
		{p, p - 1},
		{p + 1, p - 2},
		{2*p - 1, 0},
	}
	for _, tc := range cases {
		if got := New(Fixed(tc.now)).SecondsUntilNextInterval(2); got != tc.want {
			t.Fatalf("now=%d: expected %d, got %d", tc.now, tc.want, got)
		}
	}
}

func TestCalculator_ClampsPeriod(t *testing.T) {
	c := New(Fixed(86400))
	if c.CurrentInterval(0) != c.CurrentInterval(1) {
		t.Fatalf("expected period 0 to behave like 1")
	}
}

func TestCalculator_Unavailable(t *testing.T) {
	var h HostTime
	c := New(&h)
	if got := c.SecondsUntilNextInterval(1); got != Unavailable {
		t.Fatalf("expected sentinel, got %d", got)
	}
	if got := c.CurrentInterval(1); got != Unavailable {
		t.Fatalf("expected sentinel interval, got %d", got)
	}
	h.Set(90000)
	if got := c.CurrentInterval(1); got != 1 {
		t.Fatalf("expected interval 1 after host report, got %d", got)
	}
	if New(nil).SecondsUntilNextInterval(1) != Unavailable {
		t.Fatalf("expected nil source to be unavailable")
	}
}

func TestScaled(t *testing.T) {
	epoch := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := Scaled{Epoch: epoch, Base: 100, Scale: 48, Wall: func() time.Time { return epoch.Add(10 * time.Second) }}
	now, ok := s.Now()
	if !ok || now != 100+480 {
		t.Fatalf("expected 580, got %d ok=%v", now, ok)
	}
	if _, ok := (Scaled{}).Now(); ok {
		t.Fatalf("expected zero Scaled to be unavailable")
	}
}

func TestFormatRemaining(t *testing.T) {
	cases := map[int]string{
		-1:                   "???",
		59:                   "0m 59s",
		3*3600 + 4*60 + 5:    "3h 4m 5s",
		2*DaySeconds + 3661:  "2d 1h 1m 1s",
	}
	for in, want := range cases {
		if got := FormatRemaining(in); got != want {
			t.Fatalf("FormatRemaining(%d)=%q want %q", in, got, want)
		}
	}
}

func TestRefreshTooltip(t *testing.T) {
	if got := RefreshTooltip(1); got != "Every in-game day" {
		t.Fatalf("unexpected tooltip %q", got)
	}
	if got := RefreshTooltip(3); got != "Every 3 in-game days" {
		t.Fatalf("unexpected tooltip %q", got)
	}
}
