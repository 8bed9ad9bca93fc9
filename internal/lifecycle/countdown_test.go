package lifecycle

import (
	"testing"
	"time"
)

func TestFormatCountdown(t *testing.T) {
	t.Parallel()

	cases := []struct {
		seconds int64
		want    string
	}{
		{0, "00:00"},
		{-5, "00:00"},
		{9, "00:09"},
		{60, "01:00"},
		{120, "02:00"},
		{119, "01:59"},
		{3600, "60:00"},
	}
	for _, tc := range cases {
		if got := FormatCountdown(tc.seconds); got != tc.want {
			t.Fatalf("FormatCountdown(%d) = %q, want %q", tc.seconds, got, tc.want)
		}
	}
}

func TestRemainingSecondsClampsAndFloors(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

	if got := remainingSeconds(nil, now); got != 0 {
		t.Fatalf("nil deadline: got %d, want 0", got)
	}

	past := now.Add(-time.Minute)
	if got := remainingSeconds(&past, now); got != 0 {
		t.Fatalf("past deadline: got %d, want 0", got)
	}

	endsAt := now.Add(119*time.Second + 900*time.Millisecond)
	if got := remainingSeconds(&endsAt, now); got != 119 {
		t.Fatalf("fractional remaining: got %d, want 119", got)
	}
}

func TestCountdownMonotonicWhileOpen(t *testing.T) {
	t.Parallel()

	endsAt := time.Date(2026, 3, 1, 18, 2, 0, 0, time.UTC)
	now := endsAt.Add(-125 * time.Second)

	prev := FormatCountdown(remainingSeconds(&endsAt, now))
	for i := 0; i < 200; i++ {
		now = now.Add(time.Second)
		cur := FormatCountdown(remainingSeconds(&endsAt, now))
		if cur > prev {
			t.Fatalf("countdown increased: %q after %q", cur, prev)
		}
		prev = cur
	}
	if prev != "00:00" {
		t.Fatalf("countdown did not clamp at zero, ended at %q", prev)
	}
}
