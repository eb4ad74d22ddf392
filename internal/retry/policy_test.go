package retry

import (
	"testing"
	"time"
)

func TestShouldRetry(t *testing.T) {
	cases := []struct {
		retries, maxRetries int
		want                bool
	}{
		{0, 3, true},
		{2, 3, true},
		{3, 3, false},
		{4, 3, false},
		{0, 0, false},
	}
	for _, c := range cases {
		if got := ShouldRetry(c.retries, c.maxRetries); got != c.want {
			t.Errorf("ShouldRetry(%d, %d) = %v, want %v", c.retries, c.maxRetries, got, c.want)
		}
	}
}

func TestBackoffDoublesPerAttempt(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	delay := time.Minute

	cases := []struct {
		retries int
		want    time.Time
	}{
		{0, base.Add(1 * delay)},
		{1, base.Add(2 * delay)},
		{2, base.Add(4 * delay)},
		{3, base.Add(8 * delay)},
	}
	for _, c := range cases {
		if got := Backoff(base, c.retries, delay); !got.Equal(c.want) {
			t.Errorf("Backoff(base, %d, delay) = %v, want %v", c.retries, got, c.want)
		}
	}
}

func TestBackoffAnchorsOnCurrentTimeNotNow(t *testing.T) {
	anchor := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	got := Backoff(anchor, 1, time.Hour)
	want := anchor.Add(2 * time.Hour)
	if !got.Equal(want) {
		t.Errorf("Backoff did not anchor on supplied current time: got %v, want %v", got, want)
	}
}

func BenchmarkBackoff(b *testing.B) {
	anchor := time.Now()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = Backoff(anchor, i%10, time.Second)
	}
}
