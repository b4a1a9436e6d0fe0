package backoff

import (
	"testing"
	"time"
)

func TestNextDelay(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 1, want: 2 * time.Second},
		{attempt: 2, want: 4 * time.Second},
		{attempt: 3, want: 8 * time.Second},
		{attempt: 4, want: 16 * time.Second},
		{attempt: 5, want: 30 * time.Second},
		{attempt: 6, want: 30 * time.Second},
		{attempt: 64, want: 30 * time.Second},
		{attempt: 1 << 20, want: 30 * time.Second},
	}

	for _, tt := range tests {
		if got := NextDelay(tt.attempt); got != tt.want {
			t.Errorf("NextDelay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestNextDelay_MatchesFormula(t *testing.T) {
	for n := 1; n <= 40; n++ {
		want := 30000 * time.Millisecond
		if n < 15 {
			if v := 1000 * time.Millisecond * time.Duration(1<<n); v < want {
				want = v
			}
		}
		if got := NextDelay(n); got != want {
			t.Errorf("NextDelay(%d) = %v, want %v", n, got, want)
		}
	}
}

func TestNextDelay_NonPositiveAttempt(t *testing.T) {
	if got := NextDelay(0); got != time.Second {
		t.Errorf("NextDelay(0) = %v, want %v", got, time.Second)
	}
	if got := NextDelay(-3); got != time.Second {
		t.Errorf("NextDelay(-3) = %v, want %v", got, time.Second)
	}
}

func TestPolicy_Custom(t *testing.T) {
	p := Policy{Base: 10 * time.Millisecond, Max: 50 * time.Millisecond}

	want := []time.Duration{
		20 * time.Millisecond,
		40 * time.Millisecond,
		50 * time.Millisecond,
		50 * time.Millisecond,
	}
	for i, w := range want {
		if got := p.NextDelay(i + 1); got != w {
			t.Errorf("NextDelay(%d) = %v, want %v", i+1, got, w)
		}
	}

	// An odd cap must not round the doubling check down.
	odd := Policy{Base: 1, Max: 3}
	oddWant := []time.Duration{2, 3, 3}
	for i, w := range oddWant {
		if got := odd.NextDelay(i + 1); got != w {
			t.Errorf("odd cap NextDelay(%d) = %v, want %v", i+1, got, w)
		}
	}
}

func TestPolicy_ZeroValue(t *testing.T) {
	var p Policy
	if got := p.NextDelay(3); got != 0 {
		t.Errorf("zero Policy NextDelay(3) = %v, want 0", got)
	}
}
