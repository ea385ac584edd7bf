package model

import (
	"testing"
	"time"
)

func TestContestIsOpen(t *testing.T) {
	end := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	contest := &Contest{EndTime: end}

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"one second before the end", end.Add(-time.Second), true},
		{"exactly at the end", end, false},
		{"one second after the end", end.Add(time.Second), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := contest.IsOpen(tt.now); got != tt.want {
				t.Errorf("IsOpen(%s) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}
}
