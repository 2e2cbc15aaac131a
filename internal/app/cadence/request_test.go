package cadence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPlanRequest(t *testing.T) {
	tests := []struct {
		name        string
		seconds     int
		minInterval time.Duration
		maxDelay    time.Duration
	}{
		{"short interval is not throttled", 5, 5 * time.Second, 2500 * time.Millisecond},
		{"ten seconds is not throttled", 10, 10 * time.Second, 5 * time.Second},
		{"twelve seconds halves", 12, 6 * time.Second, 6 * time.Second},
		{"default interval halves", 30, 15 * time.Second, 15 * time.Second},
		{"eleven seconds halves", 11, 5500 * time.Millisecond, 5500 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := PlanRequest(tt.seconds)
			assert.Equal(t, time.Duration(tt.seconds)*time.Second, req.Interval)
			assert.Equal(t, tt.minInterval, req.MinInterval)
			assert.Equal(t, tt.maxDelay, req.MaxDelay)
		})
	}
}
