package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestJitter_WithinBounds(t *testing.T) {
	base := 10 * time.Second
	for i := 0; i < 200; i++ {
		got := jitter(base)
		assert.GreaterOrEqual(t, got, time.Duration(float64(base)*0.8))
		assert.Less(t, got, time.Duration(float64(base)*1.2))
	}
}

func TestJitterDeadline_IsInTheFuture(t *testing.T) {
	before := time.Now()
	d := jitterDeadline(time.Second)
	assert.True(t, d.After(before))
}
