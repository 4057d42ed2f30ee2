package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManualTime_StaysFixed(t *testing.T) {
	start := Date(2026, time.March, 1)
	clock := NewManualTime(start)

	assert.Equal(t, start, clock.Now())
	assert.Equal(t, start, clock.Now())
}

func TestManualTime_SetAndAdvance(t *testing.T) {
	clock := NewManualTime(Date(2026, time.March, 1))

	got := clock.Advance(36 * time.Hour)
	assert.Equal(t, time.Date(2026, time.March, 2, 12, 0, 0, 0, time.UTC), got)
	assert.Equal(t, got, clock.Now())

	clock.Set(Date(2027, time.January, 1))
	assert.Equal(t, Date(2027, time.January, 1), clock.Now())
}
