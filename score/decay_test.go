package score

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecencyFactorFreshRating(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, 1.0, RecencyFactor(now, now, 30))
}

func TestRecencyFactorAtHalfLife(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	assert.InDelta(t, 0.5, RecencyFactor(now.AddDate(0, 0, -30), now, 30), 1e-12)
	assert.InDelta(t, 0.25, RecencyFactor(now.AddDate(0, 0, -60), now, 30), 1e-12)
}

func TestRecencyFactorDisabled(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	old := now.AddDate(-3, 0, 0)
	assert.Equal(t, 1.0, RecencyFactor(old, now, 0))
	assert.Equal(t, 1.0, RecencyFactor(old, now, -5))
}

func TestRecencyFactorDecreasesWithAge(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	previous := 1.0
	for days := 1; days < 365; days += 7 {
		f := RecencyFactor(now.AddDate(0, 0, -days), now, 14)
		assert.Less(t, f, previous)
		assert.Greater(t, f, 0.0)
		previous = f
	}
}

func TestRecencyFactorFutureTimestamp(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, 1.0, RecencyFactor(now.Add(time.Hour), now, 14))
}
