package rpc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFleetAdmitIsIdempotent(t *testing.T) {
	f := newFleet()
	now := time.Now()

	f.admit("w1", now)
	f.admit("w1", now.Add(time.Second))

	assert.Equal(t, 1, f.size())
	assert.True(t, f.contains("w1"))
}

func TestFleetPickNextRoundRobin(t *testing.T) {
	f := newFleet()
	now := time.Now()
	f.admit("w1", now)
	f.admit("w2", now)
	f.admit("w3", now)

	var picked []string
	for i := 0; i < 6; i++ {
		id, err := f.pickNext()
		assert.NoError(t, err)
		picked = append(picked, id)
	}

	assert.Equal(t, []string{"w1", "w2", "w3", "w1", "w2", "w3"}, picked)
}

func TestFleetPickNextNoWorkers(t *testing.T) {
	f := newFleet()
	_, err := f.pickNext()
	assert.ErrorIs(t, err, ErrNoWorkers)
}

func TestFleetRemovePreservesOrderAndCursor(t *testing.T) {
	f := newFleet()
	now := time.Now()
	f.admit("w1", now)
	f.admit("w2", now)
	f.admit("w3", now)

	_, _ = f.pickNext() // w1, cursor -> 1
	f.remove("w2")

	assert.Equal(t, []string{"w1", "w3"}, f.order)

	id, err := f.pickNext()
	assert.NoError(t, err)
	assert.Equal(t, "w3", id)
}

func TestFleetSweepEvictsStale(t *testing.T) {
	f := newFleet()
	base := time.Now()
	f.admit("stale", base.Add(-1*time.Hour))
	f.admit("fresh", base)

	evicted := f.sweep(base, 10*time.Second)

	assert.Equal(t, []string{"stale"}, evicted)
	assert.False(t, f.contains("stale"))
	assert.True(t, f.contains("fresh"))
	assert.Equal(t, 1, f.size())
}

func TestFleetTouchAdmitsUnknownWorker(t *testing.T) {
	f := newFleet()
	now := time.Now()

	f.touch("ghost", now)

	assert.True(t, f.contains("ghost"))
	assert.Equal(t, 1, f.size())
}
