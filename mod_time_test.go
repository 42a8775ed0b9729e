package frostvale

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFramePacer_Admit(t *testing.T) {
	pacer := PaceFPS(10) // 100ms slots
	base := time.Unix(100, 0)

	assert.True(t, pacer.Admit(base), "first tick is always admitted")

	// Inside the reserved slot: rejected, and the slot stays put.
	assert.False(t, pacer.Admit(base.Add(30*time.Millisecond)))
	assert.False(t, pacer.Admit(base.Add(99*time.Millisecond)))

	// At the slot boundary the tick goes through and reserves the next one.
	assert.True(t, pacer.Admit(base.Add(100*time.Millisecond)))
	assert.False(t, pacer.Admit(base.Add(150*time.Millisecond)))
}

func TestFramePacer_LateTickDoesNotBacklog(t *testing.T) {
	pacer := PaceFPS(10)
	base := time.Unix(100, 0)

	assert.True(t, pacer.Admit(base))

	// A long stall admits exactly one tick; the cap never tries to catch up
	// with burst frames.
	late := base.Add(750 * time.Millisecond)
	assert.True(t, pacer.Admit(late))
	assert.False(t, pacer.Admit(late.Add(10*time.Millisecond)))
	assert.True(t, pacer.Admit(late.Add(100*time.Millisecond)))
}

func TestFramePacer_Uncapped(t *testing.T) {
	pacer := PaceFPS(0)
	now := time.Unix(100, 0)
	for i := 0; i < 5; i++ {
		assert.True(t, pacer.Admit(now), "a pacer without an interval admits everything")
	}
}

func TestTime_EvenTick(t *testing.T) {
	tm := &Time{Tick: 0}
	assert.True(t, tm.EvenTick())
	tm.Tick = 3
	assert.False(t, tm.EvenTick())
}
