package frostvale

import (
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestVec3Tween_Advance(t *testing.T) {
	tw := &Vec3Tween{
		From:     mgl32.Vec3{0, 0, 0},
		To:       mgl32.Vec3{10, 0, 0},
		Duration: time.Second,
	}

	// Ease-in-out is symmetric: the midpoint is exactly halfway.
	mid := tw.Advance(500 * time.Millisecond)
	assert.InDelta(t, 5.0, mid.X(), 1e-4)
	assert.False(t, tw.Done())

	end := tw.Advance(500 * time.Millisecond)
	assert.Equal(t, tw.To, end)
	assert.True(t, tw.Done())

	// Advancing a finished tween stays pinned.
	past := tw.Advance(time.Second)
	assert.Equal(t, tw.To, past)
}

func TestVec3Tween_ZeroDurationCompletesImmediately(t *testing.T) {
	tw := &Vec3Tween{From: mgl32.Vec3{1, 2, 3}, To: mgl32.Vec3{4, 5, 6}}
	assert.Equal(t, tw.To, tw.Advance(0))
	assert.True(t, tw.Done())
}

func TestEaseInOutCubic(t *testing.T) {
	assert.InDelta(t, 0.0, easeInOutCubic(0), 1e-6)
	assert.InDelta(t, 0.5, easeInOutCubic(0.5), 1e-6)
	assert.InDelta(t, 1.0, easeInOutCubic(1), 1e-6)

	// Slow start: far below linear in the first quarter.
	assert.Less(t, easeInOutCubic(0.25), float32(0.25))
	assert.Greater(t, easeInOutCubic(0.75), float32(0.75))
}
