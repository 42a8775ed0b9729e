package frostvale

import (
	"math"
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParticleBuffer_EnsureReallocatesOnlyOnResize(t *testing.T) {
	var buf particleBuffer

	require.True(t, buf.ensure(6), "first ensure must allocate")
	assert.Equal(t, 6, buf.capacity)
	assert.Len(t, buf.pos, 6)
	assert.Len(t, buf.vel, 6)
	assert.Len(t, buf.age, 6)
	assert.Len(t, buf.life, 6)
	assert.Len(t, buf.size, 6)
	assert.Len(t, buf.alpha, 6)
	assert.Len(t, buf.phase, 6)
	assert.Len(t, buf.home, 6)
	assert.Equal(t, 0, buf.alive)

	// Simulate a warm pool, then ask for the same capacity again. The
	// buffer must keep its contents instead of wiping the pool.
	buf.alive = 6
	buf.pos[3] = mgl32.Vec3{1, 2, 3}
	require.False(t, buf.ensure(6), "same capacity must be a no-op")
	assert.Equal(t, 6, buf.alive)
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, buf.pos[3])

	// Growing reallocates and invalidates whatever was alive.
	require.True(t, buf.ensure(10))
	assert.Equal(t, 10, buf.capacity)
	assert.Len(t, buf.pos, 10)
	assert.Equal(t, 0, buf.alive)
}

func TestParticleBuffer_EnsureClampsSillyCapacities(t *testing.T) {
	var zero particleBuffer
	require.True(t, zero.ensure(0))
	assert.Equal(t, 1, zero.capacity)
	assert.Len(t, zero.pos, 1)

	var negative particleBuffer
	require.True(t, negative.ensure(-8))
	assert.Equal(t, 1, negative.capacity)
}

func TestEnsurePool_OneBufferPerEmitter(t *testing.T) {
	pools := map[EntityId]*particleBuffer{}

	first := ensurePool(pools, 7)
	require.NotNil(t, first)
	assert.Same(t, first, ensurePool(pools, 7), "repeat lookups reuse the buffer")

	other := ensurePool(pools, 8)
	assert.NotSame(t, first, other)
	assert.Len(t, pools, 2)
}

func TestRng_RangeFStaysInBounds(t *testing.T) {
	rng := &Rng{rand.New(rand.NewSource(11))}

	for i := 0; i < 200; i++ {
		v := rng.rangeF(3, 5)
		require.GreaterOrEqual(t, v, float32(3))
		require.Less(t, v, float32(5))
	}

	assert.Equal(t, float32(2), rng.rangeF(2, 2), "degenerate range is a constant")
}

func TestWindAt_DriftsOnTheHorizontalPlane(t *testing.T) {
	// At elapsed zero the sine term vanishes and the cosine term is one,
	// so the gust points straight down +z at full amplitude.
	assert.Equal(t, mgl32.Vec3{0, 0, 2.5}, windAt(0, 2.5))

	// Zero amplitude means calm air whatever the clock says.
	assert.Equal(t, mgl32.Vec3{}, windAt(13.7, 0))

	for _, elapsed := range []float64{0.25, 1, 4.5, 60, 311.8} {
		w := windAt(elapsed, 1.5)
		assert.Zero(t, w.Y(), "wind never lifts or sinks particles")
		assert.LessOrEqual(t, absF(w.X()), float32(1.5))
		assert.LessOrEqual(t, absF(w.Z()), float32(1.5))
		assert.InDelta(t, 1.5*math.Sin(elapsed*0.4), w.X(), 1e-5)
		assert.InDelta(t, 1.5*math.Cos(elapsed*0.23), w.Z(), 1e-5)
	}
}
