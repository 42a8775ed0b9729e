package frostvale

import (
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"
)

// particleBuffer holds one particle population as parallel arrays. All
// populations here are filled once at scene setup and recycled in place
// (snow re-enters at the top, smoke restarts at its emitter), so the arrays
// never grow or shrink during steady state and indices stay 1:1 across
// fields for a particle's whole session.
type particleBuffer struct {
	pos   []mgl32.Vec3
	vel   []mgl32.Vec3
	age   []float32
	life  []float32
	size  []float32
	alpha []float32
	phase []float32
	home  []mgl32.Vec3

	alive    int
	capacity int
}

// ensure allocates the arrays for the given capacity. Reallocation happens
// only when the capacity actually changes; it reports true so callers can
// refill.
func (p *particleBuffer) ensure(capacity int) bool {
	if capacity <= 0 {
		capacity = 1
	}
	if p.capacity == capacity && p.pos != nil {
		return false
	}
	p.capacity = capacity
	p.pos = make([]mgl32.Vec3, capacity)
	p.vel = make([]mgl32.Vec3, capacity)
	p.age = make([]float32, capacity)
	p.life = make([]float32, capacity)
	p.size = make([]float32, capacity)
	p.alpha = make([]float32, capacity)
	p.phase = make([]float32, capacity)
	p.home = make([]mgl32.Vec3, capacity)
	p.alive = 0
	return true
}

// ensurePool fetches or creates the per-emitter buffer, keyed by entity.
func ensurePool(pools map[EntityId]*particleBuffer, eid EntityId) *particleBuffer {
	pl, ok := pools[eid]
	if !ok {
		pl = &particleBuffer{}
		pools[eid] = pl
	}
	return pl
}

// Rng is the shared deterministic randomness source. Everything that rolls
// dice (spawn scatter, drift spawning, village layout) draws from it, so a
// seed reproduces a whole session.
type Rng struct {
	*rand.Rand
}

type RandomModule struct {
	Seed int64
}

func (m RandomModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(&Rng{rand.New(rand.NewSource(m.Seed))})
}

func (r *Rng) rangeF(min, max float32) float32 {
	return lerp(min, max, r.Float32())
}

// windAt is the shared wind field: one deterministic offset per instant,
// applied identically to every flake, per the sin/cos-of-global-clock model.
func windAt(elapsed float64, amplitude float32) mgl32.Vec3 {
	return mgl32.Vec3{
		amplitude * float32(math.Sin(elapsed*0.4)),
		0,
		amplitude * float32(math.Cos(elapsed*0.23)),
	}
}
