package frostvale

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// SnowfieldComponent configures the primary snowfall volume: a square column
// of Extent half-width centered on the entity, with flakes living between
// the ground plane and Height.
type SnowfieldComponent struct {
	Count        int
	Extent       float32
	Height       float32
	FallSpeed    [2]float32
	DriftSpeed   float32 // max per-flake horizontal velocity
	WindStrength float32
	FlakeSize    [2]float32
}

// ChimneySmokeComponent emits a recycling plume from the entity's position.
type ChimneySmokeComponent struct {
	Count      int
	RiseSpeed  [2]float32
	Spread     float32
	Life       [2]float32
	SizeStart  float32
	SizeGrowth float32 // relative growth over one cycle
}

// FireflyFieldComponent scatters bobbing lights in a disc around the entity.
type FireflyFieldComponent struct {
	Count        int
	Radius       float32
	HeightRange  [2]float32
	BobAmplitude float32
	BobFrequency float32
	SizeBase     float32
}

// MistFieldComponent keeps slow ground haze inside a radial boundary.
type MistFieldComponent struct {
	Count  int
	Radius float32
	Height float32
	Speed  [2]float32
	Size   [2]float32
}

// WeatherState owns every particle population, one buffer per emitter
// entity. Buffers are created on first sight of the emitter and then only
// mutated in place.
type WeatherState struct {
	Snow      map[EntityId]*particleBuffer
	Smoke     map[EntityId]*particleBuffer
	Fireflies map[EntityId]*particleBuffer
	Mist      map[EntityId]*particleBuffer
}

// WeatherModule wires the four weather systems. Snow runs every tick; the
// polish systems (smoke, fireflies, mist) ride the half-rate lane. All run
// only while Active.
type WeatherModule struct {
	Active State
}

func (m WeatherModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(&WeatherState{
		Snow:      make(map[EntityId]*particleBuffer),
		Smoke:     make(map[EntityId]*particleBuffer),
		Fireflies: make(map[EntityId]*particleBuffer),
		Mist:      make(map[EntityId]*particleBuffer),
	})

	app.UseSystem(
		System(snowfallSystem).
			InStage(Update).
			InState(OnExecute(m.Active)),
	)
	app.UseSystem(
		System(chimneySmokeSystem).
			InStage(Update).
			InState(OnExecute(m.Active)).
			HalfRate(),
	)
	app.UseSystem(
		System(firefliesSystem).
			InStage(Update).
			InState(OnExecute(m.Active)).
			HalfRate(),
	)
	app.UseSystem(
		System(groundMistSystem).
			InStage(Update).
			InState(OnExecute(m.Active)).
			HalfRate(),
	)
}

// snowfallSystem integrates every flake by its own velocity plus the shared
// wind offset, wraps horizontal overshoot toroidally, and on a ground hit
// records the impact and re-enters the flake at the ceiling with a fresh
// velocity. With zero delta nothing moves and nothing lands.
func snowfallSystem(state *WeatherState, t *Time, rng *Rng, drifts *DriftField, cmd *Commands) {
	dt := t.DeltaSec
	wind := mgl32.Vec3{}

	MakeQuery2[SnowfieldComponent, TransformComponent](cmd).
		Map(func(eid EntityId, field *SnowfieldComponent, tr *TransformComponent) bool {
			buf := ensurePool(state.Snow, eid)
			if buf.ensure(field.Count) {
				fillSnow(buf, field, tr.Position, rng)
			}

			wind = windAt(t.ElapsedSec(), field.WindStrength)
			cx, cz := tr.Position.X(), tr.Position.Z()
			w := field.Extent

			for i := 0; i < buf.alive; i++ {
				p := buf.pos[i].Add(buf.vel[i].Add(wind).Mul(dt))
				p[0] = wrapCoord(p[0], cx-w, cx+w)
				p[2] = wrapCoord(p[2], cz-w, cz+w)

				if p[1] < 0 {
					drifts.RecordImpact(cmd, rng, t.Tick, p[0], p[2])
					p = mgl32.Vec3{
						cx + rng.rangeF(-w, w),
						field.Height,
						cz + rng.rangeF(-w, w),
					}
					buf.vel[i] = snowVelocity(field, rng)
				}
				buf.pos[i] = p
			}
			return true
		})
}

func fillSnow(buf *particleBuffer, field *SnowfieldComponent, center mgl32.Vec3, rng *Rng) {
	for i := 0; i < buf.capacity; i++ {
		buf.pos[i] = mgl32.Vec3{
			center.X() + rng.rangeF(-field.Extent, field.Extent),
			rng.rangeF(0, field.Height),
			center.Z() + rng.rangeF(-field.Extent, field.Extent),
		}
		buf.vel[i] = snowVelocity(field, rng)
		buf.size[i] = rng.rangeF(field.FlakeSize[0], field.FlakeSize[1])
		buf.alpha[i] = 1
	}
	buf.alive = buf.capacity
}

func snowVelocity(field *SnowfieldComponent, rng *Rng) mgl32.Vec3 {
	return mgl32.Vec3{
		rng.rangeF(-field.DriftSpeed, field.DriftSpeed),
		-rng.rangeF(field.FallSpeed[0], field.FallSpeed[1]),
		rng.rangeF(-field.DriftSpeed, field.DriftSpeed),
	}
}

func wrapCoord(v, min, max float32) float32 {
	span := max - min
	if span <= 0 {
		return v
	}
	for v < min {
		v += span
	}
	for v > max {
		v -= span
	}
	return v
}

// chimneySmokeSystem ages each puff toward its cycle length, fading and
// growing it on the way up; a finished puff restarts at the emitter with a
// new rise velocity. Pools fill staggered so a plume never starts as a
// synchronized burst.
func chimneySmokeSystem(state *WeatherState, t *Time, rng *Rng, cmd *Commands) {
	dt := t.DeltaSec

	MakeQuery2[ChimneySmokeComponent, TransformComponent](cmd).
		Map(func(eid EntityId, em *ChimneySmokeComponent, tr *TransformComponent) bool {
			buf := ensurePool(state.Smoke, eid)
			if buf.ensure(em.Count) {
				for i := 0; i < buf.capacity; i++ {
					resetSmokeParticle(buf, i, em, tr.Position, rng)
					buf.age[i] = rng.rangeF(0, buf.life[i])
				}
				buf.alive = buf.capacity
			}

			for i := 0; i < buf.alive; i++ {
				if dt > 0 {
					buf.age[i] += dt
					if buf.age[i] >= buf.life[i] {
						resetSmokeParticle(buf, i, em, tr.Position, rng)
						continue
					}
				}
				buf.pos[i] = buf.pos[i].Add(buf.vel[i].Mul(dt))
				norm := buf.age[i] / buf.life[i]
				buf.alpha[i] = 1 - norm
				buf.size[i] = em.SizeStart * (1 + em.SizeGrowth*norm)
			}
			return true
		})
}

func resetSmokeParticle(buf *particleBuffer, i int, em *ChimneySmokeComponent, origin mgl32.Vec3, rng *Rng) {
	buf.pos[i] = origin
	buf.vel[i] = mgl32.Vec3{
		rng.rangeF(-em.Spread, em.Spread),
		rng.rangeF(em.RiseSpeed[0], em.RiseSpeed[1]),
		rng.rangeF(-em.Spread, em.Spread),
	}
	buf.age[i] = 0
	buf.life[i] = rng.rangeF(em.Life[0], em.Life[1])
	buf.alpha[i] = 1
	buf.size[i] = em.SizeStart
}

// firefliesSystem is pure oscillation: each light bobs on a phase-shifted
// sine of elapsed time and flickers its size on a detuned copy of the same
// wave. No velocity, no lifecycle.
func firefliesSystem(state *WeatherState, t *Time, rng *Rng, cmd *Commands) {
	elapsed := t.ElapsedSec()

	MakeQuery2[FireflyFieldComponent, TransformComponent](cmd).
		Map(func(eid EntityId, field *FireflyFieldComponent, tr *TransformComponent) bool {
			buf := ensurePool(state.Fireflies, eid)
			if buf.ensure(field.Count) {
				for i := 0; i < buf.capacity; i++ {
					angle := float64(rng.rangeF(0, 2*math.Pi))
					r := field.Radius * float32(math.Sqrt(float64(rng.Float32())))
					buf.home[i] = tr.Position.Add(mgl32.Vec3{
						r * float32(math.Cos(angle)),
						rng.rangeF(field.HeightRange[0], field.HeightRange[1]),
						r * float32(math.Sin(angle)),
					})
					buf.phase[i] = rng.rangeF(0, 2*math.Pi)
					buf.pos[i] = buf.home[i]
					buf.size[i] = field.SizeBase
					buf.alpha[i] = 1
				}
				buf.alive = buf.capacity
			}

			freq := float64(field.BobFrequency)
			for i := 0; i < buf.alive; i++ {
				ph := float64(buf.phase[i])
				home := buf.home[i]
				bob := field.BobAmplitude * float32(math.Sin(elapsed*freq+ph))
				buf.pos[i] = mgl32.Vec3{home.X(), home.Y() + bob, home.Z()}
				buf.size[i] = field.SizeBase * (0.75 + 0.25*float32(math.Sin(elapsed*freq*1.7+ph*1.3)))
			}
			return true
		})
}

// groundMistSystem drifts haze sheets by their velocity and pins any that
// cross the radial boundary back onto the circle at the same angle.
func groundMistSystem(state *WeatherState, t *Time, rng *Rng, cmd *Commands) {
	dt := t.DeltaSec

	MakeQuery2[MistFieldComponent, TransformComponent](cmd).
		Map(func(eid EntityId, field *MistFieldComponent, tr *TransformComponent) bool {
			buf := ensurePool(state.Mist, eid)
			if buf.ensure(field.Count) {
				fillMist(buf, field, tr.Position, rng)
			}

			cx, cz := tr.Position.X(), tr.Position.Z()
			for i := 0; i < buf.alive; i++ {
				p := buf.pos[i].Add(buf.vel[i].Mul(dt))
				dx, dz := p[0]-cx, p[2]-cz
				r := float32(math.Hypot(float64(dx), float64(dz)))
				if r > field.Radius && r > 0 {
					k := field.Radius / r
					p[0] = cx + dx*k
					p[2] = cz + dz*k
				}
				buf.pos[i] = p
			}
			return true
		})
}

func fillMist(buf *particleBuffer, field *MistFieldComponent, center mgl32.Vec3, rng *Rng) {
	for i := 0; i < buf.capacity; i++ {
		angle := float64(rng.rangeF(0, 2*math.Pi))
		r := field.Radius * 0.9 * float32(math.Sqrt(float64(rng.Float32())))
		buf.pos[i] = mgl32.Vec3{
			center.X() + r*float32(math.Cos(angle)),
			rng.rangeF(0.2, field.Height),
			center.Z() + r*float32(math.Sin(angle)),
		}
		drift := float64(rng.rangeF(0, 2*math.Pi))
		speed := rng.rangeF(field.Speed[0], field.Speed[1])
		buf.vel[i] = mgl32.Vec3{
			speed * float32(math.Cos(drift)),
			0,
			speed * float32(math.Sin(drift)),
		}
		buf.size[i] = rng.rangeF(field.Size[0], field.Size[1])
		buf.alpha[i] = 0.35
	}
	buf.alive = buf.capacity
}
