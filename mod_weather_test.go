package frostvale

import (
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// weatherTestApp builds a minimal stateful app with the weather stack
// active in state 0.
func weatherTestApp(seed int64) (*App, *Commands) {
	app := NewAppBuilder().
		UseStates(0, 1).
		UseModule(
			TimeModule{},
			RandomModule{Seed: seed},
			WeatherModule{Active: 0},
			DriftModule{Active: 0},
		).
		Build()
	return app, app.Commands()
}

func snapshotPositions(buf *particleBuffer) []mgl32.Vec3 {
	out := make([]mgl32.Vec3, buf.alive)
	copy(out, buf.pos[:buf.alive])
	return out
}

func TestWeather_ZeroDeltaMovesNothing(t *testing.T) {
	app, cmd := weatherTestApp(7)

	snowEid := cmd.AddEntity(
		&SnowfieldComponent{
			Count: 200, Extent: 30, Height: 40,
			FallSpeed: [2]float32{4, 9}, DriftSpeed: 1.2, WindStrength: 1.5,
			FlakeSize: [2]float32{0.08, 0.22},
		},
		&TransformComponent{Scale: mgl32.Vec3{1, 1, 1}},
	)
	smokeEid := cmd.AddEntity(
		&ChimneySmokeComponent{
			Count: 20, RiseSpeed: [2]float32{1, 2}, Spread: 0.3,
			Life: [2]float32{2, 4}, SizeStart: 0.5, SizeGrowth: 1.5,
		},
		&TransformComponent{Position: mgl32.Vec3{3, 8, 3}, Scale: mgl32.Vec3{1, 1, 1}},
	)
	flyEid := cmd.AddEntity(
		&FireflyFieldComponent{
			Count: 16, Radius: 10, HeightRange: [2]float32{1, 4},
			BobAmplitude: 0.5, BobFrequency: 1.2, SizeBase: 0.12,
		},
		&TransformComponent{Scale: mgl32.Vec3{1, 1, 1}},
	)
	mistEid := cmd.AddEntity(
		&MistFieldComponent{
			Count: 12, Radius: 20, Height: 1.2,
			Speed: [2]float32{0.3, 0.8}, Size: [2]float32{6, 11},
		},
		&TransformComponent{Scale: mgl32.Vec3{1, 1, 1}},
	)
	app.FlushCommands()

	// A few real ticks to fill pools and scatter everything.
	for i := 0; i < 4; i++ {
		app.Step(time.Second / 30)
	}

	ws := resourceOf[WeatherState](app)
	drifts := resourceOf[DriftField](app)
	require.NotNil(t, ws)

	snow := snapshotPositions(ws.Snow[snowEid])
	smoke := snapshotPositions(ws.Smoke[smokeEid])
	flies := snapshotPositions(ws.Fireflies[flyEid])
	mist := snapshotPositions(ws.Mist[mistEid])
	driftCount := drifts.DriftCount()

	// Tick 4 is even, so the half-rate systems run too; with zero delta
	// every position and the drift census must come out identical.
	require.Equal(t, uint64(4), app.Ticks())
	app.Step(0)

	assert.Equal(t, snow, snapshotPositions(ws.Snow[snowEid]))
	assert.Equal(t, smoke, snapshotPositions(ws.Smoke[smokeEid]))
	assert.Equal(t, flies, snapshotPositions(ws.Fireflies[flyEid]))
	assert.Equal(t, mist, snapshotPositions(ws.Mist[mistEid]))
	assert.Equal(t, driftCount, drifts.DriftCount())
}

func TestWeather_SnowStaysInsideColumn(t *testing.T) {
	app, cmd := weatherTestApp(1931)

	const extent, height = 40, 80
	eid := cmd.AddEntity(
		&SnowfieldComponent{
			Count: 3000, Extent: extent, Height: height,
			FallSpeed: [2]float32{4, 9}, DriftSpeed: 1.2, WindStrength: 1.5,
			FlakeSize: [2]float32{0.08, 0.22},
		},
		&TransformComponent{Scale: mgl32.Vec3{1, 1, 1}},
	)
	app.FlushCommands()

	// Ten simulated seconds at 30 ticks per second.
	for i := 0; i < 300; i++ {
		app.Step(time.Second / 30)
	}

	ws := resourceOf[WeatherState](app)
	buf := ws.Snow[eid]
	require.Equal(t, 3000, buf.alive)

	for i := 0; i < buf.alive; i++ {
		p := buf.pos[i]
		assert.GreaterOrEqual(t, p.Y(), float32(0), "flake %d below ground", i)
		assert.LessOrEqual(t, p.Y(), float32(height), "flake %d above ceiling", i)
		assert.LessOrEqual(t, p.X(), float32(extent), "flake %d outside +x", i)
		assert.GreaterOrEqual(t, p.X(), float32(-extent), "flake %d outside -x", i)
		assert.LessOrEqual(t, p.Z(), float32(extent), "flake %d outside +z", i)
		assert.GreaterOrEqual(t, p.Z(), float32(-extent), "flake %d outside -z", i)
	}

	// With thousands of landings the field must have seeded drifts.
	drifts := resourceOf[DriftField](app)
	assert.Greater(t, drifts.DriftCount(), 0)
}

func TestWeather_WrapCoord(t *testing.T) {
	// Overshoot re-enters from the opposite edge, preserving the overshoot.
	assert.InDelta(t, -9, wrapCoord(11, -10, 10), 1e-5)
	assert.InDelta(t, 9, wrapCoord(-11, -10, 10), 1e-5)
	assert.InDelta(t, 5, wrapCoord(5, -10, 10), 1e-5)

	// Degenerate span passes through.
	assert.Equal(t, float32(7), wrapCoord(7, 3, 3))
}

func TestWeather_SmokeRecyclesAtEmitter(t *testing.T) {
	app, cmd := weatherTestApp(11)

	origin := mgl32.Vec3{5, 9, -2}
	eid := cmd.AddEntity(
		&ChimneySmokeComponent{
			Count: 30, RiseSpeed: [2]float32{1, 1}, Spread: 0,
			Life: [2]float32{0.5, 0.5}, SizeStart: 0.5, SizeGrowth: 1.6,
		},
		&TransformComponent{Position: origin, Scale: mgl32.Vec3{1, 1, 1}},
	)
	app.FlushCommands()

	for i := 0; i < 60; i++ {
		app.Step(time.Second / 30)
	}

	buf := resourceOf[WeatherState](app).Smoke[eid]
	require.Equal(t, 30, buf.alive)

	// Straight-up unit velocity and a half second of life pin every puff
	// inside [origin, origin + 0.5] vertically, exactly above the chimney.
	for i := 0; i < buf.alive; i++ {
		p := buf.pos[i]
		assert.InDelta(t, float64(origin.X()), float64(p.X()), 1e-4)
		assert.InDelta(t, float64(origin.Z()), float64(p.Z()), 1e-4)
		assert.GreaterOrEqual(t, p.Y(), origin.Y())
		assert.LessOrEqual(t, p.Y(), origin.Y()+0.5+1e-3)

		assert.Less(t, buf.age[i], buf.life[i])
		assert.Greater(t, buf.alpha[i], float32(0))
		assert.LessOrEqual(t, buf.alpha[i], float32(1))
		assert.GreaterOrEqual(t, buf.size[i], float32(0.5))
	}
}

func TestWeather_FirefliesBobAroundHome(t *testing.T) {
	app, cmd := weatherTestApp(23)

	eid := cmd.AddEntity(
		&FireflyFieldComponent{
			Count: 24, Radius: 12, HeightRange: [2]float32{1.2, 4.5},
			BobAmplitude: 0.5, BobFrequency: 1.2, SizeBase: 0.12,
		},
		&TransformComponent{Position: mgl32.Vec3{8, 0, -6}, Scale: mgl32.Vec3{1, 1, 1}},
	)
	app.FlushCommands()

	for i := 0; i < 50; i++ {
		app.Step(time.Second / 24)
	}

	buf := resourceOf[WeatherState](app).Fireflies[eid]
	require.Equal(t, 24, buf.alive)

	for i := 0; i < buf.alive; i++ {
		home := buf.home[i]
		p := buf.pos[i]
		assert.Equal(t, home.X(), p.X(), "fireflies bob vertically only")
		assert.Equal(t, home.Z(), p.Z())
		assert.LessOrEqual(t, absF(p.Y()-home.Y()), float32(0.5)+1e-4)

		// Flicker keeps the size inside [0.5, 1.0] of the base.
		assert.GreaterOrEqual(t, buf.size[i], float32(0.12*0.5)-1e-4)
		assert.LessOrEqual(t, buf.size[i], float32(0.12)+1e-4)
	}
}

func TestWeather_MistPinsToBoundaryAtSameAngle(t *testing.T) {
	app, cmd := weatherTestApp(31)

	eid := cmd.AddEntity(
		&MistFieldComponent{
			Count: 4, Radius: 10, Height: 1.2,
			Speed: [2]float32{0, 0}, Size: [2]float32{6, 11},
		},
		&TransformComponent{Scale: mgl32.Vec3{1, 1, 1}},
	)
	app.FlushCommands()

	app.Step(0) // tick 0: fills the pool

	buf := resourceOf[WeatherState](app).Mist[eid]
	require.Equal(t, 4, buf.alive)

	// Teleport one sheet far outside the boundary along a known direction.
	buf.pos[0] = mgl32.Vec3{16, 0.5, 12} // r = 20, direction (0.8, 0.6)
	buf.vel[0] = mgl32.Vec3{}

	app.Step(0) // tick 1: half-rate lane skips
	assert.Equal(t, mgl32.Vec3{16, 0.5, 12}, buf.pos[0])

	app.Step(0) // tick 2: reprojection runs
	p := buf.pos[0]
	assert.InDelta(t, 8.0, float64(p.X()), 1e-4)
	assert.InDelta(t, 6.0, float64(p.Z()), 1e-4)
	assert.InDelta(t, 0.5, float64(p.Y()), 1e-5, "height untouched by the pin")
}

func absF(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
