package frostvale

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectLodLevel(t *testing.T) {
	thresholds := []float32{0, 50, 100}

	// Bias 1.5 stretches the cutoffs to 75 and 150.
	assert.Equal(t, 0, selectLodLevel(thresholds, 10, 1.5))
	assert.Equal(t, 0, selectLodLevel(thresholds, 74.9, 1.5))
	assert.Equal(t, 1, selectLodLevel(thresholds, 75, 1.5))
	assert.Equal(t, 1, selectLodLevel(thresholds, 149, 1.5))
	assert.Equal(t, 2, selectLodLevel(thresholds, 150, 1.5))
	assert.Equal(t, 2, selectLodLevel(thresholds, 5000, 1.5))

	// Equal thresholds resolve to the earlier, higher-detail level.
	assert.Equal(t, 1, selectLodLevel([]float32{0, 50, 50}, 100, 1.5))
}

func lodTestApp(bias float32) *App {
	return NewAppBuilder().
		UseStates(0, 1).
		UseModule(LodModule{Active: 0, Bias: bias}).
		Build()
}

func TestLodSelect_SwapsModelByDistance(t *testing.T) {
	app := lodTestApp(1.5)
	cmd := app.Commands()

	camera := cmd.AddEntity(
		&CameraComponent{FovY: 55, Near: 0.1, Far: 500},
		&TransformComponent{Rotation: mgl32.QuatIdent(), Scale: mgl32.Vec3{1, 1, 1}},
	)
	house := cmd.AddEntity(
		&LodGroupComponent{Thresholds: []float32{0, 50, 100}, Models: []AssetId{"hi", "mid", "lo"}},
		&TransformComponent{Position: mgl32.Vec3{0, 0, 80}, Scale: mgl32.Vec3{1, 1, 1}},
		&RenderableComponent{Model: "hi", Visible: true},
	)
	app.FlushCommands()

	sel := resourceOf[LodSelectorState](app)
	camTr, _ := GetComponent[TransformComponent](cmd, camera)
	group, _ := GetComponent[LodGroupComponent](cmd, house)
	rend, _ := GetComponent[RenderableComponent](cmd, house)

	app.Step(0)
	require.Equal(t, uint64(1), sel.Passes)
	assert.Equal(t, 1, group.Current, "80 units with bias 1.5 lands in the middle band")
	assert.Equal(t, AssetId("mid"), rend.Model)

	// A still camera skips the whole pass.
	app.Step(0)
	app.Step(0)
	assert.Equal(t, uint64(1), sel.Passes)
	assert.Equal(t, AssetId("mid"), rend.Model)

	// Moving it re-runs the batch and re-picks levels.
	camTr.Position = mgl32.Vec3{0, 0, -80}
	app.Step(0)
	assert.Equal(t, uint64(2), sel.Passes)
	assert.Equal(t, 2, group.Current)
	assert.Equal(t, AssetId("lo"), rend.Model)
}

func TestLodSelect_NoCameraNoPass(t *testing.T) {
	app := lodTestApp(1.5)
	cmd := app.Commands()

	cmd.AddEntity(
		&LodGroupComponent{Thresholds: []float32{0, 50}, Models: []AssetId{"hi", "lo"}},
		&TransformComponent{Position: mgl32.Vec3{0, 0, 300}, Scale: mgl32.Vec3{1, 1, 1}},
		&RenderableComponent{Model: "hi", Visible: true},
	)
	app.FlushCommands()

	app.Step(0)

	sel := resourceOf[LodSelectorState](app)
	assert.Equal(t, uint64(0), sel.Passes)
}

func TestLodSelect_MalformedGroupLeftAlone(t *testing.T) {
	app := lodTestApp(1.5)
	cmd := app.Commands()

	cmd.AddEntity(
		&CameraComponent{FovY: 55, Near: 0.1, Far: 500},
		&TransformComponent{Rotation: mgl32.QuatIdent(), Scale: mgl32.Vec3{1, 1, 1}},
	)
	mismatched := cmd.AddEntity(
		&LodGroupComponent{Thresholds: []float32{0, 50}, Models: []AssetId{"only"}},
		&TransformComponent{Position: mgl32.Vec3{0, 0, 200}, Scale: mgl32.Vec3{1, 1, 1}},
		&RenderableComponent{Model: "only", Visible: true},
	)
	bare := cmd.AddEntity(
		&LodGroupComponent{},
		&TransformComponent{Position: mgl32.Vec3{0, 0, 200}, Scale: mgl32.Vec3{1, 1, 1}},
		&RenderableComponent{Model: "static", Visible: true},
	)
	app.FlushCommands()

	app.Step(0)

	sel := resourceOf[LodSelectorState](app)
	assert.Equal(t, uint64(1), sel.Passes, "the pass ran, the groups were skipped")

	mismatchedRend, _ := GetComponent[RenderableComponent](cmd, mismatched)
	bareRend, _ := GetComponent[RenderableComponent](cmd, bare)
	assert.Equal(t, AssetId("only"), mismatchedRend.Model)
	assert.Equal(t, AssetId("static"), bareRend.Model)
}

func TestLodModule_ZeroBiasFallsBackToDefault(t *testing.T) {
	app := lodTestApp(0)
	sel := resourceOf[LodSelectorState](app)
	assert.Equal(t, float32(1.5), sel.DistanceBias)
}
