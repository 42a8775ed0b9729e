package frostvale

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func renderTestApp(target RenderTarget) (*App, *Commands) {
	app := NewAppBuilder().
		UseStates(0, 1).
		UseModule(
			TimeModule{},
			RandomModule{Seed: 5},
			WeatherModule{Active: 0},
			DriftModule{Active: 0},
			RenderModule{Target: target, Width: 640, Height: 360},
		).
		Build()
	return app, app.Commands()
}

func TestRender_NoCameraSubmitsClearOnlyFrame(t *testing.T) {
	target := &NullRenderer{}
	app, _ := renderTestApp(target)

	app.Step(0)

	assert.Equal(t, uint64(1), target.Frames, "frames submit even before the scene exists")
	assert.False(t, target.Last.HasCamera)
	assert.Empty(t, target.Last.Meshes)

	state := resourceOf[RenderState](app)
	assert.Equal(t, uint64(1), state.Frames)
	assert.Equal(t, uint64(0), state.SubmitErrors)
}

func TestRender_SnapshotCarriesSceneContents(t *testing.T) {
	target := &NullRenderer{}
	app, cmd := renderTestApp(target)

	cmd.AddEntity(
		&CameraComponent{
			Position: mgl32.Vec3{0, 5, -10},
			LookAt:   mgl32.Vec3{0, 0, 0},
			Up:       mgl32.Vec3{0, 1, 0},
			FovY:     55, Near: 0.1, Far: 500,
		},
		&TransformComponent{Rotation: mgl32.QuatIdent(), Scale: mgl32.Vec3{1, 1, 1}},
	)
	cmd.AddEntity(&LightComponent{
		Type:      LightTypeDirectional,
		Color:     [3]float32{1, 0.9, 0.8},
		Intensity: 2,
		Direction: mgl32.Vec3{0, -3, 0},
	})
	cmd.AddEntity(&LightComponent{
		Type:      LightTypeAmbient,
		Color:     [3]float32{0.1, 0.2, 0.3},
		Intensity: 1,
	})

	visible := &TransformComponent{Position: mgl32.Vec3{2, 0, 3}, Rotation: mgl32.QuatIdent(), Scale: mgl32.Vec3{1, 1, 1}}
	cmd.AddEntity(
		&RenderableComponent{Model: "hut", Texture: "planks", Tint: mgl32.Vec4{1, 1, 1, 1}, Visible: true},
		visible,
	)
	cmd.AddEntity(
		&RenderableComponent{Model: "hidden", Visible: false},
		&TransformComponent{Scale: mgl32.Vec3{1, 1, 1}},
	)
	cmd.AddEntity(
		&RenderableComponent{Model: "", Visible: true},
		&TransformComponent{Scale: mgl32.Vec3{1, 1, 1}},
	)
	cmd.AddEntity(
		&FireflyFieldComponent{Count: 8, Radius: 5, HeightRange: [2]float32{1, 2}, BobAmplitude: 0.3, BobFrequency: 1, SizeBase: 0.1},
		&TransformComponent{Scale: mgl32.Vec3{1, 1, 1}},
	)
	app.FlushCommands()

	app.Step(0)

	frame := target.Last
	require.True(t, frame.HasCamera)
	assert.Equal(t, mgl32.Vec3{0, 5, -10}, frame.Camera.Position)
	assert.Equal(t, float32(55), frame.Camera.FovY)
	assert.InDelta(t, 640.0/360.0, float64(frame.Camera.Aspect), 1e-5)

	assert.InDelta(t, -1.0, float64(frame.Light.Direction.Y()), 1e-5, "light direction is normalized")
	assert.Equal(t, mgl32.Vec3{2, 1.8, 1.6}, frame.Light.Color)
	assert.Equal(t, mgl32.Vec3{0.1, 0.2, 0.3}, frame.Light.Ambient)

	// Invisible and model-less renderables never reach the target.
	require.Len(t, frame.Meshes, 1)
	assert.Equal(t, AssetId("hut"), frame.Meshes[0].Model)
	assert.Equal(t, AssetId("planks"), frame.Meshes[0].Texture)
	assert.Equal(t, visible.Mat4(), frame.Meshes[0].Transform)

	require.Len(t, frame.Particles, 8)
	for _, p := range frame.Particles {
		assert.Equal(t, particleTints["fireflies"], p.Color)
		assert.Greater(t, p.Size, float32(0))
	}
}

type mockFailTarget struct {
	submits int
}

func (m *mockFailTarget) Submit(frame *FrameSnapshot) error {
	m.submits++
	return errors.New("device lost")
}

func (m *mockFailTarget) Resize(width, height int) {}
func (m *mockFailTarget) Close()                   {}

func TestRender_SubmitErrorsAreCountedNotFatal(t *testing.T) {
	target := &mockFailTarget{}
	app, _ := renderTestApp(target)

	app.Step(0)
	app.Step(0)

	state := resourceOf[RenderState](app)
	assert.Equal(t, 2, target.submits)
	assert.Equal(t, uint64(0), state.Frames)
	assert.Equal(t, uint64(2), state.SubmitErrors)
}

func TestNullRenderer_CountsResizes(t *testing.T) {
	target := &NullRenderer{}
	target.Resize(800, 600)
	target.Resize(1024, 768)
	assert.Equal(t, 2, target.Resizes)
}

func TestRenderModule_SecondRendererRefused(t *testing.T) {
	require.Panics(t, func() {
		NewAppBuilder().
			UseStates(0, 1).
			UseModule(
				RenderModule{Target: &NullRenderer{}},
				RenderModule{Target: &NullRenderer{}},
			).
			Build()
	}, "two render modules must not share one app")
}
