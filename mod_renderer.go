package frostvale

import (
	"github.com/go-gl/mathgl/mgl32"
)

// RenderableComponent marks an entity for drawing. Model points at a mesh
// asset; the LOD selector rewrites it as the camera moves. Texture is
// optional, an empty id draws with plain vertex colors.
type RenderableComponent struct {
	Model   AssetId
	Texture AssetId
	Tint    mgl32.Vec4
	Visible bool
}

type MeshDraw struct {
	Model     AssetId
	Texture   AssetId
	Transform mgl32.Mat4
	Tint      mgl32.Vec4
}

type ParticleDraw struct {
	Position mgl32.Vec3
	Size     float32
	Color    mgl32.Vec4
}

type CameraSnapshot struct {
	Position mgl32.Vec3
	LookAt   mgl32.Vec3
	Up       mgl32.Vec3
	FovY     float32
	Aspect   float32
	Near     float32
	Far      float32
}

func (c CameraSnapshot) View() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position, c.LookAt, c.Up)
}

func (c CameraSnapshot) Projection() mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(c.FovY), c.Aspect, c.Near, c.Far)
}

type LightSnapshot struct {
	Direction mgl32.Vec3
	Color     mgl32.Vec3
	Ambient   mgl32.Vec3
}

// FrameSnapshot is everything a render target needs for one frame. It is
// rebuilt per tick on the scheduling thread and handed over synchronously,
// so targets must not retain it past Submit. HasCamera is false until a
// camera exists (while assets load); targets should clear and present
// without drawing.
type FrameSnapshot struct {
	HasCamera bool
	Camera    CameraSnapshot
	Light     LightSnapshot
	Meshes    []MeshDraw
	Particles []ParticleDraw
}

// RenderTarget consumes frame snapshots and resize events.
type RenderTarget interface {
	Submit(frame *FrameSnapshot) error
	Resize(width, height int)
	Close()
}

// NullRenderer swallows frames and remembers the last one. It stands in
// for the GPU in headless runs and tests.
type NullRenderer struct {
	Frames  uint64
	Resizes int
	Last    FrameSnapshot
}

func (r *NullRenderer) Submit(frame *FrameSnapshot) error {
	r.Frames++
	r.Last = *frame
	return nil
}

func (r *NullRenderer) Resize(width, height int) { r.Resizes++ }

func (r *NullRenderer) Close() {}

// RenderState tracks the active target and output size.
type RenderState struct {
	Target RenderTarget
	Width  int
	Height int

	Frames       uint64
	SubmitErrors uint64

	frame FrameSnapshot
}

// RenderModule collects one snapshot per tick and submits it. Collection
// and submission both live in the Render stage, collection first. With
// TrackWindow set, framebuffer resizes propagate to the target and the
// camera aspect.
type RenderModule struct {
	Target      RenderTarget
	Width       int
	Height      int
	TrackWindow bool
}

func (m RenderModule) Install(app *App, cmd *Commands) {
	claimRenderOutput(app, m.Target)
	if m.Width <= 0 {
		m.Width = 1280
	}
	if m.Height <= 0 {
		m.Height = 720
	}
	cmd.AddResources(&RenderState{
		Target: m.Target,
		Width:  m.Width,
		Height: m.Height,
	})

	if m.TrackWindow {
		app.UseSystem(
			System(renderResizeSystem).
				InStage(PreRender).
				RunAlways(),
		)
	}
	app.UseSystem(
		System(renderCollectSystem).
			InStage(Render).
			RunAlways(),
	)
	app.UseSystem(
		System(renderSubmitSystem).
			InStage(Render).
			RunAlways(),
	)
}

func renderResizeSystem(state *RenderState, win *WindowState) {
	if width, height, ok := win.takeResize(); ok {
		state.Width, state.Height = width, height
		if state.Target != nil {
			state.Target.Resize(width, height)
		}
	}
}

var particleTints = map[string]mgl32.Vec4{
	"snow":      {0.95, 0.97, 1.0, 1.0},
	"smoke":     {0.75, 0.78, 0.82, 0.55},
	"fireflies": {1.0, 0.85, 0.45, 1.0},
	"mist":      {0.80, 0.85, 0.92, 0.35},
}

// renderCollectSystem rebuilds the frame snapshot: active camera, lights,
// every visible renderable, and all live particles. Slices are reused
// across ticks.
func renderCollectSystem(state *RenderState, weather *WeatherState, cmd *Commands) {
	frame := &state.frame
	frame.HasCamera = false
	frame.Meshes = frame.Meshes[:0]
	frame.Particles = frame.Particles[:0]

	aspect := float32(state.Width) / float32(max(state.Height, 1))
	found := false
	MakeQuery2[CameraComponent, TransformComponent](cmd).
		Map(func(eid EntityId, cam *CameraComponent, tr *TransformComponent) bool {
			frame.Camera = CameraSnapshot{
				Position: cam.Position,
				LookAt:   cam.LookAt,
				Up:       cam.Up,
				FovY:     cam.FovY,
				Aspect:   aspect,
				Near:     cam.Near,
				Far:      cam.Far,
			}
			found = true
			return false
		})
	if !found {
		return
	}
	frame.HasCamera = true

	frame.Light = LightSnapshot{
		Direction: mgl32.Vec3{0, -1, 0},
		Ambient:   mgl32.Vec3{0.25, 0.28, 0.35},
	}
	MakeQuery1[LightComponent](cmd).
		Map(func(eid EntityId, light *LightComponent) bool {
			color := mgl32.Vec3{light.Color[0], light.Color[1], light.Color[2]}.Mul(light.Intensity)
			switch light.Type {
			case LightTypeDirectional:
				frame.Light.Direction = light.Direction.Normalize()
				frame.Light.Color = color
			case LightTypeAmbient:
				frame.Light.Ambient = color
			}
			return true
		})

	MakeQuery2[RenderableComponent, TransformComponent](cmd).
		Map(func(eid EntityId, rend *RenderableComponent, tr *TransformComponent) bool {
			if !rend.Visible || rend.Model == "" {
				return true
			}
			frame.Meshes = append(frame.Meshes, MeshDraw{
				Model:     rend.Model,
				Texture:   rend.Texture,
				Transform: tr.Mat4(),
				Tint:      rend.Tint,
			})
			return true
		})

	collectParticles(frame, weather.Snow, particleTints["snow"])
	collectParticles(frame, weather.Smoke, particleTints["smoke"])
	collectParticles(frame, weather.Fireflies, particleTints["fireflies"])
	collectParticles(frame, weather.Mist, particleTints["mist"])
}

func collectParticles(frame *FrameSnapshot, pools map[EntityId]*particleBuffer, tint mgl32.Vec4) {
	for _, buf := range pools {
		for i := 0; i < buf.alive; i++ {
			color := tint
			color[3] *= buf.alpha[i]
			frame.Particles = append(frame.Particles, ParticleDraw{
				Position: buf.pos[i],
				Size:     buf.size[i],
				Color:    color,
			})
		}
	}
}

func renderSubmitSystem(state *RenderState, cmd *Commands) {
	if state.Target == nil {
		return
	}
	if err := state.Target.Submit(&state.frame); err != nil {
		state.SubmitErrors++
		cmd.Logger().Errorf("frame submit failed: %v", err)
		return
	}
	state.Frames++
}
