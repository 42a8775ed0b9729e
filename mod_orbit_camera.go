package frostvale

import (
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

// CameraComponent is what the renderer consumes: an eye pose plus projection
// parameters.
type CameraComponent struct {
	Position mgl32.Vec3
	LookAt   mgl32.Vec3
	Up       mgl32.Vec3
	FovY     float32 // degrees
	Near     float32
	Far      float32
}

func (c *CameraComponent) ViewProjection(aspect float32) mgl32.Mat4 {
	view := mgl32.LookAtV(c.Position, c.LookAt, c.Up)
	proj := mgl32.Perspective(mgl32.DegToRad(c.FovY), aspect, c.Near, c.Far)
	return proj.Mul4(view)
}

// OrbitPose is one complete rig configuration.
type OrbitPose struct {
	Focus    mgl32.Vec3
	Distance float32
	Yaw      float32 // radians, unbounded
	Pitch    float32 // radians above the horizon
}

// OrbitCameraComponent orbits the eye around a focus point. Inputs move the
// Target pose; the control system eases the current pose toward it with
// exponential damping, so releasing the mouse leaves the rig gliding to a
// stop. Reset flies the whole pose back to Home on a fixed-length tween;
// any new orbit, pan or zoom input cancels the flight.
type OrbitCameraComponent struct {
	OrbitPose

	TargetFocus    mgl32.Vec3
	TargetDistance float32
	TargetYaw      float32
	TargetPitch    float32

	MinDistance float32
	MaxDistance float32
	MinPitch    float32
	MaxPitch    float32

	OrbitSpeed float32 // radians per pixel of drag
	PanSpeed   float32 // world units per pixel at unit distance
	ZoomSpeed  float32 // distance multiplier per scroll notch
	Damping    float32 // 1/s

	Home OrbitPose

	resetting     bool
	resetFrom     OrbitPose
	resetElapsed  time.Duration
	resetDuration time.Duration
}

// NewOrbitCamera builds a rig aimed at focus from the given spherical pose,
// with the tuning the village scene uses. The starting pose doubles as Home.
func NewOrbitCamera(focus mgl32.Vec3, distance, yaw, pitch float32) OrbitCameraComponent {
	pose := OrbitPose{Focus: focus, Distance: distance, Yaw: yaw, Pitch: pitch}
	return OrbitCameraComponent{
		OrbitPose:      pose,
		TargetFocus:    pose.Focus,
		TargetDistance: pose.Distance,
		TargetYaw:      pose.Yaw,
		TargetPitch:    pose.Pitch,
		MinDistance:    8,
		MaxDistance:    160,
		MinPitch:       0.08,
		MaxPitch:       1.45,
		OrbitSpeed:     0.005,
		PanSpeed:       0.0016,
		ZoomSpeed:      0.9,
		Damping:        6,
		Home:           pose,
	}
}

// Eye converts the spherical pose into a world-space eye position.
func (p OrbitPose) Eye() mgl32.Vec3 {
	cp := float32(math.Cos(float64(p.Pitch)))
	return mgl32.Vec3{
		p.Focus.X() + p.Distance*cp*float32(math.Sin(float64(p.Yaw))),
		p.Focus.Y() + p.Distance*float32(math.Sin(float64(p.Pitch))),
		p.Focus.Z() + p.Distance*cp*float32(math.Cos(float64(p.Yaw))),
	}
}

// StartReset begins the flight back to Home.
func (o *OrbitCameraComponent) StartReset(duration time.Duration) {
	o.resetting = true
	o.resetFrom = o.OrbitPose
	o.resetElapsed = 0
	o.resetDuration = duration
}

func (o *OrbitCameraComponent) cancelReset() {
	o.resetting = false
}

const cameraResetDuration = 1200 * time.Millisecond

type OrbitCameraModule struct{}

func (m OrbitCameraModule) Install(app *App, cmd *Commands) {
	app.UseSystem(
		System(orbitCameraInputSystem).
			InStage(Update).
			RunAlways(),
	)
	app.UseSystem(
		System(orbitCameraControlSystem).
			InStage(Update).
			RunAlways(),
	)
}

// orbitCameraInputSystem maps the input snapshot onto target pose changes:
// left drag orbits, right or middle drag pans across the ground plane,
// scroll zooms, R flies home.
func orbitCameraInputSystem(input *Input, cmd *Commands) {
	dx := float32(input.MouseDeltaX)
	dy := float32(input.MouseDeltaY)

	MakeQuery1[OrbitCameraComponent](cmd).Map(func(eid EntityId, orbit *OrbitCameraComponent) bool {
		if input.JustPressed[KeyR] {
			orbit.StartReset(cameraResetDuration)
		}

		if input.Pressed[MouseButtonLeft] && (dx != 0 || dy != 0) {
			orbit.cancelReset()
			orbit.TargetYaw -= dx * orbit.OrbitSpeed
			orbit.TargetPitch = clamp(orbit.TargetPitch-dy*orbit.OrbitSpeed, orbit.MinPitch, orbit.MaxPitch)
		}

		if (input.Pressed[MouseButtonRight] || input.Pressed[MouseButtonMiddle]) && (dx != 0 || dy != 0) {
			orbit.cancelReset()
			sy := float32(math.Sin(float64(orbit.Yaw)))
			cy := float32(math.Cos(float64(orbit.Yaw)))
			right := mgl32.Vec3{cy, 0, -sy}
			forward := mgl32.Vec3{-sy, 0, -cy}
			step := orbit.PanSpeed * orbit.Distance
			orbit.TargetFocus = orbit.TargetFocus.
				Add(right.Mul(-dx * step)).
				Add(forward.Mul(dy * step))
		}

		if input.ScrollY != 0 {
			orbit.cancelReset()
			factor := float32(math.Pow(float64(orbit.ZoomSpeed), input.ScrollY))
			orbit.TargetDistance = clamp(orbit.TargetDistance*factor, orbit.MinDistance, orbit.MaxDistance)
		}

		return true
	})
}

// orbitCameraControlSystem advances the rig and publishes the eye pose into
// the camera and world transform. With dt zero nothing moves.
func orbitCameraControlSystem(cmd *Commands, t *Time) {
	MakeQuery3[OrbitCameraComponent, CameraComponent, TransformComponent](cmd).
		Map(func(eid EntityId, orbit *OrbitCameraComponent, cam *CameraComponent, world *TransformComponent) bool {
			if orbit.Damping == 0 {
				orbit.Damping = 6
			}

			if orbit.resetting {
				orbit.resetElapsed += t.Delta
				if orbit.resetElapsed >= orbit.resetDuration {
					orbit.OrbitPose = orbit.Home
					orbit.resetting = false
				} else {
					k := easeInOutCubic(float32(orbit.resetElapsed.Seconds() / orbit.resetDuration.Seconds()))
					orbit.Focus = lerpVec3(orbit.resetFrom.Focus, orbit.Home.Focus, k)
					orbit.Distance = lerp(orbit.resetFrom.Distance, orbit.Home.Distance, k)
					orbit.Yaw = lerp(orbit.resetFrom.Yaw, orbit.Home.Yaw, k)
					orbit.Pitch = lerp(orbit.resetFrom.Pitch, orbit.Home.Pitch, k)
				}
				orbit.TargetFocus = orbit.Home.Focus
				orbit.TargetDistance = orbit.Home.Distance
				orbit.TargetYaw = orbit.Home.Yaw
				orbit.TargetPitch = orbit.Home.Pitch
			} else {
				k := orbit.Damping * t.DeltaSec
				if k > 1 {
					k = 1
				}
				orbit.Focus = lerpVec3(orbit.Focus, orbit.TargetFocus, k)
				orbit.Distance = lerp(orbit.Distance, orbit.TargetDistance, k)
				orbit.Yaw = lerp(orbit.Yaw, orbit.TargetYaw, k)
				orbit.Pitch = lerp(orbit.Pitch, orbit.TargetPitch, k)
			}

			orbit.Distance = clamp(orbit.Distance, orbit.MinDistance, orbit.MaxDistance)
			orbit.Pitch = clamp(orbit.Pitch, orbit.MinPitch, orbit.MaxPitch)

			eye := orbit.OrbitPose.Eye()
			cam.Position = eye
			cam.LookAt = orbit.Focus
			cam.Up = mgl32.Vec3{0, 1, 0}

			world.Position = eye
			world.Rotation = mgl32.QuatLookAtV(eye, orbit.Focus, cam.Up)
			if world.Scale == (mgl32.Vec3{}) {
				world.Scale = mgl32.Vec3{1, 1, 1}
			}
			return true
		})
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
