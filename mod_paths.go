package frostvale

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// PathComponent is a closed waypoint loop. Builders repeat the first
// waypoint at the end so the final segment walks back to the start like any
// other.
type PathComponent struct {
	Waypoints []mgl32.Vec3
}

// ClosedPath builds a loop from the given waypoints, duplicating the first
// one at the end.
func ClosedPath(waypoints ...mgl32.Vec3) PathComponent {
	points := make([]mgl32.Vec3, 0, len(waypoints)+1)
	points = append(points, waypoints...)
	if len(waypoints) > 0 {
		points = append(points, waypoints[0])
	}
	return PathComponent{Waypoints: points}
}

// PathFollowerComponent walks an entity along a PathComponent owned by
// another entity. MoveSpeed is in units per tick, deliberately not scaled
// by delta time, so characters stride at a fixed pace per frame.
type PathFollowerComponent struct {
	Path      EntityId
	MoveSpeed float32
	PathIndex int
}

// LimbSwingComponent oscillates a limb's local rotation on a phase-shifted
// sine of elapsed time. Swing is decoupled from translation, so a stalled
// character still marches in place.
type LimbSwingComponent struct {
	Amplitude float32
	Frequency float32
	Phase     float32
}

const waypointEpsilon = 0.1

// PathModule advances followers and swings limbs while Active. Followers
// run before the transform propagation pass so children see this tick's
// position.
type PathModule struct {
	Active State
}

func (m PathModule) Install(app *App, cmd *Commands) {
	app.UseSystem(
		System(pathFollowSystem).
			InStage(Update).
			InState(OnExecute(m.Active)),
	)
	app.UseSystem(
		System(limbSwingSystem).
			InStage(Update).
			InState(OnExecute(m.Active)),
	)
}

// pathFollowSystem moves each follower a fixed step toward its upcoming
// waypoint and turns it to face that waypoint. Within waypointEpsilon the
// index advances modulo the loop length. Entities with a missing or empty
// path are skipped.
func pathFollowSystem(cmd *Commands) {
	MakeQuery2[PathFollowerComponent, TransformComponent](cmd).
		Map(func(eid EntityId, follower *PathFollowerComponent, tr *TransformComponent) bool {
			path, ok := GetComponent[PathComponent](cmd, follower.Path)
			if !ok || len(path.Waypoints) == 0 {
				return true
			}

			count := len(path.Waypoints)
			if follower.PathIndex < 0 || follower.PathIndex >= count {
				follower.PathIndex = 0
			}

			target := path.Waypoints[follower.PathIndex]
			if target.Sub(tr.Position).Len() < waypointEpsilon {
				follower.PathIndex = (follower.PathIndex + 1) % count
				target = path.Waypoints[follower.PathIndex]
			}

			to := target.Sub(tr.Position)
			dist := to.Len()
			if dist > 0 {
				dir := to.Mul(1 / dist)
				tr.Position = tr.Position.Add(dir.Mul(follower.MoveSpeed))
				faceToward(tr, dir)
			}
			return true
		})
}

// faceToward yaws the entity to look along dir, keeping it upright.
func faceToward(tr *TransformComponent, dir mgl32.Vec3) {
	if dir.X() == 0 && dir.Z() == 0 {
		return
	}
	yaw := float32(math.Atan2(float64(dir.X()), float64(dir.Z())))
	tr.Rotation = mgl32.QuatRotate(yaw, mgl32.Vec3{0, 1, 0})
}

// limbSwingSystem rotates limbs about their local x-axis by a sine of
// elapsed time. Amplitude and phase come from the component, so opposite
// limbs counter-swing by carrying phases pi apart.
func limbSwingSystem(t *Time, cmd *Commands) {
	elapsed := t.ElapsedSec()

	MakeQuery2[LimbSwingComponent, LocalTransformComponent](cmd).
		Map(func(eid EntityId, swing *LimbSwingComponent, local *LocalTransformComponent) bool {
			angle := swing.Amplitude * float32(math.Sin(elapsed*float64(swing.Frequency)+float64(swing.Phase)))
			local.Rotation = mgl32.QuatRotate(angle, mgl32.Vec3{1, 0, 0})
			return true
		})
}
