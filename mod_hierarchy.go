package frostvale

import (
	"github.com/go-gl/mathgl/mgl32"
)

// TransformComponent is an entity's world-space pose. Root entities are
// driven directly (path followers, camera); child entities get theirs
// computed from the parent chain every frame.
type TransformComponent struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
}

// Mat4 assembles the TRS model matrix.
func (t *TransformComponent) Mat4() mgl32.Mat4 {
	return mgl32.Translate3D(t.Position.X(), t.Position.Y(), t.Position.Z()).
		Mul4(t.Rotation.Mat4()).
		Mul4(mgl32.Scale3D(t.Scale.X(), t.Scale.Y(), t.Scale.Z()))
}

// LocalTransformComponent is a pose relative to the entity's Parent.
type LocalTransformComponent struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
}

type Parent struct {
	Entity EntityId
}

// hierarchyMaxDepth bounds the propagation sweep. Scenes here nest at most
// rig roots above limbs, so the bound is slack, not a constraint.
const hierarchyMaxDepth = 4

type HierarchyModule struct{}

func (HierarchyModule) Install(app *App, cmd *Commands) {
	app.UseSystem(
		System(transformHierarchySystem).
			InStage(PostUpdate).
			RunAlways(),
	)
}

// transformHierarchySystem recomputes world transforms for parented
// entities: WorldPos = ParentPos + ParentRot*(ParentScale*LocalPos),
// WorldRot = ParentRot*LocalRot, WorldScale = ParentScale*LocalScale.
// Components propagate field-wise rather than through matrix decomposition
// so negative scales survive. The sweep repeats until a pass changes
// nothing, which settles a chain one level per pass regardless of map
// iteration order.
func transformHierarchySystem(cmd *Commands) {
	// A root carrying both poses keeps its local mirror in sync with the
	// authoritative world pose.
	MakeQuery2[LocalTransformComponent, TransformComponent](cmd).
		Without(Parent{}).
		Map(func(eid EntityId, local *LocalTransformComponent, world *TransformComponent) bool {
			local.Position = world.Position
			local.Rotation = world.Rotation
			local.Scale = world.Scale
			return true
		})

	for pass := 0; pass < hierarchyMaxDepth; pass++ {
		changed := false
		MakeQuery3[LocalTransformComponent, Parent, TransformComponent](cmd).
			Map(func(eid EntityId, local *LocalTransformComponent, parent *Parent, world *TransformComponent) bool {
				parentWorld, ok := GetComponent[TransformComponent](cmd, parent.Entity)
				if !ok {
					return true
				}

				scaledLocal := mgl32.Vec3{
					local.Position.X() * parentWorld.Scale.X(),
					local.Position.Y() * parentWorld.Scale.Y(),
					local.Position.Z() * parentWorld.Scale.Z(),
				}
				newPos := parentWorld.Position.Add(parentWorld.Rotation.Rotate(scaledLocal))
				newRot := parentWorld.Rotation.Mul(local.Rotation).Normalize()
				newScale := mgl32.Vec3{
					parentWorld.Scale.X() * local.Scale.X(),
					parentWorld.Scale.Y() * local.Scale.Y(),
					parentWorld.Scale.Z() * local.Scale.Z(),
				}

				if newPos != world.Position || newRot != world.Rotation || newScale != world.Scale {
					world.Position = newPos
					world.Rotation = newRot
					world.Scale = newScale
					changed = true
				}
				return true
			})
		if !changed {
			break
		}
	}
}
