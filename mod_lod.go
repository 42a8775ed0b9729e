package frostvale

import (
	"github.com/go-gl/mathgl/mgl32"
)

// LodGroupComponent lists detail levels for one entity, thresholds ascending
// with index 0 the full-detail model. Current tracks the active level.
type LodGroupComponent struct {
	Thresholds []float32
	Models     []AssetId
	Current    int
}

// LodSelectorState caches the camera pose of the last executed batch pass.
// While the camera holds still the whole pass is skipped, which means LOD
// entities spawned during a still camera keep their initial level until the
// camera next moves. That staleness is a deliberate trade, not a bug.
type LodSelectorState struct {
	DistanceBias float32

	lastPosition mgl32.Vec3
	lastRotation mgl32.Quat
	valid        bool

	// Passes counts executed batch passes, skips excluded.
	Passes uint64
}

// LodModule swaps renderable models by camera distance in one batch pass
// per frame, in PreRender so every level choice lands before submission.
// Bias scales every threshold; zero means the default 1.5.
type LodModule struct {
	Active State
	Bias   float32
}

func (m LodModule) Install(app *App, cmd *Commands) {
	bias := m.Bias
	if bias <= 0 {
		bias = 1.5
	}
	cmd.AddResources(&LodSelectorState{DistanceBias: bias})

	app.UseSystem(
		System(lodSelectSystem).
			InStage(PreRender).
			InState(OnExecute(m.Active)),
	)
}

func lodSelectSystem(sel *LodSelectorState, cmd *Commands) {
	var camPos mgl32.Vec3
	var camRot mgl32.Quat
	found := false
	MakeQuery2[CameraComponent, TransformComponent](cmd).
		Map(func(eid EntityId, cam *CameraComponent, tr *TransformComponent) bool {
			camPos, camRot = tr.Position, tr.Rotation
			found = true
			return false
		})
	if !found {
		return
	}

	if sel.valid && camPos == sel.lastPosition && camRot == sel.lastRotation {
		return
	}
	sel.lastPosition = camPos
	sel.lastRotation = camRot
	sel.valid = true
	sel.Passes++

	MakeQuery3[LodGroupComponent, TransformComponent, RenderableComponent](cmd).
		Map(func(eid EntityId, group *LodGroupComponent, tr *TransformComponent, rend *RenderableComponent) bool {
			if len(group.Thresholds) == 0 || len(group.Models) != len(group.Thresholds) {
				return true
			}
			distance := tr.Position.Sub(camPos).Len()
			level := selectLodLevel(group.Thresholds, distance, sel.DistanceBias)
			if level != group.Current || rend.Model != group.Models[level] {
				group.Current = level
				rend.Model = group.Models[level]
			}
			return true
		})
}

// selectLodLevel picks the level with the greatest threshold whose biased
// value is still within distance. Equal thresholds resolve to the earlier,
// higher-detail level. When nothing qualifies the full-detail level stands.
func selectLodLevel(thresholds []float32, distance, bias float32) int {
	level := 0
	for i := 1; i < len(thresholds); i++ {
		t := thresholds[i]
		if t*bias <= distance && t > thresholds[level] {
			level = i
		}
	}
	return level
}
