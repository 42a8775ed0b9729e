package frostvale

import "github.com/go-gl/mathgl/mgl32"

type LightType uint32

const (
	LightTypeDirectional LightType = 0
	LightTypeAmbient     LightType = 1
	LightTypePoint       LightType = 2
)

// LightComponent is the ECS component for lights. Direction is only read
// for directional lights, Range only for point lights.
type LightComponent struct {
	Type      LightType
	Color     [3]float32
	Intensity float32
	Direction mgl32.Vec3
	Range     float32
}
