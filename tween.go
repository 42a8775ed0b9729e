package frostvale

import (
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

func lerp(a, b, t float32) float32 { return a + (b-a)*t }

func lerpVec3(a, b mgl32.Vec3, t float32) mgl32.Vec3 {
	return a.Add(b.Sub(a).Mul(t))
}

func easeInOutCubic(t float32) float32 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	u := -2*t + 2
	return 1 - u*u*u/2
}

// Vec3Tween eases a vector from From to To over Duration. Zero Duration
// completes immediately.
type Vec3Tween struct {
	From     mgl32.Vec3
	To       mgl32.Vec3
	Duration time.Duration
	elapsed  time.Duration
}

// Advance moves the tween forward and returns the current value. Past the
// end it pins to To.
func (tw *Vec3Tween) Advance(dt time.Duration) mgl32.Vec3 {
	tw.elapsed += dt
	if tw.Done() {
		return tw.To
	}
	t := float32(tw.elapsed.Seconds() / tw.Duration.Seconds())
	return lerpVec3(tw.From, tw.To, easeInOutCubic(t))
}

func (tw *Vec3Tween) Done() bool {
	return tw.elapsed >= tw.Duration
}
