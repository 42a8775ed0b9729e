package frostvale

import "time"

// Time is the frame clock. The app loop writes it before each tick; systems
// only read it. Now advances by the injected delta rather than the wall
// clock, so stepped and replayed runs stay deterministic.
type Time struct {
	Now      time.Time
	Delta    time.Duration
	DeltaSec float32
	Elapsed  time.Duration
	Tick     uint64
}

func (t *Time) ElapsedSec() float64 {
	return t.Elapsed.Seconds()
}

// EvenTick reports the half-rate lane's phase for this tick.
func (t *Time) EvenTick() bool {
	return t.Tick%2 == 0
}

// TimeModule installs the frame clock, and a FramePacer when TargetFPS is
// positive. Without a pacer the loop runs uncapped.
type TimeModule struct {
	TargetFPS int
}

func (mod TimeModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(&Time{Now: time.Now()})
	if mod.TargetFPS > 0 {
		cmd.AddResources(PaceFPS(mod.TargetFPS))
	}
}

// pacerNap is how long a rejected tick sleeps before re-arming. Short enough
// to keep cap jitter low, long enough to stay off the CPU.
const pacerNap = 500 * time.Microsecond

// FramePacer applies a soft FPS cap. Ticks arriving before the reserved slot
// are rejected; the caller re-arms and tries again, and the skipped time
// rolls into the next executed frame's delta. Actual frame intervals are
// therefore never shorter than MinInterval but may be longer.
type FramePacer struct {
	MinInterval time.Duration
	next        time.Time
}

func PaceFPS(fps int) *FramePacer {
	if fps <= 0 {
		return &FramePacer{}
	}
	return &FramePacer{MinInterval: time.Second / time.Duration(fps)}
}

// Admit reports whether a tick arriving at now may execute. An admitted tick
// reserves the next slot; a rejected one leaves it untouched.
func (p *FramePacer) Admit(now time.Time) bool {
	if p.MinInterval <= 0 {
		return true
	}
	if now.Before(p.next) {
		return false
	}
	p.next = now.Add(p.MinInterval)
	return true
}
