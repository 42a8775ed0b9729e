package frostvale

import (
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
	"github.com/faiface/beep/speaker"
)

// AudioState owns the best-effort ambience layer. Playback starts once via
// StartAmbience; until then (or if the speaker fails to open) every mapper
// call is a no-op and the scene runs silent. speaker.Lock guards streamer
// fields against the playback goroutine.
type AudioState struct {
	// Camera heights mapped to the volume band. At MinHeight and below the
	// ambience plays at LoudVolume, at MaxHeight and above at QuietVolume.
	MinHeight   float32
	MaxHeight   float32
	LoudVolume  float64
	QuietVolume float64

	volume *effects.Volume
	ready  bool
	muted  bool
}

// StartAmbience opens the speaker and loops the buffered ambience forever.
// Any failure is logged and leaves audio disabled, never the scene.
func (a *AudioState) StartAmbience(asset AudioAsset, log Logger) {
	if a.ready {
		return
	}
	if asset.buffer == nil || asset.buffer.Len() == 0 {
		log.Warnf("ambience buffer is empty, audio disabled")
		return
	}

	sr := asset.format.SampleRate
	if err := speaker.Init(sr, sr.N(time.Second/10)); err != nil {
		log.Warnf("speaker init failed, audio disabled: %v", err)
		return
	}

	loop := beep.Loop(-1, asset.buffer.Streamer(0, asset.buffer.Len()))
	a.volume = &effects.Volume{
		Streamer: loop,
		Base:     2,
		Volume:   a.QuietVolume,
		Silent:   a.muted,
	}
	speaker.Play(a.volume)
	a.ready = true
	log.Infof("Ambience playing at %d Hz", sr)
}

func (a *AudioState) Ready() bool { return a.ready }
func (a *AudioState) Muted() bool { return a.muted }

// SetMuted silences or restores the ambience without stopping playback.
func (a *AudioState) SetMuted(muted bool) {
	a.muted = muted
	if !a.ready {
		return
	}
	speaker.Lock()
	a.volume.Silent = muted
	speaker.Unlock()
}

func (a *AudioState) setVolume(v float64) {
	if !a.ready {
		return
	}
	speaker.Lock()
	a.volume.Volume = v
	speaker.Unlock()
}

// volumeForHeight interpolates the volume exponent across the height band,
// clamped at both ends.
func (a *AudioState) volumeForHeight(height float32) float64 {
	span := a.MaxHeight - a.MinHeight
	if span <= 0 {
		return a.LoudVolume
	}
	t := (height - a.MinHeight) / span
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return a.LoudVolume + (a.QuietVolume-a.LoudVolume)*float64(t)
}

// AudioModule wires the ambience mapper: the mute toggle samples input every
// tick so no keypress is lost, the continuous height mapping rides the
// half-rate lane.
type AudioModule struct {
	Active State
}

func (m AudioModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(&AudioState{
		MinHeight:   5,
		MaxHeight:   120,
		LoudVolume:  0,
		QuietVolume: -4,
	})

	app.UseSystem(
		System(audioMuteSystem).
			InStage(Update).
			InState(OnExecute(m.Active)),
	)
	app.UseSystem(
		System(audioParameterSystem).
			InStage(Update).
			InState(OnExecute(m.Active)).
			HalfRate(),
	)
}

func audioMuteSystem(audio *AudioState, input *Input) {
	if input.JustPressed[KeyM] {
		audio.SetMuted(!audio.Muted())
	}
}

// audioParameterSystem maps the camera's height to ambience loudness, so
// climbing away from the village lets the wind fade out.
func audioParameterSystem(audio *AudioState, cmd *Commands) {
	if !audio.ready {
		return
	}

	height := float32(0)
	found := false
	MakeQuery1[CameraComponent](cmd).Map(func(eid EntityId, cam *CameraComponent) bool {
		height = cam.Position.Y()
		found = true
		return false
	})
	if !found {
		return
	}

	audio.setVolume(audio.volumeForHeight(height))
}
