package frostvale

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAudio_VolumeForHeight(t *testing.T) {
	audio := &AudioState{
		MinHeight:   5,
		MaxHeight:   105,
		LoudVolume:  0,
		QuietVolume: -4,
	}

	// Clamped at both ends of the band.
	assert.Equal(t, 0.0, audio.volumeForHeight(5))
	assert.Equal(t, 0.0, audio.volumeForHeight(-50))
	assert.Equal(t, -4.0, audio.volumeForHeight(105))
	assert.Equal(t, -4.0, audio.volumeForHeight(900))

	// Linear in between.
	assert.InDelta(t, -2.0, audio.volumeForHeight(55), 1e-6)
	assert.InDelta(t, -1.0, audio.volumeForHeight(30), 1e-6)
}

func TestAudio_DegenerateBandStaysLoud(t *testing.T) {
	audio := &AudioState{MinHeight: 10, MaxHeight: 10, LoudVolume: -0.5, QuietVolume: -4}
	assert.Equal(t, -0.5, audio.volumeForHeight(0))
	assert.Equal(t, -0.5, audio.volumeForHeight(500))
}

func TestAudio_NotReadyIsSilentNoOp(t *testing.T) {
	audio := &AudioState{}

	// Neither of these may touch the speaker before StartAmbience ran.
	audio.SetMuted(true)
	audio.setVolume(-2)

	assert.True(t, audio.Muted())
	assert.False(t, audio.Ready())
}

func TestAudio_EmptyBufferDisablesAmbience(t *testing.T) {
	audio := &AudioState{}
	audio.StartAmbience(AudioAsset{}, NewNopLogger())
	assert.False(t, audio.Ready())
}
