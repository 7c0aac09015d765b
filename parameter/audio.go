package parameter

import "time"

// Audio Output
const (
	AudioSampleRate = 44100

	// AudioBufferDuration determines speaker latency
	AudioBufferDuration = 100 * time.Millisecond

	// AudioGain scales unity-gain cues before mixing
	AudioGain = 0.25

	// MinCueGap suppresses repeats of the same cue inside the window
	MinCueGap = 150 * time.Millisecond
)

// Cue envelopes
const (
	CueAttack  = 10 * time.Millisecond
	CueRelease = 120 * time.Millisecond

	HornNoteDuration    = 450 * time.Millisecond
	ChimeNoteDuration   = 180 * time.Millisecond
	BellDuration        = 900 * time.Millisecond
	DrumDuration        = 350 * time.Millisecond
	FanfareNoteDuration = 220 * time.Millisecond
	DirgeNoteDuration   = 500 * time.Millisecond
	WavePulseDuration   = 120 * time.Millisecond
	SiegeHornDuration   = 1200 * time.Millisecond
)
