package audio

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/lixenwraith/mega-knights/host"
	"github.com/lixenwraith/mega-knights/parameter"
)

// Waveform types
const (
	waveSine = iota
	waveSquare
	waveSaw
	waveNoise
)

// floatBuffer is mono float64 samples at unity gain
type floatBuffer []float64

// oscillator generates raw waveform samples
func oscillator(waveType int, freq float64, samples int) floatBuffer {
	buf := make(floatBuffer, samples)
	phase := 0.0
	phaseInc := freq / float64(parameter.AudioSampleRate)

	for i := 0; i < samples; i++ {
		switch waveType {
		case waveSine:
			buf[i] = math.Sin(2 * math.Pi * phase)
		case waveSquare:
			if phase < 0.5 {
				buf[i] = 1.0
			} else {
				buf[i] = -1.0
			}
		case waveSaw:
			buf[i] = 2.0 * (phase - 0.5)
		case waveNoise:
			buf[i] = rand.Float64()*2 - 1
		}

		phase += phaseInc
		if phase >= 1.0 {
			phase -= 1.0
		}
	}
	return buf
}

// applyEnvelope applies attack/release envelope in place
func applyEnvelope(buf floatBuffer, attack, release time.Duration) {
	total := len(buf)
	attackSamples := samplesFor(attack)
	releaseSamples := samplesFor(release)

	releaseStart := max(total-releaseSamples, attackSamples)

	for i := 0; i < total; i++ {
		vol := 1.0
		if i < attackSamples && attackSamples > 0 {
			vol = float64(i) / float64(attackSamples)
		} else if i >= releaseStart && releaseSamples > 0 {
			vol = float64(total-i) / float64(releaseSamples)
		}
		buf[i] *= vol
	}
}

// applyDecay applies an exponential decay in place
func applyDecay(buf floatBuffer, rate float64) {
	for i := range buf {
		t := float64(i) / float64(parameter.AudioSampleRate)
		buf[i] *= math.Exp(-t * rate)
	}
}

// mix adds b into a scaled by bScale, extending a if needed
func mix(a, b floatBuffer, bScale float64) floatBuffer {
	if len(b) > len(a) {
		extended := make(floatBuffer, len(b))
		copy(extended, a)
		a = extended
	}
	for i := range b {
		a[i] += b[i] * bScale
	}
	return a
}

// concat appends buffers in order
func concat(parts ...floatBuffer) floatBuffer {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	out := make(floatBuffer, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func samplesFor(d time.Duration) int {
	return int(d.Seconds() * float64(parameter.AudioSampleRate))
}

// note is one enveloped tone
func note(wave int, freq float64, d time.Duration) floatBuffer {
	buf := oscillator(wave, freq, samplesFor(d))
	applyEnvelope(buf, parameter.CueAttack, parameter.CueRelease)
	return buf
}

// --- Cue generators (unity gain) ---

// generateHorn is a two-note low saw call, A2 then E3
func generateHorn() floatBuffer {
	return concat(
		note(waveSaw, 110.0, parameter.HornNoteDuration),
		note(waveSaw, 164.81, parameter.HornNoteDuration),
	)
}

// generateChime is a rising sine arpeggio, C6 E6 G6
func generateChime() floatBuffer {
	return concat(
		note(waveSine, 1046.5, parameter.ChimeNoteDuration),
		note(waveSine, 1318.51, parameter.ChimeNoteDuration),
		note(waveSine, 1567.98, parameter.ChimeNoteDuration*2),
	)
}

// generateBell is A5 with an octave overtone
func generateBell() floatBuffer {
	n := samplesFor(parameter.BellDuration)
	fund := oscillator(waveSine, 880.0, n)
	over := oscillator(waveSine, 1760.0, n)
	applyDecay(fund, 3)
	applyDecay(over, 6)
	return mix(fund, over, 0.3/0.7)
}

// generateDrum is noise over a falling low sine
func generateDrum() floatBuffer {
	n := samplesFor(parameter.DrumDuration)
	body := make(floatBuffer, n)
	for i := range body {
		t := float64(i) / float64(parameter.AudioSampleRate)
		body[i] = math.Sin(2 * math.Pi * (60 + 60*math.Exp(-t*20)) * t)
	}
	skin := oscillator(waveNoise, 0, n)
	out := mix(body, skin, 0.35)
	applyDecay(out, 10)
	return out
}

// generateFanfare is a square triad climbing to the octave, C5 E5 G5 C6
func generateFanfare() floatBuffer {
	d := parameter.FanfareNoteDuration
	return concat(
		note(waveSquare, 523.25, d),
		note(waveSquare, 659.25, d),
		note(waveSquare, 783.99, d),
		note(waveSquare, 1046.5, d*3),
	)
}

// generateDirge descends through a minor triad, A3 F3 D3
func generateDirge() floatBuffer {
	d := parameter.DirgeNoteDuration
	return concat(
		note(waveSaw, 220.0, d),
		note(waveSaw, 174.61, d),
		note(waveSaw, 146.83, d*2),
	)
}

// generateWavePulse is two short square blips
func generateWavePulse() floatBuffer {
	blip := note(waveSquare, 330.0, parameter.WavePulseDuration)
	gap := make(floatBuffer, samplesFor(parameter.WavePulseDuration/2))
	return concat(blip, gap, blip)
}

// generateSiegeHorn is a long horn with a fifth layered on top
func generateSiegeHorn() floatBuffer {
	low := note(waveSaw, 98.0, parameter.SiegeHornDuration)
	high := note(waveSaw, 146.83, parameter.SiegeHornDuration)
	return mix(low, high, 0.6)
}

// generateCue dispatches to the cue's generator; unknown cues yield nil
func generateCue(id host.SoundID) floatBuffer {
	switch id {
	case host.SoundMilestone:
		return generateBell()
	case host.SoundCampSpawn:
		return generateHorn()
	case host.SoundCampClear:
		return generateChime()
	case host.SoundSiegeStart:
		return generateSiegeHorn()
	case host.SoundWave:
		return generateWavePulse()
	case host.SoundBossPhase:
		return generateDrum()
	case host.SoundSiegeVictory:
		return generateFanfare()
	case host.SoundSiegeDefeat:
		return generateDirge()
	default:
		return nil
	}
}
