// Package audio plays campaign cues on the local speaker
//
// Cues are synthesized once into unity-gain buffers and mixed on demand. A
// machine without an audio device keeps working: Initialize fails, the player
// stays silent and Play keeps returning nil
package audio

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"

	"github.com/lixenwraith/mega-knights/host"
	"github.com/lixenwraith/mega-knights/parameter"
)

const sampleRate = beep.SampleRate(parameter.AudioSampleRate)

// CuePlayer implements host.SoundPlayer on beep
type CuePlayer struct {
	mu          sync.Mutex
	mixer       *beep.Mixer
	cache       *cueCache
	last        map[host.SoundID]time.Time
	initialized bool

	muted  atomic.Bool
	played atomic.Int64
	now    func() time.Time
	log    *slog.Logger
}

func NewCuePlayer() *CuePlayer {
	return &CuePlayer{
		mixer: &beep.Mixer{},
		cache: newCueCache(),
		last:  make(map[host.SoundID]time.Time),
		now:   time.Now,
		log:   slog.With("component", "audio"),
	}
}

// Initialize opens the speaker; on error the player stays silent
func (p *CuePlayer) Initialize() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return nil
	}

	if err := speaker.Init(sampleRate, sampleRate.N(parameter.AudioBufferDuration)); err != nil {
		p.log.Warn("audio unavailable, cues muted", "error", err)
		return err
	}
	p.cache.preload()

	speaker.Play(p.mixer)
	p.initialized = true
	return nil
}

// Cleanup stops every cue
func (p *CuePlayer) Cleanup() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		return
	}

	speaker.Lock()
	p.mixer.Clear()
	speaker.Unlock()
	speaker.Clear()
	p.initialized = false
}

// SetMuted toggles output without closing the speaker
func (p *CuePlayer) SetMuted(on bool) {
	p.muted.Store(on)
}

// Played returns the number of cues mixed so far
func (p *CuePlayer) Played() int64 {
	return p.played.Load()
}

// Play mixes a cue; the speaker is shared so playerID does not select an output
// Never blocks on playback and never fails the caller
func (p *CuePlayer) Play(playerID string, id host.SoundID) error {
	if p.muted.Load() {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized || !p.admit(id) {
		return nil
	}
	buf := p.cache.get(id)
	if len(buf) == 0 {
		p.log.Debug("unknown cue", "cue", id)
		return nil
	}

	speaker.Lock()
	p.mixer.Add(newBufferStreamer(buf, parameter.AudioGain))
	speaker.Unlock()
	p.played.Add(1)
	return nil
}

// admit drops repeats of the same cue inside MinCueGap; caller holds mu
func (p *CuePlayer) admit(id host.SoundID) bool {
	now := p.now()
	if last, ok := p.last[id]; ok && now.Sub(last) < parameter.MinCueGap {
		return false
	}
	p.last[id] = now
	return true
}

// bufferStreamer plays a mono buffer on both channels
type bufferStreamer struct {
	buf  floatBuffer
	gain float64
	pos  int
}

func newBufferStreamer(buf floatBuffer, gain float64) *bufferStreamer {
	return &bufferStreamer{buf: buf, gain: gain}
}

func (s *bufferStreamer) Stream(samples [][2]float64) (n int, ok bool) {
	if s.pos >= len(s.buf) {
		return 0, false
	}
	for i := range samples {
		if s.pos >= len(s.buf) {
			return i, true
		}
		v := s.buf[s.pos] * s.gain
		samples[i][0] = v
		samples[i][1] = v
		s.pos++
	}
	return len(samples), true
}

func (s *bufferStreamer) Err() error {
	return nil
}
