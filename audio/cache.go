package audio

import (
	"sync"

	"github.com/lixenwraith/mega-knights/host"
)

// allCues is every cue the campaign plays
var allCues = []host.SoundID{
	host.SoundMilestone,
	host.SoundCampSpawn,
	host.SoundCampClear,
	host.SoundSiegeStart,
	host.SoundWave,
	host.SoundBossPhase,
	host.SoundSiegeVictory,
	host.SoundSiegeDefeat,
}

// cueCache stores pre-generated unity-gain float buffers
type cueCache struct {
	mu    sync.RWMutex
	store map[host.SoundID]floatBuffer
}

func newCueCache() *cueCache {
	return &cueCache{store: make(map[host.SoundID]floatBuffer)}
}

// get returns the cached buffer or generates it on demand
func (c *cueCache) get(id host.SoundID) floatBuffer {
	c.mu.RLock()
	buf, ok := c.store[id]
	c.mu.RUnlock()
	if ok {
		return buf
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Double-check after acquiring write lock
	if buf, ok := c.store[id]; ok {
		return buf
	}

	buf = generateCue(id)
	c.store[id] = buf
	return buf
}

// preload generates every cue so Play never synthesizes on the engine loop
func (c *cueCache) preload() {
	for _, id := range allCues {
		c.get(id)
	}
}
