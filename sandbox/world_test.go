package sandbox

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/mega-knights/event"
	"github.com/lixenwraith/mega-knights/host"
)

var overworld = host.Location{Dimension: "overworld"}

func TestWorldLifecycle(t *testing.T) {
	var got []event.GameEvent
	w := New(func(ev event.GameEvent) { got = append(got, ev) })

	w.Join("steve", "Steve", overworld)
	w.Leave("steve")
	w.Join("steve", "Steve", overworld)
	require.Len(t, got, 3)
	assert.True(t, got[0].Payload.(*event.PlayerPayload).Initial)
	assert.False(t, got[2].Payload.(*event.PlayerPayload).Initial)

	h, err := w.Spawn("mk:enemy_knight", overworld, "steve")
	require.NoError(t, err)
	_, err = w.Spawn("mk:enemy_archer", overworld, "steve")
	require.NoError(t, err)

	n, err := w.CountActors("overworld", "steve")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, w.ApplyBundle(h, "mk:boss_enraged", ""))
	assert.True(t, w.Actors("steve")[0].Bundles["mk:boss_enraged"])

	require.NoError(t, w.Kill(h))
	died := got[len(got)-1].Payload.(*event.ActorDiedPayload)
	assert.Equal(t, "steve", died.OwnerID)
	assert.ErrorIs(t, w.Kill(h), ErrUnknownActor)

	w.Unload("overworld")
	n, _ = w.CountActors("overworld", "steve")
	assert.Equal(t, 0, n)
	assert.Equal(t, 1, w.ActorCount())
}

func TestGrantRequiresOnline(t *testing.T) {
	w := New(nil)
	assert.Error(t, w.Grant("alex", "minecraft:diamond", 1))
	w.Join("alex", "Alex", overworld)
	require.NoError(t, w.Grant("alex", "minecraft:diamond", 1))
	assert.Equal(t, []Grant{{Player: "alex", Item: "minecraft:diamond", Count: 1}}, w.Grants())
}

func TestSkirmishAndFailures(t *testing.T) {
	w := New(nil)
	for i := 0; i < 5; i++ {
		_, _ = w.Spawn("mk:enemy_knight", overworld, "mk:siege")
	}
	_, _ = w.Spawn("mk:boss_siege_lord", overworld, "mk:siege")

	killed := w.Skirmish(rand.New(rand.NewPCG(1, 2)), 10, "mk:boss_siege_lord")
	assert.Equal(t, 5, killed)
	assert.Equal(t, 1, w.ActorCount())

	w.FailSpawns(func(string) error { return errors.New("no space") })
	_, err := w.Spawn("mk:enemy_knight", overworld, "x")
	assert.Error(t, err)
}
