package siege

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/mega-knights/config"
	"github.com/lixenwraith/mega-knights/event"
	"github.com/lixenwraith/mega-knights/host"
	"github.com/lixenwraith/mega-knights/parameter"
	"github.com/lixenwraith/mega-knights/sandbox"
	"github.com/lixenwraith/mega-knights/scheduler"
	"github.com/lixenwraith/mega-knights/status"
	"github.com/lixenwraith/mega-knights/store"
)

const testCampaign = `
[clock]
ticks_per_day = 100
max_day = 30

[[camp.tiers]]
name = "all"
from_day = 0
to_day = 0
guards = [{ type = "mk:enemy_knight", count = 1 }]

[siege]
day = 30
max_active_mobs = 3
max_per_player = 12
wave_interval_ticks = 10
max_duration_ticks = 100
boss = "mk:boss_siege_lord"
rewards = [{ item = "mk:mega_knight_crest", count = 1 }]

[[siege.phases]]
threshold = 0.66
add = "mk:boss_enraged"
remove = "mk:boss_calm"
title = "Enraged"

[[siege.phases]]
threshold = 0.33
add = "mk:boss_desperate"
remove = "mk:boss_enraged"
title = "Desperate"

[[siege.waves]]
spawns = [{ type = "mk:enemy_knight", count = 4 }]

[[siege.waves]]
spawns = [{ type = "mk:enemy_archer", count = 2 }]

[[siege.waves]]
boss = true
spawns = [{ type = "mk:enemy_knight", count = 1 }]
`

var (
	overworld = host.Location{Dimension: "overworld", X: 0, Y: 64, Z: 0}
	nether    = host.Location{Dimension: "nether", X: 8, Y: 40, Z: 8}
)

type campaign struct {
	day     int
	endless bool
}

func (c *campaign) Day() int            { return c.day }
func (c *campaign) SetEndless(on bool) { c.endless = on }

type fixture struct {
	d        *Director
	world    *sandbox.World
	store    *store.Memory
	sched    *scheduler.Scheduler
	campaign *campaign
}

func newFixture(t *testing.T, s *store.Memory) *fixture {
	t.Helper()
	content, err := config.ParseContent(testCampaign)
	require.NoError(t, err)

	f := &fixture{store: s, campaign: &campaign{}}
	f.world = sandbox.New(func(ev event.GameEvent) {
		if f.d != nil {
			f.d.HandleEvent(ev)
		}
	})
	reg := status.NewRegistry()
	f.sched = scheduler.New(f.world, reg, 0)
	f.d = NewDirector(context.Background(), s, f.sched, f.world.Host(nil), content, f.campaign, reg)
	return f
}

func (f *fixture) drain() {
	for i := 0; i < 100 && f.sched.Active() > 0; i++ {
		f.sched.Step()
	}
}

func (f *fixture) upkeep(n int) {
	for i := 0; i < n; i++ {
		f.d.Upkeep()
	}
}

func (f *fixture) mobs() []sandbox.Actor {
	var out []sandbox.Actor
	for _, a := range f.world.Actors(parameter.SiegeOwner) {
		if a.Type != "mk:boss_siege_lord" {
			out = append(out, a)
		}
	}
	return out
}

func TestStartFiresFirstWave(t *testing.T) {
	f := newFixture(t, store.NewMemory())
	f.world.Join("steve", "Steve", overworld)

	require.True(t, f.d.Start(overworld))
	st := f.d.State()
	assert.True(t, st.Active)
	assert.Equal(t, 1, st.WaveIndex)
	assert.Equal(t, "overworld", st.Dimension)
	_, err := uuid.Parse(st.RunID)
	assert.NoError(t, err)
	assert.Equal(t, 4, f.sched.Pending())

	assert.False(t, f.d.Start(overworld), "already running")
}

func TestDayChangeStartsSiege(t *testing.T) {
	f := newFixture(t, store.NewMemory())
	f.world.Join("steve", "Steve", overworld)

	f.d.HandleEvent(event.DayAdvanced(29))
	assert.False(t, f.d.Active())
	f.d.HandleEvent(event.DayAdvanced(30))
	assert.True(t, f.d.Active())
}

func TestWavesFireOnInterval(t *testing.T) {
	f := newFixture(t, store.NewMemory())
	f.world.Join("steve", "Steve", overworld)
	f.d.Start(overworld)

	f.upkeep(9)
	assert.Equal(t, 1, f.d.State().WaveIndex)
	f.upkeep(1)
	assert.Equal(t, 2, f.d.State().WaveIndex, "second wave fires regardless of survivors")
	f.upkeep(10)
	assert.Equal(t, 3, f.d.State().WaveIndex)
	f.upkeep(30)
	assert.Equal(t, 3, f.d.State().WaveIndex)
}

func TestMobCeilingPausesAndResumes(t *testing.T) {
	f := newFixture(t, store.NewMemory())
	f.world.Join("steve", "Steve", overworld)
	f.d.Start(overworld)

	f.drain()
	assert.Len(t, f.mobs(), 3)
	assert.Equal(t, 3, f.d.State().MobCount)
	assert.Equal(t, 1, f.sched.Pending(), "fourth knight waits for room")

	f.world.KillOwned(parameter.SiegeOwner, 1)
	assert.Equal(t, 2, f.d.State().MobCount)

	f.sched.Step()
	assert.Equal(t, 3, f.d.State().MobCount)
	assert.Equal(t, 0, f.sched.Pending())
	assert.LessOrEqual(t, f.d.State().MobCount, 3)
}

func TestWaveScalingCapsPerPlayer(t *testing.T) {
	content, err := config.ParseContent(testCampaign)
	require.NoError(t, err)
	content.Siege.MaxPerPlayer = 1
	content.Siege.MaxActiveMobs = 50

	world := sandbox.New(nil)
	world.Join("steve", "Steve", overworld)
	world.Join("alex", "Alex", overworld)
	reg := status.NewRegistry()
	sched := scheduler.New(world, reg, 0)
	d := NewDirector(context.Background(), store.NewMemory(), sched, world.Host(nil), content, &campaign{}, reg)

	d.Start(overworld)
	// 4 knights at duo scale is 3, capped to one per player
	assert.Equal(t, 2, sched.Pending())
}

func bossFixture(t *testing.T) *fixture {
	t.Helper()
	f := newFixture(t, store.NewMemory())
	f.world.Join("steve", "Steve", overworld)
	f.d.Start(overworld)
	f.upkeep(20)
	require.Equal(t, 3, f.d.State().WaveIndex)
	f.drain()
	require.NotEmpty(t, f.d.State().Boss, "boss spawns even while the mob ceiling holds")
	return f
}

func TestBossPhasesMonotonic(t *testing.T) {
	f := bossFixture(t)
	boss := f.d.State().Boss
	bundles := func() map[string]bool {
		for _, a := range f.world.Actors(parameter.SiegeOwner) {
			if a.Handle == boss {
				return a.Bundles
			}
		}
		return nil
	}

	f.world.BossHealth(0.9)
	assert.Equal(t, 0, f.d.State().Phase)

	f.world.BossHealth(0.5)
	assert.Equal(t, 1, f.d.State().Phase)
	assert.True(t, bundles()["mk:boss_enraged"])

	for _, hp := range []float64{0.7, 0.65, 0.8, 0.6} {
		f.world.BossHealth(hp)
		assert.Equal(t, 1, f.d.State().Phase, "hovering near the threshold never re-fires or reverses")
	}

	f.world.BossHealth(0.2)
	assert.Equal(t, 2, f.d.State().Phase)
	assert.False(t, bundles()["mk:boss_enraged"])
	assert.True(t, bundles()["mk:boss_desperate"])

	f.world.BossHealth(0.9)
	assert.Equal(t, 2, f.d.State().Phase)
}

func TestBossPhaseSkipAppliesInOrder(t *testing.T) {
	f := bossFixture(t)
	f.world.BossHealth(0.1)

	assert.Equal(t, 2, f.d.State().Phase)
	var titles []string
	for _, m := range f.world.Messages() {
		if m.Kind == "title" && (m.Text == "Enraged | Phase 1" || m.Text == "Desperate | Phase 2") {
			titles = append(titles, m.Text)
		}
	}
	assert.Equal(t, []string{"Enraged | Phase 1", "Desperate | Phase 2"}, titles)
}

func TestVictory(t *testing.T) {
	f := bossFixture(t)
	f.upkeep(1)
	require.NotEmpty(t, f.mobs(), "some wave mobs still alive")

	boss := f.d.State().Boss
	require.NoError(t, f.world.Kill(boss))

	st := f.d.State()
	assert.False(t, st.Active)
	assert.Equal(t, OutcomeVictory, st.Outcome)
	assert.Equal(t, 0, st.MobCount, "live count resets before cleanup drains")
	assert.NotEmpty(t, f.mobs(), "cleanup is cooperative")
	assert.True(t, f.campaign.endless)
	assert.Contains(t, f.world.Grants(), sandbox.Grant{Player: "steve", Item: "mk:mega_knight_crest", Count: 1})
	assert.Contains(t, f.world.Sounds(), host.SoundSiegeVictory)

	f.drain()
	assert.Empty(t, f.world.Actors(parameter.SiegeOwner))
	assert.False(t, f.d.Start(overworld), "a won siege does not restart")
}

func TestDefeatWhenDeserted(t *testing.T) {
	f := newFixture(t, store.NewMemory())
	f.world.Join("steve", "Steve", nether)
	f.d.Start(nether)
	f.drain()
	require.Len(t, f.mobs(), 3)

	f.world.Leave("steve")
	f.d.Upkeep()
	st := f.d.State()
	assert.False(t, st.Active)
	assert.Equal(t, OutcomeDeserted, st.Outcome)

	f.drain()
	assert.Empty(t, f.world.Actors(parameter.SiegeOwner), "cleanup uses the captured dimension")

	f.world.Join("steve", "Steve", overworld)
	assert.True(t, f.d.Start(overworld), "a lost siege may be retried")
}

func TestDefeatOnTimeout(t *testing.T) {
	f := newFixture(t, store.NewMemory())
	f.world.Join("steve", "Steve", overworld)
	f.d.Start(overworld)

	f.upkeep(99)
	assert.True(t, f.d.Active())
	f.upkeep(1)
	assert.Equal(t, OutcomeTimeout, f.d.State().Outcome)
	assert.Contains(t, f.world.Sounds(), host.SoundSiegeDefeat)
}

func TestStaleSpawnsAfterEndAreNoops(t *testing.T) {
	f := newFixture(t, store.NewMemory())
	f.world.Join("steve", "Steve", overworld)
	f.d.Start(overworld)
	f.d.Upkeep()

	f.world.Leave("steve")
	f.d.Upkeep()
	f.world.Join("steve", "Steve", overworld)
	f.drain()
	assert.Empty(t, f.world.Actors(parameter.SiegeOwner))
}

func TestResumeAfterRestart(t *testing.T) {
	s := store.NewMemory()
	f := newFixture(t, s)
	f.world.Join("steve", "Steve", overworld)
	f.d.Start(overworld)
	f.drain()
	before := f.d.State()

	g := newFixture(t, s)
	after := g.d.State()
	assert.True(t, after.Active)
	assert.Equal(t, before.RunID, after.RunID)
	assert.Equal(t, before.WaveIndex, after.WaveIndex)
	assert.Equal(t, before.MobCount, after.MobCount)
	assert.Equal(t, before.Origin, after.Origin)
}

func TestDueSiegeStartsWhenPlayerJoins(t *testing.T) {
	f := newFixture(t, store.NewMemory())
	f.campaign.day = 30

	f.d.HandleEvent(event.DayAdvanced(30))
	f.upkeep(5)
	assert.False(t, f.d.Active(), "nobody online")

	f.world.Join("steve", "Steve", nether)
	f.d.Upkeep()
	st := f.d.State()
	assert.True(t, st.Active)
	assert.Equal(t, "nether", st.Dimension)
}

func TestNoStartBeforeSiegeDay(t *testing.T) {
	f := newFixture(t, store.NewMemory())
	f.campaign.day = 29
	f.world.Join("steve", "Steve", overworld)

	f.upkeep(5)
	assert.False(t, f.d.Active())
}

func TestTimeoutRetriesAfterDelay(t *testing.T) {
	f := newFixture(t, store.NewMemory())
	f.campaign.day = 30
	f.world.Join("steve", "Steve", overworld)
	f.d.Start(overworld)
	first := f.d.State().RunID

	f.upkeep(100)
	require.Equal(t, OutcomeTimeout, f.d.State().Outcome)

	f.upkeep(parameter.SiegeRetrySteps)
	assert.False(t, f.d.Active())
	f.d.Upkeep()
	st := f.d.State()
	assert.True(t, st.Active)
	assert.NotEqual(t, first, st.RunID)
}

func TestRetryDelaySurvivesRestart(t *testing.T) {
	s := store.NewMemory()
	f := newFixture(t, s)
	f.campaign.day = 30
	f.world.Join("steve", "Steve", overworld)
	f.d.Start(overworld)
	f.upkeep(100)
	f.upkeep(parameter.TickPersistEvery)

	g := newFixture(t, s)
	g.campaign.day = 30
	g.world.Join("steve", "Steve", overworld)
	remaining := parameter.SiegeRetrySteps - parameter.TickPersistEvery
	require.Equal(t, remaining, g.d.State().RetryIn)

	g.upkeep(remaining)
	assert.False(t, g.d.Active())
	g.d.Upkeep()
	assert.True(t, g.d.Active())
}

func TestDesertedSiegeRestartsOnReturn(t *testing.T) {
	f := newFixture(t, store.NewMemory())
	f.campaign.day = 30
	f.world.Join("steve", "Steve", nether)
	f.d.Start(nether)

	f.world.Leave("steve")
	f.upkeep(3)
	require.Equal(t, OutcomeDeserted, f.d.State().Outcome)
	assert.False(t, f.d.Active())

	f.world.Join("steve", "Steve", overworld)
	f.d.Upkeep()
	st := f.d.State()
	assert.True(t, st.Active)
	assert.Equal(t, "overworld", st.Dimension)
}

func TestVictoryIsNeverRetried(t *testing.T) {
	f := bossFixture(t)
	f.campaign.day = 30
	require.NoError(t, f.world.Kill(f.d.State().Boss))

	f.upkeep(parameter.SiegeRetrySteps + 10)
	assert.False(t, f.d.Active())
	assert.Equal(t, OutcomeVictory, f.d.State().Outcome)
}

func TestRecountCorrectsLostDeaths(t *testing.T) {
	f := newFixture(t, store.NewMemory())
	f.world.Join("steve", "Steve", overworld)
	f.d.Start(overworld)
	f.drain()
	require.Equal(t, 3, f.d.State().MobCount)

	// Removed without an actor-died event
	require.NoError(t, f.world.Remove(f.mobs()[0].Handle))
	assert.Equal(t, 3, f.d.State().MobCount)

	f.d.Recount()
	assert.Equal(t, 2, f.d.State().MobCount)

	f.sched.Step()
	assert.Equal(t, 0, f.sched.Pending(), "held knight spawns into the freed slot")
	assert.Equal(t, 3, f.d.State().MobCount)
}

func TestRecountExcludesBoss(t *testing.T) {
	f := bossFixture(t)
	f.d.Recount()
	assert.Equal(t, len(f.mobs()), f.d.State().MobCount)
}

func TestRecountSkipsUnwatchedDimension(t *testing.T) {
	f := newFixture(t, store.NewMemory())
	f.world.Join("steve", "Steve", nether)
	f.d.Start(nether)
	f.drain()
	require.Equal(t, 3, f.d.State().MobCount)

	f.world.Join("steve", "Steve", overworld)
	f.d.Recount()
	assert.Equal(t, 3, f.d.State().MobCount)
}

func TestResetForgetsVictory(t *testing.T) {
	f := bossFixture(t)
	require.NoError(t, f.world.Kill(f.d.State().Boss))
	f.drain()

	require.NoError(t, f.d.Reset())
	assert.Equal(t, State{}, f.d.State())
	_, err := f.store.Get(context.Background(), store.KeySiege)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.True(t, f.d.Start(overworld))
}

func TestResetRemovesLiveSiege(t *testing.T) {
	f := newFixture(t, store.NewMemory())
	f.world.Join("steve", "Steve", overworld)
	f.d.Start(overworld)
	f.drain()
	require.NotEmpty(t, f.world.Actors(parameter.SiegeOwner))

	require.NoError(t, f.d.Reset())
	assert.False(t, f.d.Active())
	f.drain()
	assert.Empty(t, f.world.Actors(parameter.SiegeOwner))
}
