package camp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/mega-knights/clock"
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

[[milestones]]
day = 6
title = "Squire"

[camp]
min_day = 3
cooldown_days = 3
max_guards = 10
stale_days = 3
cooldown_capacity = 4

[[camp.tiers]]
name = "Scout Camp"
from_day = 0
to_day = 9
guards = [
    { type = "mk:enemy_knight", count = 3 },
    { type = "mk:enemy_archer", count = 2 },
]
rewards = [{ item = "minecraft:iron_ingot", count = 6 }]

[[camp.tiers]]
name = "Warband"
from_day = 10
to_day = 0
guards = [{ type = "mk:enemy_dark_knight", count = 2 }]
rewards = [{ item = "minecraft:diamond", count = 1 }]

[siege]
day = 30
boss = "mk:boss_siege_lord"

[[siege.waves]]
boss = true
spawns = [{ type = "mk:enemy_knight", count = 1 }]
`

var overworld = host.Location{Dimension: "overworld", X: 100, Y: 64, Z: 100}

type calendar struct {
	st         clock.State
	milestones map[int]bool
}

func (c *calendar) State() clock.State          { return c.st }
func (c *calendar) IsMilestoneDay(day int) bool { return c.milestones[day] }

type siegeFlag struct{ on bool }

func (s *siegeFlag) Active() bool { return s.on }

type fixture struct {
	d       *Director
	world   *sandbox.World
	store   *store.Memory
	sched   *scheduler.Scheduler
	cal     *calendar
	siege   *siegeFlag
	deliver bool
}

func newFixture(t *testing.T, s *store.Memory) *fixture {
	t.Helper()
	content, err := config.ParseContent(testCampaign)
	require.NoError(t, err)

	f := &fixture{
		store:   s,
		cal:     &calendar{st: clock.State{Active: true}, milestones: map[int]bool{6: true}},
		siege:   &siegeFlag{},
		deliver: true,
	}
	f.world = sandbox.New(func(ev event.GameEvent) {
		if f.deliver && f.d != nil {
			f.d.HandleEvent(ev)
		}
	})
	reg := status.NewRegistry()
	f.sched = scheduler.New(f.world, reg, 0)
	f.d, err = NewDirector(context.Background(), s, f.sched, f.world.Host(nil), content, f.cal, f.siege, reg)
	require.NoError(t, err)
	return f
}

// restart replaces the director and scheduler, keeping the world and store
func (f *fixture) restart(t *testing.T) {
	t.Helper()
	content, err := config.ParseContent(testCampaign)
	require.NoError(t, err)
	reg := status.NewRegistry()
	f.sched = scheduler.New(f.world, reg, 0)
	f.d, err = NewDirector(context.Background(), f.store, f.sched, f.world.Host(nil), content, f.cal, f.siege, reg)
	require.NoError(t, err)
}

func (f *fixture) day(d int) {
	f.cal.st.Day = d
	f.d.HandleEvent(event.DayAdvanced(d))
}

func (f *fixture) drain() {
	for f.sched.Active() > 0 {
		f.sched.Step()
	}
}

func (f *fixture) grantsTo(id string) []sandbox.Grant {
	var out []sandbox.Grant
	for _, g := range f.world.Grants() {
		if g.Player == id {
			out = append(out, g)
		}
	}
	return out
}

func TestSpawnsCampOnEligibleDay(t *testing.T) {
	f := newFixture(t, store.NewMemory())
	f.world.Join("steve", "Steve", overworld)

	f.day(3)
	rec, ok := f.d.Active("steve")
	require.True(t, ok)
	assert.False(t, rec.SpawningComplete)
	assert.Equal(t, "Scout Camp", rec.TierName)
	assert.Equal(t, 3, rec.SpawnDay)
	assert.Equal(t, "overworld", rec.Dimension)
	assert.Empty(t, f.world.Actors("steve"), "guards are spawned by the scheduler")

	f.sched.Step()
	assert.Len(t, f.world.Actors("steve"), parameter.DefaultQueueBudget)

	f.drain()
	rec, _ = f.d.Active("steve")
	assert.True(t, rec.SpawningComplete)
	assert.Equal(t, 5, rec.GuardCount)
	assert.Len(t, f.world.Actors("steve"), 5)
	assert.Contains(t, f.world.Sounds(), host.SoundCampSpawn)
}

func TestExclusionsPreventSpawn(t *testing.T) {
	t.Run("too early", func(t *testing.T) {
		f := newFixture(t, store.NewMemory())
		f.world.Join("steve", "Steve", overworld)
		f.day(2)
		_, ok := f.d.Active("steve")
		assert.False(t, ok)
	})
	t.Run("milestone day", func(t *testing.T) {
		f := newFixture(t, store.NewMemory())
		f.world.Join("steve", "Steve", overworld)
		f.day(6)
		_, ok := f.d.Active("steve")
		assert.False(t, ok)
	})
	t.Run("siege active", func(t *testing.T) {
		f := newFixture(t, store.NewMemory())
		f.world.Join("steve", "Steve", overworld)
		f.siege.on = true
		f.day(8)
		_, ok := f.d.Active("steve")
		assert.False(t, ok)
	})
	t.Run("past max day", func(t *testing.T) {
		f := newFixture(t, store.NewMemory())
		f.world.Join("steve", "Steve", overworld)
		f.day(31)
		_, ok := f.d.Active("steve")
		assert.False(t, ok)

		f.cal.st.Endless = true
		f.day(32)
		rec, ok := f.d.Active("steve")
		require.True(t, ok)
		assert.Equal(t, "Warband", rec.TierName)
	})
	t.Run("active camp", func(t *testing.T) {
		f := newFixture(t, store.NewMemory())
		f.world.Join("steve", "Steve", overworld)
		f.day(3)
		f.drain()
		f.day(7)
		rec, _ := f.d.Active("steve")
		assert.Equal(t, 3, rec.SpawnDay)
		assert.Len(t, f.world.Actors("steve"), 5)
	})
}

func TestClearByDeathsResolvesOnce(t *testing.T) {
	f := newFixture(t, store.NewMemory())
	f.world.Join("steve", "Steve", overworld)
	f.day(3)
	f.drain()

	assert.Equal(t, 5, f.world.KillOwned("steve", -1))

	_, ok := f.d.Active("steve")
	assert.False(t, ok, "record removed after clearing")
	assert.Equal(t, []sandbox.Grant{{Player: "steve", Item: "minecraft:iron_ingot", Count: 6}}, f.grantsTo("steve"))

	ctx := context.Background()
	assert.Equal(t, 1, store.Int(ctx, f.store, store.PlayerKey("steve", store.FieldKills), 0))
	assert.Equal(t, BonusPerCamp, store.Int(ctx, f.store, store.PlayerKey("steve", store.FieldBonus), 0))
	assert.Contains(t, f.world.Sounds(), host.SoundCampClear)

	// a late recount finds nothing to resolve
	f.d.Recount()
	assert.Len(t, f.grantsTo("steve"), 1)
}

func TestDeathAndRecountRaceGrantsOnce(t *testing.T) {
	f := newFixture(t, store.NewMemory())
	f.world.Join("steve", "Steve", overworld)
	f.day(3)
	f.drain()

	// guards vanish without death events, the recount notices
	f.deliver = false
	f.world.KillOwned("steve", -1)
	f.d.Recount()
	require.Len(t, f.grantsTo("steve"), 1)

	// the delayed death events then arrive
	for range 5 {
		f.d.OnActorDied("mk:enemy_knight", "steve")
	}
	assert.Len(t, f.grantsTo("steve"), 1)
}

func TestResolveTwiceGrantsOnce(t *testing.T) {
	f := newFixture(t, store.NewMemory())
	f.world.Join("steve", "Steve", overworld)
	f.day(3)
	f.drain()

	f.d.resolve("steve")
	f.d.resolve("steve")
	assert.Len(t, f.grantsTo("steve"), 1)
	assert.Equal(t, 1, store.Int(context.Background(), f.store, store.PlayerKey("steve", store.FieldKills), 0))
}

func TestInterruptedResolveIsFinishedWithoutReward(t *testing.T) {
	s := store.NewMemory()
	f := newFixture(t, s)
	f.world.Join("steve", "Steve", overworld)
	f.day(3)
	f.drain()

	rec, _ := f.d.Active("steve")
	rec.Cleared = true
	require.NoError(t, saveRecord(context.Background(), s, "steve", rec))

	f.d.Recount()
	_, ok := f.d.Active("steve")
	assert.False(t, ok)
	assert.Empty(t, f.grantsTo("steve"))
}

func TestDeathsDuringSpawning(t *testing.T) {
	f := newFixture(t, store.NewMemory())
	f.world.Join("steve", "Steve", overworld)
	f.day(3)

	f.sched.Step()
	assert.Equal(t, 2, f.world.KillOwned("steve", -1))
	rec, ok := f.d.Active("steve")
	require.True(t, ok, "a half-spawned camp is not cleared")
	assert.Equal(t, 0, rec.GuardCount)

	f.drain()
	rec, _ = f.d.Active("steve")
	assert.True(t, rec.SpawningComplete)
	assert.Equal(t, 3, rec.GuardCount)

	f.world.KillOwned("steve", -1)
	_, ok = f.d.Active("steve")
	assert.False(t, ok)
	assert.Len(t, f.grantsTo("steve"), 1)
}

func TestRecountIgnoresOfflineOwner(t *testing.T) {
	f := newFixture(t, store.NewMemory())
	f.world.Join("steve", "Steve", overworld)
	f.day(3)
	f.drain()

	f.deliver = false
	f.world.KillOwned("steve", -1)
	f.world.Leave("steve")
	f.d.Recount()

	_, ok := f.d.Active("steve")
	assert.True(t, ok)
}

func TestStaleExpiry(t *testing.T) {
	f := newFixture(t, store.NewMemory())
	f.world.Join("steve", "Steve", overworld)
	f.day(3)
	f.drain()

	f.world.Leave("steve")
	f.cal.st.Day = 5
	f.d.ExpireStale()
	_, ok := f.d.Active("steve")
	assert.True(t, ok)

	f.cal.st.Day = 6
	f.d.ExpireStale()
	_, ok = f.d.Active("steve")
	assert.False(t, ok)
	assert.Len(t, f.world.Actors("steve"), 5, "removal is queued, not immediate")

	f.drain()
	assert.Empty(t, f.world.Actors("steve"))
	assert.Empty(t, f.world.Grants())
}

func TestCooldownSurvivesRestart(t *testing.T) {
	s := store.NewMemory()
	f := newFixture(t, s)
	f.world.Join("steve", "Steve", overworld)
	f.day(3)
	f.drain()
	f.world.KillOwned("steve", -1)

	g := newFixture(t, s)
	g.world.Join("steve", "Steve", overworld)
	g.day(5)
	_, ok := g.d.Active("steve")
	assert.False(t, ok, "cooldown read back from the store")

	g.day(7)
	_, ok = g.d.Active("steve")
	assert.True(t, ok)
}

func TestMultiplayerScaling(t *testing.T) {
	f := newFixture(t, store.NewMemory())
	for _, id := range []string{"steve", "alex", "sam"} {
		f.world.Join(id, id, overworld)
	}
	f.day(3)
	f.drain()
	for _, id := range []string{"steve", "alex", "sam"} {
		rec, ok := f.d.Active(id)
		require.True(t, ok)
		assert.Equal(t, 3, rec.GuardCount, id)
	}
}

func TestInitialJoinAdvice(t *testing.T) {
	f := newFixture(t, store.NewMemory())
	f.cal.st.Day = 1
	f.world.Join("steve", "Steve", overworld)

	msgs := f.world.Messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "day 3")

	f.world.Leave("steve")
	f.world.Join("steve", "Steve", overworld)
	assert.Len(t, f.world.Messages(), 1, "returning players are not advised again")
}

func TestAmbushUsesOwnTag(t *testing.T) {
	f := newFixture(t, store.NewMemory())
	f.world.Join("steve", "Steve", overworld)
	f.world.Join("alex", "Alex", overworld)

	f.d.Ambush(config.Milestone{Day: 10, Ambush: []config.Spawn{
		{Type: "mk:enemy_knight", Count: 2},
		{Type: "mk:enemy_archer", Count: 1},
	}})
	f.drain()

	// duo scale 0.75: knight round(1.5)=2, archer max(1, round(0.75))=1
	assert.Len(t, f.world.Actors(parameter.AmbushOwnerPrefix+"steve"), 3)
	assert.Len(t, f.world.Actors(parameter.AmbushOwnerPrefix+"alex"), 3)
	assert.Empty(t, f.world.Actors("steve"))
}

func TestRecountLeavesLiveSpawningAlone(t *testing.T) {
	f := newFixture(t, store.NewMemory())
	f.world.Join("steve", "Steve", overworld)
	f.day(3)
	f.sched.Step()

	f.d.Recount()
	rec, ok := f.d.Active("steve")
	require.True(t, ok)
	assert.False(t, rec.SpawningComplete)
}

func TestRestartMidSpawnCompletesCamp(t *testing.T) {
	f := newFixture(t, store.NewMemory())
	f.world.Join("steve", "Steve", overworld)
	f.day(3)
	f.sched.Step()
	rec, _ := f.d.Active("steve")
	require.False(t, rec.SpawningComplete)
	spawned := len(f.world.Actors("steve"))
	require.Positive(t, spawned)
	require.Less(t, spawned, 5)

	f.restart(t)
	f.d.Recount()
	rec, ok := f.d.Active("steve")
	require.True(t, ok)
	assert.True(t, rec.SpawningComplete)
	assert.Equal(t, spawned, rec.GuardCount)

	f.world.KillOwned("steve", -1)
	_, ok = f.d.Active("steve")
	assert.False(t, ok, "cleared with the guards that made it")
	assert.Len(t, f.grantsTo("steve"), 1)
}

func TestRestartBeforeAnyGuardDropsCamp(t *testing.T) {
	f := newFixture(t, store.NewMemory())
	f.world.Join("steve", "Steve", overworld)
	f.day(3)
	_, ok := f.d.Active("steve")
	require.True(t, ok)

	f.restart(t)
	f.d.Recount()
	_, ok = f.d.Active("steve")
	assert.False(t, ok)
	assert.Empty(t, f.world.Grants())
}

func TestOrphanWaitsForOwner(t *testing.T) {
	f := newFixture(t, store.NewMemory())
	f.world.Join("steve", "Steve", overworld)
	f.day(3)
	f.sched.Step()
	f.world.Leave("steve")

	f.restart(t)
	f.d.Recount()
	rec, ok := f.d.Active("steve")
	require.True(t, ok)
	assert.False(t, rec.SpawningComplete)

	f.world.Join("steve", "Steve", overworld)
	f.d.Recount()
	rec, _ = f.d.Active("steve")
	assert.True(t, rec.SpawningComplete)
}

func TestNonGuardDeathIgnored(t *testing.T) {
	f := newFixture(t, store.NewMemory())
	f.world.Join("steve", "Steve", overworld)
	f.day(3)
	f.drain()

	pet, err := f.world.Host(nil).Spawn("minecraft:wolf", overworld, "steve")
	require.NoError(t, err)
	require.NoError(t, f.world.Kill(pet))
	rec, _ := f.d.Active("steve")
	assert.Equal(t, 5, rec.GuardCount)

	f.d.OnActorDied("mk:enemy_archer", "steve")
	rec, _ = f.d.Active("steve")
	assert.Equal(t, 4, rec.GuardCount)
}

func TestResetClearsCampsAndCooldowns(t *testing.T) {
	f := newFixture(t, store.NewMemory())
	f.world.Join("steve", "Steve", overworld)
	f.world.Join("alex", "Alex", overworld)
	f.day(3)
	f.drain()
	f.world.Leave("alex")
	require.NoError(t, store.Put(context.Background(), f.store, store.PlayerKey("steve", store.FieldKills), 4))

	require.NoError(t, f.d.Reset())
	_, ok := f.d.Active("steve")
	assert.False(t, ok)
	_, ok = f.d.Active("alex")
	assert.False(t, ok)
	for _, field := range []string{store.FieldLastCamp, store.FieldLastSeen} {
		_, err := f.store.Get(context.Background(), store.PlayerKey("alex", field))
		assert.ErrorIs(t, err, store.ErrNotFound, field)
	}
	assert.Equal(t, 4, store.Int(context.Background(), f.store, store.PlayerKey("steve", store.FieldKills), 0))

	f.drain()
	assert.Empty(t, f.world.Actors("steve"))

	f.day(4)
	_, ok = f.d.Active("steve")
	assert.True(t, ok, "cooldown forgotten")
}
