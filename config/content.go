package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/lixenwraith/mega-knights/asset"
	"github.com/lixenwraith/mega-knights/capacity"
	"github.com/lixenwraith/mega-knights/parameter"
)

// ErrInvalidContent wraps every campaign content validation failure
var ErrInvalidContent = errors.New("invalid campaign content")

// Milestone effect kinds
const (
	EffectNone   = "none"
	EffectReward = "reward"
	EffectAmbush = "ambush"
	EffectSiege  = "siege"
)

// Reward is an item grant
type Reward struct {
	Item  string `toml:"item"`
	Count int    `toml:"count"`
}

// Spawn is a base actor count; Weight scales it per faction, 0 means 1
type Spawn struct {
	Type   string  `toml:"type"`
	Count  int     `toml:"count"`
	Weight float64 `toml:"weight"`
}

// Milestone is a one-time scripted event bound to a campaign day
type Milestone struct {
	Day     int      `toml:"day"`
	Title   string   `toml:"title"`
	Message string   `toml:"message"`
	Effect  string   `toml:"effect"`
	Rewards []Reward `toml:"rewards"`
	Ambush  []Spawn  `toml:"ambush"`
}

// Clock holds day length and campaign bounds
type Clock struct {
	TicksPerDay int `toml:"ticks_per_day"`
	TickStep    int `toml:"tick_step"`
	MaxDay      int `toml:"max_day"`
}

// Rule is a named camp exclusion predicate in expr syntax
type Rule struct {
	Name string `toml:"name"`
	When string `toml:"when"`
}

// Tier is a camp difficulty band covering [FromDay, ToDay]; ToDay 0 is unbounded
type Tier struct {
	Name    string   `toml:"name"`
	FromDay int      `toml:"from_day"`
	ToDay   int      `toml:"to_day"`
	Guards  []Spawn  `toml:"guards"`
	Rewards []Reward `toml:"rewards"`
}

// Camp holds camp director tuning, tiers and extra exclusion rules
type Camp struct {
	MinDay           int    `toml:"min_day"`
	CooldownDays     int    `toml:"cooldown_days"`
	MaxGuards        int    `toml:"max_guards"`
	StaleDays        int    `toml:"stale_days"`
	CooldownCapacity int    `toml:"cooldown_capacity"`
	Rules            []Rule `toml:"rules"`
	Tiers            []Tier `toml:"tiers"`
}

// Phase is a boss phase entered when health drops to Threshold or below
type Phase struct {
	Threshold float64 `toml:"threshold"`
	Add       string  `toml:"add"`
	Remove    string  `toml:"remove"`
	Title     string  `toml:"title"`
}

// Wave is one siege wave; Boss marks the wave that also spawns the boss
type Wave struct {
	Spawns []Spawn `toml:"spawns"`
	Boss   bool    `toml:"boss"`
}

// Siege holds the final siege script
type Siege struct {
	Day              int      `toml:"day"`
	MaxActiveMobs    int      `toml:"max_active_mobs"`
	MaxPerPlayer     int      `toml:"max_per_player"`
	WaveIntervalTick int      `toml:"wave_interval_ticks"`
	MaxDurationTicks int      `toml:"max_duration_ticks"`
	Boss             string   `toml:"boss"`
	Rewards          []Reward `toml:"rewards"`
	Phases           []Phase  `toml:"phases"`
	Waves            []Wave   `toml:"waves"`
}

// Content is the full campaign script
type Content struct {
	Clock      Clock           `toml:"clock"`
	Capacity   capacity.Policy `toml:"capacity"`
	Milestones []Milestone     `toml:"milestones"`
	Camp       Camp            `toml:"camp"`
	Siege      Siege           `toml:"siege"`
}

// DefaultContent decodes the embedded campaign
func DefaultContent() (*Content, error) {
	return ParseContent(asset.DefaultCampaign)
}

// LoadContent reads a TOML campaign file; an empty path yields the embedded default
func LoadContent(path string) (*Content, error) {
	if path == "" {
		return DefaultContent()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read content %s: %w", path, err)
	}
	return ParseContent(string(data))
}

// ParseContent decodes, defaults and validates a TOML campaign
func ParseContent(src string) (*Content, error) {
	c := &Content{
		Clock: Clock{
			TicksPerDay: parameter.DefaultTicksPerDay,
			TickStep:    parameter.DefaultTickStep,
			MaxDay:      parameter.DefaultMaxDay,
		},
		Capacity: capacity.DefaultPolicy(),
		Camp: Camp{
			MinDay:           parameter.DefaultCampMinDay,
			CooldownDays:     parameter.DefaultCampCooldownDays,
			MaxGuards:        parameter.DefaultCampMaxGuards,
			StaleDays:        parameter.DefaultCampStaleDays,
			CooldownCapacity: parameter.DefaultCooldownCapacity,
		},
		Siege: Siege{
			Day:              parameter.DefaultMaxDay,
			MaxActiveMobs:    parameter.DefaultMaxActiveMobs,
			MaxPerPlayer:     parameter.DefaultSiegeMaxPerPlayer,
			WaveIntervalTick: parameter.DefaultWaveIntervalTicks,
			MaxDurationTicks: parameter.DefaultSiegeMaxDurationTicks,
		},
	}

	md, err := toml.Decode(src, c)
	if err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrInvalidContent, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%w: unknown keys %s", ErrInvalidContent, strings.Join(keys, ", "))
	}

	for i := range c.Milestones {
		if c.Milestones[i].Effect == "" {
			c.Milestones[i].Effect = EffectNone
		}
	}
	slices.SortFunc(c.Milestones, func(a, b Milestone) int { return a.Day - b.Day })
	slices.SortFunc(c.Camp.Tiers, func(a, b Tier) int { return a.FromDay - b.FromDay })
	slices.SortFunc(c.Siege.Phases, func(a, b Phase) int {
		switch {
		case a.Threshold > b.Threshold:
			return -1
		case a.Threshold < b.Threshold:
			return 1
		}
		return 0
	})

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidContent, fmt.Sprintf(format, args...))
}

// Validate checks cross-field invariants; tier and phase slices must already be sorted
func (c *Content) Validate() error {
	if c.Clock.TicksPerDay <= 0 || c.Clock.TickStep <= 0 || c.Clock.TickStep > c.Clock.TicksPerDay {
		return invalid("clock ticks_per_day %d / tick_step %d", c.Clock.TicksPerDay, c.Clock.TickStep)
	}
	if c.Clock.MaxDay <= 0 {
		return invalid("clock max_day must be positive, got %d", c.Clock.MaxDay)
	}
	if err := c.Capacity.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidContent, err)
	}

	seen := make(map[int]bool, len(c.Milestones))
	for _, m := range c.Milestones {
		if seen[m.Day] {
			return invalid("duplicate milestone day %d", m.Day)
		}
		seen[m.Day] = true
		if m.Day <= 0 || m.Day > c.Clock.MaxDay {
			return invalid("milestone day %d outside 1..%d", m.Day, c.Clock.MaxDay)
		}
		switch m.Effect {
		case EffectNone, EffectSiege:
		case EffectReward:
			if len(m.Rewards) == 0 {
				return invalid("milestone day %d: reward effect without rewards", m.Day)
			}
		case EffectAmbush:
			if len(m.Ambush) == 0 {
				return invalid("milestone day %d: ambush effect without spawns", m.Day)
			}
		default:
			return invalid("milestone day %d: unknown effect %q", m.Day, m.Effect)
		}
	}

	if err := c.validateCamp(); err != nil {
		return err
	}
	return c.validateSiege()
}

func (c *Content) validateCamp() error {
	cp := c.Camp
	if cp.MinDay < 0 || cp.CooldownDays < 0 || cp.StaleDays <= 0 {
		return invalid("camp min_day/cooldown_days/stale_days %d/%d/%d", cp.MinDay, cp.CooldownDays, cp.StaleDays)
	}
	if cp.MaxGuards <= 0 || cp.CooldownCapacity <= 0 {
		return invalid("camp max_guards and cooldown_capacity must be positive")
	}
	for _, r := range cp.Rules {
		if r.Name == "" || r.When == "" {
			return invalid("camp rule needs name and when")
		}
	}
	if len(cp.Tiers) == 0 {
		return invalid("camp needs at least one tier")
	}
	if cp.Tiers[0].FromDay > cp.MinDay {
		return invalid("first tier starts at day %d, after camp min_day %d", cp.Tiers[0].FromDay, cp.MinDay)
	}
	for i, t := range cp.Tiers {
		if len(t.Guards) == 0 {
			return invalid("tier %q has no guards", t.Name)
		}
		for _, g := range t.Guards {
			if g.Type == "" || g.Count < 0 || g.Weight < 0 {
				return invalid("tier %q has an invalid guard entry", t.Name)
			}
		}
		last := i == len(cp.Tiers)-1
		if t.ToDay == 0 {
			if !last {
				return invalid("tier %q is unbounded but not last", t.Name)
			}
			continue
		}
		if t.ToDay < t.FromDay {
			return invalid("tier %q ends before it starts", t.Name)
		}
		if last {
			if t.ToDay < c.Clock.MaxDay {
				return invalid("last tier %q ends at day %d, before max_day %d", t.Name, t.ToDay, c.Clock.MaxDay)
			}
			continue
		}
		next := cp.Tiers[i+1].FromDay
		switch {
		case next <= t.ToDay:
			return invalid("tiers %q and %q overlap", t.Name, cp.Tiers[i+1].Name)
		case next > t.ToDay+1:
			return invalid("gap between tiers %q and %q", t.Name, cp.Tiers[i+1].Name)
		}
	}
	return nil
}

func (c *Content) validateSiege() error {
	s := c.Siege
	if s.Day <= 0 || s.Day > c.Clock.MaxDay {
		return invalid("siege day %d outside 1..%d", s.Day, c.Clock.MaxDay)
	}
	if s.MaxActiveMobs <= 0 || s.MaxPerPlayer <= 0 || s.WaveIntervalTick <= 0 || s.MaxDurationTicks <= 0 {
		return invalid("siege limits must be positive")
	}
	if s.Boss == "" {
		return invalid("siege boss type is empty")
	}
	if len(s.Waves) == 0 {
		return invalid("siege needs at least one wave")
	}
	bossWaves := 0
	for _, w := range s.Waves {
		if w.Boss {
			bossWaves++
		}
	}
	if bossWaves != 1 {
		return invalid("siege needs exactly one boss wave, got %d", bossWaves)
	}
	prev := 1.0
	for _, p := range s.Phases {
		if p.Threshold <= 0 || p.Threshold >= prev {
			return invalid("boss phase thresholds must be distinct and inside (0,1)")
		}
		prev = p.Threshold
	}
	return nil
}

// TierFor returns the tier covering day; beyond a bounded last tier the last tier applies
func (cp *Camp) TierFor(day int) (int, bool) {
	for i, t := range cp.Tiers {
		if day >= t.FromDay && (t.ToDay == 0 || day <= t.ToDay) {
			return i, true
		}
	}
	if n := len(cp.Tiers); n > 0 && day > cp.Tiers[n-1].FromDay {
		return n - 1, true
	}
	return 0, false
}

// MilestoneByDay indexes milestones for lookup
func (c *Content) MilestoneByDay() map[int]Milestone {
	out := make(map[int]Milestone, len(c.Milestones))
	for _, m := range c.Milestones {
		out[m.Day] = m
	}
	return out
}
