// Package capacity holds the cap-sharing arithmetic every admission, display and
// bookkeeping call site consults
package capacity

import (
	"fmt"
	"math"

	"github.com/lixenwraith/mega-knights/parameter"
)

// Policy converts a per-player bonus and player count into an admission ceiling
type Policy struct {
	Base          int `toml:"base"`
	MaxBonus      int `toml:"max_bonus"`
	GlobalCeiling int `toml:"global_ceiling"`
}

// DefaultPolicy returns the stock army caps
func DefaultPolicy() Policy {
	return Policy{
		Base:          parameter.DefaultArmyBase,
		MaxBonus:      parameter.DefaultArmyMaxBonus,
		GlobalCeiling: parameter.DefaultGlobalCeiling,
	}
}

// Validate rejects policies whose solo cap could exceed the host ceiling
func (p Policy) Validate() error {
	if p.Base < 0 || p.MaxBonus < 0 {
		return fmt.Errorf("capacity: base and max bonus must be non-negative, got %d/%d", p.Base, p.MaxBonus)
	}
	if p.Base+p.MaxBonus > p.GlobalCeiling {
		return fmt.Errorf("capacity: base+max_bonus (%d) exceeds global ceiling (%d)", p.Base+p.MaxBonus, p.GlobalCeiling)
	}
	return nil
}

// Personal returns the cap a player has earned, ignoring other players
func (p Policy) Personal(bonus int) int {
	if bonus < 0 {
		bonus = 0
	}
	return p.Base + min(bonus, p.MaxBonus)
}

// EffectiveCap returns the per-player ceiling after cap sharing
// Sum over all players never exceeds GlobalCeiling; a low-bonus player keeps their personal cap
func (p Policy) EffectiveCap(bonus, playerCount int) int {
	personal := p.Personal(bonus)
	if playerCount <= 1 {
		return personal
	}
	return min(personal, p.GlobalCeiling/playerCount)
}

// CanAdmit reports whether one more actor fits under the player's effective cap
func (p Policy) CanAdmit(current, bonus, playerCount int) bool {
	return current < p.EffectiveCap(bonus, playerCount)
}

// Scale returns the multiplayer spawn factor: 1.0 solo, 0.75 for two, 0.6 for three or more
func Scale(playerCount int) float64 {
	switch {
	case playerCount <= 1:
		return parameter.ScaleSolo
	case playerCount == 2:
		return parameter.ScaleDuo
	default:
		return parameter.ScaleGroup
	}
}

// ScaleCount applies factor to n, rounding half away from zero with a floor of 1
// Zero or negative inputs stay zero so disabled entries remain disabled
func ScaleCount(n int, factor float64) int {
	if n <= 0 || factor <= 0 {
		return 0
	}
	return max(1, int(math.Round(float64(n)*factor)))
}
