package camp

import (
	"github.com/lixenwraith/mega-knights/capacity"
	"github.com/lixenwraith/mega-knights/config"
)

// Guard is a sized roster entry
type Guard struct {
	Type  string
	Count int
}

// Size turns base guard counts into a roster
// Each entry is scaled by its weight and the multiplayer factor with a floor of 1,
// then the total is capped at maxGuards by trimming the last listed types first.
// A roster that would be empty becomes one guard of the first listed type
func Size(base []config.Spawn, factor float64, maxGuards int) []Guard {
	if len(base) == 0 {
		return nil
	}

	counts := make([]int, len(base))
	total := 0
	for i, s := range base {
		w := s.Weight
		if w == 0 {
			w = 1
		}
		counts[i] = capacity.ScaleCount(s.Count, w*factor)
		total += counts[i]
	}

	for i := len(counts) - 1; i >= 0 && total > maxGuards; i-- {
		cut := min(counts[i], total-maxGuards)
		counts[i] -= cut
		total -= cut
	}

	if total == 0 {
		return []Guard{{Type: base[0].Type, Count: 1}}
	}

	out := make([]Guard, 0, len(base))
	for i, s := range base {
		if counts[i] > 0 {
			out = append(out, Guard{Type: s.Type, Count: counts[i]})
		}
	}
	return out
}

// Total sums a roster
func Total(guards []Guard) int {
	n := 0
	for _, g := range guards {
		n += g.Count
	}
	return n
}
