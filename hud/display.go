package hud

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/lixenwraith/mega-knights/camp"
	"github.com/lixenwraith/mega-knights/host"
	"github.com/lixenwraith/mega-knights/parameter"
)

// ActionBar pushes frames to the player's action bar through the host
type ActionBar struct {
	host *host.Host
}

func NewActionBar(h *host.Host) *ActionBar {
	return &ActionBar{host: h}
}

func (a *ActionBar) Push(v View) error {
	if !a.host.ActionBar(v.Player.ID, Format(v)) {
		return fmt.Errorf("action bar push to %s failed", v.Player.ID)
	}
	return nil
}

// Format renders a frame as a single line
func Format(v View) string {
	day := "Day " + humanize.Comma(int64(v.Day))
	if v.Endless {
		day += " ∞"
	}
	army := fmt.Sprintf("Army %d/%d", v.Army, v.Cap)
	if v.Full {
		army += " full"
	}
	return fmt.Sprintf("%s %s %s %s", day, Meter(v.Fill), army, camp.RankName(v.Tier))
}

// Meter draws fill as a fixed-width bar
func Meter(fill int) string {
	fill = max(0, min(fill, parameter.HUDFillLevels))
	return "[" + strings.Repeat("█", fill) + strings.Repeat("░", parameter.HUDFillLevels-fill) + "]"
}
