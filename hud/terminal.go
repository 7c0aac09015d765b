package hud

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/gdamore/tcell/v2"

	"github.com/lixenwraith/mega-knights/camp"
	"github.com/lixenwraith/mega-knights/parameter"
	"github.com/lixenwraith/mega-knights/status"
)

var (
	styleDefault = tcell.StyleDefault.Background(tcell.NewRGBColor(26, 27, 38))
	styleLabel   = styleDefault.Foreground(tcell.NewRGBColor(122, 162, 247))
	styleText    = styleDefault.Foreground(tcell.NewRGBColor(192, 202, 245))
	styleFull    = styleDefault.Foreground(tcell.NewRGBColor(224, 175, 104))
	styleMetric  = styleDefault.Foreground(tcell.NewRGBColor(86, 95, 137))
	styleEmpty   = styleDefault.Foreground(tcell.NewRGBColor(0, 0, 0))
)

// TerminalDisplay draws the operator console: a day meter on row 0, one row per
// player below and the metrics registry as a footer
type TerminalDisplay struct {
	mu     sync.Mutex
	screen tcell.Screen
	reg    *status.Registry
	rows   map[string]View
	day    int
	fill   int
}

func NewTerminalDisplay(screen tcell.Screen, reg *status.Registry) *TerminalDisplay {
	return &TerminalDisplay{
		screen: screen,
		reg:    reg,
		rows:   make(map[string]View),
	}
}

func (t *TerminalDisplay) Push(v View) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows[v.Player.ID] = v
	t.day, t.fill = v.Day, v.Fill
	t.draw()
	return nil
}

// Drop removes a player's row
func (t *TerminalDisplay) Drop(playerID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.rows, playerID)
	t.draw()
}

// Redraw repaints the last frames, e.g. after a resize
func (t *TerminalDisplay) Redraw() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.draw()
}

func (t *TerminalDisplay) draw() {
	width, height := t.screen.Size()
	t.screen.Fill(' ', styleDefault)

	t.drawMeter(width)

	y := 2
	t.text(0, y, width, fmt.Sprintf("%-16s %-9s %-6s %-12s %s", "PLAYER", "ARMY", "BONUS", "RANK", "CAMPS"), styleLabel)
	for _, id := range slices.Sorted(maps.Keys(t.rows)) {
		y++
		if y >= height {
			break
		}
		v := t.rows[id]
		line := fmt.Sprintf("%-16s %-9s %-6s %-12s %s",
			v.Player.Name,
			fmt.Sprintf("%d/%d", v.Army, v.Cap),
			fmt.Sprintf("+%d", v.Bonus),
			camp.RankName(v.Tier),
			humanize.Comma(int64(v.Kills)),
		)
		t.text(0, y, width, line, styleText)
	}

	if t.reg != nil {
		y += 2
		for _, line := range t.reg.Lines() {
			if y >= height {
				break
			}
			t.text(0, y, width, line, styleMetric)
			y++
		}
	}
	t.screen.Show()
}

// drawMeter draws the day progress bar with the day number right-aligned
func (t *TerminalDisplay) drawMeter(width int) {
	label := fmt.Sprintf(" Day %s", humanize.Comma(int64(t.day)))
	barWidth := max(1, width-len(label)-1)
	filled := t.fill * barWidth / parameter.HUDFillLevels
	for x := 0; x < barWidth; x++ {
		style := styleEmpty
		if x < filled {
			style = styleFull
		}
		t.screen.SetContent(x, 0, '█', nil, style)
	}
	t.text(barWidth, 0, width, label, styleLabel)
}

func (t *TerminalDisplay) text(x, y, width int, s string, style tcell.Style) {
	for _, r := range s {
		if x >= width {
			return
		}
		t.screen.SetContent(x, y, r, nil, style)
		x++
	}
}
