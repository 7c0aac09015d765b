package camp

import (
	"github.com/lixenwraith/mega-knights/capacity"
	"github.com/lixenwraith/mega-knights/config"
	"github.com/lixenwraith/mega-knights/host"
	"github.com/lixenwraith/mega-knights/parameter"
	"github.com/lixenwraith/mega-knights/scheduler"
)

// Ambush queues a scripted milestone ambush near every online player
// Ambushers carry their own owner tag so they never count against a camp
func (d *Director) Ambush(m config.Milestone) {
	players := d.host.Players()
	if len(players) == 0 {
		return
	}
	guards := Size(m.Ambush, capacity.Scale(len(players)), d.cfg.MaxGuards)
	total := Total(guards)

	for _, p := range players {
		owner := parameter.AmbushOwnerPrefix + p.ID
		ops := make([]scheduler.Op, 0, total)
		i := 0
		for _, g := range guards {
			for range g.Count {
				slot := i
				ops = append(ops, scheduler.Op{
					Name:     "ambush",
					PlayerID: p.ID,
					Run: func(pl host.Player) error {
						// Re-resolved location: the ambush finds the player where they are now
						_, err := d.host.Spawn(g.Type, pl.Location.Ring(slot, total, parameter.CampSpawnRadius/3), owner)
						return err
					},
				})
				i++
			}
		}
		d.sched.Enqueue("ambush:"+p.ID, parameter.DefaultQueueBudget, ops...)
		d.log.Info("ambush queued", "player", p.ID, "day", m.Day, "attackers", total)
	}
}
