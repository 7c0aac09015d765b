package camp

import (
	"context"

	"github.com/lixenwraith/mega-knights/host"
	"github.com/lixenwraith/mega-knights/store"
)

// Record is a player's single active camp
type Record struct {
	Tier             int           `json:"tier"`
	TierName         string        `json:"tier_name"`
	GuardCount       int           `json:"guard_count"`
	SpawningComplete bool          `json:"spawning_complete"`
	Cleared          bool          `json:"cleared"`
	SpawnDay         int           `json:"spawn_day"`
	Dimension        string        `json:"dimension"`
	Origin           host.Location `json:"origin"`
}

// loadRecord reads a camp record field by field so a partially corrupt
// document degrades to defaults instead of losing the whole record
func loadRecord(ctx context.Context, s store.Store, playerID string) (Record, bool) {
	obj, ok := store.Object(ctx, s, store.PlayerKey(playerID, store.FieldCamp))
	if !ok {
		return Record{}, false
	}
	r := Record{
		Tier:             int(obj.Get("tier").Int()),
		TierName:         obj.Get("tier_name").String(),
		GuardCount:       max(0, int(obj.Get("guard_count").Int())),
		SpawningComplete: obj.Get("spawning_complete").Bool(),
		Cleared:          obj.Get("cleared").Bool(),
		SpawnDay:         int(obj.Get("spawn_day").Int()),
		Dimension:        obj.Get("dimension").String(),
	}
	if o := obj.Get("origin"); o.IsObject() {
		r.Origin = host.Location{
			Dimension: o.Get("dimension").String(),
			X:         o.Get("x").Float(),
			Y:         o.Get("y").Float(),
			Z:         o.Get("z").Float(),
		}
	}
	return r, true
}

func saveRecord(ctx context.Context, s store.Store, playerID string, r Record) error {
	return store.Put(ctx, s, store.PlayerKey(playerID, store.FieldCamp), r)
}

func deleteRecord(ctx context.Context, s store.Store, playerID string) error {
	return s.Delete(ctx, store.PlayerKey(playerID, store.FieldCamp))
}

// recordOwners lists player ids holding a camp record
func recordOwners(ctx context.Context, s store.Store) ([]string, error) {
	keys, err := s.Keys(ctx, store.PlayerFieldPrefix())
	if err != nil {
		return nil, err
	}
	var out []string
	for _, k := range keys {
		if id, field, ok := store.SplitPlayerKey(k); ok && field == store.FieldCamp {
			out = append(out, id)
		}
	}
	return out, nil
}
