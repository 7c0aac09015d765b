package camp

// Rank ladder by camps cleared
var ranks = []struct {
	name  string
	kills int
}{
	{"Page", 0},
	{"Squire", 2},
	{"Knight", 5},
	{"Champion", 10},
	{"Mega Knight", 20},
}

// RankFor returns the rank tier earned by a number of cleared camps
func RankFor(kills int) int {
	tier := 0
	for i, r := range ranks {
		if kills >= r.kills {
			tier = i
		}
	}
	return tier
}

// RankName returns the display name of a rank tier, clamped to the ladder
func RankName(tier int) string {
	tier = max(0, min(tier, len(ranks)-1))
	return ranks[tier].name
}
