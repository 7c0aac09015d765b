package asset

// DefaultCampaign is the stock campaign script in TOML
const DefaultCampaign = `

# === Clock ===
[clock]
ticks_per_day = 24000
tick_step = 1
max_day = 100

# === Army capacity ===
[capacity]
base = 15
max_bonus = 20
global_ceiling = 35

# === Milestones ===

[[milestones]]
day = 1
title = "Page"
message = "Your banner is raised. Recruit squires before the raiders find you."
effect = "reward"
rewards = [
    { item = "mk:squire_horn", count = 1 },
    { item = "minecraft:bread", count = 8 },
]

[[milestones]]
day = 10
title = "Squire"
message = "Scouts report raiders on the roads. Keep your walls manned."
effect = "ambush"
ambush = [
    { type = "mk:enemy_knight", count = 2 },
    { type = "mk:enemy_archer", count = 1 },
]

[[milestones]]
day = 25
title = "Knight"
message = "The crown recognises your service."
effect = "reward"
rewards = [
    { item = "mk:knight_token", count = 1 },
]

[[milestones]]
day = 50
title = "Champion"
message = "Dark knights ride under a black standard. They are coming for you."
effect = "ambush"
ambush = [
    { type = "mk:enemy_dark_knight", count = 2 },
    { type = "mk:enemy_wizard", count = 1 },
]

[[milestones]]
day = 75
title = "Mega Knight"
message = "The Siege Lord gathers his host. Twenty-five days remain."
effect = "none"

[[milestones]]
day = 100
title = "The Siege"
message = "The Siege Lord is at the gates."
effect = "siege"

# === Camps ===
[camp]
min_day = 3
cooldown_days = 3
max_guards = 10
stale_days = 3
cooldown_capacity = 256

# Extra exclusion rules, evaluated alongside the built-in ones
rules = [
    { name = "no_camp_eve_of_siege", when = "Day == SiegeDay - 1" },
]

[[camp.tiers]]
name = "Scout Camp"
from_day = 0
to_day = 14
guards = [
    { type = "mk:enemy_knight", count = 2 },
    { type = "mk:enemy_archer", count = 1 },
]
rewards = [
    { item = "minecraft:iron_ingot", count = 6 },
]

[[camp.tiers]]
name = "Warband"
from_day = 15
to_day = 39
guards = [
    { type = "mk:enemy_knight", count = 3 },
    { type = "mk:enemy_archer", count = 2 },
    { type = "mk:enemy_wizard", count = 1 },
]
rewards = [
    { item = "minecraft:iron_ingot", count = 12 },
    { item = "mk:squire_horn", count = 1 },
]

[[camp.tiers]]
name = "Fortress"
from_day = 40
to_day = 69
guards = [
    { type = "mk:enemy_dark_knight", count = 2 },
    { type = "mk:enemy_knight", count = 3 },
    { type = "mk:enemy_archer", count = 3 },
    { type = "mk:enemy_wizard", count = 1, weight = 1.5 },
]
rewards = [
    { item = "minecraft:diamond", count = 3 },
    { item = "mk:knight_token", count = 1 },
]

[[camp.tiers]]
name = "Stronghold"
from_day = 70
to_day = 0
guards = [
    { type = "mk:enemy_dark_knight", count = 4 },
    { type = "mk:enemy_wizard", count = 2 },
    { type = "mk:enemy_knight", count = 3 },
    { type = "mk:enemy_archer", count = 3 },
]
rewards = [
    { item = "minecraft:diamond", count = 6 },
    { item = "mk:knight_token", count = 2 },
]

# === Siege ===
[siege]
day = 100
max_active_mobs = 25
max_per_player = 12
wave_interval_ticks = 1200
max_duration_ticks = 24000
boss = "mk:boss_siege_lord"
rewards = [
    { item = "mk:mega_knight_crest", count = 1 },
    { item = "minecraft:netherite_ingot", count = 2 },
]

[[siege.phases]]
threshold = 0.66
add = "mk:boss_enraged"
remove = "mk:boss_calm"
title = "The Siege Lord is enraged"

[[siege.phases]]
threshold = 0.33
add = "mk:boss_desperate"
remove = "mk:boss_enraged"
title = "The Siege Lord fights with desperation"

[[siege.waves]]
spawns = [
    { type = "mk:enemy_knight", count = 6 },
    { type = "mk:enemy_archer", count = 4 },
]

[[siege.waves]]
spawns = [
    { type = "mk:enemy_knight", count = 6 },
    { type = "mk:enemy_archer", count = 4 },
    { type = "mk:enemy_wizard", count = 2 },
]

[[siege.waves]]
spawns = [
    { type = "mk:enemy_dark_knight", count = 4 },
    { type = "mk:enemy_wizard", count = 3 },
]

[[siege.waves]]
boss = true
spawns = [
    { type = "mk:enemy_dark_knight", count = 4 },
    { type = "mk:enemy_archer", count = 4 },
]
`
