package parameter

// Clock defaults
const (
	// DefaultTicksPerDay matches one in-world day cycle
	DefaultTicksPerDay = 24000

	// DefaultTickStep is the counter advance per Tick call
	DefaultTickStep = 1

	// DefaultMaxDay is the final campaign day, the siege day
	DefaultMaxDay = 100
)

// Capacity defaults
const (
	// DefaultArmyBase is the personal army cap before bonuses
	DefaultArmyBase = 15

	// DefaultArmyMaxBonus caps the earned bonus added to the base
	DefaultArmyMaxBonus = 20

	// DefaultGlobalCeiling is the host-wide ally ceiling shared by all players
	DefaultGlobalCeiling = 35
)

// Multiplayer scale step
const (
	ScaleSolo  = 1.0
	ScaleDuo   = 0.75
	ScaleGroup = 0.6
)

// Camp defaults
const (
	// DefaultCampMinDay is the first day a camp may spawn
	DefaultCampMinDay = 3

	// DefaultCampCooldownDays is the minimum number of days between camps for one player
	DefaultCampCooldownDays = 3

	// DefaultCampMaxGuards caps a single camp's guard roster
	DefaultCampMaxGuards = 10

	// DefaultCampStaleDays expires a camp whose owner stayed offline this long
	DefaultCampStaleDays = 3

	// DefaultCooldownCapacity bounds the per-player-name cooldown table
	DefaultCooldownCapacity = 256

	// CampSpawnRadius is the distance from the player at which camps are placed
	CampSpawnRadius = 48.0
)

// Siege defaults
const (
	// DefaultMaxActiveMobs is the ceiling of concurrently alive siege mobs
	DefaultMaxActiveMobs = 25

	// DefaultSiegeMaxPerPlayer caps a wave's spawn count per online player
	DefaultSiegeMaxPerPlayer = 12

	// DefaultWaveIntervalTicks separates wave starts (60s at 20 TPS)
	DefaultWaveIntervalTicks = 1200

	// DefaultSiegeMaxDurationTicks ends an unresolved siege in defeat (20 min)
	DefaultSiegeMaxDurationTicks = 24000

	// SiegeRetrySteps delays restarting a siege lost to timeout (60s at 20 steps/s)
	SiegeRetrySteps = 1200

	// SiegeSpawnRadius is the ring radius around the siege origin
	SiegeSpawnRadius = 24.0
)

// Actor ownership tags
const (
	// SiegeOwner marks actors spawned by the siege director
	SiegeOwner = "mk:siege"

	// AmbushOwnerPrefix marks milestone ambush actors, suffixed with the player id
	AmbushOwnerPrefix = "mk:ambush:"

	// PlayerTypeID is the host type of a player actor
	PlayerTypeID = "minecraft:player"
)
