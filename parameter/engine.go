package parameter

import "time"

// Host Loop & Cadence
const (
	// StepInterval is the base host step (one game tick at 20 TPS)
	StepInterval = 50 * time.Millisecond

	// HUDEverySteps runs the HUD throttle every 10 steps (0.5s)
	HUDEverySteps = 10

	// RecountEverySteps runs the camp and siege recounts and stale expiry every 200 steps (10s)
	RecountEverySteps = 200

	// TickPersistEvery bounds crash replay loss to 60 ticks (~3s)
	TickPersistEvery = 60
)

// HUD sub-cadences, counted in HUD calls
const (
	// HUDRosterEvery refreshes the player roster on every 4th HUD call
	HUDRosterEvery = 4

	// HUDPropertiesEvery refreshes per-player store reads on every 8th HUD call
	HUDPropertiesEvery = 8

	// HUDFillLevels is the number of discrete day-progress levels shown
	HUDFillLevels = 10

	// HUDKeyCapacity bounds the per-player previous-key cache
	HUDKeyCapacity = 64
)

// Event Queue
const (
	// EventQueueSize is the fixed capacity of the event ring buffer
	EventQueueSize = 1024

	// EventBufferMask is the bitmask for fast modulo operations (1024 - 1)
	EventBufferMask = 1023
)

// Scheduler
const (
	// DefaultQueueBudget is the per-step operation budget of a spawn queue
	DefaultQueueBudget = 2

	// MaxQueueBudget clamps per-queue budgets
	MaxQueueBudget = 2

	// DefaultMaxOpsPerStep bounds the total operations executed in one step across queues
	DefaultMaxOpsPerStep = 6
)

// Sandbox driver
const (
	// SkirmishInterval is how often the standalone binary simulates combat
	SkirmishInterval = 2 * time.Second

	// SkirmishKills is the number of non-boss actors killed per skirmish
	SkirmishKills = 1

	// BossDamagePerSkirmish is the boss health fraction lost per skirmish
	BossDamagePerSkirmish = 0.08

	// CommandQueueSize buffers console commands applied on the step goroutine
	CommandQueueSize = 16
)
