package constants

// Default server configuration values
const (
	DefaultServerPort            = 8084
	DefaultServerReadTimeoutSec  = 15
	DefaultServerWriteTimeoutSec = 15
	DefaultServerIdleTimeoutSec  = 60
	DefaultGracefulShutdownSec   = 30
	ServerErrorChannelSize       = 1
)

// Default retry/backoff values
const (
	DefaultRetryBackoffMs        = 1000
	DefaultMaxBackoffMs          = 60000
	DefaultMaxAttempts           = 5
	DefaultDatabaseRetryAttempts = 3
	DefaultBrokerRetryAttempts   = 5
)

// Default retention and cleanup values
const (
	DefaultRetentionDays          = 30
	CleanupSchedulerIntervalHours = 24
	DedupRetentionDays            = 7
)

// Routing defaults
const (
	DefaultMaxUseBotQueues   = 3
	DefaultTimeUseBotQueues  = 5 // minutes
	DefaultReactivationToken = "#bot"
	DefaultMenuStyle         = "text"
	MenuExitToken            = "sair"
	MenuExitTokenAlt         = "exit"
	MenuBackToken            = "#"
)

// Broker defaults
const (
	DefaultBrokerQueue = "ticketflow_receipts"
)

// Dedup filter
const (
	DedupCacheTTLMinutes   = 30
	DedupCacheSweepMinutes = 10
)

// Cooldown / lock manager
const (
	CooldownSweepMinutes = 10
	LockShardCount       = 32
)

// Outbound debounce window
const (
	DefaultDebounceWindowMs = 1500
)

// External handler defaults
const (
	DefaultHTTPTimeoutSec = 30
	DefaultAIMaxHistory   = 20
	DefaultAITimeoutSec   = 60
)
