package models

// Common constants used across the application
const (
	// UnknownValue is the fallback value when data is unavailable or calculation fails
	UnknownValue = "UNKNOWN"
	// ModelVersion is stamped on every induction plan
	ModelVersion = "1.0.0"
	// APIVersion is reported in the response envelope
	APIVersion = 2
)

// Train service states.
const (
	StatusRevenue     = "revenue"
	StatusStandby     = "standby"
	StatusIBL         = "IBL"
	StatusMaintenance = "maintenance"
)

// Induction actions. IBL is the inspection bay line, i.e. maintenance.
type Action string

const (
	ActionRevenue Action = "revenue"
	ActionStandby Action = "standby"
	ActionIBL     Action = "IBL"
)

// Job card states and severities.
const (
	JobCardOpen       = "open"
	JobCardInProgress = "in_progress"
	JobCardCompleted  = "completed"

	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Cleaning slot states.
const (
	SlotAvailable = "available"
	SlotOccupied  = "occupied"
	SlotReserved  = "reserved"
)

// Cache durations (in seconds) for different API data types.
const (
	CacheDurationLong  = 300
	CacheDurationShort = 30
	CacheDurationNone  = 0
)

const (
	DefaultNearbyRadiusInMeters = 1500
	DefaultMaxCountForStations  = 10
	MaxAllowedCount             = 100
	DefaultMaxCountForPlans     = 20
)

// MaxChatReplyLength caps assistant replies, in characters.
const MaxChatReplyLength = 800
