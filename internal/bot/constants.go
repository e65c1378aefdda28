package bot

import "time"

// Loop defaults
const (
	DefaultClickInterval = 50 * time.Millisecond
	DefaultBonusInterval = 500 * time.Millisecond
	DefaultBuyInterval   = 2 * time.Second
	DefaultStatsInterval = 30 * time.Second

	// Event feed sizing
	EventBuffer     = 64
	RecentEventKeep = 50
)

// Event types
const (
	EventSnapshot = "snapshot"
	EventPurchase = "purchase"
	EventBonus    = "bonus"
	EventStopped  = "stopped"
)
