// Package server exposes the bot's state over HTTP and a websocket feed.
package server

import "time"

// Server configuration constants
const (
	// Websocket client message rate limiting
	RateLimitMessages = 10          // Max messages per connection per window
	RateLimitWindow   = time.Second // Sliding window duration

	WriteTimeout      = 2 * time.Second
	ReadHeaderTimeout = 5 * time.Second
	ShutdownTimeout   = 3 * time.Second

	// Events replayed to a websocket client on connect
	BacklogEvents = 10

	DefaultJournalLimit = 20
	MaxJournalLimit     = 500
)
