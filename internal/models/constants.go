package models

import "time"

const (
	DateLayout    = "2006-01-02"
	ClockLayout   = "15:04"
	DisplayLayout = "02.01.2006"
)

const (
	ParseModeMarkdown = "Markdown"
	ParseModeHTML     = "HTML"
)

const (
	// DefaultRedisTTL user state lifetime in Redis, seconds
	DefaultRedisTTL = 24 * 60 * 60

	// DefaultCacheTTL lifetime of cached API reads, seconds
	DefaultCacheTTL = 5 * 60

	// DefaultPaginationSize page size of inline lists
	DefaultPaginationSize = 8

	// DefaultBookingWindowDays used when a worker has no booking window
	DefaultBookingWindowDays = 30

	// RateLimitMessages messages allowed per window
	RateLimitMessages = 20

	// RateLimitWindow inbound throttle window, seconds
	RateLimitWindow = 60

	// DefaultCooldown client-side pause after the API answers 429
	DefaultCooldown = 30 * time.Second
)
