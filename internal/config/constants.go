package config

import "time"

// Database connection pool settings
const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 5 * time.Minute
)

// HTTP server timeouts
const (
	ServerRequestTimeout  = 60 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerWriteTimeout    = 60 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Database ping timeout for health checks
const DBPingTimeout = 5 * time.Second

// Startup migration timeout
const DBMigrateTimeout = time.Minute

// Background job intervals
const ExportReaperInterval = 10 * time.Minute

// Queue worker tuning
const (
	QueuePollTimeout  = 5 * time.Second
	QueueRetryBackoff = 10 * time.Second
	QueueDrainTimeout = 30 * time.Second
	QueuePromoteEvery = time.Second
)

// External client query defaults
const (
	DefaultChatListLimit   = 100
	DefaultChatMemberLimit = 200
)
