package config

import "time"

const (
	DefaultWorkerCount  = 5
	DefaultPollInterval = 15
	DefaultBatchSize    = 100
	DefaultMaxAttempts  = 3
	DefaultJobTimeout   = 30 * time.Second
	DefaultLockTTL      = time.Hour
	DefaultStaleAfter   = 5 * time.Minute
)
