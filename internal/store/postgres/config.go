package postgres

import (
	"time"
)

// StoreConfig holds settings shared by the PostgreSQL stores.
// Pool configuration is handled separately via PoolConfig.
type StoreConfig struct {
	// QueryTimeoutSeconds is the maximum time a query can run before timing out.
	// Default: 10 seconds
	// Set to a negative value to use context timeouts only (no additional timeout)
	QueryTimeoutSeconds int32
}

// ApplyDefaults applies default values to unset configuration fields.
func (c *StoreConfig) ApplyDefaults() {
	if c.QueryTimeoutSeconds == 0 {
		c.QueryTimeoutSeconds = 10 // 10 seconds
	}
}

func (c StoreConfig) queryTimeout() time.Duration {
	if c.QueryTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.QueryTimeoutSeconds) * time.Second
}
