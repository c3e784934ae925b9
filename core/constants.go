package core

import "time"

// Timeouts applied to storage operations issued from request handlers.
const (
	// DBOperationTimeout bounds single-row storage operations
	DBOperationTimeout = 5 * time.Second
	// DBHealthTimeout bounds storage health probes
	DBHealthTimeout = 2 * time.Second
)

// Task listing pagination bounds
const (
	DefaultTaskPageSize = 50
	MaxTaskPageSize     = 200
)
