package journal

import "time"

// Batcher defaults
const (
	DefaultBatchSize  = 10
	DefaultFlushDelay = 5 * time.Second
)

var bucketPurchases = []byte("purchases")
