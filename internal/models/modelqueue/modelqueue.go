// Package modelqueue provides types for queueing pieces of data.

package modelqueue

import "time"

type OperationQueueEntry struct {
	OperationID string
	Operation   string
	PoolID      string
	AccountID   string
	Shares      uint64
	Tokens      uint64
	RecordedAt  time.Time
}
