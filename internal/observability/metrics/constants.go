// Package metrics provides constants used across metric definitions.
package metrics

import "time"

// Time constants.
const (
	// ShutdownTimeout is the timeout for graceful shutdown operations.
	ShutdownTimeout = 5 * time.Second
)

// Operation type constants used in switch statements across metrics.
const (
	// OpPreview represents clone preview operations.
	OpPreview = "preview"
	// OpExecute represents clone execute operations.
	OpExecute = "execute"
	// OpTransaction represents database transaction operations.
	OpTransaction = "transaction"
	// OpPut represents blob store put operations.
	OpPut = "put"
	// OpCopy represents blob store server-side copy operations.
	OpCopy = "copy"
	// OpGet represents blob store get operations.
	OpGet = "get"
	// OpDelete represents blob store delete operations.
	OpDelete = "delete"
	// OpHead represents blob store head operations.
	OpHead = "head"
	// OpList represents blob store list operations.
	OpList = "list"
	// OpPresign represents blob store presign operations.
	OpPresign = "presign"
)

// Status label value constants.
const (
	// StatusSuccess marks a successful operation.
	StatusSuccess = "success"
	// StatusError marks a failed operation.
	StatusError = "error"
	// StatusCommitted marks a committed clone run.
	StatusCommitted = "committed"
	// StatusRolledBack marks a rolled back clone run.
	StatusRolledBack = "rolled_back"
	// StatusRejected marks a clone request refused before any work started.
	StatusRejected = "rejected"
)

// Histogram bucket configuration constants.
// These define the base values and factors for exponential bucket generation.
const (
	// BucketStart1ms is the starting bucket for 1ms histograms (1ms to ~32s range with 15 buckets).
	BucketStart1ms = 0.001
	// BucketStart10ms is the starting bucket for 10ms histograms (10ms to ~40s range with 12 buckets).
	BucketStart10ms = 0.01
	// BucketStart1KB is the starting bucket for 1KB histograms (1KB to ~1GB range).
	BucketStart1KB = 1024.0

	// BucketFactor2 is the common exponential growth factor of 2 for histogram buckets.
	BucketFactor2 = 2

	// BucketCount10 defines 10 exponential buckets.
	BucketCount10 = 10
	// BucketCount12 defines 12 exponential buckets.
	BucketCount12 = 12
	// BucketCount15 defines 15 exponential buckets.
	BucketCount15 = 15
	// BucketCount20 defines 20 exponential buckets.
	BucketCount20 = 20
)
