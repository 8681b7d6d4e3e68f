// Package blobstore provides object storage for user images behind a
// driver-selectable Store interface. Three drivers are supported: a local
// filesystem store with metadata sidecars, an S3-compatible store (AWS S3
// or MinIO) and an in-memory store for tests.
package blobstore

import (
	"context"
	"io"
	"time"

	"github.com/rangelog/rangelog/internal/conf"
	"github.com/rangelog/rangelog/internal/errors"
	"github.com/rangelog/rangelog/internal/observability/metrics"
)

// Driver identifies a blob store backend implementation.
type Driver string

// Supported blob store drivers.
const (
	DriverFS     Driver = conf.BlobDriverFS
	DriverS3     Driver = conf.BlobDriverS3
	DriverMemory Driver = conf.BlobDriverMemory
)

// Sentinel errors returned by Store implementations. Callers match these
// with errors.Is; drivers wrap them with the offending key.
var (
	// ErrNotFound indicates the requested object does not exist.
	ErrNotFound = errors.NewStd("object not found")
	// ErrExists indicates a Put targeted a key that is already occupied.
	// Puts are create-only, keys are never overwritten in place.
	ErrExists = errors.NewStd("object already exists")
	// ErrUnsupported indicates the driver cannot perform the operation.
	ErrUnsupported = errors.NewStd("unsupported operation")
)

// PutOptions carries optional attributes stored alongside an object.
type PutOptions struct {
	ContentType string
	Metadata    map[string]string
}

// SignedURLOptions controls presigned URL generation.
type SignedURLOptions struct {
	Method string        // HTTP method, defaults to GET
	Expiry time.Duration // defaults to 15 minutes when zero or negative
}

// Info describes a stored object.
type Info struct {
	Key          string
	Size         int64
	ContentType  string
	ETag         string
	Metadata     map[string]string
	LastModified time.Time
}

// Store is the object storage interface used by the image and clone
// services. Implementations must be safe for concurrent use.
type Store interface {
	// Put stores a new object under key. The key must be unused,
	// existing objects are never overwritten.
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)

	// Get returns object metadata and a reader for its content. The
	// caller owns the returned ReadCloser.
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)

	// Head returns object metadata without fetching content.
	Head(ctx context.Context, key string) (Info, error)

	// Copy duplicates the object at srcKey to dstKey without the bytes
	// passing through the caller. The destination key must be unused.
	Copy(ctx context.Context, srcKey, dstKey string) (Info, error)

	// Delete removes the object, reporting whether it existed. Deleting
	// an absent key is not an error.
	Delete(ctx context.Context, key string) (bool, error)

	// List returns metadata for all objects whose key starts with prefix,
	// sorted by key.
	List(ctx context.Context, prefix string) ([]Info, error)

	// PresignURL returns a time-limited URL granting direct access to the
	// object. Drivers without URL support return ErrUnsupported.
	PresignURL(ctx context.Context, key string, opts SignedURLOptions) (string, error)

	// Driver reports which backend implementation is in use.
	Driver() Driver
}

// New selects and opens the blob store configured in settings. When
// storeMetrics is non-nil the returned Store records operation counts,
// latencies and object sizes.
func New(ctx context.Context, settings *conf.Settings, storeMetrics *metrics.BlobStoreMetrics) (Store, error) {
	driver := settings.BlobStore.Driver
	if driver == "" {
		driver = conf.BlobDriverFS
	}

	var (
		store Store
		err   error
	)
	switch driver {
	case conf.BlobDriverFS:
		store, err = NewFSStore(settings.BlobStore.FS.Path)
	case conf.BlobDriverS3:
		store, err = NewS3Store(ctx, &settings.BlobStore.S3)
	case conf.BlobDriverMemory:
		store = NewMemoryStore()
	default:
		return nil, errors.Newf("unknown blob store driver: %s", driver).
			Component("blobstore").
			Category(errors.CategoryConfiguration).
			Context("driver", driver).
			Build()
	}
	if err != nil {
		return nil, errors.New(err).
			Component("blobstore").
			Category(errors.CategoryObjectStore).
			Context("driver", driver).
			Context("operation", "open_store").
			Build()
	}

	if storeMetrics != nil {
		store = withMetrics(store, storeMetrics)
	}
	return store, nil
}
