package clone

import (
	"context"
	"fmt"

	"github.com/rangelog/rangelog/internal/blobstore"
	"github.com/rangelog/rangelog/internal/errors"
	"github.com/rangelog/rangelog/internal/images"
	"github.com/rangelog/rangelog/internal/observability/metrics"
)

// blobDuplicator copies image objects under fresh target-scoped keys and
// remembers every key it wrote this run. The orchestrator owns the
// resulting list: it is the compensation set deleted after a rollback.
// Duplications are sequential and never retried, a retry could leave keys
// in the store that the list does not account for.
type blobDuplicator struct {
	store    blobstore.Store
	targetID uint
	metrics  *metrics.CloneMetrics

	duplicated  []string
	bytesCopied int64
}

func newBlobDuplicator(store blobstore.Store, targetID uint, cloneMetrics *metrics.CloneMetrics) *blobDuplicator {
	return &blobDuplicator{store: store, targetID: targetID, metrics: cloneMetrics}
}

// duplicate copies the object at oldKey to a fresh key owned by the target
// account and records the new key for compensation. Any failure aborts the
// clone.
func (d *blobDuplicator) duplicate(ctx context.Context, oldKey string) (string, error) {
	newKey := images.NewKey(d.targetID, oldKey)
	info, err := d.store.Copy(ctx, oldKey, newKey)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", NewError(ErrCanceled, "canceled while duplicating objects", ctxErr)
		}
		return "", NewError(ErrStorage, fmt.Sprintf("duplicating object %s", oldKey), err)
	}
	d.duplicated = append(d.duplicated, newKey)
	d.bytesCopied += info.Size
	if d.metrics != nil {
		d.metrics.RecordBlobCopied(info.Size)
	}
	return newKey, nil
}

// duplicateThumb handles the optional thumbnail. An empty key means the
// image never had one, and a recorded key whose object is gone from the
// store is treated the same way: the copy proceeds without a thumbnail
// rather than failing the run over an already-broken reference.
func (d *blobDuplicator) duplicateThumb(ctx context.Context, oldKey string) (string, error) {
	if oldKey == "" {
		return "", nil
	}
	newKey, err := d.duplicate(ctx, oldKey)
	if err != nil && errors.Is(err, blobstore.ErrNotFound) {
		getLogger().Warn("thumbnail object missing, copying image without it",
			"object_key", oldKey)
		return "", nil
	}
	return newKey, err
}

// keys returns the object keys written this run, in write order.
func (d *blobDuplicator) keys() []string {
	return d.duplicated
}
