package clone

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/rangelog/rangelog/internal/datastore"
)

// DeletionPlan enumerates what a clone run will remove from the target
// account: per-kind row counts and the object store keys referenced by the
// target's image rows. Building the plan performs no mutation. The old
// blobs are only deleted after the relational transaction commits, so a
// failed clone never destroys the target's original data.
type DeletionPlan struct {
	Counts   EntityCounts
	BlobKeys []string
}

// buildDeletionPlan counts the target's rows kind by kind in deletion
// order and collects the blob keys of every image about to go away.
func buildDeletionPlan(db *gorm.DB, targetID uint) (*DeletionPlan, error) {
	plan := &DeletionPlan{Counts: NewEntityCounts()}
	for _, kind := range deletionOrder() {
		var n int64
		if err := db.Model(modelFor(kind)).Where("account_id = ?", targetID).Count(&n).Error; err != nil {
			return nil, NewError(ErrDatabase, fmt.Sprintf("counting target %s", kind), err)
		}
		plan.Counts.Add(kind, n)
	}

	var images []datastore.Image
	if err := db.Where("account_id = ?", targetID).Find(&images).Error; err != nil {
		return nil, NewError(ErrDatabase, "collecting target image keys", err)
	}
	for i := range images {
		plan.BlobKeys = append(plan.BlobKeys, images[i].BlobKeys()...)
	}
	return plan, nil
}

// executeDeletions removes every target-owned row inside tx, leaves first.
// Returns the rows actually deleted per kind, which under the advisory
// lock matches the plan.
func executeDeletions(ctx context.Context, tx *gorm.DB, targetID uint) (EntityCounts, error) {
	deleted := NewEntityCounts()
	for _, kind := range deletionOrder() {
		if err := ctx.Err(); err != nil {
			return deleted, NewError(ErrCanceled, fmt.Sprintf("canceled while deleting %s", kind), err)
		}
		res := tx.Where("account_id = ?", targetID).Delete(modelFor(kind))
		if res.Error != nil {
			return deleted, NewError(ErrDatabase, fmt.Sprintf("deleting target %s", kind), res.Error)
		}
		deleted.Add(kind, res.RowsAffected)
	}
	return deleted, nil
}
