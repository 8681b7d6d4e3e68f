package clone

import (
	"fmt"

	"gorm.io/gorm"
)

// PreviewResult reports what Execute would remove and create, without
// touching either store.
type PreviewResult struct {
	SourceAccountID uint
	SourceUsername  string
	TargetAccountID uint
	TargetUsername  string
	ToDelete        EntityCounts
	ToCopy          EntityCounts
}

// countOwnedRows counts an account's rows kind by kind in copy order.
func countOwnedRows(db *gorm.DB, accountID uint) (EntityCounts, error) {
	counts := NewEntityCounts()
	for _, kind := range copyOrder {
		var n int64
		if err := db.Model(modelFor(kind)).Where("account_id = ?", accountID).Count(&n).Error; err != nil {
			return nil, NewError(ErrDatabase, fmt.Sprintf("counting %s", kind), err)
		}
		counts.Add(kind, n)
	}
	return counts, nil
}
