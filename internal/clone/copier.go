package clone

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rangelog/rangelog/internal/datastore"
)

// copier walks the source account's entity graph in forward dependency
// order and inserts remapped copies owned by the target, all inside the
// orchestrator's transaction. Every row gets a fresh identifier, keeps its
// scalar fields verbatim, has its owner set to the target and every
// foreign key translated through the remap table. New identifiers are
// recorded in the table immediately so child kinds can resolve them.
//
// Rows are fetched ordered by creation time then identifier, so the fresh
// autoincrement identifiers preserve each kind's relative ordering.
type copier struct {
	tx       *gorm.DB
	remap    *remapTable
	sourceID uint
	targetID uint
	blobs    *blobDuplicator
	counts   EntityCounts
}

func newCopier(tx *gorm.DB, remap *remapTable, sourceID, targetID uint, blobs *blobDuplicator) *copier {
	return &copier{
		tx:       tx,
		remap:    remap,
		sourceID: sourceID,
		targetID: targetID,
		blobs:    blobs,
		counts:   NewEntityCounts(),
	}
}

// copyKind dispatches one entity kind. The orchestrator drives this in
// copyOrder.
func (c *copier) copyKind(ctx context.Context, kind Kind) error {
	switch kind {
	case KindPreferences:
		return c.copyPreferences()
	case KindSavedLocations:
		return c.copySavedLocations()
	case KindAmmunitionTypes:
		return c.copyAmmunitionTypes()
	case KindRifleProfiles:
		return c.copyRifleProfiles()
	case KindAmmoLots:
		return c.copyAmmoLots()
	case KindSessions:
		return c.copySessions()
	case KindGroupEntries:
		return c.copyGroupEntries()
	case KindChronoSubsessions:
		return c.copyChronoSubsessions()
	case KindDopeEntries:
		return c.copyDopeEntries()
	case KindImages:
		return c.copyImages(ctx)
	case KindGroupMeasurements:
		return c.copyGroupMeasurements()
	case KindVelocityReadings:
		return c.copyVelocityReadings()
	default:
		return NewError(ErrIntegrity, fmt.Sprintf("unknown entity kind %s", kind), nil)
	}
}

// fetchOwned loads an account's rows of one model in source insertion order.
func fetchOwned[T any](tx *gorm.DB, accountID uint) ([]T, error) {
	var rows []T
	if err := tx.Where("account_id = ?", accountID).Order("created_at, id").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *copier) insert(kind Kind, row any) error {
	if err := c.tx.Create(row).Error; err != nil {
		return NewError(ErrDatabase, fmt.Sprintf("inserting %s", kind), err)
	}
	return nil
}

func (c *copier) loadErr(kind Kind, err error) error {
	return NewError(ErrDatabase, fmt.Sprintf("loading source %s", kind), err)
}

// copyPreferences copies the singleton settings row as an upsert, keyed on
// the owner column, so a target that somehow still has preferences ends up
// with the source's values rather than a uniqueness violation.
func (c *copier) copyPreferences() error {
	rows, err := fetchOwned[datastore.Preferences](c.tx, c.sourceID)
	if err != nil {
		return c.loadErr(KindPreferences, err)
	}
	if len(rows) == 0 {
		return nil
	}

	row := rows[0]
	oldID := row.ID
	row.ID = 0
	row.AccountID = c.targetID
	err = c.tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "account_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"distance_unit", "velocity_unit", "temperature_unit", "group_size_unit", "theme", "updated_at",
		}),
	}).Create(&row).Error
	if err != nil {
		return NewError(ErrDatabase, "upserting preferences", err)
	}
	c.remap.put(KindPreferences, oldID, row.ID)
	c.counts.Add(KindPreferences, 1)
	return nil
}

func (c *copier) copySavedLocations() error {
	rows, err := fetchOwned[datastore.SavedLocation](c.tx, c.sourceID)
	if err != nil {
		return c.loadErr(KindSavedLocations, err)
	}
	for i := range rows {
		row := rows[i]
		oldID := row.ID
		row.ID = 0
		row.AccountID = c.targetID
		if err := c.insert(KindSavedLocations, &row); err != nil {
			return err
		}
		c.remap.put(KindSavedLocations, oldID, row.ID)
	}
	c.counts.Add(KindSavedLocations, int64(len(rows)))
	return nil
}

func (c *copier) copyAmmunitionTypes() error {
	rows, err := fetchOwned[datastore.AmmunitionType](c.tx, c.sourceID)
	if err != nil {
		return c.loadErr(KindAmmunitionTypes, err)
	}
	for i := range rows {
		row := rows[i]
		oldID := row.ID
		row.ID = 0
		row.AccountID = c.targetID
		if err := c.insert(KindAmmunitionTypes, &row); err != nil {
			return err
		}
		c.remap.put(KindAmmunitionTypes, oldID, row.ID)
	}
	c.counts.Add(KindAmmunitionTypes, int64(len(rows)))
	return nil
}

func (c *copier) copyRifleProfiles() error {
	rows, err := fetchOwned[datastore.RifleProfile](c.tx, c.sourceID)
	if err != nil {
		return c.loadErr(KindRifleProfiles, err)
	}
	for i := range rows {
		row := rows[i]
		oldID := row.ID
		row.ID = 0
		row.AccountID = c.targetID
		if err := c.insert(KindRifleProfiles, &row); err != nil {
			return err
		}
		c.remap.put(KindRifleProfiles, oldID, row.ID)
	}
	c.counts.Add(KindRifleProfiles, int64(len(rows)))
	return nil
}

func (c *copier) copyAmmoLots() error {
	rows, err := fetchOwned[datastore.AmmoLot](c.tx, c.sourceID)
	if err != nil {
		return c.loadErr(KindAmmoLots, err)
	}
	for i := range rows {
		row := rows[i]
		oldID := row.ID

		typeID, err := c.remap.lookup(KindAmmunitionTypes, row.AmmunitionTypeID)
		if err != nil {
			return err
		}

		row.ID = 0
		row.AccountID = c.targetID
		row.AmmunitionTypeID = typeID
		if err := c.insert(KindAmmoLots, &row); err != nil {
			return err
		}
		c.remap.put(KindAmmoLots, oldID, row.ID)
	}
	c.counts.Add(KindAmmoLots, int64(len(rows)))
	return nil
}

func (c *copier) copySessions() error {
	rows, err := fetchOwned[datastore.Session](c.tx, c.sourceID)
	if err != nil {
		return c.loadErr(KindSessions, err)
	}
	for i := range rows {
		row := rows[i]
		oldID := row.ID

		rifleID, err := c.remap.lookup(KindRifleProfiles, row.RifleProfileID)
		if err != nil {
			return err
		}
		locationID, err := c.remap.lookupOptional(KindSavedLocations, row.SavedLocationID)
		if err != nil {
			return err
		}

		row.ID = 0
		row.AccountID = c.targetID
		row.RifleProfileID = rifleID
		row.SavedLocationID = locationID
		if err := c.insert(KindSessions, &row); err != nil {
			return err
		}
		c.remap.put(KindSessions, oldID, row.ID)
	}
	c.counts.Add(KindSessions, int64(len(rows)))
	return nil
}

func (c *copier) copyGroupEntries() error {
	rows, err := fetchOwned[datastore.GroupEntry](c.tx, c.sourceID)
	if err != nil {
		return c.loadErr(KindGroupEntries, err)
	}
	for i := range rows {
		row := rows[i]
		oldID := row.ID

		sessionID, err := c.remap.lookup(KindSessions, row.SessionID)
		if err != nil {
			return err
		}
		typeID, err := c.remap.lookupOptional(KindAmmunitionTypes, row.AmmunitionTypeID)
		if err != nil {
			return err
		}
		lotID, err := c.remap.lookupOptional(KindAmmoLots, row.AmmoLotID)
		if err != nil {
			return err
		}

		row.ID = 0
		row.AccountID = c.targetID
		row.SessionID = sessionID
		row.AmmunitionTypeID = typeID
		row.AmmoLotID = lotID
		if err := c.insert(KindGroupEntries, &row); err != nil {
			return err
		}
		c.remap.put(KindGroupEntries, oldID, row.ID)
	}
	c.counts.Add(KindGroupEntries, int64(len(rows)))
	return nil
}

func (c *copier) copyChronoSubsessions() error {
	rows, err := fetchOwned[datastore.ChronoSubsession](c.tx, c.sourceID)
	if err != nil {
		return c.loadErr(KindChronoSubsessions, err)
	}
	for i := range rows {
		row := rows[i]
		oldID := row.ID

		sessionID, err := c.remap.lookup(KindSessions, row.SessionID)
		if err != nil {
			return err
		}
		typeID, err := c.remap.lookup(KindAmmunitionTypes, row.AmmunitionTypeID)
		if err != nil {
			return err
		}
		lotID, err := c.remap.lookupOptional(KindAmmoLots, row.AmmoLotID)
		if err != nil {
			return err
		}

		row.ID = 0
		row.AccountID = c.targetID
		row.SessionID = sessionID
		row.AmmunitionTypeID = typeID
		row.AmmoLotID = lotID
		if err := c.insert(KindChronoSubsessions, &row); err != nil {
			return err
		}
		c.remap.put(KindChronoSubsessions, oldID, row.ID)
	}
	c.counts.Add(KindChronoSubsessions, int64(len(rows)))
	return nil
}

func (c *copier) copyDopeEntries() error {
	rows, err := fetchOwned[datastore.DopeEntry](c.tx, c.sourceID)
	if err != nil {
		return c.loadErr(KindDopeEntries, err)
	}
	for i := range rows {
		row := rows[i]
		oldID := row.ID

		sessionID, err := c.remap.lookup(KindSessions, row.SessionID)
		if err != nil {
			return err
		}

		row.ID = 0
		row.AccountID = c.targetID
		row.SessionID = sessionID
		if err := c.insert(KindDopeEntries, &row); err != nil {
			return err
		}
		c.remap.put(KindDopeEntries, oldID, row.ID)
	}
	c.counts.Add(KindDopeEntries, int64(len(rows)))
	return nil
}

// copyImages resolves the polymorphic parent through the remap table and
// duplicates the blobs before the row insert, because the new row must
// store the new object keys.
func (c *copier) copyImages(ctx context.Context) error {
	rows, err := fetchOwned[datastore.Image](c.tx, c.sourceID)
	if err != nil {
		return c.loadErr(KindImages, err)
	}
	for i := range rows {
		row := rows[i]
		oldID := row.ID

		parent, err := row.Parent()
		if err != nil {
			return NewError(ErrIntegrity, fmt.Sprintf("image %d has an invalid parent", oldID), err)
		}
		parentID, err := c.remap.lookup(parentKindFor(parent.Kind), parent.ID)
		if err != nil {
			return err
		}

		objectKey, err := c.blobs.duplicate(ctx, row.ObjectKey)
		if err != nil {
			return err
		}
		thumbKey, err := c.blobs.duplicateThumb(ctx, row.ThumbKey)
		if err != nil {
			return err
		}

		row.ID = 0
		row.AccountID = c.targetID
		row.ObjectKey = objectKey
		row.ThumbKey = thumbKey
		if err := row.SetParent(datastore.ImageParent{Kind: parent.Kind, ID: parentID}); err != nil {
			return NewError(ErrIntegrity, fmt.Sprintf("remapping image %d parent", oldID), err)
		}
		if err := c.insert(KindImages, &row); err != nil {
			return err
		}
		c.remap.put(KindImages, oldID, row.ID)
	}
	c.counts.Add(KindImages, int64(len(rows)))
	return nil
}

func (c *copier) copyGroupMeasurements() error {
	rows, err := fetchOwned[datastore.GroupMeasurement](c.tx, c.sourceID)
	if err != nil {
		return c.loadErr(KindGroupMeasurements, err)
	}
	for i := range rows {
		row := rows[i]
		oldID := row.ID

		entryID, err := c.remap.lookup(KindGroupEntries, row.GroupEntryID)
		if err != nil {
			return err
		}

		row.ID = 0
		row.AccountID = c.targetID
		row.GroupEntryID = entryID
		if err := c.insert(KindGroupMeasurements, &row); err != nil {
			return err
		}
		c.remap.put(KindGroupMeasurements, oldID, row.ID)
	}
	c.counts.Add(KindGroupMeasurements, int64(len(rows)))
	return nil
}

func (c *copier) copyVelocityReadings() error {
	rows, err := fetchOwned[datastore.VelocityReading](c.tx, c.sourceID)
	if err != nil {
		return c.loadErr(KindVelocityReadings, err)
	}
	for i := range rows {
		row := rows[i]
		oldID := row.ID

		subsessionID, err := c.remap.lookup(KindChronoSubsessions, row.ChronoSubsessionID)
		if err != nil {
			return err
		}

		row.ID = 0
		row.AccountID = c.targetID
		row.ChronoSubsessionID = subsessionID
		if err := c.insert(KindVelocityReadings, &row); err != nil {
			return err
		}
		c.remap.put(KindVelocityReadings, oldID, row.ID)
	}
	c.counts.Add(KindVelocityReadings, int64(len(rows)))
	return nil
}
