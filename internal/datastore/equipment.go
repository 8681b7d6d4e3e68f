// equipment.go rifle profile, ammunition and location operations
package datastore

import (
	"github.com/rangelog/rangelog/internal/errors"
	"gorm.io/gorm"
)

// SaveRifleProfile inserts or updates a rifle profile.
func (ds *DataStore) SaveRifleProfile(profile *RifleProfile) error {
	if err := ds.checkConn(); err != nil {
		return err
	}
	if profile.Name == "" {
		return validationError("rifle profile name must not be empty", "name", profile.Name)
	}
	if err := ds.DB.Save(profile).Error; err != nil {
		return dbError(err, "save_rifle_profile", "", "account_id", profile.AccountID)
	}
	return nil
}

// RifleProfiles lists an account's rifle profiles in insertion order.
func (ds *DataStore) RifleProfiles(accountID uint) ([]RifleProfile, error) {
	if err := ds.checkConn(); err != nil {
		return nil, err
	}
	var profiles []RifleProfile
	err := ds.DB.Where("account_id = ?", accountID).
		Order("created_at, id").
		Find(&profiles).Error
	if err != nil {
		return nil, dbError(err, "list_rifle_profiles", "", "account_id", accountID)
	}
	return profiles, nil
}

// DeleteRifleProfile removes a rifle profile owned by the account. Profiles
// still referenced by a session cannot be removed.
func (ds *DataStore) DeleteRifleProfile(accountID, id uint) error {
	if err := ds.checkConn(); err != nil {
		return err
	}
	var sessions int64
	if err := ds.DB.Model(&Session{}).
		Where("account_id = ? AND rifle_profile_id = ?", accountID, id).
		Count(&sessions).Error; err != nil {
		return dbError(err, "delete_rifle_profile", "", "rifle_profile_id", id)
	}
	if sessions > 0 {
		return conflictError(gorm.ErrForeignKeyViolated, "delete_rifle_profile",
			"rifle_in_use", "rifle_profile_id", id, "session_count", sessions)
	}

	result := ds.DB.Where("account_id = ?", accountID).Delete(&RifleProfile{}, id)
	if result.Error != nil {
		return dbError(result.Error, "delete_rifle_profile", "", "rifle_profile_id", id)
	}
	if result.RowsAffected == 0 {
		return notFoundError("rifle profile", id)
	}
	return nil
}

// SaveAmmunitionType inserts or updates an ammunition type.
func (ds *DataStore) SaveAmmunitionType(ammoType *AmmunitionType) error {
	if err := ds.checkConn(); err != nil {
		return err
	}
	if err := ds.DB.Save(ammoType).Error; err != nil {
		return dbError(err, "save_ammunition_type", "", "account_id", ammoType.AccountID)
	}
	return nil
}

// AmmunitionTypes lists an account's ammunition types in insertion order.
func (ds *DataStore) AmmunitionTypes(accountID uint) ([]AmmunitionType, error) {
	if err := ds.checkConn(); err != nil {
		return nil, err
	}
	var types []AmmunitionType
	err := ds.DB.Where("account_id = ?", accountID).
		Order("created_at, id").
		Find(&types).Error
	if err != nil {
		return nil, dbError(err, "list_ammunition_types", "", "account_id", accountID)
	}
	return types, nil
}

// SaveAmmoLot inserts or updates an ammo lot.
func (ds *DataStore) SaveAmmoLot(lot *AmmoLot) error {
	if err := ds.checkConn(); err != nil {
		return err
	}
	if lot.AmmunitionTypeID == 0 {
		return validationError("ammo lot requires an ammunition type", "ammunition_type_id", lot.AmmunitionTypeID)
	}
	if err := ds.DB.Save(lot).Error; err != nil {
		return dbError(err, "save_ammo_lot", "", "account_id", lot.AccountID)
	}
	return nil
}

// AmmoLots lists an account's lots for one ammunition type in insertion order.
func (ds *DataStore) AmmoLots(accountID, ammunitionTypeID uint) ([]AmmoLot, error) {
	if err := ds.checkConn(); err != nil {
		return nil, err
	}
	var lots []AmmoLot
	err := ds.DB.Where("account_id = ? AND ammunition_type_id = ?", accountID, ammunitionTypeID).
		Order("created_at, id").
		Find(&lots).Error
	if err != nil {
		return nil, dbError(err, "list_ammo_lots", "", "ammunition_type_id", ammunitionTypeID)
	}
	return lots, nil
}

// SaveSavedLocation inserts or updates a saved location.
func (ds *DataStore) SaveSavedLocation(location *SavedLocation) error {
	if err := ds.checkConn(); err != nil {
		return err
	}
	if location.Name == "" {
		return validationError("location name must not be empty", "name", location.Name)
	}
	if err := ds.DB.Save(location).Error; err != nil {
		return dbError(err, "save_saved_location", "", "account_id", location.AccountID)
	}
	return nil
}

// SavedLocations lists an account's saved locations in insertion order.
func (ds *DataStore) SavedLocations(accountID uint) ([]SavedLocation, error) {
	if err := ds.checkConn(); err != nil {
		return nil, err
	}
	var locations []SavedLocation
	err := ds.DB.Where("account_id = ?", accountID).
		Order("created_at, id").
		Find(&locations).Error
	if err != nil {
		return nil, dbError(err, "list_saved_locations", "", "account_id", accountID)
	}
	return locations, nil
}

// firstOwned loads a single row of dest owned by accountID, translating
// gorm.ErrRecordNotFound into a typed not found error.
func (ds *DataStore) firstOwned(dest any, resource string, accountID uint, query string, args ...any) error {
	conds := append([]any{}, args...)
	err := ds.DB.Where("account_id = ?", accountID).Where(query, conds...).First(dest).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFoundError(resource, accountID)
		}
		return dbError(err, "get_"+resource, "", "account_id", accountID)
	}
	return nil
}
