// accounts.go account and preferences operations
package datastore

import (
	"github.com/rangelog/rangelog/internal/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreateAccount inserts a new account row.
func (ds *DataStore) CreateAccount(account *Account) error {
	if err := ds.checkConn(); err != nil {
		return err
	}
	if account.Username == "" {
		return validationError("account username must not be empty", "username", account.Username)
	}
	if err := ds.DB.Create(account).Error; err != nil {
		if isConstraintViolation(err) {
			return conflictError(err, "create_account", "duplicate_username", "username", account.Username)
		}
		return dbError(err, "create_account", "")
	}
	return nil
}

// GetAccount retrieves an account by its ID.
func (ds *DataStore) GetAccount(id uint) (*Account, error) {
	if err := ds.checkConn(); err != nil {
		return nil, err
	}
	var account Account
	if err := ds.DB.First(&account, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("account", id)
		}
		return nil, dbError(err, "get_account", "", "account_id", id)
	}
	return &account, nil
}

// AccountByUsername retrieves an account by its unique username.
func (ds *DataStore) AccountByUsername(username string) (*Account, error) {
	if err := ds.checkConn(); err != nil {
		return nil, err
	}
	var account Account
	if err := ds.DB.Where("username = ?", username).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("account", username)
		}
		return nil, dbError(err, "account_by_username", "", "username", username)
	}
	return &account, nil
}

// Accounts lists every registered account ordered by id.
func (ds *DataStore) Accounts() ([]Account, error) {
	if err := ds.checkConn(); err != nil {
		return nil, err
	}
	var accounts []Account
	if err := ds.DB.Order("id").Find(&accounts).Error; err != nil {
		return nil, dbError(err, "list_accounts", "")
	}
	return accounts, nil
}

// GetPreferences retrieves the preferences row for an account. Accounts
// created before preferences existed may not have one.
func (ds *DataStore) GetPreferences(accountID uint) (*Preferences, error) {
	if err := ds.checkConn(); err != nil {
		return nil, err
	}
	var prefs Preferences
	if err := ds.DB.Where("account_id = ?", accountID).First(&prefs).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("preferences", accountID)
		}
		return nil, dbError(err, "get_preferences", "", "account_id", accountID)
	}
	return &prefs, nil
}

// SavePreferences upserts the singleton preferences row for an account,
// keyed on account_id.
func (ds *DataStore) SavePreferences(prefs *Preferences) error {
	if err := ds.checkConn(); err != nil {
		return err
	}
	err := ds.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "account_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"distance_unit", "velocity_unit", "temperature_unit",
			"group_size_unit", "theme", "updated_at",
		}),
	}).Create(prefs).Error
	if err != nil {
		return dbError(err, "save_preferences", "", "account_id", prefs.AccountID)
	}
	return nil
}
