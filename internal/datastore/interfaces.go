// interfaces.go: this code defines the interface for the database operations
package datastore

import (
	"context"
	"fmt"

	"github.com/rangelog/rangelog/internal/conf"
	"gorm.io/gorm"
)

// Interface abstracts the underlying database implementation and defines the
// interface for database operations.
type Interface interface {
	Open() error
	Close() error

	// Begin opens an explicit transaction bound to ctx. The caller owns
	// commit and rollback of the returned handle.
	Begin(ctx context.Context) (*gorm.DB, error)

	// accounts
	CreateAccount(account *Account) error
	GetAccount(id uint) (*Account, error)
	AccountByUsername(username string) (*Account, error)
	Accounts() ([]Account, error)
	GetPreferences(accountID uint) (*Preferences, error)
	SavePreferences(prefs *Preferences) error

	// rifle profiles and ammunition
	SaveRifleProfile(profile *RifleProfile) error
	RifleProfiles(accountID uint) ([]RifleProfile, error)
	DeleteRifleProfile(accountID, id uint) error
	SaveAmmunitionType(ammoType *AmmunitionType) error
	AmmunitionTypes(accountID uint) ([]AmmunitionType, error)
	SaveAmmoLot(lot *AmmoLot) error
	AmmoLots(accountID, ammunitionTypeID uint) ([]AmmoLot, error)
	SaveSavedLocation(location *SavedLocation) error
	SavedLocations(accountID uint) ([]SavedLocation, error)

	// sessions and their children
	SaveSession(session *Session) error
	Sessions(accountID uint) ([]Session, error)
	GetSession(accountID, id uint) (*Session, error)
	DeleteSession(accountID, id uint) error
	SaveDopeEntry(entry *DopeEntry) error
	DopeEntries(accountID, sessionID uint) ([]DopeEntry, error)
	SaveChronoSubsession(sub *ChronoSubsession) error
	GetChronoSubsession(accountID, sessionID uint) (*ChronoSubsession, error)
	SaveVelocityReading(reading *VelocityReading) error
	VelocityReadings(accountID, chronoSubsessionID uint) ([]VelocityReading, error)
	SaveGroupEntry(entry *GroupEntry) error
	GroupEntries(accountID, sessionID uint) ([]GroupEntry, error)
	SaveGroupMeasurement(measurement *GroupMeasurement) error
	GetGroupMeasurement(accountID, groupEntryID uint) (*GroupMeasurement, error)

	// images
	SaveImage(img *Image) error
	GetImage(accountID, id uint) (*Image, error)
	ImagesForParent(accountID uint, parent ImageParent) ([]Image, error)
	AccountImages(accountID uint) ([]Image, error)
	DeleteImage(accountID, id uint) error
}

// DataStore implements Interface using a GORM database.
type DataStore struct {
	DB      *gorm.DB // GORM database instance
	metrics *Metrics
}

// New creates a new datastore instance based on the provided configuration.
// The metrics parameter may be nil, in which case database metrics are not
// recorded.
func New(settings *conf.Settings, dbMetrics *Metrics) Interface {
	switch {
	case settings.Output.SQLite.Enabled:
		return &SQLiteStore{
			DataStore: DataStore{metrics: dbMetrics},
			Settings:  settings,
		}
	case settings.Output.MySQL.Enabled:
		return &MySQLStore{
			DataStore: DataStore{metrics: dbMetrics},
			Settings:  settings,
		}
	default:
		return nil
	}
}

// Begin opens an explicit transaction bound to ctx. The caller is
// responsible for Commit or Rollback on the returned handle.
func (ds *DataStore) Begin(ctx context.Context) (*gorm.DB, error) {
	if ds.DB == nil {
		return nil, stateError(gorm.ErrInvalidDB, "begin_transaction", "connection")
	}
	tx := ds.DB.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, dbError(tx.Error, "begin_transaction", "")
	}
	return tx, nil
}

// migratedModels lists every model auto-migrated on Open, parents first so
// fresh databases can take real foreign key constraints.
func migratedModels() []any {
	return []any{
		&Account{},
		&Preferences{},
		&SavedLocation{},
		&AmmunitionType{},
		&RifleProfile{},
		&AmmoLot{},
		&Session{},
		&GroupEntry{},
		&ChronoSubsession{},
		&DopeEntry{},
		&Image{},
		&GroupMeasurement{},
		&VelocityReading{},
	}
}

// performAutoMigration automates database migrations with error handling.
func performAutoMigration(db *gorm.DB, debug bool, dbType, connectionInfo string) error {
	if err := db.AutoMigrate(migratedModels()...); err != nil {
		return dbError(err, "auto_migration", "", "db_type", dbType)
	}

	if debug {
		getLogger().Debug("Database connection initialized",
			"db_type", dbType,
			"connection", connectionInfo)
	}

	return nil
}

// sortAscendingString returns "ASC" or "DESC" based on the boolean input.
func sortAscendingString(asc bool) string {
	if asc {
		return "ASC"
	}
	return "DESC"
}

// checkConn verifies the store has an open database connection.
func (ds *DataStore) checkConn() error {
	if ds.DB == nil {
		return fmt.Errorf("database connection is not initialized")
	}
	return nil
}
