// sessions.go range session operations and their child entities
package datastore

import (
	"gorm.io/gorm"
)

// SaveSession inserts or updates a range session.
func (ds *DataStore) SaveSession(session *Session) error {
	if err := ds.checkConn(); err != nil {
		return err
	}
	if session.RifleProfileID == 0 {
		return validationError("session requires a rifle profile", "rifle_profile_id", session.RifleProfileID)
	}
	if err := ds.DB.Save(session).Error; err != nil {
		return dbError(err, "save_session", "", "account_id", session.AccountID)
	}
	return nil
}

// Sessions lists an account's sessions in insertion order.
func (ds *DataStore) Sessions(accountID uint) ([]Session, error) {
	if err := ds.checkConn(); err != nil {
		return nil, err
	}
	var sessions []Session
	err := ds.DB.Where("account_id = ?", accountID).
		Order("created_at, id").
		Find(&sessions).Error
	if err != nil {
		return nil, dbError(err, "list_sessions", "", "account_id", accountID)
	}
	return sessions, nil
}

// GetSession retrieves one session owned by the account.
func (ds *DataStore) GetSession(accountID, id uint) (*Session, error) {
	if err := ds.checkConn(); err != nil {
		return nil, err
	}
	var session Session
	if err := ds.firstOwned(&session, "session", accountID, "id = ?", id); err != nil {
		return nil, err
	}
	return &session, nil
}

// DeleteSession removes a session and all rows hanging off it in one
// transaction, children first.
func (ds *DataStore) DeleteSession(accountID, id uint) error {
	if err := ds.checkConn(); err != nil {
		return err
	}
	return ds.DB.Transaction(func(tx *gorm.DB) error {
		var session Session
		if err := tx.Where("account_id = ?", accountID).First(&session, id).Error; err != nil {
			return notFoundError("session", id)
		}

		var subIDs []uint
		if err := tx.Model(&ChronoSubsession{}).
			Where("session_id = ?", id).Pluck("id", &subIDs).Error; err != nil {
			return dbError(err, "delete_session", "", "session_id", id)
		}
		if len(subIDs) > 0 {
			if err := tx.Where("chrono_subsession_id IN ?", subIDs).
				Delete(&VelocityReading{}).Error; err != nil {
				return dbError(err, "delete_session", "", "session_id", id)
			}
		}

		var groupIDs []uint
		if err := tx.Model(&GroupEntry{}).
			Where("session_id = ?", id).Pluck("id", &groupIDs).Error; err != nil {
			return dbError(err, "delete_session", "", "session_id", id)
		}
		if len(groupIDs) > 0 {
			if err := tx.Where("group_entry_id IN ?", groupIDs).
				Delete(&GroupMeasurement{}).Error; err != nil {
				return dbError(err, "delete_session", "", "session_id", id)
			}
			if err := tx.Where("group_entry_id IN ?", groupIDs).
				Delete(&Image{}).Error; err != nil {
				return dbError(err, "delete_session", "", "session_id", id)
			}
		}

		for _, model := range []any{&Image{}, &DopeEntry{}, &ChronoSubsession{}, &GroupEntry{}} {
			if err := tx.Where("session_id = ?", id).Delete(model).Error; err != nil {
				return dbError(err, "delete_session", "", "session_id", id)
			}
		}

		if err := tx.Delete(&Session{}, id).Error; err != nil {
			return dbError(err, "delete_session", "", "session_id", id)
		}
		return nil
	})
}

// SaveDopeEntry inserts or updates a DOPE entry.
func (ds *DataStore) SaveDopeEntry(entry *DopeEntry) error {
	if err := ds.checkConn(); err != nil {
		return err
	}
	if entry.SessionID == 0 {
		return validationError("dope entry requires a session", "session_id", entry.SessionID)
	}
	if err := ds.DB.Save(entry).Error; err != nil {
		return dbError(err, "save_dope_entry", "", "session_id", entry.SessionID)
	}
	return nil
}

// DopeEntries lists the DOPE entries of a session in insertion order.
func (ds *DataStore) DopeEntries(accountID, sessionID uint) ([]DopeEntry, error) {
	if err := ds.checkConn(); err != nil {
		return nil, err
	}
	var entries []DopeEntry
	err := ds.DB.Where("account_id = ? AND session_id = ?", accountID, sessionID).
		Order("created_at, id").
		Find(&entries).Error
	if err != nil {
		return nil, dbError(err, "list_dope_entries", "", "session_id", sessionID)
	}
	return entries, nil
}

// SaveChronoSubsession inserts or updates the chronograph string of a
// session. The unique index on session_id enforces at most one per session.
func (ds *DataStore) SaveChronoSubsession(sub *ChronoSubsession) error {
	if err := ds.checkConn(); err != nil {
		return err
	}
	if sub.SessionID == 0 {
		return validationError("chrono subsession requires a session", "session_id", sub.SessionID)
	}
	if sub.AmmunitionTypeID == 0 {
		return validationError("chrono subsession requires an ammunition type", "ammunition_type_id", sub.AmmunitionTypeID)
	}
	if err := ds.DB.Save(sub).Error; err != nil {
		if isConstraintViolation(err) {
			return conflictError(err, "save_chrono_subsession", "duplicate_subsession", "session_id", sub.SessionID)
		}
		return dbError(err, "save_chrono_subsession", "", "session_id", sub.SessionID)
	}
	return nil
}

// GetChronoSubsession retrieves the chronograph string for a session.
func (ds *DataStore) GetChronoSubsession(accountID, sessionID uint) (*ChronoSubsession, error) {
	if err := ds.checkConn(); err != nil {
		return nil, err
	}
	var sub ChronoSubsession
	if err := ds.firstOwned(&sub, "chrono subsession", accountID, "session_id = ?", sessionID); err != nil {
		return nil, err
	}
	return &sub, nil
}

// SaveVelocityReading inserts a velocity reading.
func (ds *DataStore) SaveVelocityReading(reading *VelocityReading) error {
	if err := ds.checkConn(); err != nil {
		return err
	}
	if reading.ChronoSubsessionID == 0 {
		return validationError("velocity reading requires a chrono subsession", "chrono_subsession_id", reading.ChronoSubsessionID)
	}
	if err := ds.DB.Create(reading).Error; err != nil {
		return dbError(err, "save_velocity_reading", "", "chrono_subsession_id", reading.ChronoSubsessionID)
	}
	return nil
}

// VelocityReadings lists the readings of a chronograph string in shot order.
func (ds *DataStore) VelocityReadings(accountID, chronoSubsessionID uint) ([]VelocityReading, error) {
	if err := ds.checkConn(); err != nil {
		return nil, err
	}
	var readings []VelocityReading
	err := ds.DB.Where("account_id = ? AND chrono_subsession_id = ?", accountID, chronoSubsessionID).
		Order("created_at, id").
		Find(&readings).Error
	if err != nil {
		return nil, dbError(err, "list_velocity_readings", "", "chrono_subsession_id", chronoSubsessionID)
	}
	return readings, nil
}

// SaveGroupEntry inserts or updates a group entry.
func (ds *DataStore) SaveGroupEntry(entry *GroupEntry) error {
	if err := ds.checkConn(); err != nil {
		return err
	}
	if entry.SessionID == 0 {
		return validationError("group entry requires a session", "session_id", entry.SessionID)
	}
	if err := ds.DB.Save(entry).Error; err != nil {
		return dbError(err, "save_group_entry", "", "session_id", entry.SessionID)
	}
	return nil
}

// GroupEntries lists the group entries of a session in insertion order.
func (ds *DataStore) GroupEntries(accountID, sessionID uint) ([]GroupEntry, error) {
	if err := ds.checkConn(); err != nil {
		return nil, err
	}
	var entries []GroupEntry
	err := ds.DB.Where("account_id = ? AND session_id = ?", accountID, sessionID).
		Order("created_at, id").
		Find(&entries).Error
	if err != nil {
		return nil, dbError(err, "list_group_entries", "", "session_id", sessionID)
	}
	return entries, nil
}
