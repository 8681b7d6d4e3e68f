// model.go this code defines the data model for the application
package datastore

import (
	"time"
)

// Account represents a registered user owning a logbook data graph
type Account struct {
	ID          uint   `gorm:"primaryKey"`
	Username    string `gorm:"uniqueIndex;not null"`
	DisplayName string
	Email       string
	Admin       bool // administrative flag, never transferred between accounts
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Preferences represents per-account display and unit preferences.
// Exactly one row per account.
type Preferences struct {
	ID              uint `gorm:"primaryKey"`
	AccountID       uint `gorm:"uniqueIndex;not null"` // Foreign key to associate with Account
	DistanceUnit    string
	VelocityUnit    string
	TemperatureUnit string
	GroupSizeUnit   string
	Theme           string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// RifleProfile represents a rifle configuration entries are logged against
type RifleProfile struct {
	ID           uint      `gorm:"primaryKey"`
	AccountID    uint      `gorm:"index;not null"` // Foreign key to associate with Account
	Name         string    `gorm:"not null"`
	Caliber      string
	BarrelLength float64   // inches
	TwistRate    string    // e.g. "1:8"
	ScopeHeight  float64   // inches above bore
	ZeroRange    int       // yards
	Notes        string    `gorm:"type:text"`
	CreatedAt    time.Time `gorm:"index"`
	UpdatedAt    time.Time
}

// AmmunitionType represents a factory load or handload recipe
type AmmunitionType struct {
	ID                   uint      `gorm:"primaryKey"`
	AccountID            uint      `gorm:"index;not null"` // Foreign key to associate with Account
	Make                 string
	Bullet               string
	BulletWeight         float64   // grains
	BallisticCoefficient float64
	MuzzleVelocity       float64   // fps, nominal
	Notes                string    `gorm:"type:text"`
	CreatedAt            time.Time `gorm:"index"`
	UpdatedAt            time.Time
}

// AmmoLot represents a purchased or loaded batch of an AmmunitionType
type AmmoLot struct {
	ID               uint      `gorm:"primaryKey"`
	AccountID        uint      `gorm:"index;not null"` // Foreign key to associate with Account
	AmmunitionTypeID uint      `gorm:"index;not null"` // Foreign key to associate with AmmunitionType
	LotNumber        string
	RoundCount       int
	Notes            string    `gorm:"type:text"`
	CreatedAt        time.Time `gorm:"index"`
	UpdatedAt        time.Time
}

// SavedLocation represents a named shooting position reused across sessions
type SavedLocation struct {
	ID        uint      `gorm:"primaryKey"`
	AccountID uint      `gorm:"index;not null"` // Foreign key to associate with Account
	Name      string    `gorm:"not null"`
	Latitude  float64
	Longitude float64
	Elevation float64   // feet
	Notes     string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}

// Session represents one range visit with a single rifle
type Session struct {
	ID              uint      `gorm:"primaryKey"`
	AccountID       uint      `gorm:"index;not null"` // Foreign key to associate with Account
	RifleProfileID  uint      `gorm:"index;not null"` // Foreign key to associate with RifleProfile
	SavedLocationID *uint     `gorm:"index"`          // optional Foreign key to associate with SavedLocation
	Date            string    `gorm:"index"`          // YYYY-MM-DD
	Title           string
	Temperature     float64   // fahrenheit
	WindSpeed       float64   // mph
	WindDirection   string
	Humidity        int       // percent
	Pressure        float64   // inHg
	Notes           string    `gorm:"type:text"`
	CreatedAt       time.Time `gorm:"index"`
	UpdatedAt       time.Time
}

// DopeEntry represents one recorded elevation/windage solution at a distance
type DopeEntry struct {
	ID        uint      `gorm:"primaryKey"`
	AccountID uint      `gorm:"index;not null"` // Foreign key to associate with Account
	SessionID uint      `gorm:"index;not null"` // Foreign key to associate with Session
	Range     int       // yards
	Elevation float64   // MOA
	Windage   float64   // MOA
	Notes     string
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}

// ChronoSubsession represents the chronograph string recorded during a
// session. At most one per session.
type ChronoSubsession struct {
	ID               uint      `gorm:"primaryKey"`
	AccountID        uint      `gorm:"index;not null"`       // Foreign key to associate with Account
	SessionID        uint      `gorm:"uniqueIndex;not null"` // Foreign key to associate with Session
	AmmunitionTypeID uint      `gorm:"index;not null"`       // Foreign key to associate with AmmunitionType
	AmmoLotID        *uint     `gorm:"index"`                // optional Foreign key to associate with AmmoLot
	DeviceName       string
	CreatedAt        time.Time `gorm:"index"`
	UpdatedAt        time.Time
}

// VelocityReading represents a single shot velocity within a chronograph string
type VelocityReading struct {
	ID                 uint      `gorm:"primaryKey"`
	AccountID          uint      `gorm:"index;not null"` // Foreign key to associate with Account
	ChronoSubsessionID uint      `gorm:"index;not null"` // Foreign key to associate with ChronoSubsession
	Shot               int
	Velocity           float64   // fps
	CreatedAt          time.Time `gorm:"index"`
}

// GroupEntry represents one shot group fired during a session
type GroupEntry struct {
	ID               uint      `gorm:"primaryKey"`
	AccountID        uint      `gorm:"index;not null"` // Foreign key to associate with Account
	SessionID        uint      `gorm:"index;not null"` // Foreign key to associate with Session
	AmmunitionTypeID *uint     `gorm:"index"`          // optional Foreign key to associate with AmmunitionType
	AmmoLotID        *uint     `gorm:"index"`          // optional Foreign key to associate with AmmoLot
	Range            int       // yards
	Shots            int
	Notes            string    `gorm:"type:text"`
	CreatedAt        time.Time `gorm:"index"`
	UpdatedAt        time.Time
}

// GroupMeasurement holds measured shot-hole geometry for a group and the
// statistics computed from it. At most one per group entry.
type GroupMeasurement struct {
	ID            uint      `gorm:"primaryKey"`
	AccountID     uint      `gorm:"index;not null"`       // Foreign key to associate with Account
	GroupEntryID  uint      `gorm:"uniqueIndex;not null"` // Foreign key to associate with GroupEntry
	Holes         string    `gorm:"type:text"`            // JSON array of {x,y} hole centers in inches
	ExtremeSpread float64   // inches, recomputed on save
	MeanRadius    float64   // inches, recomputed on save
	CreatedAt     time.Time `gorm:"index"`
	UpdatedAt     time.Time
}

// Image represents an uploaded photo attached to a rifle, session or group
// entry. Exactly one of the three parent references is set. The binary data
// lives in the object store under ObjectKey, with an optional thumbnail
// under ThumbKey.
type Image struct {
	ID             uint      `gorm:"primaryKey"`
	AccountID      uint      `gorm:"index;not null"` // Foreign key to associate with Account
	RifleProfileID *uint     `gorm:"index"`
	SessionID      *uint     `gorm:"index"`
	GroupEntryID   *uint     `gorm:"index"`
	ObjectKey      string    `gorm:"not null"` // object store key of the full image
	ThumbKey       string    // object store key of the thumbnail, may be empty
	Caption        string
	CreatedAt      time.Time `gorm:"index"`
	UpdatedAt      time.Time
}

// ParentKind identifies which entity kind an image is attached to
type ParentKind string

const (
	ParentRifleProfile ParentKind = "rifle_profile"
	ParentSession      ParentKind = "session"
	ParentGroupEntry   ParentKind = "group_entry"
)

// ImageParent is the resolved polymorphic parent of an image
type ImageParent struct {
	Kind ParentKind
	ID   uint
}

// Parent resolves the polymorphic parent reference of the image. It returns
// an error unless exactly one of the three parent columns is set.
func (img *Image) Parent() (ImageParent, error) {
	var parent ImageParent
	set := 0
	if img.RifleProfileID != nil {
		parent = ImageParent{Kind: ParentRifleProfile, ID: *img.RifleProfileID}
		set++
	}
	if img.SessionID != nil {
		parent = ImageParent{Kind: ParentSession, ID: *img.SessionID}
		set++
	}
	if img.GroupEntryID != nil {
		parent = ImageParent{Kind: ParentGroupEntry, ID: *img.GroupEntryID}
		set++
	}
	if set != 1 {
		return ImageParent{}, validationError("image must have exactly one parent reference", "parent_refs", set)
	}
	return parent, nil
}

// SetParent sets the polymorphic parent columns from a resolved parent,
// clearing the other two references.
func (img *Image) SetParent(parent ImageParent) error {
	img.RifleProfileID = nil
	img.SessionID = nil
	img.GroupEntryID = nil
	id := parent.ID
	switch parent.Kind {
	case ParentRifleProfile:
		img.RifleProfileID = &id
	case ParentSession:
		img.SessionID = &id
	case ParentGroupEntry:
		img.GroupEntryID = &id
	default:
		return validationError("unknown image parent kind", "kind", string(parent.Kind))
	}
	return nil
}
