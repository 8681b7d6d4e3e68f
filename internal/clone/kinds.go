package clone

import (
	"sort"

	"github.com/rangelog/rangelog/internal/datastore"
)

// Kind names one owned entity kind. Values match the relational table
// names and double as metric and audit labels.
type Kind string

// Owned entity kinds.
const (
	KindPreferences       Kind = "preferences"
	KindSavedLocations    Kind = "saved_locations"
	KindAmmunitionTypes   Kind = "ammunition_types"
	KindRifleProfiles     Kind = "rifle_profiles"
	KindAmmoLots          Kind = "ammo_lots"
	KindSessions          Kind = "sessions"
	KindGroupEntries      Kind = "group_entries"
	KindChronoSubsessions Kind = "chrono_subsessions"
	KindDopeEntries       Kind = "dope_entries"
	KindImages            Kind = "images"
	KindGroupMeasurements Kind = "group_measurements"
	KindVelocityReadings  Kind = "velocity_readings"
)

// copyOrder lists every owned entity kind in forward dependency order:
// each kind appears after everything its foreign keys can point at. This
// list is the single ordering authority, deletion runs its exact reverse
// so the two can be reviewed against each other in one place.
var copyOrder = []Kind{
	KindPreferences,
	KindSavedLocations,
	KindAmmunitionTypes,
	KindRifleProfiles,
	KindAmmoLots,
	KindSessions,
	KindGroupEntries,
	KindChronoSubsessions,
	KindDopeEntries,
	KindImages,
	KindGroupMeasurements,
	KindVelocityReadings,
}

// deletionOrder returns the copy order reversed, leaves first.
func deletionOrder() []Kind {
	out := make([]Kind, len(copyOrder))
	for i, kind := range copyOrder {
		out[len(copyOrder)-1-i] = kind
	}
	return out
}

// modelFor returns a fresh model instance for the kind, for GORM
// Model/Delete calls.
func modelFor(kind Kind) any {
	switch kind {
	case KindPreferences:
		return &datastore.Preferences{}
	case KindSavedLocations:
		return &datastore.SavedLocation{}
	case KindAmmunitionTypes:
		return &datastore.AmmunitionType{}
	case KindRifleProfiles:
		return &datastore.RifleProfile{}
	case KindAmmoLots:
		return &datastore.AmmoLot{}
	case KindSessions:
		return &datastore.Session{}
	case KindGroupEntries:
		return &datastore.GroupEntry{}
	case KindChronoSubsessions:
		return &datastore.ChronoSubsession{}
	case KindDopeEntries:
		return &datastore.DopeEntry{}
	case KindImages:
		return &datastore.Image{}
	case KindGroupMeasurements:
		return &datastore.GroupMeasurement{}
	case KindVelocityReadings:
		return &datastore.VelocityReading{}
	default:
		return nil
	}
}

// parentKindFor maps an image parent tag to its entity kind.
func parentKindFor(parent datastore.ParentKind) Kind {
	switch parent {
	case datastore.ParentRifleProfile:
		return KindRifleProfiles
	case datastore.ParentSession:
		return KindSessions
	case datastore.ParentGroupEntry:
		return KindGroupEntries
	default:
		return ""
	}
}

// EntityCounts holds per-kind row counts for one account's owned graph.
type EntityCounts map[Kind]int64

// NewEntityCounts returns an empty count set.
func NewEntityCounts() EntityCounts {
	return make(EntityCounts, len(copyOrder))
}

// Add increments the count for kind by n.
func (c EntityCounts) Add(kind Kind, n int64) {
	if n != 0 {
		c[kind] += n
	}
}

// Total sums the counts across all kinds.
func (c EntityCounts) Total() int64 {
	var total int64
	for _, n := range c {
		total += n
	}
	return total
}

// Equal reports whether both count sets agree on every kind, treating a
// missing kind as zero.
func (c EntityCounts) Equal(other EntityCounts) bool {
	for _, kind := range copyOrder {
		if c[kind] != other[kind] {
			return false
		}
	}
	return true
}

// StringMap converts the counts for audit records, omitting zero kinds.
func (c EntityCounts) StringMap() map[string]int64 {
	if len(c) == 0 {
		return nil
	}
	out := make(map[string]int64, len(c))
	for kind, n := range c {
		if n != 0 {
			out[string(kind)] = n
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Kinds returns the non-zero kinds in stable sorted order, for display.
func (c EntityCounts) Kinds() []Kind {
	kinds := make([]Kind, 0, len(c))
	for kind, n := range c {
		if n != 0 {
			kinds = append(kinds, kind)
		}
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
