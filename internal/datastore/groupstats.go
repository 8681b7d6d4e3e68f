// groupstats.go shot group geometry and the statistics stored with each
// group measurement
package datastore

import (
	"encoding/json"
	"math"

	"github.com/rangelog/rangelog/internal/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ShotHole is one bullet hole center on the target, in inches relative to
// the point of aim.
type ShotHole struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ParseHoles decodes the JSON hole list stored on a group measurement.
func ParseHoles(holesJSON string) ([]ShotHole, error) {
	if holesJSON == "" {
		return nil, nil
	}
	var holes []ShotHole
	if err := json.Unmarshal([]byte(holesJSON), &holes); err != nil {
		return nil, validationError("invalid shot hole geometry", "holes", holesJSON)
	}
	return holes, nil
}

// ExtremeSpread returns the largest center-to-center distance between any
// two holes. Fewer than two holes yield zero.
func ExtremeSpread(holes []ShotHole) float64 {
	spread := 0.0
	for i := range holes {
		for j := i + 1; j < len(holes); j++ {
			d := math.Hypot(holes[i].X-holes[j].X, holes[i].Y-holes[j].Y)
			if d > spread {
				spread = d
			}
		}
	}
	return spread
}

// MeanRadius returns the average distance of the holes from the group
// centroid. An empty group yields zero.
func MeanRadius(holes []ShotHole) float64 {
	if len(holes) == 0 {
		return 0
	}
	var cx, cy float64
	for _, h := range holes {
		cx += h.X
		cy += h.Y
	}
	cx /= float64(len(holes))
	cy /= float64(len(holes))

	var sum float64
	for _, h := range holes {
		sum += math.Hypot(h.X-cx, h.Y-cy)
	}
	return sum / float64(len(holes))
}

// SaveGroupMeasurement upserts the measurement of a group entry, keyed on
// group_entry_id. Extreme spread and mean radius are recomputed from the
// hole geometry on every save so the stored statistics never drift from it.
func (ds *DataStore) SaveGroupMeasurement(measurement *GroupMeasurement) error {
	if err := ds.checkConn(); err != nil {
		return err
	}
	if measurement.GroupEntryID == 0 {
		return validationError("group measurement requires a group entry", "group_entry_id", measurement.GroupEntryID)
	}

	holes, err := ParseHoles(measurement.Holes)
	if err != nil {
		return err
	}
	measurement.ExtremeSpread = ExtremeSpread(holes)
	measurement.MeanRadius = MeanRadius(holes)

	err = ds.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "group_entry_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"holes", "extreme_spread", "mean_radius", "updated_at",
		}),
	}).Create(measurement).Error
	if err != nil {
		return dbError(err, "save_group_measurement", "", "group_entry_id", measurement.GroupEntryID)
	}
	return nil
}

// GetGroupMeasurement retrieves the measurement of a group entry.
func (ds *DataStore) GetGroupMeasurement(accountID, groupEntryID uint) (*GroupMeasurement, error) {
	if err := ds.checkConn(); err != nil {
		return nil, err
	}
	var measurement GroupMeasurement
	err := ds.DB.Where("account_id = ? AND group_entry_id = ?", accountID, groupEntryID).
		First(&measurement).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("group measurement", groupEntryID)
		}
		return nil, dbError(err, "get_group_measurement", "", "group_entry_id", groupEntryID)
	}
	return &measurement, nil
}
