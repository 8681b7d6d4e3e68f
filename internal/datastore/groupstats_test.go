package datastore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtremeSpread(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		holes []ShotHole
		want  float64
	}{
		{name: "empty", holes: nil, want: 0},
		{name: "single hole", holes: []ShotHole{{X: 1, Y: 1}}, want: 0},
		{
			name:  "horizontal pair",
			holes: []ShotHole{{X: 0, Y: 0}, {X: 1.5, Y: 0}},
			want:  1.5,
		},
		{
			name: "widest pair wins",
			holes: []ShotHole{
				{X: 0, Y: 0},
				{X: 0.5, Y: 0.5},
				{X: 3, Y: 4}, // 5.0 from the first hole
			},
			want: 5,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, ExtremeSpread(tt.holes), 1e-9)
		})
	}
}

func TestMeanRadius(t *testing.T) {
	t.Parallel()

	// Four holes on a unit square have their centroid in the middle,
	// each at distance sqrt(0.5).
	holes := []ShotHole{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}}
	assert.InDelta(t, 0.7071067811865476, MeanRadius(holes), 1e-9)

	assert.Zero(t, MeanRadius(nil))
	assert.Zero(t, MeanRadius([]ShotHole{{X: 2, Y: 3}}), "single hole sits on the centroid")
}

func TestParseHoles(t *testing.T) {
	t.Parallel()

	holes, err := ParseHoles(`[{"x":0.1,"y":-0.2},{"x":1,"y":0}]`)
	require.NoError(t, err)
	require.Len(t, holes, 2)
	assert.InDelta(t, -0.2, holes[0].Y, 1e-9)

	empty, err := ParseHoles("")
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = ParseHoles("{not json")
	require.Error(t, err)
}

func TestSaveGroupMeasurementRecomputesStats(t *testing.T) {
	t.Parallel()

	settings := createTestSettings(t)
	ds := createDatabase(t, settings)
	account := createTestAccount(t, ds, "heidi")

	rifle := &RifleProfile{AccountID: account.ID, Name: "f-class"}
	require.NoError(t, ds.SaveRifleProfile(rifle))
	session := &Session{AccountID: account.ID, RifleProfileID: rifle.ID, Date: "2026-07-08"}
	require.NoError(t, ds.SaveSession(session))
	group := &GroupEntry{AccountID: account.ID, SessionID: session.ID, Range: 600, Shots: 3}
	require.NoError(t, ds.SaveGroupEntry(group))

	measurement := &GroupMeasurement{
		AccountID:    account.ID,
		GroupEntryID: group.ID,
		Holes:        `[{"x":0,"y":0},{"x":3,"y":4}]`,
		// Stale values must be overwritten on save.
		ExtremeSpread: 99,
		MeanRadius:    99,
	}
	require.NoError(t, ds.SaveGroupMeasurement(measurement))

	loaded, err := ds.GetGroupMeasurement(account.ID, group.ID)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, loaded.ExtremeSpread, 1e-9)
	assert.InDelta(t, 2.5, loaded.MeanRadius, 1e-9)

	// Saving again replaces the singleton measurement for the entry.
	require.NoError(t, ds.SaveGroupMeasurement(&GroupMeasurement{
		AccountID:    account.ID,
		GroupEntryID: group.ID,
		Holes:        `[{"x":0,"y":0},{"x":1,"y":0}]`,
	}))

	loaded, err = ds.GetGroupMeasurement(account.ID, group.ID)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, loaded.ExtremeSpread, 1e-9)

	store, ok := ds.(*SQLiteStore)
	require.True(t, ok)
	var count int64
	require.NoError(t, store.DB.Model(&GroupMeasurement{}).Where("group_entry_id = ?", group.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestSaveGroupMeasurementRejectsBadGeometry(t *testing.T) {
	t.Parallel()

	settings := createTestSettings(t)
	ds := createDatabase(t, settings)
	account := createTestAccount(t, ds, "ivan")

	err := ds.SaveGroupMeasurement(&GroupMeasurement{
		AccountID:    account.ID,
		GroupEntryID: 12345,
		Holes:        "not json",
	})
	require.Error(t, err)
}
