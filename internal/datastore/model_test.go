package datastore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageParentExclusivity(t *testing.T) {
	t.Parallel()

	rifleID := uint(3)
	sessionID := uint(7)

	tests := []struct {
		name    string
		image   Image
		want    ImageParent
		wantErr bool
	}{
		{
			name:  "rifle parent",
			image: Image{RifleProfileID: &rifleID},
			want:  ImageParent{Kind: ParentRifleProfile, ID: 3},
		},
		{
			name:  "session parent",
			image: Image{SessionID: &sessionID},
			want:  ImageParent{Kind: ParentSession, ID: 7},
		},
		{
			name:    "no parent",
			image:   Image{},
			wantErr: true,
		},
		{
			name:    "two parents",
			image:   Image{RifleProfileID: &rifleID, SessionID: &sessionID},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			parent, err := tt.image.Parent()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, parent)
		})
	}
}

func TestImageSetParentClearsOthers(t *testing.T) {
	t.Parallel()

	rifleID := uint(11)
	img := Image{RifleProfileID: &rifleID}

	require.NoError(t, img.SetParent(ImageParent{Kind: ParentGroupEntry, ID: 5}))

	assert.Nil(t, img.RifleProfileID)
	assert.Nil(t, img.SessionID)
	require.NotNil(t, img.GroupEntryID)
	assert.EqualValues(t, 5, *img.GroupEntryID)

	err := img.SetParent(ImageParent{Kind: ParentKind("session_typo"), ID: 5})
	require.Error(t, err)
}

func TestImageBlobKeys(t *testing.T) {
	t.Parallel()

	full := Image{ObjectKey: "images/a/orig.jpg", ThumbKey: "images/a/thumb.jpg"}
	assert.Equal(t, []string{"images/a/orig.jpg", "images/a/thumb.jpg"}, full.BlobKeys())

	noThumb := Image{ObjectKey: "images/a/orig.jpg"}
	assert.Equal(t, []string{"images/a/orig.jpg"}, noThumb.BlobKeys())
}

func TestSaveImageRejectsInvalidParent(t *testing.T) {
	t.Parallel()

	settings := createTestSettings(t)
	ds := createDatabase(t, settings)
	account := createTestAccount(t, ds, "grace")

	img := &Image{AccountID: account.ID, ObjectKey: "images/grace/a.jpg"}
	require.Error(t, ds.SaveImage(img), "image without a parent must be rejected")

	rifle := &RifleProfile{AccountID: account.ID, Name: "backup"}
	require.NoError(t, ds.SaveRifleProfile(rifle))
	require.NoError(t, img.SetParent(ImageParent{Kind: ParentRifleProfile, ID: rifle.ID}))
	require.NoError(t, ds.SaveImage(img))

	images, err := ds.ImagesForParent(account.ID, ImageParent{Kind: ParentRifleProfile, ID: rifle.ID})
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, "images/grace/a.jpg", images[0].ObjectKey)
}
