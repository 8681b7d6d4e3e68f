package images

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rangelog/rangelog/internal/blobstore"
	"github.com/rangelog/rangelog/internal/conf"
	"github.com/rangelog/rangelog/internal/datastore"
)

func newTestSettings(t *testing.T) *conf.Settings {
	t.Helper()
	settings := &conf.Settings{}
	settings.Main.Name = "rangelog-test"
	settings.Output.SQLite.Enabled = true
	settings.Output.SQLite.Path = filepath.Join(t.TempDir(), "images-test.db")
	settings.Images.MaxUploadMB = 1
	settings.Images.URLTTL = time.Minute
	settings.Images.URLCacheTTL = 30 * time.Second
	return settings
}

func newTestEnv(t *testing.T) (datastore.Interface, *blobstore.MemoryStore, *Service, *datastore.Account) {
	t.Helper()
	settings := newTestSettings(t)

	ds := datastore.New(settings, nil)
	require.NoError(t, ds.Open())
	t.Cleanup(func() { require.NoError(t, ds.Close()) })

	account := &datastore.Account{Username: "alice", DisplayName: "Alice"}
	require.NoError(t, ds.CreateAccount(account))

	store := blobstore.NewMemoryStore()
	svc := NewService(settings, ds, store)
	return ds, store, svc, account
}

func saveRifle(t *testing.T, ds datastore.Interface, accountID uint) *datastore.RifleProfile {
	t.Helper()
	rifle := &datastore.RifleProfile{AccountID: accountID, Name: "Tikka T3x", Caliber: "6.5 Creedmoor"}
	require.NoError(t, ds.SaveRifleProfile(rifle))
	return rifle
}

func TestNewKeyScheme(t *testing.T) {
	t.Parallel()
	keyPattern := regexp.MustCompile(`^images/7/[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\.jpg$`)
	key := NewKey(7, "IMG_2041.JPG")
	assert.Regexp(t, keyPattern, key)

	// unsafe extensions are dropped, not rejected
	bare := NewKey(7, "weird.name.tar.gz2043!")
	assert.NotContains(t, bare, "!")
	assert.True(t, strings.HasPrefix(bare, "images/7/"))

	assert.NotEqual(t, NewKey(7, "a.jpg"), NewKey(7, "a.jpg"), "keys must be unique per call")
}

func TestAttachStoresPairAndRow(t *testing.T) {
	t.Parallel()
	ds, store, svc, account := newTestEnv(t)
	rifle := saveRifle(t, ds, account.ID)

	img, err := svc.Attach(context.Background(), account.ID,
		datastore.ImageParent{Kind: datastore.ParentRifleProfile, ID: rifle.ID},
		Upload{Filename: "rifle.jpg", ContentType: "image/jpeg", Reader: strings.NewReader("original-bytes")},
		&Upload{Filename: "rifle_thumb.jpg", ContentType: "image/jpeg", Reader: strings.NewReader("thumb-bytes")},
		"new stock")
	require.NoError(t, err)
	require.NotZero(t, img.ID)
	assert.True(t, strings.HasPrefix(img.ObjectKey, fmt.Sprintf("images/%d/", account.ID)))
	assert.True(t, strings.HasPrefix(img.ThumbKey, fmt.Sprintf("images/%d/", account.ID)))
	assert.Equal(t, 2, store.Len())

	rows, err := ds.ImagesForParent(account.ID, datastore.ImageParent{Kind: datastore.ParentRifleProfile, ID: rifle.ID})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "new stock", rows[0].Caption)

	info, err := store.Head(context.Background(), img.ObjectKey)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", info.ContentType)
	assert.Equal(t, "rifle.jpg", info.Metadata["filename"])
}

func TestAttachWithoutThumbnail(t *testing.T) {
	t.Parallel()
	ds, store, svc, account := newTestEnv(t)
	rifle := saveRifle(t, ds, account.ID)

	img, err := svc.Attach(context.Background(), account.ID,
		datastore.ImageParent{Kind: datastore.ParentRifleProfile, ID: rifle.ID},
		Upload{Filename: "only.jpg", Reader: strings.NewReader("x")},
		nil, "")
	require.NoError(t, err)
	assert.Empty(t, img.ThumbKey)
	assert.Equal(t, 1, store.Len())
}

// failingPutStore passes the first failAfter puts through and rejects the rest.
type failingPutStore struct {
	blobstore.Store
	failAfter int
	puts      int
}

func (f *failingPutStore) Put(ctx context.Context, key string, r io.Reader, opts blobstore.PutOptions) (blobstore.Info, error) {
	f.puts++
	if f.puts > f.failAfter {
		return blobstore.Info{}, fmt.Errorf("store offline")
	}
	return f.Store.Put(ctx, key, r, opts)
}

func TestAttachCompensatesWhenThumbnailPutFails(t *testing.T) {
	t.Parallel()
	ds, store, _, account := newTestEnv(t)
	rifle := saveRifle(t, ds, account.ID)

	flaky := &failingPutStore{Store: store, failAfter: 1}
	svc := NewService(newTestSettings(t), ds, flaky)

	_, err := svc.Attach(context.Background(), account.ID,
		datastore.ImageParent{Kind: datastore.ParentRifleProfile, ID: rifle.ID},
		Upload{Filename: "orig.jpg", Reader: strings.NewReader("orig")},
		&Upload{Filename: "thumb.jpg", Reader: strings.NewReader("thumb")},
		"")
	require.Error(t, err)
	assert.Equal(t, 0, store.Len(), "failed attach must not leave blobs behind")

	rows, err := ds.AccountImages(account.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestAttachCompensatesOnInvalidParent(t *testing.T) {
	t.Parallel()
	_, store, svc, account := newTestEnv(t)

	_, err := svc.Attach(context.Background(), account.ID,
		datastore.ImageParent{Kind: "turret", ID: 1},
		Upload{Filename: "orig.jpg", Reader: strings.NewReader("orig")},
		nil, "")
	require.Error(t, err)
	assert.Equal(t, 0, store.Len())
}

func TestAttachEnforcesUploadLimit(t *testing.T) {
	t.Parallel()
	ds, store, svc, account := newTestEnv(t)
	rifle := saveRifle(t, ds, account.ID)

	oversized := strings.NewReader(strings.Repeat("a", 1<<20+1))
	_, err := svc.Attach(context.Background(), account.ID,
		datastore.ImageParent{Kind: datastore.ParentRifleProfile, ID: rifle.ID},
		Upload{Filename: "huge.jpg", Reader: oversized},
		nil, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upload limit")
	assert.Equal(t, 0, store.Len())
}

func TestRemoveDeletesRowAndBlobs(t *testing.T) {
	t.Parallel()
	ds, store, svc, account := newTestEnv(t)
	rifle := saveRifle(t, ds, account.ID)

	img, err := svc.Attach(context.Background(), account.ID,
		datastore.ImageParent{Kind: datastore.ParentRifleProfile, ID: rifle.ID},
		Upload{Filename: "orig.jpg", Reader: strings.NewReader("orig")},
		&Upload{Filename: "thumb.jpg", Reader: strings.NewReader("thumb")},
		"")
	require.NoError(t, err)
	require.Equal(t, 2, store.Len())

	require.NoError(t, svc.Remove(context.Background(), account.ID, img.ID))
	assert.Equal(t, 0, store.Len())

	_, err = ds.GetImage(account.ID, img.ID)
	assert.Error(t, err)
}

// countingPresignStore counts PresignURL calls reaching the wrapped store.
type countingPresignStore struct {
	blobstore.Store
	presigns int
}

func (c *countingPresignStore) PresignURL(ctx context.Context, key string, opts blobstore.SignedURLOptions) (string, error) {
	c.presigns++
	return c.Store.PresignURL(ctx, key, opts)
}

func TestPresignedURLCaching(t *testing.T) {
	t.Parallel()
	ds, _, _, _ := newTestEnv(t)

	fsStore, err := blobstore.NewFSStore(filepath.Join(t.TempDir(), "blobs"))
	require.NoError(t, err)
	counting := &countingPresignStore{Store: fsStore}
	svc := NewService(newTestSettings(t), ds, counting)

	ctx := context.Background()
	_, err = fsStore.Put(ctx, "images/1/a.jpg", strings.NewReader("x"), blobstore.PutOptions{})
	require.NoError(t, err)

	first, err := svc.PresignedURL(ctx, "images/1/a.jpg")
	require.NoError(t, err)
	second, err := svc.PresignedURL(ctx, "images/1/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, counting.presigns, "second lookup must come from the cache")

	svc.FlushURLCache()
	_, err = svc.PresignedURL(ctx, "images/1/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, 2, counting.presigns)
}
