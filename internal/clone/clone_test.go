package clone

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rangelog/rangelog/internal/audit"
	"github.com/rangelog/rangelog/internal/datastore"
)

func TestExecuteReplacesTargetGraph(t *testing.T) {
	t.Parallel()

	env := createTestEnv(t)
	source := env.createAccount(t, "alice", false)
	target := env.createAccount(t, "bob", false)

	src := env.seedSourceGraph(t, source.ID)

	// target starts with one rifle of its own, carrying a photo
	oldRifle := &datastore.RifleProfile{AccountID: target.ID, Name: "old rifle"}
	require.NoError(t, env.ds.SaveRifleProfile(oldRifle))
	oldImage := env.attachImage(t, target.ID,
		datastore.ImageParent{Kind: datastore.ParentRifleProfile, ID: oldRifle.ID}, "old", true)

	engine := env.newTestEngine(t, nil)
	result, err := engine.Execute(context.Background(), source.ID, target.ID, "admin")
	require.NoError(t, err)

	assert.Equal(t, int64(1), result.DeletedCounts[KindRifleProfiles])
	assert.Equal(t, int64(1), result.DeletedCounts[KindImages])
	assert.Equal(t, int64(1), result.CopiedCounts[KindRifleProfiles])
	assert.Equal(t, int64(1), result.CopiedCounts[KindAmmunitionTypes])
	assert.Equal(t, int64(1), result.CopiedCounts[KindSessions])
	assert.Equal(t, int64(3), result.CopiedCounts[KindDopeEntries])
	assert.Equal(t, int64(1), result.CopiedCounts[KindChronoSubsessions])
	assert.Equal(t, int64(5), result.CopiedCounts[KindVelocityReadings])
	assert.Equal(t, int64(2), result.CopiedCounts[KindImages])
	assert.Positive(t, result.BlobBytesCopied)
	assert.False(t, result.CompletedAt.IsZero())

	// the target now mirrors the source graph under fresh identifiers
	rifles, err := env.ds.RifleProfiles(target.ID)
	require.NoError(t, err)
	require.Len(t, rifles, 1)
	assert.Equal(t, "match rifle", rifles[0].Name)
	assert.NotEqual(t, src.rifle.ID, rifles[0].ID)

	sessions, err := env.ds.Sessions(target.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, rifles[0].ID, sessions[0].RifleProfileID,
		"copied session must reference the copied rifle")

	// the replaced rifle and its blobs are gone
	oldRifles, err := env.ds.RifleProfiles(target.ID)
	require.NoError(t, err)
	for _, r := range oldRifles {
		assert.NotEqual(t, oldRifle.ID, r.ID)
	}
	assert.False(t, env.blobExists(t, oldImage.ObjectKey), "replaced image blob must be cleaned up")
	assert.False(t, env.blobExists(t, oldImage.ThumbKey), "replaced thumbnail blob must be cleaned up")

	// copied images point at fresh target-scoped blobs, source blobs untouched
	imgs, err := env.ds.AccountImages(target.ID)
	require.NoError(t, err)
	require.Len(t, imgs, 2)
	for _, img := range imgs {
		assert.NotEqual(t, src.rifleImage.ObjectKey, img.ObjectKey)
		assert.NotEqual(t, src.sessImage.ObjectKey, img.ObjectKey)
		assert.Contains(t, img.ObjectKey, fmt.Sprintf("images/%d/", target.ID))
		assert.True(t, env.blobExists(t, img.ObjectKey))
		if img.ThumbKey != "" {
			assert.True(t, env.blobExists(t, img.ThumbKey))
		}
	}
	assert.True(t, env.blobExists(t, src.rifleImage.ObjectKey), "source blobs must survive the clone")
	assert.True(t, env.blobExists(t, src.sessImage.ObjectKey))
}

func TestExecuteCopiedImagesHaveExactlyOneParent(t *testing.T) {
	t.Parallel()

	env := createTestEnv(t)
	source := env.createAccount(t, "alice", false)
	target := env.createAccount(t, "bob", false)
	env.seedSourceGraph(t, source.ID)

	engine := env.newTestEngine(t, nil)
	_, err := engine.Execute(context.Background(), source.ID, target.ID, "admin")
	require.NoError(t, err)

	imgs, err := env.ds.AccountImages(target.ID)
	require.NoError(t, err)
	require.Len(t, imgs, 2)
	for i := range imgs {
		parent, err := imgs[i].Parent()
		require.NoError(t, err, "copied image %d must have exactly one parent reference", imgs[i].ID)
		assert.NotZero(t, parent.ID)
		assert.Equal(t, target.ID, imgs[i].AccountID)
	}
}

func TestExecuteBlobFailureRollsBackEverything(t *testing.T) {
	t.Parallel()

	env := createTestEnv(t)
	source := env.createAccount(t, "alice", false)
	target := env.createAccount(t, "bob", false)
	env.seedSourceGraph(t, source.ID)

	oldRifle := &datastore.RifleProfile{AccountID: target.ID, Name: "old rifle"}
	require.NoError(t, env.ds.SaveRifleProfile(oldRifle))
	oldImage := env.attachImage(t, target.ID,
		datastore.ImageParent{Kind: datastore.ParentRifleProfile, ID: oldRifle.ID}, "old", false)

	before := env.countsFor(t, target.ID)
	blobsBefore := env.store.Len()

	// the first image (two objects, full + thumb) duplicates fine, the
	// second image's copy fails
	store := &failingStore{Store: env.store, copiesLeft: 2}
	engine := env.newTestEngine(t, store)

	_, err := engine.Execute(context.Background(), source.ID, target.ID, "admin")
	require.Error(t, err)
	assert.True(t, IsStorageError(err), "expected storage error, got %v", err)

	// relational state of the target is untouched
	after := env.countsFor(t, target.ID)
	assert.True(t, before.Equal(after), "target rows changed by a failed clone: %v != %v", before, after)

	loaded, err := env.ds.GetImage(target.ID, oldImage.ID)
	require.NoError(t, err)
	assert.Equal(t, oldImage.ObjectKey, loaded.ObjectKey)
	assert.True(t, env.blobExists(t, oldImage.ObjectKey), "failed clone must not destroy target blobs")

	// compensation removed the blobs written before the failure
	assert.Equal(t, blobsBefore, env.store.Len(),
		"blobs written by the rolled back run must be deleted")
}

func TestExecuteAdminFlagNeverEscalates(t *testing.T) {
	t.Parallel()

	env := createTestEnv(t)
	source := env.createAccount(t, "root", true)
	target := env.createAccount(t, "mortal", false)
	env.seedSourceGraph(t, source.ID)

	engine := env.newTestEngine(t, nil)
	_, err := engine.Execute(context.Background(), source.ID, target.ID, "admin")
	require.NoError(t, err)

	loaded, err := env.ds.GetAccount(target.ID)
	require.NoError(t, err)
	assert.False(t, loaded.Admin, "cloning from an admin source must not grant admin")

	src, err := env.ds.GetAccount(source.ID)
	require.NoError(t, err)
	assert.True(t, src.Admin)
}

func TestExecuteIsIdempotent(t *testing.T) {
	t.Parallel()

	env := createTestEnv(t)
	source := env.createAccount(t, "alice", false)
	target := env.createAccount(t, "bob", false)
	env.seedSourceGraph(t, source.ID)

	engine := env.newTestEngine(t, nil)

	first, err := engine.Execute(context.Background(), source.ID, target.ID, "admin")
	require.NoError(t, err)
	second, err := engine.Execute(context.Background(), source.ID, target.ID, "admin")
	require.NoError(t, err)

	assert.True(t, first.CopiedCounts.Equal(second.CopiedCounts),
		"copied counts differ between runs: %v != %v", first.CopiedCounts, second.CopiedCounts)
	assert.True(t, second.DeletedCounts.Equal(first.CopiedCounts),
		"second run must delete exactly what the first run copied")

	// no blob accumulation: the second run's cleanup removed the first
	// run's copies
	imgs, err := env.ds.AccountImages(target.ID)
	require.NoError(t, err)
	assert.Len(t, imgs, 2)
}

func TestPreviewAgreesWithExecute(t *testing.T) {
	t.Parallel()

	env := createTestEnv(t)
	source := env.createAccount(t, "alice", false)
	target := env.createAccount(t, "bob", false)
	env.seedSourceGraph(t, source.ID)
	require.NoError(t, env.ds.SaveRifleProfile(&datastore.RifleProfile{AccountID: target.ID, Name: "doomed"}))

	engine := env.newTestEngine(t, nil)

	preview, err := engine.Preview(context.Background(), source.ID, target.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", preview.SourceUsername)
	assert.Equal(t, "bob", preview.TargetUsername)

	result, err := engine.Execute(context.Background(), source.ID, target.ID, "admin")
	require.NoError(t, err)

	assert.True(t, preview.ToCopy.Equal(result.CopiedCounts),
		"preview to-copy %v disagrees with executed copy %v", preview.ToCopy, result.CopiedCounts)
	assert.True(t, preview.ToDelete.Equal(result.DeletedCounts),
		"preview to-delete %v disagrees with executed delete %v", preview.ToDelete, result.DeletedCounts)
}

func TestPreviewIsSideEffectFree(t *testing.T) {
	t.Parallel()

	env := createTestEnv(t)
	source := env.createAccount(t, "alice", false)
	target := env.createAccount(t, "bob", false)
	env.seedSourceGraph(t, source.ID)
	require.NoError(t, env.ds.SaveRifleProfile(&datastore.RifleProfile{AccountID: target.ID, Name: "kept"}))

	sourceBefore := env.countsFor(t, source.ID)
	targetBefore := env.countsFor(t, target.ID)
	blobsBefore := env.store.Len()

	engine := env.newTestEngine(t, nil)
	_, err := engine.Preview(context.Background(), source.ID, target.ID)
	require.NoError(t, err)

	assert.True(t, sourceBefore.Equal(env.countsFor(t, source.ID)))
	assert.True(t, targetBefore.Equal(env.countsFor(t, target.ID)))
	assert.Equal(t, blobsBefore, env.store.Len(), "preview must not touch the object store")
	assert.Zero(t, env.sink.Len(), "preview must not emit audit events")
}

func TestExecuteRejectsSameAccount(t *testing.T) {
	t.Parallel()

	env := createTestEnv(t)
	account := env.createAccount(t, "alice", false)

	engine := env.newTestEngine(t, nil)
	_, err := engine.Execute(context.Background(), account.ID, account.ID, "admin")
	require.Error(t, err)
	assert.True(t, IsSameAccount(err))

	_, err = engine.Preview(context.Background(), account.ID, account.ID)
	require.Error(t, err)
	assert.True(t, IsSameAccount(err))
}

func TestExecuteRejectsMissingAccounts(t *testing.T) {
	t.Parallel()

	env := createTestEnv(t)
	account := env.createAccount(t, "alice", false)
	engine := env.newTestEngine(t, nil)

	_, err := engine.Execute(context.Background(), 9999, account.ID, "admin")
	require.Error(t, err)
	assert.True(t, IsAccountNotFound(err), "missing source must be rejected, got %v", err)

	_, err = engine.Execute(context.Background(), account.ID, 9999, "admin")
	require.Error(t, err)
	assert.True(t, IsAccountNotFound(err), "missing target must be rejected, got %v", err)
}

func TestExecuteRejectsConcurrentOperation(t *testing.T) {
	t.Parallel()

	env := createTestEnv(t)
	source := env.createAccount(t, "alice", false)
	target := env.createAccount(t, "bob", false)
	other := env.createAccount(t, "carol", false)
	env.seedSourceGraph(t, source.ID)

	engine := env.newTestEngine(t, nil)

	// simulate an in-flight clone holding the target lock
	require.NoError(t, engine.locks.acquire(target.ID))

	_, err := engine.Execute(context.Background(), source.ID, target.ID, "admin")
	require.Error(t, err)
	assert.True(t, IsOperationInProgress(err))

	// the source of the held operation cannot be replaced either once it
	// holds a lock
	require.NoError(t, engine.locks.acquire(source.ID))
	_, err = engine.Execute(context.Background(), other.ID, source.ID, "admin")
	require.Error(t, err)
	assert.True(t, IsOperationInProgress(err))

	engine.locks.release(target.ID, source.ID)

	// released locks clear the way
	_, err = engine.Execute(context.Background(), source.ID, target.ID, "admin")
	require.NoError(t, err)
}

func TestExecuteCanceledContextRollsBack(t *testing.T) {
	t.Parallel()

	env := createTestEnv(t)
	source := env.createAccount(t, "alice", false)
	target := env.createAccount(t, "bob", false)
	env.seedSourceGraph(t, source.ID)
	require.NoError(t, env.ds.SaveRifleProfile(&datastore.RifleProfile{AccountID: target.ID, Name: "kept"}))

	before := env.countsFor(t, target.ID)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine := env.newTestEngine(t, nil)
	_, err := engine.Execute(ctx, source.ID, target.ID, "admin")
	require.Error(t, err)
	assert.True(t, IsCanceled(err), "expected cancellation error, got %v", err)

	assert.True(t, before.Equal(env.countsFor(t, target.ID)),
		"canceled run must leave the target untouched")
}

func TestExecuteEmitsAuditEvents(t *testing.T) {
	t.Parallel()

	env := createTestEnv(t)
	source := env.createAccount(t, "alice", false)
	target := env.createAccount(t, "bob", false)
	env.seedSourceGraph(t, source.ID)

	engine := env.newTestEngine(t, nil)

	_, err := engine.Execute(context.Background(), source.ID, target.ID, "ops@example.com")
	require.NoError(t, err)

	// a rejected call is audited too
	_, err = engine.Execute(context.Background(), target.ID, target.ID, "ops@example.com")
	require.Error(t, err)

	events := env.sink.Events()
	require.Len(t, events, 2)

	committed := events[0]
	assert.Equal(t, "account_clone", committed.Action)
	assert.Equal(t, "ops@example.com", committed.Requester)
	assert.Equal(t, audit.OutcomeCommitted, committed.Outcome)
	assert.Equal(t, source.ID, committed.SourceAccountID)
	assert.Equal(t, target.ID, committed.TargetAccountID)
	assert.Equal(t, "alice", committed.SourceUsername)
	assert.Equal(t, "bob", committed.TargetUsername)
	assert.Equal(t, int64(2), committed.CopiedRows[string(KindImages)])
	assert.Positive(t, committed.BlobBytesCopied)
	assert.NotEmpty(t, committed.ID)
	assert.False(t, committed.Timestamp.IsZero())

	rejected := events[1]
	assert.Equal(t, audit.OutcomeRejected, rejected.Outcome)
	assert.NotEmpty(t, rejected.Error)
}

func TestExecuteAuditsRolledBackRuns(t *testing.T) {
	t.Parallel()

	env := createTestEnv(t)
	source := env.createAccount(t, "alice", false)
	target := env.createAccount(t, "bob", false)
	env.seedSourceGraph(t, source.ID)

	store := &failingStore{Store: env.store, copiesLeft: 0}
	engine := env.newTestEngine(t, store)

	_, err := engine.Execute(context.Background(), source.ID, target.ID, "admin")
	require.Error(t, err)

	events := env.sink.Events()
	require.Len(t, events, 1)
	assert.Equal(t, audit.OutcomeRolledBack, events[0].Outcome)
	assert.Contains(t, events[0].Error, "duplicating object")
	assert.Nil(t, events[0].CopiedRows)
}

func TestExecuteSkipsMissingThumbnail(t *testing.T) {
	t.Parallel()

	env := createTestEnv(t)
	source := env.createAccount(t, "alice", false)
	target := env.createAccount(t, "bob", false)

	rifle := &datastore.RifleProfile{AccountID: source.ID, Name: "rifle"}
	require.NoError(t, env.ds.SaveRifleProfile(rifle))
	img := env.attachImage(t, source.ID,
		datastore.ImageParent{Kind: datastore.ParentRifleProfile, ID: rifle.ID}, "photo", true)

	// the thumbnail row reference survives but its object is gone
	_, err := env.store.Delete(context.Background(), img.ThumbKey)
	require.NoError(t, err)

	engine := env.newTestEngine(t, nil)
	result, err := engine.Execute(context.Background(), source.ID, target.ID, "admin")
	require.NoError(t, err, "a missing thumbnail object must not fail the clone")
	assert.Equal(t, int64(1), result.CopiedCounts[KindImages])

	imgs, err := env.ds.AccountImages(target.ID)
	require.NoError(t, err)
	require.Len(t, imgs, 1)
	assert.Empty(t, imgs[0].ThumbKey, "copy proceeds without the broken thumbnail reference")
	assert.True(t, env.blobExists(t, imgs[0].ObjectKey))
}

func TestExecuteUpsertsPreferences(t *testing.T) {
	t.Parallel()

	env := createTestEnv(t)
	source := env.createAccount(t, "alice", false)
	target := env.createAccount(t, "bob", false)

	require.NoError(t, env.ds.SavePreferences(&datastore.Preferences{
		AccountID: source.ID, DistanceUnit: "meters", VelocityUnit: "mps", Theme: "dark",
	}))
	require.NoError(t, env.ds.SavePreferences(&datastore.Preferences{
		AccountID: target.ID, DistanceUnit: "yards", VelocityUnit: "fps", Theme: "light",
	}))

	engine := env.newTestEngine(t, nil)
	result, err := engine.Execute(context.Background(), source.ID, target.ID, "admin")
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.DeletedCounts[KindPreferences])
	assert.Equal(t, int64(1), result.CopiedCounts[KindPreferences])

	prefs, err := env.ds.GetPreferences(target.ID)
	require.NoError(t, err)
	assert.Equal(t, "meters", prefs.DistanceUnit)
	assert.Equal(t, "dark", prefs.Theme)
}

func TestExecuteCopiesFullGraphWithOptionalReferences(t *testing.T) {
	t.Parallel()

	env := createTestEnv(t)
	source := env.createAccount(t, "alice", false)
	target := env.createAccount(t, "bob", false)

	rifle := &datastore.RifleProfile{AccountID: source.ID, Name: "rifle"}
	require.NoError(t, env.ds.SaveRifleProfile(rifle))
	ammo := &datastore.AmmunitionType{AccountID: source.ID, Make: "Lapua"}
	require.NoError(t, env.ds.SaveAmmunitionType(ammo))
	lot := &datastore.AmmoLot{AccountID: source.ID, AmmunitionTypeID: ammo.ID, LotNumber: "L-42", RoundCount: 200}
	require.NoError(t, env.ds.SaveAmmoLot(lot))
	location := &datastore.SavedLocation{AccountID: source.ID, Name: "home range"}
	require.NoError(t, env.ds.SaveSavedLocation(location))

	session := &datastore.Session{
		AccountID: source.ID, RifleProfileID: rifle.ID, SavedLocationID: &location.ID, Date: "2026-06-01",
	}
	require.NoError(t, env.ds.SaveSession(session))

	group := &datastore.GroupEntry{
		AccountID: source.ID, SessionID: session.ID,
		AmmunitionTypeID: &ammo.ID, AmmoLotID: &lot.ID, Range: 100, Shots: 5,
	}
	require.NoError(t, env.ds.SaveGroupEntry(group))
	measurement := &datastore.GroupMeasurement{
		AccountID: source.ID, GroupEntryID: group.ID,
		Holes: `[{"x":0,"y":0},{"x":0.5,"y":0.3}]`,
	}
	require.NoError(t, env.ds.SaveGroupMeasurement(measurement))
	env.attachImage(t, source.ID,
		datastore.ImageParent{Kind: datastore.ParentGroupEntry, ID: group.ID}, "target-face", false)

	engine := env.newTestEngine(t, nil)
	result, err := engine.Execute(context.Background(), source.ID, target.ID, "admin")
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.CopiedCounts[KindSavedLocations])
	assert.Equal(t, int64(1), result.CopiedCounts[KindAmmoLots])
	assert.Equal(t, int64(1), result.CopiedCounts[KindGroupEntries])
	assert.Equal(t, int64(1), result.CopiedCounts[KindGroupMeasurements])

	// every optional reference resolved to a copied row
	sessions, err := env.ds.Sessions(target.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	require.NotNil(t, sessions[0].SavedLocationID)

	locations, err := env.ds.SavedLocations(target.ID)
	require.NoError(t, err)
	require.Len(t, locations, 1)
	assert.Equal(t, locations[0].ID, *sessions[0].SavedLocationID)

	groups, err := env.ds.GroupEntries(target.ID, sessions[0].ID)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.NotNil(t, groups[0].AmmunitionTypeID)
	require.NotNil(t, groups[0].AmmoLotID)

	lots, err := env.ds.AmmoLots(target.ID, *groups[0].AmmunitionTypeID)
	require.NoError(t, err)
	require.Len(t, lots, 1)
	assert.Equal(t, lots[0].ID, *groups[0].AmmoLotID)

	copied, err := env.ds.GetGroupMeasurement(target.ID, groups[0].ID)
	require.NoError(t, err)
	assert.Equal(t, measurement.Holes, copied.Holes)
}

func TestExecutePreservesRelativeOrdering(t *testing.T) {
	t.Parallel()

	env := createTestEnv(t)
	source := env.createAccount(t, "alice", false)
	target := env.createAccount(t, "bob", false)

	rifle := &datastore.RifleProfile{AccountID: source.ID, Name: "rifle"}
	require.NoError(t, env.ds.SaveRifleProfile(rifle))
	session := &datastore.Session{AccountID: source.ID, RifleProfileID: rifle.ID, Date: "2026-06-01"}
	require.NoError(t, env.ds.SaveSession(session))
	for i := 1; i <= 6; i++ {
		entry := &datastore.DopeEntry{AccountID: source.ID, SessionID: session.ID, Range: i * 100}
		require.NoError(t, env.ds.SaveDopeEntry(entry))
	}

	engine := env.newTestEngine(t, nil)
	_, err := engine.Execute(context.Background(), source.ID, target.ID, "admin")
	require.NoError(t, err)

	sessions, err := env.ds.Sessions(target.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 1)

	entries, err := env.ds.DopeEntries(target.ID, sessions[0].ID)
	require.NoError(t, err)
	require.Len(t, entries, 6)
	for i := range entries {
		assert.Equal(t, (i+1)*100, entries[i].Range, "copied entries must keep source insertion order")
	}
}

func TestErrorCodeClassification(t *testing.T) {
	t.Parallel()

	wrapped := NewError(ErrStorage, "duplicating object x", assert.AnError)
	assert.True(t, IsStorageError(wrapped))
	assert.False(t, IsDatabaseError(wrapped))
	assert.Equal(t, ErrStorage, CodeOf(wrapped))
	assert.Equal(t, ErrUnknown, CodeOf(assert.AnError))
	assert.False(t, IsStorageError(nil))
	assert.Contains(t, wrapped.Error(), "duplicating object x")
	assert.Equal(t, "storage_unavailable", ErrStorage.String())

	for _, code := range []ErrorCode{
		ErrAccountNotFound, ErrSameAccount, ErrOperationInProgress,
		ErrIntegrity, ErrStorage, ErrDatabase, ErrCanceled,
	} {
		assert.NotEqual(t, "unknown", code.String())
		assert.False(t, strings.ContainsAny(code.String(), " A-Z"), "codes are stable snake_case labels")
	}
}
