package clone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemapTablePutAndLookup(t *testing.T) {
	t.Parallel()

	remap := newRemapTable()
	remap.put(KindSessions, 10, 42)
	remap.put(KindSessions, 11, 43)
	remap.put(KindRifleProfiles, 10, 7)

	newID, err := remap.lookup(KindSessions, 10)
	require.NoError(t, err)
	assert.Equal(t, uint(42), newID)

	// identifiers are scoped per kind
	newID, err = remap.lookup(KindRifleProfiles, 10)
	require.NoError(t, err)
	assert.Equal(t, uint(7), newID)

	assert.Equal(t, 3, remap.size())
}

func TestRemapTableMissIsIntegrityViolation(t *testing.T) {
	t.Parallel()

	remap := newRemapTable()
	remap.put(KindSessions, 10, 42)

	_, err := remap.lookup(KindSessions, 11)
	require.Error(t, err)
	assert.True(t, IsIntegrityError(err), "a remap miss signals a dependency-order bug")

	_, err = remap.lookup(KindDopeEntries, 10)
	require.Error(t, err)
	assert.True(t, IsIntegrityError(err))
}

func TestRemapTableOptionalLookup(t *testing.T) {
	t.Parallel()

	remap := newRemapTable()
	remap.put(KindAmmoLots, 5, 50)

	// nil stays nil
	newID, err := remap.lookupOptional(KindAmmoLots, nil)
	require.NoError(t, err)
	assert.Nil(t, newID)

	oldID := uint(5)
	newID, err = remap.lookupOptional(KindAmmoLots, &oldID)
	require.NoError(t, err)
	require.NotNil(t, newID)
	assert.Equal(t, uint(50), *newID)

	// a dangling non-nil reference is as fatal as a required one
	missing := uint(6)
	_, err = remap.lookupOptional(KindAmmoLots, &missing)
	require.Error(t, err)
	assert.True(t, IsIntegrityError(err))
}

func TestLockRegistryFailsFastOnHeldAccount(t *testing.T) {
	t.Parallel()

	locks := newLockRegistry()
	require.NoError(t, locks.acquire(1, 2))

	// any overlap with a held id is refused
	err := locks.acquire(2, 3)
	require.Error(t, err)
	assert.True(t, IsOperationInProgress(err))

	// refusal must not leave partial holds behind
	require.NoError(t, locks.acquire(3))
	locks.release(3)

	locks.release(1, 2)
	require.NoError(t, locks.acquire(2, 3))
	locks.release(2, 3)
}

func TestLockRegistryReleaseUnheldIsNoop(t *testing.T) {
	t.Parallel()

	locks := newLockRegistry()
	locks.release(99)
	require.NoError(t, locks.acquire(99))
	locks.release(99)
}

func TestDeletionOrderMirrorsCopyOrder(t *testing.T) {
	t.Parallel()

	del := deletionOrder()
	require.Len(t, del, len(copyOrder))
	for i, kind := range copyOrder {
		assert.Equal(t, kind, del[len(del)-1-i],
			"deletion order must be the exact reverse of copy order")
	}

	// leaves go first, roots last
	assert.Equal(t, KindVelocityReadings, del[0])
	assert.Equal(t, KindPreferences, del[len(del)-1])
}

func TestModelForCoversEveryKind(t *testing.T) {
	t.Parallel()

	for _, kind := range copyOrder {
		assert.NotNil(t, modelFor(kind), "no model registered for kind %s", kind)
	}
	assert.Nil(t, modelFor(Kind("bogus")))
}

func TestEntityCounts(t *testing.T) {
	t.Parallel()

	counts := NewEntityCounts()
	counts.Add(KindSessions, 2)
	counts.Add(KindSessions, 1)
	counts.Add(KindImages, 0)

	assert.Equal(t, int64(3), counts[KindSessions])
	assert.Equal(t, int64(3), counts.Total())
	assert.NotContains(t, counts, KindImages, "zero increments are not recorded")

	other := NewEntityCounts()
	other.Add(KindSessions, 3)
	assert.True(t, counts.Equal(other))
	other.Add(KindDopeEntries, 1)
	assert.False(t, counts.Equal(other))

	assert.Equal(t, map[string]int64{"sessions": 3}, counts.StringMap())
	assert.Nil(t, NewEntityCounts().StringMap())
	assert.Equal(t, []Kind{KindSessions}, counts.Kinds())
}
