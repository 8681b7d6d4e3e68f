package clone

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/rangelog/rangelog/internal/audit"
	"github.com/rangelog/rangelog/internal/blobstore"
	"github.com/rangelog/rangelog/internal/conf"
	"github.com/rangelog/rangelog/internal/datastore"
)

func TestMain(m *testing.M) {
	// keep the package logger out of the source tree during tests
	_ = InitializeLogger(filepath.Join(os.TempDir(), "rangelog-clone-test.log"))
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("testing.(*T).Run"),
		goleak.IgnoreTopFunction("runtime.gopark"),
		goleak.IgnoreTopFunction("gopkg.in/natefinch/lumberjack%2ev2.(*Logger).millRun"),
		goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"),
	)
}

// testEnv bundles the stores and sinks one engine test runs against.
type testEnv struct {
	ds    datastore.Interface
	store *blobstore.MemoryStore
	sink  *audit.MemorySink
}

// createTestEnv opens a temporary SQLite datastore and an in-memory blob
// store.
func createTestEnv(t *testing.T) *testEnv {
	t.Helper()

	settings := &conf.Settings{}
	settings.Main.Name = "rangelog-test"
	settings.Output.SQLite.Enabled = true
	settings.Output.SQLite.Path = filepath.Join(t.TempDir(), "clone-test.db")

	ds := datastore.New(settings, nil)
	require.NoError(t, ds.Open(), "Failed to open database")
	t.Cleanup(func() {
		assert.NoError(t, ds.Close(), "Failed to close datastore")
	})

	return &testEnv{
		ds:    ds,
		store: blobstore.NewMemoryStore(),
		sink:  audit.NewMemorySink(),
	}
}

// newTestEngine wires an engine over the env, optionally substituting the
// blob store (for failure injection).
func (env *testEnv) newTestEngine(t *testing.T, store blobstore.Store) *Engine {
	t.Helper()
	if store == nil {
		store = env.store
	}
	return New(&conf.Settings{}, env.ds, store, env.sink, nil)
}

// createAccount inserts an account row.
func (env *testEnv) createAccount(t *testing.T, username string, admin bool) *datastore.Account {
	t.Helper()
	account := &datastore.Account{Username: username, DisplayName: username, Admin: admin}
	require.NoError(t, env.ds.CreateAccount(account), "Failed to create account %s", username)
	require.NotZero(t, account.ID)
	return account
}

// putBlob stores content under key and returns the key.
func (env *testEnv) putBlob(t *testing.T, key, content string) string {
	t.Helper()
	_, err := env.store.Put(context.Background(), key, bytes.NewReader([]byte(content)), blobstore.PutOptions{})
	require.NoError(t, err, "Failed to put blob %s", key)
	return key
}

// blobExists reports whether the store currently holds key.
func (env *testEnv) blobExists(t *testing.T, key string) bool {
	t.Helper()
	_, err := env.store.Head(context.Background(), key)
	return err == nil
}

// attachImage inserts an image row with a stored blob (and thumbnail when
// withThumb is set) under the given account and parent.
func (env *testEnv) attachImage(t *testing.T, accountID uint, parent datastore.ImageParent, name string, withThumb bool) *datastore.Image {
	t.Helper()
	img := &datastore.Image{
		AccountID: accountID,
		ObjectKey: env.putBlob(t, fmt.Sprintf("accounts/%d/%s.jpg", accountID, name), "image "+name),
	}
	if withThumb {
		img.ThumbKey = env.putBlob(t, fmt.Sprintf("accounts/%d/%s_thumb.jpg", accountID, name), "thumb "+name)
	}
	require.NoError(t, img.SetParent(parent))
	require.NoError(t, env.ds.SaveImage(img))
	return img
}

// seededGraph holds the handles tests need back from seedSourceGraph.
type seededGraph struct {
	rifle      *datastore.RifleProfile
	session    *datastore.Session
	rifleImage *datastore.Image
	sessImage  *datastore.Image
}

// seedSourceGraph populates an account with the reference graph: one rifle,
// one session carrying three DOPE entries and a chronograph subsession with
// five velocity readings, one image on the rifle and one on the session.
func (env *testEnv) seedSourceGraph(t *testing.T, accountID uint) *seededGraph {
	t.Helper()

	rifle := &datastore.RifleProfile{AccountID: accountID, Name: "match rifle", Caliber: "6.5CM"}
	require.NoError(t, env.ds.SaveRifleProfile(rifle))

	ammo := &datastore.AmmunitionType{AccountID: accountID, Make: "Hornady", Bullet: "ELD-M", BulletWeight: 140}
	require.NoError(t, env.ds.SaveAmmunitionType(ammo))

	session := &datastore.Session{AccountID: accountID, RifleProfileID: rifle.ID, Date: "2026-05-01", Title: "load test"}
	require.NoError(t, env.ds.SaveSession(session))

	for i := 1; i <= 3; i++ {
		entry := &datastore.DopeEntry{AccountID: accountID, SessionID: session.ID, Range: i * 100, Elevation: float64(i)}
		require.NoError(t, env.ds.SaveDopeEntry(entry))
	}

	chrono := &datastore.ChronoSubsession{AccountID: accountID, SessionID: session.ID, AmmunitionTypeID: ammo.ID, DeviceName: "LabRadar"}
	require.NoError(t, env.ds.SaveChronoSubsession(chrono))
	for i := 1; i <= 5; i++ {
		reading := &datastore.VelocityReading{AccountID: accountID, ChronoSubsessionID: chrono.ID, Shot: i, Velocity: 2700 + float64(i)}
		require.NoError(t, env.ds.SaveVelocityReading(reading))
	}

	rifleImage := env.attachImage(t, accountID,
		datastore.ImageParent{Kind: datastore.ParentRifleProfile, ID: rifle.ID}, "rifle", true)
	sessImage := env.attachImage(t, accountID,
		datastore.ImageParent{Kind: datastore.ParentSession, ID: session.ID}, "session", false)

	return &seededGraph{rifle: rifle, session: session, rifleImage: rifleImage, sessImage: sessImage}
}

// countsFor reads the live per-kind row counts for an account.
func (env *testEnv) countsFor(t *testing.T, accountID uint) EntityCounts {
	t.Helper()
	tx, err := env.ds.Begin(context.Background())
	require.NoError(t, err)
	defer tx.Rollback()
	counts, err := countOwnedRows(tx, accountID)
	require.NoError(t, err)
	return counts
}

// failingStore wraps a Store and fails Copy once a budget of successful
// copies is spent.
type failingStore struct {
	blobstore.Store
	copiesLeft int
}

func (s *failingStore) Copy(ctx context.Context, srcKey, dstKey string) (blobstore.Info, error) {
	if s.copiesLeft <= 0 {
		return blobstore.Info{}, fmt.Errorf("injected copy failure for %s", dstKey)
	}
	s.copiesLeft--
	return s.Store.Copy(ctx, srcKey, dstKey)
}
