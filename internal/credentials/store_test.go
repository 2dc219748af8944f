package credentials

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timernudge/timernudge/internal/apperr"
	"github.com/timernudge/timernudge/internal/database"
)

type brokenBackend struct{}

func (brokenBackend) GetCredential(string) (string, bool, error) { return "", false, errors.New("locked") }
func (brokenBackend) PutCredential(string, string) error          { return errors.New("locked") }
func (brokenBackend) DeleteCredential(string) error               { return errors.New("locked") }

func TestDBStore(t *testing.T) {
	db, err := database.Connect(filepath.Join(t.TempDir(), "creds.db"))
	require.NoError(t, err)
	require.NoError(t, db.Initialize())
	defer db.Close()

	var store Store = NewDBStore(database.NewRepository(db))

	_, ok, err := store.Load()
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Save("  secret-token \n"))
	token, ok, err := store.Load()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "secret-token", token)

	require.NoError(t, store.Delete())
	_, ok, err = store.Load()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDBStoreSaveEmptyDeletes(t *testing.T) {
	db, err := database.Connect(filepath.Join(t.TempDir(), "creds.db"))
	require.NoError(t, err)
	require.NoError(t, db.Initialize())
	defer db.Close()

	store := NewDBStore(database.NewRepository(db))
	require.NoError(t, store.Save("tok"))
	require.NoError(t, store.Save("   "))

	_, ok, err := store.Load()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDBStoreClassifiesFailures(t *testing.T) {
	store := NewDBStore(brokenBackend{})

	_, _, err := store.Load()
	assert.True(t, apperr.Is(err, apperr.CodeStorageFailed))
	assert.True(t, apperr.Is(store.Save("x"), apperr.CodeStorageFailed))
	assert.True(t, apperr.Is(store.Delete(), apperr.CodeStorageFailed))
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore("")
	_, ok, _ := store.Load()
	assert.False(t, ok)

	require.NoError(t, store.Save("abc"))
	token, ok, _ := store.Load()
	assert.True(t, ok)
	assert.Equal(t, "abc", token)

	require.NoError(t, store.Delete())
	_, ok, _ = store.Load()
	assert.False(t, ok)
}
