package json_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fwojciec/banter"
	banterjson "github.com/fwojciec/banter/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_RoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "nested", "dir", "flags.json")
	s := banterjson.NewStore(path)

	_, err := s.Flag(banter.SignedInKey)
	require.ErrorIs(t, err, banter.ErrFlagNotFound)

	require.NoError(t, s.SetFlag(banter.SignedInKey, "1"))
	require.NoError(t, s.SetFlag("theme", "dark"))

	got, err := banterjson.NewStore(path).Flag(banter.SignedInKey)
	require.NoError(t, err)
	assert.Equal(t, "1", got)

	require.NoError(t, s.SetFlag(banter.SignedInKey, "0"))
	got, err = s.Flag(banter.SignedInKey)
	require.NoError(t, err)
	assert.Equal(t, "0", got)

	got, err = s.Flag("theme")
	require.NoError(t, err)
	assert.Equal(t, "dark", got)
}

func TestStore_FilePermissions(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "flags.json")
	require.NoError(t, banterjson.NewStore(path).SetFlag("k", "v"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestStore_Envelope(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "flags.json")
	require.NoError(t, banterjson.NewStore(path).SetFlag(banter.SignedInKey, "1"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":1,"flags":{"signedIn":"1"}}`, string(data))
}

func TestStore_BadFile(t *testing.T) {
	t.Parallel()

	t.Run("invalid json", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "flags.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
		_, err := banterjson.NewStore(path).Flag("k")
		assert.Error(t, err)
		assert.NotErrorIs(t, err, banter.ErrFlagNotFound)
	})

	t.Run("unknown version", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "flags.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"version":2,"flags":{}}`), 0o600))
		_, err := banterjson.NewStore(path).Flag("k")
		assert.ErrorContains(t, err, "unsupported envelope version")
	})
}
