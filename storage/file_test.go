package storage

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"os"
	"path/filepath"
	"testing"
)

const testHash = "$argon2id$v=19$m=64,t=1,p=1$c2FsdHNhbHQ$ZGlnZXN0ZGlnZXN0"

func TestFileStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	s := NewFileStore(dir)

	_, err := s.Load()
	assert.ErrorIs(t, err, ErrRecordNotFound)
	size, err := s.Size()
	require.NoError(t, err)
	assert.Zero(t, size)

	require.NoError(t, s.Save(&Record{Hash: testHash}))
	r, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, testHash, r.Hash)

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"hash\": \""+testHash+"\"\n}\n", string(data))

	fi, err := os.Stat(s.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), fi.Mode().Perm())
	di, err := os.Stat(dir)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0700), di.Mode().Perm())

	require.NoError(t, s.Save(&Record{Hash: "other"}))
	r, err = s.Load()
	require.NoError(t, err)
	assert.Equal(t, "other", r.Hash)
	require.NoError(t, s.Close())
}

func TestFileStoreMalformed(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{name: "not json", data: "hash=abc"},
		{name: "missing hash", data: `{"other": "x"}`},
		{name: "wrong type", data: `{"hash": 42}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, fileName), []byte(tc.data), 0600))
			_, err := NewFileStore(dir).Load()
			assert.ErrorIs(t, err, ErrMalformedRecord)
		})
	}
}

func TestDefaultDataDir(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/tmp/xdg")
	dir, err := DefaultDataDir()
	require.NoError(t, err)
	assert.Equal(t, appName, filepath.Base(dir))
}

func TestOpenUnknownKind(t *testing.T) {
	_, err := Open(&Config{Kind: "sqlite"}, nil)
	assert.Error(t, err)
}
