package config

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tigerwill90/derive/internal/kdf"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const (
	testSalt = "3109800B39D9C9D6"
	testKey  = "4892EE6C021A36201DE80C625C7F2B654C3AAC4578308F03A22B67BF25E893F6"
)

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), fileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
store: badger
data_dir: /var/lib/derive
log_level: debug
argon2:
  time: 3
  memory: 65536
  threads: 4
s2k:
  count: 1024
selfcheck:
  salt: `+testSalt+`
  count: 65536
  key: `+testKey+`
`)

	c, err := Load(path, true)
	require.NoError(t, err)
	assert.Equal(t, "badger", c.Store)
	assert.Equal(t, "/var/lib/derive", c.DataDir)
	assert.Equal(t, "debug", c.LogLevel)
	assert.Equal(t, kdf.Params{Time: 3, Memory: 65536, Threads: 4}, c.Argon2.Params())
	assert.Equal(t, 1024, c.S2K.Count)
	require.NotNil(t, c.SelfCheck)
	assert.Equal(t, testSalt, c.SelfCheck.Salt)
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	c, err := Load(writeConfig(t, "log_level: trace\n"), true)
	require.NoError(t, err)
	assert.Equal(t, "trace", c.LogLevel)
	assert.Equal(t, "file", c.Store)
	assert.Equal(t, kdf.DefaultParams, c.Argon2.Params())
	assert.Equal(t, kdf.DefaultS2KCount, c.S2K.Count)
	assert.Nil(t, c.SelfCheck)

	c, err = Load(writeConfig(t, ""), true)
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}

func TestLoadMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.yaml")

	c, err := Load(path, false)
	require.NoError(t, err)
	assert.Equal(t, Default(), c)

	_, err = Load(path, true)
	assert.Error(t, err)
}

func TestLoadInvalid(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{name: "unknown key", content: "colour: red\n"},
		{name: "unknown store", content: "store: sqlite\n"},
		{name: "invalid params", content: "argon2: {time: 0, memory: 64, threads: 1}\n"},
		{name: "time too high", content: "argon2: {time: 17, memory: 64, threads: 1}\n"},
		{name: "bad salt", content: "selfcheck: {salt: zz, key: " + testKey + "}\n"},
		{name: "short salt", content: "selfcheck: {salt: 3109, key: " + testKey + "}\n"},
		{name: "empty key", content: "selfcheck: {salt: " + testSalt + "}\n"},
		{name: "not yaml", content: "store: [\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.content), true)
			assert.Error(t, err)
		})
	}
}

func TestSelfCheck(t *testing.T) {
	s := &SelfCheck{Salt: testSalt, Key: testKey}
	assert.NoError(t, s.Run([]byte("passphrase")))
	assert.ErrorIs(t, s.Run([]byte("passphrasf")), ErrSelfCheckMismatch)

	s.Key = strings.ToLower(testKey)
	s.Count = 65536
	assert.NoError(t, s.Run([]byte("passphrase")))

	s.Count = 1024
	assert.ErrorIs(t, s.Run([]byte("passphrase")), ErrSelfCheckMismatch)
}
