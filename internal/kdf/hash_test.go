package kdf

import (
	"bytes"
	"crypto/rand"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"io"
	"strings"
	"testing"
)

// cheap parameters keep the tests fast
var testParams = Params{Time: 1, Memory: 64, Threads: 1}

func TestHashRoundTrip(t *testing.T) {
	h, err := NewHash([]byte("password"), testParams, rand.Reader)
	require.NoError(t, err)
	assert.Len(t, h.Salt, HashSaltSize)
	assert.Len(t, h.Sum, HashKeySize)

	s := h.String()
	assert.True(t, strings.HasPrefix(s, "$argon2id$v=19$m=64,t=1,p=1$"), s)

	parsed, err := ParseHash(s)
	require.NoError(t, err)
	assert.Equal(t, h, parsed)

	require.NoError(t, parsed.Verify([]byte("password")))
	assert.ErrorIs(t, parsed.Verify([]byte("Password")), ErrPasswordMismatch)
}

func TestNewHashUsesFreshSalt(t *testing.T) {
	a, err := NewHash([]byte("password"), testParams, rand.Reader)
	require.NoError(t, err)
	b, err := NewHash([]byte("password"), testParams, rand.Reader)
	require.NoError(t, err)
	assert.NotEqual(t, a.Salt, b.Salt)
	assert.NotEqual(t, a.String(), b.String())
}

func TestNewHashDeterministicSalt(t *testing.T) {
	salt := bytes.Repeat([]byte{0x2a}, HashSaltSize)
	h, err := NewHash([]byte("password"), testParams, bytes.NewReader(salt))
	require.NoError(t, err)
	assert.Equal(t, salt, h.Salt)
}

func TestNewHashErrors(t *testing.T) {
	_, err := NewHash([]byte("password"), Params{}, rand.Reader)
	assert.ErrorIs(t, err, ErrInvalidParams)

	_, err = NewHash([]byte("password"), testParams, bytes.NewReader([]byte{1, 2, 3}))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestParseHashWithoutVersion(t *testing.T) {
	h, err := NewHash([]byte("password"), testParams, rand.Reader)
	require.NoError(t, err)

	s := strings.Replace(h.String(), "$v=19", "", 1)
	parsed, err := ParseHash(s)
	require.NoError(t, err)
	require.NoError(t, parsed.Verify([]byte("password")))
}

func TestParseHashErrors(t *testing.T) {
	tests := []struct {
		name    string
		hash    string
		wantErr error
	}{
		{"empty", "", ErrHashFormat},
		{"garbage", "not a hash", ErrHashFormat},
		{"bcrypt", "$2b$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW", ErrHashFormat},
		{"argon2i", "$argon2i$v=19$m=64,t=1,p=1$c2FsdHNhbHQ$aGFzaGhhc2g", ErrHashAlgorithm},
		{"old version", "$argon2id$v=16$m=64,t=1,p=1$c2FsdHNhbHQ$aGFzaGhhc2g", ErrHashVersion},
		{"bad version", "$argon2id$v=x$m=64,t=1,p=1$c2FsdHNhbHQ$aGFzaGhhc2g", ErrHashFormat},
		{"missing param", "$argon2id$v=19$m=64,t=1$c2FsdHNhbHQ$aGFzaGhhc2g", ErrHashFormat},
		{"duplicate param", "$argon2id$v=19$m=64,m=64,p=1$c2FsdHNhbHQ$aGFzaGhhc2g", ErrHashFormat},
		{"unknown param", "$argon2id$v=19$m=64,t=1,p=1,x=2$c2FsdHNhbHQ$aGFzaGhhc2g", ErrHashFormat},
		{"invalid params", "$argon2id$v=19$m=64,t=0,p=1$c2FsdHNhbHQ$aGFzaGhhc2g", ErrInvalidParams},
		{"time too high", "$argon2id$v=19$m=8,t=4294967295,p=1$c2FsdHNhbHQ$aGFzaGhhc2g", ErrInvalidParams},
		{"memory too high", "$argon2id$v=19$m=4294967295,t=1,p=1$c2FsdHNhbHQ$aGFzaGhhc2g", ErrInvalidParams},
		{"short salt", "$argon2id$v=19$m=64,t=1,p=1$c2FsdA$aGFzaGhhc2g", ErrSaltTooShort},
		{"bad salt", "$argon2id$v=19$m=64,t=1,p=1$!!!$aGFzaGhhc2g", ErrHashFormat},
		{"short hash", "$argon2id$v=19$m=64,t=1,p=1$c2FsdHNhbHQ$aGE", ErrHashFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseHash(tt.hash)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParamsValidate(t *testing.T) {
	require.NoError(t, DefaultParams.Validate())
	assert.ErrorIs(t, Params{Time: 1, Memory: 15, Threads: 2}.Validate(), ErrInvalidParams)
	assert.ErrorIs(t, Params{Time: 1, Memory: 64, Threads: 0}.Validate(), ErrInvalidParams)
	assert.Equal(t, "m=19456,t=2,p=1", DefaultParams.String())
}

func TestParseHashCostLimit(t *testing.T) {
	h, err := ParseHash("$argon2id$v=19$m=4194304,t=16,p=1$c2FsdHNhbHQ$aGFzaGhhc2g")
	require.NoError(t, err)
	assert.Equal(t, Params{Time: MaxHashTime, Memory: MaxHashMemory, Threads: 1}, h.Params)

	_, err = ParseHash("$argon2id$v=19$m=4194305,t=16,p=1$c2FsdHNhbHQ$aGFzaGhhc2g")
	assert.ErrorIs(t, err, ErrInvalidParams)
}
