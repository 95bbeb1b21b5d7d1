package enclave

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestNewWipesSource(t *testing.T) {
	src := []byte("correct horse battery staple")
	e := New(src)

	assert.Equal(t, make([]byte, len(src)), src)
	assert.Equal(t, 28, e.Size())
	assert.True(t, e.Equal([]byte("correct horse battery staple")))
	assert.False(t, e.Equal([]byte("correct horse battery")))
}

func TestOpen(t *testing.T) {
	e := FromString("secret")
	p, destroy := e.Open()
	assert.Equal(t, "secret", string(p))
	destroy()
	destroy()

	p, destroy = e.Open()
	defer destroy()
	assert.Equal(t, "secret", string(p))
}

func TestEmpty(t *testing.T) {
	for _, e := range []*Enclave{nil, New(nil), FromString("")} {
		assert.True(t, e.Empty())
		p, destroy := e.Open()
		assert.Empty(t, p)
		destroy()
		assert.True(t, e.Equal(nil))
	}
}

func TestBuilder(t *testing.T) {
	var b Builder
	for _, r := range "pässwörd" {
		_, err := b.WriteRune(r)
		require.NoError(t, err)
	}
	b.Backspace()
	require.NoError(t, b.WriteByte('D'))
	_, err := b.Write([]byte("!!"))
	require.NoError(t, err)

	e := b.Seal()
	assert.True(t, e.Equal([]byte("pässwörD!!")))
	assert.Equal(t, 0, b.Len())
}

func TestBuilderWipesOutgrownBuffers(t *testing.T) {
	var b Builder
	_, err := b.Write([]byte("0123456789"))
	require.NoError(t, err)
	old := b.buf[:cap(b.buf)]

	_, err = b.Write(make([]byte, minBuilderSize))
	require.NoError(t, err)
	assert.Equal(t, make([]byte, len(old)), old)

	b.Backspace()
	tail := b.buf[len(b.buf) : len(b.buf)+1]
	assert.Equal(t, []byte{0}, tail)

	kept := b.buf[:cap(b.buf)]
	b.Reset()
	assert.Equal(t, make([]byte, len(kept)), kept)
}
