package kdf

import (
	"bytes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestNumeral(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		alphabet string
		width    int
		want     string
	}{
		{"decimal", "key", "0123456789", 6, "038329"},
		{"decimal long input", "keykeykeykey", "0123456789", 6, "438201"},
		{"binary", "key", "01", 6, "111001"},
		{"octal", "key", "01234567", 6, "662571"},
		{"hexadecimal", "key", "0123456789abcdef", 6, "6b6579"},
		{"23 symbols", "key", "0123456789ABCDEFGHIJKLM", 6, "123AM7"},
		{"wider than the value", "key", "0123456789", 10, "0007038329"},
		{"empty input", "", "0123456789", 4, "0000"},
		{"zero width", "key", "0123456789", 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Numeral([]byte(tt.src), tt.alphabet, tt.width)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestNumeralByteAlphabet(t *testing.T) {
	alphabet := make([]byte, 256)
	for i := range alphabet {
		alphabet[i] = byte(i)
	}
	src := []byte{0x01, 0x02, 0x03, 0xff}

	got, err := Numeral(src, string(alphabet), 4)
	require.NoError(t, err)
	assert.Equal(t, src, got)

	got, err = Numeral(src, string(alphabet), 2)
	require.NoError(t, err)
	assert.Equal(t, src[2:], got)
}

func TestNumeralDeterministic(t *testing.T) {
	src := bytes.Repeat([]byte{0xa5, 0x5a}, 16)
	for radix := 2; radix <= 256; radix++ {
		alphabet := make([]byte, radix)
		for i := range alphabet {
			alphabet[i] = byte(i)
		}
		first, err := Numeral(src, string(alphabet), 8)
		require.NoError(t, err)
		second, err := Numeral(src, string(alphabet), 8)
		require.NoError(t, err)
		require.Equal(t, first, second, "radix %d", radix)
		for _, d := range first {
			require.Less(t, int(d), radix)
		}
	}
}

func TestNumeralInvalidAlphabet(t *testing.T) {
	_, err := Numeral([]byte("key"), "0", 6)
	assert.ErrorIs(t, err, ErrAlphabet)

	_, err = Numeral([]byte("key"), string(make([]byte, 257)), 6)
	assert.ErrorIs(t, err, ErrAlphabet)
}
