package pinentry

import (
	"bytes"
	"context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"strings"
	"testing"
	"time"
)

func script(body string) []string {
	return []string{"sh", "-c", `echo "OK Pleased to meet you"
while read -r cmd arg; do
  case "$cmd" in
` + body + `
    *) echo OK ;;
  esac
done`}
}

func TestGetPin(t *testing.T) {
	argv := script(`
    GETPIN) echo "D s%25cr%0At pin"; echo OK ;;
    BYE) echo "OK closing connection"; exit 0 ;;`)

	pin, err := GetPin(context.Background(), argv, WithDescription("Enter 100% of it\n"), WithPrompt("PIN:"))
	require.NoError(t, err)
	assert.True(t, pin.Equal([]byte("s%cr\nt pin")))
}

func TestGetPinErrors(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{
			name: "assuan error",
			body: `    GETPIN) echo "ERR 83886179 Operation cancelled" ;;`,
			want: "Operation cancelled",
		},
		{
			name: "eof before data",
			body: `    GETPIN) exit 0 ;;`,
			want: ErrNoPin.Error(),
		},
		{
			name: "non-zero exit",
			body: `    GETPIN) echo "D pin" ;;
    BYE) exit 3 ;;`,
			want: "exit status 3",
		},
		{
			name: "bad escape",
			body: `    GETPIN) echo "D pin%zz" ;;`,
			want: "invalid escape",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := GetPin(context.Background(), script(tc.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestGetPinTimeout(t *testing.T) {
	start := time.Now()
	_, err := GetPin(context.Background(), []string{"sh", "-c", "exec sleep 10"}, WithTimeout(50*time.Millisecond))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestGetPinMissingProgram(t *testing.T) {
	_, err := GetPin(context.Background(), nil)
	assert.Error(t, err)
	_, err = GetPin(context.Background(), []string{"/nonexistent/pinentry"})
	assert.Error(t, err)
}

func TestExchange(t *testing.T) {
	var req bytes.Buffer
	pin, err := exchange(&req, strings.NewReader("OK\nS PASSPHRASE\n# comment\nD abc%0D\nOK\n"), &options{})
	require.NoError(t, err)
	assert.True(t, pin.Equal([]byte("abc\r")))
	assert.Equal(t, "GETPIN\nBYE\n", req.String())
}

func TestDecode(t *testing.T) {
	_, err := decode([]byte("abc%4"))
	assert.Error(t, err)

	pin, err := decode([]byte("%41%62c"))
	require.NoError(t, err)
	assert.True(t, pin.Equal([]byte("Abc")))

	pin, err = decode(nil)
	require.NoError(t, err)
	assert.True(t, pin.Empty())
}
