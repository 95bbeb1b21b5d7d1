package export

import (
	"bytes"
	"context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tigerwill90/derive/internal/enclave"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestExport(t *testing.T) {
	out := filepath.Join(t.TempDir(), "key")
	e := New([]string{"sh", "-c", `cat > "$0"`, out})
	require.True(t, e.Enabled())

	require.NoError(t, e.Export(context.Background(), enclave.FromString("030230")))
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "030230", string(data))
}

func TestExportOutput(t *testing.T) {
	var buf bytes.Buffer
	e := New([]string{"cat"}, WithOutput(&buf))
	require.NoError(t, e.Export(context.Background(), enclave.FromString("key")))
	assert.Equal(t, "key", buf.String())
}

func TestExportFailure(t *testing.T) {
	e := New([]string{"sh", "-c", "cat >/dev/null; exit 2"})
	err := e.Export(context.Background(), enclave.FromString("key"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exit status 2")
}

func TestExportTimeout(t *testing.T) {
	e := New([]string{"sh", "-c", "exec sleep 10"}, WithTimeout(50*time.Millisecond))
	start := time.Now()
	err := e.Export(context.Background(), enclave.FromString("key"))
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestExportPreconditions(t *testing.T) {
	e := New(nil)
	assert.False(t, e.Enabled())
	assert.Error(t, e.Export(context.Background(), enclave.FromString("key")))

	e = New([]string{"cat"})
	assert.Error(t, e.Export(context.Background(), nil))
	assert.Equal(t, "cat", e.String())

	e = New([]string{"/nonexistent/program"})
	assert.Error(t, e.Export(context.Background(), enclave.FromString("key")))
}
