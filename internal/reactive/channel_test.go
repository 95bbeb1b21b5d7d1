package reactive

import (
	"context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
	"time"
)

func TestChannelLatestValue(t *testing.T) {
	c := NewChannel(0)
	r := c.Subscribe()
	assert.True(t, r.Changed())

	for i := 1; i <= 3; i++ {
		c.Write(i)
	}
	assert.True(t, r.Changed())
	assert.Equal(t, 3, r.Read())
	assert.False(t, r.Changed())

	c.Write(4)
	r.View(func(v int) {
		assert.Equal(t, 4, v)
	})
	assert.False(t, r.Changed())
}

func TestChannelIndependentReaders(t *testing.T) {
	c := NewChannel("a")
	r1, r2 := c.Subscribe(), c.Subscribe()

	assert.Equal(t, "a", r1.Read())
	assert.False(t, r1.Changed())
	assert.True(t, r2.Changed())

	c.Write("b")
	assert.Equal(t, "b", r2.Read())
	assert.True(t, r1.Changed())
	assert.Equal(t, "b", r1.Read())
}

func TestReaderWait(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c := NewChannel(0)
	r := c.Subscribe()
	require.NoError(t, r.Wait(ctx))
	r.Read()

	go func() {
		time.Sleep(10 * time.Millisecond)
		c.Write(1)
	}()
	require.NoError(t, r.Wait(ctx))
	assert.Equal(t, 1, r.Read())

	c.Write(2)
	c.Close()
	// the final value is drained before the closure is reported
	require.NoError(t, r.Wait(ctx))
	assert.Equal(t, 2, r.Read())
	assert.ErrorIs(t, r.Wait(ctx), ErrClosed)
}

func TestReaderWaitContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	r := NewChannel(0).Subscribe()
	r.Read()
	assert.ErrorIs(t, r.Wait(ctx), context.DeadlineExceeded)
}

func TestChannelWriteAfterClose(t *testing.T) {
	var released []int
	c := NewChannel(1, WithRelease(func(v int) {
		released = append(released, v)
	}))

	c.Write(2)
	c.Close()
	c.Close()
	c.Write(3)

	assert.True(t, c.Closed())
	assert.Equal(t, 2, c.Load())
	assert.Equal(t, []int{1, 2, 3}, released)
}

func TestChannelCloseReleasesFinalValue(t *testing.T) {
	var released []int
	c := NewChannel(1, WithRelease(func(v int) {
		released = append(released, v)
	}))
	r := c.Subscribe()

	c.Close()
	assert.Equal(t, []int{1}, released)

	assert.True(t, r.Changed())
	assert.Equal(t, 1, r.Read())
	assert.ErrorIs(t, r.Wait(context.Background()), ErrClosed)
}

func TestReaderClose(t *testing.T) {
	c := NewChannel(0)
	r := c.Subscribe()
	r.Close()
	c.Write(1)
	assert.Empty(t, c.readers)
}
