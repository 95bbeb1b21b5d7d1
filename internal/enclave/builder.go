package enclave

import (
	"github.com/awnumar/memguard"
	"unicode/utf8"
)

const minBuilderSize = 32

// Builder accumulates a secret of unknown length. Every buffer it outgrows and
// every byte it drops is wiped, so no copy of the secret is left behind in
// released memory.
type Builder struct {
	buf []byte
}

func (b *Builder) grow(n int) {
	if cap(b.buf)-len(b.buf) >= n {
		return
	}
	size := 2 * cap(b.buf)
	if size < len(b.buf)+n {
		size = len(b.buf) + n
	}
	if size < minBuilderSize {
		size = minBuilderSize
	}
	buf := make([]byte, len(b.buf), size)
	copy(buf, b.buf)
	memguard.WipeBytes(b.buf[:cap(b.buf)])
	b.buf = buf
}

func (b *Builder) Write(p []byte) (int, error) {
	b.grow(len(p))
	b.buf = append(b.buf, p...)
	return len(p), nil
}

func (b *Builder) WriteByte(c byte) error {
	b.grow(1)
	b.buf = append(b.buf, c)
	return nil
}

func (b *Builder) WriteRune(r rune) (int, error) {
	b.grow(utf8.UTFMax)
	n := len(b.buf)
	b.buf = utf8.AppendRune(b.buf, r)
	return len(b.buf) - n, nil
}

// Backspace removes the last rune.
func (b *Builder) Backspace() {
	if len(b.buf) == 0 {
		return
	}
	_, size := utf8.DecodeLastRune(b.buf)
	n := len(b.buf) - size
	memguard.WipeBytes(b.buf[n:])
	b.buf = b.buf[:n]
}

func (b *Builder) Len() int {
	return len(b.buf)
}

// Seal moves the accumulated secret into an Enclave and resets the builder.
func (b *Builder) Seal() *Enclave {
	e := New(b.buf)
	b.Reset()
	return e
}

// Reset wipes the accumulated secret.
func (b *Builder) Reset() {
	memguard.WipeBytes(b.buf[:cap(b.buf)])
	b.buf = nil
}
