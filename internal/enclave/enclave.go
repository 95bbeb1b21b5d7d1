package enclave

import (
	"crypto/subtle"
	"github.com/awnumar/memguard"
	"sync"
)

// Enclave holds a secret encrypted in memory. Plaintext only exists in locked
// buffers returned by Open, which are wiped and released by their DestroyFunc.
// An Enclave is immutable and safe for concurrent use.
type Enclave struct {
	locked *memguard.Enclave
	size   int
}

// New seals buf into an Enclave and wipes buf.
func New(buf []byte) *Enclave {
	if len(buf) == 0 {
		return &Enclave{}
	}
	size := len(buf)
	return &Enclave{locked: memguard.NewEnclave(buf), size: size}
}

// FromString seals a copy of s. The string itself cannot be wiped, so this is
// reserved to values that already live in memory as strings (flags, tests).
func FromString(s string) *Enclave {
	return New([]byte(s))
}

type DestroyFunc func()

// Open decrypts the secret into a locked buffer. The returned slice is only
// valid until destroy is called.
func (e *Enclave) Open() ([]byte, DestroyFunc) {
	if e == nil || e.locked == nil {
		return nil, func() {}
	}

	buf, err := e.locked.Open()
	if err != nil {
		memguard.SafePanic(err)
	}

	var once sync.Once
	destroy := func() {
		once.Do(func() { buf.Destroy() })
	}

	return buf.Bytes(), destroy
}

func (e *Enclave) Size() int {
	if e == nil {
		return 0
	}
	return e.size
}

func (e *Enclave) Empty() bool {
	return e.Size() == 0
}

// Equal reports in constant time whether the sealed secret equals b.
func (e *Enclave) Equal(b []byte) bool {
	p, destroy := e.Open()
	defer destroy()
	if len(p) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare(p, b) == 1
}
