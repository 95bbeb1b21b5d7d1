package kdf

import (
	"fmt"
	"github.com/awnumar/memguard"
	"golang.org/x/crypto/argon2"
)

const (
	MinSaltSize = 8
	MaxSaltSize = 0xFFFFFFFF

	// HashSaltSize and HashKeySize are used for self-describing password hashes.
	HashSaltSize = 16
	HashKeySize  = 32

	// MaxHashTime and MaxHashMemory bound the cost a parsed hash may ask for.
	MaxHashTime   = 16
	MaxHashMemory = 4 << 20
)

// Params holds the Argon2id cost parameters. Memory is expressed in KiB.
type Params struct {
	Time    uint32
	Memory  uint32
	Threads uint8
}

// DefaultParams are the OWASP minimum parameters (m=19MiB, t=2, p=1).
var DefaultParams = Params{
	Time:    2,
	Memory:  19 * 1024,
	Threads: 1,
}

func (p Params) Validate() error {
	if p.Time < 1 || p.Threads < 1 || p.Memory < 8*uint32(p.Threads) {
		return fmt.Errorf("%w: m=%d, t=%d, p=%d", ErrInvalidParams, p.Memory, p.Time, p.Threads)
	}
	return nil
}

func (p Params) String() string {
	return fmt.Sprintf("m=%d,t=%d,p=%d", p.Memory, p.Time, p.Threads)
}

// Key derives size bytes from secret and salt with Argon2id.
func (p Params) Key(secret, salt []byte, size uint32) ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := checkSalt(salt, MinSaltSize, MaxSaltSize); err != nil {
		return nil, err
	}
	return argon2.IDKey(secret, salt, p.Time, p.Memory, p.Threads, size), nil
}

func checkSalt(salt []byte, min, max uint64) error {
	n := uint64(len(salt))
	if n < min {
		return ErrSaltTooShort
	}
	if n > max {
		return ErrSaltTooLong
	}
	return nil
}

func wipe(b []byte) {
	memguard.WipeBytes(b)
}
