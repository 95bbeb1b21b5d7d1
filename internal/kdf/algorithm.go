package kdf

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Algorithm selects how a key is derived and encoded. The set is closed.
type Algorithm uint8

const (
	Argon2id256 Algorithm = iota
	Argon2id512
	Argon2id4
	Argon2id6
	S2K
)

const decimal = "0123456789"

var algorithms = [...]struct {
	name  string
	label string
}{
	Argon2id256: {"Argon2id256", "argon2id (256 bits)"},
	Argon2id512: {"Argon2id512", "argon2id (512 bits)"},
	Argon2id4:   {"Argon2id4", "argon2id (4 digits)"},
	Argon2id6:   {"Argon2id6", "argon2id (6 digits)"},
	S2K:         {"S2K", "iterated and salted sha256 (openpgp s2k)"},
}

// Algorithms returns every algorithm, the default one first.
func Algorithms() []Algorithm {
	all := make([]Algorithm, len(algorithms))
	for i := range algorithms {
		all[i] = Algorithm(i)
	}
	return all
}

func ParseAlgorithm(name string) (Algorithm, error) {
	for i, a := range algorithms {
		if strings.EqualFold(a.name, name) {
			return Algorithm(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
}

func (a Algorithm) String() string {
	if int(a) < len(algorithms) {
		return algorithms[a].name
	}
	return fmt.Sprintf("Algorithm(%d)", uint8(a))
}

// Label is the human readable description of the algorithm.
func (a Algorithm) Label() string {
	if int(a) < len(algorithms) {
		return algorithms[a].label
	}
	return a.String()
}

func (a Algorithm) MarshalText() ([]byte, error) {
	if int(a) >= len(algorithms) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownAlgorithm, uint8(a))
	}
	return []byte(a.String()), nil
}

func (a *Algorithm) UnmarshalText(text []byte) error {
	v, err := ParseAlgorithm(string(text))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// Deriver derives keys with a fixed set of cost parameters.
type Deriver struct {
	params   Params
	s2kCount int
}

func NewDeriver(params Params, s2kCount int) *Deriver {
	if s2kCount <= 0 {
		s2kCount = DefaultS2KCount
	}
	return &Deriver{
		params:   params,
		s2kCount: s2kCount,
	}
}

var defaultDeriver = NewDeriver(DefaultParams, DefaultS2KCount)

// Derive derives the encoded key of secret and salt with the default parameters.
func Derive(a Algorithm, secret, salt []byte) ([]byte, error) {
	return defaultDeriver.Derive(a, secret, salt)
}

func (d *Deriver) Params() Params {
	return d.params
}

// Derive returns the encoded key. Intermediate digests are wiped before
// returning; the caller owns the returned buffer and must wipe it once done.
// Salt length violations are reported as ErrSaltTooShort or ErrSaltTooLong,
// any other error is a failure of the underlying hash.
func (d *Deriver) Derive(a Algorithm, secret, salt []byte) ([]byte, error) {
	switch a {
	case Argon2id256:
		return d.argon2Base64(secret, salt, 32)
	case Argon2id512:
		return d.argon2Base64(secret, salt, 64)
	case Argon2id4:
		return d.argon2Digits(secret, salt, 4)
	case Argon2id6:
		return d.argon2Digits(secret, salt, 6)
	case S2K:
		if err := checkSalt(salt, S2KSaltSize, S2KSaltSize); err != nil {
			return nil, err
		}
		sum := S2KKey(secret, salt, d.s2kCount)
		defer wipe(sum)
		return encodeBase64(sum), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownAlgorithm, uint8(a))
	}
}

func (d *Deriver) argon2Base64(secret, salt []byte, size uint32) ([]byte, error) {
	raw, err := d.params.Key(secret, salt, size)
	if err != nil {
		return nil, err
	}
	defer wipe(raw)
	return encodeBase64(raw), nil
}

func (d *Deriver) argon2Digits(secret, salt []byte, width int) ([]byte, error) {
	raw, err := d.params.Key(secret, salt, 32)
	if err != nil {
		return nil, err
	}
	defer wipe(raw)
	return Numeral(raw, decimal, width)
}

func encodeBase64(raw []byte) []byte {
	out := make([]byte, base64.StdEncoding.EncodedLen(len(raw)))
	base64.StdEncoding.Encode(out, raw)
	return out
}
