package kdf

import (
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"golang.org/x/crypto/argon2"
	"io"
	"strconv"
	"strings"
)

const hashID = "argon2id"

// Hash is a self-describing Argon2id password hash in the PHC string format:
//
//	$argon2id$v=19$m=19456,t=2,p=1$<salt>$<sum>
//
// salt and sum are encoded with unpadded standard base64.
type Hash struct {
	Params Params
	Salt   []byte
	Sum    []byte
}

// NewHash hashes password with a fresh salt read from rand.
func NewHash(password []byte, params Params, rand io.Reader) (*Hash, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	salt := make([]byte, HashSaltSize)
	if _, err := io.ReadFull(rand, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	sum := argon2.IDKey(password, salt, params.Time, params.Memory, params.Threads, HashKeySize)
	return &Hash{Params: params, Salt: salt, Sum: sum}, nil
}

// ParseHash parses a PHC string. The version segment may be omitted. Hashes
// whose cost exceeds MaxHashTime or MaxHashMemory are rejected.
func ParseHash(s string) (*Hash, error) {
	fields := strings.Split(s, "$")
	if len(fields) < 5 || len(fields) > 6 || fields[0] != "" {
		return nil, ErrHashFormat
	}
	if fields[1] != hashID {
		return nil, fmt.Errorf("%w: %q", ErrHashAlgorithm, fields[1])
	}
	fields = fields[2:]

	if len(fields) == 4 {
		v, ok := strings.CutPrefix(fields[0], "v=")
		if !ok {
			return nil, fmt.Errorf("%w: missing version", ErrHashFormat)
		}
		version, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid version %q", ErrHashFormat, v)
		}
		if version != argon2.Version {
			return nil, fmt.Errorf("%w: %d", ErrHashVersion, version)
		}
		fields = fields[1:]
	}

	params, err := parseParams(fields[0])
	if err != nil {
		return nil, err
	}

	salt, err := base64.RawStdEncoding.DecodeString(fields[1])
	if err != nil {
		return nil, fmt.Errorf("%w: invalid salt encoding", ErrHashFormat)
	}
	if err := checkSalt(salt, MinSaltSize, MaxSaltSize); err != nil {
		return nil, err
	}

	sum, err := base64.RawStdEncoding.DecodeString(fields[2])
	if err != nil {
		return nil, fmt.Errorf("%w: invalid hash encoding", ErrHashFormat)
	}
	if len(sum) < 4 {
		return nil, fmt.Errorf("%w: hash too short", ErrHashFormat)
	}

	return &Hash{Params: params, Salt: salt, Sum: sum}, nil
}

func parseParams(s string) (Params, error) {
	var p Params
	var seen [3]bool
	for _, kv := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return Params{}, fmt.Errorf("%w: invalid parameter %q", ErrHashFormat, kv)
		}
		var (
			i    int
			bits int
		)
		switch k {
		case "m":
			i, bits = 0, 32
		case "t":
			i, bits = 1, 32
		case "p":
			i, bits = 2, 8
		default:
			return Params{}, fmt.Errorf("%w: unknown parameter %q", ErrHashFormat, k)
		}
		if seen[i] {
			return Params{}, fmt.Errorf("%w: duplicate parameter %q", ErrHashFormat, k)
		}
		seen[i] = true
		n, err := strconv.ParseUint(v, 10, bits)
		if err != nil {
			return Params{}, fmt.Errorf("%w: invalid parameter %q", ErrHashFormat, kv)
		}
		switch i {
		case 0:
			p.Memory = uint32(n)
		case 1:
			p.Time = uint32(n)
		case 2:
			p.Threads = uint8(n)
		}
	}
	if !seen[0] || !seen[1] || !seen[2] {
		return Params{}, fmt.Errorf("%w: missing parameter", ErrHashFormat)
	}
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	if p.Time > MaxHashTime || p.Memory > MaxHashMemory {
		return Params{}, fmt.Errorf("%w: cost too high: %s", ErrInvalidParams, p)
	}
	return p, nil
}

// Verify checks password against the hash in constant time.
func (h *Hash) Verify(password []byte) error {
	sum := argon2.IDKey(password, h.Salt, h.Params.Time, h.Params.Memory, h.Params.Threads, uint32(len(h.Sum)))
	defer wipe(sum)
	if subtle.ConstantTimeCompare(sum, h.Sum) != 1 {
		return ErrPasswordMismatch
	}
	return nil
}

func (h *Hash) String() string {
	return fmt.Sprintf(
		"$%s$v=%d$%s$%s$%s",
		hashID,
		argon2.Version,
		h.Params,
		base64.RawStdEncoding.EncodeToString(h.Salt),
		base64.RawStdEncoding.EncodeToString(h.Sum),
	)
}
