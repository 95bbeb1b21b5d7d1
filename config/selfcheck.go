package config

import (
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"github.com/awnumar/memguard"
	"github.com/tigerwill90/derive/internal/kdf"
)

var ErrSelfCheckMismatch = errors.New("self-check failed: derived key does not match")

// SelfCheck is a known S2K vector the secret must reproduce before anything
// else is derived from it.
type SelfCheck struct {
	Salt  string `yaml:"salt"`
	Count int    `yaml:"count"`
	Key   string `yaml:"key"`
}

func (s *SelfCheck) decode() (salt, key []byte, err error) {
	salt, err = hex.DecodeString(s.Salt)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid self-check salt: %w", err)
	}
	if len(salt) != kdf.S2KSaltSize {
		return nil, nil, fmt.Errorf("invalid self-check salt: want %d bytes, got %d", kdf.S2KSaltSize, len(salt))
	}
	key, err = hex.DecodeString(s.Key)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid self-check key: %w", err)
	}
	if len(key) == 0 {
		return nil, nil, errors.New("invalid self-check key: empty")
	}
	if s.Count < 0 {
		return nil, nil, fmt.Errorf("invalid self-check count %d", s.Count)
	}
	return salt, key, nil
}

// Run derives the S2K key of secret and compares it to the expected key.
func (s *SelfCheck) Run(secret []byte) error {
	salt, key, err := s.decode()
	if err != nil {
		return err
	}
	count := s.Count
	if count == 0 {
		count = kdf.DefaultS2KCount
	}

	derived := kdf.S2KKey(secret, salt, count)
	defer memguard.WipeBytes(derived)
	if subtle.ConstantTimeCompare(derived, key) != 1 {
		return ErrSelfCheckMismatch
	}
	return nil
}
