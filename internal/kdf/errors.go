package kdf

import "errors"

var (
	ErrSaltTooShort     = errors.New("salt too short")
	ErrSaltTooLong      = errors.New("salt too long")
	ErrInvalidParams    = errors.New("invalid argon2 parameters")
	ErrUnknownAlgorithm = errors.New("unknown algorithm")
	ErrAlphabet         = errors.New("alphabet must hold between 2 and 256 symbols")
	ErrHashFormat       = errors.New("invalid password hash format")
	ErrHashAlgorithm    = errors.New("unsupported password hash algorithm")
	ErrHashVersion      = errors.New("unsupported argon2 version")
	ErrPasswordMismatch = errors.New("invalid password")
)

// IsSaltError reports whether err is a salt length violation. Salt errors are
// the only derivation errors a caller is expected to recover from.
func IsSaltError(err error) bool {
	return errors.Is(err, ErrSaltTooShort) || errors.Is(err, ErrSaltTooLong)
}
