package auth

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

// Password length bounds, in characters, accepted by the registration forms.
const (
	MinPasswordLength = 6
	MaxPasswordLength = 100
)

// bcryptMaxBytes is the longest input bcrypt accepts.
const bcryptMaxBytes = 72

var ErrPasswordMismatch = errors.New("password mismatch")

// bcryptInput returns plain unchanged when bcrypt can take it, otherwise
// the base64 SHA-256 digest of plain.
func bcryptInput(plain string) []byte {
	if len(plain) <= bcryptMaxBytes {
		return []byte(plain)
	}
	sum := sha256.Sum256([]byte(plain))
	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}

// HashPassword returns a bcrypt hash of plain.
func HashPassword(plain string) (string, error) {
	if n := utf8.RuneCountInString(plain); n < MinPasswordLength || n > MaxPasswordLength {
		return "", errors.New("password length out of range")
	}
	b, err := bcrypt.GenerateFromPassword(bcryptInput(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CheckPassword compares plain against a stored hash. An empty hash never matches.
func CheckPassword(hash, plain string) error {
	if hash == "" {
		return ErrPasswordMismatch
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), bcryptInput(plain)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return err
	}
	return nil
}
