// Package referral allocates referral codes and resolves the three-level
// downline of an agent.
package referral

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
)

// Alphabet is the symbol set for referral codes.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// DefaultCodeLength is the length used when none is configured.
const DefaultCodeLength = 6

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
)

var alphabetSize = big.NewInt(int64(len(Alphabet)))

// GenerateCode returns length symbols drawn uniformly and independently
// from Alphabet.
func GenerateCode(length int) (string, error) {
	if length < 1 {
		return "", fmt.Errorf("%w: code length %d", ErrInvalidInput, length)
	}
	buf := make([]byte, length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", fmt.Errorf("generate referral code: %w", err)
		}
		buf[i] = Alphabet[n.Int64()]
	}
	return string(buf), nil
}
