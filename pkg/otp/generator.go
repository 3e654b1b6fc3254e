package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	codeMin  = 100000
	codeSpan = 900000
)

// Generator produces one-time verification codes.
type Generator interface {
	Generate() (string, error)
}

type randomGenerator struct{}

// NewRandomGenerator returns a Generator drawing uniformly from
// [100000, 999999], so a code is always exactly six digits.
func NewRandomGenerator() Generator {
	return randomGenerator{}
}

func (randomGenerator) Generate() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeSpan))
	if err != nil {
		return "", fmt.Errorf("read random failed: %w", err)
	}

	return fmt.Sprintf("%06d", n.Int64()+codeMin), nil
}
