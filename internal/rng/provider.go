package rng

import (
	"context"
	"crypto/rand"
	"fmt"
)

// Provider supplies an unpredictable seed for each dice roll. The engine
// never generates randomness itself; whatever the provider returns is the
// sole entropy behind a roll.
type Provider interface {
	Seed(ctx context.Context) ([]byte, error)
}

// Local draws seeds from crypto/rand. Suitable for development and tests;
// staked play should point at a verifiable beacon instead.
type Local struct{}

func NewLocal() *Local { return &Local{} }

func (l *Local) Seed(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("read entropy: %w", err)
	}
	return b, nil
}
