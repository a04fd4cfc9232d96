package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"
)

var (
	ErrNotFound        = errors.New("otp not found or expired")
	ErrTooManyAttempts = errors.New("too many otp attempts")
	ErrMismatch        = errors.New("otp does not match")
)

// Store is TTL-bounded per-identity state: the issued code and the attempt
// counter. The redis implementation survives multi-instance deployment; the
// memory implementation backs tests and single-node dev.
type Store interface {
	Put(ctx context.Context, key, code string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	IncrAttempts(ctx context.Context, key string, ttl time.Duration) (int, error)
	Delete(ctx context.Context, key string) error
}

// Service issues and checks one-time passwords for claim submission.
type Service struct {
	store       Store
	ttl         time.Duration
	maxAttempts int
}

func NewService(store Store, ttl time.Duration, maxAttempts int) *Service {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &Service{store: store, ttl: ttl, maxAttempts: maxAttempts}
}

// Issue generates a fresh 6-digit code for the identity, replacing any
// previous one and resetting the attempt counter.
func (s *Service) Issue(ctx context.Context, identity string) (string, error) {
	code, err := generateCode()
	if err != nil {
		return "", err
	}
	if err := s.store.Delete(ctx, attemptsKey(identity)); err != nil && !errors.Is(err, ErrNotFound) {
		return "", err
	}
	if err := s.store.Put(ctx, codeKey(identity), code, s.ttl); err != nil {
		return "", err
	}
	return code, nil
}

// Verify checks the submitted code. The attempt counter is bumped before
// comparison so a brute-force cannot probe without spending attempts; a
// correct code consumes the OTP.
func (s *Service) Verify(ctx context.Context, identity, submitted string) error {
	attempts, err := s.store.IncrAttempts(ctx, attemptsKey(identity), s.ttl)
	if err != nil {
		return err
	}
	if attempts > s.maxAttempts {
		return ErrTooManyAttempts
	}

	code, err := s.store.Get(ctx, codeKey(identity))
	if err != nil {
		return err
	}
	if code != submitted {
		return ErrMismatch
	}

	_ = s.store.Delete(ctx, codeKey(identity))
	_ = s.store.Delete(ctx, attemptsKey(identity))
	return nil
}

func codeKey(identity string) string {
	return "otp:code:" + identity
}

func attemptsKey(identity string) string {
	return "otp:attempts:" + identity
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
