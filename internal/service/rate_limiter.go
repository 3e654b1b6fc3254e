package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alchile/backend/internal/config"
	"github.com/alchile/backend/internal/domain"
	"github.com/alchile/backend/internal/repository"

	"github.com/google/uuid"
)

// RateLimiter guards code issuance per user. CheckAndRecord either records
// one issuance or reports when the window resets. A blocked check mutates
// nothing, so deleting the record lifts the block immediately.
type RateLimiter interface {
	CheckAndRecord(ctx context.Context, userID uuid.UUID) (allowed bool, resetAt time.Time, err error)
}

type rateLimiter struct {
	repo   repository.RateLimits
	max    int
	window time.Duration
	now    func() time.Time
}

func newRateLimiter(repo repository.RateLimits, cfg config.RateLimitConfig) *rateLimiter {
	return &rateLimiter{
		repo:   repo,
		max:    cfg.MaxIssuances,
		window: cfg.Window,
		now:    time.Now,
	}
}

// CheckAndRecord runs entirely on conditional single-statement writes; two
// racing issuances for the same user never under-count.
func (l *rateLimiter) CheckAndRecord(ctx context.Context, userID uuid.UUID) (bool, time.Time, error) {
	now := l.now()

	// Open window with room left.
	applied, err := l.repo.Increment(ctx, userID, l.max, now)
	if err != nil {
		return false, time.Time{}, fmt.Errorf("increment rate limit failed: %w", err)
	}
	if applied {
		return true, time.Time{}, nil
	}

	// Window elapsed: start a fresh one on the existing row.
	resetAt := now.Add(l.window)
	applied, err = l.repo.ResetWindow(ctx, userID, now, resetAt)
	if err != nil {
		return false, time.Time{}, fmt.Errorf("reset rate limit window failed: %w", err)
	}
	if applied {
		return true, time.Time{}, nil
	}

	// No row yet: first issuance for this user.
	err = l.repo.Create(ctx, &domain.RateLimit{
		UserID:      userID,
		Attempts:    1,
		LastAttempt: now,
		ResetAt:     resetAt,
	})
	if err == nil {
		return true, time.Time{}, nil
	}
	if !errors.Is(err, domain.ErrDuplicateEntry) {
		return false, time.Time{}, fmt.Errorf("create rate limit failed: %w", err)
	}

	// Lost the insert race; the row exists now, try it once more.
	applied, err = l.repo.Increment(ctx, userID, l.max, now)
	if err != nil {
		return false, time.Time{}, fmt.Errorf("increment rate limit failed: %w", err)
	}
	if applied {
		return true, time.Time{}, nil
	}

	record, err := l.repo.Get(ctx, userID)
	if err != nil {
		return false, time.Time{}, fmt.Errorf("get rate limit failed: %w", err)
	}

	return false, record.ResetAt, nil
}

type rateLimitService struct {
	repo repository.RateLimits
}

func newRateLimitService(repo repository.RateLimits) *rateLimitService {
	return &rateLimitService{
		repo: repo,
	}
}

func (s *rateLimitService) Get(ctx context.Context, userID uuid.UUID) (*domain.RateLimit, error) {
	return s.repo.Get(ctx, userID)
}

// Lift removes the user's issuance record, the operational escape hatch for
// manually unblocking a user.
func (s *rateLimitService) Lift(ctx context.Context, userID uuid.UUID) error {
	return s.repo.Delete(ctx, userID)
}
