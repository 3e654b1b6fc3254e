package repository

import (
	"context"
	"time"

	"github.com/alchile/backend/internal/domain"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Repositories struct {
	VerificationCodes VerificationCodes
	RateLimits        RateLimits
}

func NewRepositories(db *sqlx.DB) *Repositories {
	return &Repositories{
		VerificationCodes: newVerificationCodeRepository(db),
		RateLimits:        newRateLimitRepository(db),
	}
}

// VerificationCodes is the persistence contract for issued codes. Every
// mutation is a single conditional statement so concurrent verification
// attempts and concurrent issuances serialize in the database, not in
// process.
type VerificationCodes interface {
	Create(ctx context.Context, code *domain.VerificationCode) error
	GetActive(ctx context.Context, userID uuid.UUID, now time.Time) (*domain.VerificationCode, error)
	GetLast(ctx context.Context, userID uuid.UUID) (*domain.VerificationCode, error)
	// RegisterAttempt adds one failed attempt to the record iff it is still
	// unverified and below the attempt ceiling. Reports whether the write
	// applied.
	RegisterAttempt(ctx context.Context, id uuid.UUID, maxAttempts int) (bool, error)
	// Consume adds the final attempt and marks the record verified in one
	// write, iff it is still unverified and below the attempt ceiling.
	Consume(ctx context.Context, id uuid.UUID, maxAttempts int, now time.Time) (bool, error)
	// InvalidateOutstanding marks up to limit unverified records of the user
	// as superseded and returns how many rows it touched.
	InvalidateOutstanding(ctx context.Context, userID uuid.UUID, now time.Time, limit int) (int64, error)
	// DeleteExpired removes up to limit expired records and returns how many
	// rows it touched.
	DeleteExpired(ctx context.Context, now time.Time, limit int) (int64, error)
}

// RateLimits is the persistence contract for the per-user issuance window.
type RateLimits interface {
	// Increment records one issuance iff the window is still open and below
	// max. Reports whether the write applied.
	Increment(ctx context.Context, userID uuid.UUID, max int, now time.Time) (bool, error)
	// ResetWindow starts a fresh window on an elapsed record. Reports whether
	// the write applied.
	ResetWindow(ctx context.Context, userID uuid.UUID, now time.Time, resetAt time.Time) (bool, error)
	Create(ctx context.Context, limit *domain.RateLimit) error
	Get(ctx context.Context, userID uuid.UUID) (*domain.RateLimit, error)
	Delete(ctx context.Context, userID uuid.UUID) error
}
