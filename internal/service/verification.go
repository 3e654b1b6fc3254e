package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alchile/backend/internal/config"
	"github.com/alchile/backend/internal/domain"
	"github.com/alchile/backend/internal/repository"
	"github.com/alchile/backend/pkg/logger"
	"github.com/alchile/backend/pkg/otp"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// batchSize bounds every bulk statement against the store.
const batchSize = 500

// Deliverer is the outbound side of issuance; the gateway's channel id is
// returned for metrics.
type Deliverer interface {
	SendOTP(ctx context.Context, to string, code string, validity time.Duration) (string, error)
}

type verificationService struct {
	codes     repository.VerificationCodes
	limiter   RateLimiter
	deliverer Deliverer
	generator otp.Generator
	cfg       config.OTPConfig
	now       func() time.Time
}

func newVerificationService(
	codes repository.VerificationCodes,
	limiter RateLimiter,
	deliverer Deliverer,
	generator otp.Generator,
	cfg config.OTPConfig,
) *verificationService {
	return &verificationService{
		codes:     codes,
		limiter:   limiter,
		deliverer: deliverer,
		generator: generator,
		cfg:       cfg,
		now:       time.Now,
	}
}

// RequestCode issues a fresh code for the user: rate-limit check, bulk
// invalidation of outstanding codes, create, deliver. The code value never
// leaves through the return path, only through the delivery channel. On
// delivery failure the persisted record is kept so the caller can retry
// delivery or reissue.
func (s *verificationService) RequestCode(
	ctx context.Context,
	userID uuid.UUID,
	phoneNumber string,
	purpose domain.Purpose,
	ipAddress *string,
	userAgent *string,
) (uuid.UUID, error) {
	if purpose == "" {
		purpose = domain.PurposeRegistration
	}

	allowed, resetAt, err := s.limiter.CheckAndRecord(ctx, userID)
	if err != nil {
		return uuid.Nil, storeUnavailable(err)
	}
	if !allowed {
		logger.Info("code issuance rate limited",
			zap.String("user_id", userID.String()),
			zap.Time("reset_at", resetAt),
		)
		return uuid.Nil, ErrRateLimited
	}

	s.invalidateOutstanding(ctx, userID)

	code, err := s.generator.Generate()
	if err != nil {
		return uuid.Nil, fmt.Errorf("generate code failed: %w", err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return uuid.Nil, fmt.Errorf("generate verification code id failed: %w", err)
	}

	now := s.now()
	record := &domain.VerificationCode{
		ID:          id,
		UserID:      userID,
		PhoneNumber: phoneNumber,
		Code:        code,
		Purpose:     purpose,
		Attempts:    0,
		Verified:    false,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.cfg.Expiration),
		IPAddress:   ipAddress,
		UserAgent:   userAgent,
	}

	if err := s.codes.Create(ctx, record); err != nil {
		return uuid.Nil, storeUnavailable(err)
	}

	channel, err := s.deliverer.SendOTP(ctx, phoneNumber, code, s.cfg.Expiration)
	if err != nil {
		logger.Error("code delivery failed",
			zap.String("user_id", userID.String()),
			zap.String("verification_code_id", id.String()),
			zap.Error(err),
		)
		// The record stays valid for a delivery retry.
		return id, ErrDeliveryFailed
	}

	logger.Info("verification code issued",
		zap.String("user_id", userID.String()),
		zap.String("verification_code_id", id.String()),
		zap.String("purpose", string(purpose)),
		zap.String("channel", channel),
	)

	return id, nil
}

// invalidateOutstanding supersedes the user's unverified codes in bounded
// batches. Best effort: issuance proceeds even if this fails, leftovers are
// unmatchable once the new code exists and cleanup removes them later.
func (s *verificationService) invalidateOutstanding(ctx context.Context, userID uuid.UUID) {
	for {
		n, err := s.codes.InvalidateOutstanding(ctx, userID, s.now(), batchSize)
		if err != nil {
			logger.Warn("invalidate outstanding codes failed",
				zap.String("user_id", userID.String()),
				zap.Error(err),
			)
			return
		}
		if n < batchSize {
			return
		}
	}
}

// VerifyCode checks the submitted code against the user's single active
// record. The attempt ceiling is evaluated against the pre-existing count; a
// wrong code consumes one attempt, a match consumes the attempt and marks
// the record verified in one conditional write.
func (s *verificationService) VerifyCode(ctx context.Context, userID uuid.UUID, code string) (bool, error) {
	record, err := s.codes.GetActive(ctx, userID, s.now())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, ErrInvalidOrExpired
		}
		return false, storeUnavailable(err)
	}

	if record.Attempts >= s.cfg.MaxAttempts {
		return false, ErrTooManyAttempts
	}

	if record.Code != code {
		applied, err := s.codes.RegisterAttempt(ctx, record.ID, s.cfg.MaxAttempts)
		if err != nil {
			return false, storeUnavailable(err)
		}

		remaining := 0
		if applied {
			remaining = s.cfg.MaxAttempts - record.Attempts - 1
		}

		return false, &InvalidCodeError{AttemptsRemaining: remaining}
	}

	applied, err := s.codes.Consume(ctx, record.ID, s.cfg.MaxAttempts, s.now())
	if err != nil {
		return false, storeUnavailable(err)
	}
	if !applied {
		// A concurrent attempt consumed the record between the read and the
		// conditional write.
		return false, ErrInvalidOrExpired
	}

	logger.Info("verification code accepted",
		zap.String("user_id", userID.String()),
		zap.String("verification_code_id", record.ID.String()),
	)

	return true, nil
}

// GetLastCode returns the most recently created record for the user
// regardless of status, or nil when the user never requested a code.
func (s *verificationService) GetLastCode(ctx context.Context, userID uuid.UUID) (*domain.VerificationCode, error) {
	record, err := s.codes.GetLast(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, storeUnavailable(err)
	}

	return record, nil
}

// CodeStatus is what clients may learn about the user's current code:
// enough for cooldown timers and attempt counters, never the code itself.
type CodeStatus struct {
	Active            bool
	ExpiresAt         *time.Time
	AttemptsRemaining int
	RetryAfter        time.Duration
}

func (s *verificationService) Status(ctx context.Context, userID uuid.UUID) (*CodeStatus, error) {
	record, err := s.GetLastCode(ctx, userID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return &CodeStatus{}, nil
	}

	now := s.now()
	status := &CodeStatus{}

	if cooldownEnds := record.CreatedAt.Add(s.cfg.ResendCooldown); cooldownEnds.After(now) {
		status.RetryAfter = cooldownEnds.Sub(now)
	}

	if record.Active(now) {
		expiresAt := record.ExpiresAt
		status.Active = true
		status.ExpiresAt = &expiresAt
		if remaining := s.cfg.MaxAttempts - record.Attempts; remaining > 0 {
			status.AttemptsRemaining = remaining
		}
	}

	return status, nil
}

// CleanupExpired deletes expired records in bounded batches and reports how
// many were removed. Safe to run concurrently with live traffic: expired
// records are already terminal.
func (s *verificationService) CleanupExpired(ctx context.Context) (int64, error) {
	var total int64

	for {
		n, err := s.codes.DeleteExpired(ctx, s.now(), batchSize)
		if err != nil {
			return total, storeUnavailable(err)
		}

		total += n
		if n < batchSize {
			break
		}
	}

	if total > 0 {
		logger.Info("expired verification codes removed", zap.Int64("count", total))
	}

	return total, nil
}
