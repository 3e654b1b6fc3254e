package service

import (
	"context"

	"github.com/alchile/backend/internal/config"
	"github.com/alchile/backend/internal/domain"
	"github.com/alchile/backend/internal/repository"
	"github.com/alchile/backend/pkg/otp"

	"github.com/google/uuid"
)

type Services struct {
	Verification Verification
	RateLimits   RateLimits
}

type Deps struct {
	Config    *config.Config
	Generator otp.Generator
	Deliverer Deliverer
	Repos     *repository.Repositories
}

func NewServices(deps Deps) *Services {
	limiter := newRateLimiter(deps.Repos.RateLimits, deps.Config.RateLimit)

	return &Services{
		Verification: newVerificationService(
			deps.Repos.VerificationCodes,
			limiter,
			deps.Deliverer,
			deps.Generator,
			deps.Config.OTP,
		),
		RateLimits: newRateLimitService(deps.Repos.RateLimits),
	}
}

type Verification interface {
	RequestCode(ctx context.Context, userID uuid.UUID, phoneNumber string, purpose domain.Purpose, ipAddress *string, userAgent *string) (uuid.UUID, error)
	VerifyCode(ctx context.Context, userID uuid.UUID, code string) (bool, error)
	GetLastCode(ctx context.Context, userID uuid.UUID) (*domain.VerificationCode, error)
	Status(ctx context.Context, userID uuid.UUID) (*CodeStatus, error)
	CleanupExpired(ctx context.Context) (int64, error)
}

type RateLimits interface {
	Get(ctx context.Context, userID uuid.UUID) (*domain.RateLimit, error)
	Lift(ctx context.Context, userID uuid.UUID) error
}
