package service

import (
	"errors"
	"fmt"
)

var (
	ErrRateLimited      = errors.New("code issuance rate limited")
	ErrInvalidOrExpired = errors.New("verification code invalid or expired")
	ErrTooManyAttempts  = errors.New("too many verification attempts")
	ErrDeliveryFailed   = errors.New("code delivery failed")
	ErrStoreUnavailable = errors.New("verification store unavailable")
)

// InvalidCodeError reports a wrong code together with the attempts the
// record still accepts. Matches ErrInvalidOrExpired under errors.Is.
type InvalidCodeError struct {
	AttemptsRemaining int
}

func (e *InvalidCodeError) Error() string {
	return fmt.Sprintf("verification code invalid, %d attempts remaining", e.AttemptsRemaining)
}

func (e *InvalidCodeError) Is(target error) bool {
	return target == ErrInvalidOrExpired
}

func storeUnavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}
