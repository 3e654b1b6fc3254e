package domain

import (
	"time"

	"github.com/google/uuid"
)

type Purpose string

const (
	PurposeRegistration Purpose = "registration"
	PurposeLogin        Purpose = "login"
	PurposeResend       Purpose = "resend"
)

func (p Purpose) Valid() bool {
	switch p {
	case PurposeRegistration, PurposeLogin, PurposeResend:
		return true
	}
	return false
}

// VerificationCode is one issued OTP. Verified is terminal: it is set either
// by a successful code match or by bulk invalidation when a newer code
// supersedes this one.
type VerificationCode struct {
	ID          uuid.UUID  `db:"id"`
	UserID      uuid.UUID  `db:"user_id"`
	PhoneNumber string     `db:"phone_number"`
	Code        string     `db:"code"`
	Purpose     Purpose    `db:"purpose"`
	Attempts    int        `db:"attempts"`
	Verified    bool       `db:"verified"`
	VerifiedAt  *time.Time `db:"verified_at"`
	CreatedAt   time.Time  `db:"created_at"`
	ExpiresAt   time.Time  `db:"expires_at"`
	IPAddress   *string    `db:"ip_address"`
	UserAgent   *string    `db:"user_agent"`
}

func (v *VerificationCode) Expired(now time.Time) bool {
	return !v.ExpiresAt.After(now)
}

func (v *VerificationCode) Active(now time.Time) bool {
	return !v.Verified && !v.Expired(now)
}
