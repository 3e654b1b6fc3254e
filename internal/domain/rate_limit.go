package domain

import (
	"time"

	"github.com/google/uuid"
)

// RateLimit is the per-user issuance window. One row per user; Attempts
// counts code issuances inside the window ending at ResetAt.
type RateLimit struct {
	UserID      uuid.UUID `db:"user_id"`
	Attempts    int       `db:"attempts"`
	LastAttempt time.Time `db:"last_attempt"`
	ResetAt     time.Time `db:"reset_at"`
}
