package worker

import (
	"context"
	"fmt"

	"github.com/alchile/backend/internal/service"
	"github.com/alchile/backend/pkg/logger"

	"go.uber.org/zap"
)

type codeCleanup struct {
	verification service.Verification
}

func newCodeCleanup(verification service.Verification) *codeCleanup {
	return &codeCleanup{
		verification: verification,
	}
}

// Run removes expired verification codes. Idempotent: a rerun with nothing
// expired deletes nothing.
func (w *codeCleanup) Run(ctx context.Context) (int64, error) {
	count, err := w.verification.CleanupExpired(ctx)
	if err != nil {
		return count, fmt.Errorf("cleanup expired codes failed: %w", err)
	}

	logger.Debug("code cleanup finished", zap.Int64("deleted", count))

	return count, nil
}
