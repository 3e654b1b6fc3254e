package processor

import (
	"context"
	"fmt"

	"github.com/alchile/backend/internal/worker"

	"github.com/hibiken/asynq"
)

type cleanupCodesProcessor struct {
	workers *worker.Workers
}

func NewCleanupCodesProcessor(workers *worker.Workers) *cleanupCodesProcessor {
	return &cleanupCodesProcessor{
		workers: workers,
	}
}

func (p *cleanupCodesProcessor) ProcessTask(ctx context.Context, _ *asynq.Task) error {
	if _, err := p.workers.CodeCleanup.Run(ctx); err != nil {
		return fmt.Errorf("process cleanup codes task failed: %w", err)
	}

	return nil
}
