package worker

import (
	"context"

	"github.com/alchile/backend/internal/service"
)

type Workers struct {
	CodeCleanup CodeCleanup
}

type Deps struct {
	Services *service.Services
}

type CodeCleanup interface {
	Run(ctx context.Context) (int64, error)
}

func NewWorkers(deps Deps) *Workers {
	return &Workers{
		CodeCleanup: newCodeCleanup(deps.Services.Verification),
	}
}
