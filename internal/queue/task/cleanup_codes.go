package task

import (
	"github.com/hibiken/asynq"
)

const (
	CleanupCodesTaskName  = "cleanupCodesTask"
	CleanupCodesQueueName = "maintenanceQueue"
)

func NewCleanupCodesTask() *asynq.Task {
	return asynq.NewTask(
		CleanupCodesTaskName,
		nil,
		asynq.MaxRetry(3),
		asynq.Queue(CleanupCodesQueueName),
	)
}
