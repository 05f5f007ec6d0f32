package streak

import (
	"context"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Task is the asynq worker side of the daily sweep.
type Task struct {
	service *Service
}

func NewTask(service *Service) *Task {
	return &Task{service: service}
}

// HandleSweepTask runs one sweep. The sweep carries no payload; the next
// scheduled run covers anything a failed one missed, so errors are logged
// and the task is never retried.
func (t *Task) HandleSweepTask(ctx context.Context, _ *asynq.Task) error {
	reset, err := t.service.Sweep(ctx)
	if err != nil {
		zap.L().Error("streak sweep failed",
			zap.Int("reset_before_failure", reset),
			zap.Error(err),
		)
	}
	return nil
}
