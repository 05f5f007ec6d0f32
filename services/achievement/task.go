package achievement

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

type CheckPayload struct {
	UserID string `json:"user_id"`
}

// Task is the asynq worker side of achievement checking.
type Task struct {
	service *Service
}

func NewTask(service *Service) *Task {
	return &Task{service: service}
}

// HandleCheckTask runs one achievement check. A failed check is logged and
// dropped: achievement awarding is best-effort and never retried, so the
// handler reports success to asynq regardless.
func (t *Task) HandleCheckTask(ctx context.Context, task *asynq.Task) error {
	var payload CheckPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}

	if err := t.service.CheckAndAward(ctx, payload.UserID); err != nil {
		zap.L().Error("achievement check failed",
			zap.String("user_id", payload.UserID),
			zap.Error(err),
		)
	}
	return nil
}
