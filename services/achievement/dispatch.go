package achievement

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"questboard/pkg/taskname"
)

// Dispatcher enqueues achievement checks on the low-priority queue. The
// enqueue is fire-and-forget: a user whose check is lost simply waits for
// the next scoring event to trigger another one.
type Dispatcher struct {
	client *asynq.Client
}

func NewDispatcher(client *asynq.Client) *Dispatcher {
	return &Dispatcher{client: client}
}

func (d *Dispatcher) DispatchAchievementCheck(ctx context.Context, userID string) {
	payload, err := json.Marshal(CheckPayload{UserID: userID})
	if err != nil {
		zap.L().Error("failed to marshal achievement check payload", zap.Error(err))
		return
	}

	if _, err := d.client.Enqueue(asynq.NewTask(taskname.AchievementCheck, payload), asynq.Queue("low")); err != nil {
		zap.L().Error("failed to enqueue achievement check",
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}
}
