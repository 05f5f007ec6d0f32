package gamification

import (
	"context"
	"fmt"

	"go.uber.org/fx"
	"gorm.io/gorm"

	"questboard/internal/model"
	"questboard/services/ledger"
	"questboard/services/tier"
)

// AchievementDispatcher schedules a best-effort achievement check after a
// scoring event. Never blocks the calling transaction on the result.
type AchievementDispatcher interface {
	DispatchAchievementCheck(ctx context.Context, userID string)
}

// Service is the point-award entry point used by the task and project
// lifecycles. Every award/revoke goes through the ledger primitives, then
// recalculates the tier inside the same transaction. Callers are
// responsible for at-most-once semantics per transition; this layer applies
// whatever it is told to.
type Service struct {
	ledger     *ledger.Service
	tiers      *tier.Service
	dispatcher AchievementDispatcher
}

type ServiceParams struct {
	fx.In
	Ledger *ledger.Service
	Tiers  *tier.Service

	Dispatcher AchievementDispatcher `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	return &Service{
		ledger:     p.Ledger,
		tiers:      p.Tiers,
		dispatcher: p.Dispatcher,
	}
}

// AddPointsForTaskCreation credits the creation reward. Creation itself is
// a scored event, independent of completion.
func (s *Service) AddPointsForTaskCreation(ctx context.Context, tx *gorm.DB, userID string, amount int64, taskID string) error {
	return s.award(ctx, tx, userID, amount, model.ActivityTaskCreated,
		fmt.Sprintf("Created task %s", taskID))
}

// AddPointsForTaskCompletion credits the completion reward.
func (s *Service) AddPointsForTaskCompletion(ctx context.Context, tx *gorm.DB, userID string, amount int64, taskID string) error {
	return s.award(ctx, tx, userID, amount, model.ActivityTaskCompleted,
		fmt.Sprintf("Completed task %s", taskID))
}

// RemovePointsForTaskUncompletion revokes completion points when a task
// leaves a completion column. The debit is clamped at zero by the ledger.
func (s *Service) RemovePointsForTaskUncompletion(ctx context.Context, tx *gorm.DB, userID string, amount int64, taskID string) error {
	return s.revoke(ctx, tx, userID, amount,
		fmt.Sprintf("Task %s moved out of completion", taskID))
}

// RemovePointsForAssigneeRemoval revokes completion points from a user who
// is retroactively taken off an already-completed task.
func (s *Service) RemovePointsForAssigneeRemoval(ctx context.Context, tx *gorm.DB, userID string, amount int64, taskID string) error {
	return s.revoke(ctx, tx, userID, amount,
		fmt.Sprintf("Removed from completed task %s", taskID))
}

// RemovePointsForTaskDeletion revokes points as part of reversing a deleted
// task's effects.
func (s *Service) RemovePointsForTaskDeletion(ctx context.Context, tx *gorm.DB, userID string, amount int64, taskID string) error {
	return s.revoke(ctx, tx, userID, amount,
		fmt.Sprintf("Points revoked for deleted task %s", taskID))
}

func (s *Service) award(ctx context.Context, tx *gorm.DB, userID string, amount int64, activityType model.ActivityType, description string) error {
	if _, err := s.ledger.CreditPoints(ctx, tx, userID, amount, activityType, description); err != nil {
		return err
	}
	if _, err := s.tiers.RecalcUserTier(ctx, tx, userID); err != nil {
		return err
	}
	// A dispatch before the enclosing transaction commits could schedule a
	// check for points that roll back. When tx is set the transaction owner
	// collects the user and dispatches after commit.
	if tx == nil && s.dispatcher != nil {
		s.dispatcher.DispatchAchievementCheck(ctx, userID)
	}
	return nil
}

func (s *Service) revoke(ctx context.Context, tx *gorm.DB, userID string, amount int64, description string) error {
	if _, err := s.ledger.DebitPoints(ctx, tx, userID, amount, model.ActivityPointsRemoved, description); err != nil {
		return err
	}
	if _, err := s.tiers.RecalcUserTier(ctx, tx, userID); err != nil {
		return err
	}
	return nil
}
