package achievement

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"questboard/internal/model"
	"questboard/pkg/db/option"
	"questboard/pkg/errutil"
	"questboard/pkg/repository"
	"questboard/services/ledger"
)

// Service scans all achievement definitions against a snapshot of user
// state and awards newly-satisfied ones exactly once. It is deliberately
// off the critical path: internal failures are logged and swallowed, never
// surfaced to the operation that triggered the check.
type Service struct {
	db     *gorm.DB
	node   *snowflake.Node
	ledger *ledger.Service

	evaluator Evaluator

	achievements repository.Repository[model.Achievement]
	earned       repository.Repository[model.UserAchievement]
	users        repository.Repository[model.User]
}

type ServiceParams struct {
	fx.In
	DB        *gorm.DB
	Node      *snowflake.Node
	Ledger    *ledger.Service
	Evaluator Evaluator
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:        p.DB,
		node:      p.Node,
		ledger:    p.Ledger,
		evaluator: p.Evaluator,

		achievements: repository.ProvideStore[model.Achievement](p.DB),
		earned:       repository.ProvideStore[model.UserAchievement](p.DB),
		users:        repository.ProvideStore[model.User](p.DB),
	}
}

// CheckAndAward evaluates every not-yet-earned achievement for the user and
// awards the satisfied ones. Criteria that cannot be evaluated are skipped
// without error. A concurrent duplicate award loses to the unique
// (user_id, achievement_id) constraint and is ignored.
func (s *Service) CheckAndAward(ctx context.Context, userID string) error {
	snap, err := s.loadSnapshot(ctx, userID)
	if err != nil {
		return err
	}

	earnedRows, err := s.earned.Find(ctx, &model.UserAchievement{UserID: userID})
	if err != nil {
		return err
	}
	earnedSet := make(map[string]bool, len(earnedRows))
	for _, row := range earnedRows {
		earnedSet[row.AchievementID] = true
	}

	all, err := s.achievements.Find(ctx, &model.Achievement{},
		option.WithSortBy(option.QuerySortBy{SortBy: "name", OrderBy: "asc", Allow: map[string]bool{"name": true}}),
	)
	if err != nil {
		return err
	}

	for _, definition := range all {
		if earnedSet[definition.ID] {
			continue
		}

		satisfied, err := s.evaluator.Evaluate(definition.Criteria, *snap)
		if err != nil {
			zap.L().Debug("criteria not evaluable, skipping",
				zap.String("achievement", definition.Name),
				zap.String("criteria", definition.Criteria),
				zap.Error(err),
			)
			continue
		}
		if !satisfied {
			continue
		}

		if err := s.award(ctx, userID, definition); err != nil {
			zap.L().Warn("failed to award achievement",
				zap.String("user_id", userID),
				zap.String("achievement", definition.Name),
				zap.Error(err),
			)
			continue
		}

		zap.L().Info("achievement earned",
			zap.String("user_id", userID),
			zap.String("achievement", definition.Name),
		)
	}

	return nil
}

func (s *Service) award(ctx context.Context, userID string, definition *model.Achievement) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.earned.WithTrx(tx).Create(ctx, &model.UserAchievement{
			ID:            s.node.Generate().String(),
			UserID:        userID,
			AchievementID: definition.ID,
			EarnedAt:      time.Now(),
		}); err != nil {
			return err
		}
		return s.ledger.AppendLog(ctx, tx, userID, model.ActivityAchievementEarned,
			"Earned achievement "+definition.Name, nil)
	})
}

func (s *Service) loadSnapshot(ctx context.Context, userID string) (*Snapshot, error) {
	user, err := s.users.FindOne(ctx, &model.User{ID: userID})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errutil.NotFound("user not found")
	}

	weekly, err := s.ledger.WeeklyPoints(ctx, userID)
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)

	var completedTasks int64
	if err := db.Raw(`SELECT COUNT(DISTINCT t.id) FROM tasks t
		LEFT JOIN task_assignees ta ON ta.task_id = t.id
		WHERE t.status = ? AND (t.assigned_to_id = ? OR ta.user_id = ?)`,
		model.StatusDone, userID, userID).Scan(&completedTasks).Error; err != nil {
		return nil, err
	}

	var createdTasks int64
	if err := db.Model(&model.Task{}).
		Where("created_by_id = ?", userID).
		Count(&createdTasks).Error; err != nil {
		return nil, err
	}

	var memberProjects int64
	if err := db.Model(&model.ProjectMember{}).
		Where("user_id = ?", userID).
		Count(&memberProjects).Error; err != nil {
		return nil, err
	}

	var completedMemberProjects int64
	if err := db.Raw(`SELECT COUNT(*) FROM projects p
		WHERE EXISTS (SELECT 1 FROM project_members pm WHERE pm.project_id = p.id AND pm.user_id = ?)
		  AND EXISTS (SELECT 1 FROM tasks t WHERE t.project_id = p.id)
		  AND NOT EXISTS (SELECT 1 FROM tasks t WHERE t.project_id = p.id AND t.status <> ?)`,
		userID, model.StatusDone).Scan(&completedMemberProjects).Error; err != nil {
		return nil, err
	}

	var ledCompletedProjects int64
	if err := db.Raw(`SELECT COUNT(*) FROM projects p
		WHERE p.leader_id = ?
		  AND EXISTS (SELECT 1 FROM tasks t WHERE t.project_id = p.id)
		  AND NOT EXISTS (SELECT 1 FROM tasks t WHERE t.project_id = p.id AND t.status <> ?)`,
		userID, model.StatusDone).Scan(&ledCompletedProjects).Error; err != nil {
		return nil, err
	}

	var bugTasks int64
	if err := db.Raw(`SELECT COUNT(DISTINCT t.id) FROM tasks t
		LEFT JOIN task_assignees ta ON ta.task_id = t.id
		WHERE t.status = ? AND t.tags LIKE ? AND (t.assigned_to_id = ? OR ta.user_id = ?)`,
		model.StatusDone, "%bug%", userID, userID).Scan(&bugTasks).Error; err != nil {
		return nil, err
	}

	return &Snapshot{
		Points:                  user.Points,
		WeeklyPoints:            weekly,
		CompletedTasks:          completedTasks,
		CreatedTasks:            createdTasks,
		MemberProjects:          memberProjects,
		CompletedMemberProjects: completedMemberProjects,
		LedCompletedProjects:    ledCompletedProjects,
		HasCompletedBugTask:     bugTasks > 0,
		ProfileCompleted:        user.AvatarColor != "" && user.Course != "",
		StreakCurrent:           int64(user.StreakCurrent),
	}, nil
}
