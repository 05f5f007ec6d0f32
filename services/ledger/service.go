package ledger

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"questboard/internal/model"
	"questboard/pkg/db/option"
	"questboard/pkg/errutil"
	"questboard/pkg/repository"
)

// Service holds the ledger primitives: atomic point credits/debits and
// streak updates against a user row, plus the append-only activity log.
// No business policy lives here; callers decide amounts and reasons.
type Service struct {
	db   *gorm.DB
	node *snowflake.Node

	users    repository.Repository[model.User]
	activity repository.Repository[model.ActivityLog]
}

type ServiceParams struct {
	fx.In
	DB   *gorm.DB
	Node *snowflake.Node
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:   p.DB,
		node: p.Node,

		users:    repository.ProvideStore[model.User](p.DB),
		activity: repository.ProvideStore[model.ActivityLog](p.DB),
	}
}

// CreditPoints increments the user's points by amount and appends an
// activity entry with a positive PointsChange. Runs in the caller's
// transaction when tx is non-nil.
func (s *Service) CreditPoints(ctx context.Context, tx *gorm.DB, userID string, amount int64, activityType model.ActivityType, description string) (*model.User, error) {
	if amount < 0 {
		return nil, errutil.BadRequest("credit amount must not be negative")
	}

	users := s.users.WithTrx(tx)
	user, err := users.FindOne(ctx, &model.User{ID: userID}, option.WithLockingUpdate())
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errutil.NotFound("user not found")
	}

	if err := users.Update(ctx, userID, map[string]any{
		"points":     gorm.Expr("points + ?", amount),
		"updated_at": time.Now(),
	}); err != nil {
		return nil, err
	}

	if err := s.AppendLog(ctx, tx, userID, activityType, description, int64Ptr(amount)); err != nil {
		return nil, err
	}

	return users.FindOne(ctx, &model.User{ID: userID})
}

// DebitPoints decrements the user's points by amount, clamped at zero.
// The activity entry records the nominal amount requested, not the clamped
// delta; the audit trail keeps what was asked for. The balance row stays
// locked from the read through the write so a concurrent credit cannot be
// overwritten by the clamped value.
func (s *Service) DebitPoints(ctx context.Context, tx *gorm.DB, userID string, amount int64, activityType model.ActivityType, description string) (*model.User, error) {
	if amount < 0 {
		return nil, errutil.BadRequest("debit amount must not be negative")
	}

	users := s.users.WithTrx(tx)
	user, err := users.FindOne(ctx, &model.User{ID: userID}, option.WithLockingUpdate())
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errutil.NotFound("user not found")
	}

	newPoints := user.Points - amount
	if newPoints < 0 {
		zap.L().Debug("debit clamped at zero",
			zap.String("user_id", userID),
			zap.Int64("requested", amount),
			zap.Int64("balance", user.Points),
		)
		newPoints = 0
	}

	if err := users.Update(ctx, userID, map[string]any{
		"points":     newPoints,
		"updated_at": time.Now(),
	}); err != nil {
		return nil, err
	}

	if err := s.AppendLog(ctx, tx, userID, activityType, description, int64Ptr(-amount)); err != nil {
		return nil, err
	}

	return users.FindOne(ctx, &model.User{ID: userID})
}

// UpdateStreak sets both streak fields and stamps LastActivityAt.
func (s *Service) UpdateStreak(ctx context.Context, tx *gorm.DB, userID string, newCurrent, newBest int) (*model.User, error) {
	users := s.users.WithTrx(tx)
	user, err := users.FindOne(ctx, &model.User{ID: userID}, option.WithLockingUpdate())
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errutil.NotFound("user not found")
	}

	if err := users.Update(ctx, userID, map[string]any{
		"streak_current":   newCurrent,
		"streak_best":      newBest,
		"last_activity_at": time.Now(),
		"updated_at":       time.Now(),
	}); err != nil {
		return nil, err
	}

	return users.FindOne(ctx, &model.User{ID: userID})
}

// AppendLog writes one activity entry. All audit writes go through here so
// entries get uniform IDs and timestamps.
func (s *Service) AppendLog(ctx context.Context, tx *gorm.DB, userID string, activityType model.ActivityType, description string, pointsChange *int64) error {
	return s.activity.WithTrx(tx).Create(ctx, &model.ActivityLog{
		ID:           s.node.Generate().String(),
		UserID:       userID,
		Type:         activityType,
		Description:  description,
		PointsChange: pointsChange,
		CreatedAt:    time.Now(),
	})
}

// AppendLogWithMetadata is AppendLog plus a JSON metadata blob, for entries
// that describe rows which no longer exist afterwards.
func (s *Service) AppendLogWithMetadata(ctx context.Context, tx *gorm.DB, userID string, activityType model.ActivityType, description string, pointsChange *int64, metadata map[string]any) error {
	blob, err := json.Marshal(metadata)
	if err != nil {
		return err
	}
	return s.activity.WithTrx(tx).Create(ctx, &model.ActivityLog{
		ID:           s.node.Generate().String(),
		UserID:       userID,
		Type:         activityType,
		Description:  description,
		PointsChange: pointsChange,
		Metadata:     datatypes.JSON(blob),
		CreatedAt:    time.Now(),
	})
}

// WeeklyPoints sums PointsChange over the user's activity in the last 7
// days. Entries without a points change count as zero.
func (s *Service) WeeklyPoints(ctx context.Context, userID string) (int64, error) {
	var sum int64
	err := s.db.WithContext(ctx).
		Model(&model.ActivityLog{}).
		Where("user_id = ? AND created_at >= ?", userID, time.Now().AddDate(0, 0, -7)).
		Select("COALESCE(SUM(points_change), 0)").
		Scan(&sum).Error
	return sum, err
}

// History returns the user's most recent activity entries.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]*model.ActivityLog, error) {
	return s.activity.Find(ctx, &model.ActivityLog{UserID: userID},
		option.WithSortBy(option.QuerySortBy{SortBy: "created_at", OrderBy: "desc", Allow: map[string]bool{"created_at": true}}),
		option.WithLimit(limit),
	)
}

func int64Ptr(v int64) *int64 { return &v }
