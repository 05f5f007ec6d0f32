package tier

import (
	"context"
	"fmt"
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

// AchievementDispatcher schedules a best-effort achievement check for a
// user. Implementations must not block on the outcome.
type AchievementDispatcher interface {
	DispatchAchievementCheck(ctx context.Context, userID string)
}

type Service struct {
	db     *gorm.DB
	node   *snowflake.Node
	ledger *ledger.Service

	tiers repository.Repository[model.Tier]
	users repository.Repository[model.User]

	dispatcher AchievementDispatcher
}

type ServiceParams struct {
	fx.In
	DB     *gorm.DB
	Node   *snowflake.Node
	Ledger *ledger.Service

	Dispatcher AchievementDispatcher `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:     p.DB,
		node:   p.Node,
		ledger: p.Ledger,

		tiers: repository.ProvideStore[model.Tier](p.DB),
		users: repository.ProvideStore[model.User](p.DB),

		dispatcher: p.Dispatcher,
	}
}

// Resolve returns the tier with the greatest MinPoints at or below the
// given point total. A missing floor tier is a deployment misconfiguration,
// not a caller error.
func (s *Service) Resolve(ctx context.Context, tx *gorm.DB, points int64) (*model.Tier, error) {
	matches, err := s.tiers.WithTrx(tx).Find(ctx, &model.Tier{},
		option.ApplyOperator(option.Condition{Field: "min_points", Operator: option.LTE, Value: points}),
		option.WithSortBy(option.QuerySortBy{SortBy: "min_points", OrderBy: "desc", Allow: map[string]bool{"min_points": true}}),
		option.WithLimit(1),
	)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, errutil.Internal(fmt.Sprintf("no tier configured at or below %d points; a zero-point floor tier is required", points))
	}
	return matches[0], nil
}

// RecalcUserTier reconciles the user's TierID with their current points.
// Idempotent: a repeat call with no point change writes nothing and logs
// nothing. A tier change logs TIER_ACHIEVED and, when the recalc is not
// part of a larger transaction, schedules an achievement check.
func (s *Service) RecalcUserTier(ctx context.Context, tx *gorm.DB, userID string) (*model.Tier, error) {
	users := s.users.WithTrx(tx)
	user, err := users.FindOne(ctx, &model.User{ID: userID})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errutil.NotFound("user not found")
	}

	resolved, err := s.Resolve(ctx, tx, user.Points)
	if err != nil {
		return nil, err
	}

	if user.TierID != nil && *user.TierID == resolved.ID {
		return resolved, nil
	}

	if err := users.Update(ctx, userID, map[string]any{
		"tier_id":    resolved.ID,
		"updated_at": time.Now(),
	}); err != nil {
		return nil, err
	}

	description := fmt.Sprintf("Reached tier %s", resolved.Name)
	if err := s.ledger.AppendLog(ctx, tx, userID, model.ActivityTierAchieved, description, nil); err != nil {
		return nil, err
	}

	zap.L().Info("tier achieved",
		zap.String("user_id", userID),
		zap.String("tier", resolved.Name),
		zap.Int64("min_points", resolved.MinPoints),
	)

	// Inside a caller's transaction the check must not fire yet: the tier
	// change can still roll back. The transaction owner dispatches after
	// commit; only a standalone recalc dispatches here.
	if tx == nil && s.dispatcher != nil {
		s.dispatcher.DispatchAchievementCheck(ctx, userID)
	}

	return resolved, nil
}
