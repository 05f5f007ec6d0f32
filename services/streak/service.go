package streak

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"questboard/internal/config"
	"questboard/internal/model"
	"questboard/pkg/repository"
	"questboard/services/ledger"
)

// sweepWorkers bounds how many chunks are reset concurrently.
const sweepWorkers = 4

// AchievementDispatcher schedules a best-effort achievement check for a
// user whose streak was swept.
type AchievementDispatcher interface {
	DispatchAchievementCheck(ctx context.Context, userID string)
}

// Service resets daily streaks for users who went a full day without
// activity. StreakBest is never touched by the sweep.
type Service struct {
	db         *gorm.DB
	cfg        *config.Config
	ledger     *ledger.Service
	dispatcher AchievementDispatcher

	users repository.Repository[model.User]
}

type ServiceParams struct {
	fx.In
	DB     *gorm.DB
	Config *config.Config
	Ledger *ledger.Service

	Dispatcher AchievementDispatcher `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:         p.DB,
		cfg:        p.Config,
		ledger:     p.Ledger,
		dispatcher: p.Dispatcher,

		users: repository.ProvideStore[model.User](p.DB),
	}
}

// Sweep resets the streak of every user whose last activity predates today
// and whose streak is still running. Users are processed in chunks, each
// user in its own transaction so one failure never holds back the rest.
// Returns the number of streaks reset.
func (s *Service) Sweep(ctx context.Context) (int, error) {
	startOfToday := startOfDay(time.Now())

	var userIDs []string
	err := s.db.WithContext(ctx).
		Model(&model.User{}).
		Where("streak_current > 0").
		Where("last_activity_at IS NULL OR last_activity_at < ?", startOfToday).
		Order("id asc").
		Pluck("id", &userIDs).Error
	if err != nil {
		return 0, err
	}
	if len(userIDs) == 0 {
		return 0, nil
	}

	chunkSize := s.cfg.Sweeper.ChunkSize
	if chunkSize <= 0 {
		chunkSize = 100
	}

	var reset atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(sweepWorkers)
	for start := 0; start < len(userIDs); start += chunkSize {
		end := start + chunkSize
		if end > len(userIDs) {
			end = len(userIDs)
		}
		chunk := userIDs[start:end]
		g.Go(func() error {
			for _, userID := range chunk {
				if err := s.resetUser(ctx, userID, startOfToday); err != nil {
					return err
				}
				reset.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return int(reset.Load()), err
	}

	zap.L().Info("streak sweep finished",
		zap.Int("candidates", len(userIDs)),
		zap.Int64("reset", reset.Load()),
	)
	return int(reset.Load()), nil
}

// resetUser re-checks the user inside its own transaction; activity that
// landed between the candidate query and here keeps the streak alive.
func (s *Service) resetUser(ctx context.Context, userID string, startOfToday time.Time) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		users := s.users.WithTrx(tx)
		user, err := users.FindOne(ctx, &model.User{ID: userID})
		if err != nil || user == nil {
			return err
		}
		if user.StreakCurrent == 0 {
			return nil
		}
		if user.LastActivityAt != nil && !user.LastActivityAt.Before(startOfToday) {
			return nil
		}

		if err := users.Update(ctx, userID, map[string]any{
			"streak_current": 0,
			"updated_at":     time.Now(),
		}); err != nil {
			return err
		}
		return s.ledger.AppendLog(ctx, tx, userID, model.ActivityStreakReset,
			"Daily streak reset after a day of inactivity", nil)
	})
	if err != nil {
		return err
	}

	if s.dispatcher != nil {
		s.dispatcher.DispatchAchievementCheck(ctx, userID)
	}
	return nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
