package gamification

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"questboard/internal/model"
	"questboard/services/ledger"
	"questboard/services/testutil"
	"questboard/services/tier"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type dispatcherMock struct {
	calls []string
}

func (d *dispatcherMock) DispatchAchievementCheck(_ context.Context, userID string) {
	d.calls = append(d.calls, userID)
}

func newTestService(t *testing.T, db *gorm.DB, dispatcher AchievementDispatcher) *Service {
	t.Helper()
	node := testutil.NewNode(t)
	books := ledger.NewService(ledger.ServiceParams{DB: db, Node: node})
	tiers := tier.NewService(tier.ServiceParams{DB: db, Node: node, Ledger: books})
	return NewService(ServiceParams{Ledger: books, Tiers: tiers, Dispatcher: dispatcher})
}

func TestAddPointsForTaskCreation(t *testing.T) {
	db := testutil.NewTestDB(t)
	testutil.SeedTier(t, db, "tier-bronze", "Bronze", 0, 0)
	testutil.SeedTier(t, db, "tier-silver", "Silver", 100, 1)
	dispatcher := &dispatcherMock{}
	svc := newTestService(t, db, dispatcher)
	testutil.SeedUser(t, db, "user-1", 0)

	err := svc.AddPointsForTaskCreation(context.Background(), nil, "user-1", 50, "task-1")
	require.NoError(t, err)

	var user model.User
	require.NoError(t, db.First(&user, "id = ?", "user-1").Error)
	require.Equal(t, int64(50), user.Points)
	require.NotNil(t, user.TierID)
	require.Equal(t, "tier-bronze", *user.TierID)
	require.NotEmpty(t, dispatcher.calls)

	var log model.ActivityLog
	require.NoError(t, db.First(&log, "user_id = ? AND type = ?", "user-1", model.ActivityTaskCreated).Error)
	require.Equal(t, "Created task task-1", log.Description)
}

func TestCompletionCrossesTierBoundary(t *testing.T) {
	db := testutil.NewTestDB(t)
	testutil.SeedTier(t, db, "tier-bronze", "Bronze", 0, 0)
	testutil.SeedTier(t, db, "tier-silver", "Silver", 100, 1)
	svc := newTestService(t, db, nil)
	testutil.SeedUser(t, db, "user-1", 50)

	err := svc.AddPointsForTaskCompletion(context.Background(), nil, "user-1", 100, "task-1")
	require.NoError(t, err)

	var user model.User
	require.NoError(t, db.First(&user, "id = ?", "user-1").Error)
	require.Equal(t, int64(150), user.Points)
	require.Equal(t, "tier-silver", *user.TierID)
}

func TestRevokeDropsTierBack(t *testing.T) {
	db := testutil.NewTestDB(t)
	testutil.SeedTier(t, db, "tier-bronze", "Bronze", 0, 0)
	testutil.SeedTier(t, db, "tier-silver", "Silver", 100, 1)
	svc := newTestService(t, db, nil)
	testutil.SeedUser(t, db, "user-1", 0)

	ctx := context.Background()
	require.NoError(t, svc.AddPointsForTaskCompletion(ctx, nil, "user-1", 120, "task-1"))
	require.NoError(t, svc.RemovePointsForTaskUncompletion(ctx, nil, "user-1", 120, "task-1"))

	var user model.User
	require.NoError(t, db.First(&user, "id = ?", "user-1").Error)
	require.Equal(t, int64(0), user.Points)
	require.Equal(t, "tier-bronze", *user.TierID)

	var log model.ActivityLog
	require.NoError(t, db.First(&log, "user_id = ? AND type = ?", "user-1", model.ActivityPointsRemoved).Error)
	require.Equal(t, "Task task-1 moved out of completion", log.Description)
}

func TestRevokeClampedBelowZero(t *testing.T) {
	db := testutil.NewTestDB(t)
	testutil.SeedTier(t, db, "tier-bronze", "Bronze", 0, 0)
	svc := newTestService(t, db, nil)
	testutil.SeedUser(t, db, "user-1", 30)

	err := svc.RemovePointsForTaskDeletion(context.Background(), nil, "user-1", 100, "task-1")
	require.NoError(t, err)

	var user model.User
	require.NoError(t, db.First(&user, "id = ?", "user-1").Error)
	require.Equal(t, int64(0), user.Points)
}
