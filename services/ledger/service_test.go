package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"questboard/internal/model"
	"questboard/pkg/errutil"
	"questboard/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func TestCreditPoints(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := NewService(ServiceParams{DB: db, Node: testutil.NewNode(t)})
	testutil.SeedUser(t, db, "user-1", 100)

	user, err := svc.CreditPoints(context.Background(), nil, "user-1", 50, model.ActivityTaskCreated, "Created task t-1")
	require.NoError(t, err)
	require.Equal(t, int64(150), user.Points)

	logs, err := svc.History(context.Background(), "user-1", 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.Equal(t, model.ActivityTaskCreated, logs[0].Type)
	require.NotNil(t, logs[0].PointsChange)
	require.Equal(t, int64(50), *logs[0].PointsChange)
}

func TestCreditPointsNegativeAmount(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := NewService(ServiceParams{DB: db, Node: testutil.NewNode(t)})
	testutil.SeedUser(t, db, "user-1", 0)

	_, err := svc.CreditPoints(context.Background(), nil, "user-1", -10, model.ActivityTaskCreated, "bad")
	require.Error(t, err)
	require.True(t, errutil.Is(err, errutil.StatusBadRequest))
}

func TestCreditPointsUnknownUser(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := NewService(ServiceParams{DB: db, Node: testutil.NewNode(t)})

	_, err := svc.CreditPoints(context.Background(), nil, "missing", 10, model.ActivityTaskCreated, "ghost")
	require.Error(t, err)
	require.True(t, errutil.Is(err, errutil.StatusNotFound))
}

func TestDebitPointsClampsAtZero(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := NewService(ServiceParams{DB: db, Node: testutil.NewNode(t)})
	testutil.SeedUser(t, db, "user-1", 30)

	user, err := svc.DebitPoints(context.Background(), nil, "user-1", 100, model.ActivityPointsRemoved, "revoked")
	require.NoError(t, err)
	require.Equal(t, int64(0), user.Points)

	// The log keeps the nominal amount, not the clamped delta.
	logs, err := svc.History(context.Background(), "user-1", 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.Equal(t, int64(-100), *logs[0].PointsChange)
}

func TestDebitPointsExactBalance(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := NewService(ServiceParams{DB: db, Node: testutil.NewNode(t)})
	testutil.SeedUser(t, db, "user-1", 100)

	user, err := svc.DebitPoints(context.Background(), nil, "user-1", 40, model.ActivityPointsRemoved, "revoked")
	require.NoError(t, err)
	require.Equal(t, int64(60), user.Points)
}

func TestUpdateStreakStampsActivity(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := NewService(ServiceParams{DB: db, Node: testutil.NewNode(t)})
	testutil.SeedUser(t, db, "user-1", 0)

	before := time.Now().Add(-time.Second)
	user, err := svc.UpdateStreak(context.Background(), nil, "user-1", 3, 5)
	require.NoError(t, err)
	require.Equal(t, 3, user.StreakCurrent)
	require.Equal(t, 5, user.StreakBest)
	require.NotNil(t, user.LastActivityAt)
	require.True(t, user.LastActivityAt.After(before))
}

func TestWeeklyPointsWindow(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := NewService(ServiceParams{DB: db, Node: testutil.NewNode(t)})
	testutil.SeedUser(t, db, "user-1", 0)

	ctx := context.Background()
	_, err := svc.CreditPoints(ctx, nil, "user-1", 50, model.ActivityTaskCreated, "recent credit")
	require.NoError(t, err)
	_, err = svc.DebitPoints(ctx, nil, "user-1", 20, model.ActivityPointsRemoved, "recent debit")
	require.NoError(t, err)

	// An entry older than the window must not count.
	old := int64(500)
	require.NoError(t, db.Create(&model.ActivityLog{
		ID:           "log-old",
		UserID:       "user-1",
		Type:         model.ActivityTaskCompleted,
		Description:  "ancient",
		PointsChange: &old,
		CreatedAt:    time.Now().AddDate(0, 0, -8),
	}).Error)

	sum, err := svc.WeeklyPoints(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, int64(30), sum)
}

func TestHistoryLimitAndOrder(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := NewService(ServiceParams{DB: db, Node: testutil.NewNode(t)})
	testutil.SeedUser(t, db, "user-1", 0)

	ctx := context.Background()
	for _, ts := range []time.Time{
		time.Now().Add(-3 * time.Hour),
		time.Now().Add(-2 * time.Hour),
		time.Now().Add(-1 * time.Hour),
	} {
		require.NoError(t, db.Create(&model.ActivityLog{
			ID:          svc.node.Generate().String(),
			UserID:      "user-1",
			Type:        model.ActivityTaskCreated,
			Description: "entry",
			CreatedAt:   ts,
		}).Error)
	}

	logs, err := svc.History(ctx, "user-1", 2)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	require.True(t, logs[0].CreatedAt.After(logs[1].CreatedAt))
}
