package project

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"questboard/internal/model"
	"questboard/pkg/errutil"
	"questboard/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newTestService(t *testing.T, db *gorm.DB) *Service {
	t.Helper()
	return NewService(ServiceParams{DB: db, Node: testutil.NewNode(t), Config: testutil.NewTestConfig()})
}

func TestGetNotFound(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := newTestService(t, db)

	_, err := svc.Get(context.Background(), nil, "missing")
	require.Error(t, err)
	require.True(t, errutil.Is(err, errutil.StatusNotFound))
}

func TestColumnsCreatesDefaultBoard(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := newTestService(t, db)
	testutil.SeedUser(t, db, "leader", 0)
	testutil.SeedProject(t, db, "proj-1", "leader", "leader")

	columns, err := svc.Columns(context.Background(), nil, "proj-1")
	require.NoError(t, err)
	require.Len(t, columns, 3)
	require.Equal(t, "To Do", columns[0].Name)
	require.Equal(t, "In Progress", columns[1].Name)
	require.Equal(t, "Done", columns[2].Name)
	require.False(t, columns[0].IsCompletionColumn)
	require.False(t, columns[1].IsCompletionColumn)
	require.True(t, columns[2].IsCompletionColumn)

	// A second call returns the same board instead of duplicating it.
	again, err := svc.Columns(context.Background(), nil, "proj-1")
	require.NoError(t, err)
	require.Len(t, again, 3)
	require.Equal(t, columns[0].ID, again[0].ID)
}

func TestRewardsFallBackToConfig(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := newTestService(t, db)

	open, completed := svc.Rewards(&model.Project{})
	require.Equal(t, int64(50), open)
	require.Equal(t, int64(100), completed)

	open, completed = svc.Rewards(&model.Project{PointsPerOpenTask: 10, PointsPerCompletedTask: 25})
	require.Equal(t, int64(10), open)
	require.Equal(t, int64(25), completed)
}

func TestIsMemberAndAddMember(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := newTestService(t, db)
	testutil.SeedUser(t, db, "leader", 0)
	testutil.SeedUser(t, db, "outsider", 0)
	testutil.SeedProject(t, db, "proj-1", "leader", "leader")

	ctx := context.Background()
	member, err := svc.IsMember(ctx, nil, "proj-1", "leader")
	require.NoError(t, err)
	require.True(t, member)

	member, err = svc.IsMember(ctx, nil, "proj-1", "outsider")
	require.NoError(t, err)
	require.False(t, member)

	require.NoError(t, svc.AddMember(ctx, nil, "proj-1", "outsider"))
	// Adding twice is a no-op, not a constraint violation.
	require.NoError(t, svc.AddMember(ctx, nil, "proj-1", "outsider"))

	member, err = svc.IsMember(ctx, nil, "proj-1", "outsider")
	require.NoError(t, err)
	require.True(t, member)
}

func TestProgress(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := newTestService(t, db)
	testutil.SeedUser(t, db, "leader", 0)
	testutil.SeedProject(t, db, "proj-1", "leader", "leader")

	ctx := context.Background()
	progress, err := svc.Progress(ctx, "proj-1")
	require.NoError(t, err)
	require.Zero(t, progress)

	for i, status := range []model.TaskStatus{model.StatusDone, model.StatusTodo, model.StatusInProgress, model.StatusDone} {
		require.NoError(t, db.Create(&model.Task{
			ID:           string(rune('a'+i)) + "-task",
			ProjectID:    "proj-1",
			Title:        "task",
			Status:       status,
			CreatedByID:  "leader",
			PointsReward: 50,
		}).Error)
	}

	progress, err = svc.Progress(ctx, "proj-1")
	require.NoError(t, err)
	require.InDelta(t, 50.0, progress, 0.001)
}

func TestColumnDistinguishesMissingFromForeign(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := newTestService(t, db)
	testutil.SeedUser(t, db, "leader", 0)
	testutil.SeedProject(t, db, "proj-1", "leader", "leader")
	testutil.SeedProject(t, db, "proj-2", "leader", "leader")

	ctx := context.Background()
	mine, err := svc.Columns(ctx, nil, "proj-1")
	require.NoError(t, err)
	theirs, err := svc.Columns(ctx, nil, "proj-2")
	require.NoError(t, err)

	column, err := svc.Column(ctx, nil, "proj-1", mine[0].ID)
	require.NoError(t, err)
	require.Equal(t, mine[0].ID, column.ID)

	_, err = svc.Column(ctx, nil, "proj-1", "missing")
	require.Error(t, err)
	require.True(t, errutil.Is(err, errutil.StatusNotFound))

	// A real column on another project's board is a state error, not a
	// lookup miss.
	_, err = svc.Column(ctx, nil, "proj-1", theirs[0].ID)
	require.Error(t, err)
	require.True(t, errutil.Is(err, errutil.StatusInvalidState))
}
