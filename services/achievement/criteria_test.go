package achievement

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEvaluateLegacyPatterns(t *testing.T) {
	evaluator, err := NewEvaluator()
	require.NoError(t, err)

	snap := Snapshot{
		Points:                  500,
		WeeklyPoints:            120,
		CompletedTasks:          10,
		CreatedTasks:            1,
		MemberProjects:          2,
		CompletedMemberProjects: 1,
		LedCompletedProjects:    1,
		HasCompletedBugTask:     true,
		ProfileCompleted:        true,
		StreakCurrent:           7,
	}

	cases := []struct {
		criteria string
		want     bool
	}{
		{"weekly_points >= 100", true},
		{"weekly_points >= 500", false},
		{"points >= 500", true},
		{"points >= 501", false},
		{"Earn 500 points", true},
		{"10 tasks completed", true},
		{"25 tasks completed", false},
		{"streak >= 7", true},
		{"streak >= 8", false},
		{"first_project", true},
		{"first_task", true},
		{"profile_completed", true},
		{"max_score_project", true},
		{"lead_team >= 1", true},
		{"bug_report_validated", true},
		{"legendary_status", false},
	}
	for _, tc := range cases {
		got, err := evaluator.Evaluate(tc.criteria, snap)
		require.NoError(t, err, "criteria %q", tc.criteria)
		require.Equal(t, tc.want, got, "criteria %q", tc.criteria)
	}
}

// A "weekly_points" criteria contains the substring "points"; the dispatch
// order decides which counter it reads.
func TestEvaluateWeeklyBeforeTotalPoints(t *testing.T) {
	evaluator, err := NewEvaluator()
	require.NoError(t, err)

	snap := Snapshot{Points: 10000, WeeklyPoints: 5}

	got, err := evaluator.Evaluate("weekly_points >= 100", snap)
	require.NoError(t, err)
	require.False(t, got, "must read the weekly counter, not the total")

	got, err = evaluator.Evaluate("points >= 100", snap)
	require.NoError(t, err)
	require.True(t, got)
}

func TestEvaluateCELFallback(t *testing.T) {
	evaluator, err := NewEvaluator()
	require.NoError(t, err)

	snap := Snapshot{CreatedTasks: 12, MemberProjects: 2, HasCompletedBugTask: true}

	got, err := evaluator.Evaluate("tasks_created >= 10 && member_projects >= 2", snap)
	require.NoError(t, err)
	require.True(t, got)

	got, err = evaluator.Evaluate("tasks_created >= 10 && member_projects >= 5", snap)
	require.NoError(t, err)
	require.False(t, got)

	got, err = evaluator.Evaluate("profile_completed || has_completed_bug_task", snap)
	require.NoError(t, err)
	require.True(t, got)
}

func TestEvaluateInvalidCriteria(t *testing.T) {
	evaluator, err := NewEvaluator()
	require.NoError(t, err)

	_, err = evaluator.Evaluate("", Snapshot{})
	require.Error(t, err)

	_, err = evaluator.Evaluate("not a valid expression !!", Snapshot{})
	require.Error(t, err)

	// A non-boolean CEL result is an error, not a truthy value.
	_, err = evaluator.Evaluate("tasks_created + 1", Snapshot{})
	require.Error(t, err)
}

func TestFirstNumber(t *testing.T) {
	cases := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"points >= 500", 500, true},
		{"points >=500", 500, true},
		{"10 tasks completed", 10, true},
		{"streak", 0, false},
	}
	for _, tc := range cases {
		got, ok := firstNumber(tc.in)
		require.Equal(t, tc.ok, ok, "input %q", tc.in)
		require.Equal(t, tc.want, got, "input %q", tc.in)
	}
}
