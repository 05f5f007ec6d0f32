package achievement

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/cel-go/cel"
)

// Snapshot is everything the criteria language can see, loaded once per
// evaluation run rather than per achievement.
type Snapshot struct {
	Points                  int64
	WeeklyPoints            int64
	CompletedTasks          int64
	CreatedTasks            int64
	MemberProjects          int64
	CompletedMemberProjects int64
	LedCompletedProjects    int64
	HasCompletedBugTask     bool
	ProfileCompleted        bool
	StreakCurrent           int64
}

// Evaluator decides whether a criteria expression is satisfied by a
// snapshot. Criteria stay data-driven; the evaluator never touches storage.
type Evaluator interface {
	Evaluate(criteria string, snap Snapshot) (bool, error)
}

type criteriaEvaluator struct {
	env *cel.Env
}

// NewEvaluator builds the criteria evaluator. Legacy pattern criteria are
// matched by the fixed dispatch below; anything else is compiled as a CEL
// expression over the snapshot fields.
func NewEvaluator() (Evaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("points", cel.IntType),
		cel.Variable("weekly_points", cel.IntType),
		cel.Variable("tasks_completed", cel.IntType),
		cel.Variable("tasks_created", cel.IntType),
		cel.Variable("member_projects", cel.IntType),
		cel.Variable("completed_member_projects", cel.IntType),
		cel.Variable("led_completed_projects", cel.IntType),
		cel.Variable("has_completed_bug_task", cel.BoolType),
		cel.Variable("profile_completed", cel.BoolType),
		cel.Variable("streak", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL env: %w", err)
	}
	return &criteriaEvaluator{env: env}, nil
}

// Evaluate dispatches in a fixed priority order. The order is contractual:
// several prefixes overlap (a "weekly_points >= N" string also contains
// "points"), and reordering changes which achievements unlock.
func (e *criteriaEvaluator) Evaluate(criteria string, snap Snapshot) (bool, error) {
	c := strings.TrimSpace(criteria)

	switch {
	case strings.HasPrefix(c, "weekly_points"):
		if n, ok := firstNumber(c); ok {
			return snap.WeeklyPoints >= n, nil
		}
	case strings.Contains(c, "points"):
		if n, ok := firstNumber(c); ok {
			return snap.Points >= n, nil
		}
	case strings.Contains(c, "tasks completed"):
		if n, ok := firstNumber(c); ok {
			return snap.CompletedTasks >= n, nil
		}
	case strings.Contains(c, "streak"):
		if n, ok := firstNumber(c); ok {
			return snap.StreakCurrent >= n, nil
		}
	case c == "first_project":
		return snap.MemberProjects > 0, nil
	case c == "first_task":
		return snap.CreatedTasks > 0, nil
	case c == "profile_completed":
		return snap.ProfileCompleted, nil
	case c == "max_score_project":
		return snap.CompletedMemberProjects >= 1, nil
	case c == "lead_team >= 1":
		return snap.LedCompletedProjects > 0, nil
	case c == "bug_report_validated":
		return snap.HasCompletedBugTask, nil
	case c == "legendary_status":
		return snap.CompletedMemberProjects >= 10, nil
	}

	return e.evaluateCEL(c, snap)
}

func (e *criteriaEvaluator) evaluateCEL(expression string, snap Snapshot) (bool, error) {
	if expression == "" {
		return false, fmt.Errorf("criteria must not be empty")
	}

	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return false, fmt.Errorf("failed to compile criteria: %w", issues.Err())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return false, fmt.Errorf("failed to create CEL program: %w", err)
	}

	result, _, err := program.Eval(map[string]any{
		"points":                    snap.Points,
		"weekly_points":             snap.WeeklyPoints,
		"tasks_completed":           snap.CompletedTasks,
		"tasks_created":             snap.CreatedTasks,
		"member_projects":           snap.MemberProjects,
		"completed_member_projects": snap.CompletedMemberProjects,
		"led_completed_projects":    snap.LedCompletedProjects,
		"has_completed_bug_task":    snap.HasCompletedBugTask,
		"profile_completed":         snap.ProfileCompleted,
		"streak":                    snap.StreakCurrent,
	})
	if err != nil {
		return false, fmt.Errorf("failed to evaluate criteria: %w", err)
	}

	boolean, ok := result.Value().(bool)
	if !ok {
		return false, fmt.Errorf("criteria must return a boolean, got %T", result.Value())
	}

	return boolean, nil
}

// firstNumber extracts the first integer token, tolerating comparison
// glyphs stuck to it ("points >= 500", "10 tasks completed").
func firstNumber(s string) (int64, bool) {
	for _, field := range strings.Fields(s) {
		field = strings.Trim(field, "><=")
		if field == "" {
			continue
		}
		if n, err := strconv.ParseInt(field, 10, 64); err == nil {
			return n, true
		}
	}
	return 0, false
}
