package taskname

const (
	// Achievement tasks
	AchievementCheck = "achievement:check"

	// Streak tasks
	StreakSweep = "streak:sweep"
)
