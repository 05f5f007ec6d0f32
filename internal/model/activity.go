package model

import (
	"time"

	"gorm.io/datatypes"
)

type ActivityType string

const (
	ActivityTaskCreated       ActivityType = "TASK_CREATED"
	ActivityTaskCompleted     ActivityType = "TASK_COMPLETED"
	ActivityPointsRemoved     ActivityType = "POINTS_REMOVED"
	ActivityTaskDeleted       ActivityType = "TASK_DELETED"
	ActivityTierAchieved      ActivityType = "TIER_ACHIEVED"
	ActivityAchievementEarned ActivityType = "ACHIEVEMENT_EARNED"
	ActivityStreakReset       ActivityType = "STREAK_RESET"
)

// ActivityLog is append-only. Business logic never reads it back except the
// weekly points window, which sums PointsChange over the last 7 days.
type ActivityLog struct {
	ID           string         `gorm:"column:id;primaryKey;type:char(26)"`
	UserID       string         `gorm:"column:user_id;index;type:char(26);not null"`
	Type         ActivityType   `gorm:"column:type;type:varchar(30);not null"`
	Description  string         `gorm:"column:description;type:text"`
	PointsChange *int64         `gorm:"column:points_change"`
	Metadata     datatypes.JSON `gorm:"column:metadata"`
	CreatedAt    time.Time      `gorm:"column:created_at;index;autoCreateTime"`
}

func (ActivityLog) TableName() string { return "activity_logs" }

// All lists every entity for migration and test setup.
func All() []any {
	return []any{
		&User{},
		&Tier{},
		&Project{},
		&ProjectMember{},
		&KanbanColumn{},
		&Task{},
		&TaskAssignee{},
		&Achievement{},
		&UserAchievement{},
		&ActivityLog{},
	}
}
