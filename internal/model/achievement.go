package model

import "time"

// Achievement criteria are small data-driven expressions; see the
// achievement service for the evaluation rules.
type Achievement struct {
	ID          string    `gorm:"column:id;primaryKey;type:char(26)"`
	Name        string    `gorm:"column:name;uniqueIndex;type:varchar(100);not null"`
	Criteria    string    `gorm:"column:criteria;type:text;not null"`
	Description string    `gorm:"column:description;type:text"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Achievement) TableName() string { return "achievements" }

// UserAchievement is the durable "already awarded" record. The unique pair
// is the idempotence guard: a duplicate insert fails and is ignored.
type UserAchievement struct {
	ID            string    `gorm:"column:id;primaryKey;type:char(26)"`
	UserID        string    `gorm:"column:user_id;uniqueIndex:idx_user_achievement;type:char(26);not null"`
	AchievementID string    `gorm:"column:achievement_id;uniqueIndex:idx_user_achievement;type:char(26);not null"`
	EarnedAt      time.Time `gorm:"column:earned_at;not null"`
}

func (UserAchievement) TableName() string { return "user_achievements" }
