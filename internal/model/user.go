package model

import "time"

// User carries the gamification state mutated by the ledger and tier
// services. Users are created at registration and never hard-deleted here.
type User struct {
	ID             string     `gorm:"column:id;primaryKey;type:char(26)"`
	Name           string     `gorm:"column:name;type:varchar(100)"`
	Email          string     `gorm:"column:email;uniqueIndex;type:varchar(255)"`
	Points         int64      `gorm:"column:points;not null;default:0"`
	TierID         *string    `gorm:"column:tier_id;index;type:char(26)"`
	StreakCurrent  int        `gorm:"column:streak_current;not null;default:0"`
	StreakBest     int        `gorm:"column:streak_best;not null;default:0"`
	LastActivityAt *time.Time `gorm:"column:last_activity_at"`
	AvatarColor    string     `gorm:"column:avatar_color;type:varchar(20)"`
	Course         string     `gorm:"column:course;type:varchar(100)"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (User) TableName() string { return "users" }

// Tier is an ordered reward level. Exactly one tier must have MinPoints 0;
// tier resolution is undefined without that floor.
type Tier struct {
	ID        string    `gorm:"column:id;primaryKey;type:char(26)"`
	Name      string    `gorm:"column:name;type:varchar(100);not null"`
	MinPoints int64     `gorm:"column:min_points;uniqueIndex;not null"`
	SortOrder int       `gorm:"column:sort_order;not null;default:0"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Tier) TableName() string { return "tiers" }
