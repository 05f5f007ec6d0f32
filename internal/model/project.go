package model

import "time"

// Project owns the reward configuration used by the task lifecycle. A zero
// value for either reward field means "use the configured default".
type Project struct {
	ID                     string    `gorm:"column:id;primaryKey;type:char(26)"`
	Name                   string    `gorm:"column:name;type:varchar(150);not null"`
	Description            string    `gorm:"column:description;type:text"`
	LeaderID               string    `gorm:"column:leader_id;index;type:char(26)"`
	PointsPerOpenTask      int64     `gorm:"column:points_per_open_task;not null;default:0"`
	PointsPerCompletedTask int64     `gorm:"column:points_per_completed_task;not null;default:0"`
	CreatedAt              time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt              time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Project) TableName() string { return "projects" }

type ProjectMember struct {
	ID        string    `gorm:"column:id;primaryKey;type:char(26)"`
	ProjectID string    `gorm:"column:project_id;uniqueIndex:idx_project_user;type:char(26);not null"`
	UserID    string    `gorm:"column:user_id;uniqueIndex:idx_project_user;type:char(26);not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (ProjectMember) TableName() string { return "project_members" }

// KanbanColumn is the source of truth for task status. Tasks entering or
// leaving a completion column drive completion point awards.
type KanbanColumn struct {
	ID                 string    `gorm:"column:id;primaryKey;type:char(26)"`
	ProjectID          string    `gorm:"column:project_id;index;type:char(26);not null"`
	Name               string    `gorm:"column:name;type:varchar(100);not null"`
	SortOrder          int       `gorm:"column:sort_order;not null;default:0"`
	Color              string    `gorm:"column:color;type:varchar(20)"`
	IsCompletionColumn bool      `gorm:"column:is_completion_column;not null;default:false"`
	CreatedAt          time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (KanbanColumn) TableName() string { return "kanban_columns" }
