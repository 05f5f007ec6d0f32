package model

import "time"

type TaskStatus string

const (
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "in_progress"
	StatusDone       TaskStatus = "done"
)

type AssigneeType string

const (
	AssigneeCreator     AssigneeType = "CREATOR"
	AssigneeImplementer AssigneeType = "IMPLEMENTER"
	AssigneeReviewer    AssigneeType = "REVIEWER"
)

// Task status is a projection of the column the task sits in; ColumnID is
// nullable because a column may be deleted out from under a task, which is
// treated as "no column" rather than a constraint violation.
type Task struct {
	ID               string     `gorm:"column:id;primaryKey;type:char(26)"`
	ProjectID        string     `gorm:"column:project_id;index;type:char(26);not null"`
	Title            string     `gorm:"column:title;type:varchar(200);not null"`
	Description      string     `gorm:"column:description;type:text"`
	Status           TaskStatus `gorm:"column:status;type:varchar(20);not null;default:'todo'"`
	Difficulty       int        `gorm:"column:difficulty;not null;default:1"`
	PointsReward     int64      `gorm:"column:points_reward;not null;default:0"`
	CompletedAt      *time.Time `gorm:"column:completed_at"`
	CreatedByID      string     `gorm:"column:created_by_id;index;type:char(26);not null"`
	AssignedToID     *string    `gorm:"column:assigned_to_id;index;type:char(26)"`
	ColumnID         *string    `gorm:"column:column_id;index;type:char(26)"`
	Tags             string     `gorm:"column:tags;type:varchar(255)"`
	IsExternalDemand bool       `gorm:"column:is_external_demand;not null;default:false"`
	CreatedAt        time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (Task) TableName() string { return "tasks" }

// TaskAssignee records a typed role on a task. The unique triple doubles as
// the guard against double-adding the same role for a user.
type TaskAssignee struct {
	ID        string       `gorm:"column:id;primaryKey;type:char(26)"`
	TaskID    string       `gorm:"column:task_id;uniqueIndex:idx_task_user_type;type:char(26);not null"`
	UserID    string       `gorm:"column:user_id;uniqueIndex:idx_task_user_type;type:char(26);not null"`
	Type      AssigneeType `gorm:"column:type;uniqueIndex:idx_task_user_type;type:varchar(20);not null"`
	CreatedAt time.Time    `gorm:"column:created_at;autoCreateTime"`
}

func (TaskAssignee) TableName() string { return "task_assignees" }
