package project

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"questboard/internal/config"
	"questboard/internal/model"
	"questboard/pkg/db/option"
	"questboard/pkg/errutil"
	"questboard/pkg/repository"
)

// Service owns project configuration, membership, kanban columns and
// progress. The task lifecycle consumes it for reward amounts and column
// resolution.
type Service struct {
	db   *gorm.DB
	node *snowflake.Node
	cfg  *config.Config

	projects repository.Repository[model.Project]
	members  repository.Repository[model.ProjectMember]
	columns  repository.Repository[model.KanbanColumn]
	tasks    repository.Repository[model.Task]
}

type ServiceParams struct {
	fx.In
	DB     *gorm.DB
	Node   *snowflake.Node
	Config *config.Config
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:   p.DB,
		node: p.Node,
		cfg:  p.Config,

		projects: repository.ProvideStore[model.Project](p.DB),
		members:  repository.ProvideStore[model.ProjectMember](p.DB),
		columns:  repository.ProvideStore[model.KanbanColumn](p.DB),
		tasks:    repository.ProvideStore[model.Task](p.DB),
	}
}

func (s *Service) Get(ctx context.Context, tx *gorm.DB, projectID string) (*model.Project, error) {
	project, err := s.projects.WithTrx(tx).FindOne(ctx, &model.Project{ID: projectID})
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, errutil.NotFound("project not found")
	}
	return project, nil
}

func (s *Service) IsMember(ctx context.Context, tx *gorm.DB, projectID, userID string) (bool, error) {
	count, err := s.members.WithTrx(tx).Count(ctx, &model.ProjectMember{ProjectID: projectID, UserID: userID})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Service) AddMember(ctx context.Context, tx *gorm.DB, projectID, userID string) error {
	exists, err := s.IsMember(ctx, tx, projectID, userID)
	if err != nil || exists {
		return err
	}
	return s.members.WithTrx(tx).Create(ctx, &model.ProjectMember{
		ID:        s.node.Generate().String(),
		ProjectID: projectID,
		UserID:    userID,
		CreatedAt: time.Now(),
	})
}

// Rewards returns the effective per-task point amounts, falling back to the
// configured defaults when the project leaves them unset.
func (s *Service) Rewards(project *model.Project) (openTask, completedTask int64) {
	openTask = project.PointsPerOpenTask
	if openTask == 0 {
		openTask = s.cfg.Gamification.PointsPerOpenTask
	}
	completedTask = project.PointsPerCompletedTask
	if completedTask == 0 {
		completedTask = s.cfg.Gamification.PointsPerCompletedTask
	}
	return openTask, completedTask
}

// Columns returns the project's board in display order, creating the
// default three columns on first access.
func (s *Service) Columns(ctx context.Context, tx *gorm.DB, projectID string) ([]*model.KanbanColumn, error) {
	columns := s.columns.WithTrx(tx)
	sort := option.WithSortBy(option.QuerySortBy{SortBy: "sort_order", OrderBy: "asc", Allow: map[string]bool{"sort_order": true}})

	existing, err := columns.Find(ctx, &model.KanbanColumn{ProjectID: projectID}, sort)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return existing, nil
	}

	defaults := []*model.KanbanColumn{
		{Name: "To Do", SortOrder: 0},
		{Name: "In Progress", SortOrder: 1},
		{Name: "Done", SortOrder: 2, IsCompletionColumn: true},
	}
	for _, column := range defaults {
		column.ID = s.node.Generate().String()
		column.ProjectID = projectID
		column.CreatedAt = time.Now()
		if err := columns.Create(ctx, column); err != nil {
			return nil, err
		}
	}
	return defaults, nil
}

// Column resolves one column within a project. A column that exists but
// hangs off another project's board is rejected as INVALID_STATE rather
// than NOT_FOUND; the caller named a real column, just the wrong board.
func (s *Service) Column(ctx context.Context, tx *gorm.DB, projectID, columnID string) (*model.KanbanColumn, error) {
	column, err := s.columns.WithTrx(tx).FindOne(ctx, &model.KanbanColumn{ID: columnID})
	if err != nil {
		return nil, err
	}
	if column != nil && column.ProjectID != projectID {
		return nil, errutil.InvalidState("column belongs to a different project")
	}
	if column == nil {
		return nil, errutil.NotFound("column not found")
	}
	return column, nil
}

// FindColumn looks a column up by ID alone, returning nil when it no longer
// exists. Tasks can reference a column that was deleted out from under them.
func (s *Service) FindColumn(ctx context.Context, tx *gorm.DB, columnID string) (*model.KanbanColumn, error) {
	return s.columns.WithTrx(tx).FindOne(ctx, &model.KanbanColumn{ID: columnID})
}

// Progress reports percent of the project's tasks that are done. An empty
// project is 0% rather than 100%.
func (s *Service) Progress(ctx context.Context, projectID string) (float64, error) {
	total, err := s.tasks.Count(ctx, &model.Task{ProjectID: projectID})
	if err != nil {
		return 0, err
	}
	if total == 0 {
		return 0, nil
	}
	done, err := s.tasks.Count(ctx, &model.Task{ProjectID: projectID, Status: model.StatusDone})
	if err != nil {
		return 0, err
	}
	return float64(done) / float64(total) * 100, nil
}
