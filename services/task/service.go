package task

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"questboard/internal/model"
	"questboard/pkg/errutil"
	"questboard/pkg/repository"
	"questboard/services/gamification"
	"questboard/services/ledger"
	"questboard/services/project"
)

// AchievementDispatcher schedules a best-effort achievement check for a
// user. Implementations must not block on the outcome.
type AchievementDispatcher interface {
	DispatchAchievementCheck(ctx context.Context, userID string)
}

// Service drives the task lifecycle. Every operation runs in a single
// transaction so point awards, streaks and the task row commit or roll back
// together. At-most-once per transition is enforced here (no-op move
// detection), not in the orchestrator. Users scored during the transaction
// are collected and their achievement checks dispatched only after commit;
// a rolled-back operation dispatches nothing.
type Service struct {
	db         *gorm.DB
	node       *snowflake.Node
	ledger     *ledger.Service
	books      *gamification.Service
	projectsvc *project.Service
	policy     Policy
	dispatcher AchievementDispatcher

	tasks     repository.Repository[model.Task]
	assignees repository.Repository[model.TaskAssignee]
	users     repository.Repository[model.User]
}

type ServiceParams struct {
	fx.In
	DB           *gorm.DB
	Node         *snowflake.Node
	Ledger       *ledger.Service
	Gamification *gamification.Service
	Projects     *project.Service

	Policy     Policy                `optional:"true"`
	Dispatcher AchievementDispatcher `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	policy := p.Policy
	if policy == nil {
		policy = AllowAll{}
	}
	return &Service{
		db:         p.DB,
		node:       p.Node,
		ledger:     p.Ledger,
		books:      p.Gamification,
		projectsvc: p.Projects,
		policy:     policy,
		dispatcher: p.Dispatcher,

		tasks:     repository.ProvideStore[model.Task](p.DB),
		assignees: repository.ProvideStore[model.TaskAssignee](p.DB),
		users:     repository.ProvideStore[model.User](p.DB),
	}
}

// scored collects the users whose points or streak changed during one
// transaction. The achievement checks for them fire only after the
// transaction commits.
type scored struct {
	order []string
	seen  map[string]bool
}

func (p *scored) add(userID string) {
	if p.seen == nil {
		p.seen = map[string]bool{}
	}
	if p.seen[userID] {
		return
	}
	p.seen[userID] = true
	p.order = append(p.order, userID)
}

func (s *Service) dispatchScored(ctx context.Context, pending *scored) {
	if s.dispatcher == nil {
		return
	}
	for _, userID := range pending.order {
		s.dispatcher.DispatchAchievementCheck(ctx, userID)
	}
}

// AssigneeInput names a user and the role they hold on the task. An empty
// type defaults to IMPLEMENTER.
type AssigneeInput struct {
	UserID string
	Type   model.AssigneeType
}

type CreateTaskInput struct {
	ProjectID   string
	CreatedByID string
	Title       string
	Description string
	Difficulty  int
	Tags        string

	// ColumnID is optional; nil places the task in the board's first column.
	ColumnID *string

	// AssignedToID is the legacy single-assignee field; it drives streaks.
	AssignedToID *string
	Assignees    []AssigneeInput
}

// UpdateTaskInput patches a task. Nil pointer fields are left unchanged.
// Assignees nil means "do not touch"; an empty non-nil slice clears all
// typed assignees.
type UpdateTaskInput struct {
	Title        *string
	Description  *string
	Difficulty   *int
	Tags         *string
	ColumnID     *string
	AssignedToID *string
	Assignees    []AssigneeInput
}

// RewardForDifficulty maps difficulty to the point reward stored on the
// task: 1 and below pay 50, 2 pays 100, 3 and above pay 200.
func RewardForDifficulty(difficulty int) int64 {
	switch {
	case difficulty <= 1:
		return 50
	case difficulty == 2:
		return 100
	default:
		return 200
	}
}

// statusForColumn projects a task status from its column: a completion
// column means done, the first column (sort order 0) means todo, anything
// else is in progress. No column at all reads as todo.
func statusForColumn(column *model.KanbanColumn) model.TaskStatus {
	switch {
	case column == nil:
		return model.StatusTodo
	case column.IsCompletionColumn:
		return model.StatusDone
	case column.SortOrder == 0:
		return model.StatusTodo
	default:
		return model.StatusInProgress
	}
}

// Create validates the project and assignees, places the task on the board
// and credits the creator the project's open-task reward.
func (s *Service) Create(ctx context.Context, in CreateTaskInput) (*model.Task, error) {
	if err := s.policy.CanCreate(ctx, in.CreatedByID, in.ProjectID); err != nil {
		return nil, err
	}

	var created *model.Task
	pending := &scored{}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		proj, err := s.projectsvc.Get(ctx, tx, in.ProjectID)
		if err != nil {
			return err
		}

		columns, err := s.projectsvc.Columns(ctx, tx, in.ProjectID)
		if err != nil {
			return err
		}
		var column *model.KanbanColumn
		if in.ColumnID != nil {
			if column, err = s.projectsvc.Column(ctx, tx, in.ProjectID, *in.ColumnID); err != nil {
				return err
			}
		} else if len(columns) > 0 {
			column = columns[0]
		}

		if err := s.requireUser(ctx, tx, in.CreatedByID); err != nil {
			return err
		}
		for _, userID := range assigneeIDs(in.Assignees, in.AssignedToID) {
			if err := s.requireMember(ctx, tx, in.ProjectID, userID); err != nil {
				return err
			}
		}

		creatorIsMember, err := s.projectsvc.IsMember(ctx, tx, in.ProjectID, in.CreatedByID)
		if err != nil {
			return err
		}

		now := time.Now()
		task := &model.Task{
			ID:               s.node.Generate().String(),
			ProjectID:        in.ProjectID,
			Title:            in.Title,
			Description:      in.Description,
			Status:           statusForColumn(column),
			Difficulty:       in.Difficulty,
			PointsReward:     RewardForDifficulty(in.Difficulty),
			CreatedByID:      in.CreatedByID,
			AssignedToID:     in.AssignedToID,
			Tags:             in.Tags,
			IsExternalDemand: !creatorIsMember,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if column != nil {
			task.ColumnID = &column.ID
		}
		if err := s.tasks.WithTrx(tx).Create(ctx, task); err != nil {
			return err
		}

		creatorListed := false
		for _, a := range in.Assignees {
			if a.UserID == in.CreatedByID {
				creatorListed = true
			}
			if err := s.addAssignee(ctx, tx, task.ID, a); err != nil {
				return err
			}
		}
		if !creatorListed {
			if err := s.addAssignee(ctx, tx, task.ID, AssigneeInput{UserID: in.CreatedByID, Type: model.AssigneeCreator}); err != nil {
				return err
			}
		}

		openReward, _ := s.projectsvc.Rewards(proj)
		if err := s.books.AddPointsForTaskCreation(ctx, tx, in.CreatedByID, openReward, task.ID); err != nil {
			return err
		}
		pending.add(in.CreatedByID)

		created = task
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.dispatchScored(ctx, pending)
	return created, nil
}

// Get loads one task.
func (s *Service) Get(ctx context.Context, taskID string) (*model.Task, error) {
	task, err := s.tasks.FindOne(ctx, &model.Task{ID: taskID})
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, errutil.NotFound("task not found")
	}
	return task, nil
}

// Update patches the task. A column change goes through the same path as
// Move so completion side effects are never skipped. When the task is
// already completed and the assignee set changes, the correction is applied
// immediately: added users are credited the completion reward, removed
// users are debited it.
func (s *Service) Update(ctx context.Context, taskID, requesterID string, in UpdateTaskInput) (*model.Task, error) {
	var updated *model.Task
	pending := &scored{}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		task, err := s.loadTask(ctx, tx, taskID)
		if err != nil {
			return err
		}
		if err := s.policy.CanUpdate(ctx, requesterID, task); err != nil {
			return err
		}
		proj, err := s.projectsvc.Get(ctx, tx, task.ProjectID)
		if err != nil {
			return err
		}

		updates := map[string]any{"updated_at": time.Now()}
		if in.Title != nil {
			updates["title"] = *in.Title
		}
		if in.Description != nil {
			updates["description"] = *in.Description
		}
		if in.Tags != nil {
			updates["tags"] = *in.Tags
		}
		if in.Difficulty != nil {
			updates["difficulty"] = *in.Difficulty
			updates["points_reward"] = RewardForDifficulty(*in.Difficulty)
		}
		if in.AssignedToID != nil {
			if err := s.requireMember(ctx, tx, task.ProjectID, *in.AssignedToID); err != nil {
				return err
			}
			updates["assigned_to_id"] = *in.AssignedToID
		}

		if in.ColumnID != nil && (task.ColumnID == nil || *task.ColumnID != *in.ColumnID) {
			dest, err := s.projectsvc.Column(ctx, tx, task.ProjectID, *in.ColumnID)
			if err != nil {
				return err
			}
			if task, err = s.applyMove(ctx, tx, task, dest, pending); err != nil {
				return err
			}
		}

		if in.Assignees != nil {
			if err := s.syncAssignees(ctx, tx, task, proj, in.Assignees, pending); err != nil {
				return err
			}
		}

		if err := s.tasks.WithTrx(tx).Update(ctx, task.ID, updates); err != nil {
			return err
		}
		updated, err = s.reload(ctx, tx, task.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.dispatchScored(ctx, pending)
	return updated, nil
}

// Move places the task in another column of its project. Moving to the
// column it is already in is a no-op, which is what makes the completion
// awards at-most-once per transition.
func (s *Service) Move(ctx context.Context, taskID, columnID, requesterID string) (*model.Task, error) {
	var moved *model.Task
	pending := &scored{}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		task, err := s.loadTask(ctx, tx, taskID)
		if err != nil {
			return err
		}
		if err := s.policy.CanMove(ctx, requesterID, task); err != nil {
			return err
		}
		if task.ColumnID != nil && *task.ColumnID == columnID {
			moved = task
			return nil
		}
		dest, err := s.projectsvc.Column(ctx, tx, task.ProjectID, columnID)
		if err != nil {
			return err
		}
		moved, err = s.applyMove(ctx, tx, task, dest, pending)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.dispatchScored(ctx, pending)
	return moved, nil
}

// Delete reverses every effect the task had before removing it: the
// creation reward is revoked from the creator, and when the task is
// completed, the completion reward is revoked once per distinct user across
// the legacy assignee and the typed assignee rows. The deleted snapshot is
// returned.
func (s *Service) Delete(ctx context.Context, taskID, requesterID string) (*model.Task, error) {
	var snapshot model.Task
	pending := &scored{}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		task, err := s.loadTask(ctx, tx, taskID)
		if err != nil {
			return err
		}
		if err := s.policy.CanDelete(ctx, requesterID, task); err != nil {
			return err
		}
		proj, err := s.projectsvc.Get(ctx, tx, task.ProjectID)
		if err != nil {
			return err
		}
		openReward, completedReward := s.projectsvc.Rewards(proj)
		snapshot = *task

		if err := s.books.RemovePointsForTaskDeletion(ctx, tx, task.CreatedByID, openReward, task.ID); err != nil {
			return err
		}
		pending.add(task.CreatedByID)

		if task.CompletedAt != nil || task.Status == model.StatusDone {
			rows, err := s.assignees.WithTrx(tx).Find(ctx, &model.TaskAssignee{TaskID: task.ID})
			if err != nil {
				return err
			}
			seen := map[string]bool{}
			order := []string{}
			if task.AssignedToID != nil && !seen[*task.AssignedToID] {
				seen[*task.AssignedToID] = true
				order = append(order, *task.AssignedToID)
			}
			for _, row := range rows {
				if !seen[row.UserID] {
					seen[row.UserID] = true
					order = append(order, row.UserID)
				}
			}
			for _, userID := range order {
				if err := s.books.RemovePointsForTaskDeletion(ctx, tx, userID, completedReward, task.ID); err != nil {
					return err
				}
				pending.add(userID)
			}
		}

		if err := s.assignees.WithTrx(tx).Delete(ctx, &model.TaskAssignee{TaskID: task.ID}); err != nil {
			return err
		}
		if err := s.tasks.WithTrx(tx).Delete(ctx, &model.Task{ID: task.ID}); err != nil {
			return err
		}
		return s.ledger.AppendLogWithMetadata(ctx, tx, requesterID, model.ActivityTaskDeleted,
			fmt.Sprintf("Deleted task %s", task.Title), nil, map[string]any{
				"task_id":    task.ID,
				"project_id": task.ProjectID,
				"title":      task.Title,
				"status":     task.Status,
			})
	})
	if err != nil {
		return nil, err
	}
	s.dispatchScored(ctx, pending)
	return &snapshot, nil
}

// applyMove performs the actual column transition. Completion is derived
// from the column flags of the source and destination; rewards go to every
// distinct typed assignee, streaks only to the legacy single assignee.
func (s *Service) applyMove(ctx context.Context, tx *gorm.DB, task *model.Task, dest *model.KanbanColumn, pending *scored) (*model.Task, error) {
	wasInCompletion := false
	if task.ColumnID != nil {
		// The source column may have been deleted; treat that as "not
		// a completion column".
		source, err := s.projectsvc.FindColumn(ctx, tx, *task.ColumnID)
		if err != nil {
			return nil, err
		}
		if source != nil {
			wasInCompletion = source.IsCompletionColumn
		}
	}
	isGoingToCompletion := dest.IsCompletionColumn

	now := time.Now()
	updates := map[string]any{
		"column_id":  dest.ID,
		"status":     statusForColumn(dest),
		"updated_at": now,
	}
	switch {
	case isGoingToCompletion && task.CompletedAt == nil:
		updates["completed_at"] = now
	case !isGoingToCompletion && task.CompletedAt != nil:
		updates["completed_at"] = nil
	}

	if wasInCompletion != isGoingToCompletion {
		proj, err := s.projectsvc.Get(ctx, tx, task.ProjectID)
		if err != nil {
			return nil, err
		}
		_, completedReward := s.projectsvc.Rewards(proj)

		rows, err := s.assignees.WithTrx(tx).Find(ctx, &model.TaskAssignee{TaskID: task.ID})
		if err != nil {
			return nil, err
		}
		seen := map[string]bool{}
		for _, row := range rows {
			if seen[row.UserID] {
				continue
			}
			seen[row.UserID] = true
			if isGoingToCompletion {
				err = s.books.AddPointsForTaskCompletion(ctx, tx, row.UserID, completedReward, task.ID)
			} else {
				err = s.books.RemovePointsForTaskUncompletion(ctx, tx, row.UserID, completedReward, task.ID)
			}
			if err != nil {
				return nil, err
			}
			pending.add(row.UserID)
		}

		if isGoingToCompletion && task.AssignedToID != nil {
			if err := s.bumpStreak(ctx, tx, *task.AssignedToID, now); err != nil {
				return nil, err
			}
			pending.add(*task.AssignedToID)
		}
	}

	if err := s.tasks.WithTrx(tx).Update(ctx, task.ID, updates); err != nil {
		return nil, err
	}
	return s.reload(ctx, tx, task.ID)
}

// bumpStreak advances the daily streak on task completion: activity earlier
// today keeps the current value, activity yesterday extends it, anything
// older starts over at 1.
func (s *Service) bumpStreak(ctx context.Context, tx *gorm.DB, userID string, now time.Time) error {
	user, err := s.users.WithTrx(tx).FindOne(ctx, &model.User{ID: userID})
	if err != nil || user == nil {
		return err
	}

	current := 1
	if user.LastActivityAt != nil {
		today := startOfDay(now)
		last := startOfDay(*user.LastActivityAt)
		switch {
		case last.Equal(today):
			current = user.StreakCurrent
			if current == 0 {
				current = 1
			}
		case last.Equal(today.AddDate(0, 0, -1)):
			current = user.StreakCurrent + 1
		}
	}
	best := user.StreakBest
	if current > best {
		best = current
	}
	_, err = s.ledger.UpdateStreak(ctx, tx, userID, current, best)
	return err
}

// syncAssignees reconciles the typed assignee rows with the desired set.
// On an already-completed task the completion reward follows the user set:
// newly added users are credited, removed users debited.
func (s *Service) syncAssignees(ctx context.Context, tx *gorm.DB, task *model.Task, proj *model.Project, desired []AssigneeInput, pending *scored) error {
	assignees := s.assignees.WithTrx(tx)
	current, err := assignees.Find(ctx, &model.TaskAssignee{TaskID: task.ID})
	if err != nil {
		return err
	}

	type key struct {
		userID string
		typ    model.AssigneeType
	}
	currentKeys := map[key]*model.TaskAssignee{}
	currentUsers := map[string]bool{}
	for _, row := range current {
		currentKeys[key{row.UserID, row.Type}] = row
		currentUsers[row.UserID] = true
	}

	desiredKeys := map[key]bool{}
	desiredUsers := map[string]bool{}
	added := []string{}
	for _, a := range desired {
		if err := s.requireMember(ctx, tx, task.ProjectID, a.UserID); err != nil {
			return err
		}
		typ := a.Type
		if typ == "" {
			typ = model.AssigneeImplementer
		}
		desiredKeys[key{a.UserID, typ}] = true
		if !desiredUsers[a.UserID] && !currentUsers[a.UserID] {
			added = append(added, a.UserID)
		}
		desiredUsers[a.UserID] = true
	}

	for k, row := range currentKeys {
		if !desiredKeys[k] {
			if err := assignees.Delete(ctx, &model.TaskAssignee{ID: row.ID}); err != nil {
				return err
			}
		}
	}
	for k := range desiredKeys {
		if currentKeys[k] == nil {
			if err := s.addAssignee(ctx, tx, task.ID, AssigneeInput{UserID: k.userID, Type: k.typ}); err != nil {
				return err
			}
		}
	}

	if task.CompletedAt == nil {
		return nil
	}

	_, completedReward := s.projectsvc.Rewards(proj)
	for _, userID := range added {
		if err := s.books.AddPointsForTaskCompletion(ctx, tx, userID, completedReward, task.ID); err != nil {
			return err
		}
		pending.add(userID)
	}
	removed := []string{}
	for _, row := range current {
		if !desiredUsers[row.UserID] {
			desiredUsers[row.UserID] = true // dedupe removals per user
			removed = append(removed, row.UserID)
		}
	}
	for _, userID := range removed {
		if err := s.books.RemovePointsForAssigneeRemoval(ctx, tx, userID, completedReward, task.ID); err != nil {
			return err
		}
		pending.add(userID)
	}
	return nil
}

func (s *Service) addAssignee(ctx context.Context, tx *gorm.DB, taskID string, in AssigneeInput) error {
	typ := in.Type
	if typ == "" {
		typ = model.AssigneeImplementer
	}
	return s.assignees.WithTrx(tx).Create(ctx, &model.TaskAssignee{
		ID:        s.node.Generate().String(),
		TaskID:    taskID,
		UserID:    in.UserID,
		Type:      typ,
		CreatedAt: time.Now(),
	})
}

func (s *Service) loadTask(ctx context.Context, tx *gorm.DB, taskID string) (*model.Task, error) {
	task, err := s.tasks.WithTrx(tx).FindOne(ctx, &model.Task{ID: taskID})
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, errutil.NotFound("task not found")
	}
	return task, nil
}

func (s *Service) reload(ctx context.Context, tx *gorm.DB, taskID string) (*model.Task, error) {
	return s.tasks.WithTrx(tx).FindOne(ctx, &model.Task{ID: taskID})
}

func (s *Service) requireUser(ctx context.Context, tx *gorm.DB, userID string) error {
	user, err := s.users.WithTrx(tx).FindOne(ctx, &model.User{ID: userID})
	if err != nil {
		return err
	}
	if user == nil {
		return errutil.NotFound(fmt.Sprintf("user %s not found", userID))
	}
	return nil
}

func (s *Service) requireMember(ctx context.Context, tx *gorm.DB, projectID, userID string) error {
	if err := s.requireUser(ctx, tx, userID); err != nil {
		return err
	}
	member, err := s.projectsvc.IsMember(ctx, tx, projectID, userID)
	if err != nil {
		return err
	}
	if !member {
		return errutil.InvalidAssignee(fmt.Sprintf("user %s is not a member of the project", userID))
	}
	return nil
}

func assigneeIDs(assignees []AssigneeInput, legacy *string) []string {
	seen := map[string]bool{}
	ids := []string{}
	for _, a := range assignees {
		if !seen[a.UserID] {
			seen[a.UserID] = true
			ids = append(ids, a.UserID)
		}
	}
	if legacy != nil && !seen[*legacy] {
		ids = append(ids, *legacy)
	}
	return ids
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
