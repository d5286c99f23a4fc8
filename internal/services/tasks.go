package services

import (
	"context"
	"log"
	"time"

	"task-board/internal/dates"
	"task-board/internal/models"
	"task-board/internal/projection"
	"task-board/internal/session"
	"task-board/internal/store"

	"github.com/gofrs/uuid"
)

// TaskInput is the create payload. The deadline arrives in its YYYY-MM-DD
// boundary form; internal logic never sees the string.
type TaskInput struct {
	Title       string                 `json:"title" binding:"required"`
	Description string                 `json:"description"`
	Deadline    string                 `json:"deadline"`
	IsImportant bool                   `json:"is_important"`
	IsUrgent    bool                   `json:"is_urgent"`
	Checklist   []models.ChecklistItem `json:"checklist"`
}

// TaskPatch is a merge-style update: nil fields are untouched. An empty
// Deadline string clears the deadline.
type TaskPatch struct {
	Title       *string                `json:"title"`
	Description *string                `json:"description"`
	Status      *string                `json:"status"`
	Deadline    *string                `json:"deadline"`
	IsImportant *bool                  `json:"is_important"`
	IsUrgent    *bool                  `json:"is_urgent"`
	Checklist   []models.ChecklistItem `json:"checklist"`
}

// ReminderScheduler books a deadline reminder to fire at remindAt. The
// worker's job queue implements it; a nil scheduler disables reminders.
type ReminderScheduler interface {
	ScheduleReminder(scope store.Scope, taskID uuid.UUID, remindAt time.Time) error
}

type TaskService interface {
	CreateTask(ctx context.Context, scope store.Scope, input TaskInput) (models.Task, error)
	GetTask(ctx context.Context, scope store.Scope, id uuid.UUID) (models.Task, error)
	ListTasks(ctx context.Context, scope store.Scope) ([]models.Task, error)
	UpdateTask(ctx context.Context, scope store.Scope, id uuid.UUID, patch TaskPatch) (models.Task, error)
	DeleteTask(ctx context.Context, scope store.Scope, id uuid.UUID) error
	ToggleChecklistItem(ctx context.Context, scope store.Scope, id uuid.UUID, itemID string) (models.Task, error)
	Board(ctx context.Context, scope store.Scope) ([]projection.Column, error)
	Matrix(ctx context.Context, scope store.Scope) ([]projection.QuadrantGroup, error)
}

// TaskServiceImpl drives every mutation through an edit session so the
// commit rules (title validation, changed-fields-only partial updates,
// urgency resolution) hold no matter which surface the request came in on.
type TaskServiceImpl struct {
	repo      store.TaskRepository
	now       func() time.Time
	reminders ReminderScheduler
}

func NewTaskService(repo store.TaskRepository) *TaskServiceImpl {
	return &TaskServiceImpl{repo: repo, now: time.Now}
}

// NewTaskServiceAt pins the clock, for tests.
func NewTaskServiceAt(repo store.TaskRepository, now func() time.Time) *TaskServiceImpl {
	return &TaskServiceImpl{repo: repo, now: now}
}

// WithReminderScheduler turns on deadline reminders: whenever a commit sets
// or moves a deadline, a reminder is booked for the moment the deadline
// enters the urgency window.
func (s *TaskServiceImpl) WithReminderScheduler(r ReminderScheduler) *TaskServiceImpl {
	s.reminders = r
	return s
}

// scheduleReminder is best-effort: a queue hiccup must not fail the commit
// that already landed.
func (s *TaskServiceImpl) scheduleReminder(scope store.Scope, task models.Task) {
	if s.reminders == nil || task.Deadline == nil {
		return
	}
	remindAt := task.Deadline.AddDate(0, 0, -dates.UrgencyThresholdDays)
	if err := s.reminders.ScheduleReminder(scope, task.ID, remindAt); err != nil {
		log.Printf("failed to schedule reminder for task %s: %v", task.ID, err)
	}
}

func (s *TaskServiceImpl) CreateTask(ctx context.Context, scope store.Scope, input TaskInput) (models.Task, error) {
	sess := session.New(s.repo, scope, s.now)
	sess.OpenCreate()
	sess.SetTitle(input.Title)
	sess.SetDescription(input.Description)
	sess.SetDeadlineInput(input.Deadline)
	sess.SetImportant(input.IsImportant)
	if input.IsUrgent != sess.Draft().IsUrgent {
		sess.SetUrgent(input.IsUrgent)
	}
	for _, item := range input.Checklist {
		if err := sess.AddChecklistItem(item.Text); err != nil {
			return models.Task{}, err
		}
		if item.IsCompleted {
			draft := sess.Draft()
			// Toggling the item just appended cannot miss.
			_ = sess.ToggleChecklistItem(draft.Checklist[len(draft.Checklist)-1].ID)
		}
	}

	if err := sess.Commit(ctx); err != nil {
		return models.Task{}, err
	}
	task := sess.Task()
	s.scheduleReminder(scope, task)
	return task, nil
}

func (s *TaskServiceImpl) GetTask(ctx context.Context, scope store.Scope, id uuid.UUID) (models.Task, error) {
	return s.repo.Get(ctx, scope, id)
}

func (s *TaskServiceImpl) ListTasks(ctx context.Context, scope store.Scope) ([]models.Task, error) {
	return s.repo.List(ctx, scope)
}

func (s *TaskServiceImpl) UpdateTask(ctx context.Context, scope store.Scope, id uuid.UUID, patch TaskPatch) (models.Task, error) {
	current, err := s.repo.Get(ctx, scope, id)
	if err != nil {
		return models.Task{}, err
	}

	sess := session.New(s.repo, scope, s.now)
	sess.OpenView(current)
	if err := sess.BeginEdit(); err != nil {
		return models.Task{}, err
	}

	if patch.Title != nil {
		sess.SetTitle(*patch.Title)
	}
	if patch.Description != nil {
		sess.SetDescription(*patch.Description)
	}
	if patch.Status != nil {
		if !models.ValidStatus(*patch.Status) {
			return models.Task{}, &models.ValidationError{Field: "status", Message: "unknown status " + *patch.Status}
		}
		sess.SetStatus(*patch.Status)
	}
	if patch.Deadline != nil {
		if _, err := dates.ParseDeadline(*patch.Deadline); err != nil {
			return models.Task{}, err
		}
		sess.SetDeadlineInput(*patch.Deadline)
	}
	if patch.IsImportant != nil {
		sess.SetImportant(*patch.IsImportant)
	}
	if patch.IsUrgent != nil {
		sess.SetUrgent(*patch.IsUrgent)
	}
	if patch.Checklist != nil {
		if err := sess.SetChecklist(patch.Checklist); err != nil {
			return models.Task{}, err
		}
	}

	if err := sess.Commit(ctx); err != nil {
		return models.Task{}, err
	}
	task := sess.Task()
	if patch.Deadline != nil {
		s.scheduleReminder(scope, task)
	}
	return task, nil
}

func (s *TaskServiceImpl) DeleteTask(ctx context.Context, scope store.Scope, id uuid.UUID) error {
	return s.repo.Delete(ctx, scope, id)
}

// ToggleChecklistItem is the read-only-view exception: a single-field
// partial update that skips the draft/commit cycle entirely.
func (s *TaskServiceImpl) ToggleChecklistItem(ctx context.Context, scope store.Scope, id uuid.UUID, itemID string) (models.Task, error) {
	current, err := s.repo.Get(ctx, scope, id)
	if err != nil {
		return models.Task{}, err
	}

	sess := session.New(s.repo, scope, s.now)
	sess.OpenView(current)
	if err := sess.ToggleChecklistItemDirect(ctx, itemID); err != nil {
		return models.Task{}, err
	}
	return sess.Task(), nil
}

func (s *TaskServiceImpl) Board(ctx context.Context, scope store.Scope) ([]projection.Column, error) {
	tasks, err := s.repo.List(ctx, scope)
	if err != nil {
		return nil, err
	}
	return projection.Kanban(tasks), nil
}

func (s *TaskServiceImpl) Matrix(ctx context.Context, scope store.Scope) ([]projection.QuadrantGroup, error) {
	tasks, err := s.repo.List(ctx, scope)
	if err != nil {
		return nil, err
	}
	return projection.Matrix(tasks), nil
}
