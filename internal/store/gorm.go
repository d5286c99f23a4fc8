package store

import (
	"context"
	"errors"
	"log"
	"time"

	"task-board/internal/models"
	"task-board/internal/projection"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

// GormTaskRepository persists tasks through gorm and announces every
// mutation on the change feed so subscribers reload.
type GormTaskRepository struct {
	db         *gorm.DB
	feed       ChangeFeed
	onMutation func(Scope)
}

func NewGormTaskRepository(db *gorm.DB, feed ChangeFeed) *GormTaskRepository {
	return &GormTaskRepository{db: db, feed: feed}
}

// OnMutation installs an in-process hook that fires after every successful
// write, alongside the change feed publish. Cache invalidation hangs off
// this so writers that bypass the service layer (the urgency sweep) still
// evict stale entries.
func (r *GormTaskRepository) OnMutation(fn func(Scope)) {
	r.onMutation = fn
}

func (r *GormTaskRepository) Create(ctx context.Context, scope Scope, task models.Task) (models.Task, error) {
	task.ID = uuid.Must(uuid.NewV4())
	task.AuthorID = scope.UserID
	if task.Status == "" {
		task.Status = models.StatusBacklog
	}
	if task.AssigneeIDs == nil {
		task.AssigneeIDs = []string{scope.UserID.String()}
	}
	if task.Checklist == nil {
		task.Checklist = []models.ChecklistItem{}
	}
	task.CreatedAt = time.Now()
	task.UpdatedAt = task.CreatedAt

	if err := task.Validate(); err != nil {
		return models.Task{}, err
	}

	if err := r.db.WithContext(ctx).Create(&task).Error; err != nil {
		return models.Task{}, &models.PersistenceError{Op: "create", Err: err}
	}
	r.publish(ctx, scope)
	return task, nil
}

func (r *GormTaskRepository) Get(ctx context.Context, scope Scope, id uuid.UUID) (models.Task, error) {
	var task models.Task
	err := r.db.WithContext(ctx).
		Where("id = ? AND author_id = ?", id, scope.UserID).
		First(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Task{}, models.ErrNotFound
		}
		return models.Task{}, &models.PersistenceError{Op: "get", Err: err}
	}
	return task, nil
}

func (r *GormTaskRepository) List(ctx context.Context, scope Scope) ([]models.Task, error) {
	var tasks []models.Task
	err := r.db.WithContext(ctx).
		Where("author_id = ?", scope.UserID).
		Order("created_at ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, &models.PersistenceError{Op: "list", Err: err}
	}
	return projection.SortByCreation(tasks), nil
}

func (r *GormTaskRepository) Update(ctx context.Context, scope Scope, id uuid.UUID, partial Partial) error {
	if partial.IsEmpty() {
		return nil
	}
	current, err := r.Get(ctx, scope, id)
	if err != nil {
		return err
	}

	// The merged result has to satisfy the same invariants as a create;
	// the in-memory implementation enforces this too.
	merged := current
	partial.Apply(&merged)
	if err := merged.Validate(); err != nil {
		return err
	}

	fields := partial.Fields()
	fields["updated_at"] = time.Now()
	err = r.db.WithContext(ctx).
		Model(&models.Task{}).
		Where("id = ? AND author_id = ?", id, scope.UserID).
		Updates(fields).Error
	if err != nil {
		return &models.PersistenceError{Op: "update", Err: err}
	}
	r.publish(ctx, scope)
	return nil
}

func (r *GormTaskRepository) Delete(ctx context.Context, scope Scope, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND author_id = ?", id, scope.UserID).
		Delete(&models.Task{})
	if result.Error != nil {
		return &models.PersistenceError{Op: "delete", Err: result.Error}
	}
	if result.RowsAffected == 0 {
		return models.ErrNotFound
	}
	r.publish(ctx, scope)
	return nil
}

// Subscribe attaches to the scope's change feed and pushes the full ordered
// collection on every change, starting with an immediate snapshot.
func (r *GormTaskRepository) Subscribe(scope Scope, onChange func([]models.Task), onError func(error)) (Subscription, error) {
	reload := func() {
		tasks, err := r.List(context.Background(), scope)
		if err != nil {
			onError(err)
			return
		}
		onChange(tasks)
	}

	sub, err := r.feed.Subscribe(scope, reload, onError)
	if err != nil {
		return nil, err
	}
	reload()
	return sub, nil
}

func (r *GormTaskRepository) publish(ctx context.Context, scope Scope) {
	if r.onMutation != nil {
		r.onMutation(scope)
	}
	if r.feed == nil {
		return
	}
	if err := r.feed.Publish(ctx, scope); err != nil {
		// Subscribers miss one notification; the write itself landed.
		log.Printf("change feed publish failed for %s: %v", scope.Path(), err)
	}
}
