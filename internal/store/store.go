// Package store defines the task repository contract: per-user scoped CRUD
// with merge-style partial updates and a long-lived change subscription.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"task-board/internal/models"

	"github.com/gofrs/uuid"
)

var errFeedClosed = errors.New("change feed closed")

// Scope addresses one user's task collection inside one application
// namespace. Every repository operation is confined to its scope; there is
// no way to reach another user's tasks through this interface.
type Scope struct {
	AppID  string
	UserID uuid.UUID
}

func (s Scope) Path() string {
	return fmt.Sprintf("app/%s/users/%s/tasks", s.AppID, s.UserID)
}

// Partial is an explicit changed-fields record. Nil pointer fields are left
// untouched by the merge; documents are never replaced wholesale. A nil
// Checklist means unchanged, an empty non-nil slice clears it.
type Partial struct {
	Title                 *string
	Description           *string
	Status                *string
	Deadline              *time.Time
	ClearDeadline         bool
	IsImportant           *bool
	IsUrgent              *bool
	HasManuallySetUrgency *bool
	Checklist             []models.ChecklistItem
}

// IsEmpty reports whether the partial carries no changes at all.
func (p Partial) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil &&
		p.Deadline == nil && !p.ClearDeadline && p.IsImportant == nil &&
		p.IsUrgent == nil && p.HasManuallySetUrgency == nil && p.Checklist == nil
}

// Apply merges the partial into a task in place.
func (p Partial) Apply(task *models.Task) {
	if p.Title != nil {
		task.Title = *p.Title
	}
	if p.Description != nil {
		task.Description = *p.Description
	}
	if p.Status != nil {
		task.Status = *p.Status
	}
	if p.ClearDeadline {
		task.Deadline = nil
	} else if p.Deadline != nil {
		task.Deadline = p.Deadline
	}
	if p.IsImportant != nil {
		task.IsImportant = *p.IsImportant
	}
	if p.IsUrgent != nil {
		task.IsUrgent = *p.IsUrgent
	}
	if p.HasManuallySetUrgency != nil {
		task.HasManuallySetUrgency = *p.HasManuallySetUrgency
	}
	if p.Checklist != nil {
		task.Checklist = p.Checklist
	}
}

// Fields returns the changed columns for a merge-style UPDATE.
func (p Partial) Fields() map[string]interface{} {
	fields := make(map[string]interface{})
	if p.Title != nil {
		fields["title"] = *p.Title
	}
	if p.Description != nil {
		fields["description"] = *p.Description
	}
	if p.Status != nil {
		fields["status"] = *p.Status
	}
	if p.ClearDeadline {
		fields["deadline"] = nil
	} else if p.Deadline != nil {
		fields["deadline"] = *p.Deadline
	}
	if p.IsImportant != nil {
		fields["is_important"] = *p.IsImportant
	}
	if p.IsUrgent != nil {
		fields["is_urgent"] = *p.IsUrgent
	}
	if p.HasManuallySetUrgency != nil {
		fields["has_manually_set_urgency"] = *p.HasManuallySetUrgency
	}
	if p.Checklist != nil {
		fields["checklist"] = p.Checklist
	}
	return fields
}

// Subscription is a live handle on a scope's change feed. Unsubscribe is
// idempotent; after it returns, no further callbacks are delivered, so a
// late push from a previous identity's subscription can never land after
// sign-out.
type Subscription interface {
	Unsubscribe()
}

// TaskRepository is the contract the board core consumes. Implementations
// report failures as *models.PersistenceError (or models.ErrNotFound for a
// vanished target) rather than panicking.
type TaskRepository interface {
	Create(ctx context.Context, scope Scope, task models.Task) (models.Task, error)
	Get(ctx context.Context, scope Scope, id uuid.UUID) (models.Task, error)
	List(ctx context.Context, scope Scope) ([]models.Task, error)
	Update(ctx context.Context, scope Scope, id uuid.UUID, partial Partial) error
	Delete(ctx context.Context, scope Scope, id uuid.UUID) error
	Subscribe(scope Scope, onChange func([]models.Task), onError func(error)) (Subscription, error)
}

// ChangeFeed fans out "this scope changed" notifications between repository
// writers and subscribers. Payloads are not carried on the feed; subscribers
// reload the ordered list from the store.
type ChangeFeed interface {
	Publish(ctx context.Context, scope Scope) error
	Subscribe(scope Scope, notify func(), onError func(error)) (Subscription, error)
	Close() error
}
