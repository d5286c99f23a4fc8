package models

import (
	"fmt"
	"time"

	"github.com/gofrs/uuid"
)

// Kanban columns, in board order. Status values are stored verbatim.
const (
	StatusBacklog    = "Backlog"
	StatusToDo       = "To Do"
	StatusInProgress = "In Progress"
	StatusDone       = "Done"
)

var KanbanColumns = []string{StatusBacklog, StatusToDo, StatusInProgress, StatusDone}

// Eisenhower matrix quadrants.
const (
	QuadrantDo        = "Do"
	QuadrantSchedule  = "Schedule"
	QuadrantDelegate  = "Delegate"
	QuadrantEliminate = "Eliminate"
)

var MatrixQuadrants = []string{QuadrantDo, QuadrantSchedule, QuadrantDelegate, QuadrantEliminate}

const MaxChecklistItems = 10

type ChecklistItem struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	IsCompleted bool   `json:"isCompleted"`
}

type Task struct {
	ID                    uuid.UUID       `json:"id" gorm:"primaryKey;type:uuid"`
	AuthorID              uuid.UUID       `json:"author_id" gorm:"type:uuid;not null;index"`
	Title                 string          `json:"title" gorm:"not null"`
	Description           string          `json:"description"`
	Status                string          `json:"status" gorm:"not null;default:'Backlog'"`
	Deadline              *time.Time      `json:"deadline"`
	IsImportant           bool            `json:"is_important"`
	IsUrgent              bool            `json:"is_urgent"`
	HasManuallySetUrgency bool            `json:"has_manually_set_urgency"`
	AssigneeIDs           []string        `json:"assignee_ids" gorm:"serializer:json"`
	Checklist             []ChecklistItem `json:"checklist" gorm:"serializer:json"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

func ValidStatus(status string) bool {
	for _, col := range KanbanColumns {
		if col == status {
			return true
		}
	}
	return false
}

// Quadrant classifies a task for the Eisenhower matrix. The four buckets are
// exhaustive and mutually exclusive over the urgency/importance pair.
func (t *Task) Quadrant() string {
	switch {
	case t.IsUrgent && t.IsImportant:
		return QuadrantDo
	case !t.IsUrgent && t.IsImportant:
		return QuadrantSchedule
	case t.IsUrgent && !t.IsImportant:
		return QuadrantDelegate
	default:
		return QuadrantEliminate
	}
}

// CloneChecklist returns a deep copy so edit drafts never alias the
// persisted checklist.
func (t *Task) CloneChecklist() []ChecklistItem {
	if t.Checklist == nil {
		return nil
	}
	out := make([]ChecklistItem, len(t.Checklist))
	copy(out, t.Checklist)
	return out
}

// NewChecklistItemID generates an id unique within a task. Checklist items
// have no identity outside their parent, so a fresh uuid is more than enough.
func NewChecklistItemID() string {
	return fmt.Sprintf("sub_%s", uuid.Must(uuid.NewV4()).String())
}

func (t *Task) Validate() error {
	if t.Title == "" {
		return ErrEmptyTitle
	}
	if !ValidStatus(t.Status) {
		return &ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", t.Status)}
	}
	if len(t.Checklist) > MaxChecklistItems {
		return ErrChecklistFull
	}
	return nil
}
