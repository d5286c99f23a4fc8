// Package session holds the client-local draft state for viewing, creating
// and editing a single task. Nothing here is persisted: a draft only
// reaches the repository through Commit, and only as the set of fields that
// actually changed.
package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"task-board/internal/dates"
	"task-board/internal/models"
	"task-board/internal/store"
)

type State int

const (
	Closed State = iota
	Viewing
	Editing
	Committing
)

func (s State) String() string {
	switch s {
	case Viewing:
		return "viewing"
	case Editing:
		return "editing"
	case Committing:
		return "committing"
	default:
		return "closed"
	}
}

var (
	ErrNotViewing     = errors.New("session is not in view state")
	ErrNotEditing     = errors.New("session is not in edit state")
	ErrCommitInFlight = errors.New("a commit is already in flight")
	ErrNoChecklistRef = errors.New("checklist item not found in draft")
)

// Draft carries the editable copy of a task's fields. The deadline lives in
// its YYYY-MM-DD boundary form until commit.
type Draft struct {
	Title                 string
	Description           string
	Status                string
	DeadlineInput         string
	IsImportant           bool
	IsUrgent              bool
	HasManuallySetUrgency bool
	Checklist             []models.ChecklistItem
}

// Session is the edit/create state machine for one task at a time:
// Closed -> Viewing -> Editing -> {Committing -> Viewing/Closed | Editing on
// failure}. A fresh-create session skips Viewing and closes on success.
type Session struct {
	repo  store.TaskRepository
	scope store.Scope
	now   func() time.Time

	state    State
	creating bool
	task     models.Task // live view copy, refreshed by subscription pushes
	snapshot models.Task // fields as they were when editing began
	draft    Draft

	validationErr error
	commitErr     error
}

func New(repo store.TaskRepository, scope store.Scope, now func() time.Time) *Session {
	if now == nil {
		now = time.Now
	}
	return &Session{repo: repo, scope: scope, now: now, state: Closed}
}

func (s *Session) State() State         { return s.state }
func (s *Session) Draft() Draft         { return s.draft }
func (s *Session) Task() models.Task    { return s.task }
func (s *Session) ValidationErr() error { return s.validationErr }
func (s *Session) CommitErr() error     { return s.commitErr }

// OpenView opens a read-only session on an existing task.
func (s *Session) OpenView(task models.Task) {
	s.state = Viewing
	s.creating = false
	s.task = task
	s.validationErr = nil
	s.commitErr = nil
}

// OpenCreate opens a fresh create form. The draft starts in the first
// column with no deadline.
func (s *Session) OpenCreate() {
	s.state = Editing
	s.creating = true
	s.task = models.Task{}
	s.snapshot = models.Task{}
	s.draft = Draft{Status: models.StatusBacklog}
	s.validationErr = nil
	s.commitErr = nil
}

// BeginEdit snapshots the viewed task into the draft. The checklist is
// deep-copied so draft mutations never reach the view copy.
func (s *Session) BeginEdit() error {
	if s.state != Viewing {
		return ErrNotViewing
	}
	s.snapshot = s.task
	s.draft = Draft{
		Title:                 s.task.Title,
		Description:           s.task.Description,
		Status:                s.task.Status,
		DeadlineInput:         dates.FormatDeadlineInput(s.task.Deadline),
		IsImportant:           s.task.IsImportant,
		IsUrgent:              s.task.IsUrgent,
		HasManuallySetUrgency: s.task.HasManuallySetUrgency,
		Checklist:             s.task.CloneChecklist(),
	}
	s.state = Editing
	s.validationErr = nil
	s.commitErr = nil
	return nil
}

// Cancel discards the draft. A view-backed session returns to the pre-edit
// snapshot; a create session closes entirely. No partial writes occur.
func (s *Session) Cancel() {
	s.validationErr = nil
	s.commitErr = nil
	if s.creating || s.state == Closed {
		s.Close()
		return
	}
	s.state = Viewing
}

func (s *Session) Close() {
	s.state = Closed
	s.creating = false
	s.task = models.Task{}
	s.snapshot = models.Task{}
	s.draft = Draft{}
}

func (s *Session) SetTitle(title string)       { s.draft.Title = title }
func (s *Session) SetDescription(desc string)  { s.draft.Description = desc }
func (s *Session) SetStatus(status string)     { s.draft.Status = status }
func (s *Session) SetImportant(important bool) { s.draft.IsImportant = important }

// SetDeadlineInput updates the draft deadline and, while the task has no
// manual urgency override, keeps the urgent flag tracking the derivation.
// A string that does not parse leaves urgency off; commit re-validates and
// rejects it properly.
func (s *Session) SetDeadlineInput(input string) {
	s.draft.DeadlineInput = input
	if s.draft.HasManuallySetUrgency {
		return
	}
	deadline, err := dates.ParseDeadline(input)
	if err != nil {
		s.draft.IsUrgent = false
		return
	}
	s.draft.IsUrgent = dates.DeriveUrgency(deadline, s.now())
}

// SetUrgent is the direct toggle. From this point on the task's urgency is
// the user's word, never the derivation's.
func (s *Session) SetUrgent(urgent bool) {
	s.draft.IsUrgent = urgent
	s.draft.HasManuallySetUrgency = true
}

func (s *Session) AddChecklistItem(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return &models.ValidationError{Field: "checklist", Message: "item text cannot be empty"}
	}
	if len(s.draft.Checklist) >= models.MaxChecklistItems {
		return models.ErrChecklistFull
	}
	s.draft.Checklist = append(s.draft.Checklist, models.ChecklistItem{
		ID:   models.NewChecklistItemID(),
		Text: text,
	})
	return nil
}

// SetChecklist replaces the draft checklist wholesale; merge-style API
// updates carry the full list. Items arriving without an id get one.
func (s *Session) SetChecklist(items []models.ChecklistItem) error {
	if len(items) > models.MaxChecklistItems {
		return models.ErrChecklistFull
	}
	draft := make([]models.ChecklistItem, len(items))
	copy(draft, items)
	for i := range draft {
		if draft[i].ID == "" {
			draft[i].ID = models.NewChecklistItemID()
		}
	}
	s.draft.Checklist = draft
	return nil
}

func (s *Session) RemoveChecklistItem(id string) {
	kept := s.draft.Checklist[:0]
	for _, item := range s.draft.Checklist {
		if item.ID != id {
			kept = append(kept, item)
		}
	}
	s.draft.Checklist = kept
}

func (s *Session) ToggleChecklistItem(id string) error {
	for i := range s.draft.Checklist {
		if s.draft.Checklist[i].ID == id {
			s.draft.Checklist[i].IsCompleted = !s.draft.Checklist[i].IsCompleted
			return nil
		}
	}
	return ErrNoChecklistRef
}

func (s *Session) SetChecklistItemText(id, text string) error {
	for i := range s.draft.Checklist {
		if s.draft.Checklist[i].ID == id {
			s.draft.Checklist[i].Text = text
			return nil
		}
	}
	return ErrNoChecklistRef
}

// ToggleChecklistItemDirect flips one item's completion straight through the
// repository, bypassing the draft cycle. It is only available from the
// read-only view; it needs no validation because it cannot touch any
// validated field.
func (s *Session) ToggleChecklistItemDirect(ctx context.Context, id string) error {
	if s.state != Viewing {
		return ErrNotViewing
	}
	checklist := s.task.CloneChecklist()
	found := false
	for i := range checklist {
		if checklist[i].ID == id {
			checklist[i].IsCompleted = !checklist[i].IsCompleted
			found = true
			break
		}
	}
	if !found {
		return ErrNoChecklistRef
	}

	err := s.repo.Update(ctx, s.scope, s.task.ID, store.Partial{Checklist: checklist})
	if err != nil {
		s.commitErr = err
		return err
	}
	s.task.Checklist = checklist
	return nil
}

// ApplySnapshot absorbs a newer copy of the task pushed by the repository
// subscription. The view copy refreshes immediately; an in-progress edit
// draft stays based on the snapshot taken when editing started, so the
// eventual commit is last-write-wins with no merge.
func (s *Session) ApplySnapshot(task models.Task) {
	if s.state == Closed || s.creating || task.ID != s.task.ID {
		return
	}
	s.task = task
}

// Commit validates the draft and dispatches it. On validation failure the
// session stays in edit state with the error held locally and the
// repository is never called. On repository failure the session returns to
// edit state with the error surfaced. Only one commit may be in flight.
func (s *Session) Commit(ctx context.Context) error {
	switch s.state {
	case Committing:
		return ErrCommitInFlight
	case Editing:
	default:
		return ErrNotEditing
	}

	if strings.TrimSpace(s.draft.Title) == "" {
		s.validationErr = models.ErrEmptyTitle
		return s.validationErr
	}
	deadline, err := dates.ParseDeadline(s.draft.DeadlineInput)
	if err != nil {
		s.validationErr = err
		return err
	}
	s.validationErr = nil
	s.commitErr = nil
	s.state = Committing

	if s.creating {
		return s.commitCreate(ctx, deadline)
	}
	return s.commitUpdate(ctx, deadline)
}

func (s *Session) commitCreate(ctx context.Context, deadline *time.Time) error {
	derived := dates.DeriveUrgency(deadline, s.now())
	urgent := s.draft.IsUrgent
	// A new task carries a manual override when the submitted flag
	// disagrees with the derivation, or when it is urgent with no deadline
	// to derive from.
	manual := (deadline != nil && urgent != derived) || (deadline == nil && urgent)

	task := models.Task{
		Title:                 strings.TrimSpace(s.draft.Title),
		Description:           s.draft.Description,
		Status:                s.draft.Status,
		Deadline:              deadline,
		IsImportant:           s.draft.IsImportant,
		IsUrgent:              urgent,
		HasManuallySetUrgency: manual,
		Checklist:             s.draft.Checklist,
	}
	if task.Status == "" {
		task.Status = models.StatusBacklog
	}

	created, err := s.repo.Create(ctx, s.scope, task)
	if err != nil {
		s.commitErr = err
		s.state = Editing
		return err
	}
	s.task = created
	s.Close()
	return nil
}

func (s *Session) commitUpdate(ctx context.Context, deadline *time.Time) error {
	partial := s.buildPartial(deadline)

	if partial.IsEmpty() {
		s.state = Viewing
		return nil
	}

	err := s.repo.Update(ctx, s.scope, s.snapshot.ID, partial)
	if err != nil {
		s.commitErr = err
		s.state = Editing
		return err
	}

	updated := s.task
	partial.Apply(&updated)
	s.task = updated
	s.state = Viewing
	return nil
}

// buildPartial diffs the draft against the edit-time snapshot and applies
// the urgency resolution rule: a deadline change recomputes the urgent flag
// unless the task carries a manual override.
func (s *Session) buildPartial(deadline *time.Time) store.Partial {
	var partial store.Partial

	title := strings.TrimSpace(s.draft.Title)
	if title != s.snapshot.Title {
		partial.Title = &title
	}
	if s.draft.Description != s.snapshot.Description {
		desc := s.draft.Description
		partial.Description = &desc
	}
	if s.draft.Status != s.snapshot.Status {
		status := s.draft.Status
		partial.Status = &status
	}

	oldInput := dates.FormatDeadlineInput(s.snapshot.Deadline)
	deadlineChanged := s.draft.DeadlineInput != oldInput
	if deadlineChanged {
		if deadline == nil {
			partial.ClearDeadline = true
		} else {
			partial.Deadline = deadline
		}
	}

	urgent := s.draft.IsUrgent
	if deadlineChanged && !s.draft.HasManuallySetUrgency {
		urgent = dates.DeriveUrgency(deadline, s.now())
	}
	if urgent != s.snapshot.IsUrgent {
		partial.IsUrgent = &urgent
	}
	if s.draft.HasManuallySetUrgency != s.snapshot.HasManuallySetUrgency {
		manual := s.draft.HasManuallySetUrgency
		partial.HasManuallySetUrgency = &manual
	}
	if s.draft.IsImportant != s.snapshot.IsImportant {
		important := s.draft.IsImportant
		partial.IsImportant = &important
	}
	if !checklistsEqual(s.draft.Checklist, s.snapshot.Checklist) {
		partial.Checklist = s.draft.Checklist
		if partial.Checklist == nil {
			partial.Checklist = []models.ChecklistItem{}
		}
	}
	return partial
}

func checklistsEqual(a, b []models.ChecklistItem) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
