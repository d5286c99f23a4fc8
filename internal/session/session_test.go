package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"task-board/internal/models"
	"task-board/internal/store"

	"github.com/gofrs/uuid"
)

// recordingRepo captures every call so tests can assert exactly what a
// commit sent to the store.
type recordingRepo struct {
	created   []models.Task
	updates   []store.Partial
	updateIDs []uuid.UUID
	createErr error
	updateErr error
}

func (r *recordingRepo) Create(_ context.Context, _ store.Scope, task models.Task) (models.Task, error) {
	if r.createErr != nil {
		return models.Task{}, r.createErr
	}
	task.ID = uuid.Must(uuid.NewV4())
	task.CreatedAt = time.Now()
	r.created = append(r.created, task)
	return task, nil
}

func (r *recordingRepo) Get(_ context.Context, _ store.Scope, _ uuid.UUID) (models.Task, error) {
	return models.Task{}, models.ErrNotFound
}

func (r *recordingRepo) List(_ context.Context, _ store.Scope) ([]models.Task, error) {
	return nil, nil
}

func (r *recordingRepo) Update(_ context.Context, _ store.Scope, id uuid.UUID, partial store.Partial) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	r.updates = append(r.updates, partial)
	r.updateIDs = append(r.updateIDs, id)
	return nil
}

func (r *recordingRepo) Delete(_ context.Context, _ store.Scope, _ uuid.UUID) error {
	return nil
}

func (r *recordingRepo) Subscribe(_ store.Scope, _ func([]models.Task), _ func(error)) (store.Subscription, error) {
	return nil, nil
}

var testScope = store.Scope{AppID: "test-app", UserID: uuid.Must(uuid.NewV4())}

// fixedNow pins the clock to 2025-06-01 so urgency derivation is stable.
func fixedNow() time.Time {
	return time.Date(2025, 6, 1, 10, 30, 0, 0, time.Local)
}

func newTestSession(repo store.TaskRepository) *Session {
	return New(repo, testScope, fixedNow)
}

func TestCreateDerivesUrgencyFromDeadline(t *testing.T) {
	repo := &recordingRepo{}
	s := newTestSession(repo)

	s.OpenCreate()
	if s.State() != Editing {
		t.Fatalf("expected Editing after OpenCreate, got %v", s.State())
	}

	s.SetTitle("Ship release")

	// No deadline: not urgent.
	if s.Draft().IsUrgent {
		t.Error("fresh draft should not be urgent")
	}

	// Deadline today: urgency flips on immediately.
	s.SetDeadlineInput("2025-06-01")
	if !s.Draft().IsUrgent {
		t.Error("today's deadline should derive urgent")
	}

	// Deadline eight days out: urgency flips back off.
	s.SetDeadlineInput("2025-06-09")
	if s.Draft().IsUrgent {
		t.Error("far deadline should not be urgent")
	}
}

func TestManualOverrideStopsDerivation(t *testing.T) {
	repo := &recordingRepo{}
	s := newTestSession(repo)

	s.OpenCreate()
	s.SetTitle("Quarterly report")
	s.SetDeadlineInput("2025-06-01")
	if !s.Draft().IsUrgent {
		t.Fatal("expected derived urgency")
	}

	// User unchecks urgent; that is now their word.
	s.SetUrgent(false)
	if !s.Draft().HasManuallySetUrgency {
		t.Fatal("expected manual flag after direct toggle")
	}

	// Deadline changes no longer touch the flag.
	s.SetDeadlineInput("2025-06-02")
	if s.Draft().IsUrgent {
		t.Error("derivation should be dead after a manual override")
	}

	if err := s.Commit(context.Background()); err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected one create, got %d", len(repo.created))
	}

	created := repo.created[0]
	if created.IsUrgent {
		t.Error("created task should not be urgent")
	}
	if !created.HasManuallySetUrgency {
		t.Error("created task should carry the manual override")
	}
	if s.State() != Closed {
		t.Errorf("create session should close on success, got %v", s.State())
	}
}

func TestCreateInfersOverrideFromDisagreement(t *testing.T) {
	repo := &recordingRepo{}
	s := newTestSession(repo)

	// Urgent with no deadline: nothing to derive from, so it must be manual.
	s.OpenCreate()
	s.SetTitle("Call the bank")
	s.SetUrgent(true)
	if err := s.Commit(context.Background()); err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	if !repo.created[0].HasManuallySetUrgency {
		t.Error("urgent with no deadline should be recorded as manual")
	}

	// Flag agrees with derivation: no override.
	s.OpenCreate()
	s.SetTitle("Water plants")
	s.SetDeadlineInput("2025-06-02")
	if err := s.Commit(context.Background()); err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	if repo.created[1].HasManuallySetUrgency {
		t.Error("agreement with derivation should not set the manual flag")
	}
	if !repo.created[1].IsUrgent {
		t.Error("tomorrow's deadline should commit urgent")
	}
}

func TestCommitRejectsEmptyTitleWithoutRepoCall(t *testing.T) {
	repo := &recordingRepo{}
	s := newTestSession(repo)

	s.OpenCreate()
	s.SetTitle("   ")

	err := s.Commit(context.Background())
	if !errors.Is(err, models.ErrEmptyTitle) {
		t.Fatalf("expected ErrEmptyTitle, got %v", err)
	}
	if len(repo.created) != 0 {
		t.Error("validation failure must not reach the repository")
	}
	if s.State() != Editing {
		t.Errorf("session should stay editable, got %v", s.State())
	}
	if s.ValidationErr() == nil {
		t.Error("validation error should be held on the session")
	}

	// The draft survives; fixing the title clears the path.
	s.SetTitle("Real title")
	if err := s.Commit(context.Background()); err != nil {
		t.Fatalf("commit after fix failed: %v", err)
	}
	if s.ValidationErr() != nil {
		t.Error("validation error should clear on successful commit")
	}
}

func TestCommitRejectsInvalidDeadline(t *testing.T) {
	repo := &recordingRepo{}
	s := newTestSession(repo)

	s.OpenCreate()
	s.SetTitle("Taxes")
	s.SetDeadlineInput("June 15th")

	err := s.Commit(context.Background())
	if !errors.Is(err, models.ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
	if len(repo.created) != 0 {
		t.Error("invalid deadline must not reach the repository")
	}
}

func TestChecklistCap(t *testing.T) {
	s := newTestSession(&recordingRepo{})
	s.OpenCreate()

	for i := 0; i < models.MaxChecklistItems; i++ {
		if err := s.AddChecklistItem("step"); err != nil {
			t.Fatalf("item %d rejected: %v", i, err)
		}
	}

	err := s.AddChecklistItem("one too many")
	if !errors.Is(err, models.ErrChecklistFull) {
		t.Fatalf("expected ErrChecklistFull, got %v", err)
	}
	if len(s.Draft().Checklist) != models.MaxChecklistItems {
		t.Errorf("checklist grew past the cap: %d items", len(s.Draft().Checklist))
	}

	if err := s.AddChecklistItem("   "); err == nil {
		t.Error("blank item text should be rejected")
	}
}

func existingTask() models.Task {
	deadline := time.Date(2025, 6, 10, 0, 0, 0, 0, time.Local)
	return models.Task{
		ID:          uuid.Must(uuid.NewV4()),
		Title:       "Refactor billing",
		Description: "split the invoice module",
		Status:      models.StatusToDo,
		Deadline:    &deadline,
		IsImportant: true,
		Checklist: []models.ChecklistItem{
			{ID: "sub_1", Text: "extract interface"},
			{ID: "sub_2", Text: "move tests", IsCompleted: true},
		},
		CreatedAt: time.Date(2025, 5, 20, 9, 0, 0, 0, time.Local),
	}
}

func TestCommitUpdateSendsOnlyChangedFields(t *testing.T) {
	repo := &recordingRepo{}
	s := newTestSession(repo)

	task := existingTask()
	s.OpenView(task)
	if err := s.BeginEdit(); err != nil {
		t.Fatalf("BeginEdit failed: %v", err)
	}

	s.SetStatus(models.StatusInProgress)

	if err := s.Commit(context.Background()); err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	if len(repo.updates) != 1 {
		t.Fatalf("expected one update, got %d", len(repo.updates))
	}

	partial := repo.updates[0]
	if partial.Status == nil || *partial.Status != models.StatusInProgress {
		t.Error("status change missing from partial")
	}
	if partial.Title != nil || partial.Description != nil || partial.Deadline != nil ||
		partial.ClearDeadline || partial.IsImportant != nil || partial.Checklist != nil {
		t.Errorf("unchanged fields leaked into partial: %+v", partial)
	}
	if repo.updateIDs[0] != task.ID {
		t.Error("update targeted the wrong task")
	}
	if s.State() != Viewing {
		t.Errorf("expected Viewing after update commit, got %v", s.State())
	}
}

func TestCommitUpdateNoChangesSkipsRepo(t *testing.T) {
	repo := &recordingRepo{}
	s := newTestSession(repo)

	s.OpenView(existingTask())
	if err := s.BeginEdit(); err != nil {
		t.Fatalf("BeginEdit failed: %v", err)
	}
	if err := s.Commit(context.Background()); err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	if len(repo.updates) != 0 {
		t.Error("no-op commit should not call the repository")
	}
	if s.State() != Viewing {
		t.Errorf("expected Viewing, got %v", s.State())
	}
}

func TestClearingDeadlineRecomputesUrgency(t *testing.T) {
	repo := &recordingRepo{}
	s := newTestSession(repo)

	deadline := time.Date(2025, 6, 2, 0, 0, 0, 0, time.Local)
	task := existingTask()
	task.Deadline = &deadline
	task.IsUrgent = true

	s.OpenView(task)
	if err := s.BeginEdit(); err != nil {
		t.Fatalf("BeginEdit failed: %v", err)
	}

	s.SetDeadlineInput("")
	if err := s.Commit(context.Background()); err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	partial := repo.updates[0]
	if !partial.ClearDeadline {
		t.Error("expected ClearDeadline in partial")
	}
	if partial.IsUrgent == nil || *partial.IsUrgent {
		t.Error("removing the deadline should turn derived urgency off")
	}
}

func TestRepoFailureReturnsToEdit(t *testing.T) {
	repoErr := &models.PersistenceError{Op: "update", Err: errors.New("connection reset")}
	repo := &recordingRepo{updateErr: repoErr}
	s := newTestSession(repo)

	s.OpenView(existingTask())
	if err := s.BeginEdit(); err != nil {
		t.Fatalf("BeginEdit failed: %v", err)
	}
	s.SetTitle("New title")

	err := s.Commit(context.Background())
	if err == nil {
		t.Fatal("expected commit error")
	}
	if s.State() != Editing {
		t.Errorf("failed commit should return to Editing, got %v", s.State())
	}
	if s.CommitErr() == nil {
		t.Error("commit error should be held on the session")
	}
	if s.Draft().Title != "New title" {
		t.Error("draft should survive a failed commit")
	}
}

func TestApplySnapshotNeverTouchesDraft(t *testing.T) {
	s := newTestSession(&recordingRepo{})

	task := existingTask()
	s.OpenView(task)
	if err := s.BeginEdit(); err != nil {
		t.Fatalf("BeginEdit failed: %v", err)
	}
	s.SetTitle("My local edit")

	remote := task
	remote.Title = "Edited elsewhere"
	s.ApplySnapshot(remote)

	if s.Task().Title != "Edited elsewhere" {
		t.Error("view copy should absorb the pushed snapshot")
	}
	if s.Draft().Title != "My local edit" {
		t.Error("draft must not be clobbered by a pushed snapshot")
	}

	// A snapshot for some other task is ignored outright.
	other := existingTask()
	other.Title = "Unrelated"
	s.ApplySnapshot(other)
	if s.Task().Title != "Edited elsewhere" {
		t.Error("snapshot for a different task id should be ignored")
	}
}

func TestCancelDiscardsDraft(t *testing.T) {
	s := newTestSession(&recordingRepo{})

	// Edit cancel returns to viewing with the original intact.
	task := existingTask()
	s.OpenView(task)
	if err := s.BeginEdit(); err != nil {
		t.Fatalf("BeginEdit failed: %v", err)
	}
	s.SetTitle("discard me")
	s.Cancel()
	if s.State() != Viewing {
		t.Errorf("expected Viewing after cancel, got %v", s.State())
	}
	if s.Task().Title != task.Title {
		t.Error("cancel must not alter the viewed task")
	}

	// Create cancel closes the session.
	s.OpenCreate()
	s.SetTitle("never born")
	s.Cancel()
	if s.State() != Closed {
		t.Errorf("expected Closed after create cancel, got %v", s.State())
	}
}

func TestDraftChecklistIsDeepCopied(t *testing.T) {
	s := newTestSession(&recordingRepo{})

	task := existingTask()
	s.OpenView(task)
	if err := s.BeginEdit(); err != nil {
		t.Fatalf("BeginEdit failed: %v", err)
	}

	if err := s.ToggleChecklistItem("sub_1"); err != nil {
		t.Fatalf("toggle failed: %v", err)
	}
	if s.Task().Checklist[0].IsCompleted {
		t.Error("draft toggle leaked into the view copy")
	}

	if err := s.ToggleChecklistItem("sub_missing"); !errors.Is(err, ErrNoChecklistRef) {
		t.Errorf("expected ErrNoChecklistRef, got %v", err)
	}
}

func TestToggleChecklistItemDirect(t *testing.T) {
	repo := &recordingRepo{}
	s := newTestSession(repo)

	task := existingTask()
	s.OpenView(task)

	if err := s.ToggleChecklistItemDirect(context.Background(), "sub_1"); err != nil {
		t.Fatalf("direct toggle failed: %v", err)
	}
	if len(repo.updates) != 1 {
		t.Fatalf("expected one update, got %d", len(repo.updates))
	}

	partial := repo.updates[0]
	if partial.Checklist == nil {
		t.Fatal("direct toggle should send the checklist")
	}
	if partial.Title != nil || partial.Status != nil || partial.IsUrgent != nil {
		t.Error("direct toggle must touch nothing but the checklist")
	}
	if !partial.Checklist[0].IsCompleted {
		t.Error("item sub_1 should be flipped on")
	}
	if !s.Task().Checklist[0].IsCompleted {
		t.Error("view copy should reflect the toggle")
	}

	// Only available from the read-only view.
	if err := s.BeginEdit(); err != nil {
		t.Fatalf("BeginEdit failed: %v", err)
	}
	if err := s.ToggleChecklistItemDirect(context.Background(), "sub_1"); !errors.Is(err, ErrNotViewing) {
		t.Errorf("expected ErrNotViewing while editing, got %v", err)
	}
}

func TestBeginEditRequiresView(t *testing.T) {
	s := newTestSession(&recordingRepo{})
	if err := s.BeginEdit(); !errors.Is(err, ErrNotViewing) {
		t.Errorf("expected ErrNotViewing from closed session, got %v", err)
	}
	if err := s.Commit(context.Background()); !errors.Is(err, ErrNotEditing) {
		t.Errorf("expected ErrNotEditing from closed session, got %v", err)
	}
}
