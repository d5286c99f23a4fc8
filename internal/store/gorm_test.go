package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"task-board/internal/models"

	"github.com/gofrs/uuid"
)

func setupGormRepo(t *testing.T) *GormTaskRepository {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.Task{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	return NewGormTaskRepository(db, nil)
}

func TestGormRepositoryCRUD(t *testing.T) {
	repo := setupGormRepo(t)
	scope := testScope()
	ctx := context.Background()

	deadline := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	created, err := repo.Create(ctx, scope, models.Task{
		Title:       "persisted",
		Description: "round trip",
		Deadline:    &deadline,
		IsImportant: true,
		Checklist: []models.ChecklistItem{
			{ID: "sub_a", Text: "one"},
		},
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	got, err := repo.Get(ctx, scope, created.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Title != "persisted" || !got.IsImportant {
		t.Errorf("unexpected task after round trip: %+v", got)
	}
	if got.Deadline == nil {
		t.Fatal("deadline lost in round trip")
	}
	if len(got.Checklist) != 1 || got.Checklist[0].ID != "sub_a" {
		t.Errorf("checklist lost in round trip: %+v", got.Checklist)
	}

	if err := repo.Delete(ctx, scope, created.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := repo.Get(ctx, scope, created.ID); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestGormRepositoryPartialUpdate(t *testing.T) {
	repo := setupGormRepo(t)
	scope := testScope()
	ctx := context.Background()

	deadline := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	created, err := repo.Create(ctx, scope, models.Task{
		Title:    "update me",
		Deadline: &deadline,
		IsUrgent: true,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	status := models.StatusDone
	urgent := false
	partial := Partial{
		Status:        &status,
		ClearDeadline: true,
		IsUrgent:      &urgent,
	}
	if err := repo.Update(ctx, scope, created.ID, partial); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	got, err := repo.Get(ctx, scope, created.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Status != models.StatusDone {
		t.Errorf("status not updated: %q", got.Status)
	}
	if got.Deadline != nil {
		t.Error("ClearDeadline should null the column")
	}
	if got.IsUrgent {
		t.Error("urgency not updated")
	}
	// Fields not named by the partial survive.
	if got.Title != "update me" {
		t.Errorf("title clobbered: %q", got.Title)
	}
}

func TestGormRepositoryUpdateMissing(t *testing.T) {
	repo := setupGormRepo(t)
	scope := testScope()

	title := "ghost"
	err := repo.Update(context.Background(), scope, uuid.Must(uuid.NewV4()), Partial{Title: &title})
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGormRepositoryScopeIsolation(t *testing.T) {
	repo := setupGormRepo(t)
	alice := testScope()
	bob := Scope{AppID: alice.AppID, UserID: uuid.Must(uuid.NewV4())}
	ctx := context.Background()

	created, err := repo.Create(ctx, alice, models.Task{Title: "mine"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, err := repo.Get(ctx, bob, created.ID); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("task visible outside its scope: %v", err)
	}
	if err := repo.Delete(ctx, bob, created.ID); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("delete crossed scopes: %v", err)
	}

	// Still present for the owner.
	if _, err := repo.Get(ctx, alice, created.ID); err != nil {
		t.Errorf("owner lost access: %v", err)
	}
}

func TestGormRepositoryListOrdered(t *testing.T) {
	repo := setupGormRepo(t)
	scope := testScope()
	ctx := context.Background()

	for _, title := range []string{"first", "second", "third"} {
		if _, err := repo.Create(ctx, scope, models.Task{Title: title}); err != nil {
			t.Fatalf("create %q failed: %v", title, err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	tasks, err := repo.List(ctx, scope)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(tasks) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(tasks))
	}
	if tasks[0].Title != "first" || tasks[2].Title != "third" {
		t.Errorf("list out of creation order: %v, %v, %v",
			tasks[0].Title, tasks[1].Title, tasks[2].Title)
	}
}

func TestGormRepositoryUpdateValidatesMergedResult(t *testing.T) {
	repo := setupGormRepo(t)
	scope := testScope()
	ctx := context.Background()

	created, err := repo.Create(ctx, scope, models.Task{Title: "valid"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	empty := ""
	err = repo.Update(ctx, scope, created.ID, Partial{Title: &empty})
	var verr *models.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error for empty title, got %v", err)
	}

	oversized := make([]models.ChecklistItem, models.MaxChecklistItems+1)
	for i := range oversized {
		oversized[i] = models.ChecklistItem{ID: models.NewChecklistItemID(), Text: "x"}
	}
	if err := repo.Update(ctx, scope, created.ID, Partial{Checklist: oversized}); !errors.Is(err, models.ErrChecklistFull) {
		t.Fatalf("expected ErrChecklistFull, got %v", err)
	}

	got, err := repo.Get(ctx, scope, created.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Title != "valid" || len(got.Checklist) != 0 {
		t.Errorf("rejected updates must not persist: %+v", got)
	}
}

func TestGormRepositoryMutationHook(t *testing.T) {
	repo := setupGormRepo(t)
	scope := testScope()
	ctx := context.Background()

	var fired []string
	repo.OnMutation(func(s Scope) { fired = append(fired, s.Path()) })

	created, err := repo.Create(ctx, scope, models.Task{Title: "hooked"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	urgent := true
	if err := repo.Update(ctx, scope, created.ID, Partial{IsUrgent: &urgent}); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if err := repo.Delete(ctx, scope, created.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	if len(fired) != 3 {
		t.Fatalf("expected hook to fire for create/update/delete, got %d calls", len(fired))
	}
	for _, path := range fired {
		if path != scope.Path() {
			t.Errorf("hook fired for wrong scope: %s", path)
		}
	}
}
