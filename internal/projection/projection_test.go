package projection

import (
	"testing"
	"time"

	"task-board/internal/models"

	"github.com/gofrs/uuid"
)

func makeTask(title, status string, urgent, important bool, createdAt time.Time) models.Task {
	return models.Task{
		ID:          uuid.Must(uuid.NewV4()),
		Title:       title,
		Status:      status,
		IsUrgent:    urgent,
		IsImportant: important,
		CreatedAt:   createdAt,
	}
}

func TestSortByCreation(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tasks := []models.Task{
		makeTask("third", models.StatusBacklog, false, false, base.Add(2*time.Hour)),
		makeTask("first", models.StatusBacklog, false, false, base),
		makeTask("second", models.StatusBacklog, false, false, base.Add(time.Hour)),
	}

	sorted := SortByCreation(tasks)

	want := []string{"first", "second", "third"}
	for i, title := range want {
		if sorted[i].Title != title {
			t.Errorf("position %d: got %q, want %q", i, sorted[i].Title, title)
		}
	}

	// Input must be left untouched.
	if tasks[0].Title != "third" {
		t.Error("SortByCreation mutated its input")
	}
}

func TestSortByCreationStable(t *testing.T) {
	same := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tasks := []models.Task{
		makeTask("a", models.StatusBacklog, false, false, same),
		makeTask("b", models.StatusBacklog, false, false, same),
		makeTask("c", models.StatusBacklog, false, false, same),
	}

	sorted := SortByCreation(tasks)
	for i, title := range []string{"a", "b", "c"} {
		if sorted[i].Title != title {
			t.Errorf("same-instant tasks reordered: position %d got %q", i, sorted[i].Title)
		}
	}
}

func TestKanbanPartition(t *testing.T) {
	now := time.Now()
	tasks := []models.Task{
		makeTask("one", models.StatusBacklog, false, false, now),
		makeTask("two", models.StatusToDo, false, false, now),
		makeTask("three", models.StatusBacklog, false, false, now),
		makeTask("four", models.StatusDone, false, false, now),
	}

	columns := Kanban(tasks)

	if len(columns) != 4 {
		t.Fatalf("expected 4 columns, got %d", len(columns))
	}
	for i, name := range models.KanbanColumns {
		if columns[i].Name != name {
			t.Errorf("column %d: got %q, want %q", i, columns[i].Name, name)
		}
	}

	if got := len(columns[0].Tasks); got != 2 {
		t.Errorf("expected 2 backlog tasks, got %d", got)
	}
	if columns[0].Tasks[0].Title != "one" || columns[0].Tasks[1].Title != "three" {
		t.Error("backlog column lost input order")
	}
	if len(columns[2].Tasks) != 0 {
		t.Errorf("expected empty In Progress column, got %d tasks", len(columns[2].Tasks))
	}

	total := 0
	for _, col := range columns {
		total += len(col.Tasks)
	}
	if total != len(tasks) {
		t.Errorf("partition dropped tasks: %d in, %d out", len(tasks), total)
	}
}

func TestMatrixPartition(t *testing.T) {
	now := time.Now()
	tasks := []models.Task{
		makeTask("do", models.StatusToDo, true, true, now),
		makeTask("schedule", models.StatusToDo, false, true, now),
		makeTask("delegate", models.StatusToDo, true, false, now),
		makeTask("eliminate", models.StatusToDo, false, false, now),
	}

	groups := Matrix(tasks)

	if len(groups) != 4 {
		t.Fatalf("expected 4 quadrants, got %d", len(groups))
	}

	wantByQuadrant := map[string]string{
		models.QuadrantDo:        "do",
		models.QuadrantSchedule:  "schedule",
		models.QuadrantDelegate:  "delegate",
		models.QuadrantEliminate: "eliminate",
	}

	for _, group := range groups {
		if len(group.Tasks) != 1 {
			t.Errorf("quadrant %s: expected 1 task, got %d", group.Name, len(group.Tasks))
			continue
		}
		if group.Tasks[0].Title != wantByQuadrant[group.Name] {
			t.Errorf("quadrant %s: got task %q, want %q",
				group.Name, group.Tasks[0].Title, wantByQuadrant[group.Name])
		}
	}
}
