// Package projection partitions an ordered task collection for the two board
// presentations. Projections never mutate or re-sort the tasks they are
// given beyond the canonical CreatedAt ordering.
package projection

import (
	"sort"

	"task-board/internal/models"
)

type Column struct {
	Name  string        `json:"name"`
	Tasks []models.Task `json:"tasks"`
}

type QuadrantGroup struct {
	Name  string        `json:"name"`
	Tasks []models.Task `json:"tasks"`
}

// SortByCreation orders tasks ascending by CreatedAt, oldest first. A zero
// CreatedAt (not yet round-tripped from the store) sorts as the epoch rather
// than dropping the task. The sort is stable so same-instant tasks keep
// their source order.
func SortByCreation(tasks []models.Task) []models.Task {
	out := make([]models.Task, len(tasks))
	copy(out, tasks)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Kanban groups tasks into the four fixed status columns, preserving the
// relative order of the input within each column.
func Kanban(tasks []models.Task) []Column {
	byStatus := make(map[string][]models.Task, len(models.KanbanColumns))
	for _, task := range tasks {
		byStatus[task.Status] = append(byStatus[task.Status], task)
	}

	columns := make([]Column, 0, len(models.KanbanColumns))
	for _, name := range models.KanbanColumns {
		columns = append(columns, Column{Name: name, Tasks: byStatus[name]})
	}
	return columns
}

// Matrix partitions tasks into the four Eisenhower quadrants by the
// (urgent, important) pair. Every task lands in exactly one quadrant;
// neither-urgent-nor-important tasks go to Eliminate.
func Matrix(tasks []models.Task) []QuadrantGroup {
	byQuadrant := make(map[string][]models.Task, len(models.MatrixQuadrants))
	for _, task := range tasks {
		q := task.Quadrant()
		byQuadrant[q] = append(byQuadrant[q], task)
	}

	groups := make([]QuadrantGroup, 0, len(models.MatrixQuadrants))
	for _, name := range models.MatrixQuadrants {
		groups = append(groups, QuadrantGroup{Name: name, Tasks: byQuadrant[name]})
	}
	return groups
}
