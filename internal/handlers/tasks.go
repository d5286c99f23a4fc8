package handlers

import (
	"net/http"
	"time"

	"task-board/internal/dates"
	"task-board/internal/models"
	"task-board/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
)

type TaskHandler struct {
	appID       string
	taskService services.TaskService
}

func NewTaskHandler(appID string, taskService services.TaskService) *TaskHandler {
	return &TaskHandler{appID: appID, taskService: taskService}
}

// taskView is the wire shape: the task plus its derived display fields, so
// clients never re-implement the deadline formatting.
type taskView struct {
	models.Task
	DeadlineDisplay string `json:"deadline_display"`
	DeadlineInput   string `json:"deadline_input"`
	Quadrant        string `json:"quadrant"`
}

func viewOf(task models.Task, now time.Time) taskView {
	return taskView{
		Task:            task,
		DeadlineDisplay: dates.FormatDeadlineDisplay(task.Deadline, now),
		DeadlineInput:   dates.FormatDeadlineInput(task.Deadline),
		Quadrant:        task.Quadrant(),
	}
}

func viewsOf(tasks []models.Task, now time.Time) []taskView {
	views := make([]taskView, 0, len(tasks))
	for _, task := range tasks {
		views = append(views, viewOf(task, now))
	}
	return views
}

func (h *TaskHandler) CreateTask(c *gin.Context) {
	scope, ok := scopeFromContext(c, h.appID)
	if !ok {
		return
	}

	var input services.TaskInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := h.taskService.CreateTask(c.Request.Context(), scope, input)
	if err != nil {
		handleTaskError(c, err)
		return
	}
	c.JSON(http.StatusCreated, viewOf(task, time.Now()))
}

func (h *TaskHandler) GetTask(c *gin.Context) {
	scope, ok := scopeFromContext(c, h.appID)
	if !ok {
		return
	}

	id := uuid.FromStringOrNil(c.Param("id"))
	task, err := h.taskService.GetTask(c.Request.Context(), scope, id)
	if err != nil {
		handleTaskError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewOf(task, time.Now()))
}

func (h *TaskHandler) GetTasks(c *gin.Context) {
	scope, ok := scopeFromContext(c, h.appID)
	if !ok {
		return
	}

	tasks, err := h.taskService.ListTasks(c.Request.Context(), scope)
	if err != nil {
		handleTaskError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"tasks": viewsOf(tasks, time.Now()),
		"total": len(tasks),
	})
}

func (h *TaskHandler) UpdateTask(c *gin.Context) {
	scope, ok := scopeFromContext(c, h.appID)
	if !ok {
		return
	}

	id := uuid.FromStringOrNil(c.Param("id"))
	var patch services.TaskPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := h.taskService.UpdateTask(c.Request.Context(), scope, id, patch)
	if err != nil {
		handleTaskError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewOf(task, time.Now()))
}

func (h *TaskHandler) DeleteTask(c *gin.Context) {
	scope, ok := scopeFromContext(c, h.appID)
	if !ok {
		return
	}

	id := uuid.FromStringOrNil(c.Param("id"))
	if err := h.taskService.DeleteTask(c.Request.Context(), scope, id); err != nil {
		handleTaskError(c, err)
		return
	}
	c.JSON(http.StatusNoContent, nil)
}

// ToggleChecklistItem flips one checklist item straight through as a
// single-field update. This backs the read-only-view checkbox.
func (h *TaskHandler) ToggleChecklistItem(c *gin.Context) {
	scope, ok := scopeFromContext(c, h.appID)
	if !ok {
		return
	}

	id := uuid.FromStringOrNil(c.Param("id"))
	itemID := c.Param("itemId")
	task, err := h.taskService.ToggleChecklistItem(c.Request.Context(), scope, id, itemID)
	if err != nil {
		handleTaskError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewOf(task, time.Now()))
}

type columnView struct {
	Name  string     `json:"name"`
	Tasks []taskView `json:"tasks"`
}

// GetBoard returns the kanban projection: the four fixed columns with their
// tasks in creation order.
func (h *TaskHandler) GetBoard(c *gin.Context) {
	scope, ok := scopeFromContext(c, h.appID)
	if !ok {
		return
	}

	columns, err := h.taskService.Board(c.Request.Context(), scope)
	if err != nil {
		handleTaskError(c, err)
		return
	}

	now := time.Now()
	out := make([]columnView, 0, len(columns))
	for _, col := range columns {
		out = append(out, columnView{Name: col.Name, Tasks: viewsOf(col.Tasks, now)})
	}
	c.JSON(http.StatusOK, gin.H{"columns": out})
}

// GetMatrix returns the Eisenhower projection.
func (h *TaskHandler) GetMatrix(c *gin.Context) {
	scope, ok := scopeFromContext(c, h.appID)
	if !ok {
		return
	}

	quadrants, err := h.taskService.Matrix(c.Request.Context(), scope)
	if err != nil {
		handleTaskError(c, err)
		return
	}

	now := time.Now()
	out := make([]quadrantView, 0, len(quadrants))
	for _, q := range quadrants {
		out = append(out, quadrantView{Name: q.Name, Tasks: viewsOf(q.Tasks, now)})
	}
	c.JSON(http.StatusOK, gin.H{"quadrants": out})
}

type quadrantView struct {
	Name  string     `json:"name"`
	Tasks []taskView `json:"tasks"`
}
