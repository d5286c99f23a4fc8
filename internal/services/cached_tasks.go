package services

import (
	"context"
	"fmt"
	"time"

	"task-board/internal/cache"
	"task-board/internal/models"
	"task-board/internal/projection"
	"task-board/internal/store"

	"github.com/gofrs/uuid"
)

// CachedTaskService fronts the task service with the multilevel cache.
// Reads are cached per scope; every mutation invalidates the scope's keys
// so the next subscription reload sees fresh data.
type CachedTaskService struct {
	taskService TaskService
	cache       *cache.MultiLevelCache
}

func NewCachedTaskService(taskService TaskService, cacheInstance *cache.MultiLevelCache) *CachedTaskService {
	return &CachedTaskService{
		taskService: taskService,
		cache:       cacheInstance,
	}
}

func listKey(scope store.Scope) string {
	return fmt.Sprintf("tasks:%s", scope.Path())
}

func taskKey(scope store.Scope, id uuid.UUID) string {
	return fmt.Sprintf("task:%s:%s", scope.Path(), id.String())
}

func (s *CachedTaskService) invalidate(scope store.Scope) {
	s.cache.Delete(listKey(scope))
	s.cache.DeletePattern(fmt.Sprintf("task:%s:*", scope.Path()))
}

// InvalidateScope drops every cached entry for the scope. Intended as the
// repository's mutation hook, so writes that do not pass through this
// service (the urgency sweep) still evict stale lists.
func (s *CachedTaskService) InvalidateScope(scope store.Scope) {
	s.invalidate(scope)
}

func (s *CachedTaskService) CreateTask(ctx context.Context, scope store.Scope, input TaskInput) (models.Task, error) {
	task, err := s.taskService.CreateTask(ctx, scope, input)
	if err != nil {
		return task, err
	}

	s.cache.Set(taskKey(scope, task.ID), task, 30*time.Minute)
	s.cache.Delete(listKey(scope))
	return task, nil
}

func (s *CachedTaskService) GetTask(ctx context.Context, scope store.Scope, id uuid.UUID) (models.Task, error) {
	var cached models.Task
	if err := s.cache.Get(taskKey(scope, id), &cached); err == nil {
		return cached, nil
	}

	task, err := s.taskService.GetTask(ctx, scope, id)
	if err != nil {
		return task, err
	}

	s.cache.Set(taskKey(scope, id), task, 30*time.Minute)
	return task, nil
}

func (s *CachedTaskService) ListTasks(ctx context.Context, scope store.Scope) ([]models.Task, error) {
	var cached []models.Task
	if err := s.cache.Get(listKey(scope), &cached); err == nil {
		return cached, nil
	}

	tasks, err := s.taskService.ListTasks(ctx, scope)
	if err != nil {
		return tasks, err
	}

	s.cache.Set(listKey(scope), tasks, 10*time.Minute)
	return tasks, nil
}

func (s *CachedTaskService) UpdateTask(ctx context.Context, scope store.Scope, id uuid.UUID, patch TaskPatch) (models.Task, error) {
	task, err := s.taskService.UpdateTask(ctx, scope, id, patch)
	if err != nil {
		return task, err
	}

	s.invalidate(scope)
	s.cache.Set(taskKey(scope, id), task, 30*time.Minute)
	return task, nil
}

func (s *CachedTaskService) DeleteTask(ctx context.Context, scope store.Scope, id uuid.UUID) error {
	if err := s.taskService.DeleteTask(ctx, scope, id); err != nil {
		return err
	}

	s.invalidate(scope)
	return nil
}

func (s *CachedTaskService) ToggleChecklistItem(ctx context.Context, scope store.Scope, id uuid.UUID, itemID string) (models.Task, error) {
	task, err := s.taskService.ToggleChecklistItem(ctx, scope, id, itemID)
	if err != nil {
		return task, err
	}

	s.invalidate(scope)
	s.cache.Set(taskKey(scope, id), task, 30*time.Minute)
	return task, nil
}

// Board and Matrix are projections over the list; they reuse the cached
// list rather than caching the projected shapes separately.
func (s *CachedTaskService) Board(ctx context.Context, scope store.Scope) ([]projection.Column, error) {
	tasks, err := s.ListTasks(ctx, scope)
	if err != nil {
		return nil, err
	}
	return projection.Kanban(tasks), nil
}

func (s *CachedTaskService) Matrix(ctx context.Context, scope store.Scope) ([]projection.QuadrantGroup, error) {
	tasks, err := s.ListTasks(ctx, scope)
	if err != nil {
		return nil, err
	}
	return projection.Matrix(tasks), nil
}

func (s *CachedTaskService) GetCacheStats() map[string]interface{} {
	return s.cache.Stats()
}
