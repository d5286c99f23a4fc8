package store

import (
	"context"
	"sync"
	"time"

	"task-board/internal/models"
	"task-board/internal/projection"

	"github.com/gofrs/uuid"
)

// MemoryTaskRepository is a process-local implementation with built-in
// change fanout. It backs tests and single-process development runs.
type MemoryTaskRepository struct {
	mu         sync.RWMutex
	tasks      map[string]map[uuid.UUID]models.Task // scope path -> id -> task
	subs       map[string]map[int]*memorySubscription
	next       int
	onMutation func(Scope)
}

// OnMutation installs a hook that fires after every successful write, before
// subscriber fanout. Mirrors GormTaskRepository so the two are wired the
// same way.
func (r *MemoryTaskRepository) OnMutation(fn func(Scope)) {
	r.onMutation = fn
}

func NewMemoryTaskRepository() *MemoryTaskRepository {
	return &MemoryTaskRepository{
		tasks: make(map[string]map[uuid.UUID]models.Task),
		subs:  make(map[string]map[int]*memorySubscription),
	}
}

func (r *MemoryTaskRepository) Create(ctx context.Context, scope Scope, task models.Task) (models.Task, error) {
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

	r.mu.Lock()
	if r.tasks[scope.Path()] == nil {
		r.tasks[scope.Path()] = make(map[uuid.UUID]models.Task)
	}
	r.tasks[scope.Path()][task.ID] = task
	r.mu.Unlock()

	r.notify(scope)
	return task, nil
}

func (r *MemoryTaskRepository) Get(ctx context.Context, scope Scope, id uuid.UUID) (models.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	task, ok := r.tasks[scope.Path()][id]
	if !ok {
		return models.Task{}, models.ErrNotFound
	}
	return task, nil
}

func (r *MemoryTaskRepository) List(ctx context.Context, scope Scope) ([]models.Task, error) {
	r.mu.RLock()
	scoped := r.tasks[scope.Path()]
	tasks := make([]models.Task, 0, len(scoped))
	for _, task := range scoped {
		tasks = append(tasks, task)
	}
	r.mu.RUnlock()
	return projection.SortByCreation(tasks), nil
}

func (r *MemoryTaskRepository) Update(ctx context.Context, scope Scope, id uuid.UUID, partial Partial) error {
	if partial.IsEmpty() {
		return nil
	}

	r.mu.Lock()
	task, ok := r.tasks[scope.Path()][id]
	if !ok {
		r.mu.Unlock()
		return models.ErrNotFound
	}
	partial.Apply(&task)
	task.UpdatedAt = time.Now()
	if err := task.Validate(); err != nil {
		r.mu.Unlock()
		return err
	}
	r.tasks[scope.Path()][id] = task
	r.mu.Unlock()

	r.notify(scope)
	return nil
}

func (r *MemoryTaskRepository) Delete(ctx context.Context, scope Scope, id uuid.UUID) error {
	r.mu.Lock()
	if _, ok := r.tasks[scope.Path()][id]; !ok {
		r.mu.Unlock()
		return models.ErrNotFound
	}
	delete(r.tasks[scope.Path()], id)
	r.mu.Unlock()

	r.notify(scope)
	return nil
}

func (r *MemoryTaskRepository) Subscribe(scope Scope, onChange func([]models.Task), onError func(error)) (Subscription, error) {
	sub := &memorySubscription{repo: r, path: scope.Path(), onChange: onChange}

	r.mu.Lock()
	if r.subs[scope.Path()] == nil {
		r.subs[scope.Path()] = make(map[int]*memorySubscription)
	}
	sub.id = r.next
	r.next++
	r.subs[scope.Path()][sub.id] = sub
	r.mu.Unlock()

	tasks, err := r.List(context.Background(), scope)
	if err != nil {
		sub.Unsubscribe()
		return nil, err
	}
	sub.deliver(tasks)
	return sub, nil
}

func (r *MemoryTaskRepository) notify(scope Scope) {
	if r.onMutation != nil {
		r.onMutation(scope)
	}
	tasks, err := r.List(context.Background(), scope)
	if err != nil {
		return
	}

	r.mu.RLock()
	subs := make([]*memorySubscription, 0, len(r.subs[scope.Path()]))
	for _, sub := range r.subs[scope.Path()] {
		subs = append(subs, sub)
	}
	r.mu.RUnlock()

	for _, sub := range subs {
		sub.deliver(tasks)
	}
}

type memorySubscription struct {
	repo     *MemoryTaskRepository
	path     string
	id       int
	onChange func([]models.Task)

	mu     sync.Mutex
	closed bool
}

// deliver serializes callbacks per subscription and drops anything that
// arrives after Unsubscribe.
func (s *memorySubscription) deliver(tasks []models.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.onChange(tasks)
}

func (s *memorySubscription) Unsubscribe() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.repo.mu.Lock()
	delete(s.repo.subs[s.path], s.id)
	s.repo.mu.Unlock()
}
