package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"task-board/internal/dates"
	"task-board/internal/models"
	"task-board/internal/store"

	"github.com/gofrs/uuid"
)

// Sweeper hosts the domain job handlers. The urgency sweep walks every
// user's tasks once per interval and recomputes derived urgency, so a task
// whose deadline has crept inside the three-day window flips to urgent even
// if nobody has touched it. Manual overrides are skipped.
type Sweeper struct {
	db    *gorm.DB
	repo  store.TaskRepository
	appID string
	now   func() time.Time
}

func NewSweeper(db *gorm.DB, repo store.TaskRepository, appID string) *Sweeper {
	return &Sweeper{db: db, repo: repo, appID: appID, now: time.Now}
}

func (s *Sweeper) HandleUrgencySweep(ctx context.Context, _ *Job) error {
	var authorIDs []uuid.UUID
	err := s.db.WithContext(ctx).
		Model(&models.Task{}).
		Distinct("author_id").
		Where("deadline IS NOT NULL AND has_manually_set_urgency = ?", false).
		Pluck("author_id", &authorIDs).Error
	if err != nil {
		return fmt.Errorf("failed to list authors for sweep: %w", err)
	}

	now := s.now()
	var swept int

	for _, authorID := range authorIDs {
		scope := store.Scope{AppID: s.appID, UserID: authorID}

		tasks, err := s.repo.List(ctx, scope)
		if err != nil {
			return fmt.Errorf("failed to list tasks for %s: %w", scope.Path(), err)
		}

		for _, task := range tasks {
			if task.Deadline == nil || task.HasManuallySetUrgency {
				continue
			}
			derived := dates.DeriveUrgency(task.Deadline, now)
			if derived == task.IsUrgent {
				continue
			}

			urgent := derived
			partial := store.Partial{IsUrgent: &urgent}
			if err := s.repo.Update(ctx, scope, task.ID, partial); err != nil {
				return fmt.Errorf("failed to sweep task %s: %w", task.ID, err)
			}
			swept++
		}
	}

	if swept > 0 {
		log.Printf("urgency sweep: updated %d task(s)", swept)
	}
	return nil
}

// HandleDeadlineReminder logs a reminder for one task. Payload carries
// user_id and task_id as strings.
func (s *Sweeper) HandleDeadlineReminder(ctx context.Context, job *Job) error {
	userRaw, _ := job.Payload["user_id"].(string)
	taskRaw, _ := job.Payload["task_id"].(string)

	userID, err := uuid.FromString(userRaw)
	if err != nil {
		return fmt.Errorf("invalid user_id in reminder payload: %w", err)
	}
	taskID, err := uuid.FromString(taskRaw)
	if err != nil {
		return fmt.Errorf("invalid task_id in reminder payload: %w", err)
	}

	scope := store.Scope{AppID: s.appID, UserID: userID}
	task, err := s.repo.Get(ctx, scope, taskID)
	if err != nil {
		// The task may have been completed or deleted since the reminder
		// was scheduled; that is not a failure.
		if errors.Is(err, models.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to load task for reminder: %w", err)
	}

	if task.Status == models.StatusDone || task.Deadline == nil {
		return nil
	}

	log.Printf("reminder: task %q for user %s is due %s",
		task.Title, userID, dates.FormatDeadlineDisplay(task.Deadline, s.now()))
	return nil
}

// ScheduleReminder books a deadline reminder for processing at remindAt.
// Past times are fine; the worker runs overdue jobs immediately.
func (q *JobQueue) ScheduleReminder(scope store.Scope, taskID uuid.UUID, remindAt time.Time) error {
	payload := map[string]interface{}{
		"user_id": scope.UserID.String(),
		"task_id": taskID.String(),
	}
	return q.EnqueueAt("default", JobTypeDeadlineReminder, payload, remindAt)
}

// SweepScheduler enqueues an urgency sweep on a fixed interval.
type SweepScheduler struct {
	queue    *JobQueue
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewSweepScheduler(queue *JobQueue, interval time.Duration) *SweepScheduler {
	return &SweepScheduler{queue: queue, interval: interval}
}

func (s *SweepScheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.queue.Enqueue("default", JobTypeUrgencySweep, nil); err != nil {
					log.Printf("failed to enqueue urgency sweep: %v", err)
				}
			}
		}
	}()
}

func (s *SweepScheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
}
