package store

import (
	"context"
	"sync"

	"task-board/internal/models"

	"github.com/redis/go-redis/v9"
)

// RedisChangeFeed broadcasts scope-changed notifications over redis pub/sub.
// The channel name is the scope path, so isolation between users falls out
// of the addressing scheme.
type RedisChangeFeed struct {
	client *redis.Client
}

func NewRedisChangeFeed(client *redis.Client) *RedisChangeFeed {
	return &RedisChangeFeed{client: client}
}

func (f *RedisChangeFeed) Publish(ctx context.Context, scope Scope) error {
	if err := f.client.Publish(ctx, scope.Path(), "changed").Err(); err != nil {
		return &models.PersistenceError{Op: "publish", Err: err}
	}
	return nil
}

func (f *RedisChangeFeed) Subscribe(scope Scope, notify func(), onError func(error)) (Subscription, error) {
	pubsub := f.client.Subscribe(context.Background(), scope.Path())
	if _, err := pubsub.Receive(context.Background()); err != nil {
		pubsub.Close()
		return nil, &models.PersistenceError{Op: "subscribe", Err: err}
	}

	sub := &redisSubscription{pubsub: pubsub}
	sub.wg.Add(1)
	go sub.run(notify, onError)
	return sub, nil
}

func (f *RedisChangeFeed) Close() error {
	return f.client.Close()
}

type redisSubscription struct {
	pubsub *redis.PubSub
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func (s *redisSubscription) run(notify func(), onError func(error)) {
	defer s.wg.Done()
	ch := s.pubsub.Channel()
	for range ch {
		// The closed check keeps a message already in flight from being
		// delivered after Unsubscribe has returned.
		s.mu.Lock()
		closed := s.closed
		s.mu.Unlock()
		if closed {
			return
		}
		notify()
	}
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if !closed && onError != nil {
		onError(&models.PersistenceError{Op: "subscribe", Err: errFeedClosed})
	}
}

// Unsubscribe tears the feed down and blocks until the delivery goroutine
// has exited. It is safe to call more than once.
func (s *redisSubscription) Unsubscribe() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.pubsub.Close()
	s.wg.Wait()
}
