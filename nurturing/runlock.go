package nurturing

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// RunLock guards against overlapping engine runs. The engine itself takes
// no cross-run locks; whoever invokes it must hold this lease for the
// duration of the run.
type RunLock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context)
}

// RedisRunLock is a lease on a Redis key, for deployments where more than
// one process may schedule runs.
type RedisRunLock struct {
	Client *redis.Client
	Key    string
	TTL    time.Duration

	token string
}

func NewRedisRunLock(client *redis.Client, ttl time.Duration) *RedisRunLock {
	return &RedisRunLock{
		Client: client,
		Key:    "leadflow:nurture:run-lock",
		TTL:    ttl,
	}
}

func (rl *RedisRunLock) Acquire(ctx context.Context) (bool, error) {
	token := uuid.New().String()
	ok, err := rl.Client.SetNX(ctx, rl.Key, token, rl.TTL).Result()
	if err != nil {
		return false, err
	}
	if ok {
		rl.token = token
	}
	return ok, nil
}

// Release deletes the key only if this holder still owns it; an expired
// lease taken over by another holder is left alone.
func (rl *RedisRunLock) Release(ctx context.Context) {
	current, err := rl.Client.Get(ctx, rl.Key).Result()
	if err != nil || current != rl.token {
		return
	}
	rl.Client.Del(ctx, rl.Key)
}

// LocalRunLock is the fallback when Redis is disabled: it only protects
// against overlap inside a single process, matching the single-scheduler
// deployment assumption.
type LocalRunLock struct {
	mu sync.Mutex
}

func NewLocalRunLock() *LocalRunLock {
	return &LocalRunLock{}
}

func (ll *LocalRunLock) Acquire(_ context.Context) (bool, error) {
	return ll.mu.TryLock(), nil
}

func (ll *LocalRunLock) Release(_ context.Context) {
	ll.mu.Unlock()
}
