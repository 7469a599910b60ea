// Package lock serializes deployments that target the same resource group.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrLocked is returned when another deployment holds the lock
var ErrLocked = errors.New("another deployment is in progress")

// Lease is a held lock.
type Lease interface {
	Release(ctx context.Context) error
}

// Locker hands out at most one lease per key. TryLock never waits.
type Locker interface {
	TryLock(ctx context.Context, key string) (Lease, error)
}

// RedisOptions configures the redis backend
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// Open returns the locker for the named backend: "none", "memory" or "redis".
func Open(backend string, redisOpts RedisOptions) (Locker, error) {
	switch backend {
	case "", "none":
		return Noop{}, nil
	case "memory":
		return NewMemory(), nil
	case "redis":
		return NewRedis(redisOpts)
	default:
		return nil, fmt.Errorf("unknown lock backend: %s", backend)
	}
}

// Noop lets every caller through; concurrent deployments race at the provider.
type Noop struct{}

func (Noop) TryLock(context.Context, string) (Lease, error) {
	return noopLease{}, nil
}

type noopLease struct{}

func (noopLease) Release(context.Context) error { return nil }

// Memory is an in-process locker.
type Memory struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewMemory creates an empty in-process locker
func NewMemory() *Memory {
	return &Memory{held: make(map[string]struct{})}
}

func (m *Memory) TryLock(_ context.Context, key string) (Lease, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.held[key]; ok {
		return nil, fmt.Errorf("%w for %s", ErrLocked, key)
	}
	m.held[key] = struct{}{}
	return &memoryLease{m: m, key: key}, nil
}

type memoryLease struct {
	m    *Memory
	key  string
	once sync.Once
}

func (l *memoryLease) Release(context.Context) error {
	l.once.Do(func() {
		l.m.mu.Lock()
		delete(l.m.held, l.key)
		l.m.mu.Unlock()
	})
	return nil
}
