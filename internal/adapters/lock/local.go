package lock

import (
	"context"
	"fmt"
	"sync"

	"eventhub/internal/domain"
)

type localLocker struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

// NewLocalLocker returns an in-process ScheduleLocker. It only serializes
// requests handled by this process; run with Redis when scaling out.
func NewLocalLocker() domain.ScheduleLocker {
	return &localLocker{slots: make(map[string]chan struct{})}
}

func (l *localLocker) slot(scope string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.slots[scope]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[scope] = ch
	}
	return ch
}

func (l *localLocker) Acquire(ctx context.Context, scope string) (func(), error) {
	ch := l.slot(scope)
	select {
	case ch <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-ch }) }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("lock %s: %w", scope, ctx.Err())
	}
}
