package application

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// ErrDispatcherClosed is returned by Submit after Shutdown has been called.
var ErrDispatcherClosed = errors.New("dispatcher closed")

// Dispatcher runs review tasks in the background, detached from the request
// that triggered them, with at most a fixed number running at once. Tasks
// sharing a key run one at a time and wait for their key before taking a slot,
// so a backlog on one key never occupies slots other keys could use.
type Dispatcher struct {
	sem    *semaphore.Weighted
	keys   *keyedLock
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewDispatcher creates a Dispatcher that runs at most maxConcurrent tasks at once.
func NewDispatcher(maxConcurrent int) *Dispatcher {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		sem:    semaphore.NewWeighted(int64(maxConcurrent)),
		keys:   newKeyedLock(),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Submit schedules task and returns immediately. Tasks beyond the concurrency
// limit wait for a slot. The outcome is logged under name.
func (d *Dispatcher) Submit(name string, task func(ctx context.Context) error) error {
	return d.SubmitKeyed(name, "", task)
}

// SubmitKeyed is Submit for tasks that must not overlap with other tasks, or
// LockKey holders, of the same key. An empty key means no serialization.
func (d *Dispatcher) SubmitKeyed(name, key string, task func(ctx context.Context) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrDispatcherClosed
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		if key != "" {
			unlock, err := d.keys.Lock(d.ctx, key)
			if err != nil {
				slog.Warn("task dropped before start", "task", name, "key", key, "error", err)
				return
			}
			defer unlock()
		}

		if err := d.sem.Acquire(d.ctx, 1); err != nil {
			slog.Warn("task dropped before start", "task", name, "error", err)
			return
		}
		defer d.sem.Release(1)

		start := time.Now()
		if err := task(d.ctx); err != nil {
			slog.Error("task failed", "task", name, "duration", time.Since(start), "error", err)
			return
		}
		slog.Info("task completed", "task", name, "duration", time.Since(start))
	}()
	return nil
}

// LockKey blocks until no task or other holder owns key, or ctx is done. It
// lets callers run keyed work inline without a slot.
func (d *Dispatcher) LockKey(ctx context.Context, key string) (unlock func(), err error) {
	return d.keys.Lock(ctx, key)
}

// Shutdown stops accepting tasks and waits for running ones. When ctx expires
// first, the remaining tasks are canceled and ctx's error is returned.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-done
		return ctx.Err()
	}
}
