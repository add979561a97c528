package services

import (
	"context"
	"fmt"
	"sync"

	"design-lab-backend/internal/logger"

	"golang.org/x/sync/semaphore"
)

// Scheduler runs detached work. The caller never joins the task; results are
// written to state the task owns.
type Scheduler interface {
	Go(task func(ctx context.Context))
}

// TaskScheduler spawns one goroutine per task. With a positive limit, at most
// limit tasks execute at once and the rest wait for a slot.
type TaskScheduler struct {
	ctx context.Context
	log *logger.Logger
	sem *semaphore.Weighted
	wg  sync.WaitGroup
}

func NewTaskScheduler(ctx context.Context, limit int64, log *logger.Logger) *TaskScheduler {
	s := &TaskScheduler{
		ctx: ctx,
		log: log.With("component", "TaskScheduler"),
	}
	if limit > 0 {
		s.sem = semaphore.NewWeighted(limit)
	}
	return s
}

func (s *TaskScheduler) Go(task func(ctx context.Context)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("detached task panicked", "panic", fmt.Sprint(r))
			}
		}()

		if s.sem != nil {
			if err := s.sem.Acquire(s.ctx, 1); err != nil {
				s.log.Warn("detached task dropped before start", "error", err)
				return
			}
			defer s.sem.Release(1)
		}
		task(s.ctx)
	}()
}

// Wait blocks until every spawned task returned or ctx is done.
func (s *TaskScheduler) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
