package scheduler

import (
	"context"
	"time"

	"clawrelay/internal/logger"
)

// Interval runs a task on a fixed delay. The delay is measured from the end
// of one run to the start of the next, so a slow upstream naturally throttles
// the loop. A panic inside the task is recovered and logged; the loop keeps
// going.
type Interval struct {
	Name           string
	Every          time.Duration
	RunImmediately bool
}

// Start blocks until ctx is cancelled. A task in flight when ctx is cancelled
// runs to completion; the loop then exits without another tick.
func (s Interval) Start(ctx context.Context, task func(ctx context.Context)) {
	if task == nil {
		logger.Warnf("scheduler %s: nil task, exit", s.Name)
		return
	}
	if s.Every <= 0 {
		logger.Warnf("scheduler %s: invalid interval=%s, exit", s.Name, s.Every)
		return
	}
	logger.Infof("scheduler %s: started every=%s run_immediately=%v", s.Name, s.Every, s.RunImmediately)

	if s.RunImmediately {
		s.runOnce(ctx, task)
	}
	timer := time.NewTimer(s.Every)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Infof("scheduler %s: context done, exit", s.Name)
			return
		case <-timer.C:
		}
		s.runOnce(ctx, task)
		timer.Reset(s.Every)
	}
}

func (s Interval) runOnce(ctx context.Context, task func(ctx context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("scheduler %s: task panic recovered: %v", s.Name, r)
		}
	}()
	task(ctx)
}
