package poller

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"retroswap/internal/metrics"
)

// Task is a periodic job.
type Task struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Poller runs a task on a fixed interval. A tick that fires while the
// previous run is still in flight is skipped.
type Poller struct {
	task     Task
	logger   *zap.Logger
	metrics  *metrics.Metrics
	inFlight atomic.Bool
	wg       sync.WaitGroup
}

// New creates a poller for task.
func New(task Task, m *metrics.Metrics, logger *zap.Logger) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{task: task, logger: logger.With(zap.String("task", task.Name)), metrics: m}
}

// Start runs the task immediately and then on every tick until ctx is
// done. It blocks until the last run has returned.
func (p *Poller) Start(ctx context.Context) {
	ticker := time.NewTicker(p.task.Interval)
	defer ticker.Stop()
	defer p.wg.Wait()

	p.Trigger(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Trigger(ctx)
		}
	}
}

// Trigger starts a run unless one is in flight and reports whether it did.
func (p *Poller) Trigger(ctx context.Context) bool {
	if !p.inFlight.CompareAndSwap(false, true) {
		p.logger.Debug("previous run still in flight, skipping tick")
		p.metrics.PollSkip(p.task.Name)
		return false
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.inFlight.Store(false)

		err := p.task.Run(ctx)
		p.metrics.PollRun(p.task.Name, err)
		if err != nil && ctx.Err() == nil {
			p.logger.Warn("poll run failed", zap.Error(err))
		}
	}()
	return true
}

// Wait blocks until any in-flight run has finished.
func (p *Poller) Wait() {
	p.wg.Wait()
}
