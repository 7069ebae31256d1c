package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/selivandex/market-reporter/pkg/logger"
)

// Worker interface that background workers should implement
type Worker interface {
	// Name returns worker name for logging
	Name() string
	// Run executes one iteration of work
	Run(ctx context.Context) error
}

// CronWorker runs a Worker on a cron schedule. Overlapping ticks are skipped.
type CronWorker struct {
	worker     Worker
	spec       string
	cron       *cron.Cron
	job        cron.Job
	entry      cron.EntryID
	runOnStart bool
	wg         sync.WaitGroup
	log        cron.Logger
	name       string
}

// NewCronWorker validates spec and prepares the schedule in loc
func NewCronWorker(worker Worker, spec string, loc *time.Location, runOnStart bool) (*CronWorker, error) {
	if loc == nil {
		loc = time.UTC
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}

	cl := cronLogger{log: logger.Named("cron").Sugar().With("worker", worker.Name())}
	return &CronWorker{
		worker:     worker,
		spec:       spec,
		cron:       cron.New(cron.WithLocation(loc), cron.WithLogger(cl)),
		runOnStart: runOnStart,
		log:        cl,
		name:       worker.Name(),
	}, nil
}

// Start registers the job and starts the scheduler
func (cw *CronWorker) Start(ctx context.Context) error {
	cw.job = cron.NewChain(
		cron.Recover(cw.log),
		cron.SkipIfStillRunning(cw.log),
	).Then(cron.FuncJob(func() { cw.runOnce(ctx) }))

	id, err := cw.cron.AddJob(cw.spec, cw.job)
	if err != nil {
		return fmt.Errorf("failed to schedule %s: %w", cw.name, err)
	}
	cw.entry = id
	cw.cron.Start()

	logger.Info("🚀 Worker scheduled",
		zap.String("worker", cw.name),
		zap.String("spec", cw.spec),
		zap.Time("next_run", cw.NextRun()),
	)

	if cw.runOnStart {
		cw.wg.Add(1)
		go func() {
			defer cw.wg.Done()
			cw.job.Run()
		}()
	}
	return nil
}

// NextRun returns the next scheduled activation (zero before Start)
func (cw *CronWorker) NextRun() time.Time {
	if cw.entry == 0 {
		return time.Time{}
	}
	return cw.cron.Entry(cw.entry).Next
}

// Stop stops scheduling and waits for a running iteration
func (cw *CronWorker) Stop(timeout time.Duration) {
	stopped := cw.cron.Stop()

	done := make(chan struct{})
	go func() {
		<-stopped.Done()
		cw.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("✅ Worker stopped gracefully",
			zap.String("worker", cw.name),
		)
	case <-time.After(timeout):
		logger.Warn("⚠️ Worker stop timeout",
			zap.String("worker", cw.name),
		)
	}
}

func (cw *CronWorker) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	start := time.Now()
	if err := cw.worker.Run(ctx); err != nil {
		logger.Error("worker execution failed",
			zap.String("worker", cw.name),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		// Continue despite error - don't crash scheduler
		return
	}

	logger.Debug("worker iteration finished",
		zap.String("worker", cw.name),
		zap.Duration("duration", time.Since(start)),
	)
}

// cronLogger adapts zap to cron.Logger
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}

// WorkerGroup manages multiple scheduled workers with graceful shutdown
type WorkerGroup struct {
	workers []*CronWorker
	loc     *time.Location
	ctx     context.Context
	cancel  context.CancelFunc
	mu      sync.Mutex
}

// NewWorkerGroup creates new worker group scheduling in loc
func NewWorkerGroup(ctx context.Context, loc *time.Location) *WorkerGroup {
	ctx, cancel := context.WithCancel(ctx)
	return &WorkerGroup{
		workers: make([]*CronWorker, 0),
		loc:     loc,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Add adds worker to group
func (wg *WorkerGroup) Add(worker Worker, spec string, runOnStart bool) (*CronWorker, error) {
	wg.mu.Lock()
	defer wg.mu.Unlock()

	cw, err := NewCronWorker(worker, spec, wg.loc, runOnStart)
	if err != nil {
		return nil, err
	}
	wg.workers = append(wg.workers, cw)
	return cw, nil
}

// Start starts all workers
func (wg *WorkerGroup) Start() error {
	wg.mu.Lock()
	defer wg.mu.Unlock()

	for _, w := range wg.workers {
		if err := w.Start(wg.ctx); err != nil {
			return err
		}
	}

	logger.Info("🚀 Worker group started",
		zap.Int("workers", len(wg.workers)),
	)
	return nil
}

// Stop stops all workers gracefully
func (wg *WorkerGroup) Stop(timeout time.Duration) {
	logger.Info("🛑 Stopping worker group...",
		zap.Int("workers", len(wg.workers)),
	)

	wg.mu.Lock()
	defer wg.mu.Unlock()

	// Stop scheduling first so a running iteration can finish
	for _, w := range wg.workers {
		w.Stop(timeout)
	}
	wg.cancel()

	logger.Info("✅ Worker group stopped")
}
