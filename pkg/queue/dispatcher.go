package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Dispatcher pulls eligible jobs from storage and feeds them to registered
// processors. Each queue gets its own pull loop with an independently
// adjustable concurrency cap, so scaling one queue never disturbs another.
//
// A handler error marks the job failed and stops there: the dispatcher never
// retries on its own. Recovery is an explicit operator action through
// Storage.RetryFailed.
type Dispatcher struct {
	storage  Storage
	workerID uuid.UUID
	logger   *slog.Logger

	pullInterval  time.Duration
	lockTimeout   time.Duration
	shutdownGrace time.Duration

	mu    sync.RWMutex
	procs map[string]*processor

	ctx     context.Context
	cancel  context.CancelFunc
	jobCtx  context.Context    // handler context, canceled only by forced shutdown
	jobStop context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// processor tracks the dispatch state and real throughput counters for one
// queue. Counters are monotonic for the lifetime of the process.
type processor struct {
	queue   string
	handler Handler

	concurrency  atomic.Int64
	inflight     atomic.Int64
	paused       atomic.Bool
	processed    atomic.Int64
	failed       atomic.Int64
	lastActivity atomic.Int64 // unix nanoseconds, 0 until first job
}

// ProcessorStats is a point-in-time copy of one queue's dispatch state.
type ProcessorStats struct {
	Queue        string
	Concurrency  int
	InFlight     int
	Processed    int64
	Failed       int64
	Paused       bool
	LastActivity time.Time
}

// NewDispatcher creates a dispatcher over the given storage.
func NewDispatcher(storage Storage, opts ...DispatcherOption) (*Dispatcher, error) {
	if storage == nil {
		return nil, ErrStorageNil
	}

	options := &dispatcherOptions{
		pullInterval:  time.Second,
		lockTimeout:   30 * time.Minute,
		shutdownGrace: 30 * time.Second,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	return &Dispatcher{
		storage:       storage,
		workerID:      uuid.New(),
		logger:        options.logger,
		pullInterval:  options.pullInterval,
		lockTimeout:   options.lockTimeout,
		shutdownGrace: options.shutdownGrace,
		procs:         make(map[string]*processor),
	}, nil
}

// RegisterProcessor installs a handler for the named queue with an initial
// concurrency cap. At most one processor per queue; registration must happen
// before Start.
func (d *Dispatcher) RegisterProcessor(queue string, handler Handler, concurrency int) error {
	if queue == "" {
		return ErrQueueNameEmpty
	}
	if handler == nil {
		return ErrHandlerNil
	}
	if concurrency < 1 {
		return ErrInvalidConcurrency
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.started {
		return ErrDispatcherStarted
	}
	if _, exists := d.procs[queue]; exists {
		return fmt.Errorf("%w: %s", ErrProcessorRegistered, queue)
	}

	p := &processor{queue: queue, handler: handler}
	p.concurrency.Store(int64(concurrency))
	d.procs[queue] = p
	return nil
}

// Start launches one pull loop per registered queue.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.started {
		return ErrDispatcherStarted
	}
	if len(d.procs) == 0 {
		return ErrProcessorNotFound
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	// Handlers outlive the pull loops: canceling Start's context stops
	// claiming, but a started job runs to completion or explicit failure.
	// Only Close cancels this context, and only after the grace period.
	d.jobCtx, d.jobStop = context.WithCancel(context.Background())
	d.started = true

	for _, p := range d.procs {
		d.wg.Add(1)
		go d.runQueue(p)
	}

	d.logger.Info("dispatcher started",
		slog.String("worker_id", d.workerID.String()),
		slog.Int("queues", len(d.procs)))
	return nil
}

// Close stops all pull loops and waits for in-flight handlers up to the
// shutdown grace period, then forces shutdown.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if !d.started {
		d.mu.Unlock()
		return ErrDispatcherStopped
	}
	cancel := d.cancel
	d.started = false
	d.mu.Unlock()

	cancel()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.jobStop()
		d.logger.Info("dispatcher stopped", slog.String("worker_id", d.workerID.String()))
		return nil
	case <-time.After(d.shutdownGrace):
		d.jobStop()
		d.logger.Warn("dispatcher shutdown grace exceeded, canceling in-flight jobs",
			slog.String("worker_id", d.workerID.String()),
			slog.Duration("grace", d.shutdownGrace))
		return fmt.Errorf("dispatcher close: %d jobs still in flight after %s", d.InFlight(), d.shutdownGrace)
	}
}

// Pause stops dispatch for the named queue without losing pending jobs.
func (d *Dispatcher) Pause(queue string) error {
	p, err := d.proc(queue)
	if err != nil {
		return err
	}
	p.paused.Store(true)
	d.logger.Info("queue paused", slog.String("queue", queue))
	return nil
}

// Resume restarts dispatch for a paused queue. No-op if not paused.
func (d *Dispatcher) Resume(queue string) error {
	p, err := d.proc(queue)
	if err != nil {
		return err
	}
	p.paused.Store(false)
	d.logger.Info("queue resumed", slog.String("queue", queue))
	return nil
}

// Concurrency returns the current concurrency cap for the named queue.
func (d *Dispatcher) Concurrency(queue string) (int, error) {
	p, err := d.proc(queue)
	if err != nil {
		return 0, err
	}
	return int(p.concurrency.Load()), nil
}

// SetConcurrency adjusts the concurrency cap for the named queue at runtime.
// In-flight handlers are unaffected; the new cap applies from the next pull.
func (d *Dispatcher) SetConcurrency(queue string, n int) error {
	if n < 1 {
		return ErrInvalidConcurrency
	}
	p, err := d.proc(queue)
	if err != nil {
		return err
	}
	p.concurrency.Store(int64(n))
	d.logger.Info("queue concurrency changed",
		slog.String("queue", queue),
		slog.Int("concurrency", n))
	return nil
}

// Stats returns a copy of per-queue dispatch state for all registered queues.
func (d *Dispatcher) Stats() map[string]ProcessorStats {
	d.mu.RLock()
	defer d.mu.RUnlock()

	stats := make(map[string]ProcessorStats, len(d.procs))
	for name, p := range d.procs {
		s := ProcessorStats{
			Queue:       name,
			Concurrency: int(p.concurrency.Load()),
			InFlight:    int(p.inflight.Load()),
			Processed:   p.processed.Load(),
			Failed:      p.failed.Load(),
			Paused:      p.paused.Load(),
		}
		if ns := p.lastActivity.Load(); ns > 0 {
			s.LastActivity = time.Unix(0, ns)
		}
		stats[name] = s
	}
	return stats
}

// InFlight returns the total number of handler invocations currently running.
func (d *Dispatcher) InFlight() int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	total := 0
	for _, p := range d.procs {
		total += int(p.inflight.Load())
	}
	return total
}

// Queues returns the names of all registered queues.
func (d *Dispatcher) Queues() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	names := make([]string, 0, len(d.procs))
	for name := range d.procs {
		names = append(names, name)
	}
	return names
}

func (d *Dispatcher) proc(queue string) (*processor, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	p, ok := d.procs[queue]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProcessorNotFound, queue)
	}
	return p, nil
}

// runQueue is the pull loop for one queue. Each tick it claims jobs until
// the concurrency cap is reached or the queue runs dry.
func (d *Dispatcher) runQueue(p *processor) {
	defer d.wg.Done()

	ticker := time.NewTicker(d.pullInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			if p.paused.Load() {
				continue
			}
			d.fill(p)
		}
	}
}

// fill claims jobs up to the current concurrency cap.
func (d *Dispatcher) fill(p *processor) {
	for p.inflight.Load() < p.concurrency.Load() {
		job, err := d.storage.ClaimJob(d.ctx, d.workerID, p.queue, d.lockTimeout)
		if err != nil {
			if !errors.Is(err, ErrNoJobToClaim) && d.ctx.Err() == nil {
				d.logger.Error("failed to claim job",
					slog.String("queue", p.queue),
					slog.String("error", err.Error()))
			}
			return
		}

		p.inflight.Add(1)
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			defer p.inflight.Add(-1)
			d.process(p, job)
		}()
	}
}

// process runs one handler invocation and reports the outcome to storage.
func (d *Dispatcher) process(p *processor, job *Job) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("handler panicked",
				slog.String("queue", p.queue),
				slog.String("job_id", job.ID.String()),
				slog.Any("panic", r))
			d.finish(p, job, fmt.Errorf("panic in handler: %v", r), start)
		}
	}()

	// The claim is renewed for as long as the handler runs; the lock window
	// bounds crash detection, not handler execution. The context carries no
	// deadline: a started job is interrupted only by forced shutdown.
	stopRenewal := d.keepLockAlive(p.queue, job.ID)
	defer stopRenewal()

	err := p.handler.Handle(d.jobCtx, job.Payload)
	d.finish(p, job, err, start)
}

// keepLockAlive renews the job's claim every half lock window until the
// returned stop function is called. Renewal stops early if storage reports
// the lock lost; the handler's eventual CompleteJob or FailJob surfaces the
// conflict.
func (d *Dispatcher) keepLockAlive(queue string, jobID uuid.UUID) func() {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(d.lockTimeout / 2)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := d.storage.ExtendLock(context.Background(), d.workerID, jobID, d.lockTimeout); err != nil {
					d.logger.Error("failed to extend job lock",
						slog.String("queue", queue),
						slog.String("job_id", jobID.String()),
						slog.String("error", err.Error()))
					return
				}
			}
		}
	}()
	return func() { close(done) }
}

func (d *Dispatcher) finish(p *processor, job *Job, handlerErr error, start time.Time) {
	p.lastActivity.Store(time.Now().UnixNano())
	duration := time.Since(start)

	if handlerErr != nil {
		p.failed.Add(1)
		d.logger.Error("job failed",
			slog.String("queue", p.queue),
			slog.String("job_id", job.ID.String()),
			slog.Duration("duration", duration),
			slog.String("error", handlerErr.Error()))

		if err := d.storage.FailJob(context.Background(), job.ID, handlerErr.Error()); err != nil {
			d.logger.Error("failed to record job failure",
				slog.String("job_id", job.ID.String()),
				slog.String("error", err.Error()))
		}
		return
	}

	p.processed.Add(1)
	d.logger.Info("job completed",
		slog.String("queue", p.queue),
		slog.String("job_id", job.ID.String()),
		slog.Duration("duration", duration))

	if err := d.storage.CompleteJob(context.Background(), job.ID); err != nil {
		d.logger.Error("failed to record job completion",
			slog.String("job_id", job.ID.String()),
			slog.String("error", err.Error()))
	}
}
