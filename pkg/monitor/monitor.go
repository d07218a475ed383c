package monitor

import (
	"context"
	"log/slog"
	"maps"
	"runtime"
	"sync"
	"time"

	"github.com/postpilot/engine/pkg/queue"
)

// Health classification thresholds.
const (
	criticalFailureRate = 0.5
	warningFailureRate  = 0.2
	warningBacklog      = 100
	systemAvgFailure    = 0.1
)

// Sampler is the read-side of the queue storage the monitor samples.
// Implemented by queue.Storage.
type Sampler interface {
	Counts(ctx context.Context, queue string) (queue.Counts, error)
	WindowStats(ctx context.Context, queue string, window time.Duration) (queue.WindowStats, error)
}

// WorkerSource reports live per-queue dispatch state. Implemented by
// queue.Dispatcher.
type WorkerSource interface {
	Stats() map[string]queue.ProcessorStats
}

// Monitor periodically samples queue backlog and worker state and derives
// health classifications. It owns its metric maps exclusively: they are
// mutated only by the sampling loop, and all reads return copies.
type Monitor struct {
	sampler Sampler
	workers WorkerSource
	queues  []string

	interval time.Duration
	window   time.Duration
	logger   *slog.Logger

	mu            sync.RWMutex
	queueMetrics  map[string]QueueMetrics
	workerMetrics map[string]WorkerMetrics

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a monitor for the named queues.
func New(sampler Sampler, workers WorkerSource, queues []string, opts ...Option) (*Monitor, error) {
	if sampler == nil {
		return nil, ErrSamplerNil
	}
	if len(queues) == 0 {
		return nil, ErrNoQueues
	}

	options := &monitorOptions{
		interval: 30 * time.Second,
		window:   time.Hour,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	return &Monitor{
		sampler:       sampler,
		workers:       workers,
		queues:        queues,
		interval:      options.interval,
		window:        options.window,
		logger:        options.logger,
		queueMetrics:  make(map[string]QueueMetrics),
		workerMetrics: make(map[string]WorkerMetrics),
	}, nil
}

// Start launches the periodic sampling loop. Idempotent: calling Start while
// already running is a no-op, so there is never more than one active timer.
func (m *Monitor) Start(ctx context.Context) {
	m.runMu.Lock()
	defer m.runMu.Unlock()

	if m.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})

	// Prime metrics so reads before the first tick see real data.
	m.sample(ctx)

	go m.run(ctx)

	m.logger.Info("queue monitoring started",
		slog.Duration("interval", m.interval),
		slog.Int("queues", len(m.queues)))
}

// Stop cancels the sampling loop. Safe to call when not running.
func (m *Monitor) Stop() {
	m.runMu.Lock()
	defer m.runMu.Unlock()

	if m.cancel == nil {
		return
	}
	m.cancel()
	<-m.done
	m.cancel = nil

	m.logger.Info("queue monitoring stopped")
}

func (m *Monitor) run(ctx context.Context) {
	defer close(m.done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sample(ctx)
		}
	}
}

// sample performs one full monitoring cycle. A sampling error on one queue
// degrades that queue to critical and the cycle continues with the rest.
func (m *Monitor) sample(ctx context.Context) {
	now := time.Now()
	queueMetrics := make(map[string]QueueMetrics, len(m.queues))

	for _, name := range m.queues {
		qm, err := m.sampleQueue(ctx, name, now)
		if err != nil {
			m.logger.Error("queue sampling failed",
				slog.String("queue", name),
				slog.String("error", err.Error()))
			qm = QueueMetrics{
				Queue:       name,
				FailureRate: 1.0,
				Health:      HealthCritical,
				SampledAt:   now,
			}
		}
		queueMetrics[name] = qm
	}

	workerMetrics := m.sampleWorkers(now)

	m.mu.Lock()
	m.queueMetrics = queueMetrics
	m.workerMetrics = workerMetrics
	m.mu.Unlock()
}

func (m *Monitor) sampleQueue(ctx context.Context, name string, now time.Time) (QueueMetrics, error) {
	counts, err := m.sampler.Counts(ctx, name)
	if err != nil {
		return QueueMetrics{}, err
	}
	stats, err := m.sampler.WindowStats(ctx, name, m.window)
	if err != nil {
		return QueueMetrics{}, err
	}

	qm := QueueMetrics{
		Queue:             name,
		Pending:           counts.Pending,
		Active:            counts.Active,
		Completed:         counts.Completed,
		Failed:            counts.Failed,
		Delayed:           counts.Delayed,
		FailureRate:       stats.FailureRate,
		Throughput:        float64(stats.TotalJobs) / m.window.Hours(),
		AvgProcessingTime: stats.AvgProcessing,
		LastProcessed:     stats.LastProcessed,
		SampledAt:         now,
	}
	qm.Health = classify(qm)
	return qm, nil
}

// classify applies the health rules to one queue's metrics.
func classify(qm QueueMetrics) HealthStatus {
	switch {
	case qm.FailureRate > criticalFailureRate:
		return HealthCritical
	case qm.FailureRate > warningFailureRate:
		return HealthWarning
	case qm.Pending > warningBacklog:
		return HealthWarning
	case qm.Active == 0 && qm.Pending > 0:
		// Backlog with nothing in flight means dispatch has stalled.
		return HealthWarning
	default:
		return HealthHealthy
	}
}

// sampleWorkers refreshes per-worker metrics from the dispatcher's live
// counters, accumulating uptime by one interval per cycle.
func (m *Monitor) sampleWorkers(now time.Time) map[string]WorkerMetrics {
	metrics := make(map[string]WorkerMetrics)
	if m.workers == nil {
		return metrics
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	m.mu.RLock()
	previous := m.workerMetrics
	m.mu.RUnlock()

	for name, stats := range m.workers.Stats() {
		wm := WorkerMetrics{
			Name:        name,
			Status:      WorkerRunning,
			Concurrency: stats.Concurrency,
			Processed:   stats.Processed,
			Failed:      stats.Failed,
			MemoryUsage: mem.Alloc,
		}
		if stats.Paused {
			wm.Status = WorkerPaused
		}
		if !stats.LastActivity.IsZero() {
			la := stats.LastActivity
			wm.LastActivity = &la
		}
		if prev, ok := previous[name]; ok {
			wm.Uptime = prev.Uptime + m.interval
		}
		metrics[name] = wm
	}
	return metrics
}

// QueueMetrics returns a copy of the latest per-queue metrics.
func (m *Monitor) QueueMetrics() map[string]QueueMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.queueMetrics)
}

// WorkerMetrics returns a copy of the latest per-worker metrics.
func (m *Monitor) WorkerMetrics() map[string]WorkerMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.workerMetrics)
}

// QueueHealth returns the current classification for one queue. Unknown
// queues report critical: a queue the monitor cannot see cannot be trusted.
func (m *Monitor) QueueHealth(queue string) HealthStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if qm, ok := m.queueMetrics[queue]; ok {
		return qm.Health
	}
	return HealthCritical
}

// SystemHealth aggregates queue and worker metrics into one overall status:
// critical if any queue is critical or any worker is not running, warning if
// any queue is warning or the average failure rate exceeds the system
// threshold, healthy otherwise.
func (m *Monitor) SystemHealth() SystemHealth {
	m.mu.RLock()
	defer m.mu.RUnlock()

	health := SystemHealth{
		Overall:   HealthHealthy,
		Queues:    maps.Clone(m.queueMetrics),
		Workers:   maps.Clone(m.workerMetrics),
		SampledAt: time.Now(),
	}

	var rateSum float64
	anyWarning := false
	for _, qm := range m.queueMetrics {
		rateSum += qm.FailureRate
		switch qm.Health {
		case HealthCritical:
			health.Overall = HealthCritical
			return health
		case HealthWarning:
			anyWarning = true
		}
	}

	for _, wm := range m.workerMetrics {
		if wm.Status != WorkerRunning {
			health.Overall = HealthCritical
			return health
		}
	}

	if anyWarning {
		health.Overall = HealthWarning
		return health
	}
	if n := len(m.queueMetrics); n > 0 && rateSum/float64(n) > systemAvgFailure {
		health.Overall = HealthWarning
	}
	return health
}
