package scaler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/postpilot/engine/pkg/monitor"
	"github.com/postpilot/engine/pkg/queue"
)

// BacklogSource is the read-side of queue storage the scaler observes.
// Implemented by queue.Storage.
type BacklogSource interface {
	Counts(ctx context.Context, queue string) (queue.Counts, error)
}

// ConcurrencyAdjuster applies concurrency changes. Implemented by
// queue.Dispatcher.
type ConcurrencyAdjuster interface {
	Concurrency(queue string) (int, error)
	SetConcurrency(queue string, n int) error
}

// HealthSource reports the current health classification of a queue.
// Implemented by monitor.Monitor.
type HealthSource interface {
	QueueHealth(queue string) monitor.HealthStatus
}

// scalingState is the per-queue control variable. It is mutated only inside
// the scaling check while the inFlight flag is held, so two racing cycles
// can never double-adjust the same queue.
type scalingState struct {
	current    int
	target     int
	pending    int
	lastAction time.Time
	idleSince  time.Time
	inFlight   atomic.Bool
}

// Scaler is an additive increment/decrement control loop over per-queue
// worker concurrency. It is deliberately conservative: one step per cycle,
// bounded by policy, with a cooldown between actions so it never thrashes
// against destination rate limits.
type Scaler struct {
	backlog  BacklogSource
	adjuster ConcurrencyAdjuster
	health   HealthSource

	defaults  Policy
	overrides map[string]Policy
	interval  time.Duration
	logger    *slog.Logger

	mu     sync.Mutex
	states map[string]*scalingState

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a scaler over the given queue names.
func New(backlog BacklogSource, adjuster ConcurrencyAdjuster, health HealthSource, queues []string, opts ...Option) (*Scaler, error) {
	if backlog == nil || adjuster == nil {
		return nil, ErrDependencyNil
	}
	if len(queues) == 0 {
		return nil, ErrNoQueues
	}

	options := &scalerOptions{
		interval: time.Minute,
		defaults: Policy{
			MinConcurrency:   1,
			MaxConcurrency:   5,
			ScaleUpThreshold: 10,
			ScaleDownIdle:    2 * time.Minute,
			Cooldown:         2 * time.Minute,
		},
		overrides: make(map[string]Policy),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	s := &Scaler{
		backlog:   backlog,
		adjuster:  adjuster,
		health:    health,
		defaults:  options.defaults,
		overrides: options.overrides,
		interval:  options.interval,
		logger:    options.logger,
		states:    make(map[string]*scalingState, len(queues)),
	}
	for _, q := range queues {
		s.states[q] = &scalingState{}
	}
	return s, nil
}

// Start launches the periodic scaling loop. Idempotent.
func (s *Scaler) Start(ctx context.Context) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.run(ctx)

	s.logger.Info("worker scaling started", slog.Duration("interval", s.interval))
}

// Stop cancels the scaling loop. Safe to call when not running.
func (s *Scaler) Stop() {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel = nil

	s.logger.Info("worker scaling stopped")
}

func (s *Scaler) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.checkAll(ctx)
		}
	}
}

// checkAll runs one scaling cycle across every queue.
func (s *Scaler) checkAll(ctx context.Context) {
	s.mu.Lock()
	names := make([]string, 0, len(s.states))
	for name := range s.states {
		names = append(names, name)
	}
	s.mu.Unlock()

	for _, name := range names {
		if err := s.check(ctx, name); err != nil {
			s.logger.Error("scaling check failed",
				slog.String("queue", name),
				slog.String("error", err.Error()))
		}
	}
}

// check evaluates the policy for one queue and applies at most one ±1
// concurrency step.
func (s *Scaler) check(ctx context.Context, name string) error {
	state := s.state(name)
	policy := s.policy(name)

	// Per-queue mutual exclusion: a racing cycle backs off instead of
	// double-adjusting.
	if !state.inFlight.CompareAndSwap(false, true) {
		return nil
	}
	defer state.inFlight.Store(false)

	now := time.Now()
	if !state.lastAction.IsZero() && now.Sub(state.lastAction) < policy.Cooldown {
		return nil
	}

	counts, err := s.backlog.Counts(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to read backlog: %w", err)
	}
	current, err := s.adjuster.Concurrency(name)
	if err != nil {
		return fmt.Errorf("failed to read concurrency: %w", err)
	}

	s.mu.Lock()
	state.current = current
	state.pending = counts.Pending
	s.mu.Unlock()

	// Scale up one step when the backlog crosses the threshold, unless the
	// queue is actively erroring.
	if current < policy.MaxConcurrency && counts.Pending >= policy.ScaleUpThreshold {
		if s.health != nil && s.health.QueueHealth(name) == monitor.HealthCritical {
			s.logger.Warn("skipping scale-up of critical queue", slog.String("queue", name))
			return nil
		}
		return s.apply(state, name, current+1, now, counts.Pending)
	}

	// Scale down one step only after the queue has been quiet for the
	// configured idle duration.
	if current > policy.MinConcurrency && counts.Pending < policy.ScaleUpThreshold/2 && counts.Active == 0 {
		if state.idleSince.IsZero() {
			state.idleSince = now
			return nil
		}
		if now.Sub(state.idleSince) >= policy.ScaleDownIdle {
			state.idleSince = time.Time{}
			return s.apply(state, name, current-1, now, counts.Pending)
		}
		return nil
	}

	state.idleSince = time.Time{}
	return nil
}

func (s *Scaler) apply(state *scalingState, name string, target int, now time.Time, pending int) error {
	if err := s.adjuster.SetConcurrency(name, target); err != nil {
		return fmt.Errorf("failed to set concurrency: %w", err)
	}

	s.mu.Lock()
	state.target = target
	state.current = target
	state.lastAction = now
	s.mu.Unlock()

	s.logger.Info("queue concurrency scaled",
		slog.String("queue", name),
		slog.Int("concurrency", target),
		slog.Int("pending", pending))
	return nil
}

// ManualScale is the administrative override. It validates the target
// against the queue's policy bounds and bypasses cooldown: operator intent
// always wins.
func (s *Scaler) ManualScale(queueName string, target int) error {
	state := s.state(queueName)
	if state == nil {
		return fmt.Errorf("%w: %s", ErrUnknownQueue, queueName)
	}
	policy := s.policy(queueName)

	if target < policy.MinConcurrency || target > policy.MaxConcurrency {
		return fmt.Errorf("%w: target %d for queue %q must be within [%d, %d]",
			ErrTargetOutOfBounds, target, queueName, policy.MinConcurrency, policy.MaxConcurrency)
	}

	if !state.inFlight.CompareAndSwap(false, true) {
		return fmt.Errorf("%w: %s", ErrScalingInProgress, queueName)
	}
	defer state.inFlight.Store(false)

	if err := s.adjuster.SetConcurrency(queueName, target); err != nil {
		return fmt.Errorf("failed to set concurrency: %w", err)
	}

	s.mu.Lock()
	state.target = target
	state.current = target
	state.lastAction = time.Now()
	s.mu.Unlock()

	s.logger.Info("queue concurrency manually scaled",
		slog.String("queue", queueName),
		slog.Int("concurrency", target))
	return nil
}

// States returns a copy of the per-queue control state.
func (s *Scaler) States() map[string]ScalingState {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]ScalingState, len(s.states))
	for name, st := range s.states {
		out[name] = ScalingState{
			Queue:              name,
			CurrentConcurrency: st.current,
			TargetConcurrency:  st.target,
			PendingObserved:    st.pending,
			LastScalingAction:  st.lastAction,
		}
	}
	return out
}

func (s *Scaler) state(name string) *scalingState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[name]
}

// policy resolves the effective policy for a queue, override over defaults.
func (s *Scaler) policy(name string) Policy {
	if p, ok := s.overrides[name]; ok {
		return p
	}
	return s.defaults
}
