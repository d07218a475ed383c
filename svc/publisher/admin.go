package publisher

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/postpilot/engine/pkg/monitor"
	"github.com/postpilot/engine/pkg/queue"
	"github.com/postpilot/engine/pkg/scaler"
)

// Admin is the operator facade over the running pipeline. It bundles the
// few interventions an on-call human actually performs: pause or resume a
// queue, re-enqueue its failed jobs, clear it, force a concurrency level,
// and read the overall health picture.
type Admin struct {
	dispatcher *queue.Dispatcher
	storage    queue.Storage
	scaler     *scaler.Scaler
	monitor    *monitor.Monitor
	log        *slog.Logger
}

// NewAdmin creates the operator facade. All four components are required.
func NewAdmin(d *queue.Dispatcher, st queue.Storage, sc *scaler.Scaler, mon *monitor.Monitor, log *slog.Logger) (*Admin, error) {
	switch {
	case d == nil:
		return nil, fmt.Errorf("%w: dispatcher", ErrDependencyNil)
	case st == nil:
		return nil, fmt.Errorf("%w: storage", ErrDependencyNil)
	case sc == nil:
		return nil, fmt.Errorf("%w: scaler", ErrDependencyNil)
	case mon == nil:
		return nil, fmt.Errorf("%w: monitor", ErrDependencyNil)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Admin{dispatcher: d, storage: st, scaler: sc, monitor: mon, log: log}, nil
}

// PauseQueue stops the queue's workers from claiming new jobs. Jobs already
// in flight run to completion.
func (a *Admin) PauseQueue(queueName string) error {
	if err := a.dispatcher.Pause(queueName); err != nil {
		return err
	}
	a.log.Info("queue paused", slog.String("queue", queueName))
	return nil
}

// ResumeQueue re-enables claiming on a paused queue.
func (a *Admin) ResumeQueue(queueName string) error {
	if err := a.dispatcher.Resume(queueName); err != nil {
		return err
	}
	a.log.Info("queue resumed", slog.String("queue", queueName))
	return nil
}

// RetryFailedJobs moves every failed job in the queue back to pending with
// its attempt counter reset. Returns the number of jobs re-enqueued.
func (a *Admin) RetryFailedJobs(ctx context.Context, queueName string) (int, error) {
	n, err := a.storage.RetryFailed(ctx, queueName)
	if err != nil {
		return 0, fmt.Errorf("failed to retry jobs in queue %q: %w", queueName, err)
	}
	a.log.Info("failed jobs re-enqueued", slog.String("queue", queueName), slog.Int("count", n))
	return n, nil
}

// ClearQueue removes every job in the queue regardless of status. Returns
// the number of jobs deleted.
func (a *Admin) ClearQueue(ctx context.Context, queueName string) (int, error) {
	n, err := a.storage.Clear(ctx, queueName)
	if err != nil {
		return 0, fmt.Errorf("failed to clear queue %q: %w", queueName, err)
	}
	a.log.Warn("queue cleared", slog.String("queue", queueName), slog.Int("count", n))
	return n, nil
}

// ScaleQueue forces the queue's worker concurrency to target, bypassing the
// scaler's cooldown but not its policy bounds.
func (a *Admin) ScaleQueue(queueName string, target int) error {
	if err := a.scaler.ManualScale(queueName, target); err != nil {
		return err
	}
	a.log.Info("queue scaled manually", slog.String("queue", queueName), slog.Int("target", target))
	return nil
}

// QueueCounts returns the queue's current per-status job counts.
func (a *Admin) QueueCounts(ctx context.Context, queueName string) (queue.Counts, error) {
	return a.storage.Counts(ctx, queueName)
}

// SystemHealth returns the aggregated health snapshot from the monitor.
func (a *Admin) SystemHealth() monitor.SystemHealth {
	return a.monitor.SystemHealth()
}

// ScalingStates returns the scaler's last decision per queue.
func (a *Admin) ScalingStates() map[string]scaler.ScalingState {
	return a.scaler.States()
}
