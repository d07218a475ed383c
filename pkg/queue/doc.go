// Package queue provides a storage-agnostic job queue with delayed dispatch,
// per-queue concurrency control, and explicit failure recovery.
//
// The package is organised around three components:
//
//   - Enqueuer    — routes payloads to named queues, optionally delayed
//   - Storage     — persistence backend (in-memory or PostgreSQL)
//   - Dispatcher  — pull loops feeding registered per-queue handlers
//
// Components interact only through the Storage interface, so the queue can
// run against process memory for development and tests, or PostgreSQL for
// durable multi-process deployments, selected at startup via Config.Driver.
//
// Delivery is at-least-once: a crashed worker's claim expires and the job is
// dispatched again, so handlers must be idempotent or detect replays through
// their own durable records. A handler error marks the job failed and leaves
// it there; there is no silent automatic retry. Operators recover failed
// jobs explicitly with Storage.RetryFailed.
//
// # Usage
//
//	var cfg queue.Config
//	config.MustLoad(&cfg)
//	storage, _ := queue.NewStorage(cfg, pool)
//	defer storage.Close()
//
//	enq, _ := queue.NewEnqueuer(storage)
//	jobID, _ := enq.AddJob(ctx, "post", payload, queue.WithDelay(time.Minute))
//
//	disp, _ := queue.NewDispatcher(storage, cfg.DispatcherOptions()...)
//	_ = disp.RegisterProcessor("post", queue.NewHandler(handlePost), cfg.DefaultConcurrency)
//	_ = disp.Start(ctx)
//	defer disp.Close()
//
// The Dispatcher exposes Pause, Resume, and SetConcurrency for operational
// control, and Stats for monitoring.
package queue
