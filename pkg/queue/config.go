package queue

import "time"

// Config holds the configuration for the job queue.
type Config struct {
	Driver             Driver        `env:"QUEUE_DRIVER" envDefault:"memory"`
	PollInterval       time.Duration `env:"QUEUE_POLL_INTERVAL" envDefault:"1s"`
	LockTimeout        time.Duration `env:"QUEUE_LOCK_TIMEOUT" envDefault:"30m"`
	ShutdownGrace      time.Duration `env:"QUEUE_SHUTDOWN_GRACE" envDefault:"30s"`
	DefaultConcurrency int           `env:"QUEUE_DEFAULT_CONCURRENCY" envDefault:"1"`
}

// DispatcherOptions translates the config into dispatcher options.
func (c Config) DispatcherOptions() []DispatcherOption {
	return []DispatcherOption{
		WithPullInterval(c.PollInterval),
		WithLockTimeout(c.LockTimeout),
		WithShutdownGrace(c.ShutdownGrace),
	}
}
