package publisher

import "time"

// Config holds the tunable policy knobs for the publishing workers.
//
// CooldownWindow is the minimum gap between posts from one account to one
// destination. Destination platforms throttle somewhere between 10 and 15
// minutes; 12 minutes sits inside that band without wasting headroom.
type Config struct {
	CooldownWindow    time.Duration `env:"PUBLISHER_COOLDOWN_WINDOW" envDefault:"12m"`
	DelayBetweenPosts time.Duration `env:"PUBLISHER_BATCH_POST_DELAY" envDefault:"5m"`
	MetricsDelay      time.Duration `env:"PUBLISHER_METRICS_DELAY" envDefault:"1h"`
	VariantDelay      time.Duration `env:"PUBLISHER_PROMO_VARIANT_DELAY" envDefault:"2s"`
}

// WorkerOptions translates the config into worker options. CooldownWindow is
// consumed separately when constructing the eligibility gate.
func (c Config) WorkerOptions() []WorkerOption {
	return []WorkerOption{
		WithDelayBetweenPosts(c.DelayBetweenPosts),
		WithMetricsDelay(c.MetricsDelay),
		WithVariantDelay(c.VariantDelay),
	}
}
