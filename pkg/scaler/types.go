package scaler

import "time"

// Policy bounds the scaling behavior for one queue. Overrides are layered
// over the default policy per queue name.
type Policy struct {
	MinConcurrency   int           // floor for scale-down
	MaxConcurrency   int           // cap for scale-up
	ScaleUpThreshold int           // pending jobs required to add a worker
	ScaleDownIdle    time.Duration // how long a queue must sit idle before removing one
	Cooldown         time.Duration // minimum gap between scaling actions
}

// ScalingState is a copy of the control state for one queue.
type ScalingState struct {
	Queue              string    `json:"queue"`
	CurrentConcurrency int       `json:"current_concurrency"`
	TargetConcurrency  int       `json:"target_concurrency"`
	PendingObserved    int       `json:"pending_observed"`
	LastScalingAction  time.Time `json:"last_scaling_action"`
}
