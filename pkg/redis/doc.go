// Package redis provides Redis connectivity: a retrying connector and a
// health probe.
//
// The pipeline uses Redis for the posting cooldown store, so eligibility
// windows survive restarts and are shared across worker processes:
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	store := cooldown.NewRedisStore(client)
//
// Configuration is declarative via env tags on Config:
//
//	REDIS_URL=redis://:password@localhost:6379/0
//	REDIS_RETRY_ATTEMPTS=3
package redis
