// Package audit records the durable event trail behind every publish
// attempt: job completions, job failures, batch campaign results, and AI
// promo outcomes.
//
// The Logger writes Events through a Storage interface, so the trail can
// live in memory for tests or behind any durable store in production.
// AsyncStorage decorates a Storage with a buffered background writer for
// emission off the job handler's critical path.
package audit
