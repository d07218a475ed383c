// Package scaler adjusts per-queue worker concurrency with an additive
// increment/decrement control loop.
//
// The policy is deliberately simple rather than a PID controller: one ±1
// step per cycle, bounded by per-queue min/max, with a cooldown between
// actions and an idle requirement before scaling down. Destination platforms
// rate-limit by account, so aggressive scaling would only trade queue
// backlog for platform rejections.
//
// The scaler never scales up a queue whose health is critical, and
// ManualScale gives operators a validated override that bypasses cooldown.
package scaler
