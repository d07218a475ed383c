// Package monitor derives health signals from queue backlog and worker
// throughput.
//
// A Monitor runs one periodic sampling loop off the job's critical path: it
// only reads queue counts and dispatcher counters and never touches job
// state. Per queue it computes failure rate, throughput, and average
// processing time over a trailing window, then classifies the queue as
// healthy, warning, or critical. A sampling error on one queue degrades that
// queue to critical without aborting the cycle for the others.
//
// All public reads return copies of the internal maps so consumers cannot
// mutate monitor state.
package monitor
