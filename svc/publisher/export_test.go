package publisher

import "time"

// SetSleepForTest replaces the inter-post delay so tests can observe it
// without waiting.
func (w *BatchWorker) SetSleepForTest(sleep func(time.Duration)) {
	w.sleep = sleep
}

// SetSleepForTest replaces the inter-variant delay so tests can observe it
// without waiting.
func (w *PromoWorker) SetSleepForTest(sleep func(time.Duration)) {
	w.sleep = sleep
}
