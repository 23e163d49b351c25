// File: control/counters.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Per-worker event-loop counters. Fields are plain integers: only the
// owning worker thread writes them. Snapshots taken while the worker
// runs are approximate.

package control

// Counters accumulates per-worker event loop statistics.
type Counters struct {
	// CompletionsDrained counts kernel completions observed, no-op
	// wake-ups excluded.
	CompletionsDrained uint64

	// TasksResumed counts frames resumed from the wake list.
	TasksResumed uint64

	// TasksScheduled counts frames entered through Schedule.
	TasksScheduled uint64

	// SyncCompletions counts I/O operations that finished inside the
	// arming call and never reached the wake list.
	SyncCompletions uint64

	// WakeupPosts counts no-op completions posted to interrupt a
	// blocked wait.
	WakeupPosts uint64
}

// Publish writes the counter values into a registry under the given
// prefix.
func (c *Counters) Publish(reg *MetricsRegistry, prefix string) {
	reg.Set(prefix+".completions_drained", c.CompletionsDrained)
	reg.Set(prefix+".tasks_resumed", c.TasksResumed)
	reg.Set(prefix+".tasks_scheduled", c.TasksScheduled)
	reg.Set(prefix+".sync_completions", c.SyncCompletions)
	reg.Set(prefix+".wakeup_posts", c.WakeupPosts)
}
