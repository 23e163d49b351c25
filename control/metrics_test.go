package control_test

import (
	"testing"

	"github.com/momentics/hioload-aio/control"
)

func TestRegistrySetGet(t *testing.T) {
	reg := control.NewMetricsRegistry()
	reg.Set("a", uint64(1))
	v, ok := reg.Get("a")
	if !ok || v.(uint64) != 1 {
		t.Fatalf("Get = %v, %v", v, ok)
	}
	snap := reg.GetSnapshot()
	if len(snap) != 1 {
		t.Fatalf("snapshot size = %d", len(snap))
	}
	if reg.Updated().IsZero() {
		t.Fatal("Updated not set")
	}
}

func TestCountersPublish(t *testing.T) {
	reg := control.NewMetricsRegistry()
	c := control.Counters{
		CompletionsDrained: 3,
		TasksResumed:       2,
		TasksScheduled:     1,
		SyncCompletions:    4,
		WakeupPosts:        5,
	}
	c.Publish(reg, "worker.0")
	v, ok := reg.Get("worker.0.sync_completions")
	if !ok || v.(uint64) != 4 {
		t.Fatalf("published value = %v, %v", v, ok)
	}
	if len(reg.GetSnapshot()) != 5 {
		t.Fatalf("snapshot size = %d", len(reg.GetSnapshot()))
	}
}
