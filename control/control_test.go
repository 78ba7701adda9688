package control_test

import (
	"sync"
	"testing"

	"github.com/momentics/hioload-rtm/control"
)

func TestMetricsRegistry_AddConcurrent(t *testing.T) {
	reg := control.NewMetricsRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				reg.Add("frames", 1)
			}
		}()
	}
	wg.Wait()
	if got := reg.Counter("frames"); got != 800 {
		t.Fatalf("counter=%d, want 800", got)
	}
	if reg.Updated().IsZero() {
		t.Fatal("updated time not recorded")
	}
}

func TestMetricsRegistry_SnapshotIsCopy(t *testing.T) {
	reg := control.NewMetricsRegistry()
	reg.Set("active", 3)
	snap := reg.GetSnapshot()
	snap["active"] = 99
	if reg.GetSnapshot()["active"] != 3 {
		t.Fatal("snapshot aliases registry state")
	}
}

func TestMetricsRegistry_NilIsNoop(t *testing.T) {
	var reg *control.MetricsRegistry
	reg.Add("x", 1)
	reg.Set("y", 2)
	if reg.Counter("x") != 0 || len(reg.GetSnapshot()) != 0 {
		t.Fatal("nil registry must be empty")
	}
}

func TestDebugProbes(t *testing.T) {
	reg := control.NewMetricsRegistry()
	reg.Add("server.accepted", 2)

	dp := control.NewDebugProbes()
	dp.RegisterMetrics(reg)
	dp.RegisterRuntimeProbes()
	dp.RegisterProbe("session", func() any { return "open" })

	names := dp.Names()
	want := []string{"metrics", "runtime.cpus", "runtime.goroutines", "session"}
	if len(names) != len(want) {
		t.Fatalf("names=%v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("names=%v, want %v", names, want)
		}
	}
	state := dp.DumpState()
	m := state["metrics"].(map[string]any)
	if m["server.accepted"] != int64(2) {
		t.Fatalf("metrics probe=%v", m)
	}
	if state["session"] != "open" {
		t.Fatalf("session probe=%v", state["session"])
	}
}
