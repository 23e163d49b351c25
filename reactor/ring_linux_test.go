//go:build linux
// +build linux

package reactor

import (
	"testing"
	"time"

	"github.com/momentics/hioload-aio/internal/osver"
)

func TestSetupFlagGating(t *testing.T) {
	cases := []struct {
		kernel osver.Version
		want   uint32
	}{
		{osver.Make(5, 4, 0), setupClamp},
		{osver.Make(5, 18, 0), setupClamp | setupSubmitAll},
		{osver.Make(5, 19, 0), setupClamp | setupSubmitAll | setupCoopTaskrun | setupTaskrunFlag},
		{osver.Make(6, 0, 0), setupClamp | setupSubmitAll | setupCoopTaskrun | setupTaskrunFlag | setupSingleIssuer},
		{osver.Make(6, 8, 3), setupClamp | setupSubmitAll | setupCoopTaskrun | setupTaskrunFlag | setupSingleIssuer},
	}
	for _, tc := range cases {
		if got := setupFlags(tc.kernel); got != tc.want {
			t.Errorf("setupFlags(%#x) = %#x, want %#x", tc.kernel, got, tc.want)
		}
	}
}

func TestFeatureGating(t *testing.T) {
	if got := setupFeatures(osver.Make(5, 3, 0)); got != 0 {
		t.Errorf("features before 5.4 = %#x, want 0", got)
	}
	want := uint32(featSingleMmap | featNoDrop | featRwCurPos | featFastPoll)
	if got := setupFeatures(osver.Make(5, 7, 0)); got != want {
		t.Errorf("features at 5.7 = %#x, want %#x", got, want)
	}
}

func TestWakeRoundTrip(t *testing.T) {
	r, err := NewRing(64)
	if err != nil {
		t.Skipf("io_uring unavailable: %v", err)
	}
	defer r.Close()

	if err := r.Wake(); err != nil {
		t.Fatalf("Wake: %v", err)
	}

	evs := make([]Event, 8)
	n, err := r.Wait(evs, time.Second)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if n < 1 {
		t.Fatal("no completion after Wake")
	}
	if evs[0].Token != 0 {
		t.Fatalf("no-op token = %d, want 0", evs[0].Token)
	}
}

func TestBoundedWaitReturnsEmpty(t *testing.T) {
	r, err := NewRing(64)
	if err != nil {
		t.Skipf("io_uring unavailable: %v", err)
	}
	defer r.Close()

	evs := make([]Event, 8)
	start := time.Now()
	n, err := r.Wait(evs, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if n != 0 {
		t.Fatalf("Wait on idle ring returned %d events", n)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("bounded wait took %v", elapsed)
	}
}
