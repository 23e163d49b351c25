package pool_test

import (
	"testing"

	"github.com/momentics/hioload-aio/pool"
)

type thing struct {
	n int
}

func TestSyncPoolRoundTrip(t *testing.T) {
	p := pool.NewSyncPool(func() *thing { return new(thing) })
	a := p.Get()
	if a == nil {
		t.Fatal("Get returned nil")
	}
	a.n = 7
	p.Put(a)
	b := p.Get()
	if b == nil {
		t.Fatal("Get after Put returned nil")
	}
}
