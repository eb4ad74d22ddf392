package worker

import (
	"testing"
	"time"
)

func TestPoolBoundsConcurrency(t *testing.T) {
	p := NewPool(2)
	done := make(chan struct{})

	if !p.Acquire(done) {
		t.Fatal("first acquire should succeed immediately")
	}
	if !p.Acquire(done) {
		t.Fatal("second acquire should succeed immediately")
	}

	acquired := make(chan bool, 1)
	go func() {
		acquired <- p.Acquire(done)
	}()

	select {
	case <-acquired:
		t.Fatal("third acquire should block while pool is full")
	case <-time.After(20 * time.Millisecond):
	}

	p.Release()
	select {
	case ok := <-acquired:
		if !ok {
			t.Fatal("third acquire should have succeeded after a release")
		}
	case <-time.After(time.Second):
		t.Fatal("third acquire never unblocked after release")
	}
}

func TestPoolAcquireReturnsFalseOnDone(t *testing.T) {
	p := NewPool(1)
	done := make(chan struct{})

	if !p.Acquire(done) {
		t.Fatal("first acquire should succeed")
	}

	close(done)
	if p.Acquire(done) {
		t.Fatal("acquire should report false once done is closed and no slot is free")
	}
}
