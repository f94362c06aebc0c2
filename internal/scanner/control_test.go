package scanner

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestControllerInitiallyClear(t *testing.T) {
	c := NewController()
	if c.Stopped() {
		t.Fatal("expected stop flag cleared initially")
	}
	if c.IsPaused() {
		t.Fatal("expected not paused initially")
	}
}

func TestControllerRequestStopIdempotent(t *testing.T) {
	c := NewController()
	c.RequestStop()
	c.RequestStop()
	if !c.Stopped() {
		t.Fatal("expected stopped after RequestStop")
	}
}

func TestControllerWaitNotPaused(t *testing.T) {
	c := NewController()
	done := make(chan struct{})
	go func() {
		c.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait() blocked when not paused")
	}
}

func TestControllerBlocksAndResumes(t *testing.T) {
	c := NewController()
	c.Toggle() // pause

	var blocked atomic.Int32
	var wg sync.WaitGroup
	n := 5
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			blocked.Add(1)
			c.Wait()
		}()
	}

	time.Sleep(50 * time.Millisecond)
	if blocked.Load() != int32(n) {
		t.Fatalf("expected %d goroutines to reach Wait, got %d", n, blocked.Load())
	}

	c.Toggle() // resume

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("goroutines did not unblock after resume")
	}
}

func TestControllerStopReleasesPausedWaiters(t *testing.T) {
	c := NewController()
	c.Toggle() // pause

	done := make(chan struct{})
	go func() {
		c.Wait()
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	c.RequestStop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RequestStop did not release a paused Wait")
	}
}

func TestControllerPausedDuration(t *testing.T) {
	c := NewController()

	c.Toggle()
	time.Sleep(100 * time.Millisecond)
	c.Toggle()

	total := c.PausedDuration()
	if total < 80*time.Millisecond || total > 300*time.Millisecond {
		t.Fatalf("expected ~100ms total paused duration, got %s", total)
	}
}
