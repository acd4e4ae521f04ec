package timerwheel

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestScheduleFires(t *testing.T) {
	w := New(5*time.Millisecond, 16)
	defer w.Stop()

	fired := make(chan struct{})
	w.Schedule(10*time.Millisecond, func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timer did not fire")
	}
}

func TestCancelBeforeFire(t *testing.T) {
	w := New(5*time.Millisecond, 16)
	defer w.Stop()

	var fired atomic.Bool
	timer := w.Schedule(50*time.Millisecond, func() { fired.Store(true) })

	if !timer.Cancel() {
		t.Fatal("Cancel returned false for pending timer")
	}
	time.Sleep(100 * time.Millisecond)
	if fired.Load() {
		t.Error("cancelled timer fired")
	}
	if timer.Cancel() {
		t.Error("second Cancel returned true")
	}
}

func TestCancelAfterFire(t *testing.T) {
	w := New(5*time.Millisecond, 16)
	defer w.Stop()

	fired := make(chan struct{})
	timer := w.Schedule(10*time.Millisecond, func() { close(fired) })

	<-fired
	if timer.Cancel() {
		t.Error("Cancel returned true for fired timer")
	}
}

func TestLongDelayWrapsWheel(t *testing.T) {
	// 4 slots at 5ms: a 60ms delay needs multiple full rotations.
	w := New(5*time.Millisecond, 4)
	defer w.Stop()

	start := time.Now()
	fired := make(chan struct{})
	w.Schedule(60*time.Millisecond, func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("wrapped timer did not fire")
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("fired after %v, want >= ~60ms", elapsed)
	}
}

func TestManyTimersAllFire(t *testing.T) {
	w := New(2*time.Millisecond, 32)
	defer w.Stop()

	const n = 100
	var count atomic.Int32
	done := make(chan struct{})
	for i := 0; i < n; i++ {
		d := time.Duration(1+i%20) * time.Millisecond
		w.Schedule(d, func() {
			if count.Add(1) == n {
				close(done)
			}
		})
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("only %d of %d timers fired", count.Load(), n)
	}
}
