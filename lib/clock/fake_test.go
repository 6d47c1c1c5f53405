// Copyright 2026 The Taskdesk Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFakeClockNow(t *testing.T) {
	clock := Fake(epoch)
	if got := clock.Now(); !got.Equal(epoch) {
		t.Fatalf("Now() = %v, want %v", got, epoch)
	}
	clock.Advance(2 * time.Second)
	if got, want := clock.Now(), epoch.Add(2*time.Second); !got.Equal(want) {
		t.Fatalf("Now() after Advance = %v, want %v", got, want)
	}
}

func TestFakeClockAfter(t *testing.T) {
	clock := Fake(epoch)
	channel := clock.After(3 * time.Second)

	clock.Advance(2 * time.Second)
	select {
	case <-channel:
		t.Fatal("After fired before its deadline")
	default:
	}

	clock.Advance(time.Second)
	select {
	case <-channel:
	default:
		t.Fatal("After did not fire at its deadline")
	}
}

func TestFakeClockAfterZero(t *testing.T) {
	clock := Fake(epoch)
	select {
	case <-clock.After(0):
	default:
		t.Fatal("After(0) should be ready immediately")
	}
}

func TestFakeClockAfterFunc(t *testing.T) {
	clock := Fake(epoch)
	calls := 0
	clock.AfterFunc(2*time.Second, func() { calls++ })

	clock.Advance(time.Second)
	if calls != 0 {
		t.Fatalf("callback ran early: calls = %d", calls)
	}
	clock.Advance(time.Second)
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
	clock.Advance(10 * time.Second)
	if calls != 1 {
		t.Fatalf("one-shot callback repeated: calls = %d", calls)
	}
}

func TestFakeClockAfterFuncZeroRunsImmediately(t *testing.T) {
	clock := Fake(epoch)
	ran := false
	timer := clock.AfterFunc(0, func() { ran = true })
	if !ran {
		t.Fatal("AfterFunc(0) did not run synchronously")
	}
	if timer.Stop() {
		t.Fatal("Stop on an already-run timer should return false")
	}
}

func TestFakeClockAfterFuncStop(t *testing.T) {
	clock := Fake(epoch)
	ran := false
	timer := clock.AfterFunc(time.Second, func() { ran = true })

	if !timer.Stop() {
		t.Fatal("first Stop should return true")
	}
	if timer.Stop() {
		t.Fatal("second Stop should return false")
	}
	clock.Advance(5 * time.Second)
	if ran {
		t.Fatal("stopped timer fired")
	}
	if got := clock.PendingCount(); got != 0 {
		t.Fatalf("PendingCount = %d, want 0", got)
	}
}

func TestFakeClockCallbackReschedules(t *testing.T) {
	clock := Fake(epoch)
	var fired []time.Time
	var schedule func()
	schedule = func() {
		clock.AfterFunc(2*time.Second, func() {
			fired = append(fired, clock.Now())
			schedule()
		})
	}
	schedule()

	// One interval per Advance: the rescheduled timer is not yet due.
	clock.Advance(2 * time.Second)
	if len(fired) != 1 {
		t.Fatalf("fired %d times, want 1", len(fired))
	}
	clock.Advance(2 * time.Second)
	if len(fired) != 2 {
		t.Fatalf("fired %d times, want 2", len(fired))
	}
	if got := clock.PendingCount(); got != 1 {
		t.Fatalf("PendingCount = %d, want 1", got)
	}
}

func TestFakeClockFiresInDeadlineOrder(t *testing.T) {
	clock := Fake(epoch)
	var order []int
	clock.AfterFunc(3*time.Second, func() { order = append(order, 3) })
	clock.AfterFunc(1*time.Second, func() { order = append(order, 1) })
	clock.AfterFunc(2*time.Second, func() { order = append(order, 2) })

	clock.Advance(5 * time.Second)
	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Fatalf("order = %v, want [1 2 3]", order)
	}
}

func TestFakeClockWaitForTimers(t *testing.T) {
	clock := Fake(epoch)
	done := make(chan struct{})
	go func() {
		<-clock.After(time.Second)
		close(done)
	}()

	clock.WaitForTimers(1)
	clock.Advance(time.Second)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("goroutine did not observe the advanced clock")
	}
}

func TestFakeClockImplementsClock(t *testing.T) {
	var _ Clock = Fake(epoch)
	var _ Clock = Real()
}
