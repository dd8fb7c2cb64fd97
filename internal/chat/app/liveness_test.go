package server

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestConnMonitorFiresLostExactlyOncePerOutage(t *testing.T) {
	var pings, lost atomic.Int32
	monitor := startConnMonitor(10*time.Millisecond, 30*time.Millisecond,
		func() { pings.Add(1) },
		func() { lost.Add(1) })
	defer monitor.stop()

	deadline := time.Now().Add(2 * time.Second)
	for lost.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if lost.Load() != 1 {
		t.Fatalf("lost = %d, want 1", lost.Load())
	}
	if pings.Load() == 0 {
		t.Fatal("monitor never sent a ping")
	}

	// Without a pong the callback must not repeat.
	time.Sleep(60 * time.Millisecond)
	if lost.Load() != 1 {
		t.Fatalf("lost = %d, silence must not re-fire the callback", lost.Load())
	}
}

func TestConnMonitorPongKeepsConnectionAlive(t *testing.T) {
	var lost atomic.Int32
	monitor := startConnMonitor(10*time.Millisecond, 40*time.Millisecond,
		func() {},
		func() { lost.Add(1) })
	defer monitor.stop()

	for i := 0; i < 10; i++ {
		time.Sleep(10 * time.Millisecond)
		monitor.recordPong()
	}
	if lost.Load() != 0 {
		t.Fatalf("lost = %d, steady pongs must keep the connection alive", lost.Load())
	}
}

func TestConnMonitorPongReArmsAfterOutage(t *testing.T) {
	var lost atomic.Int32
	monitor := startConnMonitor(10*time.Millisecond, 30*time.Millisecond,
		func() {},
		func() { lost.Add(1) })
	defer monitor.stop()

	deadline := time.Now().Add(2 * time.Second)
	for lost.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if lost.Load() != 1 {
		t.Fatalf("lost = %d, want 1", lost.Load())
	}

	monitor.recordPong()

	deadline = time.Now().Add(2 * time.Second)
	for lost.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if lost.Load() != 2 {
		t.Fatalf("lost = %d, a second outage after recovery must fire again", lost.Load())
	}
}

func TestConnMonitorStopIsIdempotent(t *testing.T) {
	monitor := startConnMonitor(10*time.Millisecond, 30*time.Millisecond, func() {}, func() {})
	monitor.stop()
	monitor.stop()
}
