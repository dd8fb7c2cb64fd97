package server

import (
	"sync"
	"time"
)

const (
	livenessPingInterval = 5 * time.Second
	livenessLostTimeout  = 10 * time.Second
)

// connMonitor watches a single websocket connection. Every interval it asks
// the transport to send an application-level ping; if no pong arrives within
// the timeout the connection is declared lost and onLost fires exactly once
// per outage. A later pong re-arms the monitor.
type connMonitor struct {
	mu       sync.Mutex
	lastPong time.Time
	lost     bool

	interval time.Duration
	timeout  time.Duration
	ping     func()
	onLost   func()
	done     chan struct{}
	stopOnce sync.Once
}

func startConnMonitor(interval, timeout time.Duration, ping, onLost func()) *connMonitor {
	m := &connMonitor{
		lastPong: time.Now(),
		interval: interval,
		timeout:  timeout,
		ping:     ping,
		onLost:   onLost,
		done:     make(chan struct{}),
	}
	go m.run()
	return m
}

func (m *connMonitor) run() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.ping()
			m.check()
		}
	}
}

func (m *connMonitor) check() {
	m.mu.Lock()
	fire := !m.lost && time.Since(m.lastPong) > m.timeout
	if fire {
		m.lost = true
	}
	m.mu.Unlock()

	if fire {
		m.onLost()
	}
}

// recordPong marks the connection live again. Any liveness signal counts, an
// inbound ping included.
func (m *connMonitor) recordPong() {
	m.mu.Lock()
	m.lastPong = time.Now()
	m.lost = false
	m.mu.Unlock()
}

func (m *connMonitor) stop() {
	m.stopOnce.Do(func() { close(m.done) })
}
