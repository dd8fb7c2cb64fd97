package server

import (
	"sync"
	"time"
)

const presenceIdleTimeout = time.Second

type presenceKey struct {
	roomID string
	sender senderType
}

// presenceTracker debounces typing indicators. A typing signal is forwarded
// only on the transition from idle to typing; repeats while already typing
// just re-arm the auto-clear timer. Auto-clear after the idle timeout and an
// explicit stop both emit the stopped signal at most once.
type presenceTracker struct {
	mu      sync.Mutex
	idle    time.Duration
	entries map[presenceKey]*time.Timer
	notify  func(roomID string, sender senderType, typing bool)
}

func newPresenceTracker(idle time.Duration, notify func(roomID string, sender senderType, typing bool)) *presenceTracker {
	if idle <= 0 {
		idle = presenceIdleTimeout
	}
	return &presenceTracker{
		idle:    idle,
		entries: make(map[presenceKey]*time.Timer),
		notify:  notify,
	}
}

// set marks the sender as typing in the room.
func (t *presenceTracker) set(roomID string, sender senderType) {
	key := presenceKey{roomID: roomID, sender: sender}

	t.mu.Lock()
	if timer, ok := t.entries[key]; ok {
		timer.Reset(t.idle)
		t.mu.Unlock()
		return
	}
	t.entries[key] = time.AfterFunc(t.idle, func() {
		t.expire(key)
	})
	t.mu.Unlock()

	t.notify(roomID, sender, true)
}

// clear removes the sender's typing state. Clearing an idle sender is a
// no-op.
func (t *presenceTracker) clear(roomID string, sender senderType) {
	key := presenceKey{roomID: roomID, sender: sender}

	t.mu.Lock()
	timer, ok := t.entries[key]
	if ok {
		timer.Stop()
		delete(t.entries, key)
	}
	t.mu.Unlock()

	if ok {
		t.notify(roomID, sender, false)
	}
}

// clearRoom cancels pending timers for both participants without emitting
// stopped signals; the room is ending and its peers are told so directly.
func (t *presenceTracker) clearRoom(roomID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, sender := range []senderType{senderCustomer, senderAdmin} {
		key := presenceKey{roomID: roomID, sender: sender}
		if timer, ok := t.entries[key]; ok {
			timer.Stop()
			delete(t.entries, key)
		}
	}
}

func (t *presenceTracker) expire(key presenceKey) {
	t.mu.Lock()
	_, ok := t.entries[key]
	if ok {
		delete(t.entries, key)
	}
	t.mu.Unlock()

	if ok {
		t.notify(key.roomID, key.sender, false)
	}
}
