package server

import (
	"encoding/json"
	"sync"
)

// identity describes who is on the other side of a websocket connection.
type identity struct {
	UserID string
	Name   string
	Admin  bool
}

func (id identity) senderType() senderType {
	if id.Admin {
		return senderAdmin
	}
	return senderCustomer
}

// wsPeer serializes frame writes to a single websocket connection so that
// concurrent room broadcasts do not interleave JSON output.
type wsPeer struct {
	mu      sync.Mutex
	encoder *json.Encoder
}

func newWSPeer(encoder *json.Encoder) *wsPeer {
	return &wsPeer{encoder: encoder}
}

func (p *wsPeer) writeFrame(frame wsFrame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.encoder.Encode(frame)
}
