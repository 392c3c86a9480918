// Package presence tracks which users have live connections and delivers
// events to them. Rooms are keyed by user identity and live only in memory.
package presence

import (
	"encoding/json"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

const DefaultSendBuffer = 64

// Frame is the envelope of every server to client message.
type Frame struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

var connSeq atomic.Uint64

// Client is one live connection. Frames queued for it are read from Send by
// the connection's write loop.
type Client struct {
	seq      uint64
	identity string
	send     chan []byte
	closed   bool
}

func NewClient(buffer int) *Client {
	if buffer <= 0 {
		buffer = DefaultSendBuffer
	}
	return &Client{
		seq:  connSeq.Add(1),
		send: make(chan []byte, buffer),
	}
}

// Send is closed when the client leaves the registry.
func (c *Client) Send() <-chan []byte { return c.send }

func (c *Client) Seq() uint64 { return c.seq }

type Registry struct {
	mu     sync.RWMutex
	rooms  map[string]map[*Client]struct{}
	closed bool
	log    *zap.Logger
}

func NewRegistry(log *zap.Logger) *Registry {
	return &Registry{
		rooms: make(map[string]map[*Client]struct{}),
		log:   log,
	}
}

// Join puts c into identity's room. A client that already joined another
// identity is moved.
func (r *Registry) Join(identity string, c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || c.closed {
		return false
	}

	if c.identity != "" && c.identity != identity {
		r.removeLocked(c)
	}
	c.identity = identity

	room, ok := r.rooms[identity]
	if !ok {
		room = make(map[*Client]struct{})
		r.rooms[identity] = room
	}
	room[c] = struct{}{}
	return true
}

// Leave removes c, drops its room when empty and closes its send queue.
// Calling it more than once is harmless.
func (r *Registry) Leave(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(c)
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (r *Registry) removeLocked(c *Client) {
	room, ok := r.rooms[c.identity]
	if !ok {
		return
	}
	delete(room, c)
	if len(room) == 0 {
		delete(r.rooms, c.identity)
	}
}

// Emit queues event for every live connection of identity and returns how
// many accepted it. It never blocks: a connection whose queue is full misses
// this frame.
func (r *Registry) Emit(identity, event string, payload any) int {
	data, err := json.Marshal(Frame{Type: event, Payload: payload})
	if err != nil {
		r.log.Error("encode presence frame", zap.String("event", event), zap.Error(err))
		return 0
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	room := r.rooms[identity]
	if len(room) == 0 {
		r.log.Debug("delivery miss: no live connections",
			zap.String("identity", identity),
			zap.String("event", event))
		return 0
	}

	delivered := 0
	for c := range room {
		if r.offer(c, data) {
			delivered++
		} else {
			r.log.Warn("send buffer full, frame dropped",
				zap.String("identity", identity),
				zap.Uint64("conn", c.seq),
				zap.String("event", event))
		}
	}
	return delivered
}

// SendTo queues a frame for a single connection, e.g. a reply to its own
// request.
func (r *Registry) SendTo(c *Client, event string, payload any) bool {
	data, err := json.Marshal(Frame{Type: event, Payload: payload})
	if err != nil {
		r.log.Error("encode presence frame", zap.String("event", event), zap.Error(err))
		return false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.offer(c, data)
}

func (r *Registry) offer(c *Client, data []byte) bool {
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (r *Registry) Online(identity string) bool {
	return r.Count(identity) > 0
}

func (r *Registry) Count(identity string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[identity])
}

// Close drops every room and closes every connection's send queue. Further
// joins are refused.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	for identity, room := range r.rooms {
		for c := range room {
			if !c.closed {
				c.closed = true
				close(c.send)
			}
		}
		delete(r.rooms, identity)
	}
}
