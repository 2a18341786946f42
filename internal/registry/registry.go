package registry

import (
	"errors"
	"sync"

	"go.uber.org/zap"
)

var ErrDuplicateClient = errors.New("client id already registered")

// Client is one live connection. Frames queued on its outbox are written by
// the connection's writer goroutine.
type Client struct {
	ID     string
	out    chan []byte
	room   string
	closed bool
}

func (c *Client) Outbox() <-chan []byte { return c.out }

// Registry maps client ids to outboxes and remembers which room each client is
// in. Sends never block: a full outbox drops the frame.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]*Client
	bufSize int
	log     *zap.Logger
}

func New(bufSize int, logger *zap.Logger) *Registry {
	if bufSize <= 0 {
		bufSize = 64
	}
	return &Registry{
		clients: make(map[string]*Client),
		bufSize: bufSize,
		log:     logger,
	}
}

func (r *Registry) Register(id string) (*Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.clients[id]; exists {
		return nil, ErrDuplicateClient
	}
	c := &Client{ID: id, out: make(chan []byte, r.bufSize)}
	r.clients[id] = c
	return c, nil
}

// Unregister removes the client, closes its outbox and returns the room it
// was in ("" when it was browsing the room list).
func (r *Registry) Unregister(id string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.clients[id]
	if !ok {
		return "", false
	}
	delete(r.clients, id)
	c.closed = true
	close(c.out)
	return c.room, true
}

// Send queues one frame for id. Returns false if the client is gone or slow.
func (r *Registry) Send(id string, frame []byte) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.clients[id]
	if !ok {
		return false
	}
	return r.offer(c, frame)
}

// SendLobbyless queues frame for every client that is not in a room.
func (r *Registry) SendLobbyless(frame []byte) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, c := range r.clients {
		if c.room != "" {
			continue
		}
		if r.offer(c, frame) {
			n++
		}
	}
	return n
}

// caller holds r.mu
func (r *Registry) offer(c *Client, frame []byte) bool {
	if c.closed {
		return false
	}
	select {
	case c.out <- frame:
		return true
	default:
		r.log.Debug("outbox full, dropping frame", zap.String("client", c.ID))
		return false
	}
}

// SetRoom records that id joined room. False if the client already left.
func (r *Registry) SetRoom(id, room string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.clients[id]
	if !ok {
		return false
	}
	c.room = room
	return true
}

// ClearRoom detaches id from room. A client that has meanwhile moved on is
// left alone.
func (r *Registry) ClearRoom(id, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.clients[id]; ok && c.room == room {
		c.room = ""
	}
}

func (r *Registry) RoomOf(id string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.clients[id]
	if !ok || c.room == "" {
		return "", false
	}
	return c.room, true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}
