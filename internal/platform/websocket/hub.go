// Package websocket pushes editor-session events to connected browsers.
// Clients subscribe to topics; every subscription is scoped to the account
// that opened the connection, so one account never sees another's drafts.
package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	sendBuffer = 64
	// maxTopics bounds the subscriptions one connection may hold.
	maxTopics = 32
)

// Event is one message written to subscribers of Topic.
type Event struct {
	Type      string          `json:"type"`
	Topic     string          `json:"topic"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// ClientMessage is what a browser sends: subscribe or unsubscribe.
type ClientMessage struct {
	Action string   `json:"action"`
	Topics []string `json:"topics"`
}

// Client is one live connection.
type Client struct {
	ID     string
	Owner  uuid.UUID
	Send   chan []byte
	topics map[string]struct{}
}

func NewClient(owner uuid.UUID) *Client {
	return &Client{
		ID:     uuid.New().String(),
		Owner:  owner,
		Send:   make(chan []byte, sendBuffer),
		topics: make(map[string]struct{}),
	}
}

// Hub tracks clients and their owner-scoped subscriptions.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[*Client]struct{} // owner|topic -> clients
	all    map[*Client]struct{}
	logger zerolog.Logger
	now    func() time.Time
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		subs:   make(map[string]map[*Client]struct{}),
		all:    make(map[*Client]struct{}),
		logger: logger.With().Str("component", "live").Logger(),
		now:    time.Now,
	}
}

func key(owner uuid.UUID, topic string) string {
	return owner.String() + "|" + topic
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.all[c] = struct{}{}
	for t := range c.topics {
		h.addLocked(c, t)
	}
}

// Unregister drops every subscription of c and closes its Send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.all[c]; !ok {
		return
	}
	for t := range c.topics {
		h.removeLocked(c, t)
	}
	delete(h.all, c)
	close(c.Send)
}

func (h *Hub) Subscribe(c *Client, topics []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, t := range topics {
		if t == "" {
			continue
		}
		if _, ok := c.topics[t]; !ok && len(c.topics) >= maxTopics {
			h.logger.Debug().Str("client", c.ID).Str("topic", t).Int("limit", maxTopics).Msg("topic limit reached")
			continue
		}
		c.topics[t] = struct{}{}
		if _, ok := h.all[c]; ok {
			h.addLocked(c, t)
		}
	}
}

func (h *Hub) Unsubscribe(c *Client, topics []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, t := range topics {
		delete(c.topics, t)
		h.removeLocked(c, t)
	}
}

func (h *Hub) addLocked(c *Client, topic string) {
	k := key(c.Owner, topic)
	if h.subs[k] == nil {
		h.subs[k] = make(map[*Client]struct{})
	}
	h.subs[k][c] = struct{}{}
}

func (h *Hub) removeLocked(c *Client, topic string) {
	k := key(c.Owner, topic)
	if set, ok := h.subs[k]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.subs, k)
		}
	}
}

// ProcessMessage applies a decoded client message. Unknown actions are
// ignored.
func (h *Hub) ProcessMessage(c *Client, msg ClientMessage) {
	switch msg.Action {
	case "subscribe":
		h.Subscribe(c, msg.Topics)
	case "unsubscribe":
		h.Unsubscribe(c, msg.Topics)
	}
}

// Notify sends payload to the owner's subscribers of topic. Slow clients
// whose buffer is full miss the event.
func (h *Hub) Notify(owner uuid.UUID, topic, kind string, payload interface{}) {
	ev := Event{Type: kind, Topic: topic, Timestamp: h.now().UTC()}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			h.logger.Error().Err(err).Str("topic", topic).Msg("encode event")
			return
		}
		ev.Data = raw
	}
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error().Err(err).Str("topic", topic).Msg("encode event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.subs[key(owner, topic)] {
		select {
		case c.Send <- data:
		default:
			h.logger.Debug().Str("client", c.ID).Str("topic", topic).Msg("send buffer full, event dropped")
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.all)
}

func (h *Hub) TopicCount(owner uuid.UUID, topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[key(owner, topic)])
}
