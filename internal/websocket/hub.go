package websocket

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"livechat/internal/config"
	"livechat/internal/models"
	"livechat/pkg/logger"

	_ "time/tzdata"
)

const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Recorder receives the side effects of chat traffic. Both methods must
// return without blocking on storage.
type Recorder interface {
	RecordMessage(identity *models.SessionIdentity, payload models.UserMessagePayload, at time.Time)
	CloseSession(sessionID string)
}

type inbound struct {
	client *Client
	event  models.Event
}

// Hub owns the presence set. Every mutation and every broadcast happens on
// the goroutine running Run, so no locking is needed around clients.
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	inbound    chan inbound
	snapshot   chan chan []string
	done       chan struct{}

	recorder    Recorder
	location    *time.Location
	typingRate  float64
	typingBurst int
	now         func() time.Time
	seq         uint64
}

func NewHub(recorder Recorder, cfg config.ChatConfig) *Hub {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Warn("Unknown timezone %q, using UTC: %v", cfg.Timezone, err)
		loc = time.UTC
	}
	return &Hub{
		clients:     make(map[string]*Client),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		inbound:     make(chan inbound, 64),
		snapshot:    make(chan chan []string),
		done:        make(chan struct{}),
		recorder:    recorder,
		location:    loc,
		typingRate:  cfg.TypingRate,
		typingBurst: cfg.TypingBurst,
		now:         time.Now,
	}
}

// Run serves the hub until ctx is cancelled, then removes every client:
// send channels are closed so write pumps send a close frame, and each
// session's login row is reconciled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for _, client := range h.clients {
				h.remove(client)
			}
			logger.Info("Hub stopped")
			return

		case client := <-h.register:
			h.seq++
			client.seq = h.seq
			h.clients[client.id] = client
			logger.Info("User %s connected (%s)", client.identity.Username, client.id)
			h.broadcastUsers()

		case client := <-h.unregister:
			if h.remove(client) {
				logger.Info("User %s disconnected (%s)", client.identity.Username, client.id)
				h.broadcastUsers()
			}

		case in := <-h.inbound:
			h.handle(in.client, in.event)

		case reply := <-h.snapshot:
			reply <- h.displayNames()
		}
	}
}

// Wait blocks until Run has returned. After that the hub makes no further
// calls into its Recorder.
func (h *Hub) Wait() {
	<-h.done
}

// Register adds an authorized connection. It reports false once the hub
// has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Dispatch hands an event read from c to the hub.
func (h *Hub) Dispatch(c *Client, event models.Event) {
	select {
	case h.inbound <- inbound{client: c, event: event}:
	case <-h.done:
	}
}

// OnlineUsers returns the current display-name set in connection order.
func (h *Hub) OnlineUsers(ctx context.Context) ([]string, error) {
	reply := make(chan []string, 1)
	select {
	case h.snapshot <- reply:
	case <-h.done:
		return []string{}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case names := <-reply:
		return names, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *Hub) remove(c *Client) bool {
	if _, ok := h.clients[c.id]; !ok {
		return false
	}
	delete(h.clients, c.id)
	close(c.send)
	h.recorder.CloseSession(c.identity.SessionID)
	return true
}

// displayNames collapses duplicates by display name, keeping the position
// of each name's earliest connection.
func (h *Hub) displayNames() []string {
	ordered := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		ordered = append(ordered, c)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].seq < ordered[j].seq })

	names := make([]string, 0, len(ordered))
	seen := make(map[string]bool, len(ordered))
	for _, c := range ordered {
		name := c.identity.DisplayName()
		if seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

func (h *Hub) broadcastUsers() {
	h.emit(models.EventUpdateUsers, h.displayNames(), nil)
}

func (h *Hub) handle(c *Client, event models.Event) {
	switch event.Event {
	case models.EventUserMessage:
		var payload models.UserMessagePayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			logger.Warn("Malformed %s from %s: %v", event.Event, c.id, err)
			return
		}
		at := h.now().In(h.location)
		if _, bound := h.clients[c.id]; bound {
			h.recorder.RecordMessage(c.identity, payload, at)
		}
		var extra map[string]json.RawMessage
		_ = json.Unmarshal(event.Data, &extra)
		h.emit(models.EventBroadcast, models.BroadcastPayload{
			Name:      payload.Name,
			Message:   payload.Message,
			Timestamp: at.Format(timestampLayout),
			Extra:     extra,
		}, nil)

	case models.EventTyping, models.EventStopTyping:
		if event.Event == models.EventTyping && !c.allowTyping() {
			return
		}
		name := c.identity.DisplayName()
		if name == "" {
			var payload models.TypingPayload
			_ = json.Unmarshal(event.Data, &payload)
			name = payload.Name
		}
		out := models.EventUserTyping
		if event.Event == models.EventStopTyping {
			out = models.EventUserStopTyping
		}
		h.emit(out, models.TypingNotice{Username: name}, c)

	default:
		logger.Debug("Ignoring unknown event %q from %s", event.Event, c.id)
	}
}

// emit sends an event to every client except skip. A client whose buffer
// is full is dropped and the remaining clients get a fresh user list.
func (h *Hub) emit(name models.EventName, data any, skip *Client) {
	frame, err := models.NewEvent(name, data)
	if err != nil {
		logger.Error("Error marshaling %s: %v", name, err)
		return
	}

	var slow []*Client
	for _, client := range h.clients {
		if client == skip {
			continue
		}
		select {
		case client.send <- frame:
		default:
			slow = append(slow, client)
		}
	}

	if len(slow) == 0 {
		return
	}
	for _, client := range slow {
		logger.Warn("Dropping slow client %s (%s)", client.identity.Username, client.id)
		h.remove(client)
	}
	h.broadcastUsers()
}
