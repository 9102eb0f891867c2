package models

import "encoding/json"

type EventName string

const (
	// client -> server
	EventUserMessage EventName = "user-message"
	EventTyping      EventName = "typing"
	EventStopTyping  EventName = "stop-typing"

	// server -> client
	EventUpdateUsers    EventName = "update-users"
	EventBroadcast      EventName = "broadcast"
	EventUserTyping     EventName = "user-typing"
	EventUserStopTyping EventName = "user-stop-typing"
)

// Event is the envelope for every frame on the realtime connection.
type Event struct {
	Event EventName       `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type UserMessagePayload struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

type TypingPayload struct {
	Name string `json:"name"`
}

// BroadcastPayload echoes a user message with its server timestamp. Extra
// carries any additional fields the sender attached; they are written
// alongside the named ones and never override them.
type BroadcastPayload struct {
	Name      string                     `json:"name"`
	Message   string                     `json:"message"`
	Timestamp string                     `json:"timestamp"`
	Extra     map[string]json.RawMessage `json:"-"`
}

func (p BroadcastPayload) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.Extra)+3)
	for k, v := range p.Extra {
		out[k] = v
	}
	out["name"] = p.Name
	out["message"] = p.Message
	out["timestamp"] = p.Timestamp
	return json.Marshal(out)
}

type TypingNotice struct {
	Username string `json:"username"`
}

// NewEvent marshals data into an event frame.
func NewEvent(name EventName, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Event{Event: name, Data: raw})
}
