package events

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Event type discriminators understood by the wrapper. Lines with any other
// type still decode but carry no tracked data.
const (
	// TypeThreadStarted announces the session identifier for the run.
	TypeThreadStarted = "thread.started"
	// TypeItemCompleted announces a completed output item.
	TypeItemCompleted = "item.completed"
	// ItemTypeAgentMessage marks the item carrying the agent's final answer.
	ItemTypeAgentMessage = "agent_message"
)

// Event is one decoded line of the agent's line-delimited JSON output.
type Event struct {
	// Type discriminates the event shape, e.g. "thread.started".
	Type string `json:"type"`
	// ThreadID carries the session identifier on thread.started events.
	ThreadID string `json:"thread_id,omitempty"`
	// Item carries the completed item on item.completed events.
	Item *Item `json:"item,omitempty"`
}

// Item is the payload of an item.completed event.
type Item struct {
	// Type discriminates the item, e.g. "agent_message".
	Type string `json:"type"`
	// Text holds the item's content: a single string or a list of fragments.
	Text any `json:"text,omitempty"`
}

// Decode parses one trimmed output line into an Event.
func Decode(line []byte) (Event, error) {
	var event Event
	if err := json.Unmarshal(line, &event); err != nil {
		return Event{}, fmt.Errorf("decode agent event: %w", err)
	}
	return event, nil
}

// IsAgentMessage reports whether the event carries the agent's final message.
func (e Event) IsAgentMessage() bool {
	return e.Type == TypeItemCompleted && e.Item != nil && e.Item.Type == ItemTypeAgentMessage
}

// MessageText returns the normalized text of an agent message event, or the
// empty string when the event is not an agent message.
func (e Event) MessageText() string {
	if !e.IsAgentMessage() {
		return ""
	}
	return NormalizeText(e.Item.Text)
}

// NormalizeText flattens a text payload into a single string. The agent emits
// either a plain string or an ordered list of string fragments joined without
// a separator; any other shape normalizes to empty.
func NormalizeText(value any) string {
	switch text := value.(type) {
	case string:
		return text
	case []any:
		var joined strings.Builder
		for _, part := range text {
			if fragment, ok := part.(string); ok {
				joined.WriteString(fragment)
			}
		}
		return joined.String()
	default:
		return ""
	}
}
