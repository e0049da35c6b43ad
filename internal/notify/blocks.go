package notify

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

// maxDetailLength bounds each detail value in the rich layout; longer values
// are cut and marked.
const maxDetailLength = 200

// Block is one structured display element in the webhook layout.
type Block struct {
	// Type is the block kind: header, section, actions, or divider.
	Type string `json:"type"`
	// Text is the block's own text, for header and section blocks.
	Text *BlockText `json:"text,omitempty"`
	// Fields lays out side-by-side texts in section blocks.
	Fields []BlockText `json:"fields,omitempty"`
	// Elements holds the buttons of an actions block.
	Elements []BlockElement `json:"elements,omitempty"`
}

// BlockText is a text object inside a block.
type BlockText struct {
	// Type is plain_text or mrkdwn.
	Type string `json:"type"`
	// Text is the content.
	Text string `json:"text"`
	// Emoji enables emoji rendering in plain_text objects.
	Emoji bool `json:"emoji,omitempty"`
}

// BlockElement is an interactive element inside an actions block.
type BlockElement struct {
	// Type is the element kind, e.g. button.
	Type string `json:"type"`
	// Text is the element label.
	Text *BlockText `json:"text,omitempty"`
	// URL opens when the element is clicked.
	URL string `json:"url,omitempty"`
	// Style is the button accent, e.g. primary.
	Style string `json:"style,omitempty"`
}

// EventKind names a hook event that can produce a notification.
type EventKind string

const (
	// EventNotification is an attention request from the agent.
	EventNotification EventKind = "notification"
	// EventStop marks a finished task.
	EventStop EventKind = "stop"
	// EventUserPromptSubmit marks a newly submitted task.
	EventUserPromptSubmit EventKind = "user_prompt_submit"
	// EventPreToolUse fires before a tool executes.
	EventPreToolUse EventKind = "pre_tool_use"
	// EventPostToolUse fires after a tool executed.
	EventPostToolUse EventKind = "post_tool_use"
)

// eventStyle is the presentation for one event kind.
type eventStyle struct {
	emoji string
	title string
}

var eventStyles = map[EventKind]eventStyle{
	EventNotification:     {emoji: "🔔", title: "Codex Needs Your Action"},
	EventStop:             {emoji: "✅", title: "Task Completed"},
	EventUserPromptSubmit: {emoji: "💬", title: "New Task Started"},
	EventPreToolUse:       {emoji: "⚠️", title: "About to Execute Tool"},
	EventPostToolUse:      {emoji: "✔️", title: "Tool Execution Completed"},
}

var defaultEventStyle = eventStyle{emoji: "ℹ️", title: "Codex Event"}

// KnownEventKinds lists the event kinds accepted on the notify surface.
func KnownEventKinds() []string {
	return []string{
		string(EventNotification),
		string(EventStop),
		string(EventUserPromptSubmit),
		string(EventPreToolUse),
		string(EventPostToolUse),
	}
}

// IsKnownEventKind reports whether value names a known event kind.
func IsKnownEventKind(value string) bool {
	_, ok := eventStyles[EventKind(value)]
	return ok
}

func styleFor(kind EventKind) eventStyle {
	if style, ok := eventStyles[kind]; ok {
		return style
	}
	return defaultEventStyle
}

// EventDetails is the labelled context extracted from a hook event payload.
type EventDetails map[string]string

// ExtractEventDetails pulls the known fields from a decoded event payload.
func ExtractEventDetails(payload map[string]any) EventDetails {
	fields := []struct {
		key   string
		label string
	}{
		{key: "message", label: "Notification"},
		{key: "cwd", label: "CWD"},
		{key: "tool_name", label: "Tool Name"},
		{key: "tool_input", label: "Tool Input"},
		{key: "tool_result", label: "Tool Result"},
		{key: "prompt", label: "Prompt"},
		{key: "session_id", label: "Session ID"},
	}

	details := EventDetails{}
	for _, field := range fields {
		value, ok := payload[field.key]
		if !ok || value == nil {
			continue
		}
		details[field.label] = stringifyDetail(value)
	}
	return details
}

// stringifyDetail renders a payload value for display; non-string values are
// shown as compact JSON.
func stringifyDetail(value any) string {
	if text, ok := value.(string); ok {
		return text
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprintf("%v", value)
	}
	return string(encoded)
}

// BuildEventNotification assembles the notification for one hook event.
// Simple notifications carry text only; rich ones attach the block layout.
func BuildEventNotification(kind EventKind, details EventDetails, message string, timestamp time.Time, simple bool) *Notification {
	style := styleFor(kind)

	body := message
	if body == "" {
		body = primaryDetail(details)
	}
	if body == "" {
		body = style.title
	}

	notification := &Notification{
		Title:    fmt.Sprintf("%s %s", style.emoji, style.title),
		Body:     body,
		Priority: priorityFor(kind),
		Metadata: map[string]string{"event_type": string(kind)},
	}
	if !simple {
		notification.Blocks = BuildEventBlocks(kind, details, details["CWD"], timestamp)
	}
	return notification
}

// primaryDetail picks the detail that best summarizes the event body.
func primaryDetail(details EventDetails) string {
	for _, label := range []string{"Notification", "Prompt", "Tool Name"} {
		if value := details[label]; value != "" {
			return value
		}
	}
	return ""
}

// priorityFor maps event kinds to urgency: attention requests and imminent
// tool runs outrank routine progress events.
func priorityFor(kind EventKind) Priority {
	switch kind {
	case EventNotification, EventPreToolUse:
		return PriorityHigh
	default:
		return PriorityNormal
	}
}

// BuildEventBlocks lays out the rich message: header, time and event type,
// the project path, the remaining details, an editor shortcut, and a
// closing divider.
func BuildEventBlocks(kind EventKind, details EventDetails, projectPath string, timestamp time.Time) []Block {
	style := styleFor(kind)

	blocks := []Block{
		{
			Type: "header",
			Text: &BlockText{Type: "plain_text", Text: fmt.Sprintf("%s %s", style.emoji, style.title), Emoji: true},
		},
		{
			Type: "section",
			Fields: []BlockText{
				{Type: "mrkdwn", Text: fmt.Sprintf("*Time:*\n%s", timestamp.Format("2006-01-02 15:04:05"))},
				{Type: "mrkdwn", Text: fmt.Sprintf("*Event Type:*\n`%s`", kind)},
			},
		},
	}

	if projectPath != "" {
		blocks = append(blocks, Block{
			Type: "section",
			Text: &BlockText{Type: "mrkdwn", Text: fmt.Sprintf("*Path:*\n`%s`", projectPath)},
		})
	}

	if detailText := formatDetails(details); detailText != "" {
		blocks = append(blocks, Block{
			Type: "section",
			Text: &BlockText{Type: "mrkdwn", Text: detailText},
		})
	}

	if projectPath != "" {
		blocks = append(blocks, Block{
			Type: "actions",
			Elements: []BlockElement{
				{
					Type:  "button",
					Text:  &BlockText{Type: "plain_text", Text: "🚀 Open in GoLand", Emoji: true},
					URL:   fmt.Sprintf("goland://open?file=%s", projectPath),
					Style: "primary",
				},
			},
		})
	}

	return append(blocks, Block{Type: "divider"})
}

// formatDetails renders the detail fields in a stable order, skipping the
// working directory (it has its own section) and truncating long values.
func formatDetails(details EventDetails) string {
	keys := make([]string, 0, len(details))
	for key := range details {
		if key == "CWD" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var rendered strings.Builder
	for _, key := range keys {
		value := details[key]
		if utf8.RuneCountInString(value) > maxDetailLength {
			value = string([]rune(value)[:maxDetailLength]) + "..."
		}
		fmt.Fprintf(&rendered, "*%s:*\n```%s```\n", key, value)
	}
	return rendered.String()
}
