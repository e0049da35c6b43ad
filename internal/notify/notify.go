package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Priority orders notifications by urgency.
type Priority int

const (
	// PriorityLow marks informational notifications.
	PriorityLow Priority = iota
	// PriorityNormal is the default urgency.
	PriorityNormal
	// PriorityHigh marks notifications needing prompt attention.
	PriorityHigh
	// PriorityCritical marks failures needing immediate attention.
	PriorityCritical
)

// String renders the priority for log lines.
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "LOW"
	case PriorityNormal:
		return "NORMAL"
	case PriorityHigh:
		return "HIGH"
	case PriorityCritical:
		return "CRITICAL"
	default:
		return fmt.Sprintf("PRIORITY(%d)", int(p))
	}
}

// Notification is one message for delivery: a plain text title and body plus
// an optional ordered sequence of structured display blocks.
type Notification struct {
	// ID identifies the notification across channel results; assigned
	// automatically when empty.
	ID string
	// Title is the short headline.
	Title string
	// Body is the plain text content.
	Body string
	// Priority gates delivery per channel.
	Priority Priority
	// Metadata carries free-form context fields.
	Metadata map[string]string
	// Blocks optionally carries the structured layout for rich channels.
	Blocks []Block
}

// Channel delivers notifications over one transport.
type Channel interface {
	// Name identifies the channel in results and configuration.
	Name() string
	// Send delivers one notification.
	Send(ctx context.Context, notification *Notification) error
	// Supports reports whether the channel handles the given priority.
	Supports(priority Priority) bool
}

// ChannelConfig controls how the center uses a registered channel.
type ChannelConfig struct {
	// Enabled gates the channel without unregistering it.
	Enabled bool
	// MinPriority suppresses notifications below this priority.
	MinPriority Priority
}

// Status classifies one delivery attempt.
type Status string

const (
	// StatusDelivered means the channel accepted the notification.
	StatusDelivered Status = "delivered"
	// StatusFailed means the channel returned an error.
	StatusFailed Status = "failed"
	// StatusSkipped means the channel was gated off for this notification.
	StatusSkipped Status = "skipped"
)

// Result reports one channel's delivery attempt.
type Result struct {
	// NotificationID echoes the notification after ID assignment.
	NotificationID string
	// Channel is the attempted channel's name.
	Channel string
	// Status classifies the attempt.
	Status Status
	// Err carries the failure when Status is StatusFailed.
	Err error
}

// Center routes notifications to its registered channels. Delivery outcomes
// are reported per channel and never escalate into the caller's own failure
// handling.
type Center struct {
	mu       sync.Mutex
	channels []registeredChannel
}

// registeredChannel pairs a channel with its routing configuration.
type registeredChannel struct {
	channel Channel
	config  ChannelConfig
}

// NewCenter builds an empty notification center.
func NewCenter() *Center {
	return &Center{}
}

// RegisterChannel adds a channel. Registration order is delivery order.
func (c *Center) RegisterChannel(channel Channel, config ChannelConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.channels = append(c.channels, registeredChannel{channel: channel, config: config})
}

// Send delivers the notification to every eligible channel and reports one
// result per registered channel. Notifications without an ID are assigned
// one before delivery.
func (c *Center) Send(ctx context.Context, notification *Notification) []Result {
	if notification.ID == "" {
		notification.ID = uuid.NewString()
	}

	c.mu.Lock()
	targets := append([]registeredChannel(nil), c.channels...)
	c.mu.Unlock()

	results := make([]Result, 0, len(targets))
	for _, target := range targets {
		result := Result{NotificationID: notification.ID, Channel: target.channel.Name()}
		switch {
		case !target.config.Enabled:
			result.Status = StatusSkipped
		case notification.Priority < target.config.MinPriority:
			result.Status = StatusSkipped
		case !target.channel.Supports(notification.Priority):
			result.Status = StatusSkipped
		default:
			if err := target.channel.Send(ctx, notification); err != nil {
				result.Status = StatusFailed
				result.Err = err
			} else {
				result.Status = StatusDelivered
			}
		}
		results = append(results, result)
	}
	return results
}
